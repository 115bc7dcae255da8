package memory

import (
	"context"
	"sort"
	"sync"
	"time"
)

// DeadlineLedger is an in-memory deadline.Ledger. It does not survive restarts; the
// recovery sweep over started tests covers that in single-process deployments.
type DeadlineLedger struct {
	mu        sync.RWMutex
	deadlines map[string]time.Time
}

func NewDeadlineLedger() *DeadlineLedger {
	return &DeadlineLedger{deadlines: make(map[string]time.Time)}
}

func (l *DeadlineLedger) Put(_ context.Context, testID string, deadline time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deadlines[testID] = deadline
	return nil
}

func (l *DeadlineLedger) Remove(_ context.Context, testID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.deadlines, testID)
	return nil
}

// Due returns overdue test ids, earliest deadline first.
func (l *DeadlineLedger) Due(_ context.Context, now time.Time) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	due := make([]string, 0)
	for id, d := range l.deadlines {
		if !now.Before(d) {
			due = append(due, id)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		return l.deadlines[due[i]].Before(l.deadlines[due[j]])
	})
	return due, nil
}
