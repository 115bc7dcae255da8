// Package deadline ends started tests when their deadline passes.
//
// Each armed test gets an in-process one-shot timer plus an entry in a durable Ledger.
// The timer is the fast path; the ledger is what survives a restart or a crashed
// process, and a periodic sweep fires any entry that is overdue.
package deadline

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Ledger durably records armed deadlines.
type Ledger interface {
	Put(ctx context.Context, testID string, deadline time.Time) error
	Remove(ctx context.Context, testID string) error
	Due(ctx context.Context, now time.Time) ([]string, error)
}

// FireFunc ends a test. It must be idempotent: the timer and the sweep may both call it.
type FireFunc func(ctx context.Context, testID string) error

// Enforcer implements app.DeadlineScheduler.
type Enforcer struct {
	ledger      Ledger
	fire        FireFunc
	now         func() time.Time
	fireTimeout time.Duration

	mu     sync.Mutex
	timers map[string]*time.Timer
	cron   *cron.Cron
}

// NewEnforcer builds an enforcer; fire is invoked once a test's deadline is reached.
func NewEnforcer(ledger Ledger, fire FireFunc) *Enforcer {
	return NewEnforcerWithClock(ledger, fire, time.Now)
}

// NewEnforcerWithClock allows deterministic sweeps in tests.
func NewEnforcerWithClock(ledger Ledger, fire FireFunc, now func() time.Time) *Enforcer {
	return &Enforcer{
		ledger:      ledger,
		fire:        fire,
		now:         now,
		fireTimeout: 30 * time.Second,
		timers:      make(map[string]*time.Timer),
	}
}

// Arm records the deadline and schedules a one-shot timer for it, replacing any earlier one.
func (e *Enforcer) Arm(ctx context.Context, testID string, deadline time.Time) error {
	err := e.ledger.Put(ctx, testID, deadline)
	e.schedule(testID, deadline.Sub(e.now()))
	return err
}

// Disarm cancels the timer and forgets the deadline.
func (e *Enforcer) Disarm(ctx context.Context, testID string) error {
	e.cancel(testID)
	return e.ledger.Remove(ctx, testID)
}

// Armed reports whether a local timer is pending for the test.
func (e *Enforcer) Armed(testID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.timers[testID]
	return ok
}

// Sweep fires every ledger entry whose deadline has passed and returns how many it fired.
func (e *Enforcer) Sweep(ctx context.Context) (int, error) {
	due, err := e.ledger.Due(ctx, e.now())
	if err != nil {
		return 0, err
	}
	for _, testID := range due {
		e.cancel(testID)
		e.trigger(ctx, testID)
	}
	return len(due), nil
}

// StartSweeper runs Sweep on a fixed interval until Stop.
func (e *Enforcer) StartSweeper(interval time.Duration) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc("@every "+interval.String(), func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.fireTimeout)
		defer cancel()
		n, err := e.Sweep(ctx)
		if err != nil {
			log.Printf("deadline sweep failed: %v", err)
			return
		}
		if n > 0 {
			log.Printf("deadline sweep fired %d overdue tests", n)
		}
	})
	if err != nil {
		return err
	}

	e.mu.Lock()
	e.cron = c
	e.mu.Unlock()
	c.Start()
	return nil
}

// Stop halts the sweeper and all pending timers. Ledger entries are kept for the next start.
func (e *Enforcer) Stop() {
	e.mu.Lock()
	c := e.cron
	e.cron = nil
	for id, t := range e.timers {
		t.Stop()
		delete(e.timers, id)
	}
	e.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

func (e *Enforcer) schedule(testID string, delay time.Duration) {
	if delay < 0 {
		delay = 0
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if old, ok := e.timers[testID]; ok {
		old.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(delay, func() {
		e.mu.Lock()
		current, ok := e.timers[testID]
		if !ok || current != timer {
			e.mu.Unlock()
			return
		}
		delete(e.timers, testID)
		e.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), e.fireTimeout)
		defer cancel()
		e.trigger(ctx, testID)
	})
	e.timers[testID] = timer
}

func (e *Enforcer) cancel(testID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if t, ok := e.timers[testID]; ok {
		t.Stop()
		delete(e.timers, testID)
	}
}

// trigger fires a test and clears its ledger entry. On failure the entry stays so the
// next sweep retries; if fire re-armed the test, the new entry is kept.
func (e *Enforcer) trigger(ctx context.Context, testID string) {
	if err := e.fire(ctx, testID); err != nil {
		log.Printf("deadline for test %s: end failed: %v", testID, err)
		return
	}
	if e.Armed(testID) {
		return
	}
	if err := e.ledger.Remove(ctx, testID); err != nil {
		log.Printf("deadline for test %s: clear ledger: %v", testID, err)
	}
}
