package app

import (
	"sync"

	"exam-service/internal/domain"
)

// hub fans ranked snapshots out to live leaderboard subscribers, per test.
// Each subscriber only ever moves forward in test version.
type hub struct {
	mu     sync.Mutex
	buffer int
	subs   map[string]map[*subscriber]struct{}
}

type subscriber struct {
	ch   chan domain.Leaderboard
	last int64
}

func newHub(buffer int) *hub {
	if buffer <= 0 {
		buffer = 8
	}
	return &hub{
		buffer: buffer,
		subs:   make(map[string]map[*subscriber]struct{}),
	}
}

func (h *hub) subscribe(testID string) (<-chan domain.Leaderboard, func()) {
	sub := &subscriber{ch: make(chan domain.Leaderboard, h.buffer)}

	h.mu.Lock()
	if h.subs[testID] == nil {
		h.subs[testID] = make(map[*subscriber]struct{})
	}
	h.subs[testID][sub] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		set := h.subs[testID]
		if _, ok := set[sub]; !ok {
			return
		}
		delete(set, sub)
		close(sub.ch)
		if len(set) == 0 {
			delete(h.subs, testID)
		}
	}
	return sub.ch, cancel
}

func (h *hub) watched(testID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[testID]) > 0
}

// publish delivers lb to every subscriber that has not yet seen its version or a later one.
func (h *hub) publish(testID string, lb domain.Leaderboard) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs[testID] {
		if lb.Version <= sub.last {
			continue
		}
		sub.last = lb.Version
		select {
		case sub.ch <- lb:
		default:
			// Slow consumer: drop its oldest snapshot so the newest always lands.
			select {
			case <-sub.ch:
			default:
			}
			sub.ch <- lb
		}
	}
}
