package deadline_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"exam-service/internal/deadline"
	"exam-service/internal/infra/memory"
)

type recorder struct {
	mu    sync.Mutex
	fired []string
	err   error
	ch    chan string
}

func newRecorder() *recorder {
	return &recorder{ch: make(chan string, 16)}
}

func (r *recorder) fire(_ context.Context, testID string) error {
	r.mu.Lock()
	r.fired = append(r.fired, testID)
	err := r.err
	r.mu.Unlock()
	r.ch <- testID
	return err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.fired)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestEnforcerFiresAtDeadline(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewDeadlineLedger()
	rec := newRecorder()
	enforcer := deadline.NewEnforcer(ledger, rec.fire)
	defer enforcer.Stop()

	if err := enforcer.Arm(ctx, "test-1", time.Now().Add(20*time.Millisecond)); err != nil {
		t.Fatalf("arm: %v", err)
	}
	if !enforcer.Armed("test-1") {
		t.Fatalf("expected a pending timer")
	}

	select {
	case id := <-rec.ch:
		if id != "test-1" {
			t.Fatalf("unexpected test fired: %s", id)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timer never fired")
	}

	waitFor(t, func() bool {
		due, _ := ledger.Due(ctx, time.Now().Add(time.Hour))
		return len(due) == 0
	})
	if enforcer.Armed("test-1") {
		t.Fatalf("fired timer must not stay armed")
	}
}

func TestEnforcerPastDeadlineFiresImmediately(t *testing.T) {
	rec := newRecorder()
	enforcer := deadline.NewEnforcer(memory.NewDeadlineLedger(), rec.fire)
	defer enforcer.Stop()

	_ = enforcer.Arm(context.Background(), "overdue", time.Now().Add(-time.Minute))
	select {
	case <-rec.ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("overdue test was not fired")
	}
}

func TestEnforcerDisarmCancels(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewDeadlineLedger()
	rec := newRecorder()
	enforcer := deadline.NewEnforcer(ledger, rec.fire)
	defer enforcer.Stop()

	_ = enforcer.Arm(ctx, "test-1", time.Now().Add(30*time.Millisecond))
	if err := enforcer.Disarm(ctx, "test-1"); err != nil {
		t.Fatalf("disarm: %v", err)
	}

	time.Sleep(100 * time.Millisecond)
	if rec.count() != 0 {
		t.Fatalf("disarmed timer fired")
	}
	due, _ := ledger.Due(ctx, time.Now().Add(time.Hour))
	if len(due) != 0 {
		t.Fatalf("disarm must clear the ledger, got %v", due)
	}
}

func TestEnforcerRearmReplacesTimer(t *testing.T) {
	ctx := context.Background()
	rec := newRecorder()
	enforcer := deadline.NewEnforcer(memory.NewDeadlineLedger(), rec.fire)
	defer enforcer.Stop()

	_ = enforcer.Arm(ctx, "test-1", time.Now().Add(20*time.Millisecond))
	_ = enforcer.Arm(ctx, "test-1", time.Now().Add(40*time.Millisecond))

	<-rec.ch
	time.Sleep(100 * time.Millisecond)
	if rec.count() != 1 {
		t.Fatalf("expected a single fire, got %d", rec.count())
	}
}

func TestSweepFiresOverdueLedgerEntries(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	clk := &clock{now: base}
	ledger := memory.NewDeadlineLedger()
	rec := newRecorder()
	enforcer := deadline.NewEnforcerWithClock(ledger, rec.fire, clk.Now)
	defer enforcer.Stop()

	// Entries left behind by another process: no local timer exists.
	_ = ledger.Put(ctx, "orphan", base.Add(time.Minute))
	_ = ledger.Put(ctx, "future", base.Add(time.Hour))

	n, err := enforcer.Sweep(ctx)
	if err != nil || n != 0 {
		t.Fatalf("nothing should be due yet, got n=%d err=%v", n, err)
	}

	clk.Advance(2 * time.Minute)
	n, err = enforcer.Sweep(ctx)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if n != 1 || rec.count() != 1 || rec.fired[0] != "orphan" {
		t.Fatalf("expected orphan fired once, got n=%d fired=%v", n, rec.fired)
	}
	due, _ := ledger.Due(ctx, base.Add(2*time.Hour))
	if len(due) != 1 || due[0] != "future" {
		t.Fatalf("expected only future left, got %v", due)
	}
}

func TestFailedFireKeepsLedgerEntry(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	clk := &clock{now: base}
	ledger := memory.NewDeadlineLedger()
	rec := newRecorder()
	rec.err = errors.New("store unavailable")
	enforcer := deadline.NewEnforcerWithClock(ledger, rec.fire, clk.Now)
	defer enforcer.Stop()

	_ = ledger.Put(ctx, "test-1", base)
	if _, err := enforcer.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	due, _ := ledger.Due(ctx, base)
	if len(due) != 1 {
		t.Fatalf("failed fire must be retried by the next sweep, ledger=%v", due)
	}
}

func TestFireThatRearmsKeepsLedgerEntry(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	clk := &clock{now: base}
	ledger := memory.NewDeadlineLedger()

	// A fire that finds the test not yet due re-arms it instead of ending it.
	var enforcer *deadline.Enforcer
	enforcer = deadline.NewEnforcerWithClock(ledger, func(ctx context.Context, testID string) error {
		return enforcer.Arm(ctx, testID, base.Add(time.Hour))
	}, clk.Now)
	defer enforcer.Stop()

	_ = ledger.Put(ctx, "early", base)
	if _, err := enforcer.Sweep(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	due, _ := ledger.Due(ctx, base.Add(2*time.Hour))
	if len(due) != 1 || due[0] != "early" {
		t.Fatalf("re-armed entry must survive, ledger=%v", due)
	}
	if !enforcer.Armed("early") {
		t.Fatalf("expected a pending timer after re-arm")
	}
}

func TestStartSweeperRuns(t *testing.T) {
	ctx := context.Background()
	ledger := memory.NewDeadlineLedger()
	rec := newRecorder()
	enforcer := deadline.NewEnforcer(ledger, rec.fire)

	_ = ledger.Put(ctx, "orphan", time.Now().Add(-time.Second))
	if err := enforcer.StartSweeper(time.Second); err != nil {
		t.Fatalf("start sweeper: %v", err)
	}
	defer enforcer.Stop()

	select {
	case id := <-rec.ch:
		if id != "orphan" {
			t.Fatalf("unexpected test fired: %s", id)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("sweeper never fired the overdue entry")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	until := time.Now().Add(2 * time.Second)
	for time.Now().Before(until) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}
