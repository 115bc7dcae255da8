package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"exam-service/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLockerExcludesSecondHolder(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)
	locker := NewLocker(client, time.Minute, 50*time.Millisecond)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "test:1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if !mr.Exists("exam:lock:test:1") {
		t.Fatalf("expected redis lock key to be set")
	}

	if _, err := locker.Lock(ctx, "test:1"); !errors.Is(err, domain.ErrLockTimeout) {
		t.Fatalf("expected lock timeout, got %v", err)
	}

	other, err := locker.Lock(ctx, "test:2")
	if err != nil {
		t.Fatalf("independent key: %v", err)
	}
	other()

	unlock()
	if mr.Exists("exam:lock:test:1") {
		t.Fatalf("expected redis lock key to be removed")
	}

	again, err := locker.Lock(ctx, "test:1")
	if err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	again()
}

func TestLockerReleaseKeepsForeignToken(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	locker := NewLocker(newClient(mr), time.Minute, 50*time.Millisecond)
	unlock, err := locker.Lock(context.Background(), "test:1")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}

	// Simulate expiry and takeover by another process.
	if err := mr.Set("exam:lock:test:1", "someone-else"); err != nil {
		t.Fatalf("set: %v", err)
	}
	unlock()

	got, err := mr.Get("exam:lock:test:1")
	if err != nil || got != "someone-else" {
		t.Fatalf("release must not delete a lock held by another token, got %q (%v)", got, err)
	}
}

func TestLockerExpiresCrashedHolder(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	locker := NewLocker(newClient(mr), time.Second, 50*time.Millisecond)
	if _, err := locker.Lock(context.Background(), "test:1"); err != nil {
		t.Fatalf("lock: %v", err)
	}

	mr.FastForward(2 * time.Second)

	unlock, err := locker.Lock(context.Background(), "test:1")
	if err != nil {
		t.Fatalf("expected expired lock to be acquirable: %v", err)
	}
	unlock()
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
