package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"speeddating/app/models"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	svc, err := NewService(context.Background(), Options{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	return svc, mr
}

func TestNewService_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := NewService(ctx, Options{Addr: "127.0.0.1:1"}); err == nil {
		t.Fatal("expected error for an unreachable server")
	}
}

func TestLocker_MutualExclusion(t *testing.T) {
	svc, _ := newTestService(t)
	locker := NewLocker(svc, 5*time.Second)
	ctx := context.Background()

	var mu sync.Mutex
	inside, maxInside := 0, 0
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "s1")
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			mu.Lock()
			inside++
			maxInside = max(maxInside, inside)
			mu.Unlock()
			time.Sleep(2 * time.Millisecond)
			mu.Lock()
			inside--
			mu.Unlock()
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("expected one holder at a time, saw %d", maxInside)
	}
}

func TestLocker_ContextEndsWhileHeld(t *testing.T) {
	svc, mr := newTestService(t)
	locker := NewLocker(svc, 5*time.Second)

	unlock, err := locker.Lock(context.Background(), "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := locker.Lock(ctx, "s1"); !errors.Is(err, ErrLockNotAcquired) || !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected ErrLockNotAcquired wrapping the deadline, got %v", err)
	}

	other, err := locker.Lock(context.Background(), "s2")
	if err != nil {
		t.Fatalf("expected an unrelated session to lock, got %v", err)
	}
	other()

	unlock()
	unlock()
	if mr.Exists(lockKeyPrefix + "s1") {
		t.Fatal("expected the lock key to be deleted on release")
	}
}

func TestLocker_ExpiredHolderDoesNotReleaseNewHolder(t *testing.T) {
	svc, mr := newTestService(t)
	locker := NewLocker(svc, time.Second)
	ctx := context.Background()
	key := lockKeyPrefix + "s1"

	stale, err := locker.Lock(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ttl := mr.TTL(key); ttl <= 0 || ttl > time.Second {
		t.Fatalf("expected the lock to carry its ttl, got %s", ttl)
	}

	mr.FastForward(2 * time.Second)
	if mr.Exists(key) {
		t.Fatal("expected the lock to expire")
	}

	current, err := locker.Lock(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	token, err := mr.Get(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stale()
	got, err := mr.Get(key)
	if err != nil || got != token {
		t.Fatalf("expected the new holder's lock to survive a stale release, got %q %v", got, err)
	}

	current()
	if mr.Exists(key) {
		t.Fatal("expected the lock key to be deleted by its holder")
	}
}

func TestStats_AddAndSnapshot(t *testing.T) {
	svc, mr := newTestService(t)
	stats := NewStats(svc)
	ctx := context.Background()

	snapshot, err := stats.Snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range models.StatNames {
		if v, ok := snapshot[name]; !ok || v != 0 {
			t.Fatalf("expected %s to read as zero, got %d (present=%v)", name, v, ok)
		}
	}

	stats.Add(ctx, models.StatRegistrations, 1)
	stats.Add(ctx, models.StatRegistrations, 2)
	stats.Add(ctx, models.StatPairingsGenerated, 6)

	snapshot, err = stats.Snapshot(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snapshot[models.StatRegistrations] != 3 || snapshot[models.StatPairingsGenerated] != 6 || snapshot[models.StatSessionsCreated] != 0 {
		t.Fatalf("unexpected snapshot: %v", snapshot)
	}
	if got, _ := mr.Get(statsKeyPrefix + models.StatRegistrations); got != "3" {
		t.Fatalf("expected counter stored under its key, got %q", got)
	}
}

func TestStats_SnapshotRejectsCorruptCounter(t *testing.T) {
	svc, mr := newTestService(t)
	if err := mr.Set(statsKeyPrefix+models.StatFeedbackSubmitted, "many"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := NewStats(svc).Snapshot(context.Background()); err == nil {
		t.Fatal("expected error for a non-numeric counter")
	}
}
