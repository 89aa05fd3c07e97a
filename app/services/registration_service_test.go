package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"speeddating/app/models"
)

func TestRegister_StatusFollowsCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const capacity = 5
	s := env.createSession(t, capacity)

	for i := 2; i <= capacity; i++ {
		got, err := env.registration.Register(ctx, fmt.Sprintf("u%d", i), s.ID)
		if err != nil {
			t.Fatalf("join %d: unexpected error: %v", i, err)
		}
		if got.ParticipantCount != i {
			t.Fatalf("join %d: unexpected count %d", i, got.ParticipantCount)
		}
		want := models.SessionStatusScheduled
		if i == capacity {
			want = models.SessionStatusFull
		}
		if got.Status != want {
			t.Fatalf("join %d: expected status %s, got %s", i, want, got.Status)
		}
	}

	if _, err := env.registration.Register(ctx, "u6", s.ID); !errors.Is(err, models.ErrCapacityReached) {
		t.Fatalf("expected ErrCapacityReached, got %v", err)
	}
	got, _ := env.store.GetSession(ctx, s.ID)
	if got.ParticipantCount != capacity || len(got.ParticipantIDs) != capacity {
		t.Fatalf("capacity exceeded: %+v", got)
	}
}

func TestRegister_IsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.createSession(t, 4)

	first, err := env.registration.Register(ctx, "u2", s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := env.registration.Register(ctx, "u2", s.ID)
	if err != nil {
		t.Fatalf("unexpected error on repeat join: %v", err)
	}
	if first.ParticipantCount != second.ParticipantCount || second.ParticipantCount != 2 {
		t.Fatalf("repeat join changed the count: %d -> %d", first.ParticipantCount, second.ParticipantCount)
	}

	// the creator is already registered too
	if _, err := env.registration.Register(ctx, "u1", s.ID); err != nil {
		t.Fatalf("unexpected error for creator join: %v", err)
	}
	counters, _ := env.stats.Snapshot(ctx)
	if counters[models.StatRegistrations] != 1 {
		t.Fatalf("expected one counted registration, got %d", counters[models.StatRegistrations])
	}
}

func TestRegister_ConcurrentJoinsRespectCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	const capacity = 6
	s := env.createSession(t, capacity)

	var wg sync.WaitGroup
	var joined, rejected atomic.Int32
	for i := 2; i <= 25; i++ {
		wg.Add(1)
		go func(userID string) {
			defer wg.Done()
			_, err := env.registration.Register(ctx, userID, s.ID)
			switch {
			case err == nil:
				joined.Add(1)
			case errors.Is(err, models.ErrCapacityReached):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error for %s: %v", userID, err)
			}
		}(fmt.Sprintf("u%d", i))
	}
	wg.Wait()

	if joined.Load() != capacity-1 {
		t.Fatalf("expected %d successful joins, got %d", capacity-1, joined.Load())
	}
	if rejected.Load() != 24-(capacity-1) {
		t.Fatalf("unexpected rejected joins: %d", rejected.Load())
	}
	got, _ := env.store.GetSession(ctx, s.ID)
	if got.ParticipantCount != capacity || got.Status != models.SessionStatusFull {
		t.Fatalf("unexpected final state: count=%d status=%s", got.ParticipantCount, got.Status)
	}
}

func TestRegister_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.registration.Register(ctx, "u2", "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing session, got %v", err)
	}

	s := env.createSession(t, 4)
	if _, err := env.registration.Register(ctx, "ghost", s.ID); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown user, got %v", err)
	}

	running := env.start(t, 2)
	_, err := env.registration.Register(ctx, "u9", running.ID)
	var stateErr *models.StateError
	if !errors.As(err, &stateErr) || stateErr.Status != models.SessionStatusInProgress {
		t.Fatalf("expected state error naming in-progress, got %v", err)
	}
}

func TestRegister_BlockedUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.store.PutUserProfile(models.UserProfile{ID: "spam", Name: "Spam", BlockedReason: "reported"})
	s := env.createSession(t, 4)

	if _, err := env.registration.Register(ctx, "spam", s.ID); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for a blocked user, got %v", err)
	}
	got, _ := env.store.GetSession(ctx, s.ID)
	if got.ParticipantCount != 1 || got.HasParticipant("spam") {
		t.Fatalf("expected blocked user not to be registered, got %+v", got.ParticipantIDs)
	}

	_, err := env.sessions.CreateSession(ctx, "spam", models.CreateSessionRequest{
		Interests:   []string{"Travel"},
		ScheduledAt: env.clock.Now().Add(time.Hour),
	})
	if !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden creating as a blocked user, got %v", err)
	}
}

func TestLeave(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	s := env.createSession(t, 3)
	env.fill(t, s.ID, 3)

	got, err := env.registration.Leave(ctx, "u3", s.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != models.SessionStatusScheduled || got.ParticipantCount != 2 || got.HasParticipant("u3") {
		t.Fatalf("expected full session to reopen, got %+v", got)
	}

	if _, err := env.registration.Leave(ctx, "u3", s.ID); !errors.Is(err, models.ErrNotParticipant) {
		t.Fatalf("expected ErrNotParticipant, got %v", err)
	}
	if _, err := env.registration.Leave(ctx, "u1", s.ID); !errors.Is(err, models.ErrForbidden) {
		t.Fatalf("expected ErrForbidden for creator, got %v", err)
	}

	if _, err := env.registration.Register(ctx, "u3", s.ID); err != nil {
		t.Fatalf("expected to rejoin after leaving: %v", err)
	}
}

func TestLeave_AfterStart(t *testing.T) {
	env := newTestEnv(t)
	running := env.start(t, 3)
	_, err := env.registration.Leave(context.Background(), "u2", running.ID)
	var stateErr *models.StateError
	if !errors.As(err, &stateErr) {
		t.Fatalf("expected state error, got %v", err)
	}
}
