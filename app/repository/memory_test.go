package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"speeddating/app/models"
)

func newScheduledSession(id string, max int, at time.Time, interests ...string) *models.Session {
	return &models.Session{
		ID:              id,
		CreatorID:       "creator",
		ScheduledAt:     at,
		TargetInterests: interests,
		MaxParticipants: max,
		Status:          models.SessionStatusScheduled,
		Participants:    map[string]models.Participant{},
	}
}

func TestMemoryStore_AddParticipantDerivesFull(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	if err := store.CreateSession(ctx, newScheduledSession("s1", 2, now.Add(time.Hour), "Travel")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	s, err := store.AddParticipant(ctx, "s1", models.Participant{UserID: "u1"}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != models.SessionStatusScheduled || s.ParticipantCount != 1 {
		t.Fatalf("unexpected state after first join: status=%s count=%d", s.Status, s.ParticipantCount)
	}

	s, err = store.AddParticipant(ctx, "s1", models.Participant{UserID: "u2"}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != models.SessionStatusFull || s.ParticipantCount != 2 {
		t.Fatalf("unexpected state after second join: status=%s count=%d", s.Status, s.ParticipantCount)
	}

	if _, err := store.AddParticipant(ctx, "s1", models.Participant{UserID: "u3"}, now); !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}
}

func TestMemoryStore_AddParticipantRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	_ = store.CreateSession(ctx, newScheduledSession("s1", 4, now.Add(time.Hour)))

	if _, err := store.AddParticipant(ctx, "s1", models.Participant{UserID: "u1"}, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.AddParticipant(ctx, "s1", models.Participant{UserID: "u1"}, now); !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}
	if _, err := store.AddParticipant(ctx, "missing", models.Participant{UserID: "u1"}, now); !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_ConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	_ = store.CreateSession(ctx, newScheduledSession("s1", 5, now.Add(time.Hour)))

	var wg sync.WaitGroup
	for i := range 40 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = store.AddParticipant(ctx, "s1", models.Participant{UserID: fmt.Sprintf("u%d", i)}, now)
		}(i)
	}
	wg.Wait()

	s, err := store.GetSession(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.ParticipantCount != 5 || len(s.ParticipantIDs) != 5 || len(s.Participants) != 5 {
		t.Fatalf("unexpected participant totals: count=%d ids=%d details=%d", s.ParticipantCount, len(s.ParticipantIDs), len(s.Participants))
	}
	if s.Status != models.SessionStatusFull {
		t.Fatalf("unexpected status: %s", s.Status)
	}
}

func TestMemoryStore_RemoveParticipantReopensSession(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	_ = store.CreateSession(ctx, newScheduledSession("s1", 2, now.Add(time.Hour)))
	_, _ = store.AddParticipant(ctx, "s1", models.Participant{UserID: "u1"}, now)
	_, _ = store.AddParticipant(ctx, "s1", models.Participant{UserID: "u2"}, now)

	s, err := store.RemoveParticipant(ctx, "s1", "u2", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != models.SessionStatusScheduled || s.ParticipantCount != 1 || s.HasParticipant("u2") {
		t.Fatalf("unexpected state after leave: %+v", s)
	}
	if _, ok := s.Participants["u2"]; ok {
		t.Fatalf("participant detail was not removed")
	}
	if _, err := store.RemoveParticipant(ctx, "s1", "u2", now); !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}
}

func TestMemoryStore_UpdateSessionComparesStatus(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	_ = store.CreateSession(ctx, newScheduledSession("s1", 2, now.Add(time.Hour)))

	inProgress := models.SessionStatusInProgress
	round := 1
	s, err := store.UpdateSession(ctx, "s1", models.SessionStatusScheduled, models.SessionUpdate{Status: &inProgress, CurrentRound: &round}, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Status != models.SessionStatusInProgress || s.CurrentRound != 1 {
		t.Fatalf("unexpected session after update: %+v", s)
	}

	if _, err := store.UpdateSession(ctx, "s1", models.SessionStatusScheduled, models.SessionUpdate{Status: &inProgress}, now); !errors.Is(err, ErrConditionFailed) {
		t.Fatalf("expected ErrConditionFailed, got %v", err)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	_ = store.CreateSession(ctx, newScheduledSession("s1", 3, now.Add(time.Hour), "Travel"))

	s, _ := store.GetSession(ctx, "s1")
	s.TargetInterests[0] = "Cooking"
	s.Status = models.SessionStatusCancelled

	again, _ := store.GetSession(ctx, "s1")
	if again.TargetInterests[0] != "Travel" || again.Status != models.SessionStatusScheduled {
		t.Fatalf("stored session was mutated through a returned copy: %+v", again)
	}
}

func TestMemoryStore_FindAvailableSessions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	_ = store.CreateSession(ctx, newScheduledSession("later", 4, now.Add(2*time.Hour), "Travel"))
	_ = store.CreateSession(ctx, newScheduledSession("sooner", 4, now.Add(time.Hour), "Travel", "Music"))
	_ = store.CreateSession(ctx, newScheduledSession("other", 4, now.Add(time.Hour), "Cooking"))
	_ = store.CreateSession(ctx, newScheduledSession("past", 4, now.Add(-time.Hour), "Travel"))
	full := newScheduledSession("full", 4, now.Add(time.Hour), "Travel")
	full.Status = models.SessionStatusFull
	_ = store.CreateSession(ctx, full)

	got, err := store.FindAvailableSessions(ctx, []string{"Travel"}, now, SessionQueryLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "sooner" || got[1].ID != "later" {
		t.Fatalf("unexpected sessions: %+v", got)
	}

	got, _ = store.FindAvailableSessions(ctx, []string{"Travel"}, now, 1)
	if len(got) != 1 {
		t.Fatalf("expected limit to apply, got %d sessions", len(got))
	}
}

func TestMemoryStore_FindSessionsForUserAndDue(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	now := time.Now()
	_ = store.CreateSession(ctx, newScheduledSession("due", 4, now.Add(-time.Minute)))
	_ = store.CreateSession(ctx, newScheduledSession("future", 4, now.Add(time.Hour)))
	_, _ = store.AddParticipant(ctx, "due", models.Participant{UserID: "u1"}, now)
	_, _ = store.AddParticipant(ctx, "future", models.Participant{UserID: "u1"}, now)

	mine, err := store.FindSessionsForUser(ctx, "u1", UpcomingStatuses, SessionQueryLimit)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("expected 2 sessions for user, got %d", len(mine))
	}

	due, _ := store.FindDueSessions(ctx, now, SessionQueryLimit)
	if len(due) != 1 || due[0].ID != "due" {
		t.Fatalf("unexpected due sessions: %+v", due)
	}
}

func TestMemoryStore_FeedbackUniqueness(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	f := &models.Feedback{ID: "f1", UserID: "u1", SessionID: "s1", PartnerID: "u2", Rating: models.RatingPositive}
	if err := store.CreateFeedback(ctx, f); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	dup := *f
	dup.ID = "f2"
	if err := store.CreateFeedback(ctx, &dup); !errors.Is(err, models.ErrDuplicateFeedback) {
		t.Fatalf("expected ErrDuplicateFeedback, got %v", err)
	}
	_ = store.CreateFeedback(ctx, &models.Feedback{ID: "f3", UserID: "u1", SessionID: "s2", PartnerID: "u2"})
	_ = store.CreateFeedback(ctx, &models.Feedback{ID: "f4", UserID: "u2", SessionID: "s1", PartnerID: "u1"})

	got, err := store.ListFeedback(ctx, "u1", "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != "f1" {
		t.Fatalf("unexpected feedback: %+v", got)
	}
}
