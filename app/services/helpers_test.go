package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"speeddating/app/models"
	"speeddating/app/repository"
	"speeddating/app/utils"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) NotifySession(event string, _ *models.Session) {
	n.mu.Lock()
	n.events = append(n.events, event)
	n.mu.Unlock()
}

func (n *recordingNotifier) Events() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.events...)
}

type testEnv struct {
	store        *repository.MemoryStore
	clock        *fakeClock
	notifier     *recordingNotifier
	stats        *MemoryStats
	matchmaking  *MatchmakingService
	sessions     *SessionService
	registration *RegistrationService
	feedback     *FeedbackService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := repository.NewMemoryStore()
	for i := 1; i <= 25; i++ {
		store.PutUserProfile(models.UserProfile{
			ID:        fmt.Sprintf("u%d", i),
			Name:      fmt.Sprintf("User %d", i),
			Interests: []string{"Travel"},
		})
	}
	clock := &fakeClock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	stats := NewMemoryStats()
	locker := NewLocalLocker()

	mm := NewMatchmakingService(store, notifier, stats, utils.NewRand(42))
	mm.now = clock.Now
	sessions := NewSessionService(store, store, mm, locker, notifier, stats)
	sessions.now = clock.Now
	registration := NewRegistrationService(store, store, notifier, stats)
	registration.now = clock.Now
	feedback := NewFeedbackService(store, store, stats)
	feedback.now = clock.Now

	return &testEnv{
		store:        store,
		clock:        clock,
		notifier:     notifier,
		stats:        stats,
		matchmaking:  mm,
		sessions:     sessions,
		registration: registration,
		feedback:     feedback,
	}
}

// createSession opens a session by u1 scheduled one hour ahead
func (e *testEnv) createSession(t *testing.T, max int, interests ...string) *models.Session {
	t.Helper()
	if len(interests) == 0 {
		interests = []string{"Travel"}
	}
	s, err := e.sessions.CreateSession(context.Background(), "u1", models.CreateSessionRequest{
		Interests:       interests,
		ScheduledAt:     e.clock.Now().Add(time.Hour),
		MaxParticipants: max,
	})
	if err != nil {
		t.Fatalf("unexpected error creating session: %v", err)
	}
	return s
}

// fill registers u2..un so the session has n participants
func (e *testEnv) fill(t *testing.T, sessionID string, n int) {
	t.Helper()
	for i := 2; i <= n; i++ {
		if _, err := e.registration.Register(context.Background(), fmt.Sprintf("u%d", i), sessionID); err != nil {
			t.Fatalf("unexpected error registering u%d: %v", i, err)
		}
	}
}

// start registers n participants and moves the session to in-progress
func (e *testEnv) start(t *testing.T, n int) *models.Session {
	t.Helper()
	s := e.createSession(t, max(n, models.MinParticipants))
	e.fill(t, s.ID, n)
	started, err := e.sessions.UpdateSessionStatus(context.Background(), "u1", s.ID, string(models.SessionStatusInProgress))
	if err != nil {
		t.Fatalf("unexpected error starting session: %v", err)
	}
	return started
}
