package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"speeddating/app/models"
)

// MemoryStore keeps sessions, feedback and profiles in process memory. Every method runs
// under one mutex, so conditional writes are atomic just like their Mongo counterparts.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*models.Session
	feedback []models.Feedback
	users    map[string]models.UserProfile
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*models.Session),
		users:    make(map[string]models.UserProfile),
	}
}

// PutUserProfile seeds or replaces a user profile
func (m *MemoryStore) PutUserProfile(p models.UserProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Interests = slices.Clone(p.Interests)
	m.users[p.ID] = p
}

// GetUserProfile returns the profile for userID or models.ErrNotFound
func (m *MemoryStore) GetUserProfile(_ context.Context, userID string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.users[userID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
	}
	p.Interests = slices.Clone(p.Interests)
	return &p, nil
}

// CreateSession stores a copy of s
func (m *MemoryStore) CreateSession(_ context.Context, s *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.sessions[s.ID]; exists {
		return fmt.Errorf("session %s already exists", s.ID)
	}
	m.sessions[s.ID] = cloneSession(s)
	return nil
}

// GetSession returns a copy of the session or models.ErrNotFound
func (m *MemoryStore) GetSession(_ context.Context, id string) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	return cloneSession(s), nil
}

// AddParticipant registers p if the session still accepts it
func (m *MemoryStore) AddParticipant(_ context.Context, sessionID string, p models.Participant, now time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
	}
	if s.Status != models.SessionStatusScheduled || s.ParticipantCount >= s.MaxParticipants || s.HasParticipant(p.UserID) {
		return nil, ErrConditionFailed
	}
	s.ParticipantCount++
	s.ParticipantIDs = append(s.ParticipantIDs, p.UserID)
	if s.Participants == nil {
		s.Participants = make(map[string]models.Participant)
	}
	s.Participants[p.UserID] = p
	if s.ParticipantCount == s.MaxParticipants {
		s.Status = models.SessionStatusFull
	}
	s.UpdatedAt = now
	return cloneSession(s), nil
}

// RemoveParticipant unregisters userID if the session has not started
func (m *MemoryStore) RemoveParticipant(_ context.Context, sessionID, userID string, now time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", sessionID, models.ErrNotFound)
	}
	if !slices.Contains(DueStatuses, s.Status) || !s.HasParticipant(userID) {
		return nil, ErrConditionFailed
	}
	s.ParticipantCount--
	s.ParticipantIDs = slices.DeleteFunc(s.ParticipantIDs, func(id string) bool { return id == userID })
	delete(s.Participants, userID)
	s.Status = models.SessionStatusScheduled
	s.UpdatedAt = now
	return cloneSession(s), nil
}

// UpdateSession applies update when the stored status equals expected
func (m *MemoryStore) UpdateSession(_ context.Context, id string, expected models.SessionStatus, update models.SessionUpdate, now time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	if s.Status != expected {
		return nil, ErrConditionFailed
	}
	update.Apply(s, now)
	return cloneSession(s), nil
}

// FindAvailableSessions lists future scheduled sessions sharing an interest
func (m *MemoryStore) FindAvailableSessions(_ context.Context, interests []string, now time.Time, limit int) ([]models.Session, error) {
	return m.find(limit, func(s *models.Session) bool {
		if s.Status != models.SessionStatusScheduled || !s.ScheduledAt.After(now) {
			return false
		}
		if len(interests) == 0 {
			return true
		}
		return slices.ContainsFunc(s.TargetInterests, func(i string) bool { return slices.Contains(interests, i) })
	}), nil
}

// FindSessionsForUser lists sessions userID joined whose status is in statuses
func (m *MemoryStore) FindSessionsForUser(_ context.Context, userID string, statuses []models.SessionStatus, limit int) ([]models.Session, error) {
	return m.find(limit, func(s *models.Session) bool {
		return slices.Contains(statuses, s.Status) && s.HasParticipant(userID)
	}), nil
}

// FindDueSessions lists not-yet-started sessions whose scheduled time has passed
func (m *MemoryStore) FindDueSessions(_ context.Context, now time.Time, limit int) ([]models.Session, error) {
	return m.find(limit, func(s *models.Session) bool {
		return slices.Contains(DueStatuses, s.Status) && !s.ScheduledAt.After(now)
	}), nil
}

// FindInProgressSessions lists running sessions
func (m *MemoryStore) FindInProgressSessions(_ context.Context, limit int) ([]models.Session, error) {
	return m.find(limit, func(s *models.Session) bool {
		return s.Status == models.SessionStatusInProgress
	}), nil
}

func (m *MemoryStore) find(limit int, match func(*models.Session) bool) []models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Session
	for _, s := range m.sessions {
		if match(s) {
			out = append(out, *cloneSession(s))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ScheduledAt.Equal(out[j].ScheduledAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].ScheduledAt.Before(out[j].ScheduledAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// CreateFeedback stores f unless the (user, session, partner) triple exists
func (m *MemoryStore) CreateFeedback(_ context.Context, f *models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.feedback {
		if existing.UserID == f.UserID && existing.SessionID == f.SessionID && existing.PartnerID == f.PartnerID {
			return models.ErrDuplicateFeedback
		}
	}
	m.feedback = append(m.feedback, *f)
	return nil
}

// ListFeedback returns what userID submitted for sessionID in submission order
func (m *MemoryStore) ListFeedback(_ context.Context, userID, sessionID string) ([]models.Feedback, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Feedback
	for _, f := range m.feedback {
		if f.UserID == userID && f.SessionID == sessionID {
			out = append(out, f)
		}
	}
	return out, nil
}

func cloneSession(s *models.Session) *models.Session {
	c := *s
	c.TargetInterests = slices.Clone(s.TargetInterests)
	c.ParticipantIDs = slices.Clone(s.ParticipantIDs)
	c.Participants = maps.Clone(s.Participants)
	c.Pairings = slices.Clone(s.Pairings)
	if s.RoundStartedAt != nil {
		t := *s.RoundStartedAt
		c.RoundStartedAt = &t
	}
	return &c
}
