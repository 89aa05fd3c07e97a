// Package repository is the persistence boundary for sessions, feedback and user profiles.
package repository

import (
	"context"
	"errors"
	"time"

	"speeddating/app/models"
)

// ErrConditionFailed is returned when a conditional write found the document in an
// unexpected state. Callers re-read the document to decide what happened.
var ErrConditionFailed = errors.New("conditional update did not match")

// Collection and table names
const (
	SessionsCollection = "speed_dating_sessions"
	FeedbackCollection = "speed_dating_feedback"
	UsersCollection    = "users"
	FeedbackTable      = "session_feedback"
)

// SessionQueryLimit caps every session listing
const SessionQueryLimit = 50

// SessionRepository persists speed-dating sessions
type SessionRepository interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSession(ctx context.Context, id string) (*models.Session, error)
	// AddParticipant registers p only while the session is scheduled, below capacity and
	// p is not yet a participant. It derives the full status in the same write.
	AddParticipant(ctx context.Context, sessionID string, p models.Participant, now time.Time) (*models.Session, error)
	// RemoveParticipant unregisters userID while the session is scheduled or full.
	RemoveParticipant(ctx context.Context, sessionID, userID string, now time.Time) (*models.Session, error)
	// UpdateSession applies update only if the session currently has status expected.
	UpdateSession(ctx context.Context, id string, expected models.SessionStatus, update models.SessionUpdate, now time.Time) (*models.Session, error)
	FindAvailableSessions(ctx context.Context, interests []string, now time.Time, limit int) ([]models.Session, error)
	FindSessionsForUser(ctx context.Context, userID string, statuses []models.SessionStatus, limit int) ([]models.Session, error)
	FindDueSessions(ctx context.Context, now time.Time, limit int) ([]models.Session, error)
	FindInProgressSessions(ctx context.Context, limit int) ([]models.Session, error)
}

// FeedbackRepository persists post-session ratings
type FeedbackRepository interface {
	// CreateFeedback stores f, returning models.ErrDuplicateFeedback when the
	// (user, session, partner) triple already exists.
	CreateFeedback(ctx context.Context, f *models.Feedback) error
	ListFeedback(ctx context.Context, userID, sessionID string) ([]models.Feedback, error)
}

// UserRepository reads the profiles participant snapshots are taken from
type UserRepository interface {
	GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error)
}

// UpcomingStatuses are the statuses listed as a user's upcoming sessions
var UpcomingStatuses = []models.SessionStatus{
	models.SessionStatusScheduled,
	models.SessionStatusFull,
	models.SessionStatusInProgress,
}

// DueStatuses are the statuses a session may be started from
var DueStatuses = []models.SessionStatus{
	models.SessionStatusScheduled,
	models.SessionStatusFull,
}
