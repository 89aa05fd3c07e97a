package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"speeddating/app/models"
	"speeddating/app/repository"
)

// maxJoinAttempts bounds how often a join is retried after losing a write race it could still win
const maxJoinAttempts = 3

// RegistrationService adds and removes session participants
type RegistrationService struct {
	sessions repository.SessionRepository
	users    repository.UserRepository
	notifier SessionNotifier
	stats    StatsRecorder
	now      func() time.Time
}

// NewRegistrationService creates the registration manager
func NewRegistrationService(sessions repository.SessionRepository, users repository.UserRepository, notifier SessionNotifier, stats StatsRecorder) *RegistrationService {
	return &RegistrationService{
		sessions: sessions,
		users:    users,
		notifier: notifier,
		stats:    stats,
		now:      time.Now,
	}
}

// checkJoinable returns the error a join against s would fail with, or nil
func checkJoinable(s *models.Session) error {
	switch {
	case s.Status == models.SessionStatusFull:
		return models.ErrCapacityReached
	case !s.Status.AcceptsRegistrations():
		return models.NewStateError("join session", s.Status)
	case s.IsFull():
		return models.ErrCapacityReached
	}
	return nil
}

// Register adds userID to the session. Joining twice is a no-op success.
func (r *RegistrationService) Register(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	current, err := r.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if current.HasParticipant(userID) {
		return current, nil
	}
	if err := checkJoinable(current); err != nil {
		return nil, err
	}

	profile, err := r.users.GetUserProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	if profile.IsBlocked() {
		slog.Warn("blocked user tried to register", "session_id", sessionID, "user_id", userID)
		return nil, models.ErrForbidden
	}

	for range maxJoinAttempts {
		now := r.now()
		updated, err := r.sessions.AddParticipant(ctx, sessionID, profile.Snapshot(now), now)
		if err == nil {
			r.stats.Add(ctx, models.StatRegistrations, 1)
			slog.Info("user registered for session", "session_id", sessionID, "user_id", userID,
				"participants", updated.ParticipantCount, "status", updated.Status)
			r.notifier.NotifySession(models.EventSessionUpdated, updated)
			return updated, nil
		}
		if !errors.Is(err, repository.ErrConditionFailed) {
			return nil, err
		}

		current, err = r.sessions.GetSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if current.HasParticipant(userID) {
			return current, nil
		}
		if err := checkJoinable(current); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("failed to register for session %s: too much contention", sessionID)
}

// Leave removes userID from a session that has not started. The creator cannot leave.
func (r *RegistrationService) Leave(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	current, err := r.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if err := checkLeavable(current, userID); err != nil {
		return nil, err
	}

	updated, err := r.sessions.RemoveParticipant(ctx, sessionID, userID, r.now())
	if errors.Is(err, repository.ErrConditionFailed) {
		latest, getErr := r.sessions.GetSession(ctx, sessionID)
		if getErr != nil {
			return nil, getErr
		}
		if err := checkLeavable(latest, userID); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("failed to leave session %s: %w", sessionID, err)
	}
	if err != nil {
		return nil, err
	}

	slog.Info("user left session", "session_id", sessionID, "user_id", userID, "participants", updated.ParticipantCount)
	r.notifier.NotifySession(models.EventSessionUpdated, updated)
	return updated, nil
}

func checkLeavable(s *models.Session, userID string) error {
	if !s.HasParticipant(userID) {
		return models.ErrNotParticipant
	}
	if s.CreatorID == userID {
		return fmt.Errorf("creator cannot leave, cancel the session instead: %w", models.ErrForbidden)
	}
	if !slices.Contains(repository.DueStatuses, s.Status) {
		return models.NewStateError("leave session", s.Status)
	}
	return nil
}
