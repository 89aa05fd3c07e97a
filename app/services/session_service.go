package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"speeddating/app/models"
	"speeddating/app/repository"
)

// Cancel reasons stored on the session
const (
	CancelReasonInsufficient = "insufficient participants"
	CancelReasonByCreator    = "cancelled by creator"
	CancelReasonByRequest    = "cancelled"
)

// SessionService drives session status transitions, round advancement and session queries
type SessionService struct {
	sessions    repository.SessionRepository
	users       repository.UserRepository
	matchmaking *MatchmakingService
	locker      SessionLocker
	notifier    SessionNotifier
	stats       StatsRecorder
	now         func() time.Time
	newID       func() string
}

// NewSessionService creates the lifecycle controller
func NewSessionService(
	sessions repository.SessionRepository,
	users repository.UserRepository,
	matchmaking *MatchmakingService,
	locker SessionLocker,
	notifier SessionNotifier,
	stats StatsRecorder,
) *SessionService {
	return &SessionService{
		sessions:    sessions,
		users:       users,
		matchmaking: matchmaking,
		locker:      locker,
		notifier:    notifier,
		stats:       stats,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// NormalizeInterests trims every interest, drops blanks and duplicates, keeping first-seen order
func NormalizeInterests(raw []string) []string {
	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, i := range raw {
		i = strings.TrimSpace(i)
		if i == "" || seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	return out
}

// ValidateCreateSessionRequest normalizes req in place and rejects it if malformed
func ValidateCreateSessionRequest(req *models.CreateSessionRequest, now time.Time) error {
	req.Interests = NormalizeInterests(req.Interests)
	if len(req.Interests) == 0 {
		return models.NewValidationError("interests", "at least one interest is required")
	}
	if req.ScheduledAt.IsZero() {
		return models.NewValidationError("scheduled_at", "is required")
	}
	if !req.ScheduledAt.After(now) {
		return models.NewValidationError("scheduled_at", "must be in the future")
	}
	if req.MaxParticipants == 0 {
		req.MaxParticipants = models.DefaultMaxParticipants
	}
	if req.MaxParticipants < models.MinParticipants || req.MaxParticipants > models.MaxParticipants {
		return models.NewValidationError("max_participants",
			fmt.Sprintf("must be between %d and %d", models.MinParticipants, models.MaxParticipants))
	}
	if req.DurationPerRoundMinutes == 0 {
		req.DurationPerRoundMinutes = models.DefaultRoundDurationMinutes
	}
	if req.DurationPerRoundMinutes < 1 || req.DurationPerRoundMinutes > models.MaxRoundDurationMinutes {
		return models.NewValidationError("duration_per_round_minutes",
			fmt.Sprintf("must be between 1 and %d", models.MaxRoundDurationMinutes))
	}
	return nil
}

// CreateSession opens a session with the creator registered as its first participant
func (s *SessionService) CreateSession(ctx context.Context, creatorID string, req models.CreateSessionRequest) (*models.Session, error) {
	now := s.now()
	if err := ValidateCreateSessionRequest(&req, now); err != nil {
		return nil, err
	}
	profile, err := s.users.GetUserProfile(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if profile.IsBlocked() {
		return nil, models.ErrForbidden
	}

	session := &models.Session{
		ID:                   s.newID(),
		CreatorID:            creatorID,
		ScheduledAt:          req.ScheduledAt.UTC(),
		TargetInterests:      req.Interests,
		ParticipantIDs:       []string{creatorID},
		Participants:         map[string]models.Participant{creatorID: profile.Snapshot(now)},
		ParticipantCount:     1,
		MaxParticipants:      req.MaxParticipants,
		Status:               models.SessionStatusScheduled,
		TotalRounds:          models.InitialTotalRounds(req.MaxParticipants),
		RoundDurationMinutes: req.DurationPerRoundMinutes,
		Pairings:             []models.Pairing{},
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.sessions.CreateSession(ctx, session); err != nil {
		return nil, err
	}

	s.stats.Add(ctx, models.StatSessionsCreated, 1)
	slog.Info("session created", "session_id", session.ID, "user_id", creatorID, "scheduled_at", session.ScheduledAt)
	return session, nil
}

// GetSession returns one session
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.sessions.GetSession(ctx, sessionID)
}

// FindAvailableSessions lists joinable future sessions sharing one of interests, soonest first
func (s *SessionService) FindAvailableSessions(ctx context.Context, interests []string) ([]models.Session, error) {
	return s.sessions.FindAvailableSessions(ctx, NormalizeInterests(interests), s.now(), repository.SessionQueryLimit)
}

// GetUpcomingSessionsForUser lists sessions userID joined that have not finished
func (s *SessionService) GetUpcomingSessionsForUser(ctx context.Context, userID string) ([]models.Session, error) {
	return s.sessions.FindSessionsForUser(ctx, userID, repository.UpcomingStatuses, repository.SessionQueryLimit)
}

// UpdateSessionStatus applies an explicit status change requested by userID, who must be
// the session's creator. Only in-progress, completed and cancelled may be requested;
// scheduled and full are derived from registrations.
func (s *SessionService) UpdateSessionStatus(ctx context.Context, userID, sessionID, rawStatus string) (*models.Session, error) {
	target, ok := models.ParseSessionStatus(rawStatus)
	if !ok {
		return nil, models.NewValidationError("status", fmt.Sprintf("unknown status %q", rawStatus))
	}

	switch target {
	case models.SessionStatusInProgress:
		return s.withCreatorLock(ctx, userID, sessionID, func(current *models.Session) (*models.Session, error) {
			return s.start(ctx, current)
		})
	case models.SessionStatusCompleted:
		return s.withCreatorLock(ctx, userID, sessionID, func(current *models.Session) (*models.Session, error) {
			return s.complete(ctx, current, "complete session")
		})
	case models.SessionStatusCancelled:
		return s.withCreatorLock(ctx, userID, sessionID, func(current *models.Session) (*models.Session, error) {
			return s.cancel(ctx, current, CancelReasonByRequest, "cancel session")
		})
	}
	return nil, models.NewValidationError("status", fmt.Sprintf("status %s cannot be set directly", target))
}

// StartSession moves a scheduled or full session to in-progress and runs matchmaking.
// A session with fewer than two participants is cancelled instead. The scheduler calls
// it without a requesting user.
func (s *SessionService) StartSession(ctx context.Context, sessionID string) (*models.Session, error) {
	return s.withLock(ctx, sessionID, func(current *models.Session) (*models.Session, error) {
		return s.start(ctx, current)
	})
}

// AdvanceRound moves an in-progress session to its next round on behalf of its creator,
// completing it after the last one
func (s *SessionService) AdvanceRound(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	return s.withCreatorLock(ctx, userID, sessionID, func(current *models.Session) (*models.Session, error) {
		return s.advance(ctx, current)
	})
}

// AdvanceRoundIfExpired advances the session only when its current round has run out.
// It reports whether the session moved.
func (s *SessionService) AdvanceRoundIfExpired(ctx context.Context, sessionID string) (bool, error) {
	var advanced bool
	_, err := s.withLock(ctx, sessionID, func(current *models.Session) (*models.Session, error) {
		if !current.RoundExpired(s.now()) {
			return current, nil
		}
		advanced = true
		return s.advance(ctx, current)
	})
	return advanced, err
}

// CancelSession lets the creator call off a session that has not started
func (s *SessionService) CancelSession(ctx context.Context, userID, sessionID string) (*models.Session, error) {
	return s.withCreatorLock(ctx, userID, sessionID, func(current *models.Session) (*models.Session, error) {
		return s.cancel(ctx, current, CancelReasonByCreator, "cancel session")
	})
}

// StartDueSessions starts every session whose scheduled time has passed and returns how
// many were started and how many were cancelled for lack of participants
func (s *SessionService) StartDueSessions(ctx context.Context) (started, cancelled int, err error) {
	due, err := s.sessions.FindDueSessions(ctx, s.now(), repository.SessionQueryLimit)
	if err != nil {
		return 0, 0, err
	}
	for _, d := range due {
		session, err := s.StartSession(ctx, d.ID)
		if err != nil {
			slog.Error("failed to start due session", "session_id", d.ID, "error", err)
			continue
		}
		if session.Status == models.SessionStatusCancelled {
			cancelled++
		} else {
			started++
		}
	}
	return started, cancelled, nil
}

// AdvanceExpiredRounds advances every in-progress session whose round time is up
func (s *SessionService) AdvanceExpiredRounds(ctx context.Context) (int, error) {
	running, err := s.sessions.FindInProgressSessions(ctx, repository.SessionQueryLimit)
	if err != nil {
		return 0, err
	}
	advanced := 0
	now := s.now()
	for _, r := range running {
		if !r.RoundExpired(now) {
			continue
		}
		moved, err := s.AdvanceRoundIfExpired(ctx, r.ID)
		if err != nil {
			slog.Error("failed to advance round", "session_id", r.ID, "error", err)
			continue
		}
		if moved {
			advanced++
		}
	}
	return advanced, nil
}

func (s *SessionService) start(ctx context.Context, current *models.Session) (*models.Session, error) {
	if current.Status.HasStarted() || !current.Status.CanTransitionTo(models.SessionStatusInProgress) {
		return nil, models.NewStateError("start session", current.Status)
	}
	if current.ParticipantCount < models.MinParticipants {
		slog.Info("cancelling session without enough participants", "session_id", current.ID, "participants", current.ParticipantCount)
		return s.cancel(ctx, current, CancelReasonInsufficient, "start session")
	}

	status := models.SessionStatusInProgress
	round := 1
	if _, err := s.transition(ctx, current, "start session", models.SessionUpdate{Status: &status, CurrentRound: &round}); err != nil {
		return nil, err
	}
	if err := s.matchmaking.RunMatchmaking(ctx, current.ID); err != nil {
		return nil, err
	}
	slog.Info("session started", "session_id", current.ID, "participants", current.ParticipantCount)
	return s.sessions.GetSession(ctx, current.ID)
}

func (s *SessionService) advance(ctx context.Context, current *models.Session) (*models.Session, error) {
	if current.Status != models.SessionStatusInProgress {
		return nil, models.NewStateError("advance round", current.Status)
	}
	next := current.CurrentRound + 1
	if next > current.TotalRounds {
		return s.complete(ctx, current, "advance round")
	}

	now := s.now()
	updated, err := s.transition(ctx, current, "advance round", models.SessionUpdate{CurrentRound: &next, RoundStartedAt: &now})
	if err != nil {
		return nil, err
	}
	slog.Info("session round advanced", "session_id", current.ID, "round", next, "total_rounds", current.TotalRounds)
	s.notifier.NotifySession(models.EventSessionRound, updated)
	return updated, nil
}

func (s *SessionService) complete(ctx context.Context, current *models.Session, op string) (*models.Session, error) {
	status := models.SessionStatusCompleted
	updated, err := s.transition(ctx, current, op, models.SessionUpdate{Status: &status})
	if err != nil {
		return nil, err
	}
	slog.Info("session completed", "session_id", current.ID)
	s.notifier.NotifySession(models.EventSessionCompleted, updated)
	return updated, nil
}

func (s *SessionService) cancel(ctx context.Context, current *models.Session, reason, op string) (*models.Session, error) {
	status := models.SessionStatusCancelled
	updated, err := s.transition(ctx, current, op, models.SessionUpdate{Status: &status, CancelReason: &reason})
	if err != nil {
		return nil, err
	}
	slog.Info("session cancelled", "session_id", current.ID, "reason", reason)
	s.notifier.NotifySession(models.EventSessionCancelled, updated)
	return updated, nil
}

// transition validates the move against the status table and writes it with a
// compare-and-set on the status the caller observed
func (s *SessionService) transition(ctx context.Context, current *models.Session, op string, update models.SessionUpdate) (*models.Session, error) {
	target := current.Status
	if update.Status != nil {
		target = *update.Status
	}
	if !current.Status.CanTransitionTo(target) {
		return nil, models.NewStateError(op, current.Status)
	}

	updated, err := s.sessions.UpdateSession(ctx, current.ID, current.Status, update, s.now())
	if errors.Is(err, repository.ErrConditionFailed) {
		latest, getErr := s.sessions.GetSession(ctx, current.ID)
		if getErr != nil {
			return nil, getErr
		}
		return nil, models.NewStateError(op, latest.Status)
	}
	return updated, err
}

func (s *SessionService) withLock(ctx context.Context, sessionID string, fn func(*models.Session) (*models.Session, error)) (*models.Session, error) {
	unlock, err := s.locker.Lock(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	current, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return fn(current)
}

// withCreatorLock is withLock for operations reserved to the session's creator
func (s *SessionService) withCreatorLock(ctx context.Context, userID, sessionID string, fn func(*models.Session) (*models.Session, error)) (*models.Session, error) {
	return s.withLock(ctx, sessionID, func(current *models.Session) (*models.Session, error) {
		if current.CreatorID != userID {
			return nil, models.ErrForbidden
		}
		return fn(current)
	})
}
