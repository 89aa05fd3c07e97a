package models

import (
	"slices"
	"time"
)

// SessionStatus is the lifecycle state of a speed-dating session
type SessionStatus string

// SessionStatus constants
const (
	SessionStatusScheduled  SessionStatus = "scheduled"
	SessionStatusFull       SessionStatus = "full"
	SessionStatusInProgress SessionStatus = "in-progress"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusCancelled  SessionStatus = "cancelled"
)

// Session limits and defaults
const (
	MinParticipants             = 2
	MaxParticipants             = 20
	DefaultMaxParticipants      = 10
	MaxRounds                   = 3
	DefaultRoundDurationMinutes = 5
	MaxRoundDurationMinutes     = 60
)

var sessionTransitions = map[SessionStatus][]SessionStatus{
	SessionStatusScheduled:  {SessionStatusFull, SessionStatusInProgress, SessionStatusCancelled},
	SessionStatusFull:       {SessionStatusScheduled, SessionStatusInProgress, SessionStatusCancelled},
	SessionStatusInProgress: {SessionStatusInProgress, SessionStatusCompleted},
}

// ParseSessionStatus converts a raw value into a known status
func ParseSessionStatus(raw string) (SessionStatus, bool) {
	s := SessionStatus(raw)
	switch s {
	case SessionStatusScheduled, SessionStatusFull, SessionStatusInProgress, SessionStatusCompleted, SessionStatusCancelled:
		return s, true
	}
	return "", false
}

// CanTransitionTo reports whether the lifecycle allows moving from s to next
func (s SessionStatus) CanTransitionTo(next SessionStatus) bool {
	return slices.Contains(sessionTransitions[s], next)
}

// IsTerminal reports whether no further transitions are possible
func (s SessionStatus) IsTerminal() bool {
	return len(sessionTransitions[s]) == 0
}

// AcceptsRegistrations reports whether users may still join
func (s SessionStatus) AcceptsRegistrations() bool {
	return s == SessionStatusScheduled
}

// HasStarted reports whether the session is past its registration phase
func (s SessionStatus) HasStarted() bool {
	return s == SessionStatusInProgress || s == SessionStatusCompleted
}

// Participant is the profile snapshot taken when a user joins a session
type Participant struct {
	UserID    string    `json:"user_id" bson:"user_id"`
	Name      string    `json:"name" bson:"name"`
	Picture   string    `json:"picture,omitempty" bson:"picture,omitempty"`
	Interests []string  `json:"interests,omitempty" bson:"interests,omitempty"`
	JoinedAt  time.Time `json:"joined_at" bson:"joined_at"`
}

// Session represents one scheduled speed-dating event
type Session struct {
	ID                   string                 `json:"id" bson:"_id"`
	CreatorID            string                 `json:"creator_id" bson:"creator_id"`
	ScheduledAt          time.Time              `json:"scheduled_at" bson:"scheduled_at"`
	TargetInterests      []string               `json:"target_interests" bson:"target_interests"`
	ParticipantIDs       []string               `json:"participant_ids" bson:"participant_ids"`
	Participants         map[string]Participant `json:"participants" bson:"participants"`
	ParticipantCount     int                    `json:"participant_count" bson:"participant_count"`
	MaxParticipants      int                    `json:"max_participants" bson:"max_participants"`
	Status               SessionStatus          `json:"status" bson:"status"`
	CurrentRound         int                    `json:"current_round" bson:"current_round"`
	TotalRounds          int                    `json:"total_rounds" bson:"total_rounds"`
	RoundDurationMinutes int                    `json:"round_duration_minutes" bson:"round_duration_minutes"`
	RoundStartedAt       *time.Time             `json:"round_started_at,omitempty" bson:"round_started_at,omitempty"`
	Pairings             []Pairing              `json:"pairings" bson:"pairings"`
	CancelReason         string                 `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CreatedAt            time.Time              `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time              `json:"updated_at" bson:"updated_at"`
}

// HasParticipant reports whether userID is registered for the session
func (s *Session) HasParticipant(userID string) bool {
	return slices.Contains(s.ParticipantIDs, userID)
}

// IsFull reports whether no seats remain
func (s *Session) IsFull() bool {
	return s.ParticipantCount >= s.MaxParticipants
}

// RoundDuration returns the configured length of one round
func (s *Session) RoundDuration() time.Duration {
	return time.Duration(s.RoundDurationMinutes) * time.Minute
}

// RoundExpired reports whether the current round has run for its full duration at now
func (s *Session) RoundExpired(now time.Time) bool {
	if s.Status != SessionStatusInProgress || s.RoundStartedAt == nil {
		return false
	}
	return !now.Before(s.RoundStartedAt.Add(s.RoundDuration()))
}

// PairingsForRound returns the pairings scheduled for round
func (s *Session) PairingsForRound(round int) []Pairing {
	var out []Pairing
	for _, p := range s.Pairings {
		if p.Round == round {
			out = append(out, p)
		}
	}
	return out
}

// PartnersOf returns the ids of everyone userID was paired with in the session
func (s *Session) PartnersOf(userID string) []string {
	var out []string
	for _, p := range s.Pairings {
		if other, ok := p.PartnerOf(userID); ok && !slices.Contains(out, other) {
			out = append(out, other)
		}
	}
	return out
}

// InitialTotalRounds is the round estimate stored at creation; matchmaking replaces it
func InitialTotalRounds(maxParticipants int) int {
	return min(MaxRounds, maxParticipants/2)
}

// SessionUpdate lists the lifecycle fields a transition may overwrite
type SessionUpdate struct {
	Status         *SessionStatus
	CurrentRound   *int
	TotalRounds    *int
	RoundStartedAt *time.Time
	Pairings       []Pairing
	CancelReason   *string
}

// Apply copies the set fields of u onto s
func (u SessionUpdate) Apply(s *Session, now time.Time) {
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.CurrentRound != nil {
		s.CurrentRound = *u.CurrentRound
	}
	if u.TotalRounds != nil {
		s.TotalRounds = *u.TotalRounds
	}
	if u.RoundStartedAt != nil {
		t := *u.RoundStartedAt
		s.RoundStartedAt = &t
	}
	if u.Pairings != nil {
		s.Pairings = slices.Clone(u.Pairings)
	}
	if u.CancelReason != nil {
		s.CancelReason = *u.CancelReason
	}
	s.UpdatedAt = now
}

// CreateSessionRequest is the payload for opening a new session
type CreateSessionRequest struct {
	Interests               []string  `json:"interests"`
	ScheduledAt             time.Time `json:"scheduled_at"`
	MaxParticipants         int       `json:"max_participants,omitempty"`
	DurationPerRoundMinutes int       `json:"duration_per_round_minutes,omitempty"`
}

// UpdateSessionStatusRequest is the payload for an explicit status change
type UpdateSessionStatusRequest struct {
	Status string `json:"status"`
}

// UserProfile is the read-only profile record a participant snapshot is taken from
type UserProfile struct {
	ID        string   `json:"id" bson:"_id"`
	Name      string   `json:"name" bson:"name"`
	Picture   string   `json:"picture,omitempty" bson:"picture,omitempty"`
	Interests []string `json:"interests,omitempty" bson:"interests,omitempty"`
	// BlockedReason is set by moderation; a blocked user cannot create or join sessions
	BlockedReason string `json:"blocked_reason,omitempty" bson:"blocked_reason,omitempty"`
}

// IsBlocked reports whether moderation has blocked the user
func (p UserProfile) IsBlocked() bool {
	return p.BlockedReason != ""
}

// Snapshot builds the participant entry stored on a session
func (p UserProfile) Snapshot(joinedAt time.Time) Participant {
	return Participant{
		UserID:    p.ID,
		Name:      p.Name,
		Picture:   p.Picture,
		Interests: slices.Clone(p.Interests),
		JoinedAt:  joinedAt,
	}
}
