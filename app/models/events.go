package models

import "time"

// Session event names pushed to socket.io clients
const (
	EventSessionUpdated   = "session:updated"
	EventSessionStarted   = "session:started"
	EventSessionRound     = "session:round"
	EventSessionCompleted = "session:completed"
	EventSessionCancelled = "session:cancelled"
)

// SessionEvent is the payload broadcast to everyone watching a session
type SessionEvent struct {
	Event        string        `json:"event"`
	SessionID    string        `json:"session_id"`
	Status       SessionStatus `json:"status"`
	CurrentRound int           `json:"current_round"`
	TotalRounds  int           `json:"total_rounds"`
	Participants int           `json:"participants"`
	Pairings     []Pairing     `json:"pairings,omitempty"`
	Timestamp    string        `json:"timestamp"`
}

// NewSessionEvent builds the event payload for s, attaching the current round's pairings
func NewSessionEvent(event string, s *Session) SessionEvent {
	return SessionEvent{
		Event:        event,
		SessionID:    s.ID,
		Status:       s.Status,
		CurrentRound: s.CurrentRound,
		TotalRounds:  s.TotalRounds,
		Participants: s.ParticipantCount,
		Pairings:     s.PairingsForRound(s.CurrentRound),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	}
}
