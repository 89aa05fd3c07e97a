package services

import "speeddating/app/models"

// SessionNotifier pushes session state changes to clients watching the session
type SessionNotifier interface {
	NotifySession(event string, s *models.Session)
}

// NoopNotifier drops every event
type NoopNotifier struct{}

func (NoopNotifier) NotifySession(string, *models.Session) {}
