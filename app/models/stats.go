package models

// Counter names reported by GET /api/v1/stats
const (
	StatSessionsCreated   = "sessions_created"
	StatRegistrations     = "registrations"
	StatPairingsGenerated = "pairings_generated"
	StatFeedbackSubmitted = "feedback_submitted"
)

// StatNames lists every counter in display order
var StatNames = []string{
	StatSessionsCreated,
	StatRegistrations,
	StatPairingsGenerated,
	StatFeedbackSubmitted,
}
