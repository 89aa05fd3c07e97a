package models

import "time"

// Rating is a participant's verdict on one partner
type Rating string

// Rating constants; RatingUnset means the participant skipped the verdict
const (
	RatingUnset    Rating = ""
	RatingPositive Rating = "positive"
	RatingNeutral  Rating = "neutral"
	RatingNegative Rating = "negative"
)

// Valid reports whether r is one of the known ratings
func (r Rating) Valid() bool {
	switch r {
	case RatingUnset, RatingPositive, RatingNeutral, RatingNegative:
		return true
	}
	return false
}

// Feedback is one participant's rating of one partner met in a session
type Feedback struct {
	ID          string    `json:"id" bson:"_id"`
	UserID      string    `json:"user_id" bson:"user_id"`
	SessionID   string    `json:"session_id" bson:"session_id"`
	PartnerID   string    `json:"partner_id" bson:"partner_id"`
	PartnerName string    `json:"partner_name" bson:"partner_name"`
	Rating      Rating    `json:"rating" bson:"rating"`
	Comment     string    `json:"comment,omitempty" bson:"comment,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// SubmitFeedbackRequest is the payload for rating a partner
type SubmitFeedbackRequest struct {
	PartnerID   string `json:"partner_id"`
	PartnerName string `json:"partner_name"`
	Rating      string `json:"rating"`
	Comment     string `json:"comment,omitempty"`
}

// FeedbackSummary is what a participant sees about their own feedback for a session
type FeedbackSummary struct {
	Submitted bool       `json:"submitted"`
	Feedback  []Feedback `json:"feedback"`
}
