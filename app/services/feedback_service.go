package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"speeddating/app/models"
	"speeddating/app/repository"
)

// FeedbackService records participants' ratings of the partners they met
type FeedbackService struct {
	sessions repository.SessionRepository
	feedback repository.FeedbackRepository
	stats    StatsRecorder
	now      func() time.Time
	newID    func() string
}

// NewFeedbackService creates the feedback collector
func NewFeedbackService(sessions repository.SessionRepository, feedback repository.FeedbackRepository, stats StatsRecorder) *FeedbackService {
	return &FeedbackService{
		sessions: sessions,
		feedback: feedback,
		stats:    stats,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// SubmitFeedback stores userID's rating of one partner from a completed session
func (f *FeedbackService) SubmitFeedback(ctx context.Context, userID, sessionID string, req models.SubmitFeedbackRequest) (*models.Feedback, error) {
	partnerID := strings.TrimSpace(req.PartnerID)
	if partnerID == "" {
		return nil, models.NewValidationError("partner_id", "is required")
	}
	if partnerID == userID {
		return nil, models.NewValidationError("partner_id", "cannot rate yourself")
	}
	rating := models.Rating(strings.ToLower(strings.TrimSpace(req.Rating)))
	if !rating.Valid() {
		return nil, models.NewValidationError("rating", "must be positive, neutral, negative or empty")
	}

	s, err := f.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != models.SessionStatusCompleted {
		return nil, models.NewStateError("submit feedback", s.Status)
	}
	if !s.HasParticipant(userID) {
		return nil, models.ErrNotParticipant
	}
	if !s.HasParticipant(partnerID) {
		return nil, models.NewValidationError("partner_id", "is not a participant of this session")
	}

	partnerName := strings.TrimSpace(req.PartnerName)
	if partnerName == "" {
		partnerName = s.Participants[partnerID].Name
	}
	fb := &models.Feedback{
		ID:          f.newID(),
		UserID:      userID,
		SessionID:   sessionID,
		PartnerID:   partnerID,
		PartnerName: partnerName,
		Rating:      rating,
		Comment:     strings.TrimSpace(req.Comment),
		CreatedAt:   f.now(),
	}
	if err := f.feedback.CreateFeedback(ctx, fb); err != nil {
		return nil, err
	}

	f.stats.Add(ctx, models.StatFeedbackSubmitted, 1)
	slog.Info("feedback submitted", "session_id", sessionID, "user_id", userID, "partner_id", partnerID)
	return fb, nil
}

// GetFeedbackForSessionByUser returns everything userID submitted for sessionID
func (f *FeedbackService) GetFeedbackForSessionByUser(ctx context.Context, userID, sessionID string) (*models.FeedbackSummary, error) {
	list, err := f.feedback.ListFeedback(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []models.Feedback{}
	}
	return &models.FeedbackSummary{Submitted: len(list) > 0, Feedback: list}, nil
}
