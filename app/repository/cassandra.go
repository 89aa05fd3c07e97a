package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/gocql/gocql"

	"speeddating/app/models"
)

// feedbackTableDDL is applied by Migrate; the partition holds everything one user wrote for one session
var feedbackTableDDL = []string{
	`CREATE TABLE IF NOT EXISTS session_feedback (
		session_id text,
		user_id text,
		partner_id text,
		id text,
		partner_name text,
		rating text,
		comment text,
		created_at timestamp,
		PRIMARY KEY ((session_id, user_id), partner_id)
	)`,
}

// CassandraFeedbackRepository stores feedback in Cassandra. Uniqueness of
// (user, session, partner) comes from the primary key plus a lightweight transaction.
type CassandraFeedbackRepository struct {
	session *gocql.Session
}

// NewCassandraFeedbackRepository creates a feedback repository over session
func NewCassandraFeedbackRepository(session *gocql.Session) *CassandraFeedbackRepository {
	return &CassandraFeedbackRepository{session: session}
}

// Migrate creates the feedback table if it does not exist
func (r *CassandraFeedbackRepository) Migrate(ctx context.Context) error {
	for _, stmt := range feedbackTableDDL {
		if err := r.session.Query(stmt).WithContext(ctx).Exec(); err != nil {
			return fmt.Errorf("failed to migrate %s: %w", FeedbackTable, err)
		}
	}
	return nil
}

// CreateFeedback inserts f unless a row for the same partner already exists
func (r *CassandraFeedbackRepository) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	existing := map[string]interface{}{}
	applied, err := r.session.Query(
		`INSERT INTO session_feedback (session_id, user_id, partner_id, id, partner_name, rating, comment, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`,
		f.SessionID, f.UserID, f.PartnerID, f.ID, f.PartnerName, string(f.Rating), f.Comment, f.CreatedAt,
	).WithContext(ctx).SerialConsistency(gocql.LocalSerial).MapScanCAS(existing)
	if err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	if !applied {
		return models.ErrDuplicateFeedback
	}
	return nil
}

// ListFeedback returns what userID submitted for sessionID, oldest first
func (r *CassandraFeedbackRepository) ListFeedback(ctx context.Context, userID, sessionID string) ([]models.Feedback, error) {
	iter := r.session.Query(
		`SELECT id, partner_id, partner_name, rating, comment, created_at
		FROM session_feedback WHERE session_id = ? AND user_id = ?`,
		sessionID, userID,
	).WithContext(ctx).Iter()

	var out []models.Feedback
	var f models.Feedback
	var rating string
	for iter.Scan(&f.ID, &f.PartnerID, &f.PartnerName, &rating, &f.Comment, &f.CreatedAt) {
		f.UserID = userID
		f.SessionID = sessionID
		f.Rating = models.Rating(rating)
		out = append(out, f)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
