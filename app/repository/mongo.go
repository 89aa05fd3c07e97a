package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"speeddating/app/models"
)

// MongoRepository stores sessions, feedback and profiles in MongoDB collections
type MongoRepository struct {
	sessions *mongo.Collection
	feedback *mongo.Collection
	users    *mongo.Collection
}

// NewMongoRepository creates a repository over db
func NewMongoRepository(db *mongo.Database) *MongoRepository {
	return &MongoRepository{
		sessions: db.Collection(SessionsCollection),
		feedback: db.Collection(FeedbackCollection),
		users:    db.Collection(UsersCollection),
	}
}

// EnsureIndexes creates the indexes the queries below rely on
func (r *MongoRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "scheduled_at", Value: 1}}},
		{Keys: bson.D{{Key: "participant_ids", Value: 1}}},
		{Keys: bson.D{{Key: "target_interests", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create session indexes: %w", err)
	}
	_, err = r.feedback.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "session_id", Value: 1}, {Key: "partner_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("feedback_user_session_partner"),
	})
	if err != nil {
		return fmt.Errorf("failed to create feedback index: %w", err)
	}
	return nil
}

// CreateSession inserts a new session document
func (r *MongoRepository) CreateSession(ctx context.Context, s *models.Session) error {
	if _, err := r.sessions.InsertOne(ctx, s); err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	return nil
}

// GetSession loads one session by id
func (r *MongoRepository) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var s models.Session
	err := r.sessions.FindOne(ctx, bson.M{"_id": id}).Decode(&s)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("session %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	return &s, nil
}

// AddParticipant registers p with a single conditional pipeline update. The filter carries
// the capacity and status preconditions, so two concurrent joins cannot both take the last seat.
func (r *MongoRepository) AddParticipant(ctx context.Context, sessionID string, p models.Participant, now time.Time) (*models.Session, error) {
	filter := bson.M{
		"_id":             sessionID,
		"status":          models.SessionStatusScheduled,
		"participant_ids": bson.M{"$ne": p.UserID},
		"$expr":           bson.M{"$lt": bson.A{"$participant_count", "$max_participants"}},
	}
	entry := bson.M{"k": bson.M{"$literal": p.UserID}, "v": bson.M{"$literal": p}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "participant_count", Value: bson.M{"$add": bson.A{"$participant_count", 1}}},
			{Key: "participant_ids", Value: bson.M{"$concatArrays": bson.A{
				bson.M{"$ifNull": bson.A{"$participant_ids", bson.A{}}},
				bson.A{bson.M{"$literal": p.UserID}},
			}}},
			{Key: "participants", Value: bson.M{"$mergeObjects": bson.A{
				"$participants",
				bson.M{"$arrayToObject": bson.A{bson.A{entry}}},
			}}},
			{Key: "updated_at", Value: now},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "status", Value: bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$participant_count", "$max_participants"}},
				string(models.SessionStatusFull),
				string(models.SessionStatusScheduled),
			}}},
		}}},
	}
	return r.findOneAndUpdate(ctx, sessionID, filter, update)
}

// RemoveParticipant unregisters userID from a session that has not started
func (r *MongoRepository) RemoveParticipant(ctx context.Context, sessionID, userID string, now time.Time) (*models.Session, error) {
	filter := bson.M{
		"_id":             sessionID,
		"status":          bson.M{"$in": DueStatuses},
		"participant_ids": userID,
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "participant_count", Value: bson.M{"$subtract": bson.A{"$participant_count", 1}}},
			{Key: "participant_ids", Value: bson.M{"$filter": bson.M{
				"input": "$participant_ids",
				"cond":  bson.M{"$ne": bson.A{"$$this", bson.M{"$literal": userID}}},
			}}},
			{Key: "participants", Value: bson.M{"$arrayToObject": bson.M{"$filter": bson.M{
				"input": bson.M{"$objectToArray": "$participants"},
				"cond":  bson.M{"$ne": bson.A{"$$this.k", bson.M{"$literal": userID}}},
			}}}},
			{Key: "status", Value: bson.M{"$literal": string(models.SessionStatusScheduled)}},
			{Key: "updated_at", Value: now},
		}}},
	}
	return r.findOneAndUpdate(ctx, sessionID, filter, update)
}

// UpdateSession applies update if the stored status still equals expected
func (r *MongoRepository) UpdateSession(ctx context.Context, id string, expected models.SessionStatus, update models.SessionUpdate, now time.Time) (*models.Session, error) {
	set := bson.M{"updated_at": now}
	if update.Status != nil {
		set["status"] = *update.Status
	}
	if update.CurrentRound != nil {
		set["current_round"] = *update.CurrentRound
	}
	if update.TotalRounds != nil {
		set["total_rounds"] = *update.TotalRounds
	}
	if update.RoundStartedAt != nil {
		set["round_started_at"] = *update.RoundStartedAt
	}
	if update.Pairings != nil {
		set["pairings"] = update.Pairings
	}
	if update.CancelReason != nil {
		set["cancel_reason"] = *update.CancelReason
	}
	filter := bson.M{"_id": id, "status": expected}
	return r.findOneAndUpdate(ctx, id, filter, bson.M{"$set": set})
}

// FindAvailableSessions lists future scheduled sessions sharing one of interests
func (r *MongoRepository) FindAvailableSessions(ctx context.Context, interests []string, now time.Time, limit int) ([]models.Session, error) {
	filter := bson.M{
		"status":       models.SessionStatusScheduled,
		"scheduled_at": bson.M{"$gt": now},
	}
	if len(interests) > 0 {
		filter["target_interests"] = bson.M{"$in": interests}
	}
	return r.findSessions(ctx, filter, limit)
}

// FindSessionsForUser lists sessions userID joined with one of statuses
func (r *MongoRepository) FindSessionsForUser(ctx context.Context, userID string, statuses []models.SessionStatus, limit int) ([]models.Session, error) {
	return r.findSessions(ctx, bson.M{
		"participant_ids": userID,
		"status":          bson.M{"$in": statuses},
	}, limit)
}

// FindDueSessions lists sessions whose scheduled time has come but have not started
func (r *MongoRepository) FindDueSessions(ctx context.Context, now time.Time, limit int) ([]models.Session, error) {
	return r.findSessions(ctx, bson.M{
		"status":       bson.M{"$in": DueStatuses},
		"scheduled_at": bson.M{"$lte": now},
	}, limit)
}

// FindInProgressSessions lists running sessions
func (r *MongoRepository) FindInProgressSessions(ctx context.Context, limit int) ([]models.Session, error) {
	return r.findSessions(ctx, bson.M{"status": models.SessionStatusInProgress}, limit)
}

func (r *MongoRepository) findSessions(ctx context.Context, filter bson.M, limit int) ([]models.Session, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scheduled_at", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	cursor, err := r.sessions.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	var out []models.Session
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return out, nil
}

func (r *MongoRepository) findOneAndUpdate(ctx context.Context, id string, filter, update interface{}) (*models.Session, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var s models.Session
	err := r.sessions.FindOneAndUpdate(ctx, filter, update, opts).Decode(&s)
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update session %s: %w", id, err)
	}
	n, countErr := r.sessions.CountDocuments(ctx, bson.M{"_id": id}, options.Count().SetLimit(1))
	if countErr != nil {
		return nil, fmt.Errorf("failed to check session %s: %w", id, countErr)
	}
	if n == 0 {
		return nil, fmt.Errorf("session %s: %w", id, models.ErrNotFound)
	}
	return nil, ErrConditionFailed
}

// CreateFeedback inserts f; the unique index rejects a second rating of the same partner
func (r *MongoRepository) CreateFeedback(ctx context.Context, f *models.Feedback) error {
	if _, err := r.feedback.InsertOne(ctx, f); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return models.ErrDuplicateFeedback
		}
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// ListFeedback returns the feedback userID submitted for sessionID
func (r *MongoRepository) ListFeedback(ctx context.Context, userID, sessionID string) ([]models.Feedback, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := r.feedback.Find(ctx, bson.M{"user_id": userID, "session_id": sessionID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	var out []models.Feedback
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode feedback: %w", err)
	}
	return out, nil
}

// GetUserProfile loads the profile used for participant snapshots
func (r *MongoRepository) GetUserProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := r.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", userID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user %s: %w", userID, err)
	}
	return &p, nil
}
