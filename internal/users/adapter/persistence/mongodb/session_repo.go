package mongodb

import (
	"context"
	"time"

	"userdb/internal/users/domain/model"
	"userdb/internal/users/domain/repository"
	"userdb/internal/users/usecase"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const sessionsCollectionName = "sessions"

// MongoSessionRepository implements the SessionRepository interface using MongoDB
type MongoSessionRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewMongoSessionRepository creates a new MongoDB session repository. Mongo
// reaps expired sessions itself through the TTL index on expires_at.
func NewMongoSessionRepository(ctx context.Context, db *mongo.Database) (*MongoSessionRepository, error) {
	repo := &MongoSessionRepository{
		db:         db,
		collection: db.Collection(sessionsCollectionName),
	}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}

	if _, err := repo.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, err
	}

	return repo, nil
}

// CreateSession creates a new session
func (r *MongoSessionRepository) CreateSession(ctx context.Context, session *model.Session) error {
	session.CreatedAt = time.Now().UTC()

	result, err := r.collection.InsertOne(ctx, session)
	if err != nil {
		return err
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		session.ID = oid.Hex()
	}

	return nil
}

// GetSessionByID retrieves a session by its session_id
func (r *MongoSessionRepository) GetSessionByID(ctx context.Context, sessionID string) (*model.Session, error) {
	var session model.Session
	err := r.collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, usecase.ErrSessionNotFound
		}
		return nil, err
	}

	return &session, nil
}

// DeleteSession deletes a session by its session_id
func (r *MongoSessionRepository) DeleteSession(ctx context.Context, sessionID string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return usecase.ErrSessionNotFound
	}
	return nil
}

// DeleteUserSessions deletes all sessions belonging to a user
func (r *MongoSessionRepository) DeleteUserSessions(ctx context.Context, userID string) error {
	_, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}

// Ensure MongoSessionRepository implements SessionRepository
var _ repository.SessionRepository = (*MongoSessionRepository)(nil)
