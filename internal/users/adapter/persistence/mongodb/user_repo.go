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

const usersCollectionName = "users"

// MongoUserRepository implements the UserRepository interface using MongoDB
type MongoUserRepository struct {
	db         *mongo.Database
	collection *mongo.Collection
}

// NewMongoUserRepository creates a new MongoDB user repository and ensures
// the index set the service relies on.
func NewMongoUserRepository(ctx context.Context, db *mongo.Database) (*MongoUserRepository, error) {
	repo := &MongoUserRepository{
		db:         db,
		collection: db.Collection(usersCollectionName),
	}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			// Sparse because legacy documents may predate the UUID field
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}},
		},
	}

	if _, err := repo.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return nil, err
	}

	return repo, nil
}

// CreateUser creates a new user in the database
func (r *MongoUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	if user.ID == "" {
		user.ID = primitive.NewObjectID().Hex()
	}

	doc := bson.M{
		"id":         user.ID,
		"name":       user.Name,
		"email":      user.Email,
		"status":     user.Status,
		"created_at": user.CreatedAt,
		"updated_at": user.UpdatedAt,
	}
	if user.Age != nil {
		doc["age"] = *user.Age
	}
	if user.PasswordHash != "" {
		doc["password_hash"] = user.PasswordHash
	}

	result, err := r.collection.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return usecase.ErrEmailTaken
		}
		return err
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		user.ObjectID = oid
	}

	return nil
}

// GetUserByID retrieves a user by its UUID or ObjectID hex
func (r *MongoUserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	var err error

	err = r.collection.FindOne(ctx, bson.M{"id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		// Fall back to the Mongo object ID for documents created before
		// the UUID field existed.
		if objectID, objErr := primitive.ObjectIDFromHex(id); objErr == nil {
			err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user)
		}
	}

	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}

	if user.ID == "" && !user.ObjectID.IsZero() {
		user.ID = user.ObjectID.Hex()
	}

	return &user, nil
}

// GetUserByEmail retrieves a user by email
func (r *MongoUserRepository) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, usecase.ErrUserNotFound
		}
		return nil, err
	}

	if user.ID == "" && !user.ObjectID.IsZero() {
		user.ID = user.ObjectID.Hex()
	}

	return &user, nil
}

// UpdateUser applies a partial update and returns the updated document
func (r *MongoUserRepository) UpdateUser(ctx context.Context, id string, set map[string]interface{}) (*model.User, error) {
	if len(set) == 0 {
		return r.GetUserByID(ctx, id)
	}

	set["updated_at"] = time.Now().UTC()

	var user model.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{"id": id},
		bson.M{"$set": set},
		opts,
	).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, usecase.ErrUserNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, usecase.ErrEmailTaken
		}
		return nil, err
	}

	if user.ID == "" && !user.ObjectID.IsZero() {
		user.ID = user.ObjectID.Hex()
	}

	return &user, nil
}

// DeleteUser removes a user by UUID
func (r *MongoUserRepository) DeleteUser(ctx context.Context, id string) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return usecase.ErrUserNotFound
	}
	return nil
}

// ListUsers returns a page of users, newest first
func (r *MongoUserRepository) ListUsers(ctx context.Context, filter repository.ListFilter) ([]*model.User, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(filter.Skip).
		SetLimit(filter.Limit)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	users := make([]*model.User, 0, filter.Limit)
	for cursor.Next(ctx) {
		var user model.User
		if err := cursor.Decode(&user); err != nil {
			return nil, err
		}
		if user.ID == "" && !user.ObjectID.IsZero() {
			user.ID = user.ObjectID.Hex()
		}
		users = append(users, &user)
	}

	return users, cursor.Err()
}

// CountUsers counts users, optionally restricted to a status
func (r *MongoUserRepository) CountUsers(ctx context.Context, status model.UserStatus) (int64, error) {
	query := bson.M{}
	if status != "" {
		query["status"] = status
	}
	return r.collection.CountDocuments(ctx, query)
}

// Ensure MongoUserRepository implements UserRepository
var _ repository.UserRepository = (*MongoUserRepository)(nil)
