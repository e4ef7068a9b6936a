package userRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subzero/database"
	"subzero/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrUserNotFound is returned when no user matches the lookup.
var ErrUserNotFound = errors.New("user not found")

// MongoUserRepo implements UserRepository using MongoDB.
type MongoUserRepo struct {
	coll *mongo.Collection
}

// NewMongoUserRepo creates a new instance of UserRepository using MongoDB.
func NewMongoUserRepo() UserRepository {
	repo := &MongoUserRepo{coll: database.Collection("users")}

	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create indexes: %v\n", err)
	}
	return repo
}

// newContext derives a context bounded by timeout.
func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

// safeProjection excludes credentials when the caller passes no projection.
func safeProjection(projection bson.M) bson.M {
	if projection == nil {
		return bson.M{"passwordHash": 0, "tokenHash": 0}
	}
	return projection
}

// GetByIDWithProjection retrieves a user by its unique ID using a projection.
func (r *MongoUserRepo) GetByIDWithProjection(ctx context.Context, id string, projection bson.M) (*models.User, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	opts := options.FindOne().SetProjection(safeProjection(projection))
	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"id": id}, opts).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to fetch user with id %s: %w", id, err)
	}
	return &user, nil
}

// GetByID retrieves a user by its unique ID, credentials included.
func (r *MongoUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.GetByIDWithProjection(ctx, id, bson.M{})
}

// GetByEmail retrieves a user by email, credentials included.
func (r *MongoUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var user models.User
	if err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch user with email %s: %w", email, err)
	}
	return &user, nil
}

// GetAllWithProjection retrieves all users with an optional projection.
func (r *MongoUserRepo) GetAllWithProjection(ctx context.Context, projection bson.M) ([]models.User, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetProjection(safeProjection(projection)).SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// IsUserAvailable checks whether a user with the given username or email already exists.
func (r *MongoUserRepo) IsUserAvailable(ctx context.Context, username, email string) (bool, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"$or": []bson.M{
			{"username": username},
			{"email": email},
		},
	}
	count, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check user availability: %w", err)
	}
	return count == 0, nil
}

// Create inserts a new user document.
func (r *MongoUserRepo) Create(ctx context.Context, user *models.User) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// UpdateSetDocument wraps updateDoc in $set and applies it to one user.
func (r *MongoUserRepo) UpdateSetDocument(ctx context.Context, id string, updateDoc bson.M) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	updateDoc["updatedAt"] = time.Now()
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, bson.M{"$set": updateDoc})
	if err != nil {
		return fmt.Errorf("failed to update user with id %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes a user document by its ID.
func (r *MongoUserRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete user with id %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return ErrUserNotFound
	}
	return nil
}
