package chatRepo

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

// MongoRestrictionRepo implements RestrictionRepository using MongoDB.
type MongoRestrictionRepo struct {
	coll *mongo.Collection
}

func NewMongoRestrictionRepo() RestrictionRepository {
	repo := &MongoRestrictionRepo{coll: database.Collection("chat_restrictions")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create chat restriction indexes: %v\n", err)
	}
	return repo
}

func (r *MongoRestrictionRepo) Upsert(ctx context.Context, restriction *models.ChatRestriction) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	opts := options.Replace().SetUpsert(true)
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"userId": restriction.UserID}, restriction, opts); err != nil {
		return fmt.Errorf("failed to save chat restriction for %s: %w", restriction.UserID, err)
	}
	return nil
}

func (r *MongoRestrictionRepo) Get(ctx context.Context, userID string) (*models.ChatRestriction, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var restriction models.ChatRestriction
	err := r.coll.FindOne(ctx, bson.M{"userId": userID}).Decode(&restriction)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chat restriction for %s: %w", userID, err)
	}
	return &restriction, nil
}

func (r *MongoRestrictionRepo) Delete(ctx context.Context, userID string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	if _, err := r.coll.DeleteOne(ctx, bson.M{"userId": userID}); err != nil {
		return fmt.Errorf("failed to delete chat restriction for %s: %w", userID, err)
	}
	return nil
}

func (r *MongoRestrictionRepo) List(ctx context.Context) ([]models.ChatRestriction, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "restrictedAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list chat restrictions: %w", err)
	}
	defer cursor.Close(ctx)

	list := []models.ChatRestriction{}
	if err := cursor.All(ctx, &list); err != nil {
		return nil, fmt.Errorf("failed to decode chat restrictions: %w", err)
	}
	return list, nil
}
