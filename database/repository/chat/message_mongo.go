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

// MongoMessageRepo implements MessageRepository using MongoDB.
type MongoMessageRepo struct {
	coll *mongo.Collection
}

func NewMongoMessageRepo() MessageRepository {
	repo := &MongoMessageRepo{coll: database.Collection("chat_messages")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create chat message indexes: %v\n", err)
	}
	return repo
}

func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

func (r *MongoMessageRepo) Create(ctx context.Context, msg *models.ChatMessage) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	if msg.Tags == nil {
		msg.Tags = []string{}
	}
	if msg.EditHistory == nil {
		msg.EditHistory = []models.EditEntry{}
	}
	if _, err := r.coll.InsertOne(ctx, msg); err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

func (r *MongoMessageRepo) GetByID(ctx context.Context, id string) (*models.ChatMessage, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var msg models.ChatMessage
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&msg); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrMessageNotFound
		}
		return nil, fmt.Errorf("failed to fetch chat message %s: %w", id, err)
	}
	return &msg, nil
}

func (r *MongoMessageRepo) Edit(ctx context.Context, id string, edit MessageEdit) (*models.ChatMessage, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	tags := edit.Tags
	if tags == nil {
		tags = []string{}
	}
	update := bson.M{
		"$set": bson.M{
			"message":   edit.Message,
			"tags":      tags,
			"isTagged":  len(tags) > 0,
			"isEdited":  true,
			"updatedAt": edit.Previous.EditedAt,
		},
		"$push": bson.M{"editHistory": edit.Previous},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	filter := bson.M{"id": id, "message": edit.Previous.Message}
	var msg models.ChatMessage
	if err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&msg); err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to edit chat message %s: %w", id, err)
		}
		n, err := r.coll.CountDocuments(ctx, bson.M{"id": id})
		if err != nil {
			return nil, fmt.Errorf("failed to edit chat message %s: %w", id, err)
		}
		if n == 0 {
			return nil, ErrMessageNotFound
		}
		return nil, ErrEditConflict
	}
	return &msg, nil
}

func (r *MongoMessageRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete chat message %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *MongoMessageRepo) Recent(ctx context.Context, limit int) ([]models.ChatMessage, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)).
		SetProjection(bson.M{"readBy": 0})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to load chat history: %w", err)
	}
	defer cursor.Close(ctx)

	msgs := []models.ChatMessage{}
	if err := cursor.All(ctx, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode chat history: %w", err)
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *MongoMessageRepo) MarkRead(ctx context.Context, id, userID string, at time.Time) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{"id": id, "readBy.userId": bson.M{"$ne": userID}}
	update := bson.M{"$push": bson.M{"readBy": models.ReadReceipt{UserID: userID, ReadAt: at}}}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark chat message %s read: %w", id, err)
	}
	if result.MatchedCount == 0 {
		// Either already read or gone; only the latter is an error.
		count, err := r.coll.CountDocuments(ctx, bson.M{"id": id})
		if err != nil {
			return fmt.Errorf("failed to mark chat message %s read: %w", id, err)
		}
		if count == 0 {
			return ErrMessageNotFound
		}
	}
	return nil
}

func (r *MongoMessageRepo) DeleteAll(ctx context.Context) (int64, error) {
	return r.deleteMany(ctx, bson.M{})
}

func (r *MongoMessageRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return r.deleteMany(ctx, bson.M{"createdAt": bson.M{"$lt": before}})
}

func (r *MongoMessageRepo) deleteMany(ctx context.Context, filter bson.M) (int64, error) {
	ctx, cancel := newContext(ctx, 30*time.Second)
	defer cancel()

	result, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to delete chat messages: %w", err)
	}
	return result.DeletedCount, nil
}
