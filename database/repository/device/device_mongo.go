package deviceRepo

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

// MongoDeviceRepo implements DeviceRepository using MongoDB.
type MongoDeviceRepo struct {
	coll *mongo.Collection
}

// NewMongoDeviceRepo creates a DeviceRepository backed by the "device_restrictions" collection.
func NewMongoDeviceRepo() DeviceRepository {
	repo := &MongoDeviceRepo{coll: database.Collection("device_restrictions")}
	if err := repo.ensureIndexes(); err != nil {
		fmt.Printf("failed to create device indexes: %v\n", err)
	}
	return repo
}

func newContext(parent context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, timeout)
}

func (r *MongoDeviceRepo) FindByFingerprintOrCookie(ctx context.Context, fingerprint, cookie string) (*models.DeviceRestriction, error) {
	var or []bson.M
	if fingerprint != "" {
		or = append(or, bson.M{"deviceFingerprint": fingerprint})
	}
	if cookie != "" {
		or = append(or, bson.M{"cookieValue": cookie})
	}
	if len(or) == 0 {
		return nil, nil
	}

	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	// Prefer the fingerprint match when the two identifiers point at different records.
	opts := options.FindOne().SetSort(bson.D{{Key: "lastActivity", Value: -1}})
	var record models.DeviceRestriction
	if fingerprint != "" {
		err := r.coll.FindOne(ctx, bson.M{"deviceFingerprint": fingerprint}, opts).Decode(&record)
		if err == nil {
			return &record, nil
		}
		if !errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("failed to look up device by fingerprint: %w", err)
		}
	}
	err := r.coll.FindOne(ctx, bson.M{"$or": or}, opts).Decode(&record)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up device: %w", err)
	}
	return &record, nil
}

func (r *MongoDeviceRepo) GetByID(ctx context.Context, id string) (*models.DeviceRestriction, error) {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	var record models.DeviceRestriction
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&record); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to fetch device %s: %w", id, err)
	}
	return &record, nil
}

func (r *MongoDeviceRepo) Create(ctx context.Context, record *models.DeviceRestriction) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	if record.AccountsCreated == nil {
		record.AccountsCreated = []string{}
	}
	if _, err := r.coll.InsertOne(ctx, record); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateDevice
		}
		return fmt.Errorf("failed to create device record: %w", err)
	}
	return nil
}

func (r *MongoDeviceRepo) AppendAccount(ctx context.Context, id, userID, fingerprint, cookie string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	filter := bson.M{
		"id":        id,
		"isBlocked": false,
		"$expr": bson.M{
			"$lt": bson.A{bson.M{"$size": "$accountsCreated"}, "$maxAccountsAllowed"},
		},
	}
	set := identifierSet(fingerprint, cookie)
	update := bson.M{
		"$addToSet": bson.M{"accountsCreated": userID},
		"$set":      set,
	}
	result, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateDevice
		}
		return fmt.Errorf("failed to append account to device %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNoCapacity
	}
	return nil
}

func (r *MongoDeviceRepo) RemoveAccount(ctx context.Context, id, userID string) error {
	return r.update(ctx, id, bson.M{"$pull": bson.M{"accountsCreated": userID}})
}

func identifierSet(fingerprint, cookie string) bson.M {
	set := bson.M{"lastActivity": time.Now()}
	if fingerprint != "" {
		set["deviceFingerprint"] = fingerprint
	}
	if cookie != "" {
		set["cookieValue"] = cookie
	}
	return set
}

func (r *MongoDeviceRepo) SetBlocked(ctx context.Context, id string, blocked bool, reason string) error {
	if !blocked {
		reason = ""
	}
	return r.update(ctx, id, bson.M{"$set": bson.M{"isBlocked": blocked, "blockedReason": reason}})
}

func (r *MongoDeviceRepo) SetLimit(ctx context.Context, id string, max int) error {
	return r.update(ctx, id, bson.M{"$set": bson.M{"maxAccountsAllowed": max}})
}

func (r *MongoDeviceRepo) Delete(ctx context.Context, id string) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	result, err := r.coll.DeleteOne(ctx, bson.M{"id": id})
	if err != nil {
		return fmt.Errorf("failed to delete device %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (r *MongoDeviceRepo) List(ctx context.Context) ([]models.DeviceRestriction, error) {
	ctx, cancel := newContext(ctx, 10*time.Second)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "lastActivity", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	defer cursor.Close(ctx)

	records := []models.DeviceRestriction{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode devices: %w", err)
	}
	return records, nil
}

func (r *MongoDeviceRepo) update(ctx context.Context, id string, update bson.M) error {
	ctx, cancel := newContext(ctx, 5*time.Second)
	defer cancel()

	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update device %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrRecordNotFound
	}
	return nil
}
