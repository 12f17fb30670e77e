package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStorage is an append-only audit storage on MongoDB, a natural fit
// for a write-heavy log with a fixed retention window (pair it with a TTL
// index on the "at" field).
type MongoStorage struct {
	collection *mongo.Collection
}

// DefaultCollection is the collection name used by NewMongoStorage.
const DefaultCollection = "delivery_log"

// NewMongoStorage creates a Mongo-backed audit storage on the given
// database.
func NewMongoStorage(db *mongo.Database) *MongoStorage {
	return &MongoStorage{collection: db.Collection(DefaultCollection)}
}

// EnsureIndexes creates the query and retention indexes. Call once at
// startup.
func (s *MongoStorage) EnsureIndexes(ctx context.Context, retention time.Duration) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "notification_id", Value: 1}, {Key: "at", Value: 1}}},
		{Keys: bson.D{{Key: "recipient_id", Value: 1}, {Key: "at", Value: 1}}},
	}
	if retention > 0 {
		models = append(models, mongo.IndexModel{
			Keys:    bson.D{{Key: "at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(retention.Seconds())),
		})
	}
	if _, err := s.collection.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create audit indexes: %w", err)
	}
	return nil
}

func (s *MongoStorage) Store(ctx context.Context, entry Entry) error {
	if err := entry.Validate(); err != nil {
		return err
	}
	if _, err := s.collection.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *MongoStorage) ByNotification(ctx context.Context, notificationID string) ([]Entry, error) {
	return s.find(ctx, bson.M{"notification_id": notificationID})
}

func (s *MongoStorage) ByRecipient(ctx context.Context, recipientID string, since time.Time) ([]Entry, error) {
	return s.find(ctx, bson.M{
		"recipient_id": recipientID,
		"at":           bson.M{"$gte": since},
	})
}

func (s *MongoStorage) find(ctx context.Context, filter bson.M) ([]Entry, error) {
	cursor, err := s.collection.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("query audit entries: %w", err)
	}
	defer cursor.Close(ctx)

	var out []Entry
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode audit entries: %w", err)
	}
	return out, nil
}
