package cache

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoBackend stores one document per record, keyed by _id
type MongoBackend struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type mongoRecord struct {
	Key       string    `bson:"_id"`
	Payload   []byte    `bson:"payload"`
	Timestamp time.Time `bson:"timestamp"`
}

// NewMongoBackend connects to url and uses the given database and collection
func NewMongoBackend(ctx context.Context, url, database, collection string) (*MongoBackend, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(url))

	if err != nil {
		return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("could not ping MongoDB: %w", err)
	}

	return &MongoBackend{
		client:     client,
		collection: client.Database(database).Collection(collection),
	}, nil
}

func (b *MongoBackend) Get(ctx context.Context, key string) (*Record, error) {
	var doc mongoRecord

	err := b.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCacheMiss
		}

		return nil, fmt.Errorf("could not find cache entry: %w", err)
	}

	return &Record{Payload: doc.Payload, Timestamp: doc.Timestamp.UTC()}, nil
}

// Set stores the record. MongoDB keeps timestamps with millisecond precision.
func (b *MongoBackend) Set(ctx context.Context, key string, record Record) error {
	doc := mongoRecord{Key: key, Payload: record.Payload, Timestamp: record.Timestamp}

	_, err := b.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))

	if err != nil {
		return fmt.Errorf("could not upsert cache entry: %w", err)
	}

	return nil
}

func (b *MongoBackend) Delete(ctx context.Context, key string) error {
	if _, err := b.collection.DeleteOne(ctx, bson.M{"_id": key}); err != nil {
		return fmt.Errorf("could not delete cache entry: %w", err)
	}

	return nil
}

func (b *MongoBackend) Keys(ctx context.Context, prefix string) ([]string, error) {
	filter := bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
	opts := options.Find().SetProjection(bson.M{"_id": 1}).SetSort(bson.M{"_id": 1})

	cursor, err := b.collection.Find(ctx, filter, opts)

	if err != nil {
		return nil, fmt.Errorf("could not list cache keys: %w", err)
	}

	defer cursor.Close(ctx)

	keys := make([]string, 0)

	for cursor.Next(ctx) {
		var doc struct {
			Key string `bson:"_id"`
		}

		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("could not decode cache key: %w", err)
		}

		keys = append(keys, doc.Key)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate cache keys: %w", err)
	}

	return keys, nil
}

func (b *MongoBackend) Close() error {
	return b.client.Disconnect(context.Background())
}
