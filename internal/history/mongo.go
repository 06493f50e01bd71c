package history

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoRecorder stores records in the "calculations" collection.
type MongoRecorder struct {
	coll *mongo.Collection
}

func NewMongoRecorder(ctx context.Context, client *mongo.Client, dbName string) (*MongoRecorder, error) {
	coll := client.Database(dbName).Collection("calculations")
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "client", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return nil, fmt.Errorf("create calculations index: %w", err)
	}
	return &MongoRecorder{coll: coll}, nil
}

func (r *MongoRecorder) Append(ctx context.Context, rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := r.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("insert calculation: %w", err)
	}
	return nil
}

func (r *MongoRecorder) Recent(ctx context.Context, client string, limit int) ([]Record, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.D{{Key: "client", Value: client}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find calculations: %w", err)
	}
	out := make([]Record, 0, limit)
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode calculations: %w", err)
	}
	return out, nil
}
