package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrMissingKey is returned for an empty API key.
var ErrMissingKey = errors.New("missing key")

// KeyStore validates API keys and provides a health ping.
type KeyStore interface {
	Validate(ctx context.Context, key string) (bool, error)
	Ping(ctx context.Context) error
}

// KeyCreator issues or reactivates API keys.
type KeyCreator interface {
	Create(ctx context.Context, key string, active bool, owner string) error
}

// KeyRevoker deactivates API keys. It reports false when the key is unknown.
type KeyRevoker interface {
	Revoke(ctx context.Context, key string) (bool, error)
}

type keyDoc struct {
	Key       string    `bson:"key"`
	Active    bool      `bson:"active"`
	Owner     string    `bson:"owner,omitempty"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoKeyStore keeps API keys in the "api_keys" collection and caches
// validation outcomes, including misses, for the configured TTL.
type MongoKeyStore struct {
	coll  *mongo.Collection
	cache *keyCache
}

// NewMongoKeyStore ensures the unique index on key.
func NewMongoKeyStore(ctx context.Context, client *mongo.Client, dbName string, ttl time.Duration) (*MongoKeyStore, error) {
	coll := client.Database(dbName).Collection("api_keys")
	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "key", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, fmt.Errorf("create api_keys index: %w", err)
	}
	return &MongoKeyStore{coll: coll, cache: newKeyCache(ttl)}, nil
}

func (s *MongoKeyStore) Validate(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrMissingKey
	}
	if active, ok := s.cache.get(key); ok {
		return active, nil
	}
	var doc keyDoc
	err := s.coll.FindOne(ctx, bson.D{{Key: "key", Value: key}}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		s.cache.put(key, false)
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("lookup api key: %w", err)
	}
	s.cache.put(key, doc.Active)
	return doc.Active, nil
}

func (s *MongoKeyStore) Ping(ctx context.Context) error {
	return s.coll.Database().Client().Ping(ctx, nil)
}

// Create upserts a key and refreshes the cached state immediately.
func (s *MongoKeyStore) Create(ctx context.Context, key string, active bool, owner string) error {
	if key == "" {
		return ErrMissingKey
	}
	_, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "key", Value: key}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "active", Value: active},
			{Key: "owner", Value: owner},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert api key: %w", err)
	}
	s.cache.put(key, active)
	return nil
}

func (s *MongoKeyStore) Revoke(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrMissingKey
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.D{{Key: "key", Value: key}},
		bson.D{{Key: "$set", Value: bson.D{
			{Key: "active", Value: false},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
	)
	if err != nil {
		return false, fmt.Errorf("revoke api key: %w", err)
	}
	s.cache.put(key, false)
	return res.MatchedCount > 0, nil
}

// StaticKeyStore accepts a fixed set of keys. Used when mongo is not configured.
type StaticKeyStore map[string]bool

func (s StaticKeyStore) Validate(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, ErrMissingKey
	}
	return s[key], nil
}

func (s StaticKeyStore) Ping(context.Context) error { return nil }

// HashPrefix returns the first 8 hex chars of SHA-256(key) for logging.
func HashPrefix(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:8]
}
