// Package contentstore implements catalog.ContentStore on MongoDB and in memory.
package contentstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
	"github.com/storefront/backend/internal/infrastructure/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoStore keeps content documents in one MongoDB collection keyed by document id
type MongoStore struct {
	coll   *mongo.Collection
	logger *zap.Logger
}

// MongoStoreOption is a functional option for configuring the store
type MongoStoreOption func(*MongoStore)

// WithLogger sets the logger for the store
func WithLogger(logger *zap.Logger) MongoStoreOption {
	return func(s *MongoStore) {
		s.logger = logger
	}
}

// NewMongoClient connects to MongoDB and verifies the connection.
// The caller owns the client and must disconnect it.
func NewMongoClient(ctx context.Context, cfg *config.MongoConfig) (*mongo.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	return client, nil
}

// NewMongoStore creates a store over coll
func NewMongoStore(coll *mongo.Collection, opts ...MongoStoreOption) *MongoStore {
	s := &MongoStore{coll: coll, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureIndexes creates the lookup indexes used by storefront readers
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetName("idx_slug")},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "category_id", Value: 1}}, Options: options.Index().SetName("idx_status_category")},
		{Keys: bson.D{{Key: "source_product_id", Value: 1}}, Options: options.Index().SetName("idx_source_product")},
	})
	if err != nil {
		return fmt.Errorf("failed to create content indexes: %w", err)
	}
	return nil
}

// Create inserts doc, keeping a preset doc.ID and generating one otherwise
func (s *MongoStore) Create(ctx context.Context, doc *catalog.ContentDocument) (string, error) {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if _, err := s.coll.InsertOne(ctx, newProductDocument(doc)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return "", fmt.Errorf("%w: %w: %s", catalog.ErrContentWrite, catalog.ErrDocumentExists, doc.ID)
		}
		return "", fmt.Errorf("%w: %w", catalog.ErrContentWrite, err)
	}
	s.logger.Debug("Content document created", zap.String("content_doc_id", doc.ID), zap.String("slug", doc.Slug))
	return doc.ID, nil
}

// Get loads a document by id
func (s *MongoStore) Get(ctx context.Context, id string) (*catalog.ContentDocument, error) {
	var pd productDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&pd); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, catalog.ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to load content document %s: %w", id, err)
	}
	return pd.toDomain(), nil
}

// SetStatus changes a document's visibility
func (s *MongoStore) SetStatus(ctx context.Context, id string, status catalog.DocumentStatus) error {
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", catalog.ErrContentWrite, status)
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return fmt.Errorf("%w: %w", catalog.ErrContentWrite, err)
	}
	if res.MatchedCount == 0 {
		return catalog.ErrDocumentNotFound
	}
	return nil
}

// Delete removes a document
func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("%w: %w", catalog.ErrContentWrite, err)
	}
	if res.DeletedCount == 0 {
		return catalog.ErrDocumentNotFound
	}
	return nil
}

// Ensure MongoStore implements ContentStore
var _ catalog.ContentStore = (*MongoStore)(nil)
