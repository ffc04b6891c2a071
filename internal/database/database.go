package database

import (
	"context"
	"fmt"
	"time"

	"github.com/qalam-news/core/internal/config"
	"github.com/qalam-news/core/internal/models"
	"github.com/qalam-news/core/internal/store"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Indexes returns the unique and TTL indexes every store must carry.
func Indexes(attemptRetention time.Duration) []store.IndexSpec {
	return []store.IndexSpec{
		{Collection: models.CollectionUsers, Keys: []string{"username"}, Unique: true},
		{Collection: models.CollectionUsers, Keys: []string{"email"}, Unique: true},
		{Collection: models.CollectionAdminSettings, Keys: []string{"key"}, Unique: true},
		{Collection: models.CollectionLoginAttempts, Keys: []string{"timestamp"}, ExpireAfter: attemptRetention},
		{Collection: models.CollectionLoginAttempts, Keys: []string{"username"}},
		{Collection: models.CollectionArticles, Keys: []string{"state"}},
		{Collection: models.CollectionArticles, Keys: []string{"createdBy"}},
		{Collection: models.CollectionVideos, Keys: []string{"state"}},
		{Collection: models.CollectionVideos, Keys: []string{"createdBy"}},
		{Collection: models.CollectionAdvertisements, Keys: []string{"placement"}},
	}
}

// Handle owns the store and the resources behind it.
type Handle struct {
	Store  store.Store
	client *mongo.Client
}

// Close disconnects the Mongo client when there is one.
func (h *Handle) Close(ctx context.Context) error {
	if h.client == nil {
		return nil
	}
	return h.client.Disconnect(ctx)
}

// Connect opens the configured store and ensures its indexes.
func Connect(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Handle, error) {
	var h *Handle
	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store, data is lost on restart")
		h = &Handle{Store: store.NewMemoryStore()}
	default:
		client, err := openMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		h = &Handle{Store: store.NewMongoStore(client.Database(cfg.Database.Name)), client: client}
		logger.Info("connected to mongodb", zap.String("database", cfg.Database.Name))
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Database.Timeout)
	defer cancel()
	if err := h.Store.EnsureIndexes(ctx, Indexes(cfg.Auth.AttemptRetention)); err != nil {
		_ = h.Close(context.Background())
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return h, nil
}

func openMongo(ctx context.Context, cfg *config.AppConfig) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.Database.Timeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.Database.URI).
		SetServerSelectionTimeout(cfg.Database.Timeout)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	return client, nil
}
