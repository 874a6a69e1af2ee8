// Package mongostore implements the document store behind the game server:
// users, lobbies, entity definitions, and combat presets.
//
// All lookups return (nil, nil) for absence; errors are reserved for
// operational failures.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ravenfell/gametable/internal/config"
)

// Collection names.
const (
	usersCollection    = "users"
	lobbiesCollection  = "lobbies"
	entitiesCollection = "entities"
	presetsCollection  = "combat_presets"
)

// Store provides document persistence backed by MongoDB.
// All methods are safe for concurrent use.
type Store struct {
	client  *mongo.Client
	db      *mongo.Database
	timeout time.Duration
	logger  *zap.Logger
}

// Connect establishes the MongoDB connection, verifies it with a ping, and
// ensures the indexes the store relies on.
//
// Precondition: cfg must be validated; logger must be non-nil.
// Postcondition: Returns an open Store or a non-nil error.
func Connect(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*Store, error) {
	opts := options.Client().
		ApplyURI(cfg.URI()).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxPoolSize(cfg.MaxPoolSize)

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connecting to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging mongodb: %w", err)
	}

	s := &Store{
		client:  client,
		db:      client.Database(cfg.Name),
		timeout: cfg.OperationTimeout,
		logger:  logger,
	}
	if err := s.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	logger.Info("document store connected",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
	)
	return s, nil
}

// Close disconnects the underlying client.
func (s *Store) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.db.Collection(usersCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "handle", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("users_handle_unique"),
	})
	if err != nil {
		return fmt.Errorf("creating users index: %w", err)
	}
	return nil
}

// opContext bounds one storage operation with the configured timeout.
func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}
