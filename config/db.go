// config/db.go
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// Collection names
const (
	UsersCollection         = "users"
	PostsCollection         = "posts"
	CommentsCollection      = "comments"
	NotificationsCollection = "notifications"
)

// ConnectDB establishes connection to MongoDB and makes sure the indexes exist
func ConnectDB(ctx context.Context, cfg *Config, logger *zap.Logger) (*mongo.Client, error) {
	logger.Info("connecting to MongoDB", zap.String("uri", maskMongoURI(cfg.MongoURI)))

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB", zap.String("db", cfg.DBName))

	setupCollections(client.Database(cfg.DBName), logger)
	return client, nil
}

// setupCollections ensures the indexes every query relies on
func setupCollections(db *mongo.Database, logger *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		PostsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}}},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		},
		CommentsCollection: {
			{Keys: bson.D{{Key: "post", Value: 1}, {Key: "createdAt", Value: 1}}},
		},
		NotificationsCollection: {
			{Keys: bson.D{{Key: "user", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			logger.Warn("index creation failed", zap.String("collection", name), zap.Error(err))
		}
	}
	logger.Info("database indexes ready")
}

// maskMongoURI masks the password in MongoDB URI for logging
func maskMongoURI(uri string) string {
	if idx := strings.Index(uri, "@"); idx > 0 {
		if colonIdx := strings.LastIndex(uri[:idx], ":"); colonIdx > 0 && !strings.HasPrefix(uri[colonIdx+1:], "/") {
			return uri[:colonIdx+1] + "***" + uri[idx:]
		}
	}
	return uri
}
