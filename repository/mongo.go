package repository

import (
	"context"
	"errors"
	"fmt"

	"history-guide/utils/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	POICollection    = "points_of_interest"
	RatingCollection = "poi_ratings"
	UserCollection   = "users"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate document")
)

// Connect opens a client and checks the deployment is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}
	logger.Zlog.Info("Connected to MongoDB")
	return client, nil
}

// EnsureIndexes creates the indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		POICollection: {
			{Keys: bson.D{{Key: "location", Value: "2dsphere"}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		RatingCollection: {
			{
				Keys:    bson.D{{Key: "poi_id", Value: 1}, {Key: "user_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		UserCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true).SetSparse(true),
			},
		},
	}

	for coll, models := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", coll, err)
		}
		logger.Zlog.Debug("Ensured indexes", zap.String("collection", coll), zap.Int("count", len(models)))
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}
