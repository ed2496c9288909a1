package repository

import (
	"context"
	"fmt"
	"time"

	"history-guide/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RatingRepository keeps one document per (POI, user) pair.
type RatingRepository struct {
	collection *mongo.Collection
}

func NewRatingRepository(db *mongo.Database) *RatingRepository {
	return &RatingRepository{collection: db.Collection(RatingCollection)}
}

func (r *RatingRepository) Upsert(ctx context.Context, rating models.Rating) error {
	filter := bson.M{"poi_id": rating.POIID, "user_id": rating.UserID}
	update := bson.M{
		"$set": bson.M{
			"rating":     rating.Value,
			"updated_at": time.Now().UTC(),
		},
	}
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upserting rating for POI %s: %w", rating.POIID, err)
	}
	return nil
}

func (r *RatingRepository) Get(ctx context.Context, poiID, userID string) (models.Rating, error) {
	var rating models.Rating
	err := r.collection.FindOne(ctx, bson.M{"poi_id": poiID, "user_id": userID}).Decode(&rating)
	if err != nil {
		return models.Rating{}, notFound(err)
	}
	return rating, nil
}

// Summary sums every stored rating of a POI on the server.
func (r *RatingRepository) Summary(ctx context.Context, poiID string) (models.RatingSummary, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"poi_id": poiID}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"sum":   bson.M{"$sum": "$rating"},
			"count": bson.M{"$sum": 1},
		}}},
	}
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return models.RatingSummary{}, fmt.Errorf("aggregating ratings for POI %s: %w", poiID, err)
	}
	defer cursor.Close(ctx)

	var summaries []models.RatingSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return models.RatingSummary{}, fmt.Errorf("decoding rating summary: %w", err)
	}
	if len(summaries) == 0 {
		return models.RatingSummary{}, nil
	}
	return summaries[0], nil
}
