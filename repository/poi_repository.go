package repository

import (
	"context"
	"fmt"
	"time"

	"history-guide/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type POIRepository struct {
	collection *mongo.Collection
}

func NewPOIRepository(db *mongo.Database) *POIRepository {
	return &POIRepository{collection: db.Collection(POICollection)}
}

func (r *POIRepository) List(ctx context.Context) ([]models.POI, error) {
	return r.find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *POIRepository) ListLatest(ctx context.Context, limit int) ([]models.POI, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{}, opts)
}

func (r *POIRepository) GetMany(ctx context.Context, ids []string) ([]models.POI, error) {
	if len(ids) == 0 {
		return []models.POI{}, nil
	}
	return r.find(ctx, bson.M{"_id": bson.M{"$in": ids}}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
}

func (r *POIRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.POI, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("finding POIs: %w", err)
	}
	defer cursor.Close(ctx)

	pois := []models.POI{}
	if err := cursor.All(ctx, &pois); err != nil {
		return nil, fmt.Errorf("decoding POIs: %w", err)
	}
	return pois, nil
}

func (r *POIRepository) Get(ctx context.Context, id string) (models.POI, error) {
	var poi models.POI
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&poi); err != nil {
		return models.POI{}, notFound(err)
	}
	return poi, nil
}

// Create stores a new POI under a freshly assigned id.
func (r *POIRepository) Create(ctx context.Context, poi models.POI) (models.POI, error) {
	now := time.Now().UTC()
	poi.ID = primitive.NewObjectID().Hex()
	poi.CreatedAt = now
	poi.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, poi); err != nil {
		return models.POI{}, fmt.Errorf("inserting POI: %w", err)
	}
	return poi, nil
}

// Replace overwrites every field of an existing POI.
func (r *POIRepository) Replace(ctx context.Context, poi models.POI) error {
	poi.UpdatedAt = time.Now().UTC()
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": poi.ID}, poi)
	if err != nil {
		return fmt.Errorf("replacing POI %s: %w", poi.ID, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *POIRepository) Delete(ctx context.Context, id string) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("deleting POI %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *POIRepository) Count(ctx context.Context) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{})
}

func (r *POIRepository) InsertMany(ctx context.Context, pois []models.POI) error {
	now := time.Now().UTC()
	docs := make([]any, 0, len(pois))
	for _, poi := range pois {
		if poi.ID == "" {
			poi.ID = primitive.NewObjectID().Hex()
		}
		poi.CreatedAt = now
		poi.UpdatedAt = now
		docs = append(docs, poi)
	}
	if len(docs) == 0 {
		return nil
	}
	if _, err := r.collection.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("inserting POIs: %w", err)
	}
	return nil
}
