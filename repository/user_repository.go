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

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{collection: db.Collection(UserCollection)}
}

func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	if user.VisitedPOIs == nil {
		user.VisitedPOIs = []string{}
	}
	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("inserting user: %w", err)
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return models.User{}, notFound(err)
	}
	return user, nil
}

// AddVisited adds poiID to the visited set, creating the user document if needed.
func (r *UserRepository) AddVisited(ctx context.Context, userID, poiID string) error {
	return r.upsert(ctx, userID, bson.M{
		"$addToSet": bson.M{"visited_pois": poiID},
	})
}

func (r *UserRepository) RemoveVisited(ctx context.Context, userID, poiID string) error {
	return r.upsert(ctx, userID, bson.M{
		"$pull": bson.M{"visited_pois": poiID},
	})
}

func (r *UserRepository) SetNotifications(ctx context.Context, userID string, enabled bool) error {
	return r.upsert(ctx, userID, bson.M{
		"$set": bson.M{"nearby_notifications": enabled},
	})
}

func (r *UserRepository) upsert(ctx context.Context, userID string, update bson.M) error {
	update["$setOnInsert"] = bson.M{"created_at": time.Now().UTC()}
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": userID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("updating user %s: %w", userID, err)
	}
	return nil
}
