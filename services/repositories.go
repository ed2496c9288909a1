package services

import (
	"context"
	"errors"

	"history-guide/models"
	"history-guide/repository"
	apierrors "history-guide/utils/errors"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("history-guide/services")

// POIReader is the read side of the POI store.
type POIReader interface {
	List(ctx context.Context) ([]models.POI, error)
	Get(ctx context.Context, id string) (models.POI, error)
	GetMany(ctx context.Context, ids []string) ([]models.POI, error)
}

type POIRepository interface {
	POIReader
	ListLatest(ctx context.Context, limit int) ([]models.POI, error)
	Create(ctx context.Context, poi models.POI) (models.POI, error)
	Replace(ctx context.Context, poi models.POI) error
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
	InsertMany(ctx context.Context, pois []models.POI) error
}

type RatingRepository interface {
	Upsert(ctx context.Context, rating models.Rating) error
	Get(ctx context.Context, poiID, userID string) (models.Rating, error)
	Summary(ctx context.Context, poiID string) (models.RatingSummary, error)
}

type UserRepository interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByEmail(ctx context.Context, email string) (models.User, error)
	AddVisited(ctx context.Context, userID, poiID string) error
	RemoveVisited(ctx context.Context, userID, poiID string) error
	SetNotifications(ctx context.Context, userID string, enabled bool) error
}

var (
	_ POIRepository    = (*repository.POIRepository)(nil)
	_ RatingRepository = (*repository.RatingRepository)(nil)
	_ UserRepository   = (*repository.UserRepository)(nil)
)

// storeError maps repository failures onto API errors. Anything other than a
// missing document is reported as a retryable store failure.
func storeError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apierrors.ErrNotFound
	}
	return apierrors.Unavailable(err)
}
