package services

import (
	"context"
	"errors"

	"history-guide/models"
	"history-guide/repository"
	apierrors "history-guide/utils/errors"
	"history-guide/utils/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// RatingService stores per-user ratings and derives the overall rating of a
// POI from whatever is stored at the time of asking.
type RatingService struct {
	ratings RatingRepository
	pois    POIReader
}

func NewRatingService(ratings RatingRepository, pois POIReader) *RatingService {
	return &RatingService{ratings: ratings, pois: pois}
}

// SubmitRating writes the user's rating and then recomputes the aggregate.
// The two steps are independent round trips; a concurrent rating from another
// user may or may not be included in the returned summary.
func (s *RatingService) SubmitRating(ctx context.Context, poiID, userID string, value float64) (models.RatingSummary, error) {
	ctx, span := tracer.Start(ctx, "RatingService.SubmitRating")
	defer span.End()
	span.SetAttributes(attribute.String("poi.id", poiID), attribute.Float64("rating.value", value))

	if userID == "" {
		return models.RatingSummary{}, apierrors.ErrUnauthorized
	}
	if !models.ValidRating(value) {
		return models.RatingSummary{}, apierrors.ErrInvalidRating
	}
	if _, err := s.pois.Get(ctx, poiID); err != nil {
		return models.RatingSummary{}, storeError(err)
	}

	err := s.ratings.Upsert(ctx, models.Rating{POIID: poiID, UserID: userID, Value: value})
	if err != nil {
		span.RecordError(err)
		logger.Zlog.Error("Failed to store rating", zap.String("poiID", poiID), zap.String("userID", userID), zap.Error(err))
		return models.RatingSummary{}, apierrors.Unavailable(err)
	}

	summary, err := s.ratings.Summary(ctx, poiID)
	if err != nil {
		span.RecordError(err)
		logger.Zlog.Warn("Rating stored but aggregate unavailable", zap.String("poiID", poiID), zap.Error(err))
		return models.RatingSummary{}, apierrors.Unavailable(err).WithDetails("rating saved; overall rating could not be refreshed")
	}

	logger.Zlog.Debug("Rating updated",
		zap.String("poiID", poiID),
		zap.String("userID", userID),
		zap.Float64("rating", value),
		zap.Int64("count", summary.Count))
	return summary, nil
}

func (s *RatingService) OverallRating(ctx context.Context, poiID string) (models.RatingSummary, error) {
	summary, err := s.ratings.Summary(ctx, poiID)
	if err != nil {
		return models.RatingSummary{}, storeError(err)
	}
	return summary, nil
}

// UserRating returns the user's own rating and whether one exists.
func (s *RatingService) UserRating(ctx context.Context, poiID, userID string) (models.Rating, bool, error) {
	rating, err := s.ratings.Get(ctx, poiID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return models.Rating{POIID: poiID, UserID: userID}, false, nil
	}
	if err != nil {
		return models.Rating{}, false, storeError(err)
	}
	return rating, true, nil
}
