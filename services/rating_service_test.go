package services

import (
	"context"
	"errors"
	"math"
	"testing"

	apierrors "history-guide/utils/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmitRating_AggregateFollowsEachSubmission(t *testing.T) {
	ctx := context.Background()
	ratings := newMemRatings()
	svc := NewRatingService(ratings, newMemPOIs(castle))

	summary, err := svc.SubmitRating(ctx, castle.ID, "u1", 4)
	require.NoError(t, err)
	require.NotNil(t, summary.Average())
	assert.InDelta(t, 4.0, *summary.Average(), 1e-9)

	summary, err = svc.SubmitRating(ctx, castle.ID, "u2", 2)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, *summary.Average(), 1e-9)
	assert.EqualValues(t, 2, summary.Count)

	// A second submission by the same user replaces the first.
	summary, err = svc.SubmitRating(ctx, castle.ID, "u1", 5)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, *summary.Average(), 1e-9)
	assert.EqualValues(t, 2, summary.Count)
}

func TestSubmitRating_BoundsAreInclusive(t *testing.T) {
	svc := NewRatingService(newMemRatings(), newMemPOIs(castle))

	for _, v := range []float64{0, 2.5, 5} {
		_, err := svc.SubmitRating(context.Background(), castle.ID, "u1", v)
		assert.NoError(t, err, "value %v", v)
	}
}

func TestSubmitRating_RejectsOutOfRangeBeforeWriting(t *testing.T) {
	testCases := []struct {
		name  string
		value float64
	}{
		{name: "negative", value: -0.5},
		{name: "above five", value: 7},
		{name: "NaN", value: math.NaN()},
		{name: "infinite", value: math.Inf(1)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ratings := newMemRatings()
			svc := NewRatingService(ratings, newMemPOIs(castle))

			_, err := svc.SubmitRating(context.Background(), castle.ID, "u1", tc.value)
			assert.ErrorIs(t, err, apierrors.ErrInvalidRating)
			assert.Zero(t, ratings.upserts)
		})
	}
}

func TestSubmitRating_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("guest", func(t *testing.T) {
		ratings := newMemRatings()
		_, err := NewRatingService(ratings, newMemPOIs(castle)).SubmitRating(ctx, castle.ID, "", 3)
		assert.ErrorIs(t, err, apierrors.ErrUnauthorized)
		assert.Zero(t, ratings.upserts)
	})

	t.Run("unknown POI", func(t *testing.T) {
		ratings := newMemRatings()
		_, err := NewRatingService(ratings, newMemPOIs()).SubmitRating(ctx, "nope", "u1", 3)
		assert.ErrorIs(t, err, apierrors.ErrNotFound)
		assert.Zero(t, ratings.upserts)
	})

	t.Run("write fails", func(t *testing.T) {
		ratings := newMemRatings()
		ratings.upsertErr = errors.New("connection reset")
		_, err := NewRatingService(ratings, newMemPOIs(castle)).SubmitRating(ctx, castle.ID, "u1", 3)

		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, apierrors.ErrUnavailable.Code, apiErr.Code)
	})

	t.Run("aggregate fails after write", func(t *testing.T) {
		ratings := newMemRatings()
		ratings.summaryErr = errors.New("timeout")
		_, err := NewRatingService(ratings, newMemPOIs(castle)).SubmitRating(ctx, castle.ID, "u1", 3)

		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, apierrors.ErrUnavailable.Code, apiErr.Code)
		assert.Contains(t, apiErr.Details, "rating saved")

		// The write itself went through.
		ratings.summaryErr = nil
		summary, err := NewRatingService(ratings, newMemPOIs(castle)).OverallRating(ctx, castle.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, summary.Count)
	})
}

func TestOverallRating_AbsentWithoutRatings(t *testing.T) {
	summary, err := NewRatingService(newMemRatings(), newMemPOIs(castle)).OverallRating(context.Background(), castle.ID)
	require.NoError(t, err)
	assert.Nil(t, summary.Average())
	assert.Zero(t, summary.Count)
}

func TestUserRating(t *testing.T) {
	ctx := context.Background()
	svc := NewRatingService(newMemRatings(), newMemPOIs(castle))

	_, ok, err := svc.UserRating(ctx, castle.ID, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.SubmitRating(ctx, castle.ID, "u1", 4.5)
	require.NoError(t, err)

	rating, ok, err := svc.UserRating(ctx, castle.ID, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 4.5, rating.Value)
}
