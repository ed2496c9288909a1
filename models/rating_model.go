package models

import (
	"math"
	"time"
)

const (
	MinRating = 0.0
	MaxRating = 5.0
)

type Rating struct {
	POIID     string    `json:"poi_id" bson:"poi_id"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Value     float64   `json:"rating" bson:"rating"`
	UpdatedAt time.Time `json:"updated_at" bson:"updated_at"`
}

// RatingSummary is the sum and count of every rating stored for one POI.
type RatingSummary struct {
	Sum   float64 `bson:"sum"`
	Count int64   `bson:"count"`
}

// Average is nil when the POI has no ratings.
func (s RatingSummary) Average() *float64 {
	if s.Count <= 0 {
		return nil
	}
	avg := s.Sum / float64(s.Count)
	return &avg
}

func ValidRating(v float64) bool {
	return !math.IsNaN(v) && v >= MinRating && v <= MaxRating
}
