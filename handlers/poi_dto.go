package handlers

import (
	"history-guide/models"
)

// POIBody is the POI as exchanged with the app screens.
// Latitude and Longitude are only present when HasLocation is true.
type POIBody struct {
	ID          string   `json:"id,omitempty"`
	Name        string   `json:"name"`
	Address     string   `json:"address"`
	Description string   `json:"description"`
	ImageURL    string   `json:"imageURL,omitempty"`
	HasLocation bool     `json:"hasLocation"`
	Latitude    *float64 `json:"latitude,omitempty"`
	Longitude   *float64 `json:"longitude,omitempty"`
}

func toPOIBody(poi models.POI) POIBody {
	body := POIBody{
		ID:          poi.ID,
		Name:        poi.Name,
		Address:     poi.Address,
		Description: poi.Description,
		ImageURL:    poi.ImageURL,
		HasLocation: poi.HasLocation(),
	}
	if body.HasLocation {
		lat, lon := poi.Location.Latitude(), poi.Location.Longitude()
		body.Latitude = &lat
		body.Longitude = &lon
	}
	return body
}

func toPOIBodies(pois []models.POI) []POIBody {
	bodies := make([]POIBody, 0, len(pois))
	for _, poi := range pois {
		bodies = append(bodies, toPOIBody(poi))
	}
	return bodies
}

// model fails when hasLocation is set without both coordinates.
func (b POIBody) model() (models.POI, bool) {
	poi := models.POI{
		ID:          b.ID,
		Name:        b.Name,
		Address:     b.Address,
		Description: b.Description,
		ImageURL:    b.ImageURL,
	}
	if b.HasLocation {
		if b.Latitude == nil || b.Longitude == nil {
			return models.POI{}, false
		}
		poi.Location = models.NewGeoPoint(*b.Latitude, *b.Longitude)
	}
	return poi, true
}

// RatingBody carries the overall rating of a POI; OverallRating is omitted
// when nobody has rated it.
type RatingBody struct {
	OverallRating *float64 `json:"overallRating,omitempty"`
	RatingCount   int64    `json:"ratingCount"`
}

func toRatingBody(summary models.RatingSummary) RatingBody {
	return RatingBody{OverallRating: summary.Average(), RatingCount: summary.Count}
}
