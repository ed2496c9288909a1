package models

import "time"

type POI struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	Name        string    `json:"name" bson:"name"`
	Address     string    `json:"address" bson:"address"`
	Description string    `json:"description" bson:"description"`
	Location    *GeoPoint `json:"location,omitempty" bson:"location,omitempty"`
	ImageURL    string    `json:"image_url,omitempty" bson:"image_url,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

// GeoPoint is a GeoJSON point; Coordinates are [longitude, latitude].
type GeoPoint struct {
	Type        string    `json:"type" bson:"type"`
	Coordinates []float64 `json:"coordinates" bson:"coordinates"`
}

func NewGeoPoint(lat, lon float64) *GeoPoint {
	return &GeoPoint{Type: "Point", Coordinates: []float64{lon, lat}}
}

func (p *GeoPoint) Valid() bool {
	return p != nil && len(p.Coordinates) == 2
}

func (p *GeoPoint) Latitude() float64 {
	return p.Coordinates[1]
}

func (p *GeoPoint) Longitude() float64 {
	return p.Coordinates[0]
}

func (p POI) HasLocation() bool {
	return p.Location.Valid()
}

func ValidCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
