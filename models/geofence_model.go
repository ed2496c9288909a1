package models

import "time"

// Geofence is a circular region around a POI that fires after the user has
// stayed inside it for LoiteringDelay.
type Geofence struct {
	POIID          string        `json:"poi_id"`
	Latitude       float64       `json:"latitude"`
	Longitude      float64       `json:"longitude"`
	RadiusMeters   float64       `json:"radius_m"`
	LoiteringDelay time.Duration `json:"-"`
}

type DwellTrigger struct {
	POIID     string    `json:"poi_id"`
	EnteredAt time.Time `json:"entered_at"`
	FiredAt   time.Time `json:"fired_at"`
}
