package events

import (
	"encoding/json"
	"fmt"
)

const (
	RKPOIDwell              = "poi.dwell"
	RKNotificationsEnabled  = "notifications.enabled"
	RKNotificationsDisabled = "notifications.disabled"
)

// POIDwell is published when a user has stayed near a POI for the loitering delay.
type POIDwell struct {
	UserID    string `json:"user_id"`
	POIID     string `json:"poi_id"`
	POIName   string `json:"poi_name"`
	EnteredAt int64  `json:"entered_at"` // unix seconds
	FiredAt   int64  `json:"fired_at"`
}

type NotificationsChanged struct {
	UserID    string `json:"user_id"`
	Enabled   bool   `json:"enabled"`
	Geofences int    `json:"geofences"`
}

func Decode[T any](b []byte) (T, error) {
	var t T
	if err := json.Unmarshal(b, &t); err != nil {
		var zero T
		return zero, fmt.Errorf("decode payload failed: %w", err)
	}
	return t, nil
}
