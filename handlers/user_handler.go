package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"history-guide/middleware"
	"history-guide/models"
	"history-guide/services"
	"history-guide/utils/errors"
)

type UserService interface {
	VisitedPOIs(ctx context.Context, userID string) ([]models.POI, error)
	SetNotificationsEnabled(ctx context.Context, userID string, enabled bool) (services.NotificationAck, error)
	Geofences(ctx context.Context, userID string) ([]models.Geofence, error)
	PingLocation(ctx context.Context, userID string, lat, lon float64) ([]models.DwellTrigger, error)
}

var _ UserService = (*services.UserService)(nil)

type UserHandler struct {
	users UserService
}

type GeofenceBody struct {
	models.Geofence
	LoiteringDelayMS int64 `json:"loitering_delay_ms"`
}

type NotificationsResponse struct {
	NearbyNotifications bool           `json:"nearby_notifications"`
	Geofences           []GeofenceBody `json:"geofences"`
}

func NewUserHandler(users UserService) *UserHandler {
	return &UserHandler{users: users}
}

func toGeofenceBodies(regions []models.Geofence) []GeofenceBody {
	bodies := make([]GeofenceBody, 0, len(regions))
	for _, g := range regions {
		bodies = append(bodies, GeofenceBody{Geofence: g, LoiteringDelayMS: g.LoiteringDelay.Milliseconds()})
	}
	return bodies
}

func (h *UserHandler) VisitedPOIs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pois, err := h.users.VisitedPOIs(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"visited": toPOIBodies(pois),
		"count":   len(pois),
	})
}

func (h *UserHandler) SetNotifications(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Enabled == nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	ctx := r.Context()
	ack, err := h.users.SetNotificationsEnabled(ctx, middleware.UserIDFromContext(ctx), *input.Enabled)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, NotificationsResponse{
		NearbyNotifications: ack.Enabled,
		Geofences:           toGeofenceBodies(ack.Geofences),
	})
}

func (h *UserHandler) Geofences(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	regions, err := h.users.Geofences(ctx, middleware.UserIDFromContext(ctx))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"geofences": toGeofenceBodies(regions)})
}

func (h *UserHandler) PingLocation(w http.ResponseWriter, r *http.Request) {
	lat, err := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	if err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	lon, err := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	ctx := r.Context()
	triggers, err := h.users.PingLocation(ctx, middleware.UserIDFromContext(ctx), lat, lon)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	triggered := make([]string, 0, len(triggers))
	for _, t := range triggers {
		triggered = append(triggered, t.POIID)
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"triggered": triggered})
}
