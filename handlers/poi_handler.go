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

	"github.com/gorilla/mux"
)

const defaultNearbyRadius = 3000.0

type POIService interface {
	ListPOIs(ctx context.Context) ([]models.POI, error)
	LatestPOIs(ctx context.Context, limit int) ([]models.POI, error)
	GetPOI(ctx context.Context, id string) (models.POI, error)
	CreatePOI(ctx context.Context, poi models.POI) (models.POI, error)
	UpdatePOI(ctx context.Context, poi models.POI) (models.POI, error)
	DeletePOI(ctx context.Context, id string) error
	FindNearbyPOIs(ctx context.Context, lat, lon, radius float64) ([]models.POI, error)
}

type RatingService interface {
	SubmitRating(ctx context.Context, poiID, userID string, value float64) (models.RatingSummary, error)
	OverallRating(ctx context.Context, poiID string) (models.RatingSummary, error)
	UserRating(ctx context.Context, poiID, userID string) (models.Rating, bool, error)
}

type VisitService interface {
	IsVisited(ctx context.Context, poiID, userID string) (bool, error)
	ToggleVisited(ctx context.Context, poiID, userID string) (bool, error)
}

var (
	_ POIService    = (*services.POIService)(nil)
	_ RatingService = (*services.RatingService)(nil)
	_ VisitService  = (*services.UserService)(nil)
)

type POIHandler struct {
	pois    POIService
	ratings RatingService
	visits  VisitService
}

type NearbyPOIResponse struct {
	NearbyPOIs []POIBody `json:"nearby_pois"`
	Count      int       `json:"count"`
	Lat        float64   `json:"lat"`
	Lon        float64   `json:"lon"`
	Radius     float64   `json:"radius"`
}

// POIDetail is a POI with its overall rating and, for signed-in users, their
// own visited flag and rating.
type POIDetail struct {
	POIBody
	RatingBody
	Visited    *bool    `json:"visited,omitempty"`
	UserRating *float64 `json:"userRating,omitempty"`
}

func NewPOIHandler(pois POIService, ratings RatingService, visits VisitService) *POIHandler {
	return &POIHandler{pois: pois, ratings: ratings, visits: visits}
}

func (h *POIHandler) ListPOIs(w http.ResponseWriter, r *http.Request) {
	pois, err := h.pois.ListPOIs(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toPOIBodies(pois))
}

func (h *POIHandler) GetNearbyPOIs(w http.ResponseWriter, r *http.Request) {
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
	radius := defaultNearbyRadius
	if raw := r.URL.Query().Get("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			middleware.WriteError(w, errors.ErrInvalidInput)
			return
		}
	}

	pois, err := h.pois.FindNearbyPOIs(r.Context(), lat, lon, radius)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, NearbyPOIResponse{
		NearbyPOIs: toPOIBodies(pois),
		Count:      len(pois),
		Lat:        lat,
		Lon:        lon,
		Radius:     radius,
	})
}

func (h *POIHandler) GetPOI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	poiID := mux.Vars(r)["poi_id"]

	poi, err := h.pois.GetPOI(ctx, poiID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	summary, err := h.ratings.OverallRating(ctx, poiID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	detail := POIDetail{POIBody: toPOIBody(poi), RatingBody: toRatingBody(summary)}

	if userID := middleware.UserIDFromContext(ctx); userID != "" {
		visited, err := h.visits.IsVisited(ctx, poiID, userID)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}
		detail.Visited = &visited

		rating, ok, err := h.ratings.UserRating(ctx, poiID, userID)
		if err != nil {
			middleware.WriteError(w, err)
			return
		}
		if ok {
			detail.UserRating = &rating.Value
		}
	}

	middleware.WriteJSON(w, http.StatusOK, detail)
}

func decodePOI(r *http.Request) (models.POI, error) {
	var body POIBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return models.POI{}, errors.ErrInvalidInput
	}
	poi, ok := body.model()
	if !ok {
		return models.POI{}, errors.ErrInvalidInput.WithDetails("latitude and longitude are required when hasLocation is true")
	}
	return poi, nil
}

func (h *POIHandler) CreatePOI(w http.ResponseWriter, r *http.Request) {
	poi, err := decodePOI(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	poi.ID = ""

	created, err := h.pois.CreatePOI(r.Context(), poi)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, toPOIBody(created))
}

func (h *POIHandler) UpdatePOI(w http.ResponseWriter, r *http.Request) {
	poi, err := decodePOI(r)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	poi.ID = mux.Vars(r)["poi_id"]

	updated, err := h.pois.UpdatePOI(r.Context(), poi)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toPOIBody(updated))
}

func (h *POIHandler) DeletePOI(w http.ResponseWriter, r *http.Request) {
	if err := h.pois.DeletePOI(r.Context(), mux.Vars(r)["poi_id"]); err != nil {
		middleware.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *POIHandler) GetVisited(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	poiID := mux.Vars(r)["poi_id"]
	visited, err := h.visits.IsVisited(ctx, poiID, middleware.UserIDFromContext(ctx))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"poiID": poiID, "visited": visited})
}

func (h *POIHandler) ToggleVisited(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	poiID := mux.Vars(r)["poi_id"]
	visited, err := h.visits.ToggleVisited(ctx, poiID, middleware.UserIDFromContext(ctx))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{"poiID": poiID, "visited": visited})
}
