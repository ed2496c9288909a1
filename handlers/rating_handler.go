package handlers

import (
	"encoding/json"
	"net/http"

	"history-guide/middleware"
	"history-guide/utils/errors"

	"github.com/gorilla/mux"
)

type RatingHandler struct {
	ratings RatingService
}

type SubmitRatingResponse struct {
	POIID  string  `json:"poiID"`
	Rating float64 `json:"rating"`
	RatingBody
}

func NewRatingHandler(ratings RatingService) *RatingHandler {
	return &RatingHandler{ratings: ratings}
}

func (h *RatingHandler) GetRating(w http.ResponseWriter, r *http.Request) {
	summary, err := h.ratings.OverallRating(r.Context(), mux.Vars(r)["poi_id"])
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, toRatingBody(summary))
}

func (h *RatingHandler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Rating *float64 `json:"rating"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.Rating == nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	ctx := r.Context()
	poiID := mux.Vars(r)["poi_id"]
	summary, err := h.ratings.SubmitRating(ctx, poiID, middleware.UserIDFromContext(ctx), *input.Rating)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, SubmitRatingResponse{
		POIID:      poiID,
		Rating:     *input.Rating,
		RatingBody: toRatingBody(summary),
	})
}

// GetUserRating reports 0 with rated=false when the user has not rated the POI.
func (h *RatingHandler) GetUserRating(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	poiID := mux.Vars(r)["poi_id"]
	rating, ok, err := h.ratings.UserRating(ctx, poiID, middleware.UserIDFromContext(ctx))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"poiID":  poiID,
		"rating": rating.Value,
		"rated":  ok,
	})
}
