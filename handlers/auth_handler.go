package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"history-guide/middleware"
	"history-guide/models"
	"history-guide/services"
	"history-guide/utils/errors"
)

type AuthService interface {
	Register(ctx context.Context, email, password string) (string, error)
	Login(ctx context.Context, email, password string) (services.Session, error)
}

type ProfileService interface {
	Role(ctx context.Context, userID string) (models.Role, error)
	Profile(ctx context.Context, userID string) (models.User, error)
}

var (
	_ AuthService    = (*services.AuthService)(nil)
	_ ProfileService = (*services.UserService)(nil)
)

type AuthHandler struct {
	auth     AuthService
	profiles ProfileService
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func NewAuthHandler(auth AuthService, profiles ProfileService) *AuthHandler {
	return &AuthHandler{auth: auth, profiles: profiles}
}

func (h *AuthHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var input credentials
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}

	userID, err := h.auth.Register(r.Context(), input.Email, input.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"userID": userID})
}

func (h *AuthHandler) LoginUser(w http.ResponseWriter, r *http.Request) {
	var input credentials
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		middleware.WriteError(w, errors.ErrInvalidInput)
		return
	}
	session, err := h.auth.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"token":  session.Token,
		"userID": session.UserID,
		"role":   string(session.Role),
	})
}

// Me resumes a session: it reports who the caller is and what they may do.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := middleware.UserIDFromContext(ctx)
	if userID == "" {
		middleware.WriteJSON(w, http.StatusOK, map[string]any{"role": models.RoleGuest})
		return
	}

	role, err := h.profiles.Role(ctx, userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	profile, err := h.profiles.Profile(ctx, userID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"userID":               userID,
		"role":                 role,
		"nearby_notifications": profile.NearbyNotifications,
	})
}
