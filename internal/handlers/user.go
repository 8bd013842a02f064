package handlers

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"disco-backend/internal/middleware"
	"disco-backend/internal/services"
)

// UserHandler handles user-related HTTP requests
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler creates a new user handler
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

// CreateUser handles POST /api/v1/users
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := h.userService.CreateUser(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create user")
		respondError(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	log.Info().
		Str("user_id", user.ID).
		Msg("User created")

	respondJSON(w, http.StatusOK, user)
}

// UpdatePushToken handles PUT /api/v1/users/push-token
func (h *UserHandler) UpdatePushToken(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		PushToken *string `json:"push_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	if err := h.userService.UpdatePushToken(r.Context(), userID, req.PushToken); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
