package handlers

import (
	"net/http"

	"disco-backend/internal/middleware"
	"disco-backend/internal/models"
	"disco-backend/internal/services"
)

// NotificationHandler handles notification preference HTTP requests
type NotificationHandler struct {
	notifications *services.NotificationService
}

func NewNotificationHandler(notifications *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// GetPreferences handles GET /api/v1/notifications/preferences
func (h *NotificationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	prefs, err := h.notifications.Preferences(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences handles PUT /api/v1/notifications/preferences
func (h *NotificationHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var prefs models.NotificationPreferences
	if err := decodeJSON(r, &prefs); err != nil {
		handleError(w, err)
		return
	}
	prefs.UserID = userID

	if err := h.notifications.UpdatePreferences(r.Context(), &prefs); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}
