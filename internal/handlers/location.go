package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"disco-backend/internal/middleware"
	"disco-backend/internal/models"
	"disco-backend/internal/services"
)

// LocationHandler handles location and privacy zone HTTP requests
type LocationHandler struct {
	locations *services.LocationService
	privacy   *services.PrivacyService
}

func NewLocationHandler(locations *services.LocationService, privacy *services.PrivacyService) *LocationHandler {
	return &LocationHandler{locations: locations, privacy: privacy}
}

type recordLocationRequest struct {
	Latitude       float64            `json:"latitude"`
	Longitude      float64            `json:"longitude"`
	Accuracy       *float64           `json:"accuracy,omitempty"`
	PrivacyMode    models.PrivacyMode `json:"privacy_mode,omitempty"`
	SharingEnabled *bool              `json:"sharing_enabled,omitempty"`
}

// RecordLocation handles POST /api/v1/location
func (h *LocationHandler) RecordLocation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req recordLocationRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	record, err := h.locations.RecordLocation(r.Context(), userID, services.RecordLocationInput{
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		Accuracy:       req.Accuracy,
		PrivacyMode:    req.PrivacyMode,
		SharingEnabled: req.SharingEnabled,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, record)
}

// CurrentLocation handles GET /api/v1/location
func (h *LocationHandler) CurrentLocation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	record, err := h.locations.CurrentLocation(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

type sharingStateRequest struct {
	PrivacyMode    *models.PrivacyMode `json:"privacy_mode,omitempty"`
	SharingEnabled *bool               `json:"sharing_enabled,omitempty"`
}

// UpdateSharingState handles PATCH /api/v1/location
func (h *LocationHandler) UpdateSharingState(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req sharingStateRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	record, err := h.locations.UpdateSharingState(r.Context(), userID, services.SharingStateInput{
		PrivacyMode:    req.PrivacyMode,
		SharingEnabled: req.SharingEnabled,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, record)
}

type zoneRequest struct {
	Name             string  `json:"name"`
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	RadiusMeters     float64 `json:"radius_meters"`
	HideFromMatching *bool   `json:"hide_from_matching,omitempty"`
}

type zoneResponse struct {
	Zone     *models.PrivacyZone `json:"zone"`
	Overlaps bool                `json:"overlaps_existing"`
}

// CreateZone handles POST /api/v1/location/zones
func (h *LocationHandler) CreateZone(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req zoneRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	zone, overlaps, err := h.privacy.CreateZone(r.Context(), userID, services.CreateZoneInput{
		Name:             req.Name,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		RadiusMeters:     req.RadiusMeters,
		HideFromMatching: req.HideFromMatching,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, zoneResponse{Zone: zone, Overlaps: overlaps})
}

// ListZones handles GET /api/v1/location/zones
func (h *LocationHandler) ListZones(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	zones, err := h.privacy.ListZones(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, zones)
}

// UpdateZone handles PUT /api/v1/location/zones/{zoneID}
func (h *LocationHandler) UpdateZone(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	zoneID := chi.URLParam(r, "zoneID")

	var req zoneRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	zone, err := h.privacy.UpdateZone(r.Context(), userID, zoneID, services.CreateZoneInput{
		Name:             req.Name,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		RadiusMeters:     req.RadiusMeters,
		HideFromMatching: req.HideFromMatching,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, zone)
}

// DeleteZone handles DELETE /api/v1/location/zones/{zoneID}
func (h *LocationHandler) DeleteZone(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	zoneID := chi.URLParam(r, "zoneID")

	if err := h.privacy.DeleteZone(r.Context(), userID, zoneID); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
