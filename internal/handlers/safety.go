package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"disco-backend/internal/apperr"
	"disco-backend/internal/middleware"
	"disco-backend/internal/models"
	"disco-backend/internal/services"
)

// SafetyHandler handles alerts, checks, contacts and evidence HTTP requests
type SafetyHandler struct {
	safety   *services.SafetyService
	evidence *services.EvidenceService
}

func NewSafetyHandler(safety *services.SafetyService, evidence *services.EvidenceService) *SafetyHandler {
	return &SafetyHandler{safety: safety, evidence: evidence}
}

type createAlertRequest struct {
	Type        models.AlertType         `json:"type"`
	Description string                   `json:"description"`
	Message     string                   `json:"message,omitempty"`
	Location    *models.LocationSnapshot `json:"location,omitempty"`
}

// CreateAlert handles POST /api/v1/safety/alerts
func (h *SafetyHandler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req createAlertRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	alert, err := h.safety.CreateAlert(r.Context(), userID, services.CreateAlertInput{
		Type:        req.Type,
		Description: req.Description,
		Message:     req.Message,
		Location:    req.Location,
	})
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, alert)
}

// ListAlerts handles GET /api/v1/safety/alerts
func (h *SafetyHandler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	alerts, err := h.safety.ActiveAlerts(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

// UpdateAlert handles PUT /api/v1/safety/alerts/{alertID}
func (h *SafetyHandler) UpdateAlert(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	alertID := chi.URLParam(r, "alertID")

	var req struct {
		Action string `json:"action"`
	}
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	var (
		alert *models.SafetyAlert
		err   error
	)
	switch req.Action {
	case "dismiss":
		alert, err = h.safety.DismissAlert(r.Context(), userID, alertID)
	case "resolve":
		alert, err = h.safety.ResolveAlert(r.Context(), userID, alertID)
	default:
		handleError(w, apperr.Validation("action must be dismiss or resolve"))
		return
	}
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, alert)
}

type createCheckRequest struct {
	Type         string                   `json:"type"`
	ScheduledFor string                   `json:"scheduled_for,omitempty"`
	Description  string                   `json:"description,omitempty"`
	Location     *models.LocationSnapshot `json:"location,omitempty"`
}

// CreateCheck handles POST /api/v1/safety/checks
func (h *SafetyHandler) CreateCheck(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req createCheckRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	input := services.CreateCheckInput{
		Type:        req.Type,
		Description: req.Description,
		Location:    req.Location,
	}
	if req.ScheduledFor != "" {
		t, err := parseRFC3339(req.ScheduledFor)
		if err != nil {
			handleError(w, apperr.Validation("scheduled_for must be RFC 3339"))
			return
		}
		input.ScheduledFor = t
	}

	check, err := h.safety.ScheduleCheck(r.Context(), userID, input)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, check)
}

// ListChecks handles GET /api/v1/safety/checks
func (h *SafetyHandler) ListChecks(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	status := models.CheckStatus(r.URL.Query().Get("status"))

	checks, err := h.safety.ListChecks(r.Context(), userID, status)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, checks)
}

// CompleteCheck handles POST /api/v1/safety/checks/{checkID}/complete
func (h *SafetyHandler) CompleteCheck(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	checkID := chi.URLParam(r, "checkID")

	check, err := h.safety.CompleteCheck(r.Context(), userID, checkID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, check)
}

// AddContact handles POST /api/v1/safety/contacts
func (h *SafetyHandler) AddContact(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var contact models.EmergencyContact
	if err := decodeJSON(r, &contact); err != nil {
		handleError(w, err)
		return
	}

	created, err := h.safety.AddContact(r.Context(), userID, &contact)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// ListContacts handles GET /api/v1/safety/contacts
func (h *SafetyHandler) ListContacts(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	contacts, err := h.safety.ListContacts(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, contacts)
}

// RemoveContact handles DELETE /api/v1/safety/contacts/{contactID}
func (h *SafetyHandler) RemoveContact(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	contactID := chi.URLParam(r, "contactID")

	if err := h.safety.RemoveContact(r.Context(), userID, contactID); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type evidenceUploadRequest struct {
	ContentType string `json:"content_type,omitempty"`
}

// GetEvidenceUploadURL handles POST /api/v1/safety/reports/{reportID}/evidence
func (h *SafetyHandler) GetEvidenceUploadURL(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	reportID := chi.URLParam(r, "reportID")

	var req evidenceUploadRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}

	resp, err := h.evidence.GetUploadURL(r.Context(), userID, reportID, req.ContentType)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}
