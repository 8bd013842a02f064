package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"disco-backend/internal/apperr"
	"disco-backend/internal/middleware"
	"disco-backend/internal/models"
	"disco-backend/internal/services"
)

// MatchHandler handles match discovery and lifecycle HTTP requests
type MatchHandler struct {
	matching *services.MatchingService
	validate *validator.Validate
}

func NewMatchHandler(matching *services.MatchingService) *MatchHandler {
	return &MatchHandler{
		matching: matching,
		validate: validator.New(),
	}
}

// FindMatches handles GET /api/v1/matches
func (h *MatchHandler) FindMatches(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	candidates, err := h.matching.FindMatches(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, candidates)
}

// ListMatches handles GET /api/v1/matches/history
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	matches, err := h.matching.ListMatches(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, matches)
}

type createMatchRequest struct {
	MatchedUserID string `json:"matched_user_id" validate:"required,uuid4"`
}

// CreateMatch handles POST /api/v1/matches
func (h *MatchHandler) CreateMatch(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req createMatchRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handleError(w, apperr.Validation("matched_user_id must be a valid user id"))
		return
	}

	match, err := h.matching.CreateMatch(r.Context(), userID, req.MatchedUserID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, match)
}

// GetMatch handles GET /api/v1/matches/{matchID}
func (h *MatchHandler) GetMatch(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	matchID := chi.URLParam(r, "matchID")

	match, err := h.matching.GetMatch(r.Context(), userID, matchID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, match)
}

type matchActionRequest struct {
	Action string `json:"action" validate:"required,oneof=accept decline block report"`
	Reason string `json:"reason,omitempty"`
}

// ActOnMatch handles POST /api/v1/matches/{matchID}
func (h *MatchHandler) ActOnMatch(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	matchID := chi.URLParam(r, "matchID")

	var req matchActionRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handleError(w, apperr.Validation("action must be one of accept, decline, block, report"))
		return
	}

	switch req.Action {
	case "accept":
		match, err := h.matching.AcceptMatch(r.Context(), userID, matchID)
		if err != nil {
			handleError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, match)
	case "decline":
		match, err := h.matching.DeclineMatch(r.Context(), userID, matchID)
		if err != nil {
			handleError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, match)
	case "block":
		match, err := h.matching.BlockMatch(r.Context(), userID, matchID)
		if err != nil {
			handleError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, match)
	case "report":
		report, err := h.matching.ReportMatch(r.Context(), userID, matchID, req.Reason)
		if err != nil {
			handleError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, report)
	}
}

type preferencesRequest struct {
	MaxDistanceKm float64  `json:"max_distance_km" validate:"gte=0,lte=500"`
	MinAge        int      `json:"min_age" validate:"gte=0,lte=120"`
	MaxAge        int      `json:"max_age" validate:"gte=0,lte=120"`
	Interests     []string `json:"interests"`
	ActivityTypes []string `json:"activity_types"`
	Availability  []string `json:"availability"`
	TimeWindow    string   `json:"time_window,omitempty"`
	VerifiedOnly  bool     `json:"verified_only"`
	WithPhoto     bool     `json:"with_photo"`
}

// GetPreferences handles GET /api/v1/matches/preferences
func (h *MatchHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	prefs, err := h.matching.Preferences(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}

// UpdatePreferences handles POST /api/v1/matches/preferences
func (h *MatchHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req preferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		handleError(w, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		handleError(w, apperr.Validation("invalid preferences"))
		return
	}

	prefs := &models.MatchPreferences{
		UserID:        userID,
		MaxDistanceKm: req.MaxDistanceKm,
		MinAge:        req.MinAge,
		MaxAge:        req.MaxAge,
		Interests:     req.Interests,
		ActivityTypes: req.ActivityTypes,
		Availability:  req.Availability,
		TimeWindow:    req.TimeWindow,
		VerifiedOnly:  req.VerifiedOnly,
		WithPhoto:     req.WithPhoto,
	}
	if err := h.matching.UpdatePreferences(r.Context(), prefs); err != nil {
		handleError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, prefs)
}
