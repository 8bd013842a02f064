package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"disco-backend/internal/apperr"
	"disco-backend/internal/geo"
	"disco-backend/internal/models"
)

type matchStore interface {
	Create(ctx context.Context, match *models.Match) error
	GetByID(ctx context.Context, id string) (*models.Match, error)
	GetByPair(ctx context.Context, userA, userB string) (*models.Match, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Match, error)
	UpdateStatus(ctx context.Context, id string, status models.MatchStatus, version int) error
	GetPreferences(ctx context.Context, userID string) (*models.MatchPreferences, error)
	GetPreferencesForUsers(ctx context.Context, userIDs []string) (map[string]*models.MatchPreferences, error)
	UpsertPreferences(ctx context.Context, prefs *models.MatchPreferences) error
}

type profileStore interface {
	GetProfiles(ctx context.Context, userIDs []string) (map[string]*models.Profile, error)
}

type reportStore interface {
	Create(ctx context.Context, report *models.SafetyReport) error
}

// MatchingService surfaces ranked nearby candidates and drives the
// match lifecycle between two users.
type MatchingService struct {
	matches    matchStore
	profiles   profileStore
	reports    reportStore
	locations  *LocationService
	privacy    *PrivacyService
	limiter    *RateLimiter
	hub        *Hub
	maxDistKm  float64
	maxResults int
}

func NewMatchingService(
	matches matchStore,
	profiles profileStore,
	reports reportStore,
	locations *LocationService,
	privacy *PrivacyService,
	limiter *RateLimiter,
	hub *Hub,
	defaultMaxDistanceKm float64,
	maxResults int,
) *MatchingService {
	return &MatchingService{
		matches:    matches,
		profiles:   profiles,
		reports:    reports,
		locations:  locations,
		privacy:    privacy,
		limiter:    limiter,
		hub:        hub,
		maxDistKm:  defaultMaxDistanceKm,
		maxResults: maxResults,
	}
}

// FindMatches returns candidates near the user's current location,
// filtered by both sides' preferences and ranked by score.
func (s *MatchingService) FindMatches(ctx context.Context, userID string) ([]*models.Candidate, error) {
	if err := s.limiter.Check(ctx, userID, ActionGetMatches, userID); err != nil {
		return nil, err
	}

	prefs, err := s.matches.GetPreferences(ctx, userID)
	if err != nil {
		if apperr.KindOf(err) != apperr.KindNotFound {
			return nil, err
		}
		prefs = &models.MatchPreferences{UserID: userID, MaxDistanceKm: s.maxDistKm}
	}
	maxDistKm := prefs.MaxDistanceKm
	if maxDistKm <= 0 {
		maxDistKm = s.maxDistKm
	}

	current, err := s.locations.CurrentLocation(ctx, userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return nil, apperr.Validation("current location required for match discovery")
		}
		return nil, err
	}

	nearby, err := s.locations.NearbyLocations(ctx, userID, current.Latitude, current.Longitude, maxDistKm*1000)
	if err != nil {
		return nil, err
	}
	if len(nearby) == 0 {
		return []*models.Candidate{}, nil
	}

	ids := make([]string, 0, len(nearby))
	for _, n := range nearby {
		ids = append(ids, n.UserID)
	}
	candPrefs, err := s.matches.GetPreferencesForUsers(ctx, ids)
	if err != nil {
		return nil, err
	}
	candProfiles, err := s.profiles.GetProfiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	candidates := make([]*models.Candidate, 0, len(nearby))
	for _, n := range nearby {
		hidden, err := s.privacy.IsHidden(ctx, n.UserID, n.Latitude, n.Longitude)
		if err != nil {
			return nil, err
		}
		if hidden {
			continue
		}
		if !passesProfileFilters(prefs, candProfiles[n.UserID]) {
			continue
		}
		distanceKm := geo.DistanceKm(current.Latitude, current.Longitude, n.Latitude, n.Longitude)
		score := scoreMatch(prefs, candPrefs[n.UserID], distanceKm)
		candidates = append(candidates, &models.Candidate{
			UserID:     n.UserID,
			DistanceKm: distanceKm,
			Score:      score,
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score.Total != candidates[j].Score.Total {
			return candidates[i].Score.Total > candidates[j].Score.Total
		}
		if candidates[i].DistanceKm != candidates[j].DistanceKm {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		}
		return candidates[i].UserID < candidates[j].UserID
	})
	if s.maxResults > 0 && len(candidates) > s.maxResults {
		candidates = candidates[:s.maxResults]
	}
	return candidates, nil
}

func passesProfileFilters(prefs *models.MatchPreferences, profile *models.Profile) bool {
	if profile == nil {
		return !prefs.VerifiedOnly && !prefs.WithPhoto
	}
	if prefs.MinAge > 0 && profile.Age < prefs.MinAge {
		return false
	}
	if prefs.MaxAge > 0 && profile.Age > prefs.MaxAge {
		return false
	}
	if prefs.VerifiedOnly && !profile.Verified {
		return false
	}
	if prefs.WithPhoto && !profile.HasPhoto {
		return false
	}
	return true
}

// CreateMatch opens a pending match between the user and a surfaced candidate.
func (s *MatchingService) CreateMatch(ctx context.Context, userID, matchedUserID string) (*models.Match, error) {
	if err := s.limiter.Check(ctx, userID, ActionMatchAction, userID); err != nil {
		return nil, err
	}
	if matchedUserID == "" || matchedUserID == userID {
		return nil, apperr.Validation("invalid matched user")
	}
	if _, err := s.matches.GetByPair(ctx, userID, matchedUserID); err == nil {
		return nil, apperr.Conflict("match already exists between these users")
	} else if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, err
	}

	score := s.scorePair(ctx, userID, matchedUserID)
	now := time.Now()
	match := &models.Match{
		ID:            uuid.New().String(),
		UserID:        userID,
		MatchedUserID: matchedUserID,
		Status:        models.MatchStatusPending,
		Score:         score.Total,
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.matches.Create(ctx, match); err != nil {
		return nil, err
	}
	s.notifyMatchUpdate(match)
	return match, nil
}

// scorePair computes the score for a single pair. Distance falls back to
// unknown when either side has no current location.
func (s *MatchingService) scorePair(ctx context.Context, userID, matchedUserID string) models.MatchScore {
	prefsByUser, err := s.matches.GetPreferencesForUsers(ctx, []string{userID, matchedUserID})
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load preferences for pair scoring")
		prefsByUser = map[string]*models.MatchPreferences{}
	}
	distanceKm := -1.0
	mine, errA := s.locations.CurrentLocation(ctx, userID)
	theirs, errB := s.locations.CurrentLocation(ctx, matchedUserID)
	if errA == nil && errB == nil {
		distanceKm = geo.DistanceKm(mine.Latitude, mine.Longitude, theirs.Latitude, theirs.Longitude)
	}
	return scoreMatch(prefsByUser[userID], prefsByUser[matchedUserID], distanceKm)
}

// GetMatch returns the match if the caller is a participant.
func (s *MatchingService) GetMatch(ctx context.Context, userID, matchID string) (*models.Match, error) {
	return s.participantMatch(ctx, userID, matchID)
}

// AcceptMatch moves a pending match to accepted.
func (s *MatchingService) AcceptMatch(ctx context.Context, userID, matchID string) (*models.Match, error) {
	return s.transition(ctx, userID, matchID, models.MatchStatusAccepted)
}

// DeclineMatch moves a pending match to declined.
func (s *MatchingService) DeclineMatch(ctx context.Context, userID, matchID string) (*models.Match, error) {
	return s.transition(ctx, userID, matchID, models.MatchStatusDeclined)
}

// BlockMatch moves a match to blocked from any non-blocked state.
func (s *MatchingService) BlockMatch(ctx context.Context, userID, matchID string) (*models.Match, error) {
	return s.transition(ctx, userID, matchID, models.MatchStatusBlocked)
}

func (s *MatchingService) transition(ctx context.Context, userID, matchID string, target models.MatchStatus) (*models.Match, error) {
	match, err := s.participantMatch(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Check(ctx, userID, ActionMatchAction, userID); err != nil {
		return nil, err
	}
	if match.Status == models.MatchStatusBlocked {
		return nil, apperr.Conflict("match is blocked")
	}
	if target != models.MatchStatusBlocked && match.Status != models.MatchStatusPending {
		return nil, apperr.Conflict("match is no longer pending")
	}
	if err := s.matches.UpdateStatus(ctx, matchID, target, match.Version); err != nil {
		return nil, err
	}
	match.Status = target
	match.Version++
	match.UpdatedAt = time.Now()
	s.notifyMatchUpdate(match)
	return match, nil
}

// ReportMatch files a safety report against the other participant.
// The match status is left untouched.
func (s *MatchingService) ReportMatch(ctx context.Context, userID, matchID, reason string) (*models.SafetyReport, error) {
	match, err := s.participantMatch(ctx, userID, matchID)
	if err != nil {
		return nil, err
	}
	if err := s.limiter.Check(ctx, userID, ActionMatchAction, userID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.Validation("report reason is required")
	}
	reported := match.MatchedUserID
	if reported == userID {
		reported = match.UserID
	}
	report := &models.SafetyReport{
		ID:         uuid.New().String(),
		ReporterID: userID,
		ReportedID: reported,
		MatchID:    matchID,
		Reason:     reason,
		Status:     "pending",
		CreatedAt:  time.Now(),
	}
	if err := s.reports.Create(ctx, report); err != nil {
		return nil, err
	}
	return report, nil
}

// ListMatches returns all matches the user participates in.
func (s *MatchingService) ListMatches(ctx context.Context, userID string) ([]*models.Match, error) {
	return s.matches.ListByUser(ctx, userID)
}

// UpdatePreferences stores the user's discovery preferences.
func (s *MatchingService) UpdatePreferences(ctx context.Context, prefs *models.MatchPreferences) error {
	if prefs.MaxDistanceKm < 0 {
		return apperr.Validation("max distance must not be negative")
	}
	if prefs.MinAge < 0 || prefs.MaxAge < 0 || (prefs.MaxAge > 0 && prefs.MinAge > prefs.MaxAge) {
		return apperr.Validation("invalid age range")
	}
	return s.matches.UpsertPreferences(ctx, prefs)
}

// Preferences returns stored preferences, or defaults when none exist.
func (s *MatchingService) Preferences(ctx context.Context, userID string) (*models.MatchPreferences, error) {
	prefs, err := s.matches.GetPreferences(ctx, userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return &models.MatchPreferences{UserID: userID, MaxDistanceKm: s.maxDistKm}, nil
		}
		return nil, err
	}
	return prefs, nil
}

func (s *MatchingService) participantMatch(ctx context.Context, userID, matchID string) (*models.Match, error) {
	match, err := s.matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.IsParticipant(userID) {
		return nil, apperr.Forbidden("not a participant of this match")
	}
	return match, nil
}

func (s *MatchingService) notifyMatchUpdate(match *models.Match) {
	if s.hub == nil {
		return
	}
	event := Event{Type: EventMatchUpdate, Payload: match}
	s.hub.SendToUser(match.UserID, EventMatchUpdate.Channel(), event)
	s.hub.SendToUser(match.MatchedUserID, EventMatchUpdate.Channel(), event)
}
