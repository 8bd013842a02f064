package services

import (
	"context"
	"time"

	"disco-backend/internal/apperr"
	"disco-backend/internal/geo"
	"disco-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// locationRetention is how long location rows stay queryable before the
// write-path prune and the retention sweep remove them.
const locationRetention = 24 * time.Hour

// pruneTimeout bounds the detached prune that follows a location write.
const pruneTimeout = 10 * time.Second

// locationStore is the persistence the location service needs.
type locationStore interface {
	Create(ctx context.Context, loc *models.LocationRecord) error
	GetCurrent(ctx context.Context, userID string) (*models.LocationRecord, error)
	PruneOlderThan(ctx context.Context, userID string, cutoff time.Time) (int64, error)
	GetNearby(ctx context.Context, box geo.BoundingBox, since time.Time, excludeUserID string) ([]*models.LocationRecord, error)
}

// RecordLocationInput is the canonical update payload. There is exactly one
// update contract; partial state changes go through UpdateSharingState.
type RecordLocationInput struct {
	Latitude       float64
	Longitude      float64
	Accuracy       *float64
	PrivacyMode    models.PrivacyMode
	SharingEnabled *bool
}

// SharingStateInput carries a metadata-only update.
type SharingStateInput struct {
	PrivacyMode    *models.PrivacyMode
	SharingEnabled *bool
}

// LocationService maintains the per-user append-only location log.
type LocationService struct {
	store locationStore
	now   func() time.Time
}

// NewLocationService creates a new location service
func NewLocationService(store locationStore) *LocationService {
	return &LocationService{store: store, now: time.Now}
}

// RecordLocation validates and appends a location record, then prunes the
// user's stale rows in a detached task. Prune failures are logged, never
// surfaced: retention is best effort and must not fail the write.
func (s *LocationService) RecordLocation(ctx context.Context, userID string, input RecordLocationInput) (*models.LocationRecord, error) {
	if !geo.ValidCoordinates(input.Latitude, input.Longitude) {
		return nil, apperr.Validation("latitude and longitude are required and must be in range")
	}

	mode := input.PrivacyMode
	if mode == "" {
		mode = models.PrivacyModePrecise
	}
	if !mode.Valid() {
		return nil, apperr.Validation("invalid privacy mode")
	}

	sharing := true
	if input.SharingEnabled != nil {
		sharing = *input.SharingEnabled
	}

	loc := &models.LocationRecord{
		ID:             uuid.New().String(),
		UserID:         userID,
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		Accuracy:       input.Accuracy,
		PrivacyMode:    mode,
		SharingEnabled: sharing,
		Timestamp:      s.now(),
	}
	if err := s.store.Create(ctx, loc); err != nil {
		return nil, err
	}

	go s.pruneStale(userID)

	return loc, nil
}

// CurrentLocation returns the most recent location record for a user
func (s *LocationService) CurrentLocation(ctx context.Context, userID string) (*models.LocationRecord, error) {
	return s.store.GetCurrent(ctx, userID)
}

// UpdateSharingState creates a new record copying the prior current row's
// coordinates with the changed metadata overlaid. Requires an existing
// current location; the log stays append-only.
func (s *LocationService) UpdateSharingState(ctx context.Context, userID string, input SharingStateInput) (*models.LocationRecord, error) {
	if input.PrivacyMode == nil && input.SharingEnabled == nil {
		return nil, apperr.Validation("nothing to update")
	}
	if input.PrivacyMode != nil && !input.PrivacyMode.Valid() {
		return nil, apperr.Validation("invalid privacy mode")
	}

	current, err := s.store.GetCurrent(ctx, userID)
	if err != nil {
		return nil, err
	}

	next := &models.LocationRecord{
		ID:             uuid.New().String(),
		UserID:         userID,
		Latitude:       current.Latitude,
		Longitude:      current.Longitude,
		Accuracy:       current.Accuracy,
		PrivacyMode:    current.PrivacyMode,
		SharingEnabled: current.SharingEnabled,
		Timestamp:      s.now(),
	}
	if input.PrivacyMode != nil {
		next.PrivacyMode = *input.PrivacyMode
	}
	if input.SharingEnabled != nil {
		next.SharingEnabled = *input.SharingEnabled
	}

	if err := s.store.Create(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// NearbyLocations returns the fresh, sharing-enabled current locations of
// other users within radiusMeters. Bounding box pre-filter, haversine refine.
func (s *LocationService) NearbyLocations(ctx context.Context, userID string, lat, lon, radiusMeters float64) ([]*models.LocationRecord, error) {
	box := geo.BoxAround(lat, lon, radiusMeters)
	since := s.now().Add(-locationRetention)

	inBox, err := s.store.GetNearby(ctx, box, since, userID)
	if err != nil {
		return nil, err
	}

	nearby := inBox[:0]
	for _, loc := range inBox {
		if geo.DistanceKm(lat, lon, loc.Latitude, loc.Longitude)*1000 <= radiusMeters {
			nearby = append(nearby, loc)
		}
	}
	return nearby, nil
}

func (s *LocationService) pruneStale(userID string) {
	ctx, cancel := context.WithTimeout(context.Background(), pruneTimeout)
	defer cancel()

	cutoff := s.now().Add(-locationRetention)
	pruned, err := s.store.PruneOlderThan(ctx, userID, cutoff)
	if err != nil {
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to prune stale locations")
		return
	}
	if pruned > 0 {
		log.Debug().Str("user_id", userID).Int64("pruned", pruned).Msg("Pruned stale locations")
	}
}
