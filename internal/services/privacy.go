package services

import (
	"context"
	"time"

	"disco-backend/internal/apperr"
	"disco-backend/internal/geo"
	"disco-backend/internal/models"

	"github.com/google/uuid"
)

// privacyZoneStore is the persistence the privacy service needs.
type privacyZoneStore interface {
	Create(ctx context.Context, zone *models.PrivacyZone) error
	GetByID(ctx context.Context, id string) (*models.PrivacyZone, error)
	ListByUser(ctx context.Context, userID string) ([]*models.PrivacyZone, error)
	Update(ctx context.Context, zone *models.PrivacyZone) error
	Delete(ctx context.Context, id string) error
}

// CreateZoneInput describes a new privacy zone.
type CreateZoneInput struct {
	Name             string
	Latitude         float64
	Longitude        float64
	RadiusMeters     float64
	HideFromMatching *bool
}

// PrivacyService manages user-defined privacy zones.
type PrivacyService struct {
	store privacyZoneStore
	now   func() time.Time
}

// NewPrivacyService creates a new privacy service
func NewPrivacyService(store privacyZoneStore) *PrivacyService {
	return &PrivacyService{store: store, now: time.Now}
}

// CreateZone creates a zone after validating its shape. Overlap with existing
// zones is reported, not rejected: overlapping zones only widen the hidden
// area, so blocking them would be pure friction.
func (s *PrivacyService) CreateZone(ctx context.Context, userID string, input CreateZoneInput) (*models.PrivacyZone, bool, error) {
	if input.RadiusMeters <= 0 {
		return nil, false, apperr.Validation("radius must be greater than zero")
	}
	if !geo.ValidCoordinates(input.Latitude, input.Longitude) {
		return nil, false, apperr.Validation("invalid zone center coordinates")
	}
	if input.Name == "" {
		return nil, false, apperr.Validation("zone name is required")
	}

	overlaps, err := s.CheckOverlap(ctx, userID, input.Latitude, input.Longitude, input.RadiusMeters, "")
	if err != nil {
		return nil, false, err
	}

	hide := true
	if input.HideFromMatching != nil {
		hide = *input.HideFromMatching
	}

	zone := &models.PrivacyZone{
		ID:               uuid.New().String(),
		UserID:           userID,
		Name:             input.Name,
		Latitude:         input.Latitude,
		Longitude:        input.Longitude,
		RadiusMeters:     input.RadiusMeters,
		HideFromMatching: hide,
		CreatedAt:        s.now(),
	}
	if err := s.store.Create(ctx, zone); err != nil {
		return nil, false, err
	}
	return zone, overlaps, nil
}

// ListZones returns all zones owned by a user
func (s *PrivacyService) ListZones(ctx context.Context, userID string) ([]*models.PrivacyZone, error) {
	return s.store.ListByUser(ctx, userID)
}

// UpdateZone updates an owned zone's fields
func (s *PrivacyService) UpdateZone(ctx context.Context, userID, zoneID string, input CreateZoneInput) (*models.PrivacyZone, error) {
	zone, err := s.store.GetByID(ctx, zoneID)
	if err != nil {
		return nil, err
	}
	if zone.UserID != userID {
		return nil, apperr.Forbidden("zone belongs to another user")
	}
	if input.RadiusMeters <= 0 {
		return nil, apperr.Validation("radius must be greater than zero")
	}
	if !geo.ValidCoordinates(input.Latitude, input.Longitude) {
		return nil, apperr.Validation("invalid zone center coordinates")
	}

	zone.Name = input.Name
	zone.Latitude = input.Latitude
	zone.Longitude = input.Longitude
	zone.RadiusMeters = input.RadiusMeters
	if input.HideFromMatching != nil {
		zone.HideFromMatching = *input.HideFromMatching
	}

	if err := s.store.Update(ctx, zone); err != nil {
		return nil, err
	}
	return zone, nil
}

// DeleteZone deletes an owned zone
func (s *PrivacyService) DeleteZone(ctx context.Context, userID, zoneID string) error {
	zone, err := s.store.GetByID(ctx, zoneID)
	if err != nil {
		return err
	}
	if zone.UserID != userID {
		return apperr.Forbidden("zone belongs to another user")
	}
	return s.store.Delete(ctx, zoneID)
}

// CheckOverlap reports whether a circle overlaps any of the user's existing
// zones, excluding excludeZoneID.
func (s *PrivacyService) CheckOverlap(ctx context.Context, userID string, lat, lon, radiusMeters float64, excludeZoneID string) (bool, error) {
	zones, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, zone := range zones {
		if zone.ID == excludeZoneID {
			continue
		}
		centerDistance := geo.DistanceKm(lat, lon, zone.Latitude, zone.Longitude) * 1000
		if centerDistance < radiusMeters+zone.RadiusMeters {
			return true, nil
		}
	}
	return false, nil
}

// IsHidden reports whether a position falls inside one of the user's own
// zones flagged to hide them from matching.
func (s *PrivacyService) IsHidden(ctx context.Context, userID string, lat, lon float64) (bool, error) {
	zones, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, zone := range zones {
		if !zone.HideFromMatching {
			continue
		}
		if geo.IsWithinZone(lat, lon, zone.Latitude, zone.Longitude, zone.RadiusMeters) {
			return true, nil
		}
	}
	return false, nil
}
