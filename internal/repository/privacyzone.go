package repository

import (
	"context"
	"errors"
	"fmt"

	"disco-backend/internal/apperr"
	"disco-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PrivacyZoneRepository handles database operations for privacy zones
type PrivacyZoneRepository struct {
	db *pgxpool.Pool
}

// NewPrivacyZoneRepository creates a new privacy zone repository
func NewPrivacyZoneRepository(db *pgxpool.Pool) *PrivacyZoneRepository {
	return &PrivacyZoneRepository{db: db}
}

// Create creates a new privacy zone
func (r *PrivacyZoneRepository) Create(ctx context.Context, zone *models.PrivacyZone) error {
	query := `
		INSERT INTO privacy_zones (id, user_id, name, latitude, longitude, radius_meters, hide_from_matching, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		zone.ID, zone.UserID, zone.Name, zone.Latitude, zone.Longitude,
		zone.RadiusMeters, zone.HideFromMatching, zone.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create privacy zone: %w", err)
	}
	return nil
}

// GetByID retrieves a privacy zone by ID
func (r *PrivacyZoneRepository) GetByID(ctx context.Context, id string) (*models.PrivacyZone, error) {
	query := `
		SELECT id, user_id, name, latitude, longitude, radius_meters, hide_from_matching, created_at
		FROM privacy_zones
		WHERE id = $1
	`
	var zone models.PrivacyZone
	err := r.db.QueryRow(ctx, query, id).Scan(
		&zone.ID, &zone.UserID, &zone.Name, &zone.Latitude, &zone.Longitude,
		&zone.RadiusMeters, &zone.HideFromMatching, &zone.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, "privacy zone not found", err)
		}
		return nil, fmt.Errorf("failed to get privacy zone: %w", err)
	}
	return &zone, nil
}

// ListByUser retrieves all privacy zones owned by a user
func (r *PrivacyZoneRepository) ListByUser(ctx context.Context, userID string) ([]*models.PrivacyZone, error) {
	query := `
		SELECT id, user_id, name, latitude, longitude, radius_meters, hide_from_matching, created_at
		FROM privacy_zones
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list privacy zones: %w", err)
	}
	defer rows.Close()

	var zones []*models.PrivacyZone
	for rows.Next() {
		var zone models.PrivacyZone
		if err := rows.Scan(
			&zone.ID, &zone.UserID, &zone.Name, &zone.Latitude, &zone.Longitude,
			&zone.RadiusMeters, &zone.HideFromMatching, &zone.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan privacy zone: %w", err)
		}
		zones = append(zones, &zone)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read privacy zones: %w", err)
	}
	return zones, nil
}

// Update updates a zone's mutable fields
func (r *PrivacyZoneRepository) Update(ctx context.Context, zone *models.PrivacyZone) error {
	query := `
		UPDATE privacy_zones
		SET name = $1, latitude = $2, longitude = $3, radius_meters = $4, hide_from_matching = $5
		WHERE id = $6
	`
	result, err := r.db.Exec(ctx, query,
		zone.Name, zone.Latitude, zone.Longitude, zone.RadiusMeters,
		zone.HideFromMatching, zone.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update privacy zone: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("privacy zone not found")
	}
	return nil
}

// Delete deletes a privacy zone by ID
func (r *PrivacyZoneRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM privacy_zones WHERE id = $1`
	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete privacy zone: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("privacy zone not found")
	}
	return nil
}
