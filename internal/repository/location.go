package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"disco-backend/internal/apperr"
	"disco-backend/internal/geo"
	"disco-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// LocationRepository handles database operations for the location log
type LocationRepository struct {
	db *pgxpool.Pool
}

// NewLocationRepository creates a new location repository
func NewLocationRepository(db *pgxpool.Pool) *LocationRepository {
	return &LocationRepository{db: db}
}

// Create appends a new location record
func (r *LocationRepository) Create(ctx context.Context, loc *models.LocationRecord) error {
	query := `
		INSERT INTO locations (id, user_id, latitude, longitude, accuracy, privacy_mode, sharing_enabled, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		loc.ID, loc.UserID, loc.Latitude, loc.Longitude, loc.Accuracy,
		loc.PrivacyMode, loc.SharingEnabled, loc.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("failed to create location record: %w", err)
	}
	return nil
}

// GetCurrent retrieves the most recent location record for a user
func (r *LocationRepository) GetCurrent(ctx context.Context, userID string) (*models.LocationRecord, error) {
	query := `
		SELECT id, user_id, latitude, longitude, accuracy, privacy_mode, sharing_enabled, timestamp
		FROM locations
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT 1
	`
	var loc models.LocationRecord
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&loc.ID, &loc.UserID, &loc.Latitude, &loc.Longitude, &loc.Accuracy,
		&loc.PrivacyMode, &loc.SharingEnabled, &loc.Timestamp,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, "location not found", err)
		}
		return nil, fmt.Errorf("failed to get current location: %w", err)
	}
	return &loc, nil
}

// PruneOlderThan deletes a user's location records older than cutoff
func (r *LocationRepository) PruneOlderThan(ctx context.Context, userID string, cutoff time.Time) (int64, error) {
	query := `DELETE FROM locations WHERE user_id = $1 AND timestamp < $2`
	result, err := r.db.Exec(ctx, query, userID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune locations: %w", err)
	}
	return result.RowsAffected(), nil
}

// PruneAllOlderThan deletes every location record older than cutoff, across
// all users. Used by the retention sweep.
func (r *LocationRepository) PruneAllOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM locations WHERE timestamp < $1`
	result, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune locations: %w", err)
	}
	return result.RowsAffected(), nil
}

// GetNearby returns the current (latest, unexpired, sharing-enabled) location
// of every user other than excludeUserID inside the bounding box. The box is
// a pre-filter; callers refine with exact haversine distance.
func (r *LocationRepository) GetNearby(ctx context.Context, box geo.BoundingBox, since time.Time, excludeUserID string) ([]*models.LocationRecord, error) {
	query := `
		SELECT DISTINCT ON (user_id)
			id, user_id, latitude, longitude, accuracy, privacy_mode, sharing_enabled, timestamp
		FROM locations
		WHERE user_id <> $1
		AND sharing_enabled = true
		AND timestamp >= $2
		AND latitude BETWEEN $3 AND $4
		AND longitude BETWEEN $5 AND $6
		ORDER BY user_id, timestamp DESC
	`
	rows, err := r.db.Query(ctx, query,
		excludeUserID, since, box.MinLat, box.MaxLat, box.MinLon, box.MaxLon,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query nearby locations: %w", err)
	}
	defer rows.Close()

	var locations []*models.LocationRecord
	for rows.Next() {
		var loc models.LocationRecord
		if err := rows.Scan(
			&loc.ID, &loc.UserID, &loc.Latitude, &loc.Longitude, &loc.Accuracy,
			&loc.PrivacyMode, &loc.SharingEnabled, &loc.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("failed to scan nearby location: %w", err)
		}
		locations = append(locations, &loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read nearby locations: %w", err)
	}
	return locations, nil
}
