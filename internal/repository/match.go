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

// MatchRepository handles database operations for matches and preferences
type MatchRepository struct {
	db *pgxpool.Pool
}

// NewMatchRepository creates a new match repository
func NewMatchRepository(db *pgxpool.Pool) *MatchRepository {
	return &MatchRepository{db: db}
}

// Create creates a new match
func (r *MatchRepository) Create(ctx context.Context, match *models.Match) error {
	query := `
		INSERT INTO matches (id, user_id, matched_user_id, status, score, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		match.ID, match.UserID, match.MatchedUserID, match.Status,
		match.Score, match.Version, match.CreatedAt, match.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	return nil
}

// GetByID retrieves a match by ID
func (r *MatchRepository) GetByID(ctx context.Context, id string) (*models.Match, error) {
	query := `
		SELECT id, user_id, matched_user_id, status, score, version, created_at, updated_at
		FROM matches
		WHERE id = $1
	`
	var match models.Match
	err := r.db.QueryRow(ctx, query, id).Scan(
		&match.ID, &match.UserID, &match.MatchedUserID, &match.Status,
		&match.Score, &match.Version, &match.CreatedAt, &match.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, "match not found", err)
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return &match, nil
}

// GetByPair retrieves the match between two users in either direction, if any
func (r *MatchRepository) GetByPair(ctx context.Context, userA, userB string) (*models.Match, error) {
	query := `
		SELECT id, user_id, matched_user_id, status, score, version, created_at, updated_at
		FROM matches
		WHERE (user_id = $1 AND matched_user_id = $2) OR (user_id = $2 AND matched_user_id = $1)
		LIMIT 1
	`
	var match models.Match
	err := r.db.QueryRow(ctx, query, userA, userB).Scan(
		&match.ID, &match.UserID, &match.MatchedUserID, &match.Status,
		&match.Score, &match.Version, &match.CreatedAt, &match.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, "match not found", err)
		}
		return nil, fmt.Errorf("failed to get match by pair: %w", err)
	}
	return &match, nil
}

// ListByUser retrieves matches where the user is either participant
func (r *MatchRepository) ListByUser(ctx context.Context, userID string) ([]*models.Match, error) {
	query := `
		SELECT id, user_id, matched_user_id, status, score, version, created_at, updated_at
		FROM matches
		WHERE user_id = $1 OR matched_user_id = $1
		ORDER BY updated_at DESC
	`
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list matches: %w", err)
	}
	defer rows.Close()

	var matches []*models.Match
	for rows.Next() {
		var match models.Match
		if err := rows.Scan(
			&match.ID, &match.UserID, &match.MatchedUserID, &match.Status,
			&match.Score, &match.Version, &match.CreatedAt, &match.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match: %w", err)
		}
		matches = append(matches, &match)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read matches: %w", err)
	}
	return matches, nil
}

// UpdateStatus transitions a match only when the caller holds the expected
// version. A stale version means a concurrent transition won; callers get
// Conflict instead of a silent overwrite.
func (r *MatchRepository) UpdateStatus(ctx context.Context, id string, status models.MatchStatus, expectedVersion int) error {
	query := `
		UPDATE matches
		SET status = $1, version = version + 1, updated_at = now()
		WHERE id = $2 AND version = $3
	`
	result, err := r.db.Exec(ctx, query, status, id, expectedVersion)
	if err != nil {
		return fmt.Errorf("failed to update match status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.Conflict("match was modified concurrently")
	}
	return nil
}

// GetPreferences retrieves a user's match preferences
func (r *MatchRepository) GetPreferences(ctx context.Context, userID string) (*models.MatchPreferences, error) {
	query := `
		SELECT user_id, max_distance_km, min_age, max_age, interests, activity_types,
			availability, time_window, verified_only, with_photo, updated_at
		FROM match_preferences
		WHERE user_id = $1
	`
	var prefs models.MatchPreferences
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&prefs.UserID, &prefs.MaxDistanceKm, &prefs.MinAge, &prefs.MaxAge,
		&prefs.Interests, &prefs.ActivityTypes, &prefs.Availability,
		&prefs.TimeWindow, &prefs.VerifiedOnly, &prefs.WithPhoto, &prefs.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Wrap(apperr.KindNotFound, "match preferences not found", err)
		}
		return nil, fmt.Errorf("failed to get match preferences: %w", err)
	}
	return &prefs, nil
}

// GetPreferencesForUsers retrieves preferences for a set of users at once
func (r *MatchRepository) GetPreferencesForUsers(ctx context.Context, userIDs []string) (map[string]*models.MatchPreferences, error) {
	query := `
		SELECT user_id, max_distance_km, min_age, max_age, interests, activity_types,
			availability, time_window, verified_only, with_photo, updated_at
		FROM match_preferences
		WHERE user_id = ANY($1)
	`
	rows, err := r.db.Query(ctx, query, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query match preferences: %w", err)
	}
	defer rows.Close()

	prefsByUser := make(map[string]*models.MatchPreferences, len(userIDs))
	for rows.Next() {
		var prefs models.MatchPreferences
		if err := rows.Scan(
			&prefs.UserID, &prefs.MaxDistanceKm, &prefs.MinAge, &prefs.MaxAge,
			&prefs.Interests, &prefs.ActivityTypes, &prefs.Availability,
			&prefs.TimeWindow, &prefs.VerifiedOnly, &prefs.WithPhoto, &prefs.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan match preferences: %w", err)
		}
		prefsByUser[prefs.UserID] = &prefs
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read match preferences: %w", err)
	}
	return prefsByUser, nil
}

// UpsertPreferences creates or replaces a user's match preferences
func (r *MatchRepository) UpsertPreferences(ctx context.Context, prefs *models.MatchPreferences) error {
	query := `
		INSERT INTO match_preferences (user_id, max_distance_km, min_age, max_age, interests,
			activity_types, availability, time_window, verified_only, with_photo, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id) DO UPDATE SET
			max_distance_km = EXCLUDED.max_distance_km,
			min_age = EXCLUDED.min_age,
			max_age = EXCLUDED.max_age,
			interests = EXCLUDED.interests,
			activity_types = EXCLUDED.activity_types,
			availability = EXCLUDED.availability,
			time_window = EXCLUDED.time_window,
			verified_only = EXCLUDED.verified_only,
			with_photo = EXCLUDED.with_photo,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.Exec(ctx, query,
		prefs.UserID, prefs.MaxDistanceKm, prefs.MinAge, prefs.MaxAge, prefs.Interests,
		prefs.ActivityTypes, prefs.Availability, prefs.TimeWindow,
		prefs.VerifiedOnly, prefs.WithPhoto, prefs.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert match preferences: %w", err)
	}
	return nil
}
