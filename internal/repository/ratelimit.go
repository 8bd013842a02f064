package repository

import (
	"context"
	"fmt"
	"time"

	"disco-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RateLimitRepository handles database operations for sliding-window
// rate-limit attempts. Rows are never updated; the window filter on the
// count query makes old rows irrelevant, and the retention sweep removes
// them eventually.
type RateLimitRepository struct {
	db *pgxpool.Pool
}

// NewRateLimitRepository creates a new rate limit repository
func NewRateLimitRepository(db *pgxpool.Pool) *RateLimitRepository {
	return &RateLimitRepository{db: db}
}

// CountSince counts attempts for (identifier, action) after windowStart
func (r *RateLimitRepository) CountSince(ctx context.Context, identifier, action string, windowStart time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM rate_limit_attempts
		WHERE identifier = $1 AND action = $2 AND created_at >= $3
	`
	var count int
	if err := r.db.QueryRow(ctx, query, identifier, action, windowStart).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rate limit attempts: %w", err)
	}
	return count, nil
}

// Record inserts one attempt row
func (r *RateLimitRepository) Record(ctx context.Context, attempt *models.RateLimitAttempt) error {
	query := `
		INSERT INTO rate_limit_attempts (id, identifier, action, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.db.Exec(ctx, query,
		attempt.ID, attempt.Identifier, attempt.Action, attempt.UserID, attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record rate limit attempt: %w", err)
	}
	return nil
}

// PruneOlderThan deletes attempts older than cutoff
func (r *RateLimitRepository) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM rate_limit_attempts WHERE created_at < $1`
	result, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune rate limit attempts: %w", err)
	}
	return result.RowsAffected(), nil
}
