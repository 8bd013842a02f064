package services

import (
	"context"
	"fmt"
	"time"

	"disco-backend/internal/apperr"
	"disco-backend/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	rateLimitWindow      = 60 * time.Second
	rateLimitMaxAttempts = 5
)

// Rate-limited action names.
const (
	ActionGetMatches  = "get_matches"
	ActionMatchAction = "match_action"
)

// rateLimitStore is the persistence the limiter needs.
type rateLimitStore interface {
	CountSince(ctx context.Context, identifier, action string, windowStart time.Time) (int, error)
	Record(ctx context.Context, attempt *models.RateLimitAttempt) error
}

// RateLimiter enforces a sliding 60-second window of at most 5 attempts per
// (identifier, action) pair. The check runs before the guarded action, never
// after.
type RateLimiter struct {
	store rateLimitStore
	now   func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(store rateLimitStore) *RateLimiter {
	return &RateLimiter{store: store, now: time.Now}
}

// Check returns RateLimited when the window is exhausted; otherwise it
// records the attempt and allows the action.
func (l *RateLimiter) Check(ctx context.Context, identifier, action string, userID string) error {
	windowStart := l.now().Add(-rateLimitWindow)

	count, err := l.store.CountSince(ctx, identifier, action, windowStart)
	if err != nil {
		return fmt.Errorf("failed to check rate limit: %w", err)
	}
	if count >= rateLimitMaxAttempts {
		log.Warn().Str("identifier", identifier).Str("action", action).Int("attempts", count).
			Msg("Rate limit exceeded")
		return apperr.RateLimited("too many requests")
	}

	attempt := &models.RateLimitAttempt{
		ID:         uuid.New().String(),
		Identifier: identifier,
		Action:     action,
		CreatedAt:  l.now(),
	}
	if userID != "" {
		attempt.UserID = &userID
	}
	if err := l.store.Record(ctx, attempt); err != nil {
		return fmt.Errorf("failed to record rate limit attempt: %w", err)
	}
	return nil
}
