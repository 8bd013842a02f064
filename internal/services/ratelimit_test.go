package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disco-backend/internal/apperr"
	"disco-backend/internal/models"
)

type fakeRateLimitStore struct {
	attempts []*models.RateLimitAttempt
}

func (f *fakeRateLimitStore) CountSince(_ context.Context, identifier, action string, windowStart time.Time) (int, error) {
	n := 0
	for _, a := range f.attempts {
		if a.Identifier == identifier && a.Action == action && !a.CreatedAt.Before(windowStart) {
			n++
		}
	}
	return n, nil
}

func (f *fakeRateLimitStore) Record(_ context.Context, attempt *models.RateLimitAttempt) error {
	f.attempts = append(f.attempts, attempt)
	return nil
}

func newRateLimiter(store rateLimitStore, now time.Time) *RateLimiter {
	l := NewRateLimiter(store)
	l.now = func() time.Time { return now }
	return l
}

func TestRateLimiterAllowsUpToFive(t *testing.T) {
	limiter := newRateLimiter(&fakeRateLimitStore{}, time.Now())

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Check(context.Background(), "u1", ActionGetMatches, "u1"))
	}
	err := limiter.Check(context.Background(), "u1", ActionGetMatches, "u1")
	assert.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))
}

func TestRateLimiterWindowsAreIndependentPerAction(t *testing.T) {
	store := &fakeRateLimitStore{}
	limiter := newRateLimiter(store, time.Now())

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Check(context.Background(), "u1", ActionGetMatches, "u1"))
	}
	// a different action still has headroom
	assert.NoError(t, limiter.Check(context.Background(), "u1", ActionMatchAction, "u1"))
	// a different identifier too
	assert.NoError(t, limiter.Check(context.Background(), "u2", ActionGetMatches, "u2"))
}

func TestRateLimiterWindowSlides(t *testing.T) {
	store := &fakeRateLimitStore{}
	base := time.Now()
	limiter := newRateLimiter(store, base)

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Check(context.Background(), "u1", ActionGetMatches, "u1"))
	}
	err := limiter.Check(context.Background(), "u1", ActionGetMatches, "u1")
	require.Equal(t, apperr.KindRateLimited, apperr.KindOf(err))

	// 61 seconds later the old attempts fall out of the window
	limiter.now = func() time.Time { return base.Add(61 * time.Second) }
	assert.NoError(t, limiter.Check(context.Background(), "u1", ActionGetMatches, "u1"))
}

func TestRateLimiterDeniedCheckStillCounts(t *testing.T) {
	store := &fakeRateLimitStore{}
	limiter := newRateLimiter(store, time.Now())

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Check(context.Background(), "u1", ActionGetMatches, "u1"))
	}
	before := len(store.attempts)
	_ = limiter.Check(context.Background(), "u1", ActionGetMatches, "u1")
	// a rejected attempt is not recorded; the window stays at five
	assert.Equal(t, before, len(store.attempts))
}
