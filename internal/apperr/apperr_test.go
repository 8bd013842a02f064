package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodeMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{Validation("bad input"), http.StatusBadRequest},
		{New(KindAuthRequired, "no token"), http.StatusUnauthorized},
		{Forbidden("not yours"), http.StatusForbidden},
		{NotFound("missing"), http.StatusNotFound},
		{Conflict("stale"), http.StatusConflict},
		{RateLimited("slow down"), http.StatusTooManyRequests},
		{New(KindUnavailable, "down"), http.StatusServiceUnavailable},
		{New(KindInternal, "boom"), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusCode(tt.err))
	}
}

func TestKindOfUnwrapsThroughWrapping(t *testing.T) {
	inner := NotFound("row missing")
	wrapped := fmt.Errorf("loading profile: %w", inner)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, "row missing", MessageOf(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := Wrap(KindUnavailable, "database unreachable", cause)
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, KindUnavailable, KindOf(err))
}

func TestMessageOfPlainError(t *testing.T) {
	assert.Equal(t, "internal server error", MessageOf(errors.New("secret detail")))
}
