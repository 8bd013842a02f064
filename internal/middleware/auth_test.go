package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"disco-backend/internal/services"
)

func newAuthedRequest(t *testing.T, svc *services.UserService, userID string) *http.Request {
	t.Helper()
	token, err := svc.GenerateJWT(userID)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestAuthMiddlewareSetsUserID(t *testing.T) {
	svc := services.NewUserService(nil, "test-secret")

	var gotUserID string
	handler := AuthMiddleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserID = GetUserID(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newAuthedRequest(t, svc, "u1"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", gotUserID)
}

func TestAuthMiddlewareRejectsMissingHeader(t *testing.T) {
	svc := services.NewUserService(nil, "test-secret")
	handler := AuthMiddleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsMalformedHeader(t *testing.T) {
	svc := services.NewUserService(nil, "test-secret")
	handler := AuthMiddleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthMiddlewareRejectsForgedToken(t *testing.T) {
	issuer := services.NewUserService(nil, "other-secret")
	verifier := services.NewUserService(nil, "test-secret")

	handler := AuthMiddleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newAuthedRequest(t, issuer, "u1"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestValidateWebSocketToken(t *testing.T) {
	svc := services.NewUserService(nil, "test-secret")
	token, err := svc.GenerateJWT("u9")
	require.NoError(t, err)

	userID, err := ValidateWebSocketToken(token, svc)
	require.NoError(t, err)
	assert.Equal(t, "u9", userID)

	_, err = ValidateWebSocketToken("", svc)
	assert.Error(t, err)
}
