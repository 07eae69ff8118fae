package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"relcalc/internal/auth"
	"relcalc/internal/quota"
)

var testSecret = []byte("identity-test-secret")

func callerCapturingHandler(captured *quota.Caller, found *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured, *found = GetCaller(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestIdentityMiddleware_AnonymousByIP(t *testing.T) {
	var caller quota.Caller
	var found bool

	handler := IdentityMiddleware(testSecret)(callerCapturingHandler(&caller, &found))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.7:51234"
	handler.ServeHTTP(httptest.NewRecorder(), r)

	require.True(t, found)
	assert.Equal(t, "203.0.113.7", caller.Identity)
	assert.Equal(t, quota.TierFree, caller.Tier)
	assert.False(t, caller.Authenticated)
}

func TestIdentityMiddleware_ForwardedFor(t *testing.T) {
	var caller quota.Caller
	var found bool

	handler := IdentityMiddleware(testSecret)(callerCapturingHandler(&caller, &found))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	r.Header.Set("X-Forwarded-For", "198.51.100.9, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	require.True(t, found)
	assert.Equal(t, "198.51.100.9", caller.Identity)
}

func TestIdentityMiddleware_AuthenticatedUser(t *testing.T) {
	userID := uuid.New()
	token, _, err := auth.GenerateUserJWT(userID, "alice@example.com", true, testSecret)
	require.NoError(t, err)

	var caller quota.Caller
	var found bool
	var claims *auth.UserClaims
	var hasClaims bool

	handler := IdentityMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		caller, found = GetCaller(r.Context())
		claims, hasClaims = GetUserClaims(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	require.True(t, found)
	assert.Equal(t, userID.String(), caller.Identity)
	assert.Equal(t, quota.TierPremium, caller.Tier)
	assert.True(t, caller.Authenticated)
	require.True(t, hasClaims)
	assert.Equal(t, "alice@example.com", claims.Email)
}

func TestIdentityMiddleware_InvalidTokenFallsBackToIP(t *testing.T) {
	var caller quota.Caller
	var found bool

	handler := IdentityMiddleware(testSecret)(callerCapturingHandler(&caller, &found))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "203.0.113.8:40000"
	r.Header.Set("Authorization", "Bearer not-a-real-token")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	require.True(t, found)
	assert.Equal(t, "203.0.113.8", caller.Identity)
	assert.Equal(t, quota.TierFree, caller.Tier)
}

func TestRequireUser(t *testing.T) {
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := IdentityMiddleware(testSecret)(RequireUser(inner))

	// Anonymous request is rejected.
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// Authenticated request passes.
	token, _, err := auth.GenerateUserJWT(uuid.New(), "bob@example.com", false, testSecret)
	require.NoError(t, err)

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	assert.Equal(t, http.StatusOK, w.Code)
}
