package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-key-do-not-use-in-prod")

func TestGenerateUserJWT_RoundTrip(t *testing.T) {
	userID := uuid.New()

	token, exp, err := GenerateUserJWT(userID, "alice@example.com", true, testSecret)
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.Greater(t, exp, time.Now().Unix())

	claims, err := ValidateUserJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.True(t, claims.IsPremium)
	assert.WithinDuration(t, time.Now().Add(24*time.Hour), claims.ExpiresAt, time.Minute)
}

func TestValidateUserJWT_WrongSecret(t *testing.T) {
	token, _, err := GenerateUserJWT(uuid.New(), "alice@example.com", false, testSecret)
	require.NoError(t, err)

	_, err = ValidateUserJWT(token, []byte("a different secret"))
	assert.Error(t, err)
}

func TestValidateUserJWT_Garbage(t *testing.T) {
	tests := []string{
		"",
		"not.a.jwt",
		"eyJhbGciOiJIUzI1NiJ9.e30.invalid",
	}
	for _, tokenString := range tests {
		_, err := ValidateUserJWT(tokenString, testSecret)
		assert.Error(t, err, "token %q should be rejected", tokenString)
	}
}

func TestValidateUserJWT_FreeTier(t *testing.T) {
	token, _, err := GenerateUserJWT(uuid.New(), "bob@example.com", false, testSecret)
	require.NoError(t, err)

	claims, err := ValidateUserJWT(token, testSecret)
	require.NoError(t, err)
	assert.False(t, claims.IsPremium)
}
