package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maiyoury/pkasla/pkg/config"
)

func jwtConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "pkasla",
		ExpirationMinutes: 15,
	}
}

func TestMintAndParseAccessToken(t *testing.T) {
	cfg := jwtConfig()
	userID := uuid.New()

	token, err := MintAccessToken(cfg, time.Now(), userID, "couple@example.com")
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "couple@example.com", claims.Email)
	assert.Equal(t, "pkasla", claims.Issuer)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	cfg := jwtConfig()
	token, err := MintAccessToken(cfg, time.Now(), uuid.New(), "")
	require.NoError(t, err)

	bad := cfg
	bad.Secret = "other-secret"
	_, err = ParseAccessToken(bad, token)
	require.Error(t, err)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := jwtConfig()
	token, err := MintAccessToken(cfg, time.Now().Add(-time.Hour), uuid.New(), "")
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, token)
	require.Error(t, err)
}

func TestMintAccessTokenRequiresSecret(t *testing.T) {
	cfg := jwtConfig()
	cfg.Secret = ""
	_, err := MintAccessToken(cfg, time.Now(), uuid.New(), "")
	require.Error(t, err)
}
