package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lamnguyen-dev/pharmapos-backend/pkg/config"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{Secret: "unit-test-secret", Issuer: "pharmapos"}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()

	raw, err := NewAccessToken(cfg, userID, "lan.pham", time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(cfg, raw)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "lan.pham", claims.Name)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
}

func TestParseAccessTokenRejectsExpired(t *testing.T) {
	cfg := testJWTConfig()

	raw, err := NewAccessToken(cfg, uuid.New(), "lan.pham", -time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(cfg, raw)
	assert.Error(t, err)
}

func TestParseAccessTokenRejectsWrongSecret(t *testing.T) {
	raw, err := NewAccessToken(testJWTConfig(), uuid.New(), "lan.pham", time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(config.JWTConfig{Secret: "other", Issuer: "pharmapos"}, raw)
	assert.Error(t, err)
}

func TestParseAccessTokenRejectsWrongIssuer(t *testing.T) {
	raw, err := NewAccessToken(testJWTConfig(), uuid.New(), "lan.pham", time.Minute)
	require.NoError(t, err)

	_, err = ParseAccessToken(config.JWTConfig{Secret: "unit-test-secret", Issuer: "someone-else"}, raw)
	assert.Error(t, err)
}

func TestNewAccessTokenRequiresUser(t *testing.T) {
	_, err := NewAccessToken(testJWTConfig(), uuid.Nil, "ghost", time.Minute)
	assert.Error(t, err)
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	_, err := ParseAccessToken(testJWTConfig(), "definitely.not.a.token")
	assert.Error(t, err)
}
