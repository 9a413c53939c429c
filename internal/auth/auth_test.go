package auth

import (
	"testing"
	"time"

	"partner-portal/internal/apperr"
	"partner-portal/internal/config"
	"partner-portal/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testManager(accessTTL time.Duration) *TokenManager {
	return NewTokenManager(&config.AuthConfig{
		JWTSecret:       "test-secret",
		AccessTokenTTL:  accessTTL,
		RefreshTokenTTL: time.Hour,
	})
}

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("secret123")
	require.NoError(t, err)
	assert.NotEqual(t, "secret123", hash)

	assert.True(t, CheckPassword(hash, "secret123"))
	assert.False(t, CheckPassword(hash, "wrong"))
}

func TestGenerateAndParseTokenPair(t *testing.T) {
	m := testManager(time.Minute)
	partner := &models.Partner{ID: 42, Email: "partner@example.com", Role: models.RolePartner}

	pair, err := m.GenerateTokenPair(partner)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, "bearer", pair.TokenType)

	claims, err := m.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.PartnerID)
	assert.Equal(t, "partner@example.com", claims.Email)
	assert.Equal(t, models.RolePartner, claims.Role)
}

func TestParseAccessTokenRejectsRefreshToken(t *testing.T) {
	m := testManager(time.Minute)
	partner := &models.Partner{ID: 1, Email: "p@example.com", Role: models.RolePartner}

	pair, err := m.GenerateTokenPair(partner)
	require.NoError(t, err)

	// refresh-токен нельзя использовать как access
	_, err = m.ParseAccessToken(pair.RefreshToken)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))

	_, err = m.ParseRefreshToken(pair.RefreshToken)
	assert.NoError(t, err)
}

func TestParseExpiredToken(t *testing.T) {
	m := testManager(-time.Minute)
	partner := &models.Partner{ID: 1, Email: "p@example.com", Role: models.RolePartner}

	pair, err := m.GenerateTokenPair(partner)
	require.NoError(t, err)

	_, err = m.ParseAccessToken(pair.AccessToken)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindForbidden))
}

func TestParseTokenWrongSecret(t *testing.T) {
	m := testManager(time.Minute)
	other := NewTokenManager(&config.AuthConfig{
		JWTSecret:       "another-secret",
		AccessTokenTTL:  time.Minute,
		RefreshTokenTTL: time.Hour,
	})
	partner := &models.Partner{ID: 1, Email: "p@example.com", Role: models.RolePartner}

	pair, err := m.GenerateTokenPair(partner)
	require.NoError(t, err)

	_, err = other.ParseAccessToken(pair.AccessToken)
	assert.Error(t, err)
}
