package utils

import (
	"testing"
	"time"

	"CipherChat/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jwtTestConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret: "test-secret",
		Issuer: "cipherchat-test",
		Expire: time.Hour,
	}
}

func TestGenerateAndParseToken(t *testing.T) {
	cfg := jwtTestConfig()

	token, err := GenerateToken(cfg, "u1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserUUID)
	assert.Equal(t, cfg.Issuer, claims.Issuer)
}

func TestParseTokenFailures(t *testing.T) {
	cfg := jwtTestConfig()

	t.Run("garbage_token", func(t *testing.T) {
		_, err := ParseToken(cfg, "not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong_secret", func(t *testing.T) {
		token, err := GenerateToken(cfg, "u1")
		require.NoError(t, err)

		other := cfg
		other.Secret = "another-secret"
		_, err = ParseToken(other, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired_token", func(t *testing.T) {
		short := cfg
		short.Expire = -time.Minute
		token, err := GenerateToken(short, "u1")
		require.NoError(t, err)

		_, err = ParseToken(cfg, token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("missing_user_uuid", func(t *testing.T) {
		token, err := GenerateToken(cfg, "")
		require.NoError(t, err)

		_, err = ParseToken(cfg, token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
