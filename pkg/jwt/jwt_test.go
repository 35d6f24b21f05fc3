package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/xiebiao/supplestore/pkg/errors"
)

func TestManager_GenerateAndParse(t *testing.T) {
	m := NewManager("test-secret", time.Hour, 24*time.Hour)

	pair, err := m.GenerateToken(7, "admin@example.com", "admin")
	require.NoError(t, err)
	assert.Equal(t, int64(3600), pair.ExpiresIn)

	claims, err := m.ParseAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "admin@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "supplestore", claims.Issuer)

	t.Run("Refresh Token不能当Access Token使用", func(t *testing.T) {
		_, err := m.ParseAccessToken(pair.RefreshToken)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("刷新Access Token", func(t *testing.T) {
		token, err := m.RefreshAccessToken(pair.RefreshToken, "admin@example.com", "customer")
		require.NoError(t, err)
		claims, err := m.ParseAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, "customer", claims.Role)
	})

	t.Run("Access Token不能用于刷新", func(t *testing.T) {
		_, err := m.RefreshAccessToken(pair.AccessToken, "", "")
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}

func TestManager_ParseToken_Errors(t *testing.T) {
	m := NewManager("test-secret", time.Hour, time.Hour)

	t.Run("过期", func(t *testing.T) {
		expired := NewManager("test-secret", -time.Minute, time.Hour)
		pair, err := expired.GenerateToken(1, "a@b.com", "customer")
		require.NoError(t, err)

		_, err = m.ParseToken(pair.AccessToken)
		assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
	})

	t.Run("密钥不匹配", func(t *testing.T) {
		other := NewManager("another-secret", time.Hour, time.Hour)
		pair, err := other.GenerateToken(1, "a@b.com", "customer")
		require.NoError(t, err)

		_, err = m.ParseToken(pair.AccessToken)
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("格式错误", func(t *testing.T) {
		_, err := m.ParseToken("not-a-jwt")
		assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})
}

func TestClaims_RemainingTTL(t *testing.T) {
	m := NewManager("s", 30*time.Minute, time.Hour)
	pair, err := m.GenerateToken(1, "a@b.com", "customer")
	require.NoError(t, err)
	claims, err := m.ParseToken(pair.AccessToken)
	require.NoError(t, err)

	ttl := claims.RemainingTTL(time.Now())
	assert.True(t, ttl > 29*time.Minute && ttl <= 30*time.Minute)
}
