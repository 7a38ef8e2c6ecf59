package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewAccessTokenClaims(t *testing.T) {
	tok, err := NewAccessToken("s3cret", "staff-1", "STAFF", "bar-1", 15)
	require.NoError(t, err)

	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("s3cret"), nil })
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "staff-1", claims["sub"])
	assert.Equal(t, "STAFF", claims["role"])
	assert.Equal(t, "bar-1", claims["bar_id"])
	assert.Equal(t, tok.Exp.Unix(), int64(claims["exp"].(float64)))
}

func TestNewAccessTokenNeedsSecret(t *testing.T) {
	_, err := NewAccessToken("", "staff-1", "STAFF", "bar-1", 15)
	assert.Error(t, err)
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, VerifyPassword(hash, "hunter2"))
	assert.False(t, VerifyPassword(hash, "hunter3"))
}
