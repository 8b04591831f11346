package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_AccessRoundTrip(t *testing.T) {
	m := NewJWTManager("secret", 1, 7)

	tok, err := m.GenerateToken(42, "alice")
	require.NoError(t, err)

	claims, err := m.VerifyToken(tok)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTManager_RejectsWrongType(t *testing.T) {
	m := NewJWTManager("secret", 1, 7)

	refresh, err := m.GenerateRefreshToken(1, "bob")
	require.NoError(t, err)
	_, err = m.VerifyToken(refresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	access, err := m.GenerateToken(1, "bob")
	require.NoError(t, err)
	_, err = m.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestJWTManager_RejectsOtherSecret(t *testing.T) {
	tok, err := NewJWTManager("one", 1, 7).GenerateToken(1, "x")
	require.NoError(t, err)

	_, err = NewJWTManager("two", 1, 7).VerifyToken(tok)
	assert.Error(t, err)
}

func TestJWTManager_RefreshTTL(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, NewJWTManager("s", 1, 7).RefreshTokenTTL())
}
