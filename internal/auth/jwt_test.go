package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTM() *TokenManager {
	return NewTokenManager("access-secret", "refresh-secret", "coursepay", time.Minute, time.Hour)
}

func TestParseAny(t *testing.T) {
	tm := newTM()
	access, refresh, exp, err := tm.GeneratePair("user-1", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Minute), exp, 5*time.Second)

	c, isRefresh, err := tm.ParseAny(access)
	require.NoError(t, err)
	assert.False(t, isRefresh)
	assert.Equal(t, "user-1", c.UserID)
	assert.Equal(t, "admin", c.Role)

	c, isRefresh, err = tm.ParseAny(refresh)
	require.NoError(t, err)
	assert.True(t, isRefresh)
	assert.Equal(t, "user-1", c.UserID)
}

func TestParseAny_Rejects(t *testing.T) {
	tm := newTM()
	access, _, _, err := tm.GeneratePair("user-1", "user")
	require.NoError(t, err)

	other := NewTokenManager("x", "y", "coursepay", time.Minute, time.Hour)
	_, _, err = other.ParseAny(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer := NewTokenManager("access-secret", "refresh-secret", "someone-else", time.Minute, time.Hour)
	_, _, err = wrongIssuer.ParseAny(access)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenManager("access-secret", "refresh-secret", "coursepay", -time.Minute, -time.Minute)
	old, _, _, err := expired.GeneratePair("user-1", "user")
	require.NoError(t, err)
	_, _, err = tm.ParseAny(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, _, err = tm.ParseAny("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
