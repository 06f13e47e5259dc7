package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserJSONNeverExposesSecrets(t *testing.T) {
	email := "user@example.com"
	user := NewUser("u1", &email, nil, "$2a$10$hash")
	attempts := 3
	lockedUntil := time.Now().Add(time.Hour)
	user.LoginFailedAttempts = attempts
	user.AccountLockedUntil = &lockedUntil

	raw, err := json.Marshal(user)
	require.NoError(t, err)

	var fields map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &fields))
	assert.NotContains(t, fields, "password_hash")
	assert.NotContains(t, fields, "login_failed_attempts")
	assert.NotContains(t, fields, "account_locked_until")
	assert.NotContains(t, string(raw), "$2a$10$hash")
}

func TestPublicDropsLockoutState(t *testing.T) {
	email := "user@example.com"
	user := NewUser("u1", &email, nil, "$2a$10$hash")
	user.IsAdmin = true
	user.Status = StatusActive

	public := user.Public()

	assert.Equal(t, "u1", public.ID)
	assert.Equal(t, &email, public.Email)
	assert.True(t, public.IsAdmin)
	assert.Equal(t, StatusActive, public.Status)

	raw, err := json.Marshal(public)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")
}

func TestNewUserDefaultsToPendingVerification(t *testing.T) {
	username := "alice"
	user := NewUser("u2", nil, &username, "")

	assert.Equal(t, StatusPendingVerification, user.Status)
	assert.Nil(t, user.Email)
	assert.Equal(t, user.CreatedAt, user.UpdatedAt)
}

func TestIsLockedAt(t *testing.T) {
	now := time.Now()
	user := &User{ID: "u1"}

	assert.False(t, user.IsLockedAt(now))

	until := now.Add(time.Minute)
	user.AccountLockedUntil = &until
	assert.True(t, user.IsLockedAt(now))
	assert.False(t, user.IsLockedAt(until))
	assert.False(t, user.IsLockedAt(until.Add(time.Second)))
}
