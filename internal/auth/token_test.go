package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/liminalhq/liminal/internal/auth"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()

	raw, err := tm.Generate(userID, "user@example.com")
	assert.NoError(t, err)

	claims, err := tm.Validate(raw)
	assert.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestTokenValidate(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour)
	userID := uuid.New()

	t.Run("rejects a token signed with a different secret", func(t *testing.T) {
		other := auth.NewTokenManager("other-secret", time.Hour)
		raw, err := other.Generate(userID, "user@example.com")
		assert.NoError(t, err)

		_, err = tm.Validate(raw)
		assert.Error(t, err)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		expired := auth.NewTokenManager("test-secret", -time.Minute)
		raw, err := expired.Generate(userID, "user@example.com")
		assert.NoError(t, err)

		_, err = tm.Validate(raw)
		assert.Error(t, err)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		_, err := tm.Validate("not.a.token")
		assert.Error(t, err)
	})
}
