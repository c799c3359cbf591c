package domain

import (
	"testing"
	"time"

	subscriptiondomain "github.com/smallbiznis/billingrelay/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEntitlement(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	earlier := now.Add(-time.Hour)

	t.Run("active unlocks", func(t *testing.T) {
		org := &Organization{Active: false, LockedUntil: &earlier}
		ApplyEntitlement(org, subscriptiondomain.StatusActive, now, DefaultGracePeriod)
		assert.True(t, org.Active)
		assert.Nil(t, org.LockedUntil)
		assert.True(t, org.Entitled(now))
	})

	t.Run("past due starts grace and keeps active", func(t *testing.T) {
		org := &Organization{Active: true}
		ApplyEntitlement(org, subscriptiondomain.StatusPastDue, now, DefaultGracePeriod)
		assert.True(t, org.Active)
		require.NotNil(t, org.LockedUntil)
		assert.Equal(t, now.Add(72*time.Hour), *org.LockedUntil)
		assert.True(t, org.InGracePeriod(now))
		assert.True(t, org.Entitled(now))
		assert.False(t, org.Entitled(now.Add(73*time.Hour)))
	})

	t.Run("past due leaves inactive org inactive", func(t *testing.T) {
		org := &Organization{Active: false}
		ApplyEntitlement(org, subscriptiondomain.StatusPastDue, now, 0)
		assert.False(t, org.Active)
		require.NotNil(t, org.LockedUntil)
		assert.Equal(t, now.Add(DefaultGracePeriod), *org.LockedUntil)
	})

	t.Run("cancelled deactivates", func(t *testing.T) {
		org := &Organization{Active: true}
		ApplyEntitlement(org, subscriptiondomain.StatusCancelled, now, DefaultGracePeriod)
		assert.False(t, org.Active)
		assert.False(t, org.Entitled(now))
	})

	t.Run("nil organization", func(t *testing.T) {
		assert.NotPanics(t, func() {
			ApplyEntitlement(nil, subscriptiondomain.StatusActive, now, DefaultGracePeriod)
		})
	})
}
