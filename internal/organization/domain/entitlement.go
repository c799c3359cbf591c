package domain

import (
	"time"

	subscriptiondomain "github.com/smallbiznis/billingrelay/internal/subscription/domain"
)

// DefaultGracePeriod is how long a past-due organization keeps access.
const DefaultGracePeriod = 72 * time.Hour

// ApplyEntitlement maps a subscription status onto the organization:
// ACTIVE unlocks, PAST_DUE starts a grace period and CANCELLED deactivates.
func ApplyEntitlement(org *Organization, status subscriptiondomain.Status, now time.Time, grace time.Duration) {
	if org == nil {
		return
	}
	if grace <= 0 {
		grace = DefaultGracePeriod
	}

	switch status {
	case subscriptiondomain.StatusActive:
		org.Active = true
		org.LockedUntil = nil
	case subscriptiondomain.StatusPastDue:
		lockedUntil := now.Add(grace).UTC()
		org.LockedUntil = &lockedUntil
	case subscriptiondomain.StatusCancelled:
		org.Active = false
	}
}

// InGracePeriod reports whether the organization is flagged for dunning but
// still inside its grace window.
func (o Organization) InGracePeriod(now time.Time) bool {
	return o.LockedUntil != nil && now.Before(*o.LockedUntil)
}

// Entitled reports whether the organization currently has service access.
func (o Organization) Entitled(now time.Time) bool {
	if !o.Active {
		return false
	}
	return o.LockedUntil == nil || o.InGracePeriod(now)
}
