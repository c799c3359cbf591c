// Package idempotency implements the transient, header-keyed idempotency
// registry consulted before any database work. The durable tier lives in the
// webhook_events table.
package idempotency

import (
	"context"
	"strings"
	"time"
)

// Registry records delivery keys for a bounded TTL.
type Registry interface {
	// Mark atomically records key and reports whether it was newly recorded.
	// false means the key was already seen inside the TTL window.
	Mark(ctx context.Context, key string) (bool, error)
	// Forget releases a key so a provider redelivery is processed again.
	Forget(ctx context.Context, key string) error
}

// TTLFunc yields the current replay TTL; it is read on every Mark so config
// reloads apply without restarting.
type TTLFunc func() time.Duration

func FixedTTL(ttl time.Duration) TTLFunc {
	return func() time.Duration { return ttl }
}

// Key builds the transient key for a provider delivery.
func Key(provider, headerEventID string) string {
	return strings.ToLower(strings.TrimSpace(provider)) + ":" + strings.TrimSpace(headerEventID)
}
