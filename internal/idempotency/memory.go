package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/billingrelay/internal/cache"
	"github.com/smallbiznis/billingrelay/internal/clock"
)

// MemoryRegistry is a single-instance registry backed by a TTL cache.
type MemoryRegistry struct {
	entries *cache.TTLCache[string, time.Time]
	clock   clock.Clock
	ttl     TTLFunc
}

func NewMemoryRegistry(clk clock.Clock, ttl TTLFunc) *MemoryRegistry {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	sweep := ttl()
	return &MemoryRegistry{
		entries: cache.NewTTLCache[string, time.Time](clk.Now, sweep),
		clock:   clk,
		ttl:     ttl,
	}
}

func (r *MemoryRegistry) Mark(_ context.Context, key string) (bool, error) {
	if key == "" {
		return false, errors.New("idempotency key is empty")
	}
	return r.entries.SetIfAbsent(key, r.clock.Now(), r.ttl()), nil
}

func (r *MemoryRegistry) Forget(_ context.Context, key string) error {
	r.entries.Delete(key)
	return nil
}

// Reset drops all entries, as a process restart would.
func (r *MemoryRegistry) Reset() {
	r.entries.Clear()
}

// Len returns the number of tracked keys including not yet purged ones.
func (r *MemoryRegistry) Len() int {
	return r.entries.Len()
}

var _ Registry = (*MemoryRegistry)(nil)
