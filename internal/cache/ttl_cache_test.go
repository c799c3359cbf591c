package cache

import (
	"testing"
	"time"

	"github.com/smallbiznis/billingrelay/internal/clock"
	"github.com/stretchr/testify/assert"
)

func TestTTLCacheExpiresEntries(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCache[string, int](clk.Now, time.Hour)

	c.Set("a", 1, time.Minute)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	clk.Advance(time.Minute)
	_, ok = c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheSetIfAbsent(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCache[string, struct{}](clk.Now, time.Hour)

	assert.True(t, c.SetIfAbsent("k", struct{}{}, time.Minute))
	assert.False(t, c.SetIfAbsent("k", struct{}{}, time.Minute))

	clk.Advance(2 * time.Minute)
	assert.True(t, c.SetIfAbsent("k", struct{}{}, time.Minute))
}

func TestTTLCacheSweepsExpiredEntries(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCache[string, int](clk.Now, time.Minute)

	c.Set("old-1", 1, 30*time.Second)
	c.Set("old-2", 2, 30*time.Second)
	c.Set("fresh", 3, time.Hour)
	assert.Equal(t, 3, c.Len())

	clk.Advance(2 * time.Minute)
	_, ok := c.Get("fresh")
	assert.True(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestTTLCacheZeroTTLNeverExpires(t *testing.T) {
	clk := clock.NewFakeClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewTTLCache[string, int](clk.Now, time.Minute)

	c.Set("k", 1, 0)
	clk.Advance(24 * time.Hour)
	_, ok := c.Get("k")
	assert.True(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}
