package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string, int](2, time.Minute)

	c.Set("a", 1)
	c.Set("b", 2)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	// "b" is now least recently used and gets evicted.
	c.Set("c", 3)
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Size())

	c.Set("a", 10)
	v, _ = c.Get("a")
	assert.Equal(t, 10, v)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestLRUCache_Expiry(t *testing.T) {
	c := NewLRUCache[string, string](10, time.Second)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	c.Set("j", "w")
	_, ok := c.Get("k")
	assert.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("k")
	assert.False(t, ok, "entry should expire after ttl")

	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_NoTTL(t *testing.T) {
	c := NewLRUCache[int, int](1, 0)
	c.Set(1, 1)
	assert.Equal(t, 0, c.CleanExpired())
	v, ok := c.Get(1)
	assert.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestLRUCache_StatsAndPurge(t *testing.T) {
	c := NewLRUCache[string, int](4, time.Minute)
	c.Set("a", 1)
	c.Get("a")
	c.Get("missing")

	stats := c.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.Size)

	c.Purge()
	assert.Equal(t, 0, c.Size())
}

func TestManager_CleanNow(t *testing.T) {
	c := NewLRUCache[string, int](4, time.Second)
	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("a", 1)
	now = now.Add(time.Hour)

	m := NewManager()
	m.Register(c)
	assert.Equal(t, 1, m.CleanNow())

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
