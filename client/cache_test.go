package client

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheHitAndStale(t *testing.T) {
	cache := NewCache(50 * time.Millisecond)
	key := PageKey("c1", 50, 0, false)
	page := &MessagePage{Total: 3}

	_, _, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Put(key, page)
	got, stale, ok := cache.Get(key)
	require.True(t, ok)
	assert.False(t, stale)
	assert.Equal(t, page, got)

	time.Sleep(70 * time.Millisecond)
	got, stale, ok = cache.Get(key)
	require.True(t, ok, "expired entries are still returned")
	assert.True(t, stale)
	assert.Equal(t, page, got)
}

func TestCacheKeyIncludesRequestShape(t *testing.T) {
	assert.NotEqual(t, PageKey("c1", 50, 0, false), PageKey("c1", 50, 0, true))
	assert.NotEqual(t, PageKey("c1", 50, 0, false), PageKey("c1", 50, 50, false))
	assert.Equal(t, PageKey("c1", 50, 0, false), PageKey("c1", 50, 0, false))
}

func TestCacheInvalidateConversation(t *testing.T) {
	cache := NewCache(time.Minute)
	cache.Put(PageKey("c1", 50, 0, false), &MessagePage{})
	cache.Put(PageKey("c1", 50, 50, false), &MessagePage{})
	cache.Put(PageKey("c2", 50, 0, false), &MessagePage{})

	cache.InvalidateConversation("c1")

	assert.Equal(t, 1, cache.Len())
	_, _, ok := cache.Get(PageKey("c2", 50, 0, false))
	assert.True(t, ok, "other conversations are untouched")
}
