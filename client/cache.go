package client

import (
	"fmt"
	"sync"
	"time"
)

const defaultCacheTTL = 30 * time.Second

// Cache memoizes normalized history pages by request signature so a view can
// render instantly from the last known page while a fresh fetch is in flight.
// Entries past their TTL are still returned, flagged stale; the caller
// decides whether stale data is acceptable.
type Cache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

type cacheEntry struct {
	page     *MessagePage
	storedAt time.Time
}

func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

// PageKey builds the cache signature for a history request. Two requests with
// the same signature are interchangeable.
func PageKey(conversationID string, limit, offset int, descending bool) string {
	return fmt.Sprintf("messages:%s:%d:%d:%t", conversationID, limit, offset, descending)
}

// Get returns the cached page for a signature. stale reports whether the
// entry has outlived its TTL.
func (c *Cache) Get(key string) (page *MessagePage, stale, ok bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false, false
	}
	return entry.page, time.Since(entry.storedAt) > c.ttl, true
}

// Put stores a page under a signature, resetting its age.
func (c *Cache) Put(key string, page *MessagePage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{page: page, storedAt: time.Now()}
}

// InvalidateConversation drops every cached page belonging to a conversation.
// Called when a push event changes the timeline out from under the cache.
func (c *Cache) InvalidateConversation(conversationID string) {
	prefix := "messages:" + conversationID + ":"
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.entries {
		if len(key) >= len(prefix) && key[:len(prefix)] == prefix {
			delete(c.entries, key)
		}
	}
}

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
