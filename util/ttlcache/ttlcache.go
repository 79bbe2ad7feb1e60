// SPDX-License-Identifier: MIT
//
// TTL cache
//

package ttlcache

import (
	"sync"
	"time"
)

const (
	DefaultTTL = 0                // use default TTL of the Cache instance
	NoTTL      = -1 * time.Second // no expiration
)

const defaultInterval = 5 * time.Second // default cleanup interval

type Cache[V any] struct {
	items      map[string]*cacheItem[V]
	lock       sync.RWMutex // protect concurrent cleanups
	defaultTTL time.Duration
	onEviction func(string, V)
	done       chan struct{}
	closeOnce  sync.Once
}

type cacheItem[V any] struct {
	value    V
	expireAt int64 // UnixNano
}

func (i *cacheItem[V]) isExpired(now int64) bool {
	return i.expireAt > 0 && i.expireAt < now
}

func New[V any](
	defaultTTL time.Duration,
	interval time.Duration,
	onEviction func(string, V),
) *Cache[V] {
	if interval <= 0 {
		interval = defaultInterval
	}
	if onEviction == nil {
		onEviction = func(string, V) {} // nop
	}
	c := &Cache[V]{
		items:      make(map[string]*cacheItem[V]),
		defaultTTL: defaultTTL,
		onEviction: onEviction,
		done:       make(chan struct{}),
	}
	go c.clean(interval)
	return c
}

// Close stops the cleanup goroutine.  The cache stays usable but expired
// items are no longer evicted.
func (c *Cache[V]) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Set the key and value with the TTL, overwriting any existing one.
func (c *Cache[V]) Set(key string, value V, ttl time.Duration) {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.items[key] = &cacheItem[V]{
		value:    value,
		expireAt: c.getExpireAt(ttl),
	}
}

// Get the value of key, with a boolean indicating whether it's valid.
// An expired item is left for the cleanup to evict.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.lock.RLock()
	defer c.lock.RUnlock()

	var zero V
	item, exists := c.items[key]
	if !exists || item.isExpired(time.Now().UnixNano()) {
		return zero, false
	}
	return item.value, true
}

// Remove the item of key and invoke the eviction callback.
func (c *Cache[V]) Remove(key string) {
	c.lock.Lock()
	item, exists := c.items[key]
	if exists {
		delete(c.items, key)
	}
	c.lock.Unlock()

	if exists {
		c.onEviction(key, item.value)
	}
}

func (c *Cache[V]) getExpireAt(ttl time.Duration) int64 {
	if ttl < 0 {
		return -1
	}
	if ttl == 0 {
		ttl = c.defaultTTL
	}
	if ttl <= 0 {
		return -1
	}
	return time.Now().Add(ttl).UnixNano()
}

func (c *Cache[V]) clean(interval time.Duration) {
	type kvItem struct {
		key   string
		value V
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
		}

		evictedItems := []kvItem{}
		c.lock.Lock()
		now := time.Now().UnixNano()
		for key, item := range c.items {
			if item.isExpired(now) {
				delete(c.items, key)
				evictedItems = append(evictedItems, kvItem{
					key:   key,
					value: item.value,
				})
			}
		}
		c.lock.Unlock()

		for _, kv := range evictedItems {
			c.onEviction(kv.key, kv.value)
		}
	}
}
