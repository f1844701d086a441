package client

import (
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

// queryCache is a read-through cache keyed by query identity. Entries expire
// after a TTL and mutations invalidate the keys they make stale.
type queryCache struct {
	lru *lru.Cache
	ttl time.Duration
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

func newQueryCache(size int, ttl time.Duration) (*queryCache, error) {
	c, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &queryCache{lru: c, ttl: ttl}, nil
}

func (qc *queryCache) get(key string) (interface{}, bool) {
	v, ok := qc.lru.Get(key)
	if !ok {
		return nil, false
	}

	entry := v.(cacheEntry)
	if time.Now().After(entry.expiresAt) {
		qc.lru.Remove(key)
		return nil, false
	}
	return entry.value, true
}

func (qc *queryCache) set(key string, value interface{}) {
	qc.lru.Add(key, cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(qc.ttl),
	})
}

func (qc *queryCache) invalidate(key string) {
	qc.lru.Remove(key)
}

// invalidatePrefix drops every entry whose key starts with prefix. Used after
// mutations, where any cached collection view may be stale regardless of its
// filter parameters.
func (qc *queryCache) invalidatePrefix(prefix string) {
	for _, k := range qc.lru.Keys() {
		if key, ok := k.(string); ok && strings.HasPrefix(key, prefix) {
			qc.lru.Remove(k)
		}
	}
}

func (qc *queryCache) purge() {
	qc.lru.Purge()
}
