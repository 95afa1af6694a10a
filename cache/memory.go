// Package cache keeps encoded search pages close to the HTTP layer. Searches
// are pure functions of their arguments and the catalog content, so entries
// live until their TTL runs out or the catalog changes.
package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// DefaultMaxEntries bounds the memory cache
const DefaultMaxEntries = 10000

// Memory is an in-process cache with a TTL per entry. Once full, the least
// recently used page is evicted.
type Memory struct {
	lru *expirable.LRU[string, []byte]
}

// NewMemory creates a cache whose entries expire after ttl
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{lru: expirable.NewLRU[string, []byte](maxEntries, nil, ttl)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	value, ok := m.lru.Get(key)
	return value, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.lru.Add(key, value)
	return nil
}

func (m *Memory) Purge(context.Context) error {
	m.lru.Purge()
	return nil
}

// Len returns the number of stored entries
func (m *Memory) Len() int { return m.lru.Len() }

func (m *Memory) Close() error {
	m.lru.Purge()
	return nil
}
