package cache

import (
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultL1Items = 1000
	defaultL1TTL   = 2 * time.Minute
)

// L1Cache is an in-process LRU cache whose entries expire after a fixed TTL.
// It is safe for concurrent use.
type L1Cache struct {
	lru *expirable.LRU[string, []byte]
}

// NewL1Cache creates an L1 cache. Non-positive arguments fall back to
// 1000 items and two minutes.
func NewL1Cache(maxItems int, ttl time.Duration) *L1Cache {
	if maxItems <= 0 {
		maxItems = defaultL1Items
	}
	if ttl <= 0 {
		ttl = defaultL1TTL
	}
	return &L1Cache{lru: expirable.NewLRU[string, []byte](maxItems, nil, ttl)}
}

// Get returns a live value and marks it most recently used.
func (c *L1Cache) Get(key string) ([]byte, bool) {
	return c.lru.Get(key)
}

// Set stores value with a fresh TTL, evicting the least recently used entry
// when full.
func (c *L1Cache) Set(key string, value []byte) {
	c.lru.Add(key, value)
}

func (c *L1Cache) Delete(key string) {
	c.lru.Remove(key)
}

// DeletePrefix removes every key starting with prefix.
func (c *L1Cache) DeletePrefix(prefix string) {
	for _, key := range c.lru.Keys() {
		if strings.HasPrefix(key, prefix) {
			c.lru.Remove(key)
		}
	}
}

// Len returns the number of stored entries. Expired entries count until the
// background sweep removes them.
func (c *L1Cache) Len() int {
	return c.lru.Len()
}
