// Copyright (c) 2025 Steve Taranto <staranto@gmail.com>.
// SPDX-License-Identifier: Apache-2.0

// Package memcache implements the process-lifetime in-memory image cache.
package memcache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"github.com/staranto/gifctl/internal/gifimage"
)

// DefaultEntries is the capacity used when none is configured.
const DefaultEntries = 128

// Cache is a bounded LRU of decoded images keyed by item id. It is safe for
// concurrent use and may be purged at any time without losing correctness.
type Cache struct {
	cache *lru.Cache
}

// New returns a cache holding at most entries images.
func New(entries int) (*Cache, error) {
	if entries <= 0 {
		entries = DefaultEntries
	}
	c, err := lru.New(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache of size %d: %w", entries, err)
	}
	return &Cache{cache: c}, nil
}

// Get returns the cached image for id.
func (c *Cache) Get(id string) (*gifimage.Image, bool) {
	v, ok := c.cache.Get(id)
	if !ok {
		return nil, false
	}
	img, ok := v.(*gifimage.Image)
	return img, ok && img != nil
}

// Put stores img under id. Nil images are ignored.
func (c *Cache) Put(id string, img *gifimage.Image) {
	if img == nil {
		return
	}
	c.cache.Add(id, img)
}

// Contains reports whether id is cached without touching recency.
func (c *Cache) Contains(id string) bool {
	return c.cache.Contains(id)
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	return c.cache.Len()
}

// Purge drops everything.
func (c *Cache) Purge() {
	c.cache.Purge()
}
