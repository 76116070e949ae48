package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

type LocalCache struct {
	cache *gocache.Cache
}

func NewLocalCache(defaultTTL, cleanupInterval time.Duration) *LocalCache {
	return &LocalCache{cache: gocache.New(defaultTTL, cleanupInterval)}
}

func (c *LocalCache) Name() string { return "local" }

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	v, found := c.cache.Get(key)
	if !found {
		return "", ErrMiss
	}
	s, ok := v.(string)
	if !ok {
		return "", ErrMiss
	}
	return s, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	c.cache.Set(key, value, ttl)
	return nil
}
