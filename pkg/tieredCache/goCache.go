package tieredCache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/patrickmn/go-cache"
)

var _ Cache = &GoCache{}

type GoCache struct {
	defaultDuration time.Duration
	cacher          *cache.Cache
}

func NewGoCache(cacher *cache.Cache, defaultDuration time.Duration) *GoCache {
	return &GoCache{
		cacher:          cacher,
		defaultDuration: defaultDuration,
	}
}

// SetCache stores the JSON encoding so later mutation of item does not leak into the cache.
func (c *GoCache) SetCache(ctx context.Context, key string, item interface{}) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	c.cacher.Set(key, data, c.defaultDuration)
	return nil
}

func (c *GoCache) GetCache(ctx context.Context, key string) ([]byte, error) {
	data, found := c.cacher.Get(key)
	if !found {
		return nil, ErrCacheMiss
	}
	return data.([]byte), nil
}

func (c *GoCache) Ping(ctx context.Context) error {
	return nil
}
