package docstore

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Seann-Moser/go-bench/pkg/tieredCache"
)

var _ tieredCache.GetCache = &CacheSource{}
var _ tieredCache.SetCache = &CacheSource{}

// CacheSource lets a Store act as the durable tier behind a tiered cache.
// Cache keys are used as document ids.
type CacheSource struct {
	store Store
}

func NewCacheSource(store Store) *CacheSource {
	return &CacheSource{store: store}
}

func (c *CacheSource) GetCache(ctx context.Context, key string) ([]byte, error) {
	doc, err := c.store.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return nil, tieredCache.ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *CacheSource) SetCache(ctx context.Context, key string, item interface{}) error {
	doc, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return c.store.Put(ctx, key, doc)
}
