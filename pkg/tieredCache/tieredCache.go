package tieredCache

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

var (
	ErrCacheMiss = errors.New("cache missed")
)

const (
	CacheTTLFlag     = "cache-ttl"
	CacheCleanupFlag = "cache-cleanup-interval"
	CacheDurableFlag = "cache-durable"
)

type Cache interface {
	SetCache
	GetCache
	Ping(ctx context.Context) error
}
type SetCache interface {
	SetCache(ctx context.Context, key string, item interface{}) error
}
type GetCache interface {
	GetCache(ctx context.Context, key string) ([]byte, error)
}

func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("cache", pflag.ExitOnError)
	fs.Duration(CacheTTLFlag, 24*time.Hour, "how long cached results live")
	fs.Duration(CacheCleanupFlag, 10*time.Minute, "how often expired in-process entries are purged")
	fs.Bool(CacheDurableFlag, true, "read through to and write through to the document store")
	fs.AddFlagSet(RedisFlags("cache-"))
	return fs
}

// NewFromFlags returns an in-process cache, backed by Redis when cache-redis-addr is set.
// source is the durable last tier; it is ignored when cache-durable is off.
func NewFromFlags(source GetCache) Cache {
	ttl := viper.GetDuration(CacheTTLFlag)
	if !viper.GetBool(CacheDurableFlag) {
		source = nil
	}
	local := NewGoCache(cache.New(ttl, viper.GetDuration(CacheCleanupFlag)), ttl)
	if viper.GetString("cache-redis-addr") == "" {
		return NewTieredCache(source, local)
	}
	return NewTieredCache(source, local, NewRedisCacheFromFlags("cache-"))
}

func Set[T any](ctx context.Context, c Cache, key string, data T) error {
	return c.SetCache(ctx, key, data)
}

func Get[T any](ctx context.Context, c Cache, key string) (*T, error) {
	data, err := c.GetCache(ctx, key)
	if err != nil {
		return nil, err
	}
	var output T
	err = json.Unmarshal(data, &output)
	if err != nil {
		return nil, err
	}
	return &output, nil
}

var _ Cache = &TieredCache{}

// TieredCache reads through cachePool in order, then getter, and backfills the tiers that missed.
// Writes go to every tier, and to getter as well when it can store.
type TieredCache struct {
	cachePool []Cache
	getter    GetCache
}

func NewTieredCache(getter GetCache, cacheList ...Cache) Cache {
	return &TieredCache{
		cachePool: cacheList,
		getter:    getter,
	}
}

func (t *TieredCache) Ping(ctx context.Context) error {
	var err error
	for _, c := range t.cachePool {
		err = multierr.Combine(err, c.Ping(ctx))
	}
	return err
}

func (t *TieredCache) SetCache(ctx context.Context, key string, item interface{}) error {
	var err error
	for _, c := range t.cachePool {
		err = multierr.Combine(err, c.SetCache(ctx, key, item))
	}
	if setter, ok := t.getter.(SetCache); ok {
		err = multierr.Combine(err, setter.SetCache(ctx, key, item))
	}
	return err
}

func (t *TieredCache) GetCache(ctx context.Context, key string) ([]byte, error) {
	var missed []Cache
	for _, c := range t.cachePool {
		v, err := c.GetCache(ctx, key)
		if err == nil && v != nil {
			backfill(ctx, missed, key, v)
			return v, nil
		}
		missed = append(missed, c)
	}
	if t.getter == nil {
		return nil, ErrCacheMiss
	}

	v, err := t.getter.GetCache(ctx, key)
	if err != nil {
		return nil, err
	}
	backfill(ctx, missed, key, v)
	return v, nil
}

// Close closes every tier that holds a connection.
func (t *TieredCache) Close() error {
	var err error
	for _, c := range t.cachePool {
		if closer, ok := c.(io.Closer); ok {
			err = multierr.Combine(err, closer.Close())
		}
	}
	return err
}

func backfill(ctx context.Context, caches []Cache, key string, v []byte) {
	for _, c := range caches {
		_ = c.SetCache(ctx, key, json.RawMessage(v))
	}
}
