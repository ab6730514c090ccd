package tieredCache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var _ Cache = &RedisCache{}

type RedisCache struct {
	cacher          *redis.Client
	defaultDuration time.Duration
}

func RedisFlags(prefix string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(prefix+"redis", pflag.ExitOnError)
	fs.String(prefix+"redis-addr", "", "redis address; empty keeps the cache in process")
	fs.String(prefix+"redis-pass", "", "")
	fs.String(prefix+"redis-user", "", "")
	fs.Int(prefix+"redis-db", 0, "")
	return fs
}

func NewRedisCacheFromFlags(prefix string) *RedisCache {
	rdb := redis.NewClient(&redis.Options{
		Addr:     viper.GetString(prefix + "redis-addr"),
		Username: viper.GetString(prefix + "redis-user"),
		Password: viper.GetString(prefix + "redis-pass"),
		DB:       viper.GetInt(prefix + "redis-db"),
	})

	return NewRedisCache(rdb, viper.GetDuration(CacheTTLFlag))
}

func NewRedisCache(cacher *redis.Client, defaultDuration time.Duration) *RedisCache {
	return &RedisCache{
		cacher:          cacher,
		defaultDuration: defaultDuration,
	}
}

func (c *RedisCache) SetCache(ctx context.Context, key string, item interface{}) error {
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return c.cacher.Set(ctx, key, data, c.defaultDuration).Err()
}

func (c *RedisCache) GetCache(ctx context.Context, key string) ([]byte, error) {
	b, err := c.cacher.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.cacher.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.cacher.Close()
}
