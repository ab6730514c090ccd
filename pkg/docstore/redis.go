package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"
)

var _ Store = &RedisStore{}

// RedisStore keeps each document as a string under "<collection>:<id>".
type RedisStore struct {
	client     *redis.Client
	collection string
}

func NewRedisStoreFromFlags(collection string) *RedisStore {
	return NewRedisStore(redis.NewClient(&redis.Options{
		Addr:     viper.GetString(RedisAddressFlag),
		Password: viper.GetString(RedisPasswordFlag),
		DB:       viper.GetInt(RedisDBFlag),
		PoolSize: viper.GetInt(MaxConnectionsFlag),
	}), collection)
}

func NewRedisStore(client *redis.Client, collection string) *RedisStore {
	return &RedisStore{client: client, collection: collection}
}

func (r *RedisStore) key(id string) string {
	return r.collection + ":" + id
}

func (r *RedisStore) Get(ctx context.Context, id string) (json.RawMessage, error) {
	b, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed reading document %s: %w", id, err)
	}
	return json.RawMessage(b), nil
}

func (r *RedisStore) Put(ctx context.Context, id string, doc json.RawMessage) error {
	if err := validDocument(doc); err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(id), []byte(doc), 0).Err(); err != nil {
		return fmt.Errorf("failed writing document %s: %w", id, err)
	}
	return nil
}

func (r *RedisStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
