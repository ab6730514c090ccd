package ps

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/clientpkg"
	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
)

var _ PubSub[any] = &RedisPubSub[any]{}

type RedisPubSub[T any] struct {
	client *redis.Client
}

func RedisPubSubFlags(prefix string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(clientpkg.GetFlagWithPrefix("redis-pub-sub", prefix), pflag.ExitOnError)
	fs.String(clientpkg.GetFlagWithPrefix("redis-address", prefix), "localhost:6379", "Redis server address")
	fs.String(clientpkg.GetFlagWithPrefix("redis-password", prefix), "", "Redis server password")
	fs.Int(clientpkg.GetFlagWithPrefix("redis-db", prefix), 0, "Redis database number")
	fs.AddFlagSet(clientpkg.BackOffFlags(clientpkg.GetFlagWithPrefix("redis", prefix)))
	return fs
}

// NewRedisPubSubFromFlags connects and retries the first ping with backoff.
func NewRedisPubSubFromFlags[T any](ctx context.Context, prefix string) (*RedisPubSub[T], error) {
	redisAddress := viper.GetString(clientpkg.GetFlagWithPrefix("redis-address", prefix))
	if redisAddress == "" {
		return nil, fmt.Errorf("%s is required", clientpkg.GetFlagWithPrefix("redis-address", prefix))
	}

	r := NewRedisPubSub[T](redis.NewClient(&redis.Options{
		Addr:     redisAddress,
		Password: viper.GetString(clientpkg.GetFlagWithPrefix("redis-password", prefix)),
		DB:       viper.GetInt(clientpkg.GetFlagWithPrefix("redis-db", prefix)),
	}))
	err := clientpkg.NewBackoffFromFlags(clientpkg.GetFlagWithPrefix("redis", prefix)).Retry(ctx, func() error {
		return r.Ping(ctx)
	})
	if err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return r, nil
}

func NewRedisPubSub[T any](client *redis.Client) *RedisPubSub[T] {
	return &RedisPubSub[T]{client: client}
}

func (r *RedisPubSub[T]) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis server: %w", err)
	}
	return nil
}

func (r *RedisPubSub[T]) Publish(ctx context.Context, channel string, msgs ...*T) error {
	if channel == "" {
		return fmt.Errorf("channel is required")
	}
	for _, msg := range msgs {
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed marshalling message: %w", err)
		}
		if err := r.client.Publish(ctx, channel, b).Err(); err != nil {
			return fmt.Errorf("failed publishing to %s: %w", channel, err)
		}
	}
	return nil
}

func (r *RedisPubSub[T]) Subscribe(ctx context.Context, channel string) (*Subscription[T], error) {
	if channel == "" {
		return nil, fmt.Errorf("channel is required")
	}

	rps := r.client.Subscribe(ctx, channel)
	// wait for the subscription to be confirmed
	if _, err := rps.Receive(ctx); err != nil {
		_ = rps.Close()
		return nil, fmt.Errorf("failed to subscribe to channel '%s': %w", channel, err)
	}

	dataCh := make(chan *SubscriptionData[T], subscriptionBuffer)
	done := make(chan struct{})
	go func() {
		defer close(dataCh)
		for msg := range rps.Channel() {
			var data T
			if err := json.Unmarshal([]byte(msg.Payload), &data); err != nil {
				ctxLogger.Warn(ctx, "failed unmarshalling message", zap.String("channel", channel), zap.Error(err))
				continue
			}
			select {
			case dataCh <- &SubscriptionData[T]{Data: &data, Ack: noopAck, Nack: noopAck}:
			case <-done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	return &Subscription[T]{
		Name: channel,
		c:    dataCh,
		closeFunc: func() {
			close(done)
			_ = rps.Close()
		},
	}, nil
}

func (r *RedisPubSub[T]) Close() error {
	return r.client.Close()
}
