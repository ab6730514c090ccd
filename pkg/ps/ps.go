package ps

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BackendFlag = "pubsub-backend"
	TopicFlag   = "pubsub-topic"

	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendGCP    = "gcp"

	flagPrefix = "pubsub"
)

var (
	ErrClosed  = errors.New("pubsub is closed")
	ErrTimeout = errors.New("timed out waiting for message")
)

// PubSub is the main interface that encompasses both Publisher and Subscriber functionalities.
type PubSub[T any] interface {
	Publisher[T]
	Subscriber[T]
	Ping(ctx context.Context) error
	Close() error
}

type Publisher[T any] interface {
	Publish(ctx context.Context, topic string, msgs ...*T) error
}

type Subscriber[T any] interface {
	Subscribe(ctx context.Context, topic string) (*Subscription[T], error)
}

func Flags() *pflag.FlagSet {
	fs := pflag.NewFlagSet(flagPrefix, pflag.ExitOnError)
	fs.String(BackendFlag, BackendMemory, "memory, redis or gcp")
	fs.String(TopicFlag, "benchmark-updates", "topic group updates are published to")
	fs.AddFlagSet(RedisPubSubFlags(flagPrefix))
	fs.AddFlagSet(GCPPubSubFlags(flagPrefix))
	return fs
}

// NewFromFlags builds the configured backend.
func NewFromFlags[T any](ctx context.Context) (PubSub[T], error) {
	switch backend := viper.GetString(BackendFlag); backend {
	case BackendMemory, "":
		return NewInMemoryPubSub[T](), nil
	case BackendRedis:
		return NewRedisPubSubFromFlags[T](ctx, flagPrefix)
	case BackendGCP:
		return NewGCPPubSubFromFlags[T](ctx, flagPrefix)
	default:
		return nil, fmt.Errorf("unsupported %s: %q", BackendFlag, backend)
	}
}

func Topic() string {
	return viper.GetString(TopicFlag)
}

type Subscription[T any] struct {
	Name      string
	c         chan *SubscriptionData[T]
	closeOnce sync.Once
	closeFunc func()
}

type SubscriptionData[T any] struct {
	Data *T
	Ack  func(ctx context.Context) error
	Nack func(ctx context.Context) error
}

func noopAck(ctx context.Context) error { return nil }

// BPop blocks until a message arrives, the subscription closes or ctx is done.
func (s *Subscription[T]) BPop(ctx context.Context) (*SubscriptionData[T], error) {
	select {
	case msg, ok := <-s.c:
		if !ok {
			return nil, ErrClosed
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Subscription[T]) Pop(ctx context.Context, timeout time.Duration) (*SubscriptionData[T], error) {
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-t.C:
		return nil, ErrTimeout
	case msg, ok := <-s.c:
		if !ok {
			return nil, ErrClosed
		}
		return msg, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Subscription[T]) Close(ctx context.Context) {
	s.closeOnce.Do(func() {
		if s.closeFunc != nil {
			s.closeFunc()
		} else {
			close(s.c)
		}
	})
}
