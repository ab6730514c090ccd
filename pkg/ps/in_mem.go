package ps

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
)

const subscriptionBuffer = 100

var _ PubSub[any] = &InMemoryPubSub[any]{}

// InMemoryPubSub fans messages out to every subscriber of a topic within the process.
// A subscriber whose buffer is full misses the message rather than stalling the publisher.
type InMemoryPubSub[T any] struct {
	mu          sync.RWMutex
	subscribers map[string][]chan *SubscriptionData[T]
	closed      bool
}

func NewInMemoryPubSub[T any]() *InMemoryPubSub[T] {
	return &InMemoryPubSub[T]{
		subscribers: make(map[string][]chan *SubscriptionData[T]),
	}
}

func (im *InMemoryPubSub[T]) Publish(ctx context.Context, topic string, msgs ...*T) error {
	im.mu.RLock()
	defer im.mu.RUnlock()
	if im.closed {
		return ErrClosed
	}

	for _, msg := range msgs {
		// every subscriber gets its own copy
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed marshalling message: %w", err)
		}
		for _, subCh := range im.subscribers[topic] {
			var decoded T
			if err := json.Unmarshal(b, &decoded); err != nil {
				return fmt.Errorf("failed copying message: %w", err)
			}
			select {
			case subCh <- &SubscriptionData[T]{Data: &decoded, Ack: noopAck, Nack: noopAck}:
			case <-ctx.Done():
				return ctx.Err()
			default:
				ctxLogger.Warn(ctx, "subscriber buffer full, dropping message", zap.String("topic", topic))
			}
		}
	}
	return nil
}

func (im *InMemoryPubSub[T]) Subscribe(ctx context.Context, topic string) (*Subscription[T], error) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.closed {
		return nil, ErrClosed
	}

	subCh := make(chan *SubscriptionData[T], subscriptionBuffer)
	im.subscribers[topic] = append(im.subscribers[topic], subCh)

	return &Subscription[T]{
		Name: topic,
		c:    subCh,
		closeFunc: func() {
			im.mu.Lock()
			defer im.mu.Unlock()
			subs := im.subscribers[topic]
			for i, ch := range subs {
				if ch == subCh {
					im.subscribers[topic] = append(subs[:i], subs[i+1:]...)
					close(ch)
					break
				}
			}
			if len(im.subscribers[topic]) == 0 {
				delete(im.subscribers, topic)
			}
		},
	}, nil
}

func (im *InMemoryPubSub[T]) Ping(ctx context.Context) error {
	im.mu.RLock()
	defer im.mu.RUnlock()
	if im.closed {
		return ErrClosed
	}
	return nil
}

// Close shuts the bus down and closes all subscription channels.
func (im *InMemoryPubSub[T]) Close() error {
	im.mu.Lock()
	defer im.mu.Unlock()
	if im.closed {
		return ErrClosed
	}
	im.closed = true
	for topic, subs := range im.subscribers {
		for _, subCh := range subs {
			close(subCh)
		}
		delete(im.subscribers, topic)
	}
	return nil
}
