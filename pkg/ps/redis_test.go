package ps

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisPubSub(t *testing.T) *RedisPubSub[TestMessage] {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	r := NewRedisPubSub[TestMessage](redis.NewClient(&redis.Options{Addr: addr}))
	if err := r.Ping(context.Background()); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedisPublishAndSubscribe(t *testing.T) {
	ctx := context.Background()
	r := newTestRedisPubSub(t)
	channel := fmt.Sprintf("bench-test-%d", time.Now().UnixNano())

	sub, err := r.Subscribe(ctx, channel)
	require.NoError(t, err)
	defer sub.Close(ctx)

	require.NoError(t, r.Publish(ctx, channel, &TestMessage{Content: "a"}, &TestMessage{Content: "b"}))

	for _, want := range []string{"a", "b"} {
		msg, err := sub.Pop(ctx, 2*time.Second)
		require.NoError(t, err)
		assert.Equal(t, want, msg.Data.Content)
	}
}

func TestRedisSubscriptionClose(t *testing.T) {
	ctx := context.Background()
	r := newTestRedisPubSub(t)

	sub, err := r.Subscribe(ctx, "bench-test-close")
	require.NoError(t, err)
	sub.Close(ctx)
	sub.Close(ctx)

	_, err = sub.Pop(ctx, 2*time.Second)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRedisPublishRequiresChannel(t *testing.T) {
	r := NewRedisPubSub[TestMessage](redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}))
	defer r.Close()
	assert.Error(t, r.Publish(context.Background(), "", &TestMessage{}))
	_, err := r.Subscribe(context.Background(), "")
	assert.Error(t, err)
}
