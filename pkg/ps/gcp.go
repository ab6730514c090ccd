package ps

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/option"

	"github.com/Seann-Moser/go-bench/pkg/clientpkg"
	"github.com/Seann-Moser/go-bench/pkg/ctxLogger"
)

var _ PubSub[any] = &GCPPubSub[any]{}

// GCPPubSub publishes to Pub/Sub topics and receives through a named subscription.
type GCPPubSub[T any] struct {
	client       *pubsub.Client
	subscription string

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

func GCPPubSubFlags(prefix string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(clientpkg.GetFlagWithPrefix("gcp-pub-sub", prefix), pflag.ExitOnError)
	fs.String(clientpkg.GetFlagWithPrefix("project-id", prefix), "", "GCP Project ID")
	fs.String(clientpkg.GetFlagWithPrefix("credentials-file", prefix), "", "Path to GCP service account credentials JSON file")
	fs.String(clientpkg.GetFlagWithPrefix("subscription", prefix), "", "Pub/Sub subscription to receive from, defaults to the topic name")
	return fs
}

func NewGCPPubSubFromFlags[T any](ctx context.Context, prefix string) (*GCPPubSub[T], error) {
	projectID := viper.GetString(clientpkg.GetFlagWithPrefix("project-id", prefix))
	credentialsFile := viper.GetString(clientpkg.GetFlagWithPrefix("credentials-file", prefix))
	if projectID == "" {
		return nil, fmt.Errorf("%s is required", clientpkg.GetFlagWithPrefix("project-id", prefix))
	}

	var clientOpts []option.ClientOption
	if credentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(credentialsFile))
	}
	g, err := NewGCPPubSub[T](ctx, projectID, clientOpts...)
	if err != nil {
		return nil, err
	}
	g.subscription = viper.GetString(clientpkg.GetFlagWithPrefix("subscription", prefix))
	return g, nil
}

func NewGCPPubSub[T any](ctx context.Context, projectID string, opts ...option.ClientOption) (*GCPPubSub[T], error) {
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create pubsub client: %w", err)
	}
	return &GCPPubSub[T]{
		client: client,
		topics: map[string]*pubsub.Topic{},
	}, nil
}

func (g *GCPPubSub[T]) topic(name string) *pubsub.Topic {
	g.mu.Lock()
	defer g.mu.Unlock()
	t, ok := g.topics[name]
	if !ok {
		t = g.client.Topic(name)
		g.topics[name] = t
	}
	return t
}

// Publish sends every message and waits for the server to acknowledge all of them.
func (g *GCPPubSub[T]) Publish(ctx context.Context, topic string, msgs ...*T) error {
	if topic == "" {
		return fmt.Errorf("topic is required")
	}
	t := g.topic(topic)
	eg, ctx := errgroup.WithContext(ctx)
	for _, msg := range msgs {
		b, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed marshalling message: %w", err)
		}
		result := t.Publish(ctx, &pubsub.Message{Data: b})
		eg.Go(func() error {
			_, err := result.Get(ctx)
			return err
		})
	}
	return eg.Wait()
}

// CreateTopic creates a new Pub/Sub topic.
func (g *GCPPubSub[T]) CreateTopic(ctx context.Context, topic string) (*pubsub.Topic, error) {
	return g.client.CreateTopic(ctx, topic)
}

func (g *GCPPubSub[T]) Subscribe(ctx context.Context, topic string) (*Subscription[T], error) {
	name := g.subscription
	if name == "" {
		name = topic
	}
	sub := g.client.Subscription(name)
	receiveCtx, cancel := context.WithCancel(ctx)
	dataCh := make(chan *SubscriptionData[T], subscriptionBuffer)
	finished := make(chan struct{})

	go func() {
		defer close(finished)
		defer close(dataCh)
		ctxLogger.Info(ctx, "starting subscriber", zap.String("subscription", name))
		err := sub.Receive(receiveCtx, func(ctx context.Context, msg *pubsub.Message) {
			var d T
			if err := json.Unmarshal(msg.Data, &d); err != nil {
				msg.Nack()
				ctxLogger.Warn(ctx, "failed unmarshalling data", zap.Error(err))
				return
			}
			select {
			case dataCh <- &SubscriptionData[T]{
				Data: &d,
				Ack: func(ctx context.Context) error {
					msg.Ack()
					return nil
				},
				Nack: func(ctx context.Context) error {
					msg.Nack()
					return nil
				},
			}:
			case <-ctx.Done():
				msg.Nack()
			}
		})
		if err != nil {
			ctxLogger.Warn(ctx, "failed to receive subscription data", zap.Error(err))
		}
		ctxLogger.Info(ctx, "subscriber finished", zap.String("subscription", name))
	}()

	return &Subscription[T]{
		Name: name,
		c:    dataCh,
		closeFunc: func() {
			cancel()
			<-finished
		},
	}, nil
}

func (g *GCPPubSub[T]) Ping(ctx context.Context) error {
	return nil
}

func (g *GCPPubSub[T]) Close() error {
	g.mu.Lock()
	for _, t := range g.topics {
		t.Stop()
	}
	g.mu.Unlock()
	return g.client.Close()
}
