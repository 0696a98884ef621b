package kafka

import (
	"context"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	"personfinder/internal/platform/config"
)

// Client wraps a franz-go producer bound to one default topic.
type Client struct {
	*kgo.Client
	Topic string
}

// New creates a producer client from the provided configuration.
// Returns nil if no brokers are configured (Kafka disabled).
func New(ctx context.Context, cfg config.KafkaConfig) (*Client, error) {
	if len(cfg.Brokers) == 0 {
		return nil, nil
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ClientID(cfg.ClientID),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka ping failed: %w", err)
	}

	return &Client{Client: client, Topic: cfg.Topic}, nil
}

// Health checks broker connectivity.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx)
}
