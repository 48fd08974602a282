// Package pubsubclient wraps the Pub/Sub connection shared by publishers
// and consumers. Pointing PUBSUB_EMULATOR_HOST at a local emulator is the
// supported way to run without GCP credentials; the underlying library
// honors the variable on its own.
package pubsubclient

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
)

// Client wraps a Pub/Sub client with provisioning helpers.
type Client struct {
	*pubsub.Client
	Log *zap.Logger
}

// NewClient connects to the project's Pub/Sub endpoint.
func NewClient(ctx context.Context, projectID string, logger *zap.Logger) (*Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("pubsubclient: project id is required")
	}
	c, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsubclient: connect: %w", err)
	}
	logger.Info("pubsub connected", zap.String("project", projectID))
	return &Client{Client: c, Log: logger}, nil
}

// ProvisionTopics idempotently creates the given topics. Consumers call it
// with the contract topics plus any dead-letter topics their subscriptions
// reference, so a fresh environment bootstraps itself.
func (c *Client) ProvisionTopics(ctx context.Context, topics []string) error {
	for _, name := range topics {
		topic := c.Topic(name)
		exists, err := topic.Exists(ctx)
		if err != nil {
			return fmt.Errorf("pubsubclient: check topic %s: %w", name, err)
		}
		if exists {
			continue
		}
		if _, err := c.CreateTopic(ctx, name); err != nil {
			return fmt.Errorf("pubsubclient: create topic %s: %w", name, err)
		}
		c.Log.Info("topic provisioned", zap.String("topic", name))
	}
	return nil
}

// Close releases the underlying connection.
func (c *Client) Close() {
	if err := c.Client.Close(); err != nil {
		c.Log.Warn("pubsub close", zap.Error(err))
	}
}
