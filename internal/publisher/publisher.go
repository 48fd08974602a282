// Package publisher serialises domain events onto their topics. Message
// attributes carry the routing fields so subscription filters can select on
// them without decoding the payload.
package publisher

import (
	"context"
	"fmt"
	"sync"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

// Publisher publishes validated events. Topic handles are cached; Stop
// flushes their pending sends.
type Publisher struct {
	client *pubsub.Client
	logger *zap.Logger

	mu     sync.Mutex
	topics map[string]*pubsub.Topic
}

// New builds a Publisher over client.
func New(client *pubsub.Client, logger *zap.Logger) *Publisher {
	return &Publisher{
		client: client,
		logger: logger.Named("publisher"),
		topics: make(map[string]*pubsub.Topic),
	}
}

// Publish validates, serialises and sends ev on topic, blocking until the
// server acknowledges the message.
func (p *Publisher) Publish(ctx context.Context, topic string, ev events.Event) error {
	want, ok := events.TypeForTopic(topic)
	if !ok {
		return fmt.Errorf("publisher: %w: %q", events.ErrUnknownTopic, topic)
	}
	if ev.Type() != want {
		return fmt.Errorf("publisher: %s event on topic %q (carries %s)", ev.Type(), topic, want)
	}
	if err := events.Validate(ev); err != nil {
		return fmt.Errorf("publisher: %w", err)
	}

	data, err := events.Serialize(ev)
	if err != nil {
		return err
	}

	env := ev.Env()
	res := p.topic(topic).Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": string(ev.Type()),
			"operation":  string(env.Operation),
			"user_id":    env.UserID,
			"provider":   env.Provider,
		},
	})
	id, err := res.Get(ctx)
	if err != nil {
		return fmt.Errorf("publisher: publish on %s: %w", topic, err)
	}

	p.logger.Debug("event published",
		zap.String("topic", topic),
		zap.String("message_id", id),
		zap.String("event_type", string(ev.Type())),
		zap.String("entity_id", ev.EntityID()))
	return nil
}

// PublishContact sends a contact update onto the contacts topic. It is the
// re-emit hook of the discovery pipeline.
func (p *Publisher) PublishContact(ctx context.Context, ev *events.ContactEvent) error {
	return p.Publish(ctx, events.TopicContacts, ev)
}

// Stop flushes all cached topic handles.
func (p *Publisher) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, t := range p.topics {
		t.Stop()
	}
}

func (p *Publisher) topic(name string) *pubsub.Topic {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.topics[name]
	if !ok {
		t = p.client.Topic(name)
		p.topics[name] = t
	}
	return t
}
