// Package consumer is the typed Pub/Sub runtime shared by every service in
// the fabric. A Consumer resolves its subscriptions from the registry,
// ensures they exist, pulls messages with per-subscription flow control,
// batches decoded events per topic, and dispatches batches concurrently
// through the idempotency kernel.
//
// Delivery is at-least-once. Parse failures and processor errors nack; the
// transport redelivers until the subscription's dead-letter policy diverts
// the message. The idempotency kernel is the only serialisation point that
// keeps redeliveries from repeating side effects.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/corpus-self/ingest-fabric/internal/events"
	"github.com/corpus-self/ingest-fabric/internal/idempotency"
	"github.com/corpus-self/ingest-fabric/internal/registry"
)

const (
	batchTimeout    = 5 * time.Second
	maxBatchBytes   = 1 << 20
	dispatchFanout  = 16
	shutdownTimeout = 30 * time.Second
)

// ErrNoProcessors is returned by Start when no topic handler was registered.
var ErrNoProcessors = errors.New("consumer: no processors registered")

// Processor handles one decoded event. Its result is recorded by the
// idempotency kernel.
type Processor func(ctx context.Context, ev events.Event) (any, error)

// Consumer pulls a service's subscriptions and drives its processors.
type Consumer struct {
	service string
	client  *pubsub.Client
	kernel  *idempotency.Kernel
	logger  *zap.Logger
	tracer  trace.Tracer

	processors map[string]Processor
	batchers   map[string]*batcher
	stats      *Stats

	// batchTimeout is a field so tests can shrink the flush window.
	batchTimeout time.Duration

	cancel   context.CancelFunc
	receives sync.WaitGroup
	inflight sync.WaitGroup
}

// New builds a Consumer for a registry service name.
func New(service string, client *pubsub.Client, kernel *idempotency.Kernel, logger *zap.Logger) *Consumer {
	return &Consumer{
		service:      service,
		client:       client,
		kernel:       kernel,
		logger:       logger.Named("consumer").With(zap.String("service", service)),
		tracer:       otel.Tracer("ingest-fabric/consumer"),
		processors:   make(map[string]Processor),
		batchers:     make(map[string]*batcher),
		stats:        newStats(),
		batchTimeout: batchTimeout,
	}
}

// Handle registers the processor for a topic. The (service, topic) pair must
// exist in the registry.
func (c *Consumer) Handle(topic string, p Processor) error {
	if err := registry.Validate(c.service, topic); err != nil {
		return err
	}
	c.processors[topic] = p
	return nil
}

// Stats exposes the runtime counters.
func (c *Consumer) Stats() *Stats { return c.stats }

// Start ensures every subscription exists and launches one streaming pull
// per topic. It returns once all pulls are running; missing registry entries
// or subscription setup failures abort the start.
func (c *Consumer) Start(ctx context.Context) error {
	if len(c.processors) == 0 {
		return ErrNoProcessors
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	// Stop cancels runCtx to end the pulls; dispatched batches keep running
	// on a detached context so in-flight work completes before shutdown.
	dispatchCtx := context.WithoutCancel(runCtx)

	for topic := range c.processors {
		cfg, err := registry.ResolveConfig(c.service, topic)
		if err != nil {
			cancel()
			return err
		}

		sub, err := c.ensureSubscription(runCtx, cfg)
		if err != nil {
			cancel()
			return fmt.Errorf("consumer: subscription %s: %w", cfg.Subscription, err)
		}

		topic := topic
		b := newBatcher(cfg.BatchSize, c.batchTimeout, func(batch []delivery) {
			c.inflight.Add(1)
			defer c.inflight.Done()
			c.processBatch(dispatchCtx, topic, batch)
		})
		c.batchers[topic] = b
		c.stats.register(topic, b)

		c.receives.Add(1)
		go func() {
			defer c.receives.Done()
			err := sub.Receive(runCtx, func(ctx context.Context, msg *pubsub.Message) {
				c.receive(topic, b, msg)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				c.logger.Error("streaming pull terminated",
					zap.String("topic", topic),
					zap.Error(err))
			}
		}()

		c.logger.Info("subscription attached",
			zap.String("topic", topic),
			zap.String("subscription", cfg.Subscription),
			zap.Int("batch_size", cfg.BatchSize),
			zap.Duration("ack_deadline", cfg.AckDeadline))
	}
	return nil
}

// Stop cancels all pulls, lets dispatched work run to completion, and nacks
// whatever was buffered but never dispatched.
func (c *Consumer) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	c.receives.Wait()

	for topic, b := range c.batchers {
		leftover := b.drain()
		for _, d := range leftover {
			d.msg.Nack()
		}
		if len(leftover) > 0 {
			c.logger.Info("nacked undispatched buffer",
				zap.String("topic", topic),
				zap.Int("count", len(leftover)))
		}
	}

	done := make(chan struct{})
	go func() {
		c.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(shutdownTimeout):
		c.logger.Warn("shutdown timed out waiting for in-flight batches")
	}
	c.logger.Info("consumer stopped")
}

// ensureSubscription creates the durable subscription from its registry
// config when it does not exist yet, and installs flow control either way.
func (c *Consumer) ensureSubscription(ctx context.Context, cfg registry.Config) (*pubsub.Subscription, error) {
	sub := c.client.Subscription(cfg.Subscription)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("exists: %w", err)
	}
	if !exists {
		sc := pubsub.SubscriptionConfig{
			Topic:                     c.client.Topic(cfg.Topic),
			AckDeadline:               cfg.AckDeadline,
			RetainAckedMessages:       cfg.RetainAcked,
			EnableExactlyOnceDelivery: cfg.ExactlyOnce,
			Filter:                    cfg.Filter,
		}
		if cfg.DeadLetterTopic != "" {
			sc.DeadLetterPolicy = &pubsub.DeadLetterPolicy{
				DeadLetterTopic:     c.client.Topic(cfg.DeadLetterTopic).String(),
				MaxDeliveryAttempts: cfg.MaxDeliveryAttempts,
			}
		}
		if sub, err = c.client.CreateSubscription(ctx, cfg.Subscription, sc); err != nil {
			return nil, fmt.Errorf("create: %w", err)
		}
		c.logger.Info("subscription created", zap.String("subscription", cfg.Subscription))
	}

	sub.ReceiveSettings = pubsub.ReceiveSettings{
		MaxOutstandingMessages: cfg.BatchSize,
		MaxOutstandingBytes:    maxBatchBytes,
	}
	return sub, nil
}

// receive decodes one raw message and buffers it. Parse failures nack
// immediately: the bytes fail identically on every redelivery, and the
// dead-letter policy is what eventually retires them.
func (c *Consumer) receive(topic string, b *batcher, msg *pubsub.Message) {
	ev, err := events.Parse(topic, msg.Data)
	if err != nil {
		c.stats.errors.Add(1)
		c.logger.Warn("undecodable message",
			zap.String("topic", topic),
			zap.String("message_id", msg.ID),
			zap.Error(err))
		msg.Nack()
		return
	}
	b.add(delivery{ev: ev, msg: msg})
}

// processBatch dispatches a drained batch with bounded fan-out. Messages
// within the batch are processed in parallel with no ordering guarantee;
// deliveries sharing a batch id go through the kernel's batch path as one
// unit so the aggregate entry gets recorded.
func (c *Consumer) processBatch(ctx context.Context, topic string, batch []delivery) {
	singles, groups := splitByBatchID(batch)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dispatchFanout)
	for _, d := range singles {
		d := d
		g.Go(func() error {
			c.dispatch(gctx, topic, d)
			return nil
		})
	}
	for batchID, ds := range groups {
		batchID, ds := batchID, ds
		g.Go(func() error {
			c.dispatchGroup(gctx, topic, batchID, ds)
			return nil
		})
	}
	_ = g.Wait()
}

// splitByBatchID partitions a drained batch into untagged deliveries and
// groups keyed by their producer-assigned batch id.
func splitByBatchID(batch []delivery) ([]delivery, map[string][]delivery) {
	var singles []delivery
	var groups map[string][]delivery
	for _, d := range batch {
		id := d.ev.Env().BatchID
		if id == "" {
			singles = append(singles, d)
			continue
		}
		if groups == nil {
			groups = make(map[string][]delivery)
		}
		groups[id] = append(groups[id], d)
	}
	return singles, groups
}

// dispatchGroup runs the deliveries of one batch id through the kernel's
// batch path and settles each message from its child outcome.
func (c *Consumer) dispatchGroup(ctx context.Context, topic, batchID string, ds []delivery) {
	ctx, span := c.tracer.Start(ctx, "consumer.dispatch_batch")
	defer span.End()

	evs := make([]events.Event, len(ds))
	for i, d := range ds {
		evs[i] = d.ev
	}
	correlationID := ds[0].ev.Env().Metadata.CorrelationID

	proc := c.processors[topic]
	out, err := c.kernel.ProcessBatch(ctx, batchID, correlationID, evs, func(ctx context.Context, ev events.Event) (any, error) {
		return proc(ctx, ev)
	})

	if len(out.ChildErrors) != len(ds) {
		// The batch key could not be claimed (in flight elsewhere or store
		// failure); nothing ran, redeliver the whole group.
		if err != nil {
			span.RecordError(err)
		}
		c.stats.errors.Add(int64(len(ds)))
		c.logger.Warn("batch group deferred",
			zap.String("topic", topic),
			zap.String("batch_id", batchID),
			zap.Int("count", len(ds)),
			zap.Error(err))
		for _, d := range ds {
			d.msg.Nack()
		}
		return
	}

	for i, d := range ds {
		if cerr := out.ChildErrors[i]; cerr != nil {
			c.stats.errors.Add(1)
			c.logger.Warn("processing failed",
				zap.String("topic", topic),
				zap.String("batch_id", batchID),
				zap.String("entity_id", d.ev.EntityID()),
				zap.String("class", Classify(cerr).String()),
				zap.Error(cerr))
			d.msg.Nack()
			continue
		}
		c.stats.processed.Add(1)
		d.msg.Ack()
	}
}

// dispatch runs one delivery through the kernel-wrapped processor and
// settles the message.
func (c *Consumer) dispatch(ctx context.Context, topic string, d delivery) {
	ctx = c.restoreTraceContext(ctx, d.ev)
	ctx, span := c.tracer.Start(ctx, "consumer.dispatch")
	defer span.End()

	proc := c.processors[topic]
	outcome, err := c.kernel.Process(ctx, d.ev, func(ctx context.Context) (any, error) {
		return proc(ctx, d.ev)
	})
	if err != nil {
		span.RecordError(err)
		class := Classify(err)
		c.stats.errors.Add(1)
		c.logger.Warn("processing failed",
			zap.String("topic", topic),
			zap.String("event_type", string(d.ev.Type())),
			zap.String("entity_id", d.ev.EntityID()),
			zap.String("class", class.String()),
			zap.Error(err))
		d.msg.Nack()
		return
	}

	if outcome.Idempotent {
		c.logger.Debug("duplicate delivery short-circuited",
			zap.String("topic", topic),
			zap.String("key", outcome.Key))
	}
	c.stats.processed.Add(1)
	d.msg.Ack()
}

// restoreTraceContext rebuilds the remote span context from the trace
// identifiers the producer stamped into the event metadata, linking the
// async processing span back to the originating trace.
func (c *Consumer) restoreTraceContext(ctx context.Context, ev events.Event) context.Context {
	md := ev.Env().Metadata
	if md.TraceID == "" || md.SpanID == "" {
		return ctx
	}
	traceID, err := trace.TraceIDFromHex(md.TraceID)
	if err != nil {
		return ctx
	}
	spanID, err := trace.SpanIDFromHex(md.SpanID)
	if err != nil {
		return ctx
	}
	return trace.ContextWithRemoteSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	}))
}
