// Package registry is the authoritative mapping of consumer services to the
// topics they pull and the subscription parameters they pull with. It is the
// only place subscription names are constructed; consumers must resolve
// names here instead of inventing them.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

// Consumer service names.
const (
	ServiceVespaLoader      = "vespa_loader"
	ServiceContactDiscovery = "contact_discovery"
	ServiceMeetings         = "meetings"
	ServiceShipments        = "shipments"
	ServiceFrontendSSE      = "frontend_sse"
)

// Defaults applied where a table row leaves a field unset.
const (
	DefaultBatchSize           = 10
	DefaultAckDeadline         = 60 * time.Second
	DefaultMaxDeliveryAttempts = 5
)

// Config is the resolved subscription configuration for one
// (service, topic) pair. The fields map one-to-one onto the transport's
// durable-subscription settings.
type Config struct {
	Subscription        string
	Topic               string
	BatchSize           int
	AckDeadline         time.Duration
	RetainAcked         bool
	ExactlyOnce         bool
	Filter              string
	DeadLetterTopic     string
	MaxDeliveryAttempts int
}

// row is a table entry before defaults are merged. Zero-valued fields fall
// back to package defaults; an empty Subscription falls back to the derived
// service-topic name.
type row struct {
	Subscription        string
	BatchSize           int
	AckDeadline         time.Duration
	RetainAcked         bool
	ExactlyOnce         bool
	Filter              string
	DeadLetterTopic     string
	MaxDeliveryAttempts int
}

// table is the compile-time subscription registry. Heavy document topics get
// long ack deadlines because chunking plus fan-out writes can take the full
// window; discovery runs wide batches because its per-event work is a single
// indexed upsert.
var table = map[string]map[string]row{
	ServiceVespaLoader: {
		events.TopicEmails:                {BatchSize: 50, AckDeadline: 120 * time.Second, DeadLetterTopic: "emails-dead-letter"},
		events.TopicCalendars:             {BatchSize: 20},
		events.TopicContacts:              {BatchSize: 50},
		events.TopicWordDocuments:         {BatchSize: 10, AckDeadline: 180 * time.Second, DeadLetterTopic: "word-documents-dead-letter"},
		events.TopicWordFragments:         {BatchSize: 20, AckDeadline: 120 * time.Second},
		events.TopicSheetDocuments:        {BatchSize: 10, AckDeadline: 180 * time.Second, DeadLetterTopic: "sheet-documents-dead-letter"},
		events.TopicSheetFragments:        {BatchSize: 20, AckDeadline: 120 * time.Second},
		events.TopicPresentationDocuments: {BatchSize: 10, AckDeadline: 180 * time.Second, DeadLetterTopic: "presentation-documents-dead-letter"},
		events.TopicPresentationFragments: {BatchSize: 20, AckDeadline: 120 * time.Second},
		events.TopicTaskDocuments:         {BatchSize: 20, AckDeadline: 120 * time.Second},
		events.TopicTodos:                 {BatchSize: 50},
		events.TopicLLMChats:              {BatchSize: 50},
		events.TopicShipmentEvents:        {BatchSize: 50},
		events.TopicMeetingPolls:          {BatchSize: 20},
		events.TopicBookings:              {BatchSize: 20},
	},
	ServiceContactDiscovery: {
		events.TopicEmails:                {BatchSize: 100},
		events.TopicCalendars:             {BatchSize: 100},
		events.TopicContacts:              {BatchSize: 100},
		events.TopicWordDocuments:         {BatchSize: 50},
		events.TopicSheetDocuments:        {BatchSize: 50},
		events.TopicPresentationDocuments: {BatchSize: 50},
		events.TopicTaskDocuments:         {BatchSize: 50},
		events.TopicTodos:                 {BatchSize: 100},
	},
	ServiceMeetings: {
		events.TopicCalendars: {BatchSize: 20},
	},
	ServiceShipments: {
		events.TopicEmails: {BatchSize: 50},
	},
	ServiceFrontendSSE: {
		events.TopicEmails: {
			BatchSize:   10,
			AckDeadline: 30 * time.Second,
			Filter:      `attributes.operation = "create"`,
		},
	},
}

// SubscriptionName resolves the durable subscription name for a
// (service, topic) pair. Pairs outside the table fall back to the derived
// kebab-cased "service-topic" form.
func SubscriptionName(service, topic string) string {
	if r, ok := lookup(service, topic); ok && r.Subscription != "" {
		return r.Subscription
	}
	return derivedName(service, topic)
}

// ResolveConfig merges the table row for (service, topic) with package
// defaults. The pair must exist in the table; use SubscriptionName for
// name-only fallback resolution.
func ResolveConfig(service, topic string) (Config, error) {
	r, ok := lookup(service, topic)
	if !ok {
		return Config{}, fmt.Errorf("registry: no subscription for service %q on topic %q", service, topic)
	}

	cfg := Config{
		Subscription:        r.Subscription,
		Topic:               topic,
		BatchSize:           r.BatchSize,
		AckDeadline:         r.AckDeadline,
		RetainAcked:         r.RetainAcked,
		ExactlyOnce:         r.ExactlyOnce,
		Filter:              r.Filter,
		DeadLetterTopic:     r.DeadLetterTopic,
		MaxDeliveryAttempts: r.MaxDeliveryAttempts,
	}
	if cfg.Subscription == "" {
		cfg.Subscription = derivedName(service, topic)
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.AckDeadline == 0 {
		cfg.AckDeadline = DefaultAckDeadline
	}
	if cfg.MaxDeliveryAttempts == 0 {
		cfg.MaxDeliveryAttempts = DefaultMaxDeliveryAttempts
	}
	return cfg, nil
}

// TopicsFor lists the topics a service subscribes to, sorted.
func TopicsFor(service string) []string {
	rows, ok := table[service]
	if !ok {
		return nil
	}
	topics := make([]string, 0, len(rows))
	for t := range rows {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// DeadLetterTopics lists the dead-letter topics a service's subscriptions
// reference, sorted and deduplicated. Consumers provision these alongside
// the contract topics before subscribing.
func DeadLetterTopics(service string) []string {
	rows, ok := table[service]
	if !ok {
		return nil
	}
	seen := make(map[string]bool)
	var topics []string
	for _, r := range rows {
		if r.DeadLetterTopic != "" && !seen[r.DeadLetterTopic] {
			seen[r.DeadLetterTopic] = true
			topics = append(topics, r.DeadLetterTopic)
		}
	}
	sort.Strings(topics)
	return topics
}

// SubscribersOf lists the services subscribed to a topic, sorted.
func SubscribersOf(topic string) []string {
	var services []string
	for svc, rows := range table {
		if _, ok := rows[topic]; ok {
			services = append(services, svc)
		}
	}
	sort.Strings(services)
	return services
}

// Validate reports whether (service, topic) is a configured pair and the
// topic is part of the event contract.
func Validate(service, topic string) error {
	if _, ok := events.TypeForTopic(topic); !ok {
		return fmt.Errorf("registry: topic %q is not in the event contract", topic)
	}
	if _, ok := lookup(service, topic); !ok {
		return fmt.Errorf("registry: service %q does not subscribe to topic %q", service, topic)
	}
	return nil
}

func lookup(service, topic string) (row, bool) {
	rows, ok := table[service]
	if !ok {
		return row{}, false
	}
	r, ok := rows[topic]
	return r, ok
}

func derivedName(service, topic string) string {
	kebab := func(s string) string { return strings.ReplaceAll(s, "_", "-") }
	return kebab(service) + "-" + kebab(topic)
}
