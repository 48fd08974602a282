package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

func TestSubscriptionNameDerivation(t *testing.T) {
	assert.Equal(t, "vespa-loader-emails", SubscriptionName(ServiceVespaLoader, events.TopicEmails))
	assert.Equal(t, "vespa-loader-word-documents", SubscriptionName(ServiceVespaLoader, events.TopicWordDocuments))
	assert.Equal(t, "contact-discovery-emails", SubscriptionName(ServiceContactDiscovery, events.TopicEmails))

	// Unconfigured pairs fall back to the derived service-topic form.
	assert.Equal(t, "meetings-bookings", SubscriptionName(ServiceMeetings, events.TopicBookings))
	assert.Equal(t, "unknown-service-emails", SubscriptionName("unknown_service", events.TopicEmails))
}

func TestResolveConfigMergesDefaults(t *testing.T) {
	cfg, err := ResolveConfig(ServiceVespaLoader, events.TopicCalendars)
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.BatchSize)
	assert.Equal(t, DefaultAckDeadline, cfg.AckDeadline)
	assert.Equal(t, DefaultMaxDeliveryAttempts, cfg.MaxDeliveryAttempts)
	assert.False(t, cfg.RetainAcked)
	assert.False(t, cfg.ExactlyOnce)
	assert.Empty(t, cfg.DeadLetterTopic)
}

func TestResolveConfigOverrides(t *testing.T) {
	cfg, err := ResolveConfig(ServiceVespaLoader, events.TopicWordDocuments)
	require.NoError(t, err)
	assert.Equal(t, "vespa-loader-word-documents", cfg.Subscription)
	assert.Equal(t, 10, cfg.BatchSize)
	assert.Equal(t, 180*time.Second, cfg.AckDeadline)
	assert.Equal(t, "word-documents-dead-letter", cfg.DeadLetterTopic)

	sse, err := ResolveConfig(ServiceFrontendSSE, events.TopicEmails)
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, sse.AckDeadline)
	assert.Equal(t, `attributes.operation = "create"`, sse.Filter)
}

func TestResolveConfigUnknownPair(t *testing.T) {
	_, err := ResolveConfig(ServiceShipments, events.TopicBookings)
	require.Error(t, err)
}

func TestTopicsFor(t *testing.T) {
	topics := TopicsFor(ServiceVespaLoader)
	assert.Len(t, topics, 15)
	assert.Contains(t, topics, events.TopicWordFragments)

	assert.Equal(t, []string{events.TopicCalendars}, TopicsFor(ServiceMeetings))
	assert.Nil(t, TopicsFor("unknown_service"))
}

func TestDeadLetterTopics(t *testing.T) {
	topics := DeadLetterTopics(ServiceVespaLoader)
	assert.Equal(t, []string{
		"emails-dead-letter",
		"presentation-documents-dead-letter",
		"sheet-documents-dead-letter",
		"word-documents-dead-letter",
	}, topics)

	assert.Nil(t, DeadLetterTopics(ServiceContactDiscovery))
	assert.Nil(t, DeadLetterTopics("unknown_service"))
}

func TestSubscribersOf(t *testing.T) {
	subs := SubscribersOf(events.TopicEmails)
	assert.Equal(t, []string{ServiceContactDiscovery, ServiceFrontendSSE, ServiceShipments, ServiceVespaLoader}, subs)

	assert.Equal(t, []string{ServiceVespaLoader}, SubscribersOf(events.TopicBookings))
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(ServiceVespaLoader, events.TopicEmails))
	require.Error(t, Validate(ServiceMeetings, events.TopicEmails))
	require.Error(t, Validate(ServiceVespaLoader, "invoices"))
}

// Every table row must reference a topic in the event contract; a typo here
// would otherwise only surface at consumer startup.
func TestTableTopicsAreInContract(t *testing.T) {
	for svc, rows := range table {
		for topic := range rows {
			_, ok := events.TypeForTopic(topic)
			assert.True(t, ok, "service %s references unknown topic %s", svc, topic)
		}
	}
}
