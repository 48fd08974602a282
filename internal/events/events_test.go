package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnvelope(op Operation) Envelope {
	return Envelope{
		Metadata:      NewMetadata("email_sync", "1.4.2"),
		UserID:        "u1",
		Operation:     op,
		Provider:      "gmail",
		LastUpdated:   NewTimestamp(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)),
		SyncTimestamp: NewTimestamp(time.Date(2024, 1, 1, 10, 0, 5, 0, time.UTC)),
	}
}

func TestParseSerializeRoundTrip(t *testing.T) {
	ev := &EmailEvent{
		Envelope: testEnvelope(OperationCreate),
		Email: EmailPayload{
			ID:             "e1",
			ThreadID:       "t1",
			Subject:        "Hello",
			Body:           "Hi",
			FromAddress:    "a@x.com",
			ToAddresses:    []string{"b@y.com"},
			ReceivedDate:   NewTimestamp(time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)),
			Labels:         []string{"INBOX"},
			IsRead:         true,
			HasAttachments: false,
			SizeBytes:      2048,
			Headers:        map[string]string{"Message-Id": "<e1@x.com>"},
		},
	}

	data, err := Serialize(ev)
	require.NoError(t, err)

	parsed, err := Parse(TopicEmails, data)
	require.NoError(t, err)
	got, ok := parsed.(*EmailEvent)
	require.True(t, ok)

	assert.Equal(t, ev.Email, got.Email)
	assert.Equal(t, ev.UserID, got.UserID)
	assert.Equal(t, ev.Operation, got.Operation)
	assert.True(t, ev.LastUpdated.Equal(got.LastUpdated))
	assert.Equal(t, ev.Metadata.EventID, got.Metadata.EventID)

	// A second serialize of the parsed event is byte-stable.
	again, err := Serialize(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(data), string(again))
}

func TestParseRoundTripAllClasses(t *testing.T) {
	cases := []struct {
		topic string
		ev    Event
	}{
		{TopicCalendars, &CalendarEvent{Envelope: testEnvelope(OperationCreate), Event: CalendarPayload{ID: "c1", Title: "Standup", Organizer: "a@x.com", Attendees: []string{"b@y.com"}, CalendarID: "primary"}}},
		{TopicContacts, &ContactEvent{Envelope: testEnvelope(OperationUpdate), Contact: ContactPayload{ID: "ct1", DisplayName: "Ada Lovelace", EmailAddresses: []string{"ada@x.com"}}}},
		{TopicWordDocuments, &DocumentEvent{Envelope: testEnvelope(OperationCreate), Document: DocumentPayload{ID: "d1", ContentType: ContentTypeWord, Title: "Notes", Content: "body", OwnerEmail: "a@x.com", WordCount: 1}}},
		{TopicWordFragments, &DocumentFragmentEvent{Envelope: testEnvelope(OperationCreate), Fragment: DocumentFragmentPayload{ID: "d1-chunk-0", ParentDocID: "d1", Content: "body", SequenceNumber: 0}}},
		{TopicTodos, &TodoEvent{Envelope: testEnvelope(OperationCreate), Todo: TodoPayload{ID: "t1", Title: "Ship it", AssigneeEmail: "x@z.com", CreatorEmail: "y@z.com"}}},
		{TopicLLMChats, &ChatMessageEvent{Envelope: testEnvelope(OperationCreate), Message: ChatMessagePayload{ID: "m1", ChatID: "chat1", Content: "hi"}}},
		{TopicShipmentEvents, &ShipmentEvent{Envelope: testEnvelope(OperationCreate), Shipment: ShipmentPayload{ID: "s1", Carrier: "ups", Description: "out for delivery"}}},
		{TopicMeetingPolls, &MeetingPollEvent{Envelope: testEnvelope(OperationCreate), Poll: MeetingPollPayload{ID: "p1", MeetingID: "mt1", Question: "when?"}}},
		{TopicBookings, &BookingEvent{Envelope: testEnvelope(OperationCreate), Booking: BookingPayload{ID: "b1", ResourceID: "room-4", Purpose: "sync"}}},
	}

	for _, tc := range cases {
		data, err := Serialize(tc.ev)
		require.NoError(t, err, tc.topic)

		parsed, err := Parse(tc.topic, data)
		require.NoError(t, err, tc.topic)
		assert.Equal(t, tc.ev.Type(), parsed.Type(), tc.topic)
		assert.Equal(t, tc.ev.EntityID(), parsed.EntityID(), tc.topic)

		again, err := Serialize(parsed)
		require.NoError(t, err, tc.topic)
		assert.JSONEq(t, string(data), string(again), tc.topic)
	}
}

func TestParseRejectsMissingRequiredFields(t *testing.T) {
	base := testEnvelope(OperationCreate)

	cases := []struct {
		name  string
		ev    Event
		field string
	}{
		{"missing user_id", &EmailEvent{Envelope: func() Envelope { e := base; e.UserID = ""; return e }(), Email: EmailPayload{ID: "e1"}}, "user_id"},
		{"bad operation", &EmailEvent{Envelope: func() Envelope { e := base; e.Operation = "upsert"; return e }(), Email: EmailPayload{ID: "e1"}}, "operation"},
		{"missing provider", &EmailEvent{Envelope: func() Envelope { e := base; e.Provider = ""; return e }(), Email: EmailPayload{ID: "e1"}}, "provider"},
		{"missing last_updated", &EmailEvent{Envelope: func() Envelope { e := base; e.LastUpdated = Timestamp{}; return e }(), Email: EmailPayload{ID: "e1"}}, "last_updated"},
		{"missing payload id", &EmailEvent{Envelope: base, Email: EmailPayload{}}, "email.id"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Serialize(tc.ev)
			require.NoError(t, err)

			_, err = Parse(TopicEmails, data)
			require.Error(t, err)
			require.True(t, IsValidation(err))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestParseRejectsBadContentType(t *testing.T) {
	ev := &DocumentEvent{Envelope: testEnvelope(OperationCreate), Document: DocumentPayload{ID: "d1", ContentType: "pdf"}}
	data, err := Serialize(ev)
	require.NoError(t, err)

	_, err = Parse(TopicWordDocuments, data)
	require.True(t, IsValidation(err))
}

func TestParseUnknownTopic(t *testing.T) {
	_, err := Parse("invoices", []byte(`{}`))
	require.ErrorIs(t, err, ErrUnknownTopic)
}

func TestParseMalformedJSON(t *testing.T) {
	_, err := Parse(TopicEmails, []byte(`{"user_id": `))
	require.True(t, IsValidation(err))
}

func TestParseIgnoresUnknownFields(t *testing.T) {
	ev := &EmailEvent{Envelope: testEnvelope(OperationCreate), Email: EmailPayload{ID: "e1"}}
	data, err := Serialize(ev)
	require.NoError(t, err)

	// Simulate a newer producer adding a field this consumer does not know.
	extended := append([]byte(`{"future_field":{"x":1},`), data[1:]...)
	parsed, err := Parse(TopicEmails, extended)
	require.NoError(t, err)
	assert.Equal(t, "e1", parsed.EntityID())
}

func TestAnnotateIsTheOnlyMutation(t *testing.T) {
	ev := &EmailEvent{Envelope: testEnvelope(OperationCreate), Email: EmailPayload{ID: "e1"}}
	ev.Annotate("0af7651916cd43dd8448eb211c80319c", "b7ad6b7169203331", "")
	ev.WithRequestContext("req-1", "admin-7", "corr-1")
	ev.AddTag("origin", "backfill")

	assert.Equal(t, "0af7651916cd43dd8448eb211c80319c", ev.Metadata.TraceID)
	assert.Equal(t, "req-1", ev.Metadata.RequestID)
	assert.Equal(t, "admin-7", ev.Metadata.UserID)
	assert.Equal(t, "corr-1", ev.Metadata.CorrelationID)
	assert.Equal(t, "backfill", ev.Metadata.Tags["origin"])

	// Annotation survives a round trip.
	data, err := Serialize(ev)
	require.NoError(t, err)
	parsed, err := Parse(TopicEmails, data)
	require.NoError(t, err)
	assert.Equal(t, "corr-1", parsed.Env().Metadata.CorrelationID)
}
