package events

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ValidationError reports an event that fails the schema contract. It is
// non-retryable: redelivering the same bytes fails identically.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s %s", e.Field, e.Reason)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// ErrUnknownTopic is returned by Parse for a topic outside the contract.
// Consumers treat it as a fatal configuration error at startup.
var ErrUnknownTopic = errors.New("unknown topic")

// Topic names are stable identifiers; subscriptions, filters and routing
// all key off them.
const (
	TopicEmails                = "emails"
	TopicCalendars             = "calendars"
	TopicContacts              = "contacts"
	TopicWordDocuments         = "word_documents"
	TopicWordFragments         = "word_fragments"
	TopicSheetDocuments        = "sheet_documents"
	TopicSheetFragments        = "sheet_fragments"
	TopicPresentationDocuments = "presentation_documents"
	TopicPresentationFragments = "presentation_fragments"
	TopicTaskDocuments         = "task_documents"
	TopicTodos                 = "todos"
	TopicLLMChats              = "llm_chats"
	TopicShipmentEvents        = "shipment_events"
	TopicMeetingPolls          = "meeting_polls"
	TopicBookings              = "bookings"
)

var topicTypes = map[string]Type{
	TopicEmails:                TypeEmail,
	TopicCalendars:             TypeCalendar,
	TopicContacts:              TypeContact,
	TopicWordDocuments:         TypeDocument,
	TopicSheetDocuments:        TypeDocument,
	TopicPresentationDocuments: TypeDocument,
	TopicTaskDocuments:         TypeDocument,
	TopicWordFragments:         TypeDocumentFragment,
	TopicSheetFragments:        TypeDocumentFragment,
	TopicPresentationFragments: TypeDocumentFragment,
	TopicTodos:                 TypeTodo,
	TopicLLMChats:              TypeChatMessage,
	TopicShipmentEvents:        TypeShipment,
	TopicMeetingPolls:          TypeMeetingPoll,
	TopicBookings:              TypeBooking,
}

// Topics returns every topic name in the contract.
func Topics() []string {
	out := make([]string, 0, len(topicTypes))
	for t := range topicTypes {
		out = append(out, t)
	}
	return out
}

// TypeForTopic returns the event class carried on a topic.
func TypeForTopic(topic string) (Type, bool) {
	t, ok := topicTypes[topic]
	return t, ok
}

// Parse decodes and validates the event carried on a topic. It never
// partially constructs: any envelope or payload violation returns a
// ValidationError and no event. Unknown JSON fields are ignored for forward
// compatibility.
func Parse(topic string, data []byte) (Event, error) {
	et, ok := topicTypes[topic]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
	}

	ev := newEvent(et)
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, &ValidationError{Field: "body", Reason: err.Error()}
	}
	if err := ev.Env().validate(); err != nil {
		return nil, err
	}
	if err := ev.validatePayload(); err != nil {
		return nil, err
	}
	return ev, nil
}

// Validate checks the envelope and payload contract on a locally constructed
// event. Parse applies the same checks to decoded events.
func Validate(ev Event) error {
	if err := ev.Env().validate(); err != nil {
		return err
	}
	return ev.validatePayload()
}

// Serialize encodes an event as UTF-8 JSON. The output round-trips:
// Parse(topic, Serialize(e)) reconstructs an equal event.
func Serialize(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("serialize %s event: %w", ev.Type(), err)
	}
	return data, nil
}

func newEvent(et Type) Event {
	switch et {
	case TypeEmail:
		return &EmailEvent{}
	case TypeCalendar:
		return &CalendarEvent{}
	case TypeContact:
		return &ContactEvent{}
	case TypeDocument:
		return &DocumentEvent{}
	case TypeDocumentFragment:
		return &DocumentFragmentEvent{}
	case TypeTodo:
		return &TodoEvent{}
	case TypeChatMessage:
		return &ChatMessageEvent{}
	case TypeShipment:
		return &ShipmentEvent{}
	case TypeMeetingPoll:
		return &MeetingPollEvent{}
	case TypeBooking:
		return &BookingEvent{}
	}
	panic(fmt.Sprintf("events: no constructor for type %q", et))
}
