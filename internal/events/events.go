// Package events defines the versioned event contract shared by every
// producer and consumer in the ingestion fabric: the envelope, the typed
// payloads, and the topic-keyed codec.
//
// The event set is a closed union. Each concrete event embeds Envelope and
// implements the unexported marker method, so a type switch over Event is
// exhaustive by construction and the document factory cannot receive an
// event class it does not know about.
package events

// Operation is the mutation kind carried by every domain event.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
	OperationDelete Operation = "delete"
)

// Valid reports whether op is one of the three supported operations.
func (op Operation) Valid() bool {
	switch op {
	case OperationCreate, OperationUpdate, OperationDelete:
		return true
	}
	return false
}

// Mutable reports whether op produces a new version of an existing entity.
func (op Operation) Mutable() bool {
	return op == OperationUpdate || op == OperationDelete
}

// Type tags the event classes of the union. It doubles as the source_type
// written into search-backend documents.
type Type string

const (
	TypeEmail            Type = "email"
	TypeCalendar         Type = "calendar"
	TypeContact          Type = "contact"
	TypeDocument         Type = "document"
	TypeDocumentFragment Type = "document_fragment"
	TypeTodo             Type = "todo"
	TypeChatMessage      Type = "chat_message"
	TypeShipment         Type = "shipment"
	TypeMeetingPoll      Type = "meeting_poll"
	TypeBooking          Type = "booking"
)

// Envelope carries the fields required on every domain event. The embedded
// Metadata block is the transport-level header; the remaining fields are the
// domain-level tenancy and versioning keys.
//
// last_updated is the provider-side mutation time and sync_timestamp the
// local observation time. They are distinct on purpose: idempotency keys for
// mutable operations derive from last_updated, and substituting the local
// clock would change the key on every redelivery.
type Envelope struct {
	Metadata      Metadata  `json:"metadata"`
	UserID        string    `json:"user_id"`
	Operation     Operation `json:"operation"`
	Provider      string    `json:"provider"`
	LastUpdated   Timestamp `json:"last_updated"`
	SyncTimestamp Timestamp `json:"sync_timestamp"`
	BatchID       string    `json:"batch_id,omitempty"`
}

// Env exposes the envelope to code that handles events generically.
func (e *Envelope) Env() *Envelope { return e }

// Annotate attaches distributed-trace context. Annotation is the only
// permitted post-construction mutation of an event.
func (e *Envelope) Annotate(traceID, spanID, parentSpanID string) {
	e.Metadata.TraceID = traceID
	e.Metadata.SpanID = spanID
	e.Metadata.ParentSpanID = parentSpanID
}

// WithRequestContext attaches the identifiers of the producing call: the
// request, the acting user (which may differ from the envelope's tenant)
// and the correlation chain.
func (e *Envelope) WithRequestContext(requestID, userID, correlationID string) {
	e.Metadata.RequestID = requestID
	e.Metadata.UserID = userID
	e.Metadata.CorrelationID = correlationID
}

// AddTag records a free-form tag on the event metadata.
func (e *Envelope) AddTag(key, value string) {
	if e.Metadata.Tags == nil {
		e.Metadata.Tags = make(map[string]string)
	}
	e.Metadata.Tags[key] = value
}

func (e *Envelope) validate() error {
	if e.UserID == "" {
		return &ValidationError{Field: "user_id", Reason: "required"}
	}
	if !e.Operation.Valid() {
		return &ValidationError{Field: "operation", Reason: "must be create, update or delete"}
	}
	if e.Provider == "" {
		return &ValidationError{Field: "provider", Reason: "required"}
	}
	if e.LastUpdated.IsZero() {
		return &ValidationError{Field: "last_updated", Reason: "required"}
	}
	if e.SyncTimestamp.IsZero() {
		return &ValidationError{Field: "sync_timestamp", Reason: "required"}
	}
	return nil
}

// Event is the closed union of all domain events.
type Event interface {
	// Env returns the shared envelope for generic handling (idempotency
	// keying, trace extraction, tenancy checks).
	Env() *Envelope
	// Type returns the event class tag.
	Type() Type
	// EntityID returns the provider-scoped identifier of the entity the
	// event describes.
	EntityID() string

	validatePayload() error
	sealed()
}

// EmailEvent describes a mail message mutation.
type EmailEvent struct {
	Envelope
	Email EmailPayload `json:"email"`
}

func (e *EmailEvent) Type() Type       { return TypeEmail }
func (e *EmailEvent) EntityID() string { return e.Email.ID }
func (e *EmailEvent) sealed()          {}

// CalendarEvent describes a calendar entry mutation.
type CalendarEvent struct {
	Envelope
	Event CalendarPayload `json:"event"`
}

func (e *CalendarEvent) Type() Type       { return TypeCalendar }
func (e *CalendarEvent) EntityID() string { return e.Event.ID }
func (e *CalendarEvent) sealed()          {}

// ContactEvent describes a contact mutation. Contact events are both
// produced by provider sync and re-emitted by the discovery pipeline when a
// derived contact changes.
type ContactEvent struct {
	Envelope
	Contact ContactPayload `json:"contact"`
}

func (e *ContactEvent) Type() Type       { return TypeContact }
func (e *ContactEvent) EntityID() string { return e.Contact.ID }
func (e *ContactEvent) sealed()          {}

// DocumentEvent describes an office document mutation.
type DocumentEvent struct {
	Envelope
	Document DocumentPayload `json:"document"`
}

func (e *DocumentEvent) Type() Type       { return TypeDocument }
func (e *DocumentEvent) EntityID() string { return e.Document.ID }
func (e *DocumentEvent) sealed()          {}

// DocumentFragmentEvent describes one chunk of a large document. Fragments
// are children of a DocumentEvent-described parent and are replaced
// wholesale when the parent is re-chunked.
type DocumentFragmentEvent struct {
	Envelope
	Fragment DocumentFragmentPayload `json:"fragment"`
}

func (e *DocumentFragmentEvent) Type() Type       { return TypeDocumentFragment }
func (e *DocumentFragmentEvent) EntityID() string { return e.Fragment.ID }
func (e *DocumentFragmentEvent) sealed()          {}

// TodoEvent describes a todo or todo-list item mutation.
type TodoEvent struct {
	Envelope
	Todo TodoPayload `json:"todo"`
}

func (e *TodoEvent) Type() Type       { return TypeTodo }
func (e *TodoEvent) EntityID() string { return e.Todo.ID }
func (e *TodoEvent) sealed()          {}

// ChatMessageEvent describes a message in an LLM chat session.
type ChatMessageEvent struct {
	Envelope
	Message ChatMessagePayload `json:"message"`
}

func (e *ChatMessageEvent) Type() Type       { return TypeChatMessage }
func (e *ChatMessageEvent) EntityID() string { return e.Message.ID }
func (e *ChatMessageEvent) sealed()          {}

// ShipmentEvent describes a package-tracking update.
type ShipmentEvent struct {
	Envelope
	Shipment ShipmentPayload `json:"shipment_event"`
}

func (e *ShipmentEvent) Type() Type       { return TypeShipment }
func (e *ShipmentEvent) EntityID() string { return e.Shipment.ID }
func (e *ShipmentEvent) sealed()          {}

// MeetingPollEvent describes a meeting scheduling poll mutation.
type MeetingPollEvent struct {
	Envelope
	Poll MeetingPollPayload `json:"poll"`
}

func (e *MeetingPollEvent) Type() Type       { return TypeMeetingPoll }
func (e *MeetingPollEvent) EntityID() string { return e.Poll.ID }
func (e *MeetingPollEvent) sealed()          {}

// BookingEvent describes a resource booking mutation.
type BookingEvent struct {
	Envelope
	Booking BookingPayload `json:"booking"`
}

func (e *BookingEvent) Type() Type       { return TypeBooking }
func (e *BookingEvent) EntityID() string { return e.Booking.ID }
func (e *BookingEvent) sealed()          {}
