package events

import (
	"github.com/google/uuid"
)

// Metadata is the envelope header shared by every published event. It is
// immutable after publication except through the annotation helpers on
// Envelope, which attach trace and request context post-construction.
type Metadata struct {
	EventID       string            `json:"event_id"`
	Timestamp     Timestamp         `json:"timestamp"`
	SourceService string            `json:"source_service"`
	SourceVersion string            `json:"source_version,omitempty"`
	TraceID       string            `json:"trace_id,omitempty"`
	SpanID        string            `json:"span_id,omitempty"`
	ParentSpanID  string            `json:"parent_span_id,omitempty"`
	RequestID     string            `json:"request_id,omitempty"`
	UserID        string            `json:"user_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// NewMetadata builds metadata for a freshly produced event. Event IDs are
// UUIDv7 so they sort by creation time in downstream stores.
func NewMetadata(sourceService, sourceVersion string) Metadata {
	id, _ := uuid.NewV7()
	return Metadata{
		EventID:       id.String(),
		Timestamp:     Now(),
		SourceService: sourceService,
		SourceVersion: sourceVersion,
	}
}
