package idempotency

import (
	"context"
	"encoding/json"
	"time"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

// Status is the lifecycle state of a processing attempt.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

// Entry is the value stored under an idempotency key. It records enough of
// the attempt that a redelivered message can observe the outcome without
// re-running the processor.
type Entry struct {
	EventType             string          `json:"event_type"`
	UserID                string          `json:"user_id"`
	Operation             string          `json:"operation"`
	BatchID               string          `json:"batch_id,omitempty"`
	StoredAt              time.Time       `json:"stored_at"`
	Status                Status          `json:"status"`
	ProcessedAt           time.Time       `json:"processed_at,omitzero"`
	ProcessingTimeSeconds float64         `json:"processing_time_seconds,omitempty"`
	Result                json.RawMessage `json:"result,omitempty"`
	Error                 string          `json:"error,omitempty"`
	ErrorType             string          `json:"error_type,omitempty"`
}

// Store is a TTL-keyed claim store. Writes are atomic per key: Claim either
// installs the entry (claimed) or returns the entry that beat it there.
type Store interface {
	// Claim atomically installs entry under key with the given TTL if the
	// key is absent. When the key already exists, claimed is false and the
	// existing entry is returned unchanged.
	Claim(ctx context.Context, key string, entry Entry, ttl time.Duration) (existing *Entry, claimed bool, err error)

	// Update replaces the entry under key, preserving its remaining TTL.
	Update(ctx context.Context, key string, entry Entry) error

	// Get returns the entry under key, or nil when absent or expired.
	Get(ctx context.Context, key string) (*Entry, error)
}

// TTLs per data class. Idempotency keys only need to outlive the
// redelivery window; payload references are retained per data class.
const (
	TTLIdempotencyKey  = 24 * time.Hour
	TTLEmailReference  = 30 * 24 * time.Hour
	TTLOfficeReference = 7 * 24 * time.Hour
)

// ReferenceTTL returns the payload-reference retention for an event class.
func ReferenceTTL(t events.Type) time.Duration {
	switch t {
	case events.TypeEmail:
		return TTLEmailReference
	case events.TypeDocument, events.TypeDocumentFragment:
		return TTLOfficeReference
	default:
		return TTLIdempotencyKey
	}
}
