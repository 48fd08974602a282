package idempotency

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

func emailEvent(op events.Operation, id, userID string, lastUpdated time.Time) *events.EmailEvent {
	return &events.EmailEvent{
		Envelope: events.Envelope{
			Metadata:      events.NewMetadata("email_sync", "1.0.0"),
			UserID:        userID,
			Operation:     op,
			Provider:      "gmail",
			LastUpdated:   events.NewTimestamp(lastUpdated),
			SyncTimestamp: events.Now(),
		},
		Email: events.EmailPayload{ID: id},
	}
}

func TestKeyShape(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	keys := []string{
		KeyForEvent(emailEvent(events.OperationCreate, "e1", "u1", ts)),
		KeyForEvent(emailEvent(events.OperationUpdate, "e1", "u1", ts)),
		KeyForBatch("bx", ""),
		KeyForBatch("bx", "corr-1"),
		FallbackKey("email", "e1", "u1", events.NewTimestamp(ts), "bx"),
	}
	for _, k := range keys {
		assert.Len(t, k, KeyLength)
		assert.True(t, ValidKey(k), k)
	}
}

func TestKeyStableAcrossDeliveries(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	a := KeyForEvent(emailEvent(events.OperationUpdate, "e1", "u1", ts))
	b := KeyForEvent(emailEvent(events.OperationUpdate, "e1", "u1", ts))
	assert.Equal(t, a, b)

	// sync_timestamp and metadata differ per delivery but must not affect
	// the key; only the identity fields do.
	ev := emailEvent(events.OperationUpdate, "e1", "u1", ts)
	ev.SyncTimestamp = events.NewTimestamp(ts.Add(time.Hour))
	assert.Equal(t, a, KeyForEvent(ev))
}

func TestMutableKeysDifferPerVersion(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	base := KeyForEvent(emailEvent(events.OperationUpdate, "e1", "u1", ts))

	assert.NotEqual(t, base, KeyForEvent(emailEvent(events.OperationUpdate, "e1", "u1", ts.Add(time.Second))))
	assert.NotEqual(t, base, KeyForEvent(emailEvent(events.OperationUpdate, "e2", "u1", ts)))
	assert.NotEqual(t, base, KeyForEvent(emailEvent(events.OperationUpdate, "e1", "u2", ts)))
	assert.NotEqual(t, base, KeyForEvent(emailEvent(events.OperationDelete, "e1", "u1", ts)))

	// Sub-second differences truncate to the same version key.
	assert.Equal(t, base, KeyForEvent(emailEvent(events.OperationUpdate, "e1", "u1", ts.Add(300*time.Millisecond))))
}

func TestImmutableKeyIgnoresLastUpdated(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	a := KeyForEvent(emailEvent(events.OperationCreate, "e1", "u1", ts))
	b := KeyForEvent(emailEvent(events.OperationCreate, "e1", "u1", ts.Add(time.Hour)))
	assert.Equal(t, a, b)
}

func TestBatchKeys(t *testing.T) {
	assert.Equal(t, KeyForBatch("bx", ""), KeyForBatch("bx", ""))
	assert.NotEqual(t, KeyForBatch("bx", ""), KeyForBatch("by", ""))
	assert.NotEqual(t, KeyForBatch("bx", ""), KeyForBatch("bx", "corr-1"))
}

func TestValidKey(t *testing.T) {
	assert.True(t, ValidKey("0123456789abcdef0123456789abcdef"))
	assert.False(t, ValidKey("0123456789ABCDEF0123456789ABCDEF"))
	assert.False(t, ValidKey("0123456789abcdef0123456789abcde"))
	assert.False(t, ValidKey("0123456789abcdef0123456789abcdeg"))
	assert.False(t, ValidKey(""))
}

func TestCanRegenerate(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	// Immutable: never.
	create := emailEvent(events.OperationCreate, "e1", "u1", now.Add(-time.Hour))
	assert.False(t, CanRegenerate(create, now))

	// Mutable: only past the age threshold.
	fresh := emailEvent(events.OperationUpdate, "e1", "u1", now.Add(-time.Minute))
	assert.False(t, CanRegenerate(fresh, now))
	stale := emailEvent(events.OperationUpdate, "e1", "u1", now.Add(-10*time.Minute))
	assert.True(t, CanRegenerate(stale, now))

	// Batch with correlation id: always.
	batched := emailEvent(events.OperationCreate, "e1", "u1", now)
	batched.BatchID = "bx"
	batched.WithRequestContext("", "", "corr-1")
	assert.True(t, CanRegenerate(batched, now))
}
