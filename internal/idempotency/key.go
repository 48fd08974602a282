// Package idempotency derives per-event fingerprints and wraps processor
// invocations so that a redelivered message observes the prior attempt
// instead of repeating its side effects.
package idempotency

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

// KeyLength is the exact length of every idempotency key: an MD5 digest in
// lowercase hex.
const KeyLength = 32

// mutableKeyMaxAge bounds key regeneration for mutable operations: a key may
// only be recomputed once the version it fingerprints is older than this.
const mutableKeyMaxAge = 5 * time.Minute

// KeyForEvent fingerprints a single domain event.
//
// Immutable operations (create) key on the entity identity alone: the same
// entity created twice is the same work. Mutable operations fold in the
// provider-side mutation time truncated to whole seconds, so each version of
// an entity gets its own key and an out-of-order redelivery of an older
// version cannot mask a newer one.
func KeyForEvent(ev events.Event) string {
	env := ev.Env()
	switch env.Operation {
	case events.OperationCreate:
		return digest(fmt.Sprintf("%s:%s:%s", env.Provider, ev.EntityID(), env.UserID))
	case events.OperationUpdate, events.OperationDelete:
		return digest(fmt.Sprintf("%s:%s:%s:%d", env.Provider, ev.EntityID(), env.UserID, env.LastUpdated.Unix()))
	default:
		return FallbackKey(string(ev.Type()), ev.EntityID(), env.UserID, env.LastUpdated, env.BatchID)
	}
}

// KeyForBatch fingerprints a batch as a whole. The correlation id is folded
// in when present so that a republished batch under a new correlation gets a
// fresh aggregate entry.
func KeyForBatch(batchID, correlationID string) string {
	if correlationID != "" {
		return digest(fmt.Sprintf("batch:%s:%s", batchID, correlationID))
	}
	return digest("batch:" + batchID)
}

// FallbackKey fingerprints an event that fits neither the immutable, mutable
// nor batch rule. Optional parts are appended only when set.
func FallbackKey(eventType, entityID, userID string, lastUpdated events.Timestamp, batchID string) string {
	parts := []string{eventType, entityID, userID}
	if !lastUpdated.IsZero() {
		parts = append(parts, fmt.Sprintf("%d", lastUpdated.Unix()))
	}
	if batchID != "" {
		parts = append(parts, batchID)
	}
	return digest(strings.Join(parts, ":"))
}

// ValidKey reports whether s is a well-formed idempotency key: exactly 32
// lowercase hex characters.
func ValidKey(s string) bool {
	if len(s) != KeyLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// CanRegenerate reports whether a key for ev may be recomputed. Immutable
// operations never regenerate: their key is their identity. Mutable
// operations regenerate only once the fingerprinted version is older than
// five minutes; batch-tagged events regenerate when a correlation id is
// present to scope the new key.
func CanRegenerate(ev events.Event, now time.Time) bool {
	env := ev.Env()
	if env.BatchID != "" && env.Metadata.CorrelationID != "" {
		return true
	}
	if !env.Operation.Mutable() {
		return false
	}
	return now.Sub(env.LastUpdated.Time) > mutableKeyMaxAge
}

func digest(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
