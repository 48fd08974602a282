package consumer

import (
	"context"
	"errors"

	"github.com/corpus-self/ingest-fabric/internal/events"
	"github.com/corpus-self/ingest-fabric/internal/idempotency"
	"github.com/corpus-self/ingest-fabric/internal/vespa"
)

// Class buckets processor failures for the ack/nack decision and the error
// counters. The transport redelivers nacked messages until the dead-letter
// policy diverts them, so every class except success maps to a nack; the
// class distinguishes what gets logged and counted.
type Class int

const (
	// ClassValidation: the event fails schema. Redelivery fails identically
	// until the message dead-letters.
	ClassValidation Class = iota
	// ClassTransient: transport, store or sink hiccup. Redelivery can
	// succeed.
	ClassTransient
	// ClassPermanent: the sink rejected the write. Recorded in the
	// idempotency store; redelivered until dead-lettered.
	ClassPermanent
	// ClassInFlight: another delivery of the same event holds the
	// idempotency claim right now.
	ClassInFlight
)

func (c Class) String() string {
	switch c {
	case ClassValidation:
		return "validation"
	case ClassTransient:
		return "transient"
	case ClassPermanent:
		return "permanent"
	case ClassInFlight:
		return "in_flight"
	}
	return "unknown"
}

// Classify is the single point mapping processor errors onto the taxonomy.
// Unknown errors default to transient: a retry is cheap and the dead-letter
// policy bounds the damage of a wrong guess.
func Classify(err error) Class {
	switch {
	case events.IsValidation(err):
		return ClassValidation
	case errors.Is(err, idempotency.ErrInFlight):
		return ClassInFlight
	case vespa.IsPermanent(err):
		return ClassPermanent
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return ClassTransient
	default:
		return ClassTransient
	}
}
