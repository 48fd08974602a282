package idempotency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

// ErrInFlight is returned when another delivery of the same event is being
// processed right now. Callers nack and let the transport redeliver after
// the in-flight attempt has recorded a terminal status.
var ErrInFlight = errors.New("idempotency: event is being processed by another delivery")

// Fn is the unit of work the kernel guards. Its returned value is recorded
// in the store and served to redeliveries.
type Fn func(ctx context.Context) (any, error)

// Outcome describes how a Process call concluded.
type Outcome struct {
	// Key is the idempotency key computed for the event. It is always
	// returned so callers can correlate store entries with deliveries.
	Key string
	// Idempotent is true when the work was already completed by a prior
	// delivery and fn was not invoked.
	Idempotent bool
	// Result is the recorded processor result, from this attempt or from
	// the prior completed one.
	Result json.RawMessage
}

// BatchOutcome aggregates a ProcessBatch call.
type BatchOutcome struct {
	Key        string `json:"-"`
	Idempotent bool   `json:"-"`
	// SuccessCount accumulates across partial groups and redeliveries of the
	// same batch; ErrorCount is the failure count of this attempt only.
	SuccessCount int `json:"success_count"`
	ErrorCount   int `json:"error_count"`
	// ChildErrors aligns with the input events; a nil entry means that event
	// is settled (processed now or by a prior delivery). Empty when the
	// batch key itself could not be claimed.
	ChildErrors []error `json:"-"`
}

// Kernel wraps processor invocations with claim/record bookkeeping against
// a shared Store. It is safe for concurrent use.
type Kernel struct {
	store  Store
	logger *zap.Logger
	ttl    time.Duration
	now    func() time.Time
}

// NewKernel builds a kernel over store with the default key TTL.
func NewKernel(store Store, logger *zap.Logger) *Kernel {
	return &Kernel{
		store:  store,
		logger: logger.Named("idempotency"),
		ttl:    TTLIdempotencyKey,
		now:    time.Now,
	}
}

// Process runs fn under the event's idempotency key.
//
// A completed prior attempt short-circuits: the recorded result is returned
// and fn is not invoked. A processing prior attempt returns ErrInFlight. An
// errored prior attempt is retried. Terminal status is always recorded, so
// a redelivered message can observe this attempt.
func (k *Kernel) Process(ctx context.Context, ev events.Event, fn Fn) (Outcome, error) {
	env := ev.Env()
	key := KeyForEvent(ev)
	return k.run(ctx, key, Entry{
		EventType: string(ev.Type()),
		UserID:    env.UserID,
		Operation: string(env.Operation),
		BatchID:   env.BatchID,
	}, fn)
}

// ProcessBatch runs fn once per child event, each under its own key, and
// records aggregate success/error counts under the batch key.
//
// Child keys are the deduplication boundary: a redelivered or late-arriving
// child of an already-recorded batch short-circuits individually, and the
// aggregate success count accumulates across partial groups instead of
// resetting. Only a batch entry still in processing blocks, so two groups of
// the same batch cannot interleave their aggregate writes.
func (k *Kernel) ProcessBatch(ctx context.Context, batchID, correlationID string, evs []events.Event, fn func(ctx context.Context, ev events.Event) (any, error)) (BatchOutcome, error) {
	batchKey := KeyForBatch(batchID, correlationID)

	entry := Entry{
		EventType: "batch",
		BatchID:   batchID,
		StoredAt:  k.now().UTC(),
		Status:    StatusProcessing,
	}
	existing, claimed, err := k.store.Claim(ctx, batchKey, entry, k.ttl)
	if err != nil {
		return BatchOutcome{Key: batchKey}, err
	}
	var prior BatchOutcome
	if !claimed {
		if existing.Status == StatusProcessing {
			return BatchOutcome{Key: batchKey}, ErrInFlight
		}
		if len(existing.Result) > 0 {
			if err := json.Unmarshal(existing.Result, &prior); err != nil {
				k.logger.Warn("unreadable batch result", zap.String("key", batchKey), zap.Error(err))
			}
		}
		entry = *existing
		entry.Status = StatusProcessing
		entry.Error = ""
		entry.ErrorType = ""
		if err := k.store.Update(ctx, batchKey, entry); err != nil {
			return BatchOutcome{Key: batchKey}, err
		}
	}

	out := BatchOutcome{
		Key:          batchKey,
		SuccessCount: prior.SuccessCount,
		ChildErrors:  make([]error, len(evs)),
	}
	fresh := false
	started := k.now()
	for i, ev := range evs {
		ev := ev
		o, err := k.Process(ctx, ev, func(ctx context.Context) (any, error) { return fn(ctx, ev) })
		if err != nil {
			out.ChildErrors[i] = err
			out.ErrorCount++
			fresh = true
			continue
		}
		if o.Idempotent {
			// Counted by the attempt that completed it.
			continue
		}
		out.SuccessCount++
		fresh = true
	}
	out.Idempotent = !claimed && !fresh

	entry.Status = StatusCompleted
	entry.ProcessedAt = k.now().UTC()
	entry.ProcessingTimeSeconds = k.now().Sub(started).Seconds()
	entry.Result, _ = json.Marshal(out)
	if out.ErrorCount > 0 {
		entry.Status = StatusError
		entry.Error = fmt.Sprintf("%d of %d events failed", out.ErrorCount, len(evs))
		entry.ErrorType = "batch_partial_failure"
	}
	if err := k.store.Update(ctx, batchKey, entry); err != nil {
		return out, err
	}
	if out.ErrorCount > 0 {
		return out, fmt.Errorf("idempotency: batch %s: %s", batchID, entry.Error)
	}
	return out, nil
}

func (k *Kernel) run(ctx context.Context, key string, entry Entry, fn Fn) (Outcome, error) {
	entry.StoredAt = k.now().UTC()
	entry.Status = StatusProcessing

	existing, claimed, err := k.store.Claim(ctx, key, entry, k.ttl)
	if err != nil {
		return Outcome{Key: key}, err
	}
	if !claimed {
		switch existing.Status {
		case StatusCompleted:
			return Outcome{Key: key, Idempotent: true, Result: existing.Result}, nil
		case StatusProcessing:
			return Outcome{Key: key}, ErrInFlight
		case StatusError:
			// Prior attempt failed; this delivery retries it.
			retry := *existing
			retry.Status = StatusProcessing
			retry.Error = ""
			retry.ErrorType = ""
			if err := k.store.Update(ctx, key, retry); err != nil {
				return Outcome{Key: key}, err
			}
			entry = retry
		}
	}

	started := k.now()
	result, fnErr := fn(ctx)
	entry.ProcessedAt = k.now().UTC()
	entry.ProcessingTimeSeconds = k.now().Sub(started).Seconds()

	if fnErr != nil {
		entry.Status = StatusError
		entry.Error = fnErr.Error()
		entry.ErrorType = fmt.Sprintf("%T", fnErr)
		if err := k.store.Update(ctx, key, entry); err != nil {
			k.logger.Error("record error status", zap.String("key", key), zap.Error(err))
		}
		return Outcome{Key: key}, fnErr
	}

	entry.Status = StatusCompleted
	if result != nil {
		if entry.Result, err = json.Marshal(result); err != nil {
			k.logger.Warn("unserializable processor result", zap.String("key", key), zap.Error(err))
			entry.Result = nil
		}
	}
	if err := k.store.Update(ctx, key, entry); err != nil {
		return Outcome{Key: key}, err
	}
	return Outcome{Key: key, Result: entry.Result}, nil
}
