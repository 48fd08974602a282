package consumer

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

type flushRecorder struct {
	mu      sync.Mutex
	batches [][]delivery
}

func (r *flushRecorder) flush(batch []delivery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, batch)
}

func (r *flushRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

func testDelivery(id string) delivery {
	return delivery{ev: &events.EmailEvent{Email: events.EmailPayload{ID: id}}}
}

func TestBatcherFlushesAtSize(t *testing.T) {
	rec := &flushRecorder{}
	b := newBatcher(3, time.Hour, rec.flush)

	b.add(testDelivery("a"))
	b.add(testDelivery("b"))
	assert.Equal(t, 0, rec.count())
	assert.Equal(t, 2, b.depth())

	b.add(testDelivery("c"))
	require.Equal(t, 1, rec.count())
	assert.Len(t, rec.batches[0], 3)
	assert.Equal(t, 0, b.depth())
}

func TestBatcherFlushesOnTimeout(t *testing.T) {
	rec := &flushRecorder{}
	b := newBatcher(100, 20*time.Millisecond, rec.flush)

	b.add(testDelivery("a"))
	b.add(testDelivery("b"))

	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, rec.batches[0], 2)
	assert.Equal(t, 0, b.depth())
}

func TestBatcherTimerResetsAfterFlush(t *testing.T) {
	rec := &flushRecorder{}
	b := newBatcher(2, 20*time.Millisecond, rec.flush)

	b.add(testDelivery("a"))
	b.add(testDelivery("b")) // size flush
	require.Equal(t, 1, rec.count())

	// A new first message after a size flush starts a fresh timeout window.
	b.add(testDelivery("c"))
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)
	assert.Len(t, rec.batches[1], 1)
}

func TestBatcherDrain(t *testing.T) {
	rec := &flushRecorder{}
	b := newBatcher(100, time.Hour, rec.flush)

	b.add(testDelivery("a"))
	b.add(testDelivery("b"))

	leftover := b.drain()
	assert.Len(t, leftover, 2)
	assert.Equal(t, 0, b.depth())
	assert.Equal(t, 0, rec.count())

	// The stopped timer must not fire a flush later.
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, rec.count())
}
