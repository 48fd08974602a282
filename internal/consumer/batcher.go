package consumer

import (
	"sync"
	"time"

	"cloud.google.com/go/pubsub"

	"github.com/corpus-self/ingest-fabric/internal/events"
)

// delivery pairs a decoded event with the transport message whose ack/nack
// settles it.
type delivery struct {
	ev  events.Event
	msg *pubsub.Message
}

// batcher buffers typed deliveries per topic and hands them off in batches:
// when the buffer reaches size, or when timeout has elapsed since the first
// buffered delivery, whichever comes first.
type batcher struct {
	size    int
	timeout time.Duration
	flush   func([]delivery)

	mu    sync.Mutex
	buf   []delivery
	timer *time.Timer
}

func newBatcher(size int, timeout time.Duration, flush func([]delivery)) *batcher {
	return &batcher{size: size, timeout: timeout, flush: flush}
}

// add buffers one delivery, flushing if the batch is now full.
func (b *batcher) add(d delivery) {
	b.mu.Lock()
	b.buf = append(b.buf, d)
	if len(b.buf) >= b.size {
		batch := b.take()
		b.mu.Unlock()
		b.flush(batch)
		return
	}
	if b.timer == nil {
		b.timer = time.AfterFunc(b.timeout, b.fire)
	}
	b.mu.Unlock()
}

// fire is the timeout path: flush whatever has accumulated.
func (b *batcher) fire() {
	b.mu.Lock()
	batch := b.take()
	b.mu.Unlock()
	if len(batch) > 0 {
		b.flush(batch)
	}
}

// take empties the buffer and stops the pending timer. Callers hold b.mu.
func (b *batcher) take() []delivery {
	batch := b.buf
	b.buf = nil
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	return batch
}

// drain returns the buffered, not-yet-dispatched deliveries without invoking
// flush. Used on shutdown to nack what never reached a processor.
func (b *batcher) drain() []delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.take()
}

func (b *batcher) depth() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.buf)
}
