package consumer

import (
	"sync"
	"sync/atomic"
)

// Stats holds the consumer's operational counters. Counters are atomic;
// buffer depths are sampled from the live batchers at snapshot time.
type Stats struct {
	processed atomic.Int64
	errors    atomic.Int64

	mu       sync.Mutex
	batchers map[string]*batcher
}

func newStats() *Stats {
	return &Stats{batchers: make(map[string]*batcher)}
}

func (s *Stats) register(topic string, b *batcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchers[topic] = b
}

// Snapshot is a point-in-time view of the counters, shaped for the stats
// endpoint.
type Snapshot struct {
	Processed    int64          `json:"processed"`
	Errors       int64          `json:"errors"`
	BufferDepths map[string]int `json:"buffer_depths"`
}

// Snapshot samples the counters and per-topic buffer depths.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	depths := make(map[string]int, len(s.batchers))
	for topic, b := range s.batchers {
		depths[topic] = b.depth()
	}
	return Snapshot{
		Processed:    s.processed.Load(),
		Errors:       s.errors.Load(),
		BufferDepths: depths,
	}
}
