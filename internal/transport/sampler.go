package transport

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"focusd/internal/event"
	"focusd/internal/metrics"
	"focusd/internal/ring"
)

// DefaultSampleInterval is the period of a Sampler.
const DefaultSampleInterval = time.Second

// Sample is one reading taken by a Sampler.
type Sample struct {
	Buffer   ring.Stats
	Counts   ProducerCounts
	Consumed uint64
}

// Sampler periodically reads buffer and counter state from outside the
// producer and consumer goroutines, pushes it into metrics, and logs health
// band changes.
type Sampler struct {
	buf      *ring.Buffer[event.Record]
	producer *Producer
	sink     *Sink
	metrics  *metrics.Transport
	interval time.Duration
	logger   *slog.Logger

	mu           sync.Mutex
	lastCounts   ProducerCounts
	lastConsumed uint64
	lastHealth   ring.Health
	last         Sample
}

// NewSampler creates a sampler. m may be nil.
func NewSampler(buf *ring.Buffer[event.Record], p *Producer, s *Sink, m *metrics.Transport, interval time.Duration, logger *slog.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sampler{
		buf:      buf,
		producer: p,
		sink:     s,
		metrics:  m,
		interval: interval,
		logger:   logger,
	}
}

// Run samples every interval until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Sample()
		}
	}
}

// Sample takes one reading now.
func (s *Sampler) Sample() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur := Sample{
		Buffer: s.buf.Stats(),
		Counts: s.producer.Counts(),
	}
	if s.sink != nil {
		cur.Consumed = s.sink.Consumed()
	}

	delta := cur.Counts.Sub(s.lastCounts)
	s.metrics.Record(metrics.TransportSample{
		Published:   delta.Published,
		Dropped:     delta.Dropped,
		Rejected:    delta.Rejected,
		Consumed:    cur.Consumed - s.lastConsumed,
		Length:      cur.Buffer.Len,
		Capacity:    cur.Buffer.Cap,
		Utilization: cur.Buffer.Utilization,
		Health:      int(cur.Buffer.Health),
	})

	if delta.Dropped > 0 {
		s.logger.Warn("events dropped",
			"dropped", delta.Dropped,
			"total_dropped", cur.Counts.Dropped,
			"utilization", cur.Buffer.Utilization,
		)
	}

	if h := cur.Buffer.Health; h != s.lastHealth {
		level := slog.LevelInfo
		if h > s.lastHealth {
			level = slog.LevelWarn
		}
		s.logger.Log(context.Background(), level, "buffer health changed",
			"from", s.lastHealth.String(),
			"to", h.String(),
			"len", cur.Buffer.Len,
			"capacity", cur.Buffer.Cap,
		)
		s.lastHealth = h
	}

	s.lastCounts = cur.Counts
	s.lastConsumed = cur.Consumed
	s.last = cur
	return cur
}

// Last returns the most recent reading.
func (s *Sampler) Last() Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
