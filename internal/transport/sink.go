package transport

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"focusd/internal/event"
	"focusd/internal/metrics"
	"focusd/internal/ring"
)

// DefaultIdleBackoff is how long a Sink sleeps when the buffer is empty.
const DefaultIdleBackoff = 100 * time.Microsecond

// cancelCheckEvery bounds how many records are delivered between context
// checks while the buffer stays non-empty.
const cancelCheckEvery = 256

// Handler consumes records drained by a Sink. Calls come from the Sink's
// goroutine, one at a time.
type Handler interface {
	HandleRecord(rec event.Record)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(rec event.Record)

// HandleRecord calls f(rec).
func (f HandlerFunc) HandleRecord(rec event.Record) { f(rec) }

// Handlers fans a record out to several handlers in order.
type Handlers []Handler

// HandleRecord delivers rec to every handler.
func (hs Handlers) HandleRecord(rec event.Record) {
	for _, h := range hs {
		h.HandleRecord(rec)
	}
}

// Sink is the consuming side of a pipeline.
type Sink struct {
	buf      *ring.Buffer[event.Record]
	handler  Handler
	backoff  time.Duration
	metrics  *metrics.Transport
	logger   *slog.Logger
	now      func() time.Time
	consumed atomic.Uint64
}

// SinkOption configures a Sink.
type SinkOption func(*Sink)

// WithIdleBackoff sets the empty-buffer sleep. Non-positive values keep the default.
func WithIdleBackoff(d time.Duration) SinkOption {
	return func(s *Sink) {
		if d > 0 {
			s.backoff = d
		}
	}
}

// WithDeliveryMetrics records capture-to-consume latency for every record.
func WithDeliveryMetrics(m *metrics.Transport) SinkOption {
	return func(s *Sink) { s.metrics = m }
}

// WithSinkLogger sets the logger.
func WithSinkLogger(l *slog.Logger) SinkOption {
	return func(s *Sink) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSinkClock sets the wall clock used for latency measurement.
func WithSinkClock(now func() time.Time) SinkOption {
	return func(s *Sink) { s.now = now }
}

// NewSink creates a sink draining buf into h.
func NewSink(buf *ring.Buffer[event.Record], h Handler, opts ...SinkOption) *Sink {
	s := &Sink{
		buf:     buf,
		handler: h,
		backoff: DefaultIdleBackoff,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run drains the buffer until ctx is cancelled, then delivers whatever was
// already buffered and returns nil. Run must not be called concurrently.
func (s *Sink) Run(ctx context.Context) error {
	s.logger.Debug("sink started", "capacity", s.buf.Cap(), "idle_backoff", s.backoff)

	timer := time.NewTimer(s.backoff)
	defer timer.Stop()

	var rec event.Record
	delivered := 0
	for {
		if s.buf.TryPopInto(&rec) {
			s.deliver(rec)
			delivered++
			if delivered%cancelCheckEvery == 0 && ctx.Err() != nil {
				break
			}
			continue
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.backoff)

		select {
		case <-ctx.Done():
		case <-timer.C:
			continue
		}
		break
	}

	n := s.Drain()
	s.logger.Debug("sink stopped", "final_drain", n, "consumed", s.Consumed())
	return nil
}

// Drain delivers the records buffered at the time of the call and returns how
// many were delivered. It must not run concurrently with Run.
func (s *Sink) Drain() int {
	pending := s.buf.Len()
	var rec event.Record
	n := 0
	for uint64(n) < pending && s.buf.TryPopInto(&rec) {
		s.deliver(rec)
		n++
	}
	return n
}

func (s *Sink) deliver(rec event.Record) {
	s.consumed.Add(1)
	if s.metrics != nil {
		s.metrics.ObserveDelivery(s.now().Sub(rec.Time()))
	}
	if s.handler != nil {
		s.handler.HandleRecord(rec)
	}
}

// Consumed returns the number of records delivered so far.
func (s *Sink) Consumed() uint64 {
	return s.consumed.Load()
}
