// Package transport moves event records from a capture source to a consumer
// through a ring buffer and does the accounting the buffer itself leaves to
// its callers: drop and reject counts, consumer pacing, and periodic health
// sampling into metrics.
package transport

import (
	"errors"
	"fmt"
	"sync/atomic"

	"focusd/internal/event"
	"focusd/internal/ring"
)

// ErrDropped is returned by Publish when the buffer was full. The record is
// gone; callers must not retry.
var ErrDropped = errors.New("transport: buffer full, event dropped")

// Producer is the publishing side of a pipeline. It must be used from a
// single goroutine; its counters may be read from any goroutine.
type Producer struct {
	buf      *ring.Buffer[event.Record]
	validate bool

	published atomic.Uint64
	dropped   atomic.Uint64
	rejected  atomic.Uint64
}

// NewProducer wraps buf. When validate is set, records failing
// event.Record.Validate are rejected before reaching the buffer.
func NewProducer(buf *ring.Buffer[event.Record], validate bool) *Producer {
	return &Producer{buf: buf, validate: validate}
}

// Publish offers rec to the buffer without blocking.
func (p *Producer) Publish(rec event.Record) error {
	if p.validate {
		if err := rec.Validate(); err != nil {
			p.rejected.Add(1)
			return fmt.Errorf("transport: rejected %s record: %w", rec.Kind(), err)
		}
	}
	if !p.buf.TryPush(rec) {
		p.dropped.Add(1)
		return ErrDropped
	}
	p.published.Add(1)
	return nil
}

// ProducerCounts is a snapshot of a producer's counters.
type ProducerCounts struct {
	Published uint64
	Dropped   uint64
	Rejected  uint64
}

// Attempted is the number of Publish calls the counts cover.
func (c ProducerCounts) Attempted() uint64 {
	return c.Published + c.Dropped + c.Rejected
}

// DropRate is the fraction of attempts lost to a full buffer.
func (c ProducerCounts) DropRate() float64 {
	if n := c.Attempted(); n > 0 {
		return float64(c.Dropped) / float64(n)
	}
	return 0
}

// Sub returns the counts accumulated since prev.
func (c ProducerCounts) Sub(prev ProducerCounts) ProducerCounts {
	return ProducerCounts{
		Published: c.Published - prev.Published,
		Dropped:   c.Dropped - prev.Dropped,
		Rejected:  c.Rejected - prev.Rejected,
	}
}

// Counts returns the current counters.
func (p *Producer) Counts() ProducerCounts {
	return ProducerCounts{
		Published: p.published.Load(),
		Dropped:   p.dropped.Load(),
		Rejected:  p.rejected.Load(),
	}
}
