package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"

	"focusd/internal/event"
	"focusd/internal/metrics"
	"focusd/internal/ring"
)

// Options configures a Pipeline.
type Options struct {
	Capacity       uint64
	Validate       bool
	IdleBackoff    time.Duration
	SampleInterval time.Duration
	Metrics        *metrics.Transport
	Logger         *slog.Logger
}

// ProduceFunc publishes records until ctx is done or it runs out of input.
// It runs on the goroutine that called Pipeline.Run and is the only
// producer for the buffer.
type ProduceFunc func(ctx context.Context, p *Producer) error

// Pipeline wires one producer and one consumer to a ring buffer and samples
// it while running.
type Pipeline struct {
	Buffer   *ring.Buffer[event.Record]
	Producer *Producer
	Sink     *Sink
	Sampler  *Sampler

	logger *slog.Logger
}

// NewPipeline builds a pipeline delivering to h.
func NewPipeline(opts Options, h Handler) (*Pipeline, error) {
	buf, err := ring.New[event.Record](opts.Capacity)
	if err != nil {
		return nil, fmt.Errorf("transport: create buffer: %w", err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	producer := NewProducer(buf, opts.Validate)
	sink := NewSink(buf, h,
		WithIdleBackoff(opts.IdleBackoff),
		WithDeliveryMetrics(opts.Metrics),
		WithSinkLogger(logger),
	)
	sampler := NewSampler(buf, producer, sink, opts.Metrics, opts.SampleInterval, logger)

	return &Pipeline{
		Buffer:   buf,
		Producer: producer,
		Sink:     sink,
		Sampler:  sampler,
		logger:   logger,
	}, nil
}

// Run starts the consumer and sampler, then calls produce on the current
// goroutine. When produce returns, the consumer drains what is left and Run
// returns produce's error. Cancellation of ctx is not reported as an error.
func (p *Pipeline) Run(ctx context.Context, produce ProduceFunc) error {
	// Consumers outlive ctx so they can drain after the producer stops.
	consumeCtx, stopConsumers := context.WithCancel(context.WithoutCancel(ctx))
	defer stopConsumers()

	var wg conc.WaitGroup
	wg.Go(func() { _ = p.Sink.Run(consumeCtx) })
	wg.Go(func() { _ = p.Sampler.Run(consumeCtx) })

	start := time.Now()
	err := produce(ctx, p.Producer)

	stopConsumers()
	wg.Wait()

	stats := p.Stats()
	p.Sampler.Sample()
	p.logger.Info("pipeline stopped",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"published", stats.Counts.Published,
		"dropped", stats.Counts.Dropped,
		"rejected", stats.Counts.Rejected,
		"consumed", stats.Consumed,
		"conserved", stats.Conserved(),
	)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// PipelineStats is a snapshot of a pipeline's accounting.
type PipelineStats struct {
	Counts   ProducerCounts
	Consumed uint64
	Buffer   ring.Stats
}

// Conserved reports whether every published record was either consumed or
// is still buffered. It only holds exactly when both sides are quiescent.
func (s PipelineStats) Conserved() bool {
	return s.Counts.Published == s.Consumed+s.Buffer.Len
}

// Stats reads the current counters.
func (p *Pipeline) Stats() PipelineStats {
	return PipelineStats{
		Counts:   p.Producer.Counts(),
		Consumed: p.Sink.Consumed(),
		Buffer:   p.Buffer.Stats(),
	}
}
