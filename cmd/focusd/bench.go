package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"focusd/internal/event"
	"focusd/internal/logging"
	"focusd/internal/transport"
)

const benchCtxCheckEvery = 4096

type benchOptions struct {
	capacity uint64
	events   uint64
	validate bool
}

type benchResult struct {
	Events    uint64
	Counts    transport.ProducerCounts
	Consumed  uint64
	Elapsed   time.Duration
	Conserved bool
}

// Throughput is attempted publishes per second.
func (r benchResult) Throughput() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Counts.Attempted()) / r.Elapsed.Seconds()
}

func newBenchCmd() *cobra.Command {
	opts := benchOptions{}

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure ring buffer throughput and drops",
		Long: `Publish events from one producer goroutine as fast as possible while one
consumer goroutine drains them, then report throughput, drops and whether
every published event was consumed. Dropped events are never retried.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logging.New(&logging.Config{
				Level:  slog.LevelWarn,
				Format: logging.FormatText,
				Writer: cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}

			res, err := runBench(cmd.Context(), opts, logger.Logger)
			if err != nil {
				return err
			}
			return printBench(cmd.OutOrStdout(), opts, res)
		},
	}

	cmd.Flags().Uint64Var(&opts.capacity, "capacity", 1024, "ring buffer capacity (power of two)")
	cmd.Flags().Uint64VarP(&opts.events, "events", "n", 1_000_000, "number of events to publish")
	cmd.Flags().BoolVar(&opts.validate, "validate", false, "validate records before publishing")
	return cmd
}

func runBench(ctx context.Context, opts benchOptions, logger *slog.Logger) (benchResult, error) {
	pipe, err := transport.NewPipeline(transport.Options{
		Capacity:       opts.capacity,
		Validate:       opts.validate,
		IdleBackoff:    time.Microsecond,
		SampleInterval: 100 * time.Millisecond,
		Logger:         logger,
	}, transport.HandlerFunc(func(event.Record) {}))
	if err != nil {
		return benchResult{}, err
	}

	origin := event.Origin{ProcessID: 1, Window: 1, App: "focusd-bench"}
	base := uint64(time.Now().UnixMicro())

	start := time.Now()
	err = pipe.Run(ctx, func(ctx context.Context, p *transport.Producer) error {
		for i := uint64(0); i < opts.events; i++ {
			if i%benchCtxCheckEvery == 0 && ctx.Err() != nil {
				return ctx.Err()
			}
			_ = p.Publish(event.NewKeyPress(base+i, origin, event.Key{VirtualKey: 0x41}))
		}
		return nil
	})
	elapsed := time.Since(start)
	if err != nil {
		return benchResult{}, err
	}

	stats := pipe.Stats()
	return benchResult{
		Events:    opts.events,
		Counts:    stats.Counts,
		Consumed:  stats.Consumed,
		Elapsed:   elapsed,
		Conserved: stats.Conserved() && stats.Counts.Attempted() == opts.events,
	}, nil
}

func printBench(w io.Writer, opts benchOptions, r benchResult) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "capacity\t%d\n", opts.capacity)
	fmt.Fprintf(tw, "events\t%d\n", r.Events)
	fmt.Fprintf(tw, "published\t%d\n", r.Counts.Published)
	fmt.Fprintf(tw, "dropped\t%d (%.2f%%)\n", r.Counts.Dropped, r.Counts.DropRate()*100)
	fmt.Fprintf(tw, "consumed\t%d\n", r.Consumed)
	fmt.Fprintf(tw, "elapsed\t%s\n", r.Elapsed.Round(time.Microsecond))
	fmt.Fprintf(tw, "throughput\t%.0f events/s\n", r.Throughput())
	fmt.Fprintf(tw, "conserved\t%t\n", r.Conserved)
	return tw.Flush()
}
