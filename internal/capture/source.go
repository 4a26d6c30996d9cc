// Package capture produces input event records and publishes them into a
// transport pipeline.
//
// A Source runs on the capture side of the pipeline: it is the single
// producer for its buffer, it never blocks on the consumer, and a publish
// that finds the buffer full is counted and forgotten. Real OS hooks live
// outside this module; the built-in Simulator generates a realistic stream
// for development, benchmarks and tests.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"focusd/internal/config"
	"focusd/internal/transport"
)

var (
	// ErrAlreadyRunning is returned by Start on a running source.
	ErrAlreadyRunning = errors.New("capture: source already running")

	// ErrUnknownSource is returned by FromConfig for an unsupported source name.
	ErrUnknownSource = errors.New("capture: unknown source")
)

// Source publishes captured events.
type Source interface {
	// Start publishes events to p until ctx is done, Stop is called or the
	// source runs out of input. It blocks and must be the only goroutine
	// publishing to p.
	Start(ctx context.Context, p *transport.Producer) error

	// Stop asks a running Start to return.
	Stop() error

	// Name identifies the source in logs.
	Name() string
}

// Clock supplies event timestamps in microseconds since the Unix epoch.
type Clock interface {
	NowMicros() uint64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// NowMicros returns the current time in microseconds since the Unix epoch.
func (SystemClock) NowMicros() uint64 {
	return uint64(time.Now().UnixMicro())
}

// FromConfig builds the source selected by cfg.Capture.
func FromConfig(cfg *config.Config, logger *slog.Logger) (Source, error) {
	switch cfg.Capture.Source {
	case "", SimulatorName:
		return NewSimulator(SimulatorConfig{
			EventsPerSecond: cfg.Capture.EventsPerSecond,
			SwitchEvery:     cfg.Capture.SwitchEvery,
			Seed:            cfg.Capture.Seed,
			ProductiveApps:  cfg.Tracker.ProductiveApps,
			DistractingApps: cfg.Tracker.DistractingApps,
			Logger:          logger,
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownSource, cfg.Capture.Source)
	}
}
