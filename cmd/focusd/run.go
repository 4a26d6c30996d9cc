package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"

	"focusd/internal/capture"
	"focusd/internal/config"
	"focusd/internal/focus"
	"focusd/internal/health"
	"focusd/internal/logging"
	"focusd/internal/metrics"
	"focusd/internal/transport"
)

// trackerUpdateInterval is how often the tracker checks for idleness and
// takes snapshots.
const trackerUpdateInterval = time.Second

// maxDropRate is the share of dropped publishes between two health checks
// above which the drops check fails.
const maxDropRate = 0.01

func newRunCmd(opts *globalOptions) *cobra.Command {
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Capture input and track focus until interrupted",
		Long: `Run the capture pipeline and focus tracker.

The configured source publishes events into the ring buffer, the tracker
consumes them, and buffer health is sampled into the log and, when enabled,
the Prometheus endpoint. Edits to the tracker section of the config file
are applied without a restart. SIGINT or SIGTERM stops capture, drains the
buffer and logs final statistics.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}
			return runDaemon(ctx, opts.configPath, cmd.ErrOrStderr())
		},
	}

	cmd.Flags().DurationVarP(&duration, "duration", "d", 0, "stop after this long (0 runs until interrupted)")
	return cmd
}

func trackerConfig(c config.TrackerConfig) focus.Config {
	return focus.Config{
		SnapshotInterval: c.SnapshotInterval(),
		MinDistraction:   c.MinDistraction(),
		IdleTimeout:      c.IdleTimeout(),
		HistorySize:      c.HistorySize,
		ProductiveApps:   c.ProductiveApps,
		DistractingApps:  c.DistractingApps,
	}
}

// newLogger builds the process logger. Output "stderr" goes to stderr so the
// command's error stream can be redirected.
func newLogger(cfg *config.Config, stderr io.Writer) (*logging.Logger, error) {
	logCfg, err := cfg.Logging.LoggerConfig()
	if err != nil {
		return nil, fmt.Errorf("logging config: %w", err)
	}
	if strings.EqualFold(logCfg.Output, "stderr") && stderr != nil {
		logCfg.Writer = stderr
	}
	return logging.New(logCfg)
}

func runDaemon(ctx context.Context, configPath string, stderr io.Writer) error {
	loader := config.NewLoader(configPath)
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := newLogger(cfg, stderr)
	if err != nil {
		return err
	}
	defer logger.Close()
	logging.SetDefault(logger)
	log := logger.WithComponent("daemon")

	checker := health.NewChecker()

	var (
		tm      *metrics.Transport
		trOpts  = []focus.Option{focus.WithLogger(logger.WithComponent("focus").Logger)}
		servers []*metricsServer
	)
	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry(cfg.Metrics.Namespace)
		tm = reg.Transport
		trOpts = append(trOpts, focus.WithObserver(reg.Tracker))
		servers = append(servers, newMetricsServer(cfg.Metrics.ListenAddr, reg, checker, log.Logger))
	}

	tracker := focus.NewTracker(trackerConfig(cfg.Tracker), trOpts...)
	tracker.OnRecovery(func(r focus.Recovery) {
		log.Info("welcome back",
			"summary", r.Summary(),
			"away", r.DistractionDuration.Round(time.Second),
			"distraction_app", r.DistractionApp,
			"activities", len(r.Activities),
		)
		// Nothing else acknowledges recoveries, so return to Focused.
		tracker.Dismiss()
	})
	tracker.Start()
	defer tracker.Stop()

	loader.OnChange(func(old, updated *config.Config) {
		tracker.SetConfig(trackerConfig(updated.Tracker))
		log.Info("configuration reloaded", "path", loader.Path())
		if old.Transport != updated.Transport || old.Capture != updated.Capture {
			log.Warn("transport and capture changes apply on restart")
		}
	})
	if err := loader.Watch(); err != nil {
		log.Warn("config hot reload disabled", "path", loader.Path(), "error", err)
	}
	defer loader.Close()

	src, err := capture.FromConfig(cfg, logger.WithComponent("capture").Logger)
	if err != nil {
		return err
	}

	pipe, err := transport.NewPipeline(transport.Options{
		Capacity:       cfg.Transport.Capacity,
		Validate:       cfg.Transport.Validate,
		IdleBackoff:    cfg.Transport.IdleBackoff(),
		SampleInterval: cfg.Transport.SampleInterval(),
		Metrics:        tm,
		Logger:         logger.WithComponent("transport").Logger,
	}, tracker)
	if err != nil {
		return err
	}
	checker.RegisterFunc("buffer", true, health.BufferCheck(pipe.Buffer))
	checker.RegisterFunc("drops", false, health.DropRateCheck(pipe.Producer.Counts, maxDropRate))

	bgCtx, stopBackground := context.WithCancel(ctx)
	var wg conc.WaitGroup
	wg.Go(func() { updateLoop(bgCtx, tracker) })
	wg.Go(func() { reportReloadErrors(bgCtx, loader, log.Logger) })
	for _, srv := range servers {
		wg.Go(func() { srv.serve(bgCtx) })
	}

	log.Info("focusd started",
		"config", loader.Path(),
		"source", src.Name(),
		"capacity", cfg.Transport.Capacity,
		"metrics", cfg.Metrics.Enabled,
	)

	checker.SetReady(true)
	runErr := pipe.Run(ctx, src.Start)
	checker.SetReady(false)

	stopBackground()
	wg.Wait()

	stats := pipe.Stats()
	history := tracker.History()
	log.Info("focusd stopped",
		"health", checker.Report(context.Background(), false).Status,
		"state", tracker.State().String(),
		"snapshots", history.Len(),
		"focus_total", history.TotalFocus().Round(time.Second),
		"published", stats.Counts.Published,
		"dropped", stats.Counts.Dropped,
		"drop_rate", stats.Counts.DropRate(),
		"consumed", stats.Consumed,
	)
	return runErr
}

func updateLoop(ctx context.Context, tracker *focus.Tracker) {
	ticker := time.NewTicker(trackerUpdateInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			tracker.Update()
		}
	}
}

func reportReloadErrors(ctx context.Context, loader *config.Loader, log *slog.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-loader.Errors():
			log.Warn("config reload rejected, keeping previous configuration", "error", err)
		}
	}
}
