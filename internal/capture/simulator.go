package capture

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jaswdr/faker"

	"focusd/internal/event"
	"focusd/internal/transport"
)

// SimulatorName is the configuration name of the simulated source.
const SimulatorName = "simulator"

const (
	screenWidth  = 1920
	screenHeight = 1080

	// pacingTick is how often a paced simulator publishes its owed events.
	pacingTick = 10 * time.Millisecond

	// ctxCheckEvery bounds how many unpaced events run between context checks.
	ctxCheckEvery = 256

	defaultSwitchEvery       = 500
	defaultDistractionChance = 30
)

// SimulatorConfig configures a Simulator.
type SimulatorConfig struct {
	// EventsPerSecond paces the stream. Zero or less publishes as fast as
	// possible.
	EventsPerSecond int

	// SwitchEvery is the number of input events between window switches.
	SwitchEvery int

	// MaxEvents stops the simulator after that many publish attempts.
	// Zero means unbounded.
	MaxEvents uint64

	// Seed makes the stream reproducible. Zero seeds from the runtime.
	Seed int64

	ProductiveApps  []string
	DistractingApps []string

	// DistractionChance is the percentage of switches from a productive
	// application that go to a distracting one. Values outside 1..100 use 30.
	DistractionChance int

	// UnknownAppChance is the percentage of productive switches that go to a
	// generated application name absent from both lists.
	UnknownAppChance int

	Clock  Clock
	Logger *slog.Logger
}

// Simulator generates a mixed stream of key, mouse, window and idle events.
type Simulator struct {
	cfg    SimulatorConfig
	fake   faker.Faker
	clock  Clock
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	session string

	generated atomic.Uint64

	// Generator state, owned by the goroutine in Start.
	origin      event.Origin
	productive  bool
	sinceSwitch int
	x, y        int32
	follow      event.Kind
	followKey   event.Key
	followIdle  uint32
}

// NewSimulator creates a simulator.
func NewSimulator(cfg SimulatorConfig) *Simulator {
	if cfg.SwitchEvery <= 0 {
		cfg.SwitchEvery = defaultSwitchEvery
	}
	if cfg.DistractionChance < 1 || cfg.DistractionChance > 100 {
		cfg.DistractionChance = defaultDistractionChance
	}
	if cfg.Clock == nil {
		cfg.Clock = SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	fake := faker.New()
	if cfg.Seed != 0 {
		fake = faker.NewWithSeed(rand.NewSource(cfg.Seed))
	}

	return &Simulator{
		cfg:    cfg,
		fake:   fake,
		clock:  cfg.Clock,
		logger: cfg.Logger,
		x:      screenWidth / 2,
		y:      screenHeight / 2,
	}
}

// Name implements Source.
func (s *Simulator) Name() string { return SimulatorName }

// SessionID returns the ID of the current or most recent run.
func (s *Simulator) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session
}

// Generated returns the number of events generated over all runs.
func (s *Simulator) Generated() uint64 {
	return s.generated.Load()
}

// Running reports whether Start is in progress.
func (s *Simulator) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Start implements Source. It returns nil when stopped by ctx, Stop or
// MaxEvents.
func (s *Simulator) Start(ctx context.Context, p *transport.Producer) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	s.running, s.cancel = true, cancel
	s.session = uuid.NewString()
	logger := s.logger.With(
		slog.String("source", SimulatorName),
		slog.String("session_id", s.session),
	)
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.running, s.cancel = false, nil
		s.mu.Unlock()
	}()

	logger.Info("capture started",
		"events_per_second", s.cfg.EventsPerSecond,
		"switch_every", s.cfg.SwitchEvery,
		"max_events", s.cfg.MaxEvents,
	)
	before := p.Counts()

	n := s.run(ctx, p)

	c := p.Counts().Sub(before)
	logger.Info("capture stopped",
		"generated", n,
		"published", c.Published,
		"dropped", c.Dropped,
		"rejected", c.Rejected,
	)
	return nil
}

// Stop implements Source.
func (s *Simulator) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

func (s *Simulator) run(ctx context.Context, p *transport.Producer) uint64 {
	var n uint64
	exhausted := func() bool { return s.cfg.MaxEvents > 0 && n >= s.cfg.MaxEvents }

	if s.cfg.EventsPerSecond <= 0 {
		for !exhausted() {
			if n%ctxCheckEvery == 0 && ctx.Err() != nil {
				break
			}
			s.publish(p)
			n++
		}
		return n
	}

	ticker := time.NewTicker(pacingTick)
	defer ticker.Stop()

	perTick := float64(s.cfg.EventsPerSecond) * pacingTick.Seconds()
	var owed float64
	for {
		select {
		case <-ctx.Done():
			return n
		case <-ticker.C:
		}
		for owed += perTick; owed >= 1; owed-- {
			if exhausted() {
				return n
			}
			s.publish(p)
			n++
		}
	}
}

// publish generates one event and offers it once. A full buffer loses the
// event; the producer counts it.
func (s *Simulator) publish(p *transport.Producer) {
	rec := s.next()
	s.generated.Add(1)
	if err := p.Publish(rec); err != nil && !errors.Is(err, transport.ErrDropped) {
		s.logger.Debug("simulated event rejected", "error", err)
	}
}

func (s *Simulator) next() event.Record {
	ts := s.clock.NowMicros()

	switch s.follow {
	case event.KeyRelease:
		s.follow = event.Unknown
		return event.NewKeyRelease(ts, s.origin, s.followKey)
	case event.IdleEnd:
		s.follow = event.Unknown
		return event.NewIdleEnd(ts, s.origin, event.Idle{DurationMS: s.followIdle})
	}

	if s.origin.App == "" || s.sinceSwitch >= s.cfg.SwitchEvery {
		return s.switchWindow(ts)
	}
	s.sinceSwitch++

	roll := s.fake.IntBetween(0, 999)
	switch {
	case roll < 2:
		d := uint32(s.fake.IntBetween(1000, 300000))
		s.follow, s.followIdle = event.IdleEnd, d
		return event.NewIdleStart(ts, s.origin, event.Idle{DurationMS: d})
	case roll < 450:
		k := s.key()
		s.follow, s.followKey = event.KeyRelease, k
		return event.NewKeyPress(ts, s.origin, k)
	case roll < 800:
		return event.NewMouseMove(ts, s.origin, s.moveMouse())
	case roll < 930:
		return event.NewMouseClick(ts, s.origin, event.MouseClick{
			X:      s.x,
			Y:      s.y,
			Button: s.button(),
		})
	default:
		return event.NewMouseWheel(ts, s.origin, s.wheel())
	}
}

func (s *Simulator) switchWindow(ts uint64) event.Record {
	old := s.origin.Window

	distract := s.productive && len(s.cfg.DistractingApps) > 0 &&
		s.fake.IntBetween(1, 100) <= s.cfg.DistractionChance

	var app string
	switch {
	case distract:
		app = s.fake.RandomStringElement(s.cfg.DistractingApps)
	case len(s.cfg.ProductiveApps) == 0 || s.fake.IntBetween(1, 100) <= s.cfg.UnknownAppChance:
		app = s.fake.Lorem().Word()
	default:
		app = s.fake.RandomStringElement(s.cfg.ProductiveApps)
	}

	s.productive = !distract
	s.sinceSwitch = 0
	s.origin = event.Origin{
		ProcessID: uint32(s.fake.IntBetween(1000, 65000)),
		Window:    uint32(s.fake.IntBetween(0x10000, 0xFFFFFF)),
		App:       app,
	}
	return event.NewWindowFocus(ts, s.origin, event.WindowSwitch{
		OldWindow: old,
		NewWindow: s.origin.Window,
	})
}

func (s *Simulator) key() event.Key {
	k := event.Key{
		VirtualKey: uint32(s.fake.IntBetween(0x30, 0x5A)),
		ScanCode:   uint32(s.fake.IntBetween(0x02, 0x35)),
	}
	if s.fake.IntBetween(1, 10) == 1 {
		k.Flags |= event.FlagShift
	}
	return k
}

func (s *Simulator) moveMouse() event.MouseMove {
	s.x = clamp(s.x+int32(s.fake.IntBetween(-40, 40)), 0, screenWidth-1)
	s.y = clamp(s.y+int32(s.fake.IntBetween(-40, 40)), 0, screenHeight-1)
	return event.MouseMove{
		X:     s.x,
		Y:     s.y,
		Speed: uint32(s.fake.IntBetween(50, 2500)),
	}
}

func (s *Simulator) button() uint32 {
	switch r := s.fake.IntBetween(1, 20); {
	case r <= 16:
		return event.ButtonLeft
	case r <= 19:
		return event.ButtonRight
	default:
		return event.ButtonMiddle
	}
}

func (s *Simulator) wheel() event.MouseWheel {
	w := event.MouseWheel{Delta: 120, Orientation: event.WheelVertical}
	if s.fake.IntBetween(0, 1) == 0 {
		w.Delta = -120
	}
	if s.fake.IntBetween(1, 10) == 1 {
		w.Orientation = event.WheelHorizontal
	}
	return w
}

func clamp(v, lo, hi int32) int32 {
	return max(lo, min(v, hi))
}
