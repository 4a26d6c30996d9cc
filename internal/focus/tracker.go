// Package focus turns the input event stream into focus state: which
// application the user is in, whether it counts as productive, and what they
// were doing before a distraction.
//
// Tracker transitions:
//   - Focused to Distracted on a switch to a distracting application.
//   - Distracted to Recovering on a switch back to a productive application
//     after at least MinDistraction away; a Recovery is emitted.
//   - Distracted to Focused on a shorter trip away.
//   - Recovering to Focused on Dismiss.
package focus

import (
	"log/slog"
	"sync"
	"time"

	"focusd/internal/event"
)

// State is the tracker's distraction state.
type State uint8

const (
	Focused State = iota
	Distracted
	Recovering
)

func (s State) String() string {
	switch s {
	case Focused:
		return "focused"
	case Distracted:
		return "distracted"
	case Recovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// Config holds tracker tuning.
type Config struct {
	SnapshotInterval time.Duration
	MinDistraction   time.Duration
	IdleTimeout      time.Duration
	HistorySize      int
	ProductiveApps   []string
	DistractingApps  []string
}

// DefaultConfig returns the default tracker configuration.
func DefaultConfig() Config {
	return Config{
		SnapshotInterval: 30 * time.Second,
		MinDistraction:   30 * time.Second,
		IdleTimeout:      2 * time.Minute,
		HistorySize:      DefaultHistorySize,
	}
}

// Observer receives state changes, typically a metrics.Tracker.
type Observer interface {
	ObserveTransition(from, to string)
	ObserveRecovery()
	ObserveSnapshot()
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithObserver registers o for state changes.
func WithObserver(o Observer) Option {
	return func(t *Tracker) { t.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}

// Tracker follows window focus and input activity. All methods are safe for
// concurrent use.
type Tracker struct {
	mu sync.Mutex

	cfg        Config
	classifier *Classifier
	history    *History
	observer   Observer
	logger     *slog.Logger
	now        func() time.Time
	onRecovery []func(Recovery)

	state   State
	current Snapshot
	idle    bool

	focusStart       time.Time
	distractionStart time.Time
	distractionApp   string
	lastSnapshot     time.Time
	lastActivity     time.Time

	mouseX, mouseY int32
	mouseSeen      bool
}

// NewTracker creates a tracker in the Focused state.
func NewTracker(cfg Config, opts ...Option) *Tracker {
	cfg = withDefaults(cfg)
	t := &Tracker{
		cfg:        cfg,
		classifier: NewClassifier(cfg.ProductiveApps, cfg.DistractingApps),
		history:    NewHistory(cfg.HistorySize),
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func withDefaults(cfg Config) Config {
	def := DefaultConfig()
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = def.SnapshotInterval
	}
	if cfg.MinDistraction < 0 {
		cfg.MinDistraction = 0
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = def.IdleTimeout
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = def.HistorySize
	}
	return cfg
}

// Start resets the tracker to Focused with an empty current context.
func (t *Tracker) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.setState(Focused)
	t.focusStart = now
	t.lastSnapshot = now
	t.lastActivity = now
	t.idle = false
	t.current = Snapshot{Timestamp: now}
	t.mouseSeen = false
}

// Stop discards the history.
func (t *Tracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.history.Clear()
}

// OnRecovery registers fn to be called, outside the tracker lock, whenever
// the tracker enters Recovering.
func (t *Tracker) OnRecovery(fn func(Recovery)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onRecovery = append(t.onRecovery, fn)
}

// OnWindowChange records a switch to app. The context being left is kept in
// the history if it was meaningful.
func (t *Tracker) OnWindowChange(app string, pid, window uint32) {
	t.mu.Lock()
	rec, emit := t.windowChange(app, pid, window)
	callbacks := t.onRecovery
	t.mu.Unlock()

	if emit {
		for _, fn := range callbacks {
			fn(rec)
		}
	}
}

func (t *Tracker) windowChange(app string, pid, window uint32) (Recovery, bool) {
	now := t.now()
	cat := t.classifier.Classify(app)
	next := Snapshot{
		Timestamp:  now,
		AppName:    app,
		ProcessID:  pid,
		Window:     window,
		Category:   cat,
		Productive: cat.Productive(),
	}

	if !t.current.Timestamp.IsZero() {
		t.current.DurationInContext = now.Sub(t.current.Timestamp)
	}
	t.current.ContextSwitches++
	t.pushCurrent()

	var (
		rec  Recovery
		emit bool
	)
	switch t.state {
	case Focused:
		if !cat.Productive() {
			t.setState(Distracted)
			t.distractionStart = now
			t.distractionApp = app
			t.logger.Info("distraction started", "app", app, "category", cat.String())
		}
	case Distracted:
		if cat.Productive() {
			away := now.Sub(t.distractionStart)
			if away >= t.cfg.MinDistraction {
				t.setState(Recovering)
				rec, emit = t.recovery(now), true
				t.logger.Info("recovering from distraction", "app", t.distractionApp, "away", away.Round(time.Second))
			} else {
				t.setState(Focused)
				t.focusStart = now
			}
		}
	case Recovering:
		// Stays until dismissed.
	}

	t.current = next
	if cat.Productive() && t.state == Focused {
		t.current.FocusStreak = now.Sub(t.focusStart)
	}
	return rec, emit
}

func (t *Tracker) recovery(now time.Time) Recovery {
	r := buildRecovery(t.history, t.distractionStart, now, t.distractionApp)
	if t.distractionStart.After(t.focusStart) {
		r.FocusBefore = t.distractionStart.Sub(t.focusStart)
	}
	if t.observer != nil {
		t.observer.ObserveRecovery()
	}
	return r
}

func (t *Tracker) setState(s State) {
	if t.state != s && t.observer != nil {
		t.observer.ObserveTransition(t.state.String(), s.String())
	}
	t.state = s
}

func (t *Tracker) pushCurrent() {
	if !t.current.Meaningful() {
		return
	}
	t.history.Push(t.current)
	if t.observer != nil {
		t.observer.ObserveSnapshot()
	}
}

func (t *Tracker) activity() {
	t.lastActivity = t.now()
	if t.idle {
		t.idle = false
		t.logger.Debug("idle ended")
	}
}

// OnKeystroke counts a key press in the current context.
func (t *Tracker) OnKeystroke() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current.Keystrokes++
	t.activity()
}

// OnMouseClick counts a click in the current context.
func (t *Tracker) OnMouseClick() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current.MouseClicks++
	t.activity()
}

// OnMouseMove accumulates Manhattan travel from the previous cursor position.
func (t *Tracker) OnMouseMove(x, y int32) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.mouseSeen {
		t.current.MouseDistance += abs(int64(x)-int64(t.mouseX)) + abs(int64(y)-int64(t.mouseY))
	}
	t.mouseX, t.mouseY, t.mouseSeen = x, y, true
	t.activity()
}

func abs(v int64) uint32 {
	if v < 0 {
		v = -v
	}
	return uint32(v)
}

// OnIdle marks the start or end of an idle period reported by the source.
func (t *Tracker) OnIdle(start bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if start {
		t.idle = true
		return
	}
	t.activity()
}

// Update takes a snapshot when focused and the snapshot interval has passed,
// and detects idleness from input silence. Call it periodically.
func (t *Tracker) Update() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if !t.idle && !t.lastActivity.IsZero() && now.Sub(t.lastActivity) > t.cfg.IdleTimeout {
		t.idle = true
		t.logger.Debug("idle detected", "silent_for", now.Sub(t.lastActivity).Round(time.Second))
	}
	if t.idle || t.state != Focused {
		return
	}
	if now.Sub(t.lastSnapshot) >= t.cfg.SnapshotInterval {
		t.current.Timestamp = now
		t.current.DurationInContext = now.Sub(t.focusStart)
		t.current.Productive = true
		t.pushCurrent()
		t.lastSnapshot = now
	}
}

// Dismiss acknowledges a recovery and returns to Focused with fresh input
// counters. It reports whether the tracker was Recovering.
func (t *Tracker) Dismiss() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Recovering {
		return false
	}
	t.setState(Focused)
	t.focusStart = t.now()
	t.current.Keystrokes = 0
	t.current.MouseClicks = 0
	t.current.MouseDistance = 0
	return true
}

// ForceRecovery builds a Recovery from the current history and delivers it
// to the callbacks without changing state.
func (t *Tracker) ForceRecovery() Recovery {
	t.mu.Lock()
	rec := t.recovery(t.now())
	callbacks := t.onRecovery
	t.mu.Unlock()

	for _, fn := range callbacks {
		fn(rec)
	}
	return rec
}

// State returns the current state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Idle reports whether the user is currently idle.
func (t *Tracker) Idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idle
}

// Current returns a copy of the context being tracked.
func (t *Tracker) Current() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// History returns a copy of the snapshot history.
func (t *Tracker) History() *History {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.history.Clone()
}

// FocusDuration is the length of the current focus session, or zero when
// not Focused.
func (t *Tracker) FocusDuration() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != Focused {
		return 0
	}
	return t.now().Sub(t.focusStart)
}

// SetConfig applies new tuning. The history keeps its newest entries when
// resized.
func (t *Tracker) SetConfig(cfg Config) {
	cfg = withDefaults(cfg)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.cfg = cfg
	t.classifier = NewClassifier(cfg.ProductiveApps, cfg.DistractingApps)
	if cfg.HistorySize != t.history.Cap() {
		t.history = t.history.resized(cfg.HistorySize)
	}
}

// Config returns the active configuration.
func (t *Tracker) Config() Config {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cfg
}

// HandleRecord feeds a captured record into the tracker, so a Tracker can
// be used directly as a transport handler.
func (t *Tracker) HandleRecord(rec event.Record) {
	switch rec.Kind() {
	case event.KeyPress:
		t.OnKeystroke()
	case event.MouseClicked:
		t.OnMouseClick()
	case event.MouseMoved:
		if m, ok := rec.MouseMove(); ok {
			t.OnMouseMove(m.X, m.Y)
		}
	case event.WindowFocusChange:
		window := rec.Window()
		if ws, ok := rec.WindowSwitch(); ok && ws.NewWindow != 0 {
			window = ws.NewWindow
		}
		t.OnWindowChange(rec.AppName(), rec.ProcessID(), window)
	case event.IdleStart, event.ScreenLock:
		t.OnIdle(true)
	case event.IdleEnd, event.ScreenUnlock:
		t.OnIdle(false)
	}
}
