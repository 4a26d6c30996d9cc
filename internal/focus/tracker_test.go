package focus

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusd/internal/event"
	"focusd/internal/metrics"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestTracker(t *testing.T, cfg Config, opts ...Option) (*Tracker, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	opts = append([]Option{
		WithClock(clock.Now),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	tr := NewTracker(cfg, opts...)
	tr.Start()
	return tr, clock
}

func typeKeys(tr *Tracker, n int) {
	for i := 0; i < n; i++ {
		tr.OnKeystroke()
	}
}

func TestTrackerRecoveryAfterLongDistraction(t *testing.T) {
	tr, clock := newTestTracker(t, DefaultConfig())

	var got []Recovery
	tr.OnRecovery(func(r Recovery) { got = append(got, r) })

	tr.OnWindowChange("code", 100, 1)
	typeKeys(tr, 10)
	clock.Advance(40 * time.Second)

	tr.OnWindowChange("discord", 200, 2)
	assert.Equal(t, Distracted, tr.State())
	assert.Zero(t, tr.FocusDuration())
	clock.Advance(45 * time.Second)

	tr.OnWindowChange("code", 100, 1)
	assert.Equal(t, Recovering, tr.State())

	require.Len(t, got, 1)
	r := got[0]
	assert.Equal(t, "discord", r.DistractionApp)
	assert.Equal(t, 45*time.Second, r.DistractionDuration)
	assert.Equal(t, epoch.Add(40*time.Second), r.DistractionStart)
	assert.Equal(t, 40*time.Second, r.FocusBefore)
	require.True(t, r.HasLastProductive)
	assert.Equal(t, "code", r.LastProductive.AppName)
	assert.Equal(t, uint32(10), r.LastProductive.Keystrokes)
	assert.Equal(t, CategoryIDE, r.LastProductive.Category)
	require.NotEmpty(t, r.Activities)
	assert.Equal(t, "Working in code", r.Activities[0].Description)

	// Distraction time without input is not kept.
	_, ok := tr.History().FindByApp("discord")
	assert.False(t, ok)

	assert.True(t, tr.Dismiss())
	assert.Equal(t, Focused, tr.State())
	assert.False(t, tr.Dismiss())
	assert.Zero(t, tr.Current().Keystrokes)
}

func TestTrackerShortDistraction(t *testing.T) {
	tr, clock := newTestTracker(t, DefaultConfig())

	called := false
	tr.OnRecovery(func(Recovery) { called = true })

	tr.OnWindowChange("code", 100, 1)
	typeKeys(tr, 3)
	clock.Advance(20 * time.Second)
	tr.OnWindowChange("discord", 200, 2)
	clock.Advance(10 * time.Second)
	tr.OnWindowChange("nvim", 300, 3)

	assert.Equal(t, Focused, tr.State())
	assert.False(t, called)

	clock.Advance(5 * time.Second)
	assert.Equal(t, 5*time.Second, tr.FocusDuration())
}

func TestTrackerRecoveringIgnoresSwitches(t *testing.T) {
	tr, clock := newTestTracker(t, Config{MinDistraction: time.Second})

	tr.OnWindowChange("code", 1, 1)
	typeKeys(tr, 1)
	clock.Advance(10 * time.Second)
	tr.OnWindowChange("steam", 2, 2)
	clock.Advance(2 * time.Second)
	tr.OnWindowChange("code", 1, 1)
	require.Equal(t, Recovering, tr.State())

	tr.OnWindowChange("steam", 2, 2)
	assert.Equal(t, Recovering, tr.State())
	tr.OnWindowChange("kitty", 3, 3)
	assert.Equal(t, Recovering, tr.State())
}

func TestTrackerUnknownAppIsProductive(t *testing.T) {
	tr, _ := newTestTracker(t, DefaultConfig())

	tr.OnWindowChange("some-inhouse-tool", 1, 1)
	assert.Equal(t, Focused, tr.State())
	cur := tr.Current()
	assert.Equal(t, CategoryUnknown, cur.Category)
	assert.True(t, cur.Productive)
}

func TestTrackerCustomDistractingApp(t *testing.T) {
	tr, _ := newTestTracker(t, Config{DistractingApps: []string{"Chrome.exe"}})

	tr.OnWindowChange("chrome", 1, 1)
	assert.Equal(t, Distracted, tr.State())
	assert.Equal(t, CategoryEntertainment, tr.Current().Category)
}

func TestTrackerObserver(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewTracker(reg, "test")
	tr, clock := newTestTracker(t, DefaultConfig(), WithObserver(m))

	tr.OnWindowChange("code", 1, 1)
	typeKeys(tr, 5)
	clock.Advance(time.Minute)
	tr.OnWindowChange("twitter", 2, 2)
	clock.Advance(time.Minute)
	tr.OnWindowChange("code", 1, 1)
	tr.Dismiss()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("focused", "distracted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("distracted", "recovering")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Transitions.WithLabelValues("recovering", "focused")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Recoveries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Snapshots))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.State.WithLabelValues("focused")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.State.WithLabelValues("recovering")))
}

func TestTrackerUpdateSnapshotsAndIdle(t *testing.T) {
	tr, clock := newTestTracker(t, DefaultConfig())

	tr.OnWindowChange("code", 1, 1)
	typeKeys(tr, 4)

	clock.Advance(29 * time.Second)
	tr.Update()
	assert.Zero(t, tr.History().Len())

	clock.Advance(time.Second)
	tr.Update()
	h := tr.History()
	require.Equal(t, 1, h.Len())
	last, _ := h.Last()
	assert.Equal(t, 30*time.Second, last.DurationInContext)
	assert.True(t, last.Productive)

	clock.Advance(10 * time.Second)
	tr.Update()
	assert.Equal(t, 1, tr.History().Len())

	clock.Advance(3 * time.Minute)
	tr.Update()
	assert.True(t, tr.Idle())
	assert.Equal(t, 1, tr.History().Len(), "idle time is not snapshotted")

	tr.OnKeystroke()
	assert.False(t, tr.Idle())
}

func TestTrackerUpdateSkipsWhenDistracted(t *testing.T) {
	tr, clock := newTestTracker(t, Config{SnapshotInterval: time.Second})

	tr.OnWindowChange("netflix", 1, 1)
	tr.OnMouseClick()
	clock.Advance(10 * time.Second)
	tr.Update()
	assert.Zero(t, tr.History().Len())
}

func TestTrackerOnIdle(t *testing.T) {
	tr, _ := newTestTracker(t, DefaultConfig())

	tr.OnIdle(true)
	assert.True(t, tr.Idle())
	tr.OnIdle(false)
	assert.False(t, tr.Idle())
}

func TestTrackerMouseDistance(t *testing.T) {
	tr, _ := newTestTracker(t, DefaultConfig())

	tr.OnMouseMove(10, 10)
	tr.OnMouseMove(13, 6)
	tr.OnMouseMove(-2, 6)
	assert.Equal(t, uint32(22), tr.Current().MouseDistance)
}

func TestTrackerHandleRecord(t *testing.T) {
	tr, _ := newTestTracker(t, DefaultConfig())
	ts := uint64(epoch.UnixMicro())
	o := event.Origin{ProcessID: 42, Window: 7, App: "code"}

	tr.HandleRecord(event.NewWindowFocus(ts, o, event.WindowSwitch{OldWindow: 1, NewWindow: 9}))
	cur := tr.Current()
	assert.Equal(t, "code", cur.AppName)
	assert.Equal(t, uint32(42), cur.ProcessID)
	assert.Equal(t, uint32(9), cur.Window)

	tr.HandleRecord(event.NewKeyPress(ts, o, event.Key{VirtualKey: 0x41}))
	tr.HandleRecord(event.NewKeyRelease(ts, o, event.Key{VirtualKey: 0x41}))
	tr.HandleRecord(event.NewMouseMove(ts, o, event.MouseMove{X: 10, Y: 10}))
	tr.HandleRecord(event.NewMouseMove(ts, o, event.MouseMove{X: 13, Y: 6}))
	tr.HandleRecord(event.NewMouseClick(ts, o, event.MouseClick{Button: event.ButtonLeft}))
	tr.HandleRecord(event.NewMouseWheel(ts, o, event.MouseWheel{Delta: 120}))

	cur = tr.Current()
	assert.Equal(t, uint32(1), cur.Keystrokes)
	assert.Equal(t, uint32(1), cur.MouseClicks)
	assert.Equal(t, uint32(7), cur.MouseDistance)

	tr.HandleRecord(event.NewIdleStart(ts, o, event.Idle{DurationMS: 1000}))
	assert.True(t, tr.Idle())
	tr.HandleRecord(event.NewIdleEnd(ts, o, event.Idle{}))
	assert.False(t, tr.Idle())

	lock, err := event.New(ts, event.ScreenLock, o, event.None{})
	require.NoError(t, err)
	tr.HandleRecord(lock)
	assert.True(t, tr.Idle())
	unlock, err := event.New(ts, event.ScreenUnlock, o, event.None{})
	require.NoError(t, err)
	tr.HandleRecord(unlock)
	assert.False(t, tr.Idle())

	tr.HandleRecord(event.Record{})
	assert.Equal(t, Focused, tr.State())
}

func TestTrackerSetConfig(t *testing.T) {
	tr, clock := newTestTracker(t, Config{HistorySize: 5})

	for _, app := range []string{"code", "kitty", "obsidian", "nvim"} {
		tr.OnWindowChange(app, 1, 1)
		typeKeys(tr, 1)
		clock.Advance(10 * time.Second)
	}
	tr.OnWindowChange("vim", 1, 1)
	require.Equal(t, 4, tr.History().Len())

	tr.SetConfig(Config{HistorySize: 2, DistractingApps: []string{"vim"}})
	assert.Equal(t, 2, tr.Config().HistorySize)
	assert.Equal(t, DefaultConfig().SnapshotInterval, tr.Config().SnapshotInterval)

	h := tr.History()
	assert.Equal(t, 2, h.Cap())
	last, _ := h.Last()
	assert.Equal(t, "nvim", last.AppName)

	tr.OnWindowChange("vim", 1, 1)
	assert.Equal(t, Distracted, tr.State())
}

func TestTrackerForceRecovery(t *testing.T) {
	tr, clock := newTestTracker(t, DefaultConfig())

	var calls int
	tr.OnRecovery(func(Recovery) { calls++ })

	tr.OnWindowChange("code", 1, 1)
	typeKeys(tr, 2)
	clock.Advance(time.Minute)
	tr.OnWindowChange("kitty", 1, 1)

	r := tr.ForceRecovery()
	assert.Equal(t, 1, calls)
	assert.Equal(t, Focused, tr.State())
	require.True(t, r.HasLastProductive)
	assert.Equal(t, "code", r.LastProductive.AppName)
}

func TestTrackerStop(t *testing.T) {
	tr, clock := newTestTracker(t, DefaultConfig())
	tr.OnWindowChange("code", 1, 1)
	typeKeys(tr, 2)
	clock.Advance(time.Minute)
	tr.OnWindowChange("kitty", 1, 1)
	require.Equal(t, 1, tr.History().Len())

	tr.Stop()
	assert.True(t, tr.History().Empty())
}

func TestTrackerConcurrentInput(t *testing.T) {
	tr, _ := newTestTracker(t, DefaultConfig())

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				tr.OnKeystroke()
				tr.Update()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint32(8000), tr.Current().Keystrokes)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "focused", Focused.String())
	assert.Equal(t, "distracted", Distracted.String())
	assert.Equal(t, "recovering", Recovering.String())
	assert.Equal(t, "unknown", State(9).String())
}
