package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusd/internal/config"
	"focusd/internal/event"
	"focusd/internal/ring"
	"focusd/internal/transport"
)

// stepClock advances one millisecond per reading.
type stepClock struct{ now atomic.Uint64 }

func newStepClock() *stepClock {
	c := &stepClock{}
	c.now.Store(uint64(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).UnixMicro()))
	return c
}

func (c *stepClock) NowMicros() uint64 { return c.now.Add(1000) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newProducer(t *testing.T, capacity uint64) (*ring.Buffer[event.Record], *transport.Producer) {
	t.Helper()
	buf, err := ring.New[event.Record](capacity)
	require.NoError(t, err)
	return buf, transport.NewProducer(buf, true)
}

func drain(buf *ring.Buffer[event.Record]) []event.Record {
	var out []event.Record
	for {
		rec, ok := buf.TryPop()
		if !ok {
			return out
		}
		out = append(out, rec)
	}
}

func testConfig() SimulatorConfig {
	return SimulatorConfig{
		SwitchEvery:     50,
		MaxEvents:       1000,
		Seed:            7,
		ProductiveApps:  []string{"code", "kitty"},
		DistractingApps: []string{"discord", "steam"},
		Clock:           newStepClock(),
		Logger:          discardLogger(),
	}
}

func TestSimulatorStream(t *testing.T) {
	buf, p := newProducer(t, 2048)
	sim := NewSimulator(testConfig())

	require.NoError(t, sim.Start(context.Background(), p))

	c := p.Counts()
	assert.Equal(t, uint64(1000), c.Published)
	assert.Zero(t, c.Dropped)
	assert.Zero(t, c.Rejected)
	assert.Equal(t, uint64(1000), sim.Generated())

	recs := drain(buf)
	require.Len(t, recs, 1000)
	assert.Equal(t, event.WindowFocusChange, recs[0].Kind())

	kinds := map[event.Kind]int{}
	var prevTS uint64
	for i, rec := range recs {
		require.NoError(t, rec.Validate(), "record %d", i)
		assert.Greater(t, rec.Timestamp(), prevTS)
		prevTS = rec.Timestamp()
		kinds[rec.Kind()]++

		switch rec.Kind() {
		case event.KeyPress:
			if i+1 < len(recs) {
				assert.Equal(t, event.KeyRelease, recs[i+1].Kind(), "record %d", i+1)
				pk, _ := rec.Key()
				rk, _ := recs[i+1].Key()
				assert.Equal(t, pk, rk)
			}
		case event.WindowFocusChange:
			app := rec.AppName()
			assert.True(t, slices.Contains(testConfig().ProductiveApps, app) ||
				slices.Contains(testConfig().DistractingApps, app), app)
			ws, ok := rec.WindowSwitch()
			require.True(t, ok)
			assert.Equal(t, rec.Window(), ws.NewWindow)
		case event.MouseMoved:
			m, _ := rec.MouseMove()
			assert.GreaterOrEqual(t, m.X, int32(0))
			assert.Less(t, m.X, int32(screenWidth))
			assert.GreaterOrEqual(t, m.Y, int32(0))
			assert.Less(t, m.Y, int32(screenHeight))
		}
	}

	for _, k := range []event.Kind{event.KeyPress, event.KeyRelease, event.MouseMoved, event.MouseClicked, event.WindowFocusChange} {
		assert.Positive(t, kinds[k], k.String())
	}
	assert.GreaterOrEqual(t, kinds[event.WindowFocusChange], 5)
}

func TestSimulatorDeterministic(t *testing.T) {
	bufA, pa := newProducer(t, 1024)
	bufB, pb := newProducer(t, 1024)

	cfgA, cfgB := testConfig(), testConfig()
	cfgA.MaxEvents, cfgB.MaxEvents = 500, 500

	require.NoError(t, NewSimulator(cfgA).Start(context.Background(), pa))
	require.NoError(t, NewSimulator(cfgB).Start(context.Background(), pb))

	assert.Equal(t, drain(bufA), drain(bufB))
}

func TestSimulatorNeverRetriesDrops(t *testing.T) {
	buf, p := newProducer(t, 8)
	cfg := testConfig()
	cfg.MaxEvents = 100

	require.NoError(t, NewSimulator(cfg).Start(context.Background(), p))

	c := p.Counts()
	assert.Equal(t, uint64(8), c.Published)
	assert.Equal(t, uint64(92), c.Dropped)
	assert.Equal(t, uint64(100), c.Attempted())
	assert.True(t, buf.IsFull())
}

func TestSimulatorUnknownApps(t *testing.T) {
	buf, p := newProducer(t, 1024)
	cfg := testConfig()
	cfg.MaxEvents = 500
	cfg.SwitchEvery = 5
	cfg.DistractingApps = nil
	cfg.UnknownAppChance = 100

	require.NoError(t, NewSimulator(cfg).Start(context.Background(), p))

	for _, rec := range drain(buf) {
		if rec.Kind() == event.WindowFocusChange {
			assert.NotContains(t, cfg.ProductiveApps, rec.AppName())
			assert.NotEmpty(t, rec.AppName())
		}
	}
}

func TestSimulatorStop(t *testing.T) {
	_, p := newProducer(t, 1024)
	cfg := testConfig()
	cfg.MaxEvents = 0
	cfg.EventsPerSecond = 1000
	sim := NewSimulator(cfg)

	done := make(chan error, 1)
	go func() { done <- sim.Start(context.Background(), p) }()

	require.Eventually(t, sim.Running, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, sim.Start(context.Background(), p), ErrAlreadyRunning)
	require.Eventually(t, func() bool { return p.Counts().Published > 0 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, sim.Stop())
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("simulator did not stop")
	}
	assert.False(t, sim.Running())
	assert.NoError(t, sim.Stop())
}

func TestSimulatorContextCancel(t *testing.T) {
	_, p := newProducer(t, 1<<16)
	cfg := testConfig()
	cfg.MaxEvents = 0
	sim := NewSimulator(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, sim.Start(ctx, p))
	assert.Positive(t, sim.Generated())
}

func TestSimulatorLogsSession(t *testing.T) {
	var logs bytes.Buffer
	_, p := newProducer(t, 64)
	cfg := testConfig()
	cfg.MaxEvents = 10
	cfg.Logger = slog.New(slog.NewJSONHandler(&logs, nil))
	sim := NewSimulator(cfg)

	require.NoError(t, sim.Start(context.Background(), p))
	first := sim.SessionID()
	require.NotEmpty(t, first)

	lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
	require.Len(t, lines, 2)
	for i, want := range []string{"capture started", "capture stopped"} {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(lines[i]), &entry))
		assert.Equal(t, want, entry["msg"])
		assert.Equal(t, first, entry["session_id"])
		assert.Equal(t, SimulatorName, entry["source"])
	}

	require.NoError(t, sim.Start(context.Background(), p))
	assert.NotEqual(t, first, sim.SessionID())
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	src, err := FromConfig(cfg, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, SimulatorName, src.Name())

	sim, ok := src.(*Simulator)
	require.True(t, ok)
	assert.Equal(t, cfg.Capture.EventsPerSecond, sim.cfg.EventsPerSecond)
	assert.Equal(t, cfg.Tracker.DistractingApps, sim.cfg.DistractingApps)

	cfg.Capture.Source = "etw"
	_, err = FromConfig(cfg, discardLogger())
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestSystemClock(t *testing.T) {
	before := uint64(time.Now().UnixMicro())
	got := SystemClock{}.NowMicros()
	assert.GreaterOrEqual(t, got, before)
}
