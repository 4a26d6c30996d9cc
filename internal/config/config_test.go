package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"focusd/internal/logging"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NotNil(t, cfg)

	assert.Equal(t, Version, cfg.Version)
	assert.Equal(t, uint64(1024), cfg.Transport.Capacity)
	assert.Equal(t, 100*time.Microsecond, cfg.Transport.IdleBackoff())
	assert.Equal(t, time.Second, cfg.Transport.SampleInterval())
	assert.Equal(t, 30*time.Second, cfg.Tracker.SnapshotInterval())
	assert.Equal(t, 30*time.Second, cfg.Tracker.MinDistraction())
	assert.Equal(t, 2*time.Minute, cfg.Tracker.IdleTimeout())
	assert.Equal(t, 20, cfg.Tracker.HistorySize)
	assert.NotEmpty(t, cfg.Tracker.ProductiveApps)
	assert.NotEmpty(t, cfg.Tracker.DistractingApps)
	assert.Equal(t, "simulator", cfg.Capture.Source)
	assert.True(t, strings.HasSuffix(cfg.Logging.FilePath, "focusd.log"))

	assert.NoError(t, cfg.Validate())
}

func TestConfigPath(t *testing.T) {
	t.Setenv("FOCUSD_CONFIG_DIR", "/etc/focusd")
	assert.Equal(t, filepath.Join("/etc/focusd", "config.toml"), ConfigPath())
}

func TestLoadNonexistent(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, uint64(1024), cfg.Transport.Capacity)
}

func TestLoadTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
version = 1

[transport]
capacity = 4096
idle_backoff_us = 250

[tracker]
min_distraction_ms = 5000
productive_apps = ["code", "nvim"]

# comments are fine
[metrics]
enabled = true
listen_addr = ":9100"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint64(4096), cfg.Transport.Capacity)
	assert.Equal(t, 250*time.Microsecond, cfg.Transport.IdleBackoff())
	assert.Equal(t, 5*time.Second, cfg.Tracker.MinDistraction())
	assert.Equal(t, []string{"code", "nvim"}, cfg.Tracker.ProductiveApps)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9100", cfg.Metrics.ListenAddr)

	// Unset keys keep their defaults.
	assert.Equal(t, 1000, cfg.Transport.SampleIntervalMS)
	assert.Equal(t, 20, cfg.Tracker.HistorySize)
	assert.NoError(t, cfg.Validate())
}

func TestLoadJSONAndYAML(t *testing.T) {
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"transport": {"capacity": 64}}`), 0600))
	cfg, err := Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, uint64(64), cfg.Transport.Capacity)

	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("transport:\n  capacity: 128\ncapture:\n  events_per_second: 50\n"), 0600))
	cfg, err = Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, uint64(128), cfg.Transport.Capacity)
	assert.Equal(t, 50, cfg.Capture.EventsPerSecond)
}

func TestLoadInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[transport\ncapacity = "), 0600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"zero capacity", func(c *Config) { c.Transport.Capacity = 0 }, "transport.capacity"},
		{"capacity one", func(c *Config) { c.Transport.Capacity = 1 }, "transport.capacity"},
		{"capacity not power of two", func(c *Config) { c.Transport.Capacity = 1000 }, "transport.capacity"},
		{"zero backoff", func(c *Config) { c.Transport.IdleBackoffUS = 0 }, "transport.idle_backoff_us"},
		{"fast sampler", func(c *Config) { c.Transport.SampleIntervalMS = 1 }, "transport.sample_interval_ms"},
		{"short snapshot", func(c *Config) { c.Tracker.SnapshotIntervalMS = 10 }, "tracker.snapshot_interval_ms"},
		{"negative distraction", func(c *Config) { c.Tracker.MinDistractionMS = -1 }, "tracker.min_distraction_ms"},
		{"empty history", func(c *Config) { c.Tracker.HistorySize = 0 }, "tracker.history_size"},
		{"overlapping apps", func(c *Config) { c.Tracker.DistractingApps = append(c.Tracker.DistractingApps, "Code") }, "tracker.productive_apps"},
		{"blank app", func(c *Config) { c.Tracker.DistractingApps = []string{" "} }, "tracker.distracting_apps"},
		{"unknown source", func(c *Config) { c.Capture.Source = "etw" }, "capture.source"},
		{"zero rate", func(c *Config) { c.Capture.EventsPerSecond = 0 }, "capture.events_per_second"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"file without path", func(c *Config) { c.Logging.Output = "file"; c.Logging.FilePath = "" }, "logging.file_path"},
		{"bad listen addr", func(c *Config) { c.Metrics.Enabled = true; c.Metrics.ListenAddr = "nope" }, "metrics.listen_addr"},
		{"future version", func(c *Config) { c.Version = Version + 1 }, "version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConfig))

			var verrs ValidationErrors
			require.True(t, errors.As(err, &verrs))
			assert.Contains(t, verrs.Fields(), tt.field)
		})
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transport.Capacity = 3
	cfg.Logging.Format = "xml"

	var verrs ValidationErrors
	require.True(t, errors.As(cfg.Validate(), &verrs))
	assert.Len(t, verrs, 2)
	assert.Contains(t, verrs.Error(), "transport.capacity")
	assert.Contains(t, verrs.Error(), "logging.format")
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("FOCUSD_CAPACITY", "8192")
	t.Setenv("FOCUSD_IDLE_BACKOFF_US", "50")
	t.Setenv("FOCUSD_VALIDATE", "false")
	t.Setenv("FOCUSD_EVENTS_PER_SECOND", "not-a-number")
	t.Setenv("FOCUSD_LOG_LEVEL", "debug")
	t.Setenv("FOCUSD_METRICS_ADDR", "127.0.0.1:9999")

	cfg := DefaultConfig()
	cfg.ApplyEnvOverrides()

	assert.Equal(t, uint64(8192), cfg.Transport.Capacity)
	assert.Equal(t, 50, cfg.Transport.IdleBackoffUS)
	assert.False(t, cfg.Transport.Validate)
	assert.Equal(t, 200, cfg.Capture.EventsPerSecond)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, "127.0.0.1:9999", cfg.Metrics.ListenAddr)
}

func TestClone(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()

	clone.Tracker.ProductiveApps[0] = "changed"
	clone.Transport.Capacity = 2

	assert.NotEqual(t, "changed", cfg.Tracker.ProductiveApps[0])
	assert.Equal(t, uint64(1024), cfg.Transport.Capacity)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Transport.Capacity = 256
	cfg.Tracker.DistractingApps = []string{"steam"}

	for _, name := range []string{"config.toml", "config.json", "config.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			require.NoError(t, SaveConfig(cfg, path))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, uint64(256), loaded.Transport.Capacity)
			assert.Equal(t, []string{"steam"}, loaded.Tracker.DistractingApps)
			assert.Equal(t, cfg.Logging, loaded.Logging)
		})
	}
}

func TestLoadOrCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.True(t, created)
	assert.FileExists(t, path)

	cfg2, created, err := LoadOrCreate(path)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, cfg.Transport, cfg2.Transport)
}

func TestLoaderRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[transport]\ncapacity = 100\n"), 0600))

	_, err := NewLoader(path).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestLoaderHotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[tracker]\nmin_distraction_ms = 1000\n"), 0600))

	l := NewLoader(path)
	l.debounce = 10 * time.Millisecond
	_, err := l.Load()
	require.NoError(t, err)

	changed := make(chan [2]*Config, 1)
	l.OnChange(func(old, new *Config) {
		select {
		case changed <- [2]*Config{old, new}:
		default:
		}
	})
	require.NoError(t, l.Watch())
	defer l.Close()

	require.NoError(t, os.WriteFile(path, []byte("[tracker]\nmin_distraction_ms = 9000\n"), 0600))

	select {
	case pair := <-changed:
		assert.Equal(t, 1000, pair[0].Tracker.MinDistractionMS)
		assert.Equal(t, 9000, pair[1].Tracker.MinDistractionMS)
		assert.Equal(t, 9000, l.Config().Tracker.MinDistractionMS)
	case err := <-l.Errors():
		t.Fatalf("reload error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestLoaderHotReloadInvalidKeepsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[transport]\ncapacity = 64\n"), 0600))

	l := NewLoader(path)
	l.debounce = 10 * time.Millisecond
	_, err := l.Load()
	require.NoError(t, err)
	require.NoError(t, l.Watch())
	defer l.Close()

	require.NoError(t, os.WriteFile(path, []byte("[transport]\ncapacity = 63\n"), 0600))

	select {
	case err := <-l.Errors():
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload error")
	}
	assert.Equal(t, uint64(64), l.Config().Transport.Capacity)
}

func TestLoggerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.Level = "warn"
	cfg.Logging.Format = "json"

	lc, err := cfg.Logging.LoggerConfig()
	require.NoError(t, err)
	assert.Equal(t, logging.LevelWarn, lc.Level)
	assert.Equal(t, logging.FormatJSON, lc.Format)
	assert.Equal(t, int64(50), lc.MaxSize)

	cfg.Logging.Level = "loud"
	_, err = cfg.Logging.LoggerConfig()
	assert.Error(t, err)
}

func TestFindConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("FOCUSD_CONFIG_DIR", dir)
	t.Chdir(t.TempDir())

	assert.Empty(t, FindConfigFile())

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 1\n"), 0600))
	assert.Equal(t, path, FindConfigFile())
}
