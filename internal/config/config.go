// Package config handles configuration loading, validation, and management for focusd.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"focusd/internal/logging"
)

// Version is the current configuration schema version.
const Version = 1

// Config holds the complete daemon configuration.
type Config struct {
	// Version is the configuration schema version.
	Version int `toml:"version" json:"version" yaml:"version"`

	// Transport configures the ring buffer between capture and consumer.
	Transport TransportConfig `toml:"transport" json:"transport" yaml:"transport"`

	// Tracker configures focus state tracking.
	Tracker TrackerConfig `toml:"tracker" json:"tracker" yaml:"tracker"`

	// Capture configures the event source.
	Capture CaptureConfig `toml:"capture" json:"capture" yaml:"capture"`

	// Logging configuration.
	Logging LoggingConfig `toml:"logging" json:"logging" yaml:"logging"`

	// Metrics configures the Prometheus endpoint.
	Metrics MetricsConfig `toml:"metrics" json:"metrics" yaml:"metrics"`

	mu sync.RWMutex `toml:"-" json:"-" yaml:"-"`
}

// TransportConfig holds ring buffer and consumer settings.
type TransportConfig struct {
	// Capacity is the number of slots in the ring buffer. Must be a power of two.
	Capacity uint64 `toml:"capacity" json:"capacity" yaml:"capacity"`

	// IdleBackoffUS is how long the consumer sleeps when the buffer is empty.
	IdleBackoffUS int `toml:"idle_backoff_us" json:"idle_backoff_us" yaml:"idle_backoff_us"`

	// Validate rejects implausible records before they are published.
	Validate bool `toml:"validate" json:"validate" yaml:"validate"`

	// SampleIntervalMS is the period of the stats sampler.
	SampleIntervalMS int `toml:"sample_interval_ms" json:"sample_interval_ms" yaml:"sample_interval_ms"`
}

// TrackerConfig holds focus tracker settings.
type TrackerConfig struct {
	// SnapshotIntervalMS is how often a context snapshot is taken while focused.
	SnapshotIntervalMS int `toml:"snapshot_interval_ms" json:"snapshot_interval_ms" yaml:"snapshot_interval_ms"`

	// MinDistractionMS is the shortest distraction that triggers a recovery.
	MinDistractionMS int `toml:"min_distraction_ms" json:"min_distraction_ms" yaml:"min_distraction_ms"`

	// IdleTimeoutMS is the inactivity period after which the user counts as idle.
	IdleTimeoutMS int `toml:"idle_timeout_ms" json:"idle_timeout_ms" yaml:"idle_timeout_ms"`

	// HistorySize is the number of snapshots kept.
	HistorySize int `toml:"history_size" json:"history_size" yaml:"history_size"`

	// ProductiveApps are executable names always treated as productive.
	ProductiveApps []string `toml:"productive_apps" json:"productive_apps" yaml:"productive_apps"`

	// DistractingApps are executable names always treated as distracting.
	DistractingApps []string `toml:"distracting_apps" json:"distracting_apps" yaml:"distracting_apps"`
}

// CaptureConfig holds event source settings.
type CaptureConfig struct {
	// Source selects the event source. Only "simulator" is built in.
	Source string `toml:"source" json:"source" yaml:"source"`

	// EventsPerSecond is the simulated input rate.
	EventsPerSecond int `toml:"events_per_second" json:"events_per_second" yaml:"events_per_second"`

	// SwitchEvery is the number of events between simulated window switches.
	SwitchEvery int `toml:"switch_every" json:"switch_every" yaml:"switch_every"`

	// Seed makes the simulated stream reproducible. Zero picks a random seed.
	Seed int64 `toml:"seed" json:"seed" yaml:"seed"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level: "debug", "info", "warn", "error".
	Level string `toml:"level" json:"level" yaml:"level"`

	// Format is the log format: "text" or "json".
	Format string `toml:"format" json:"format" yaml:"format"`

	// Output is the log output: "stdout", "stderr", "file", or "both".
	Output string `toml:"output" json:"output" yaml:"output"`

	// FilePath is the path to the log file (when Output is "file" or "both").
	FilePath string `toml:"file_path" json:"file_path" yaml:"file_path"`

	// MaxSizeMB is the maximum log file size before rotation.
	MaxSizeMB int `toml:"max_size_mb" json:"max_size_mb" yaml:"max_size_mb"`

	// MaxBackups is the number of old log files to keep.
	MaxBackups int `toml:"max_backups" json:"max_backups" yaml:"max_backups"`

	// Compress determines whether to compress rotated logs.
	Compress bool `toml:"compress" json:"compress" yaml:"compress"`
}

// MetricsConfig holds Prometheus exposition settings.
type MetricsConfig struct {
	// Enabled serves /metrics on ListenAddr.
	Enabled bool `toml:"enabled" json:"enabled" yaml:"enabled"`

	// ListenAddr is the host:port of the metrics endpoint.
	ListenAddr string `toml:"listen_addr" json:"listen_addr" yaml:"listen_addr"`

	// Namespace prefixes every metric name.
	Namespace string `toml:"namespace" json:"namespace" yaml:"namespace"`
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Version: Version,
		Transport: TransportConfig{
			Capacity:         1024,
			IdleBackoffUS:    100,
			Validate:         true,
			SampleIntervalMS: 1000,
		},
		Tracker: TrackerConfig{
			SnapshotIntervalMS: 30000,
			MinDistractionMS:   30000,
			IdleTimeoutMS:      120000,
			HistorySize:        20,
			ProductiveApps:     DefaultProductiveApps(),
			DistractingApps:    DefaultDistractingApps(),
		},
		Capture: CaptureConfig{
			Source:          "simulator",
			EventsPerSecond: 200,
			SwitchEvery:     500,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stderr",
			FilePath:   filepath.Join(PlatformLogDir(), "focusd.log"),
			MaxSizeMB:  50,
			MaxBackups: 5,
			Compress:   true,
		},
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9464",
			Namespace:  "focusd",
		},
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() string {
	return filepath.Join(PlatformConfigDir(), "config.toml")
}

// Load reads configuration from the specified path.
// If the file doesn't exist, returns default configuration.
// Supports TOML, JSON, and YAML formats based on file extension.
func Load(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg, err := loadConfigFromFile(path)
	if err != nil {
		return nil, err
	}

	cfg.ApplyEnvOverrides()
	return cfg, nil
}

// loadConfigFromFile reads and parses a config file based on its extension.
// Keys missing from the file keep their default values.
func loadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	switch filepath.Ext(path) {
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("decode YAML: %w", err)
		}
	default:
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return nil, fmt.Errorf("decode TOML: %w", err)
		}
	}

	return cfg, nil
}

// SaveConfig writes the configuration to path, choosing the format by extension.
func SaveConfig(cfg *Config, path string) error {
	data, err := Encode(cfg, filepath.Ext(path))
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML, JSON (".json") or YAML (".yaml", ".yml").
func Encode(cfg *Config, ext string) ([]byte, error) {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	switch ext {
	case ".json":
		return json.MarshalIndent(cfg, "", "  ")
	case ".yaml", ".yml":
		return yaml.Marshal(cfg)
	default:
		var buf strings.Builder
		buf.WriteString("# focusd configuration\n")
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return nil, err
		}
		return []byte(buf.String()), nil
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	return ValidateConfig(c)
}

// EnsureDirectories creates the directories the daemon writes to.
func (c *Config) EnsureDirectories() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.Logging.Output != "file" && c.Logging.Output != "both" {
		return nil
	}
	dir := filepath.Dir(c.Logging.FilePath)
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	return nil
}

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables are prefixed with FOCUSD_. Unparseable numbers are ignored.
func (c *Config) ApplyEnvOverrides() {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Transport overrides
	if v, ok := envUint("FOCUSD_CAPACITY"); ok {
		c.Transport.Capacity = v
	}
	if v, ok := envInt("FOCUSD_IDLE_BACKOFF_US"); ok {
		c.Transport.IdleBackoffUS = v
	}
	if v := os.Getenv("FOCUSD_VALIDATE"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Transport.Validate = b
		}
	}

	// Capture overrides
	if v, ok := envInt("FOCUSD_EVENTS_PER_SECOND"); ok {
		c.Capture.EventsPerSecond = v
	}

	// Logging overrides
	if v := os.Getenv("FOCUSD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FOCUSD_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("FOCUSD_LOG_PATH"); v != "" {
		c.Logging.FilePath = v
	}

	// Metrics overrides
	if v := os.Getenv("FOCUSD_METRICS_ADDR"); v != "" {
		c.Metrics.ListenAddr = v
		c.Metrics.Enabled = true
	}
}

func envInt(key string) (int, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

func envUint(key string) (uint64, bool) {
	v := os.Getenv(key)
	if v == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()

	clone := &Config{
		Version:   c.Version,
		Transport: c.Transport,
		Tracker:   c.Tracker,
		Capture:   c.Capture,
		Logging:   c.Logging,
		Metrics:   c.Metrics,
	}
	clone.Tracker.ProductiveApps = append([]string{}, c.Tracker.ProductiveApps...)
	clone.Tracker.DistractingApps = append([]string{}, c.Tracker.DistractingApps...)

	return clone
}

// IdleBackoff returns the consumer idle sleep as a duration.
func (t TransportConfig) IdleBackoff() time.Duration {
	return time.Duration(t.IdleBackoffUS) * time.Microsecond
}

// SampleInterval returns the sampler period as a duration.
func (t TransportConfig) SampleInterval() time.Duration {
	return time.Duration(t.SampleIntervalMS) * time.Millisecond
}

// SnapshotInterval returns the snapshot period as a duration.
func (t TrackerConfig) SnapshotInterval() time.Duration {
	return time.Duration(t.SnapshotIntervalMS) * time.Millisecond
}

// MinDistraction returns the recovery threshold as a duration.
func (t TrackerConfig) MinDistraction() time.Duration {
	return time.Duration(t.MinDistractionMS) * time.Millisecond
}

// IdleTimeout returns the inactivity threshold as a duration.
func (t TrackerConfig) IdleTimeout() time.Duration {
	return time.Duration(t.IdleTimeoutMS) * time.Millisecond
}

// LoggerConfig converts the logging section for logging.New.
func (l LoggingConfig) LoggerConfig() (*logging.Config, error) {
	level, err := logging.ParseLevel(l.Level)
	if err != nil {
		return nil, err
	}
	format, err := logging.ParseFormat(l.Format)
	if err != nil {
		return nil, err
	}

	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = format
	cfg.Output = l.Output
	cfg.FilePath = l.FilePath
	cfg.MaxSize = int64(l.MaxSizeMB)
	cfg.MaxBackups = l.MaxBackups
	cfg.Compress = l.Compress
	return cfg, nil
}
