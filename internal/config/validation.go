package config

import (
	"errors"
	"fmt"
	"math/bits"
	"net"
	"strings"
)

// ErrInvalidConfig is returned when validation fails.
var ErrInvalidConfig = errors.New("invalid configuration")

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is reports ErrInvalidConfig so callers can use errors.Is.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Fields returns the names of the offending fields in order.
func (e ValidationErrors) Fields() []string {
	fields := make([]string, 0, len(e))
	for _, err := range e {
		fields = append(fields, err.Field)
	}
	return fields
}

// ValidateConfig performs comprehensive validation of the configuration.
func ValidateConfig(c *Config) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	errs = append(errs, validateTransport(&c.Transport)...)
	errs = append(errs, validateTracker(&c.Tracker)...)
	errs = append(errs, validateCapture(&c.Capture)...)
	errs = append(errs, validateLogging(&c.Logging)...)
	errs = append(errs, validateMetrics(&c.Metrics)...)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateTransport(t *TransportConfig) ValidationErrors {
	var errs ValidationErrors

	if t.Capacity < 2 || bits.OnesCount64(t.Capacity) != 1 {
		errs = append(errs, ValidationError{
			Field:   "transport.capacity",
			Message: fmt.Sprintf("capacity must be a power of two >= 2, got %d", t.Capacity),
		})
	}

	if t.IdleBackoffUS < 1 {
		errs = append(errs, *MinError("transport.idle_backoff_us", 1))
	}

	if t.SampleIntervalMS < 10 {
		errs = append(errs, *MinError("transport.sample_interval_ms", 10))
	}

	return errs
}

func validateTracker(t *TrackerConfig) ValidationErrors {
	var errs ValidationErrors

	if t.SnapshotIntervalMS < 1000 {
		errs = append(errs, ValidationError{
			Field:   "tracker.snapshot_interval_ms",
			Message: "snapshot interval must be at least 1000 ms",
		})
	}

	if t.MinDistractionMS < 0 {
		errs = append(errs, ValidationError{
			Field:   "tracker.min_distraction_ms",
			Message: "minimum distraction cannot be negative",
		})
	}

	if t.IdleTimeoutMS < 1000 {
		errs = append(errs, ValidationError{
			Field:   "tracker.idle_timeout_ms",
			Message: "idle timeout must be at least 1000 ms",
		})
	}

	if t.HistorySize < 1 || t.HistorySize > 1000 {
		errs = append(errs, *RangeError("tracker.history_size", 1, 1000))
	}

	distracting := make(map[string]bool, len(t.DistractingApps))
	for _, app := range t.DistractingApps {
		distracting[strings.ToLower(app)] = true
	}
	for _, app := range t.ProductiveApps {
		if strings.TrimSpace(app) == "" {
			errs = append(errs, ValidationError{
				Field:   "tracker.productive_apps",
				Message: "app name cannot be empty",
			})
			continue
		}
		if distracting[strings.ToLower(app)] {
			errs = append(errs, ValidationError{
				Field:   "tracker.productive_apps",
				Message: fmt.Sprintf("%q is listed as both productive and distracting", app),
			})
		}
	}
	for _, app := range t.DistractingApps {
		if strings.TrimSpace(app) == "" {
			errs = append(errs, ValidationError{
				Field:   "tracker.distracting_apps",
				Message: "app name cannot be empty",
			})
		}
	}

	return errs
}

func validateCapture(c *CaptureConfig) ValidationErrors {
	var errs ValidationErrors

	switch c.Source {
	case "simulator":
	default:
		errs = append(errs, ValidationError{
			Field:   "capture.source",
			Message: fmt.Sprintf("unknown source: %s (valid: simulator)", c.Source),
		})
	}

	if c.EventsPerSecond < 1 || c.EventsPerSecond > 1_000_000 {
		errs = append(errs, *RangeError("capture.events_per_second", 1, 1_000_000))
	}

	if c.SwitchEvery < 1 {
		errs = append(errs, *MinError("capture.switch_every", 1))
	}

	return errs
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	switch l.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.level",
			Message: fmt.Sprintf("invalid log level: %s (valid: debug, info, warn, error)", l.Level),
		})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("invalid log format: %s (valid: text, json)", l.Format),
		})
	}

	switch l.Output {
	case "stdout", "stderr":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, *RequiredFieldError("logging.file_path"))
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("invalid log output: %s (valid: stdout, stderr, file, both)", l.Output),
		})
	}

	if l.MaxSizeMB < 1 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_size_mb",
			Message: "max size must be at least 1 MB",
		})
	}

	if l.MaxBackups < 0 {
		errs = append(errs, ValidationError{
			Field:   "logging.max_backups",
			Message: "max backups cannot be negative",
		})
	}

	return errs
}

func validateMetrics(m *MetricsConfig) ValidationErrors {
	var errs ValidationErrors

	if !m.Enabled {
		return errs
	}

	if _, _, err := net.SplitHostPort(m.ListenAddr); err != nil {
		errs = append(errs, ValidationError{
			Field:   "metrics.listen_addr",
			Message: fmt.Sprintf("invalid listen address: %v", err),
		})
	}

	if m.Namespace == "" {
		errs = append(errs, *RequiredFieldError("metrics.namespace"))
	}

	return errs
}

// RequiredFieldError creates a validation error for a required field.
func RequiredFieldError(field string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: "required field is missing",
	}
}

// MinError creates a validation error for a value below its lower bound.
func MinError(field string, min int) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be at least %d", min),
	}
}

// RangeError creates a validation error for an out-of-range value.
func RangeError(field string, min, max interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: fmt.Sprintf("value must be between %v and %v", min, max),
	}
}
