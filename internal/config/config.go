package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/multierr"

	"github.com/fakeyudi/rumsession/internal/rum"
)

// Config holds all configurable rumsession settings. Zero values mean "not
// set" so that files can be merged field by field.
type Config struct {
	ApplicationID         string   `json:"application_id,omitempty"`
	SessionSampleRate     *float64 `json:"session_sample_rate,omitempty"` // percent
	TrackBackgroundEvents *bool    `json:"track_background_events,omitempty"`
	SessionTimeout        Duration `json:"session_timeout,omitempty"`
	SessionMaxDuration    Duration `json:"session_max_duration,omitempty"`
	MaxViewsPerSession    int      `json:"max_views_per_session,omitempty"`
	TNSThreshold          Duration `json:"tns_threshold,omitempty"`
	INVMaxTimeToNextView  Duration `json:"inv_max_time_to_next_view,omitempty"`
	LaunchWindowThreshold Duration `json:"launch_window_threshold,omitempty"`

	DefaultFormat string `json:"default_format,omitempty"` // "markdown" | "json"
	OutputDir     string `json:"output_dir,omitempty"`
	LogLevel      string `json:"log_level,omitempty"`
	StatsdAddr    string `json:"statsd_addr,omitempty"` // empty disables telemetry
}

// Duration is a time.Duration written as a Go duration string ("15m").
type Duration time.Duration

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("duration must be a string like \"15m\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	rate := 100.0
	track := false
	return Config{
		ApplicationID:         "rumsession",
		SessionSampleRate:     &rate,
		TrackBackgroundEvents: &track,
		SessionTimeout:        Duration(rum.DefaultSessionTimeout),
		SessionMaxDuration:    Duration(rum.DefaultSessionMaxDuration),
		MaxViewsPerSession:    rum.DefaultMaxViewsPerSession,
		TNSThreshold:          Duration(rum.DefaultTNSThreshold),
		INVMaxTimeToNextView:  Duration(rum.DefaultINVMaxTimeToNextView),
		LaunchWindowThreshold: Duration(rum.DefaultLaunchWindowThreshold),
		DefaultFormat:         "markdown",
		OutputDir:             ".",
		LogLevel:              "info",
	}
}

// LoadGlobal reads ~/.config/rumsession/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	path := filepath.Join(home, ".config", "rumsession", "config.json")
	return loadFile(path, true)
}

// LoadProject reads .rumsessionconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".rumsessionconfig", false)
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	if global != nil {
		apply(&result, global)
	}
	if project != nil {
		apply(&result, project)
	}
	return result
}

// apply copies every field set in src over dst.
func apply(dst, src *Config) {
	if src.ApplicationID != "" {
		dst.ApplicationID = src.ApplicationID
	}
	if src.SessionSampleRate != nil {
		dst.SessionSampleRate = src.SessionSampleRate
	}
	if src.TrackBackgroundEvents != nil {
		dst.TrackBackgroundEvents = src.TrackBackgroundEvents
	}
	if src.SessionTimeout != 0 {
		dst.SessionTimeout = src.SessionTimeout
	}
	if src.SessionMaxDuration != 0 {
		dst.SessionMaxDuration = src.SessionMaxDuration
	}
	if src.MaxViewsPerSession != 0 {
		dst.MaxViewsPerSession = src.MaxViewsPerSession
	}
	if src.TNSThreshold != 0 {
		dst.TNSThreshold = src.TNSThreshold
	}
	if src.INVMaxTimeToNextView != 0 {
		dst.INVMaxTimeToNextView = src.INVMaxTimeToNextView
	}
	if src.LaunchWindowThreshold != 0 {
		dst.LaunchWindowThreshold = src.LaunchWindowThreshold
	}
	if src.DefaultFormat != "" {
		dst.DefaultFormat = src.DefaultFormat
	}
	if src.OutputDir != "" {
		dst.OutputDir = src.OutputDir
	}
	if src.LogLevel != "" {
		dst.LogLevel = src.LogLevel
	}
	if src.StatsdAddr != "" {
		dst.StatsdAddr = src.StatsdAddr
	}
}

// Validate reports every invalid setting of a merged config at once.
func (c Config) Validate() error {
	var err error
	if c.SessionSampleRate != nil && (*c.SessionSampleRate < 0 || *c.SessionSampleRate > 100) {
		err = multierr.Append(err, fmt.Errorf("session_sample_rate must be within [0, 100], got %v", *c.SessionSampleRate))
	}
	for _, f := range []struct {
		name string
		d    Duration
	}{
		{"session_timeout", c.SessionTimeout},
		{"session_max_duration", c.SessionMaxDuration},
		{"tns_threshold", c.TNSThreshold},
		{"inv_max_time_to_next_view", c.INVMaxTimeToNextView},
		{"launch_window_threshold", c.LaunchWindowThreshold},
	} {
		if f.d < 0 {
			err = multierr.Append(err, fmt.Errorf("%s must not be negative, got %s", f.name, time.Duration(f.d)))
		}
	}
	if c.MaxViewsPerSession < 0 {
		err = multierr.Append(err, fmt.Errorf("max_views_per_session must not be negative, got %d", c.MaxViewsPerSession))
	}
	switch c.DefaultFormat {
	case "", "markdown", "md", "json":
	default:
		err = multierr.Append(err, fmt.Errorf("default_format must be markdown or json, got %q", c.DefaultFormat))
	}
	switch c.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		err = multierr.Append(err, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", c.LogLevel))
	}
	return err
}

// RUM returns the state machine configuration. Unset values keep the RUM
// defaults.
func (c Config) RUM() rum.Config {
	out := rum.DefaultConfig()
	out.ApplicationID = c.ApplicationID
	if c.SessionSampleRate != nil {
		out.SessionSampleRate = *c.SessionSampleRate
	}
	if c.TrackBackgroundEvents != nil {
		out.TrackBackgroundEvents = *c.TrackBackgroundEvents
	}
	out.SessionTimeout = time.Duration(c.SessionTimeout)
	out.SessionMaxDuration = time.Duration(c.SessionMaxDuration)
	out.MaxViewsPerSession = c.MaxViewsPerSession
	out.LaunchWindowThreshold = time.Duration(c.LaunchWindowThreshold)
	if c.TNSThreshold > 0 {
		out.NetworkSettledPredicate = rum.TimeBasedTNSResourcePredicate{Threshold: time.Duration(c.TNSThreshold)}
	}
	if c.INVMaxTimeToNextView > 0 {
		out.NextViewActionPredicate = rum.TimeBasedINVActionPredicate{MaxTimeToNextView: time.Duration(c.INVMaxTimeToNextView)}
	}
	return out
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
