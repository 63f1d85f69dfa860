package rum

import (
	"time"
)

const (
	// DefaultSessionTimeout ends a session after this long without commands.
	DefaultSessionTimeout = 15 * time.Minute
	// DefaultSessionMaxDuration is the hard ceiling on a session's duration.
	DefaultSessionMaxDuration = 4 * time.Hour
	// DefaultMaxViewsPerSession rotates a session once this many views were started.
	DefaultMaxViewsPerSession = 1000
	// DefaultLaunchWindowThreshold is how long after runtime load an
	// activation still counts as part of a user launch.
	DefaultLaunchWindowThreshold = 5 * time.Second

	discreteActionTimeout     = 100 * time.Millisecond
	continuousActionMaxLength = 10 * time.Second

	// CustomINVAttribute is the internal view attribute overriding the
	// computed Interaction-To-Next-View. Its value is in milliseconds, or a
	// time.Duration.
	CustomINVAttribute = "_dd.view.custom_inv_value"
)

// Config controls the session state machine.
type Config struct {
	ApplicationID string
	// SessionSampleRate is the percentage (0-100) of sessions kept.
	SessionSampleRate float64
	// TrackBackgroundEvents enables the "Background" view.
	TrackBackgroundEvents bool

	SessionTimeout        time.Duration
	SessionMaxDuration    time.Duration
	MaxViewsPerSession    int
	LaunchWindowThreshold time.Duration

	NetworkSettledPredicate TNSResourcePredicate
	NextViewActionPredicate NextViewActionPredicate
}

// DefaultConfig returns a configuration keeping every session, with
// background events off and the default thresholds.
func DefaultConfig() Config {
	return Config{
		SessionSampleRate:       100,
		SessionTimeout:          DefaultSessionTimeout,
		SessionMaxDuration:      DefaultSessionMaxDuration,
		MaxViewsPerSession:      DefaultMaxViewsPerSession,
		LaunchWindowThreshold:   DefaultLaunchWindowThreshold,
		NetworkSettledPredicate: TimeBasedTNSResourcePredicate{Threshold: DefaultTNSThreshold},
		NextViewActionPredicate: TimeBasedINVActionPredicate{MaxTimeToNextView: DefaultINVMaxTimeToNextView},
	}
}

// withDefaults fills zero values with their defaults.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.SessionTimeout <= 0 {
		c.SessionTimeout = d.SessionTimeout
	}
	if c.SessionMaxDuration <= 0 {
		c.SessionMaxDuration = d.SessionMaxDuration
	}
	if c.MaxViewsPerSession <= 0 {
		c.MaxViewsPerSession = d.MaxViewsPerSession
	}
	if c.LaunchWindowThreshold <= 0 {
		c.LaunchWindowThreshold = d.LaunchWindowThreshold
	}
	if c.NetworkSettledPredicate == nil {
		c.NetworkSettledPredicate = d.NetworkSettledPredicate
	}
	if c.NextViewActionPredicate == nil {
		c.NextViewActionPredicate = d.NextViewActionPredicate
	}
	return c
}
