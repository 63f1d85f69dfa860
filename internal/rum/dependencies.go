package rum

import (
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fakeyudi/rumsession/internal/appstate"
	"github.com/fakeyudi/rumsession/internal/event"
)

// Context is the RUM context other features correlate their data with.
type Context struct {
	ApplicationID   string `json:"application_id"`
	SessionID       string `json:"session_id,omitempty"`
	IsSessionActive bool   `json:"is_session_active"`
	ViewID          string `json:"view_id,omitempty"`
	ViewName        string `json:"view_name,omitempty"`
	ViewPath        string `json:"view_path,omitempty"`
	UserActionID    string `json:"user_action_id,omitempty"`
}

// ContextObserver is told about the RUM context after every command.
type ContextObserver interface {
	OnContextChanged(ctx Context)
}

// ContextObserverFunc adapts a function to the ContextObserver interface.
type ContextObserverFunc func(ctx Context)

func (f ContextObserverFunc) OnContextChanged(ctx Context) { f(ctx) }

// SessionListener is called once for every new session.
type SessionListener func(sessionID string, isDiscarded bool)

// Telemetry receives the state machine's self-monitoring signals.
type Telemetry interface {
	SessionStarted(precondition string, sampled bool)
	EventWritten(t event.Type)
	EventDropped(t event.Type, reason string)
}

type noopTelemetry struct{}

func (noopTelemetry) SessionStarted(string, bool)     {}
func (noopTelemetry) EventWritten(event.Type)         {}
func (noopTelemetry) EventDropped(event.Type, string) {}

// dependencies is shared by every scope of one monitor.
type dependencies struct {
	config    Config
	writer    event.Writer
	logger    *zap.Logger
	clock     clock.Clock
	sampler   Sampler
	telemetry Telemetry
	launch    appstate.LaunchInfo
	history   *appstate.History
	user      *event.User
	listener  SessionListener
	newID     func() uuid.UUID
}

func newDependencies(cfg Config, o options) *dependencies {
	cfg = cfg.withDefaults()
	sampler := o.sampler
	if sampler == nil {
		sampler = NewRateSampler(cfg.SessionSampleRate)
	}
	launched := o.launch.ProcessLaunchDate
	if launched.IsZero() {
		launched = o.clock.Now()
	}
	return &dependencies{
		config:    cfg,
		writer:    o.writer,
		logger:    o.logger.Named("rum"),
		clock:     o.clock,
		sampler:   sampler,
		telemetry: o.telemetry,
		launch:    o.launch,
		history:   appstate.NewHistory(appstate.Snapshot{State: o.initialState, Date: launched}),
		user:      o.user,
		listener:  o.listener,
		newID:     o.newID,
	}
}

func (d *dependencies) isAppInForeground() bool {
	return d.history.Current().State.IsRunningInForeground()
}

// sessionWriter stamps the telemetry for every event a session writes and
// drops everything from sessions that were not sampled.
type sessionWriter struct {
	deps    *dependencies
	sampled bool
}

func (w sessionWriter) Write(e event.Event) {
	if !w.sampled {
		w.deps.telemetry.EventDropped(e.EventType(), "session_not_sampled")
		return
	}
	w.deps.writer.Write(e)
	w.deps.telemetry.EventWritten(e.EventType())
}
