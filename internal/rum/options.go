package rum

import (
	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fakeyudi/rumsession/internal/appstate"
	"github.com/fakeyudi/rumsession/internal/event"
)

// Option configures a Monitor.
type Option func(*options)

type options struct {
	writer       event.Writer
	clock        clock.Clock
	logger       *zap.Logger
	sampler      Sampler
	telemetry    Telemetry
	listener     SessionListener
	observer     ContextObserver
	launch       appstate.LaunchInfo
	initialState appstate.State
	user         *event.User
	newID        func() uuid.UUID
}

func defaultOptions() options {
	return options{
		writer:       event.Discard,
		clock:        clock.New(),
		logger:       zap.NewNop(),
		telemetry:    noopTelemetry{},
		initialState: appstate.Active,
		newID:        uuid.New,
	}
}

// WithWriter sets the sink events are written to.
func WithWriter(w event.Writer) Option {
	return func(o *options) { o.writer = w }
}

// WithClock sets the time source stamping commands.
func WithClock(c clock.Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSampler overrides the rate sampler built from Config.SessionSampleRate.
func WithSampler(s Sampler) Option {
	return func(o *options) { o.sampler = s }
}

func WithTelemetry(t Telemetry) Option {
	return func(o *options) { o.telemetry = t }
}

func WithSessionListener(l SessionListener) Option {
	return func(o *options) { o.listener = l }
}

func WithContextObserver(obs ContextObserver) Option {
	return func(o *options) { o.observer = obs }
}

// WithLaunchInfo sets the process launch signals.
func WithLaunchInfo(info appstate.LaunchInfo) Option {
	return func(o *options) { o.launch = info }
}

// WithInitialAppState sets the app state observed at launch. It defaults
// to Active.
func WithInitialAppState(s appstate.State) Option {
	return func(o *options) { o.initialState = s }
}

// WithUser sets the "usr" block stamped onto every event.
func WithUser(u *event.User) Option {
	return func(o *options) { o.user = u }
}

// WithIDGenerator replaces the random UUID source.
func WithIDGenerator(gen func() uuid.UUID) Option {
	return func(o *options) { o.newID = gen }
}
