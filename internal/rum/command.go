package rum

import (
	"time"

	"github.com/fakeyudi/rumsession/internal/appstate"
)

// ViewIdentity is an opaque, comparable handle for a logical screen. Two
// start/stop commands refer to the same view when their identities are equal.
type ViewIdentity string

// Attributes are free-form key/value pairs attached to commands and events.
type Attributes map[string]any

// mergeAttributes returns a new map holding base overridden by override.
func mergeAttributes(base, override Attributes) Attributes {
	out := make(Attributes, len(base)+len(override))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// ActionType classifies user actions.
type ActionType string

const (
	ActionTap              ActionType = "tap"
	ActionClick            ActionType = "click"
	ActionScroll           ActionType = "scroll"
	ActionSwipe            ActionType = "swipe"
	ActionCustom           ActionType = "custom"
	ActionApplicationStart ActionType = "application_start"
)

// ResourceKind classifies network resources.
type ResourceKind string

const (
	ResourceXHR    ResourceKind = "xhr"
	ResourceFetch  ResourceKind = "fetch"
	ResourceImage  ResourceKind = "image"
	ResourceNative ResourceKind = "native"
	ResourceOther  ResourceKind = "other"
)

// ErrorSource tells where an error originated.
type ErrorSource string

const (
	SourceSource  ErrorSource = "source"
	SourceNetwork ErrorSource = "network"
	SourceCustom  ErrorSource = "custom"
	SourceConsole ErrorSource = "console"
)

// Command is a single instrumentation event travelling down the scope tree.
// Scopes only understand the command types declared in this file.
type Command interface {
	CommandTime() time.Time
	CommandAttributes() Attributes

	// canStartBackgroundView reports whether the command may synthesize the
	// "Background" view when no view is active.
	canStartBackgroundView() bool
	// canStartApplicationLaunchView reports whether the command may
	// synthesize the "ApplicationLaunch" view when no view is active.
	canStartApplicationLaunchView() bool
	// isUserInteraction reports whether the command starts a new session
	// after the previous one was stopped explicitly.
	isUserInteraction() bool
}

// Base holds the fields every command carries.
type Base struct {
	Time       time.Time
	Attributes Attributes
}

func (b Base) CommandTime() time.Time        { return b.Time }
func (b Base) CommandAttributes() Attributes { return b.Attributes }

func (Base) canStartBackgroundView() bool        { return false }
func (Base) canStartApplicationLaunchView() bool { return false }
func (Base) isUserInteraction() bool             { return false }

// SDKInit is processed once, when the monitor starts.
type SDKInit struct {
	Base
}

// ApplicationStateChange reports an app lifecycle transition.
type ApplicationStateChange struct {
	Base
	State appstate.State
}

type StartView struct {
	Base
	Identity ViewIdentity
	Name     string
	Path     string
}

func (StartView) isUserInteraction() bool { return true }

type StopView struct {
	Base
	Identity ViewIdentity
}

// AddViewTiming records a custom timing relative to the active view's start.
type AddViewTiming struct {
	Base
	Name string
}

// AddViewLoadingTime marks the active view as loaded. A second call is only
// honoured when Overwrite is set.
type AddViewLoadingTime struct {
	Base
	Overwrite bool
}

// SetInternalViewAttribute sets an SDK-internal attribute on the active view.
type SetInternalViewAttribute struct {
	Base
	Key   string
	Value any
}

// UpdatePerformanceMetric feeds one sample of a performance metric (cpu,
// memory, refresh rate...) into the active view's aggregates.
type UpdatePerformanceMetric struct {
	Base
	Metric string
	Value  float64
}

type StartResource struct {
	Base
	Key    string
	URL    string
	Method string
	Kind   ResourceKind
}

func (StartResource) canStartBackgroundView() bool        { return true }
func (StartResource) canStartApplicationLaunchView() bool { return true }

// ResourceMetrics are the transport timings of a resource, when available.
type ResourceMetrics struct {
	FetchStart time.Time
	FetchEnd   time.Time
	Size       *int64
}

type AddResourceMetrics struct {
	Base
	Key     string
	Metrics ResourceMetrics
}

type StopResource struct {
	Base
	Key        string
	Kind       ResourceKind
	StatusCode *int
	Size       *int64
}

type StopResourceWithError struct {
	Base
	Key        string
	Message    string
	Type       string
	Source     ErrorSource
	StatusCode *int
}

type StartUserAction struct {
	Base
	Type ActionType
	Name string
}

func (StartUserAction) canStartBackgroundView() bool        { return true }
func (StartUserAction) canStartApplicationLaunchView() bool { return true }
func (StartUserAction) isUserInteraction() bool             { return true }

type StopUserAction struct {
	Base
	Type ActionType
	// Name, when set, replaces the name given at start.
	Name string
}

type AddUserAction struct {
	Base
	Type ActionType
	Name string
}

func (AddUserAction) canStartBackgroundView() bool        { return true }
func (AddUserAction) canStartApplicationLaunchView() bool { return true }
func (AddUserAction) isUserInteraction() bool             { return true }

type AddCurrentViewError struct {
	Base
	Message string
	Type    string
	Source  ErrorSource
	Stack   string
	IsCrash bool
}

func (AddCurrentViewError) canStartBackgroundView() bool        { return true }
func (AddCurrentViewError) canStartApplicationLaunchView() bool { return true }

// AddLongTask reports a main-thread stall. Time is the end of the stall.
type AddLongTask struct {
	Base
	Duration      time.Duration
	IsFrozenFrame bool
}

func (AddLongTask) canStartApplicationLaunchView() bool { return true }

// StopSession ends the current session immediately.
type StopSession struct {
	Base
}

// KeepSessionAlive extends the session without touching any view.
type KeepSessionAlive struct {
	Base
}
