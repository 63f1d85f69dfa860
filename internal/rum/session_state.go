package rum

import "fmt"

// SessionPrecondition records why a session was started. It is set once, at
// session creation.
type SessionPrecondition string

const (
	PreconditionUserAppLaunch     SessionPrecondition = "user_app_launch"
	PreconditionBackgroundLaunch  SessionPrecondition = "background_launch"
	PreconditionPrewarm           SessionPrecondition = "prewarm"
	PreconditionInactivityTimeout SessionPrecondition = "inactivity_timeout"
	PreconditionMaxDuration       SessionPrecondition = "max_duration"
	PreconditionExplicitStop      SessionPrecondition = "explicit_stop"
)

// EndReason records why a session stopped accepting commands.
type EndReason int

const (
	EndReasonNone EndReason = iota
	EndReasonTimeout
	EndReasonMaxDuration
	EndReasonMaxViews
	EndReasonStopAPI
)

func (r EndReason) String() string {
	switch r {
	case EndReasonNone:
		return "none"
	case EndReasonTimeout:
		return "timeout"
	case EndReasonMaxDuration:
		return "max_duration"
	case EndReasonMaxViews:
		return "max_views"
	case EndReasonStopAPI:
		return "stop_api"
	}
	return fmt.Sprintf("EndReason(%d)", int(r))
}

// successorPrecondition is the precondition of the session that replaces one
// ended for reason r.
func (r EndReason) successorPrecondition() SessionPrecondition {
	switch r {
	case EndReasonTimeout:
		return PreconditionInactivityTimeout
	case EndReasonMaxDuration, EndReasonMaxViews:
		return PreconditionMaxDuration
	}
	return PreconditionExplicitStop
}

// SessionState is the part of a session the Off-View Events Handling Rule
// looks at.
type SessionState struct {
	ID                 string
	IsInitialSession   bool
	HasTrackedAnyView  bool
	DidStartWithReplay bool
}

// viewKind tells explicit views apart from the two synthesized ones.
type viewKind int

const (
	viewKindRegular viewKind = iota
	viewKindApplicationLaunch
	viewKindBackground
)

const (
	ApplicationLaunchViewName = "ApplicationLaunch"
	ApplicationLaunchViewURL  = "com/datadog/application-launch/view"
	BackgroundViewName        = "Background"
	BackgroundViewURL         = "com/datadog/background/view"
)

// RestartHint describes the view that was active when a session ended, so
// its successor can reopen it.
type RestartHint struct {
	Identity   ViewIdentity
	Name       string
	Path       string
	Attributes Attributes
	kind       viewKind
}
