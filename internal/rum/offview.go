package rum

// offViewDecision is the fate of a command that arrives while the session
// has no active view.
type offViewDecision int

const (
	offViewDrop offViewDecision = iota
	offViewHandleInApplicationLaunchView
	offViewHandleInBackgroundView
)

func (d offViewDecision) String() string {
	switch d {
	case offViewHandleInApplicationLaunchView:
		return "application_launch_view"
	case offViewHandleInBackgroundView:
		return "background_view"
	}
	return "drop"
}

// offViewRule is the Off-View Events Handling Rule. The ApplicationLaunch view
// is only offered before the initial session tracked any view; afterwards the
// only fallback is the Background view, and only when background events are
// tracked.
func offViewRule(state SessionState, isAppInForeground, trackBackgroundEvents bool) offViewDecision {
	if state.IsInitialSession && !state.HasTrackedAnyView {
		switch {
		case isAppInForeground:
			return offViewHandleInApplicationLaunchView
		case trackBackgroundEvents:
			return offViewHandleInBackgroundView
		}
		return offViewDrop
	}
	if !isAppInForeground && trackBackgroundEvents {
		return offViewHandleInBackgroundView
	}
	return offViewDrop
}

// canHandle narrows the decision down to what the command itself allows.
func (d offViewDecision) canHandle(cmd Command) bool {
	switch d {
	case offViewHandleInApplicationLaunchView:
		return cmd.canStartApplicationLaunchView()
	case offViewHandleInBackgroundView:
		return cmd.canStartBackgroundView()
	}
	return false
}
