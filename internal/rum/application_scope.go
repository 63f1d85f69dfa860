package rum

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/fakeyudi/rumsession/internal/appstate"
)

// applicationScope is the root of the scope tree. It owns the current
// session and replaces it when it ends.
type applicationScope struct {
	deps     *dependencies
	resolver *launchResolver

	sessions                []*sessionScope
	didCreateInitialSession bool
	didReportAppStart       bool

	// lastEndReason and pendingRestart describe the previous session while no
	// session is running.
	lastEndReason  EndReason
	pendingRestart *RestartHint
}

func newApplicationScope(deps *dependencies) *applicationScope {
	return &applicationScope{
		deps:     deps,
		resolver: newLaunchResolver(deps.launch, deps.history.Initial().State, deps.config.LaunchWindowThreshold),
	}
}

// process accepts the next command. It may be held back until the launch
// reason is known.
func (a *applicationScope) process(cmd Command) {
	for _, c := range a.resolver.feed(cmd) {
		a.handle(c)
	}
}

// flush processes everything held back by the launch resolver.
func (a *applicationScope) flush() {
	for _, c := range a.resolver.flush() {
		a.handle(c)
	}
}

func (a *applicationScope) current() *sessionScope {
	if len(a.sessions) == 0 {
		return nil
	}
	return a.sessions[len(a.sessions)-1]
}

func (a *applicationScope) handle(cmd Command) {
	if c, ok := cmd.(ApplicationStateChange); ok {
		a.deps.history.Append(appstate.Snapshot{State: c.State, Date: c.Time})
	}

	if _, ok := cmd.(SDKInit); ok {
		a.createInitialSession(cmd)
		a.current().process(cmd)
		a.reportApplicationStart(cmd)
		return
	}
	if !a.didCreateInitialSession {
		a.deps.logger.Debug("starting initial session lazily", zap.String("command", fmt.Sprintf("%T", cmd)))
		a.createInitialSession(cmd)
	}

	if a.current() == nil && !a.startNextSession(cmd) {
		return
	}

	s := a.current()
	if !s.process(cmd) {
		a.sessions = a.sessions[:len(a.sessions)-1]
		a.sessionEnded(s, cmd)
	}

	a.reportApplicationStart(cmd)

	if n := a.activeSessions(); n > 1 {
		a.deps.logger.Error("application has more than one active session", zap.Int("count", n))
	}
}

func (a *applicationScope) activeSessions() int {
	n := 0
	for _, s := range a.sessions {
		if s.active {
			n++
		}
	}
	return n
}

func (a *applicationScope) sessionEnded(s *sessionScope, cmd Command) {
	a.deps.logger.Debug("session ended",
		zap.String("session_id", s.state.ID),
		zap.Stringer("reason", s.endReason),
		zap.Duration("duration", s.duration()))

	a.lastEndReason = s.endReason
	a.pendingRestart = s.endHint

	if s.endReason == EndReasonStopAPI {
		return
	}
	switch cmd.(type) {
	case StopSession:
		// The session expired before it could be stopped; the next one is
		// still an explicit restart.
		a.lastEndReason = EndReasonStopAPI
	case ApplicationStateChange:
		// The next session starts lazily with the next event.
	default:
		a.startSession(cmd, s.endReason.successorPrecondition())
		a.current().process(cmd)
	}
}

// startNextSession starts a session for cmd when none is running. It
// reports false when cmd cannot start one and must be dropped.
func (a *applicationScope) startNextSession(cmd Command) bool {
	switch cmd.(type) {
	case StopSession, ApplicationStateChange:
		return false
	}
	if a.lastEndReason == EndReasonStopAPI && !cmd.isUserInteraction() {
		a.deps.logger.Debug("dropping command, session was stopped", zap.String("command", fmt.Sprintf("%T", cmd)))
		if t, ok := droppedEventType(cmd); ok {
			a.deps.telemetry.EventDropped(t, "session_stopped")
		}
		return false
	}
	a.startSession(cmd, a.lastEndReason.successorPrecondition())
	return true
}

func (a *applicationScope) startSession(cmd Command, precondition SessionPrecondition) {
	s := newSessionScope(a.deps, precondition, false, cmd.CommandTime())
	if hint := a.pendingRestart; hint != nil && a.canRestart(*hint, cmd) {
		s.restartView(*hint, cmd.CommandTime())
	}
	a.pendingRestart = nil
	a.lastEndReason = EndReasonNone
	a.addSession(s)
}

// canRestart reports whether the view described by hint is reopened in the
// session started by cmd.
func (a *applicationScope) canRestart(hint RestartHint, cmd Command) bool {
	if _, ok := cmd.(StartView); ok {
		return false
	}
	inForeground := a.deps.isAppInForeground()
	if hint.kind == viewKindBackground {
		return !inForeground && a.deps.config.TrackBackgroundEvents
	}
	return inForeground
}

func (a *applicationScope) createInitialSession(cmd Command) {
	if a.didCreateInitialSession {
		a.deps.logger.Error("initial session created more than once", zap.String("command", fmt.Sprintf("%T", cmd)))
	}
	a.didCreateInitialSession = true

	precondition := PreconditionUserAppLaunch
	start := cmd.CommandTime()
	switch a.resolver.reason {
	case appstate.LaunchUser:
		if launch := a.deps.launch.ProcessLaunchDate; !launch.IsZero() && launch.Before(start) {
			start = launch
		}
	case appstate.LaunchBackground:
		precondition = PreconditionBackgroundLaunch
	case appstate.LaunchPrewarm:
		precondition = PreconditionPrewarm
	}

	s := newSessionScope(a.deps, precondition, true, start)
	a.addSession(s)

	_, isInit := cmd.(SDKInit)
	if a.resolver.reason == appstate.LaunchUser || (isInit && a.deps.isAppInForeground()) {
		s.startApplicationLaunchView(cmd.CommandAttributes())
	}
}

func (a *applicationScope) addSession(s *sessionScope) {
	a.sessions = append(a.sessions, s)
	a.deps.logger.Debug("session started",
		zap.String("session_id", s.state.ID),
		zap.String("precondition", string(s.precondition)),
		zap.Bool("sampled", s.sampled))
	a.deps.telemetry.SessionStarted(string(s.precondition), s.sampled)
	if a.deps.listener != nil {
		a.deps.listener(s.state.ID, !s.sampled)
	}
}

// reportApplicationStart sends the app start action once per user launch:
// at SDK init when the app is already active, otherwise on its first
// activation. Its loading time is measured from the process launch.
func (a *applicationScope) reportApplicationStart(cmd Command) {
	if a.didReportAppStart {
		return
	}
	switch c := cmd.(type) {
	case SDKInit:
		if a.deps.history.Current().State != appstate.Active {
			return
		}
	case ApplicationStateChange:
		if c.State != appstate.Active {
			return
		}
	default:
		return
	}
	a.didReportAppStart = true

	launch := a.deps.launch.ProcessLaunchDate
	if a.resolver.reason != appstate.LaunchUser || launch.IsZero() {
		return
	}
	s := a.current()
	if s == nil || !s.isInitial || !s.active {
		return
	}
	if v := s.activeView(); v != nil && v.kind == viewKindApplicationLaunch {
		at := cmd.CommandTime()
		v.sendApplicationStart(at, at.Sub(launch))
	}
}

func (a *applicationScope) context() Context {
	ctx := Context{ApplicationID: a.deps.config.ApplicationID}
	if s := a.current(); s != nil {
		ctx = s.context(ctx)
	}
	return ctx
}
