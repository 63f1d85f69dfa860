package rum

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fakeyudi/rumsession/internal/event"
)

// sessionScope enforces the session lifetime and routes commands to its
// views. Expiry is evaluated lazily, against the time of the next command.
type sessionScope struct {
	deps         *dependencies
	id           uuid.UUID
	sampled      bool
	writer       event.Writer
	precondition SessionPrecondition
	isInitial    bool
	start        time.Time
	lastCommand  time.Time

	state        SessionState
	views        []*viewScope
	startedViews int
	inv          *invMetric

	active    bool
	endReason EndReason
	// endHint is the view active when the session ended, if any.
	endHint *RestartHint
}

func newSessionScope(deps *dependencies, precondition SessionPrecondition, isInitial bool, start time.Time) *sessionScope {
	id := deps.newID()
	sampled := deps.sampler.Sample(id)
	return &sessionScope{
		deps:         deps,
		id:           id,
		sampled:      sampled,
		writer:       sessionWriter{deps: deps, sampled: sampled},
		precondition: precondition,
		isInitial:    isInitial,
		start:        start,
		lastCommand:  start,
		state: SessionState{
			ID:               id.String(),
			IsInitialSession: isInitial,
		},
		inv:    newINVMetric(deps.config.NextViewActionPredicate),
		active: true,
	}
}

func (s *sessionScope) logger() *zap.Logger {
	return s.deps.logger.With(zap.String("session_id", s.state.ID))
}

// duration is the time between the session start and its last command.
func (s *sessionScope) duration() time.Duration {
	return s.lastCommand.Sub(s.start)
}

// process returns false once the session no longer accepts commands.
func (s *sessionScope) process(cmd Command) bool {
	now := cmd.CommandTime()
	if reason, ok := s.expired(now); ok {
		s.end(reason, s.activeViewHint())
		s.logger().Debug("session expired", zap.Stringer("reason", reason), zap.Duration("duration", s.duration()))
		s.views = nil
		return false
	}
	if !s.active {
		return false
	}
	if now.After(s.lastCommand) {
		s.lastCommand = now
	}

	switch c := cmd.(type) {
	case StopSession:
		s.end(EndReasonStopAPI, s.activeViewHint())
	case StartView:
		if s.startedViews >= s.deps.config.MaxViewsPerSession {
			s.logger().Debug("rotating session, view limit reached", zap.Int("views", s.startedViews))
			s.end(EndReasonMaxViews, nil)
			s.propagate(StopSession{Base: Base{Time: now}})
			return false
		}
		s.addView(newViewScope(s, c.Identity, c.Name, c.Path, viewKindRegular, c.Attributes, now))
	default:
		if !s.hasActiveView() {
			s.handleOffViewCommand(cmd)
		}
	}

	s.propagate(cmd)
	return s.active
}

func (s *sessionScope) expired(now time.Time) (EndReason, bool) {
	if now.Sub(s.lastCommand) >= s.deps.config.SessionTimeout {
		return EndReasonTimeout, true
	}
	if now.Sub(s.start) >= s.deps.config.SessionMaxDuration {
		return EndReasonMaxDuration, true
	}
	return EndReasonNone, false
}

func (s *sessionScope) end(reason EndReason, hint *RestartHint) {
	s.active = false
	s.endReason = reason
	s.endHint = hint
}

func (s *sessionScope) propagate(cmd Command) {
	kept := s.views[:0]
	for _, v := range s.views {
		if v.process(cmd) {
			kept = append(kept, v)
		} else {
			s.inv.trackViewComplete()
		}
	}
	for i := len(kept); i < len(s.views); i++ {
		s.views[i] = nil
	}
	s.views = kept
}

func (s *sessionScope) addView(v *viewScope) {
	s.views = append(s.views, v)
	s.startedViews++
	s.state.HasTrackedAnyView = true
}

func (s *sessionScope) hasActiveView() bool {
	return s.activeView() != nil
}

// activeView returns the most recently started view that is still active.
func (s *sessionScope) activeView() *viewScope {
	for i := len(s.views) - 1; i >= 0; i-- {
		if s.views[i].active {
			return s.views[i]
		}
	}
	return nil
}

func (s *sessionScope) activeViewHint() *RestartHint {
	v := s.activeView()
	if v == nil {
		return nil
	}
	hint := v.restartHint()
	return &hint
}

func (s *sessionScope) startApplicationLaunchView(attrs Attributes) {
	s.addView(newViewScope(s, ApplicationLaunchViewURL, ApplicationLaunchViewName, ApplicationLaunchViewURL, viewKindApplicationLaunch, attrs, s.start))
}

func (s *sessionScope) startBackgroundView(attrs Attributes, at time.Time) {
	s.addView(newViewScope(s, BackgroundViewURL, BackgroundViewName, BackgroundViewURL, viewKindBackground, attrs, at))
}

// restartView reopens the view described by hint, starting at at.
func (s *sessionScope) restartView(hint RestartHint, at time.Time) {
	v := newViewScope(s, hint.Identity, hint.Name, hint.Path, hint.kind, hint.Attributes, at)
	v.didReceiveStart = true
	s.addView(v)
}

func (s *sessionScope) handleOffViewCommand(cmd Command) {
	decision := offViewRule(s.state, s.deps.isAppInForeground(), s.deps.config.TrackBackgroundEvents)
	if decision.canHandle(cmd) {
		switch decision {
		case offViewHandleInApplicationLaunchView:
			s.startApplicationLaunchView(cmd.CommandAttributes())
		case offViewHandleInBackgroundView:
			s.startBackgroundView(cmd.CommandAttributes(), cmd.CommandTime())
		}
		return
	}

	t, ok := droppedEventType(cmd)
	if !ok {
		return
	}
	s.logger().Debug("dropping command, no view is active",
		zap.String("command", fmt.Sprintf("%T", cmd)),
		zap.Stringer("rule", decision))
	s.deps.telemetry.EventDropped(t, "no_active_view")
}

// droppedEventType is the kind of event lost when cmd finds no view. Commands
// that never produce events report false.
func droppedEventType(cmd Command) (event.Type, bool) {
	switch cmd.(type) {
	case StartResource:
		return event.TypeResource, true
	case StartUserAction, AddUserAction:
		return event.TypeAction, true
	case AddCurrentViewError:
		return event.TypeError, true
	case AddLongTask:
		return event.TypeLongTask, true
	case AddViewTiming, AddViewLoadingTime, SetInternalViewAttribute:
		return event.TypeView, true
	}
	return "", false
}

func (s *sessionScope) write(e event.Event) {
	s.writer.Write(e)
}

func (s *sessionScope) common(t event.Type, date time.Time, attrs Attributes) event.Common {
	c := event.Common{
		Date:        event.Millis(date),
		Type:        t,
		Application: event.Application{ID: s.deps.config.ApplicationID},
		Session: event.Session{
			ID:        s.state.ID,
			Type:      "user",
			HasReplay: s.state.DidStartWithReplay,
			IsActive:  s.active,
		},
		Usr: s.deps.user,
		DD: event.DD{
			Session: &event.DDSession{
				SessionPrecondition: string(s.precondition),
				StartDate:           event.Millis(s.start),
				Duration:            event.Nanos(s.duration()),
			},
		},
	}
	if len(attrs) > 0 {
		c.Context = mergeAttributes(nil, attrs)
	}
	return c
}

func (s *sessionScope) context(base Context) Context {
	base.SessionID = s.state.ID
	base.IsSessionActive = s.active
	if v := s.activeView(); v != nil {
		base.ViewID = v.id
		base.ViewName = v.name
		base.ViewPath = v.path
		if v.action != nil {
			base.UserActionID = v.action.id
		}
	}
	return base
}
