package rum

import (
	"time"

	"go.uber.org/zap"

	"github.com/fakeyudi/rumsession/internal/appstate"
	"github.com/fakeyudi/rumsession/internal/event"
)

// viewScope accumulates the metrics of one view and owns its pending action
// and resources. Every mutation sends a new version of the view event.
type viewScope struct {
	session  *sessionScope
	id       string
	identity ViewIdentity
	name     string
	path     string
	kind     viewKind
	start    time.Time

	attributes Attributes
	internal   map[string]any

	didReceiveStart bool
	active          bool
	version         int64
	needsUpdate     bool
	// updateAt is the time the next view update is stamped with.
	updateAt   time.Time
	lastUpdate time.Time

	actions      int64
	resources    int64
	errors       int64
	longTasks    int64
	crashes      int64
	frozenFrames int64

	loadingTime   *time.Duration
	customTimings map[string]time.Duration
	performance   map[string]*perfAggregate

	action         *actionScope
	resourceScopes map[string]*resourceScope
	tns            *tnsMetric
}

type perfAggregate struct {
	min, max, sum float64
	n             int
}

func (p *perfAggregate) add(v float64) {
	if p.n == 0 || v < p.min {
		p.min = v
	}
	if p.n == 0 || v > p.max {
		p.max = v
	}
	p.sum += v
	p.n++
}

func newViewScope(s *sessionScope, identity ViewIdentity, name, path string, kind viewKind, attrs Attributes, start time.Time) *viewScope {
	v := &viewScope{
		session:        s,
		id:             s.deps.newID().String(),
		identity:       identity,
		name:           name,
		path:           path,
		kind:           kind,
		start:          start,
		attributes:     mergeAttributes(nil, attrs),
		internal:       make(map[string]any),
		active:         true,
		lastUpdate:     start,
		customTimings:  make(map[string]time.Duration),
		performance:    make(map[string]*perfAggregate),
		resourceScopes: make(map[string]*resourceScope),
		tns:            newTNSMetric(s.deps.config.NetworkSettledPredicate, start, name),
	}
	// Synthesized views have no explicit start command to wait for.
	v.didReceiveStart = kind != viewKindRegular
	s.inv.trackViewStart(start, name, v.id)
	return v
}

func (v *viewScope) deps() *dependencies { return v.session.deps }

func (v *viewScope) logger() *zap.Logger {
	return v.session.deps.logger.With(zap.String("view", v.name), zap.String("view_id", v.id))
}

func (v *viewScope) ref() event.ViewRef {
	return event.ViewRef{ID: v.id, Name: v.name, URL: v.path}
}

func (v *viewScope) common(t event.Type, date time.Time, attrs Attributes) event.Common {
	return v.session.common(t, date, attrs)
}

func (v *viewScope) restartHint() RestartHint {
	return RestartHint{
		Identity:   v.identity,
		Name:       v.name,
		Path:       v.path,
		Attributes: mergeAttributes(nil, v.attributes),
		kind:       v.kind,
	}
}

// process applies cmd and returns false once the view is complete.
func (v *viewScope) process(cmd Command) bool {
	now := cmd.CommandTime()
	v.needsUpdate = v.version == 0
	v.updateAt = now

	if v.action != nil && !v.action.process(cmd) {
		v.action = nil
	}

	switch c := cmd.(type) {
	case ApplicationStateChange:
		switch {
		case v.kind == viewKindApplicationLaunch && c.State == appstate.Background && v.active:
			v.stop(now)
		case v.kind == viewKindBackground && c.State.IsRunningInForeground() && v.active:
			// Time spent in background ends with the last tracked event.
			v.stop(now)
			v.updateAt = v.lastUpdate
		}

	case StopSession:
		if v.active {
			v.stop(now)
		}

	case StartView:
		if c.Identity == v.identity && !v.didReceiveStart {
			v.didReceiveStart = true
			v.needsUpdate = true
		} else if v.active {
			v.stop(now)
		}

	case StopView:
		if c.Identity == v.identity && v.active {
			v.attributes = mergeAttributes(v.attributes, c.Attributes)
			v.stop(now)
		}

	case AddViewTiming:
		if v.active {
			v.customTimings[c.Name] = now.Sub(v.start)
			v.needsUpdate = true
		}

	case AddViewLoadingTime:
		if v.active {
			v.addLoadingTime(c)
		}

	case SetInternalViewAttribute:
		if v.active {
			v.internal[c.Key] = c.Value
			v.needsUpdate = true
		}

	case UpdatePerformanceMetric:
		if v.active {
			agg, ok := v.performance[c.Metric]
			if !ok {
				agg = &perfAggregate{}
				v.performance[c.Metric] = agg
			}
			agg.add(c.Value)
		}

	case StartResource:
		if v.active {
			v.startResource(c)
		}

	case StartUserAction:
		if v.active {
			if v.action == nil {
				v.action = newActionScope(v, c.Type, c.Name, c.Attributes, now, true)
			} else {
				v.actionDropped(c.Type, c.Name)
			}
		}

	case AddUserAction:
		if v.active {
			switch {
			case c.Type == ActionCustom:
				newActionScope(v, c.Type, c.Name, c.Attributes, now, false).send(now, nil)
			case v.action == nil:
				v.action = newActionScope(v, c.Type, c.Name, c.Attributes, now, false)
			default:
				v.actionDropped(c.Type, c.Name)
			}
		}

	case AddCurrentViewError:
		if v.active {
			v.addError(c)
		}

	case AddLongTask:
		if v.active && v.kind != viewKindBackground {
			v.addLongTask(c)
		}
	}

	if key, ok := resourceKey(cmd); ok {
		if r, found := v.resourceScopes[key]; found {
			if !r.process(cmd) {
				delete(v.resourceScopes, key)
			}
		} else if v.active {
			v.logger().Debug("ignoring command for unknown resource", zap.String("key", key))
		}
	}

	if v.needsUpdate {
		v.sendUpdate(v.updateAt)
	}
	return v.active
}

// resourceKey returns the key of commands completing or amending a resource.
func resourceKey(cmd Command) (string, bool) {
	switch c := cmd.(type) {
	case AddResourceMetrics:
		return c.Key, true
	case StopResource:
		return c.Key, true
	case StopResourceWithError:
		return c.Key, true
	}
	return "", false
}

// stop deactivates the view. The pending action is sent; resources still
// loading are dropped together with their late completions.
func (v *viewScope) stop(at time.Time) {
	v.active = false
	v.needsUpdate = true
	if v.action != nil {
		v.action.send(at, nil)
		v.action = nil
	}
	v.tns.trackViewStop()
	if n := len(v.resourceScopes); n > 0 {
		v.logger().Debug("dropping resources still loading at view stop", zap.Int("count", n))
		for range v.resourceScopes {
			v.deps().telemetry.EventDropped(event.TypeResource, "view_stopped")
		}
		v.resourceScopes = make(map[string]*resourceScope)
	}
}

func (v *viewScope) addLoadingTime(c AddViewLoadingTime) {
	d := c.Time.Sub(v.start)
	switch {
	case v.loadingTime == nil:
	case c.Overwrite:
		v.logger().Debug("overwriting view loading time", zap.Duration("previous", *v.loadingTime), zap.Duration("loading_time", d))
	default:
		return
	}
	v.loadingTime = &d
	v.needsUpdate = true
}

func (v *viewScope) startResource(c StartResource) {
	if _, exists := v.resourceScopes[c.Key]; exists {
		v.logger().Debug("resource key reused before completion", zap.String("key", c.Key))
	}
	v.resourceScopes[c.Key] = newResourceScope(v, c)
	v.tns.trackResourceStart(c.Time, c.Key, c.URL)
	if v.action != nil {
		v.action.resourceStarted()
	}
}

func (v *viewScope) resourceCompleted(r *resourceScope, at time.Time, e event.Event, failed bool) {
	v.session.write(e)
	if failed {
		v.errors++
	} else {
		v.resources++
	}
	v.tns.trackResourceEnd(r.key, r.duration(at))
	if r.action != nil && r.action == v.action {
		v.action.resourceStopped(failed)
	}
	v.needsUpdate = true
}

func (v *viewScope) actionSent(a *actionScope, e *event.ActionEvent, completedAt time.Time) {
	v.session.write(e)
	v.actions++
	v.session.inv.trackAction(a.start, completedAt, v.id, a.actionType, a.name)
	v.needsUpdate = true
}

func (v *viewScope) actionDropped(t ActionType, name string) {
	v.logger().Debug("dropping action, another one is still pending",
		zap.String("type", string(t)), zap.String("name", name))
	v.deps().telemetry.EventDropped(event.TypeAction, "action_pending")
}

func (v *viewScope) actionRef() *event.ActionRef {
	if v.action == nil {
		return nil
	}
	return v.action.ref()
}

func (v *viewScope) addError(c AddCurrentViewError) {
	source := c.Source
	if source == "" {
		source = SourceCustom
	}
	e := &event.ErrorEvent{
		Common: v.common(event.TypeError, c.Time, mergeAttributes(v.attributes, c.Attributes)),
		View:   v.ref(),
		Action: v.actionRef(),
		Error: event.ErrorDetails{
			ID:      v.deps().newID().String(),
			Message: c.Message,
			Type:    c.Type,
			Source:  string(source),
			Stack:   c.Stack,
			IsCrash: c.IsCrash,
		},
	}
	v.session.write(e)
	v.errors++
	if c.IsCrash {
		v.crashes++
	}
	if v.action != nil {
		v.action.errorAdded()
	}
	v.needsUpdate = true
}

func (v *viewScope) addLongTask(c AddLongTask) {
	e := &event.LongTaskEvent{
		Common: v.common(event.TypeLongTask, c.Time.Add(-c.Duration), mergeAttributes(v.attributes, c.Attributes)),
		View:   v.ref(),
		Action: v.actionRef(),
		LongTask: event.LongTaskDetails{
			ID:            v.deps().newID().String(),
			Duration:      event.Nanos(c.Duration),
			IsFrozenFrame: c.IsFrozenFrame,
		},
	}
	v.session.write(e)
	v.longTasks++
	if c.IsFrozenFrame {
		v.frozenFrames++
	}
	if v.action != nil {
		v.action.longTaskAdded()
	}
	v.needsUpdate = true
}

// sendApplicationStart reports the app start action. ttid is the time from
// process launch to the first activation.
func (v *viewScope) sendApplicationStart(at time.Time, ttid time.Duration) {
	loading := event.Nanos(ttid)
	e := &event.ActionEvent{
		Common: v.common(event.TypeAction, v.start, v.attributes),
		View:   v.ref(),
		Action: event.ActionDetails{
			ID:          v.deps().newID().String(),
			Type:        string(ActionApplicationStart),
			LoadingTime: &loading,
		},
	}
	v.session.write(e)
	v.actions++
	v.sendUpdate(at)
}

func (v *viewScope) interactionToNextView() (time.Duration, bool) {
	if raw, ok := v.internal[CustomINVAttribute]; ok {
		if d, ok := durationAttribute(raw); ok {
			return d, true
		}
		v.logger().Debug("ignoring malformed custom INV value", zap.Any("value", raw))
	}
	return v.session.inv.value(v.id)
}

// durationAttribute reads a duration given either as a time.Duration or as
// a number of milliseconds.
func durationAttribute(raw any) (time.Duration, bool) {
	switch x := raw.(type) {
	case time.Duration:
		return x, true
	case int:
		return time.Duration(x) * time.Millisecond, true
	case int64:
		return time.Duration(x) * time.Millisecond, true
	case float64:
		return time.Duration(x * float64(time.Millisecond)), true
	}
	return 0, false
}

func (v *viewScope) sendUpdate(at time.Time) {
	if at.After(v.lastUpdate) {
		v.lastUpdate = at
	}
	v.version++

	tns, tnsOK := v.tns.value(v.deps().history)
	inv, invOK := v.interactionToNextView()
	details := event.ViewDetails{
		ID:                        v.id,
		Name:                      v.name,
		URL:                       v.path,
		TimeSpent:                 event.Nanos(v.lastUpdate.Sub(v.start)),
		IsActive:                  v.active,
		Action:                    event.Count{Count: v.actions},
		Resource:                  event.Count{Count: v.resources},
		Error:                     event.Count{Count: v.errors},
		LongTask:                  event.Count{Count: v.longTasks},
		Crash:                     event.Count{Count: v.crashes},
		FrozenFrame:               event.Count{Count: v.frozenFrames},
		NetworkSettledTime:        event.NanosPtr(tns, tnsOK),
		InteractionToNextViewTime: event.NanosPtr(inv, invOK),
	}
	if v.loadingTime != nil {
		details.LoadingTime = event.NanosPtr(*v.loadingTime, true)
	}
	if len(v.customTimings) > 0 {
		details.CustomTimings = make(map[string]int64, len(v.customTimings))
		for name, d := range v.customTimings {
			details.CustomTimings[name] = event.Nanos(d)
		}
	}
	if len(v.performance) > 0 {
		details.Performance = make(map[string]event.MetricAggregate, len(v.performance))
		for name, p := range v.performance {
			details.Performance[name] = event.MetricAggregate{Min: p.min, Max: p.max, Average: p.sum / float64(p.n)}
		}
	}

	e := &event.ViewEvent{
		Common: v.common(event.TypeView, v.start, v.attributes),
		View:   details,
	}
	e.DD.DocumentVersion = v.version
	v.session.write(e)
}
