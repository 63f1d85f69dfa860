package rum

import (
	"time"

	"github.com/fakeyudi/rumsession/internal/appstate"
)

// TNSResourceParams describes a resource when deciding whether it counts
// towards Time-To-Network-Settled.
type TNSResourceParams struct {
	URL                string
	TimeSinceViewStart time.Duration
	ViewName           string
}

// TNSResourcePredicate classifies resources as "initial" for a view.
type TNSResourcePredicate interface {
	IsInitialResource(p TNSResourceParams) bool
}

// TimeBasedTNSResourcePredicate counts resources started strictly before
// Threshold after the view start.
type TimeBasedTNSResourcePredicate struct {
	Threshold time.Duration
}

// DefaultTNSThreshold is the default initial-resource window.
const DefaultTNSThreshold = 100 * time.Millisecond

func (p TimeBasedTNSResourcePredicate) IsInitialResource(params TNSResourceParams) bool {
	return params.TimeSinceViewStart >= 0 && params.TimeSinceViewStart < p.Threshold
}

// tnsMetric computes Time-To-Network-Settled for one view: the time from the
// view start to the end of the last initial resource.
type tnsMetric struct {
	predicate TNSResourcePredicate
	viewStart time.Time
	viewName  string

	// pending maps initial resources still loading to their start.
	pending            map[string]time.Time
	completed          int
	lastEnd            time.Time
	stoppedWithPending bool
}

func newTNSMetric(p TNSResourcePredicate, viewStart time.Time, viewName string) *tnsMetric {
	return &tnsMetric{
		predicate: p,
		viewStart: viewStart,
		viewName:  viewName,
		pending:   make(map[string]time.Time),
	}
}

func (m *tnsMetric) trackResourceStart(at time.Time, key, url string) {
	if m.stoppedWithPending {
		return
	}
	params := TNSResourceParams{URL: url, TimeSinceViewStart: at.Sub(m.viewStart), ViewName: m.viewName}
	if m.predicate.IsInitialResource(params) {
		m.pending[key] = at
	}
}

// trackResourceEnd completes an initial resource. Its end is its start plus
// duration, which may come from the resource timing metrics.
func (m *tnsMetric) trackResourceEnd(key string, duration time.Duration) {
	start, ok := m.pending[key]
	if !ok {
		return
	}
	delete(m.pending, key)
	if duration < 0 {
		return
	}
	m.completed++
	if end := start.Add(duration); end.After(m.lastEnd) {
		m.lastEnd = end
	}
}

// trackViewStop freezes the metric. Initial resources still in flight make it
// unavailable for good.
func (m *tnsMetric) trackViewStop() {
	if len(m.pending) > 0 {
		m.stoppedWithPending = true
	}
}

// value returns the metric once every initial resource completed. There is
// no value if the app left the foreground while they were loading.
func (m *tnsMetric) value(history *appstate.History) (time.Duration, bool) {
	if m.stoppedWithPending || len(m.pending) > 0 || m.completed == 0 {
		return 0, false
	}
	tns := m.lastEnd.Sub(m.viewStart)
	if tns < 0 {
		return 0, false
	}
	if history.ContainsState(m.viewStart, m.lastEnd, func(s appstate.State) bool { return s != appstate.Active }) {
		return 0, false
	}
	return tns, true
}

// INVActionParams describes an action of the previous view when deciding
// whether it is the interaction that led to the next view.
type INVActionParams struct {
	TimeToNextView time.Duration
	ActionType     ActionType
	ActionName     string
	NextViewName   string
}

// NextViewActionPredicate picks the action Interaction-To-Next-View is
// measured from.
type NextViewActionPredicate interface {
	IsLastAction(p INVActionParams) bool
}

// TimeBasedINVActionPredicate accepts any action that happened at most
// MaxTimeToNextView before the next view started.
type TimeBasedINVActionPredicate struct {
	MaxTimeToNextView time.Duration
}

// DefaultINVMaxTimeToNextView is the default INV window.
const DefaultINVMaxTimeToNextView = 3 * time.Second

func (p TimeBasedINVActionPredicate) IsLastAction(params INVActionParams) bool {
	return params.TimeToNextView >= 0 && params.TimeToNextView <= p.MaxTimeToNextView
}

type trackedAction struct {
	start, end time.Time
	typ        ActionType
	name       string
}

// reference is the instant the time to the next view is measured from.
// Scrolls and swipes count from their end.
func (a trackedAction) reference() time.Time {
	switch a.typ {
	case ActionScroll, ActionSwipe:
		return a.end
	}
	return a.start
}

type trackedViewStart struct {
	start        time.Time
	name         string
	previousView string
}

// invMetric computes Interaction-To-Next-View across the views of a session.
type invMetric struct {
	predicate NextViewActionPredicate
	actions   map[string][]trackedAction
	views     map[string]trackedViewStart
	lastView  string
}

func newINVMetric(p NextViewActionPredicate) *invMetric {
	return &invMetric{
		predicate: p,
		actions:   make(map[string][]trackedAction),
		views:     make(map[string]trackedViewStart),
	}
}

func (m *invMetric) trackAction(start, end time.Time, viewID string, typ ActionType, name string) {
	m.actions[viewID] = append(m.actions[viewID], trackedAction{start: start, end: end, typ: typ, name: name})
}

func (m *invMetric) trackViewStart(start time.Time, name, viewID string) {
	m.views[viewID] = trackedViewStart{start: start, name: name, previousView: m.lastView}
	m.lastView = viewID
}

// trackViewComplete is called whenever a view completes. It forgets every
// view that is neither the current one nor its predecessor.
func (m *invMetric) trackViewComplete() {
	keep := map[string]bool{m.lastView: true}
	if v, ok := m.views[m.lastView]; ok {
		keep[v.previousView] = true
	}
	for id := range m.views {
		if !keep[id] {
			delete(m.views, id)
		}
	}
	for id := range m.actions {
		if !keep[id] {
			delete(m.actions, id)
		}
	}
}

func (m *invMetric) value(viewID string) (time.Duration, bool) {
	v, ok := m.views[viewID]
	if !ok || v.previousView == "" {
		return 0, false
	}
	actions := m.actions[v.previousView]
	for i := len(actions) - 1; i >= 0; i-- {
		a := actions[i]
		params := INVActionParams{
			TimeToNextView: v.start.Sub(a.reference()),
			ActionType:     a.typ,
			ActionName:     a.name,
			NextViewName:   v.name,
		}
		if params.TimeToNextView < 0 {
			continue
		}
		if m.predicate.IsLastAction(params) {
			return params.TimeToNextView, true
		}
	}
	return 0, false
}
