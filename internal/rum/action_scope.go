package rum

import (
	"time"

	"github.com/fakeyudi/rumsession/internal/event"
)

// actionScope tracks the pending user action of a view. Discrete actions
// (taps) complete 100ms after they start, continuous ones (scrolls, swipes)
// when stopped or after 10s. Neither completes while a resource it started
// is still loading.
type actionScope struct {
	view       *viewScope
	id         string
	actionType ActionType
	name       string
	attributes Attributes
	start      time.Time
	continuous bool

	activeResources int
	resources       int64
	errors          int64
	longTasks       int64
}

func newActionScope(v *viewScope, typ ActionType, name string, attrs Attributes, start time.Time, continuous bool) *actionScope {
	return &actionScope{
		view:       v,
		id:         v.deps().newID().String(),
		actionType: typ,
		name:       name,
		attributes: mergeAttributes(v.attributes, attrs),
		start:      start,
		continuous: continuous,
	}
}

// process returns false once the action was sent.
func (a *actionScope) process(cmd Command) bool {
	if at, expired := a.expiration(cmd.CommandTime()); expired && a.activeResources <= 0 {
		a.send(at, nil)
		return false
	}

	switch c := cmd.(type) {
	case StartView, StopView:
		a.send(cmd.CommandTime(), cmd.CommandAttributes())
		return false
	case StopUserAction:
		if c.Name != "" {
			a.name = c.Name
		}
		a.send(c.Time, c.Attributes)
		return false
	}
	return true
}

func (a *actionScope) expiration(now time.Time) (time.Time, bool) {
	limit := discreteActionTimeout
	if a.continuous {
		limit = continuousActionMaxLength
	}
	if now.Sub(a.start) >= limit {
		return a.start.Add(limit), true
	}
	return time.Time{}, false
}

func (a *actionScope) resourceStarted() { a.activeResources++ }

func (a *actionScope) resourceStopped(failed bool) {
	a.activeResources--
	if failed {
		a.errors++
	} else {
		a.resources++
	}
}

func (a *actionScope) errorAdded() { a.errors++ }

func (a *actionScope) longTaskAdded() { a.longTasks++ }

func (a *actionScope) ref() *event.ActionRef {
	return &event.ActionRef{ID: a.id}
}

// send writes the action event with completedAt as its end.
func (a *actionScope) send(completedAt time.Time, attrs Attributes) {
	a.attributes = mergeAttributes(a.attributes, attrs)
	loading := event.Nanos(completedAt.Sub(a.start))
	e := &event.ActionEvent{
		Common: a.view.common(event.TypeAction, a.start, a.attributes),
		View:   a.view.ref(),
		Action: event.ActionDetails{
			ID:          a.id,
			Type:        string(a.actionType),
			Target:      event.Target{Name: a.name},
			LoadingTime: &loading,
			Resource:    event.Count{Count: a.resources},
			Error:       event.Count{Count: a.errors},
			LongTask:    event.Count{Count: a.longTasks},
		},
	}
	a.view.actionSent(a, e, completedAt)
}
