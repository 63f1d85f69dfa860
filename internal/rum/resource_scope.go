package rum

import (
	"time"

	"github.com/fakeyudi/rumsession/internal/event"
)

// resourceScope tracks one in-flight resource of a view.
type resourceScope struct {
	view       *viewScope
	id         string
	key        string
	url        string
	method     string
	kind       ResourceKind
	start      time.Time
	attributes Attributes
	metrics    *ResourceMetrics
	// action is the user action pending when the resource started, if any.
	action *actionScope
}

func newResourceScope(v *viewScope, c StartResource) *resourceScope {
	kind := c.Kind
	if kind == "" {
		kind = ResourceNative
	}
	return &resourceScope{
		view:       v,
		id:         v.deps().newID().String(),
		key:        c.Key,
		url:        c.URL,
		method:     c.Method,
		kind:       kind,
		start:      c.Time,
		attributes: mergeAttributes(v.attributes, c.Attributes),
		action:     v.action,
	}
}

// process returns false once the resource completed.
func (r *resourceScope) process(cmd Command) bool {
	switch c := cmd.(type) {
	case AddResourceMetrics:
		m := c.Metrics
		r.metrics = &m
	case StopResource:
		r.attributes = mergeAttributes(r.attributes, c.Attributes)
		if c.Kind != "" {
			r.kind = c.Kind
		}
		r.sendResource(c)
		return false
	case StopResourceWithError:
		r.attributes = mergeAttributes(r.attributes, c.Attributes)
		r.sendError(c)
		return false
	}
	return true
}

func (r *resourceScope) actionRef() *event.ActionRef {
	if r.action == nil {
		return nil
	}
	return r.action.ref()
}

func (r *resourceScope) duration(stop time.Time) time.Duration {
	if r.metrics != nil && !r.metrics.FetchStart.IsZero() && r.metrics.FetchEnd.After(r.metrics.FetchStart) {
		return r.metrics.FetchEnd.Sub(r.metrics.FetchStart)
	}
	return stop.Sub(r.start)
}

func (r *resourceScope) sendResource(c StopResource) {
	size := c.Size
	if size == nil && r.metrics != nil {
		size = r.metrics.Size
	}
	e := &event.ResourceEvent{
		Common: r.view.common(event.TypeResource, r.start, r.attributes),
		View:   r.view.ref(),
		Action: r.actionRef(),
		Resource: event.ResourceDetails{
			ID:         r.id,
			Type:       string(r.kind),
			URL:        r.url,
			Method:     r.method,
			StatusCode: c.StatusCode,
			Duration:   event.Nanos(r.duration(c.Time)),
			Size:       size,
		},
	}
	r.view.resourceCompleted(r, c.Time, e, false)
}

func (r *resourceScope) sendError(c StopResourceWithError) {
	source := c.Source
	if source == "" {
		source = SourceNetwork
	}
	status := 0
	if c.StatusCode != nil {
		status = *c.StatusCode
	}
	e := &event.ErrorEvent{
		Common: r.view.common(event.TypeError, c.Time, r.attributes),
		View:   r.view.ref(),
		Action: r.actionRef(),
		Error: event.ErrorDetails{
			ID:      r.view.deps().newID().String(),
			Message: c.Message,
			Type:    c.Type,
			Source:  string(source),
			Resource: &event.ErrorResource{
				URL:        r.url,
				Method:     r.method,
				StatusCode: status,
			},
		},
	}
	r.view.resourceCompleted(r, c.Time, e, true)
}
