// Package report folds a stream of RUM events back into sessions and views
// and renders the result for people and tools.
package report

import (
	"sort"
	"time"

	"github.com/fakeyudi/rumsession/internal/event"
)

// Report is the renderable summary of an event stream.
type Report struct {
	ApplicationID string    `json:"application_id"`
	Events        int       `json:"events"`
	Sessions      []Session `json:"sessions"`
}

// Session summarises one RUM session.
type Session struct {
	ID           string        `json:"id"`
	Precondition string        `json:"precondition,omitempty"`
	Start        time.Time     `json:"start"`
	Duration     time.Duration `json:"duration"`
	// TTID is the loading time of the application start action, if any.
	TTID   *time.Duration `json:"ttid,omitempty"`
	Views  []View         `json:"views"`
	Errors int            `json:"errors"`
}

// View is the latest known state of one view.
type View struct {
	ID                        string         `json:"id"`
	Name                      string         `json:"name"`
	URL                       string         `json:"url"`
	Start                     time.Time      `json:"start"`
	TimeSpent                 time.Duration  `json:"time_spent"`
	IsActive                  bool           `json:"is_active"`
	DocumentVersion           int64          `json:"document_version"`
	ActionCount               int64          `json:"action_count"`
	ResourceCount             int64          `json:"resource_count"`
	ErrorCount                int64          `json:"error_count"`
	LongTaskCount             int64          `json:"long_task_count"`
	LoadingTime               *time.Duration `json:"loading_time,omitempty"`
	NetworkSettledTime        *time.Duration `json:"network_settled_time,omitempty"`
	InteractionToNextViewTime *time.Duration `json:"interaction_to_next_view_time,omitempty"`
	Actions                   []Action       `json:"actions"`
	Resources                 []Resource     `json:"resources"`
}

// Action is one action event attributed to a view.
type Action struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	Name        string         `json:"name,omitempty"`
	Date        time.Time      `json:"date"`
	LoadingTime *time.Duration `json:"loading_time,omitempty"`
}

// Resource is one completed resource attributed to a view.
type Resource struct {
	URL        string        `json:"url"`
	Method     string        `json:"method,omitempty"`
	StatusCode int           `json:"status_code,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// End returns the time the view was last seen.
func (v View) End() time.Time { return v.Start.Add(v.TimeSpent) }

// End returns the time the session was last seen.
func (s Session) End() time.Time { return s.Start.Add(s.Duration) }

// ViewNames returns the names of the session's views in start order.
func (s Session) ViewNames() []string {
	names := make([]string, len(s.Views))
	for i, v := range s.Views {
		names[i] = v.Name
	}
	return names
}

// Build groups events by session and view. Only sessions with at least one
// view event are reported: the session's start and duration come from its
// views, from the first view start to the last view end.
func Build(events []event.Event) *Report {
	r := &Report{Events: len(events)}

	type sessionAcc struct {
		session   Session
		views     map[string]*View
		viewOrder []string
		actions   map[string][]Action
		resources map[string][]Resource
	}
	accs := make(map[string]*sessionAcc)
	var order []string

	for _, e := range events {
		if r.ApplicationID == "" {
			r.ApplicationID = applicationID(e)
		}
		id := e.SessionID()
		acc, ok := accs[id]
		if !ok {
			acc = &sessionAcc{
				session:   Session{ID: id},
				views:     make(map[string]*View),
				actions:   make(map[string][]Action),
				resources: make(map[string][]Resource),
			}
			accs[id] = acc
			order = append(order, id)
		}
		if p := precondition(e); p != "" {
			acc.session.Precondition = p
		}

		switch ev := e.(type) {
		case *event.ViewEvent:
			prev, seen := acc.views[ev.View.ID]
			if !seen {
				acc.viewOrder = append(acc.viewOrder, ev.View.ID)
			}
			if !seen || ev.DD.DocumentVersion >= prev.DocumentVersion {
				v := viewFromEvent(ev)
				acc.views[ev.View.ID] = &v
			}
		case *event.ActionEvent:
			a := Action{
				ID:          ev.Action.ID,
				Type:        ev.Action.Type,
				Name:        ev.Action.Target.Name,
				Date:        ev.EventDate(),
				LoadingTime: durationPtr(ev.Action.LoadingTime),
			}
			acc.actions[ev.View.ID] = append(acc.actions[ev.View.ID], a)
			if a.Type == "application_start" && acc.session.TTID == nil {
				acc.session.TTID = a.LoadingTime
			}
		case *event.ResourceEvent:
			res := Resource{
				URL:      ev.Resource.URL,
				Method:   ev.Resource.Method,
				Duration: time.Duration(ev.Resource.Duration),
			}
			if ev.Resource.StatusCode != nil {
				res.StatusCode = *ev.Resource.StatusCode
			}
			acc.resources[ev.View.ID] = append(acc.resources[ev.View.ID], res)
		case *event.ErrorEvent:
			acc.session.Errors++
		}
	}

	for _, id := range order {
		acc := accs[id]
		if len(acc.viewOrder) == 0 {
			continue
		}
		s := acc.session
		for _, viewID := range acc.viewOrder {
			v := *acc.views[viewID]
			v.Actions = acc.actions[viewID]
			v.Resources = acc.resources[viewID]
			s.Views = append(s.Views, v)
		}
		sort.SliceStable(s.Views, func(i, j int) bool { return s.Views[i].Start.Before(s.Views[j].Start) })

		s.Start = s.Views[0].Start
		end := s.Start
		for _, v := range s.Views {
			if v.End().After(end) {
				end = v.End()
			}
		}
		s.Duration = end.Sub(s.Start)
		r.Sessions = append(r.Sessions, s)
	}
	return r
}

func viewFromEvent(ev *event.ViewEvent) View {
	return View{
		ID:                        ev.View.ID,
		Name:                      ev.View.Name,
		URL:                       ev.View.URL,
		Start:                     ev.EventDate(),
		TimeSpent:                 time.Duration(ev.View.TimeSpent),
		IsActive:                  ev.View.IsActive,
		DocumentVersion:           ev.DD.DocumentVersion,
		ActionCount:               ev.View.Action.Count,
		ResourceCount:             ev.View.Resource.Count,
		ErrorCount:                ev.View.Error.Count,
		LongTaskCount:             ev.View.LongTask.Count,
		LoadingTime:               durationPtr(ev.View.LoadingTime),
		NetworkSettledTime:        durationPtr(ev.View.NetworkSettledTime),
		InteractionToNextViewTime: durationPtr(ev.View.InteractionToNextViewTime),
	}
}

func durationPtr(ns *int64) *time.Duration {
	if ns == nil {
		return nil
	}
	d := time.Duration(*ns)
	return &d
}

func common(e event.Event) *event.Common {
	switch ev := e.(type) {
	case *event.ViewEvent:
		return &ev.Common
	case *event.ActionEvent:
		return &ev.Common
	case *event.ResourceEvent:
		return &ev.Common
	case *event.ErrorEvent:
		return &ev.Common
	case *event.LongTaskEvent:
		return &ev.Common
	}
	return nil
}

func applicationID(e event.Event) string {
	if c := common(e); c != nil {
		return c.Application.ID
	}
	return ""
}

func precondition(e event.Event) string {
	if c := common(e); c != nil && c.DD.Session != nil {
		return c.DD.Session.SessionPrecondition
	}
	return ""
}
