// Package event defines the RUM events produced by the session state machine
// and the sinks they are written to.
package event

import "time"

// Type is the RUM event type, serialized as the "type" field.
type Type string

const (
	TypeView     Type = "view"
	TypeAction   Type = "action"
	TypeResource Type = "resource"
	TypeError    Type = "error"
	TypeLongTask Type = "long_task"
)

// Event is implemented by every RUM event model.
type Event interface {
	EventType() Type
	SessionID() string
	ViewID() string
	EventDate() time.Time
}

// Common carries the fields shared by every event.
type Common struct {
	Date        int64          `json:"date"` // milliseconds since epoch
	Type        Type           `json:"type"`
	Application Application    `json:"application"`
	Session     Session        `json:"session"`
	Usr         *User          `json:"usr,omitempty"`
	DD          DD             `json:"_dd"`
	Context     map[string]any `json:"context,omitempty"`
}

func (c Common) EventType() Type { return c.Type }

func (c Common) SessionID() string { return c.Session.ID }

func (c Common) EventDate() time.Time { return time.UnixMilli(c.Date) }

type Application struct {
	ID string `json:"id"`
}

type Session struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	HasReplay bool   `json:"has_replay"`
	IsActive  bool   `json:"is_active"`
}

// User is the optional "usr" block.
type User struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type DD struct {
	DocumentVersion int64      `json:"document_version,omitempty"`
	Session         *DDSession `json:"session,omitempty"`
}

// DDSession is the session metadata stamped onto every event.
type DDSession struct {
	SessionPrecondition string `json:"session_precondition,omitempty"`
	StartDate           int64  `json:"start_date"` // milliseconds since epoch
	Duration            int64  `json:"duration"`   // nanoseconds
}

// ViewRef identifies the view an event belongs to.
type ViewRef struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
	URL  string `json:"url"`
}

// ActionRef links resources, errors and long tasks to the pending action.
type ActionRef struct {
	ID string `json:"id"`
}

type Count struct {
	Count int64 `json:"count"`
}

// MetricAggregate summarises one performance metric over a view's lifetime.
type MetricAggregate struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

// ViewDetails is the "view" block of a view event.
type ViewDetails struct {
	ID                        string                     `json:"id"`
	Name                      string                     `json:"name,omitempty"`
	URL                       string                     `json:"url"`
	TimeSpent                 int64                      `json:"time_spent"`
	IsActive                  bool                       `json:"is_active"`
	Action                    Count                      `json:"action"`
	Resource                  Count                      `json:"resource"`
	Error                     Count                      `json:"error"`
	LongTask                  Count                      `json:"long_task"`
	Crash                     Count                      `json:"crash"`
	FrozenFrame               Count                      `json:"frozen_frame"`
	LoadingTime               *int64                     `json:"loading_time,omitempty"`
	NetworkSettledTime        *int64                     `json:"network_settled_time,omitempty"`
	InteractionToNextViewTime *int64                     `json:"interaction_to_next_view_time,omitempty"`
	CustomTimings             map[string]int64           `json:"custom_timings,omitempty"`
	Performance               map[string]MetricAggregate `json:"performance,omitempty"`
}

type ViewEvent struct {
	Common
	View ViewDetails `json:"view"`
}

func (e *ViewEvent) ViewID() string { return e.View.ID }

type ActionDetails struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Target      Target `json:"target"`
	LoadingTime *int64 `json:"loading_time,omitempty"`
	Resource    Count  `json:"resource"`
	Error       Count  `json:"error"`
	LongTask    Count  `json:"long_task"`
}

type Target struct {
	Name string `json:"name"`
}

type ActionEvent struct {
	Common
	View   ViewRef       `json:"view"`
	Action ActionDetails `json:"action"`
}

func (e *ActionEvent) ViewID() string { return e.View.ID }

type ResourceDetails struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	URL        string `json:"url"`
	Method     string `json:"method"`
	StatusCode *int   `json:"status_code,omitempty"`
	Duration   int64  `json:"duration"`
	Size       *int64 `json:"size,omitempty"`
}

type ResourceEvent struct {
	Common
	View     ViewRef         `json:"view"`
	Action   *ActionRef      `json:"action,omitempty"`
	Resource ResourceDetails `json:"resource"`
}

func (e *ResourceEvent) ViewID() string { return e.View.ID }

type ErrorResource struct {
	URL        string `json:"url"`
	Method     string `json:"method"`
	StatusCode int    `json:"status_code"`
}

type ErrorDetails struct {
	ID       string         `json:"id"`
	Message  string         `json:"message"`
	Type     string         `json:"type,omitempty"`
	Source   string         `json:"source"`
	Stack    string         `json:"stack,omitempty"`
	IsCrash  bool           `json:"is_crash"`
	Resource *ErrorResource `json:"resource,omitempty"`
}

type ErrorEvent struct {
	Common
	View   ViewRef      `json:"view"`
	Action *ActionRef   `json:"action,omitempty"`
	Error  ErrorDetails `json:"error"`
}

func (e *ErrorEvent) ViewID() string { return e.View.ID }

type LongTaskDetails struct {
	ID            string `json:"id"`
	Duration      int64  `json:"duration"`
	IsFrozenFrame bool   `json:"is_frozen_frame"`
}

type LongTaskEvent struct {
	Common
	View     ViewRef         `json:"view"`
	Action   *ActionRef      `json:"action,omitempty"`
	LongTask LongTaskDetails `json:"long_task"`
}

func (e *LongTaskEvent) ViewID() string { return e.View.ID }

// Millis converts t to the millisecond epoch used by the "date" fields.
func Millis(t time.Time) int64 { return t.UnixMilli() }

// Nanos returns d as nanoseconds, the unit of every duration field.
func Nanos(d time.Duration) int64 { return d.Nanoseconds() }

// NanosPtr returns a pointer to d in nanoseconds, or nil when ok is false.
func NanosPtr(d time.Duration, ok bool) *int64 {
	if !ok {
		return nil
	}
	n := d.Nanoseconds()
	return &n
}
