// Package appstate describes the host application's lifecycle as seen by the
// RUM core: the foreground/background state history and the process launch
// information supplied by the platform.
package appstate

import (
	"fmt"
	"strings"
	"time"
)

// State is the application state reported by the platform.
type State int

const (
	Active State = iota
	Inactive
	Background
	Terminated
)

var stateNames = [...]string{"active", "inactive", "background", "terminated"}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("State(%d)", int(s))
	}
	return stateNames[s]
}

// IsRunningInForeground reports whether the app is visible to the user.
// Inactive counts as foreground: the app is on screen but not receiving events.
func (s State) IsRunningInForeground() bool {
	return s == Active || s == Inactive
}

// ParseState parses the textual form produced by String.
func ParseState(s string) (State, error) {
	for i, name := range stateNames {
		if strings.EqualFold(s, name) {
			return State(i), nil
		}
	}
	return 0, fmt.Errorf("unknown application state %q", s)
}

// Snapshot is the app state at a point in time.
type Snapshot struct {
	State State
	Date  time.Time
}

// History is the ordered record of application state transitions, starting
// with the state observed when the process launched.
type History struct {
	initial Snapshot
	changes []Snapshot
}

// NewHistory returns a history that starts with initial.
func NewHistory(initial Snapshot) *History {
	return &History{initial: initial}
}

// Initial returns the state observed at launch.
func (h *History) Initial() Snapshot { return h.initial }

// Append records a transition. Transitions dated before the latest known one
// are kept in date order; repeated states are collapsed.
func (h *History) Append(s Snapshot) {
	if h.Current().State == s.State {
		return
	}
	i := len(h.changes)
	for i > 0 && h.changes[i-1].Date.After(s.Date) {
		i--
	}
	h.changes = append(h.changes, Snapshot{})
	copy(h.changes[i+1:], h.changes[i:])
	h.changes[i] = s
}

// Current returns the latest known snapshot.
func (h *History) Current() Snapshot {
	if len(h.changes) == 0 {
		return h.initial
	}
	return h.changes[len(h.changes)-1]
}

// StateAt returns the state the app was in at t.
func (h *History) StateAt(t time.Time) State {
	state := h.initial.State
	for _, c := range h.changes {
		if c.Date.After(t) {
			break
		}
		state = c.State
	}
	return state
}

// ContainsState reports whether the app was in a state matching pred at any
// time within [from, to].
func (h *History) ContainsState(from, to time.Time, pred func(State) bool) bool {
	if pred(h.StateAt(from)) {
		return true
	}
	for _, c := range h.changes {
		if c.Date.After(to) {
			break
		}
		if c.Date.After(from) && pred(c.State) {
			return true
		}
	}
	return false
}

// FirstTransitionTo returns the date of the first transition into state.
func (h *History) FirstTransitionTo(state State) (time.Time, bool) {
	for _, c := range h.changes {
		if c.State == state {
			return c.Date, true
		}
	}
	return time.Time{}, false
}

// Snapshots returns every recorded snapshot, initial one first.
func (h *History) Snapshots() []Snapshot {
	out := make([]Snapshot, 0, len(h.changes)+1)
	out = append(out, h.initial)
	return append(out, h.changes...)
}

// LaunchReason is why the OS started the process.
type LaunchReason int

const (
	// LaunchUncertain means the platform could not tell; the RUM core resolves
	// it from the state history.
	LaunchUncertain LaunchReason = iota
	LaunchUser
	LaunchBackground
	LaunchPrewarm
)

var launchReasonNames = [...]string{"uncertain", "user", "background", "prewarm"}

func (r LaunchReason) String() string {
	if r < 0 || int(r) >= len(launchReasonNames) {
		return fmt.Sprintf("LaunchReason(%d)", int(r))
	}
	return launchReasonNames[r]
}

// ParseLaunchReason parses the textual form produced by String. An empty
// string is LaunchUncertain.
func ParseLaunchReason(s string) (LaunchReason, error) {
	if s == "" {
		return LaunchUncertain, nil
	}
	for i, name := range launchReasonNames {
		if strings.EqualFold(s, name) {
			return LaunchReason(i), nil
		}
	}
	return 0, fmt.Errorf("unknown launch reason %q", s)
}

// LaunchInfo holds the process launch signals used to classify the launch.
type LaunchInfo struct {
	// Reason is the platform's own classification, if any.
	Reason LaunchReason
	// ProcessLaunchDate is when the OS started the process.
	ProcessLaunchDate time.Time
	// RuntimeLoadDate is when the runtime finished loading the SDK binary.
	RuntimeLoadDate time.Time
	// IsActivePrewarm is set when the OS flagged the launch as a prewarm.
	IsActivePrewarm bool
}
