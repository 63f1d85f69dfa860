package rum

import (
	"time"

	"github.com/fakeyudi/rumsession/internal/appstate"
)

// launchResolver classifies the process launch. When the platform could not
// tell and the app started in background, the answer depends on what happens
// next: commands are held back until either the app comes to foreground
// inside the launch window (user launch) or a command arrives past it
// (background launch).
type launchResolver struct {
	info      appstate.LaunchInfo
	initial   appstate.State
	threshold time.Duration

	resolved bool
	reason   appstate.LaunchReason
	pending  []Command
}

func newLaunchResolver(info appstate.LaunchInfo, initial appstate.State, threshold time.Duration) *launchResolver {
	r := &launchResolver{info: info, initial: initial, threshold: threshold}
	switch {
	case info.Reason != appstate.LaunchUncertain:
		r.settle(info.Reason)
	case info.IsActivePrewarm:
		r.settle(appstate.LaunchPrewarm)
	case initial.IsRunningInForeground():
		r.settle(appstate.LaunchUser)
	}
	return r
}

func (r *launchResolver) settle(reason appstate.LaunchReason) {
	r.resolved = true
	r.reason = reason
}

// windowEnd is the first instant outside the launch window.
func (r *launchResolver) windowEnd() time.Time {
	load := r.info.RuntimeLoadDate
	if load.IsZero() {
		load = r.info.ProcessLaunchDate
	}
	return load.Add(r.threshold)
}

// feed returns the commands that can be processed now, in order. It returns
// nothing while the launch reason is still open.
func (r *launchResolver) feed(cmd Command) []Command {
	if r.resolved {
		return []Command{cmd}
	}
	r.pending = append(r.pending, cmd)

	if c, ok := cmd.(ApplicationStateChange); ok && c.State.IsRunningInForeground() && c.Time.Before(r.windowEnd()) {
		r.settle(appstate.LaunchUser)
	} else if !cmd.CommandTime().Before(r.windowEnd()) {
		r.settle(appstate.LaunchBackground)
	} else {
		return nil
	}
	return r.drain()
}

// flush settles an open launch as a background launch and returns what was
// held back.
func (r *launchResolver) flush() []Command {
	if !r.resolved {
		r.settle(appstate.LaunchBackground)
	}
	return r.drain()
}

func (r *launchResolver) drain() []Command {
	out := r.pending
	r.pending = nil
	return out
}
