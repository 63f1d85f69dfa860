package rum

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/fakeyudi/rumsession/internal/appstate"
	"github.com/fakeyudi/rumsession/internal/event"
)

var propertyLaunch = time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

// newTestApplication builds a scope tree that is driven synchronously.
func newTestApplication(cfg Config, w event.Writer, reason appstate.LaunchReason, initial appstate.State) *applicationScope {
	o := defaultOptions()
	o.writer = w
	o.clock = clock.NewMock()
	o.logger = zap.NewNop()
	o.initialState = initial
	o.launch = appstate.LaunchInfo{Reason: reason, ProcessLaunchDate: propertyLaunch, RuntimeLoadDate: propertyLaunch}
	o.newID = sequentialIDs()
	return newApplicationScope(newDependencies(cfg, o))
}

func propertyConfig(t *rapid.T) Config {
	cfg := DefaultConfig()
	cfg.SessionTimeout = time.Minute
	cfg.SessionMaxDuration = 10 * time.Minute
	cfg.MaxViewsPerSession = rapid.IntRange(1, 6).Draw(t, "max_views")
	cfg.TrackBackgroundEvents = rapid.Bool().Draw(t, "track_background_events")
	return cfg
}

// drawGap favours short gaps but regularly crosses the session timeout.
func drawGap(t *rapid.T) time.Duration {
	if rapid.IntRange(0, 9).Draw(t, "long_gap") == 0 {
		return time.Duration(rapid.Int64Range(int64(30*time.Second), int64(90*time.Second)).Draw(t, "gap"))
	}
	return time.Duration(rapid.Int64Range(int64(time.Millisecond), int64(5*time.Second)).Draw(t, "gap"))
}

func drawCommand(t *rapid.T, at time.Time) Command {
	b := Base{Time: at}
	identity := ViewIdentity(rapid.SampledFrom([]string{"home", "cart", "settings"}).Draw(t, "view"))
	key := rapid.SampledFrom([]string{"r1", "r2"}).Draw(t, "resource")

	switch rapid.IntRange(0, 12).Draw(t, "command") {
	case 0:
		return StartView{Base: b, Identity: identity, Name: string(identity), Path: "app/" + string(identity)}
	case 1:
		return StopView{Base: b, Identity: identity}
	case 2:
		return AddUserAction{Base: b, Type: rapid.SampledFrom([]ActionType{ActionTap, ActionCustom}).Draw(t, "action"), Name: "button"}
	case 3:
		return StartUserAction{Base: b, Type: ActionScroll, Name: "list"}
	case 4:
		return StopUserAction{Base: b, Type: ActionScroll}
	case 5:
		return StartResource{Base: b, Key: key, URL: testURL, Method: "GET"}
	case 6:
		return StopResource{Base: b, Key: key, StatusCode: ptr(200)}
	case 7:
		return StopResourceWithError{Base: b, Key: key, Message: "timeout"}
	case 8:
		return AddCurrentViewError{Base: b, Message: "boom"}
	case 9:
		return AddLongTask{Base: b, Duration: 200 * time.Millisecond}
	case 10:
		states := []appstate.State{appstate.Active, appstate.Inactive, appstate.Background}
		return ApplicationStateChange{Base: b, State: rapid.SampledFrom(states).Draw(t, "state")}
	case 11:
		return StopSession{Base: b}
	default:
		return KeepSessionAlive{Base: b}
	}
}

// Feature: rumsession, Property 1: At most one active session, with strictly increasing starts
func TestSessionSequenceProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := propertyConfig(t)
		rec := event.NewRecorder()
		initial := rapid.SampledFrom([]appstate.State{appstate.Active, appstate.Background}).Draw(t, "initial_state")
		reason := appstate.LaunchBackground
		if initial == appstate.Active {
			reason = appstate.LaunchUser
		}
		app := newTestApplication(cfg, rec, reason, initial)

		now := propertyLaunch.Add(300 * time.Millisecond)
		app.process(SDKInit{Base: Base{Time: now}})

		var last *sessionScope
		seen := map[string]bool{}
		steps := rapid.IntRange(1, 40).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			now = now.Add(drawGap(t))
			cmd := drawCommand(t, now)
			app.process(cmd)

			if n := app.activeSessions(); n > 1 {
				t.Fatalf("%d active sessions after %T", n, cmd)
			}
			s := app.current()
			if s == nil {
				continue
			}
			if s != last {
				if seen[s.state.ID] {
					t.Fatalf("session %s became current twice", s.state.ID)
				}
				seen[s.state.ID] = true
				if last != nil && !s.start.After(last.start) {
					t.Fatalf("session started at %v, not after previous start %v", s.start, last.start)
				}
				last = s
			}
			if s.active {
				if !s.lastCommand.Equal(now) {
					t.Fatalf("last command %v of active session, want %v", s.lastCommand, now)
				}
				if s.duration() >= cfg.SessionMaxDuration {
					t.Fatalf("active session lasted %v", s.duration())
				}
			}
		}
	})
}

// Feature: rumsession, Property 2: Session duration never reaches the maximum duration
func TestEventsCarrySessionDurationBelowMaximum(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := propertyConfig(t)
		rec := event.NewRecorder()
		app := newTestApplication(cfg, rec, appstate.LaunchUser, appstate.Active)

		now := propertyLaunch.Add(200 * time.Millisecond)
		app.process(SDKInit{Base: Base{Time: now}})
		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			now = now.Add(drawGap(t))
			app.process(drawCommand(t, now))
		}

		for _, e := range rec.Events() {
			c := commonOf(e)
			if c.DD.Session == nil {
				t.Fatalf("%s event without session metadata", e.EventType())
			}
			d := time.Duration(c.DD.Session.Duration)
			if d < 0 || d >= cfg.SessionMaxDuration {
				t.Fatalf("%s event with session duration %v", e.EventType(), d)
			}
		}
	})
}

// Feature: rumsession, Property 3: Stopping a view twice emits nothing the second time
func TestStopViewIsIdempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rec := event.NewRecorder()
		app := newTestApplication(DefaultConfig(), rec, appstate.LaunchUser, appstate.Active)

		now := propertyLaunch.Add(200 * time.Millisecond)
		app.process(SDKInit{Base: Base{Time: now}})
		now = now.Add(time.Second)
		app.process(StartView{Base: Base{Time: now}, Identity: "home", Name: "Home"})

		steps := rapid.IntRange(0, 10).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			now = now.Add(time.Duration(rapid.Int64Range(int64(time.Millisecond), int64(time.Second)).Draw(t, "gap")))
			switch rapid.IntRange(0, 3).Draw(t, "command") {
			case 0:
				app.process(AddUserAction{Base: Base{Time: now}, Type: ActionTap, Name: "tap"})
			case 1:
				app.process(StartResource{Base: Base{Time: now}, Key: "r", URL: testURL})
			case 2:
				app.process(StopResource{Base: Base{Time: now}, Key: "r"})
			default:
				app.process(AddCurrentViewError{Base: Base{Time: now}, Message: "boom"})
			}
		}

		now = now.Add(time.Second)
		app.process(StopView{Base: Base{Time: now}, Identity: "home"})
		before := len(rec.Events())
		now = now.Add(time.Second)
		app.process(StopView{Base: Base{Time: now}, Identity: "home"})

		if after := len(rec.Events()); after != before {
			t.Fatalf("second stop wrote %d events", after-before)
		}
		if app.current().hasActiveView() {
			t.Fatal("view still active after stop")
		}
	})
}

func commonOf(e event.Event) event.Common {
	switch ev := e.(type) {
	case *event.ViewEvent:
		return ev.Common
	case *event.ActionEvent:
		return ev.Common
	case *event.ResourceEvent:
		return ev.Common
	case *event.ErrorEvent:
		return ev.Common
	case *event.LongTaskEvent:
		return ev.Common
	}
	return event.Common{}
}
