package rum

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"

	"github.com/fakeyudi/rumsession/internal/appstate"
	"github.com/fakeyudi/rumsession/internal/event"
	"github.com/fakeyudi/rumsession/internal/report"
)

// harness drives a Monitor on a mock clock that starts at the process launch.
type harness struct {
	t        *testing.T
	cfg      Config
	clock    *clock.Mock
	recorder *event.Recorder
	telem    *recordingTelemetry
	monitor  *Monitor

	sessions []startedSession
}

type startedSession struct {
	id        string
	discarded bool
}

func newHarness(t *testing.T) *harness {
	cfg := DefaultConfig()
	cfg.ApplicationID = "test-app"
	return &harness{
		t:        t,
		cfg:      cfg,
		clock:    clock.NewMock(),
		recorder: event.NewRecorder(),
		telem:    &recordingTelemetry{},
	}
}

// launch starts the monitor timeToInit after the process launch.
func (h *harness) launch(reason appstate.LaunchReason, initial appstate.State, timeToInit time.Duration, opts ...Option) *Monitor {
	launched := h.clock.Now()
	h.clock.Add(timeToInit)

	all := []Option{
		WithClock(h.clock),
		WithWriter(h.recorder),
		WithLogger(zaptest.NewLogger(h.t)),
		WithTelemetry(h.telem),
		WithLaunchInfo(appstate.LaunchInfo{Reason: reason, ProcessLaunchDate: launched, RuntimeLoadDate: launched}),
		WithInitialAppState(initial),
		WithSessionListener(func(id string, discarded bool) {
			h.sessions = append(h.sessions, startedSession{id: id, discarded: discarded})
		}),
	}
	h.monitor = NewMonitor(h.cfg, append(all, opts...)...)
	h.t.Cleanup(h.monitor.Close)
	return h.monitor
}

func (h *harness) advance(d time.Duration) {
	h.clock.Add(d)
}

func (h *harness) events() []event.Event {
	h.monitor.Flush()
	return h.recorder.Events()
}

func (h *harness) report() *report.Report {
	return report.Build(h.events())
}

// lastView returns the latest update of the view named name.
func (h *harness) lastView(name string) *event.ViewEvent {
	h.monitor.Flush()
	var last *event.ViewEvent
	for _, v := range h.recorder.ViewEvents() {
		if v.View.Name == name {
			last = v
		}
	}
	if last == nil {
		h.t.Fatalf("no view event for %q", name)
	}
	return last
}

func (h *harness) actions() []*event.ActionEvent {
	h.monitor.Flush()
	return h.recorder.ActionEvents()
}

func (h *harness) eventsOfType(t event.Type) []event.Event {
	var out []event.Event
	for _, e := range h.events() {
		if e.EventType() == t {
			out = append(out, e)
		}
	}
	return out
}

type recordingTelemetry struct {
	mu        sync.Mutex
	started   []string
	written   map[event.Type]int
	dropped   map[string]int
	sampled   int
	unsampled int
}

func (r *recordingTelemetry) SessionStarted(precondition string, sampled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, precondition)
	if sampled {
		r.sampled++
	} else {
		r.unsampled++
	}
}

func (r *recordingTelemetry) EventWritten(t event.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.written == nil {
		r.written = make(map[event.Type]int)
	}
	r.written[t]++
}

func (r *recordingTelemetry) EventDropped(t event.Type, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dropped == nil {
		r.dropped = make(map[string]int)
	}
	r.dropped[string(t)+"/"+reason]++
}

func (r *recordingTelemetry) droppedCount(t event.Type, reason string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped[string(t)+"/"+reason]
}

// sequentialIDs returns a generator of predictable UUIDs.
func sequentialIDs() func() uuid.UUID {
	var n byte
	return func() uuid.UUID {
		n++
		var id uuid.UUID
		id[15] = n
		return id
	}
}

func ptr[T any](v T) *T { return &v }
