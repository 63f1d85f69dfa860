package scenario

import (
	"time"

	"github.com/benbjohnson/clock"

	"github.com/fakeyudi/rumsession/internal/event"
	"github.com/fakeyudi/rumsession/internal/rum"
)

// Run replays s through a fresh monitor on a mock clock and returns every
// event written, in order. The clock starts at s.Start (the process launch)
// and the monitor is created TimeToInit later. Run installs its own clock,
// launch info and writer; opts may set anything else.
func Run(s *Scenario, cfg rum.Config, opts ...rum.Option) ([]event.Event, error) {
	if len(s.Steps) == 0 {
		return nil, ErrEmptyScenario
	}
	start := s.Start
	if start.IsZero() {
		start = DefaultStart
	}
	info, state, err := s.Launch.launchInfo(start)
	if err != nil {
		return nil, err
	}

	mock := clock.NewMock()
	mock.Set(start)
	mock.Add(time.Duration(s.Launch.TimeToInit))

	recorder := event.NewRecorder()
	all := append(append([]rum.Option{}, opts...),
		rum.WithClock(mock),
		rum.WithWriter(recorder),
		rum.WithLaunchInfo(info),
		rum.WithInitialAppState(state),
	)
	m := rum.NewMonitor(cfg, all...)
	defer m.Close()

	for _, step := range s.Steps {
		// Commands are stamped when submitted, so the queue may lag behind
		// the clock.
		mock.Add(time.Duration(step.After))
		if err := step.Apply(m); err != nil {
			return nil, err
		}
	}
	m.Close()
	return recorder.Events(), nil
}
