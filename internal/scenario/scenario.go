// Package scenario scripts app lifecycles for the RUM monitor. A scenario
// is a launch description followed by timed steps; each step becomes one
// monitor call.
package scenario

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/fakeyudi/rumsession/internal/appstate"
)

// ErrEmptyScenario is returned for a scenario without steps.
var ErrEmptyScenario = errors.New("scenario has no steps")

// DefaultStart is the process launch time of scenarios that do not set one.
var DefaultStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// Scenario is one scripted process run.
type Scenario struct {
	Name   string    `yaml:"name"`
	Start  time.Time `yaml:"start"`
	Launch Launch    `yaml:"launch"`
	Steps  []Step    `yaml:"steps"`
}

// Launch describes how the OS started the process.
type Launch struct {
	Reason       string   `yaml:"reason"`        // user | background | prewarm | uncertain
	InitialState string   `yaml:"initial_state"` // active | inactive | background | terminated
	TimeToInit   Duration `yaml:"time_to_init"`  // process launch to SDK init
	RuntimeLoad  Duration `yaml:"runtime_load"`  // process launch to runtime load
	Prewarm      bool     `yaml:"prewarm"`
}

// Duration is a time.Duration written as "1.5s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Load reads and validates the scenario file at path.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse decodes and validates a YAML scenario.
func Parse(data []byte) (*Scenario, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var s Scenario
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decode scenario: %w", err)
	}
	if s.Start.IsZero() {
		s.Start = DefaultStart
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate reports every problem of the scenario at once.
func (s *Scenario) Validate() error {
	if len(s.Steps) == 0 {
		return ErrEmptyScenario
	}
	var err error
	if _, e := appstate.ParseLaunchReason(s.Launch.Reason); e != nil {
		err = multierr.Append(err, e)
	}
	if s.Launch.InitialState != "" {
		if _, e := appstate.ParseState(s.Launch.InitialState); e != nil {
			err = multierr.Append(err, e)
		}
	}
	if s.Launch.TimeToInit < 0 || s.Launch.RuntimeLoad < 0 {
		err = multierr.Append(err, errors.New("launch durations must not be negative"))
	}
	for i, step := range s.Steps {
		if e := step.Validate(); e != nil {
			err = multierr.Append(err, fmt.Errorf("step %d: %w", i+1, e))
		}
	}
	return err
}

// launchInfo converts the launch block for a process started at start.
func (l Launch) launchInfo(start time.Time) (appstate.LaunchInfo, appstate.State, error) {
	reason, err := appstate.ParseLaunchReason(l.Reason)
	if err != nil {
		return appstate.LaunchInfo{}, 0, err
	}
	state := appstate.Active
	if l.InitialState != "" {
		if state, err = appstate.ParseState(l.InitialState); err != nil {
			return appstate.LaunchInfo{}, 0, err
		}
	}
	return appstate.LaunchInfo{
		Reason:            reason,
		ProcessLaunchDate: start,
		RuntimeLoadDate:   start.Add(time.Duration(l.RuntimeLoad)),
		IsActivePrewarm:   l.Prewarm,
	}, state, nil
}
