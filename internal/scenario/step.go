package scenario

import (
	"errors"
	"fmt"
	"time"

	"github.com/fakeyudi/rumsession/internal/appstate"
	"github.com/fakeyudi/rumsession/internal/rum"
)

// Step operations.
const (
	OpStartView         = "start_view"
	OpStopView          = "stop_view"
	OpAddTiming         = "add_timing"
	OpAddLoadingTime    = "add_loading_time"
	OpSetViewAttribute  = "set_view_attribute"
	OpPerformanceMetric = "performance_metric"
	OpStartResource     = "start_resource"
	OpStopResource      = "stop_resource"
	OpFailResource      = "fail_resource"
	OpStartAction       = "start_action"
	OpStopAction        = "stop_action"
	OpAddAction         = "add_action"
	OpAddError          = "add_error"
	OpAddLongTask       = "add_long_task"
	OpAppState          = "app_state"
	OpStopSession       = "stop_session"
	OpKeepAlive         = "keep_alive"
	OpAddAttribute      = "add_attribute"
	OpRemoveAttribute   = "remove_attribute"
)

// Step is one scripted monitor call. After is the wait since the previous
// step; the other fields are read according to Op.
type Step struct {
	After Duration `yaml:"after"`
	Op    string   `yaml:"op"`

	View string `yaml:"view"` // view identity
	Name string `yaml:"name"`
	Path string `yaml:"path"`

	Action string `yaml:"action"` // action type

	Key    string `yaml:"key"` // resource key, attribute key or timing name
	URL    string `yaml:"url"`
	Method string `yaml:"method"`
	Kind   string `yaml:"kind"`
	Status *int   `yaml:"status"`
	Size   *int64 `yaml:"size"`

	Message   string `yaml:"message"`
	ErrorType string `yaml:"error_type"`
	Source    string `yaml:"source"`
	Stack     string `yaml:"stack"`

	Duration Duration `yaml:"duration"`
	Frozen   bool     `yaml:"frozen"`

	State     string         `yaml:"state"`
	Overwrite bool           `yaml:"overwrite"`
	Value     any            `yaml:"value"`
	Attrs     map[string]any `yaml:"attributes"`
}

// Validate checks that the step names a known operation and carries the
// fields that operation needs.
func (s Step) Validate() error {
	if s.After < 0 {
		return errors.New("after must not be negative")
	}
	switch s.Op {
	case OpStartView, OpStopView:
		if s.View == "" {
			return fmt.Errorf("%s needs a view", s.Op)
		}
	case OpAddTiming, OpSetViewAttribute, OpAddAttribute, OpRemoveAttribute:
		if s.Key == "" {
			return fmt.Errorf("%s needs a key", s.Op)
		}
	case OpPerformanceMetric:
		if s.Key == "" {
			return fmt.Errorf("%s needs a key", s.Op)
		}
		if _, ok := toFloat(s.Value); !ok {
			return fmt.Errorf("%s needs a numeric value, got %v", s.Op, s.Value)
		}
	case OpStartResource:
		if s.Key == "" || s.URL == "" {
			return fmt.Errorf("%s needs a key and a url", s.Op)
		}
	case OpStopResource:
		if s.Key == "" {
			return fmt.Errorf("%s needs a key", s.Op)
		}
	case OpFailResource:
		if s.Key == "" || s.Message == "" {
			return fmt.Errorf("%s needs a key and a message", s.Op)
		}
	case OpStartAction, OpStopAction, OpAddAction:
		if s.Action == "" {
			return fmt.Errorf("%s needs an action type", s.Op)
		}
	case OpAddError:
		if s.Message == "" {
			return fmt.Errorf("%s needs a message", s.Op)
		}
	case OpAddLongTask:
		if s.Duration <= 0 {
			return fmt.Errorf("%s needs a positive duration", s.Op)
		}
	case OpAppState:
		if _, err := appstate.ParseState(s.State); err != nil {
			return err
		}
	case OpAddLoadingTime, OpStopSession, OpKeepAlive:
	case "":
		return errors.New("missing op")
	default:
		return fmt.Errorf("unknown op %q", s.Op)
	}
	return nil
}

// Apply sends the step to m at m's current clock time.
func (s Step) Apply(m *rum.Monitor) error {
	if err := s.Validate(); err != nil {
		return err
	}
	attrs := rum.Attributes(s.Attrs)
	switch s.Op {
	case OpStartView:
		name := s.Name
		if name == "" {
			name = s.View
		}
		m.StartView(rum.ViewIdentity(s.View), name, s.Path, attrs)
	case OpStopView:
		m.StopView(rum.ViewIdentity(s.View), attrs)
	case OpAddTiming:
		m.AddViewTiming(s.Key)
	case OpAddLoadingTime:
		m.AddViewLoadingTime(s.Overwrite)
	case OpSetViewAttribute:
		m.SetInternalViewAttribute(s.Key, s.Value)
	case OpPerformanceMetric:
		v, _ := toFloat(s.Value)
		m.UpdatePerformanceMetric(s.Key, v)
	case OpStartResource:
		m.StartResource(s.Key, s.URL, s.method(), s.kind(), attrs)
	case OpStopResource:
		m.StopResource(s.Key, s.kind(), s.Status, s.Size, attrs)
	case OpFailResource:
		m.StopResourceWithError(s.Key, s.Message, s.ErrorType, s.source(rum.SourceNetwork), s.Status, attrs)
	case OpStartAction:
		m.StartAction(rum.ActionType(s.Action), s.Name, attrs)
	case OpStopAction:
		m.StopAction(rum.ActionType(s.Action), s.Name, attrs)
	case OpAddAction:
		m.AddAction(rum.ActionType(s.Action), s.Name, attrs)
	case OpAddError:
		m.AddError(s.Message, s.ErrorType, s.source(rum.SourceCustom), s.Stack, attrs)
	case OpAddLongTask:
		m.AddLongTask(time.Duration(s.Duration), s.Frozen)
	case OpAppState:
		state, _ := appstate.ParseState(s.State)
		m.SetApplicationState(state)
	case OpStopSession:
		m.StopSession()
	case OpKeepAlive:
		m.KeepSessionAlive()
	case OpAddAttribute:
		m.AddAttribute(s.Key, s.Value)
	case OpRemoveAttribute:
		m.RemoveAttribute(s.Key)
	}
	return nil
}

func (s Step) method() string {
	if s.Method == "" {
		return "GET"
	}
	return s.Method
}

func (s Step) kind() rum.ResourceKind {
	if s.Kind == "" {
		return rum.ResourceNative
	}
	return rum.ResourceKind(s.Kind)
}

func (s Step) source(def rum.ErrorSource) rum.ErrorSource {
	if s.Source == "" {
		return def
	}
	return rum.ErrorSource(s.Source)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
