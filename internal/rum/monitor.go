// Package rum implements the RUM session state machine: the tree of
// application, session, view, action and resource scopes that turns
// instrumentation commands into RUM events.
//
// A Monitor owns one scope tree. Its methods may be called from any
// goroutine; commands are queued and processed one at a time, in submission
// order, by a single worker.
package rum

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/eapache/queue/v2"
	"go.uber.org/zap"

	"github.com/fakeyudi/rumsession/internal/appstate"
)

// Monitor is the entry point of the state machine.
type Monitor struct {
	deps     *dependencies
	app      *applicationScope
	observer ContextObserver

	mu         sync.Mutex
	cond       *sync.Cond
	commands   *queue.Queue[Command]
	busy       bool
	closed     bool
	done       chan struct{}
	attributes Attributes

	context atomic.Pointer[Context]
}

// NewMonitor starts a monitor and enqueues the SDK init command at the
// current clock time.
func NewMonitor(cfg Config, opts ...Option) *Monitor {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	deps := newDependencies(cfg, o)

	m := &Monitor{
		deps:       deps,
		app:        newApplicationScope(deps),
		observer:   o.observer,
		commands:   queue.New[Command](),
		done:       make(chan struct{}),
		attributes: Attributes{},
	}
	m.cond = sync.NewCond(&m.mu)
	m.context.Store(&Context{ApplicationID: deps.config.ApplicationID})

	go m.run()
	m.Process(SDKInit{Base: m.base(nil)})
	return m
}

// Process enqueues cmd as is. Commands sent after Close are dropped.
func (m *Monitor) Process(cmd Command) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		m.deps.logger.Debug("monitor closed, dropping command", zap.String("command", fmt.Sprintf("%T", cmd)))
		return
	}
	m.commands.Add(cmd)
	m.cond.Broadcast()
}

// Flush blocks until every command enqueued so far was processed.
func (m *Monitor) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.commands.Length() > 0 || m.busy {
		m.cond.Wait()
	}
}

// Close processes the remaining commands and stops the worker. Commands
// still waiting for the launch reason are processed as part of a
// background launch.
func (m *Monitor) Close() {
	m.mu.Lock()
	m.closed = true
	m.cond.Broadcast()
	m.mu.Unlock()
	<-m.done
}

// CurrentContext returns the context published after the last command.
func (m *Monitor) CurrentContext() Context {
	return *m.context.Load()
}

func (m *Monitor) run() {
	defer close(m.done)
	for {
		m.mu.Lock()
		for m.commands.Length() == 0 && !m.closed {
			m.cond.Wait()
		}
		if m.commands.Length() == 0 {
			m.mu.Unlock()
			m.safely("flush", m.app.flush)
			return
		}
		cmd := m.commands.Remove()
		m.busy = true
		m.mu.Unlock()

		m.safely(fmt.Sprintf("%T", cmd), func() { m.app.process(cmd) })

		m.mu.Lock()
		m.busy = false
		m.cond.Broadcast()
		m.mu.Unlock()
	}
}

// safely runs fn and publishes the resulting context. A panic is logged and
// never reaches the caller.
func (m *Monitor) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.deps.logger.Error("recovered from panic while processing command",
				zap.String("command", what), zap.Any("panic", r), zap.StackSkip("stack", 2))
		}
	}()
	fn()

	ctx := m.app.context()
	m.context.Store(&ctx)
	if m.observer != nil {
		m.observer.OnContextChanged(ctx)
	}
}

// base stamps the current time and merges the global attributes under attrs.
func (m *Monitor) base(attrs Attributes) Base {
	m.mu.Lock()
	global := m.attributes
	m.mu.Unlock()

	b := Base{Time: m.deps.clock.Now()}
	if len(global)+len(attrs) > 0 {
		b.Attributes = mergeAttributes(global, attrs)
	}
	return b
}

// AddAttribute sets a global attribute merged into every later command.
func (m *Monitor) AddAttribute(key string, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.attributes = mergeAttributes(m.attributes, Attributes{key: value})
}

func (m *Monitor) RemoveAttribute(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	attrs := mergeAttributes(m.attributes, nil)
	delete(attrs, key)
	m.attributes = attrs
}

func (m *Monitor) SetApplicationState(state appstate.State) {
	m.Process(ApplicationStateChange{Base: m.base(nil), State: state})
}

func (m *Monitor) StartView(identity ViewIdentity, name, path string, attrs Attributes) {
	m.Process(StartView{Base: m.base(attrs), Identity: identity, Name: name, Path: path})
}

func (m *Monitor) StopView(identity ViewIdentity, attrs Attributes) {
	m.Process(StopView{Base: m.base(attrs), Identity: identity})
}

func (m *Monitor) AddViewTiming(name string) {
	m.Process(AddViewTiming{Base: m.base(nil), Name: name})
}

func (m *Monitor) AddViewLoadingTime(overwrite bool) {
	m.Process(AddViewLoadingTime{Base: m.base(nil), Overwrite: overwrite})
}

func (m *Monitor) SetInternalViewAttribute(key string, value any) {
	m.Process(SetInternalViewAttribute{Base: m.base(nil), Key: key, Value: value})
}

func (m *Monitor) UpdatePerformanceMetric(metric string, value float64) {
	m.Process(UpdatePerformanceMetric{Base: m.base(nil), Metric: metric, Value: value})
}

func (m *Monitor) StartResource(key, url, method string, kind ResourceKind, attrs Attributes) {
	m.Process(StartResource{Base: m.base(attrs), Key: key, URL: url, Method: method, Kind: kind})
}

func (m *Monitor) AddResourceMetrics(key string, metrics ResourceMetrics) {
	m.Process(AddResourceMetrics{Base: m.base(nil), Key: key, Metrics: metrics})
}

func (m *Monitor) StopResource(key string, kind ResourceKind, statusCode *int, size *int64, attrs Attributes) {
	m.Process(StopResource{Base: m.base(attrs), Key: key, Kind: kind, StatusCode: statusCode, Size: size})
}

func (m *Monitor) StopResourceWithError(key, message, errType string, source ErrorSource, statusCode *int, attrs Attributes) {
	m.Process(StopResourceWithError{
		Base:       m.base(attrs),
		Key:        key,
		Message:    message,
		Type:       errType,
		Source:     source,
		StatusCode: statusCode,
	})
}

func (m *Monitor) StartAction(t ActionType, name string, attrs Attributes) {
	m.Process(StartUserAction{Base: m.base(attrs), Type: t, Name: name})
}

func (m *Monitor) StopAction(t ActionType, name string, attrs Attributes) {
	m.Process(StopUserAction{Base: m.base(attrs), Type: t, Name: name})
}

func (m *Monitor) AddAction(t ActionType, name string, attrs Attributes) {
	m.Process(AddUserAction{Base: m.base(attrs), Type: t, Name: name})
}

func (m *Monitor) AddError(message, errType string, source ErrorSource, stack string, attrs Attributes) {
	m.Process(AddCurrentViewError{Base: m.base(attrs), Message: message, Type: errType, Source: source, Stack: stack})
}

// AddLongTask reports a stall of the given duration that ended now.
func (m *Monitor) AddLongTask(duration time.Duration, isFrozenFrame bool) {
	m.Process(AddLongTask{Base: m.base(nil), Duration: duration, IsFrozenFrame: isFrozenFrame})
}

func (m *Monitor) StopSession() {
	m.Process(StopSession{Base: m.base(nil)})
}

func (m *Monitor) KeepSessionAlive() {
	m.Process(KeepSessionAlive{Base: m.base(nil)})
}
