// Package telemetry reports the state machine's own health as DogStatsD
// counters.
package telemetry

import (
	"strconv"

	"github.com/DataDog/datadog-go/v5/statsd"
	"go.uber.org/zap"

	"github.com/fakeyudi/rumsession/internal/event"
)

const (
	metricSessionStarted = "rumsession.session.started"
	metricEventWritten   = "rumsession.event.written"
	metricEventDropped   = "rumsession.event.dropped"
)

// Metrics implements rum.Telemetry over a statsd client.
type Metrics struct {
	client statsd.ClientInterface
}

// New connects to the DogStatsD agent at addr. An empty addr, or a client
// that cannot be created, yields a no-op client.
func New(addr, applicationID string, logger *zap.Logger) *Metrics {
	if addr == "" {
		return NewWithClient(&statsd.NoOpClient{})
	}
	client, err := statsd.New(addr,
		statsd.WithMaxMessagesPerPayload(40),
		statsd.WithTags([]string{"application_id:" + applicationID}),
	)
	if err != nil {
		logger.Info("telemetry disabled", zap.String("addr", addr), zap.Error(err))
		return NewWithClient(&statsd.NoOpClient{})
	}
	return NewWithClient(client)
}

func NewWithClient(client statsd.ClientInterface) *Metrics {
	return &Metrics{client: client}
}

func (m *Metrics) SessionStarted(precondition string, sampled bool) {
	_ = m.client.Incr(metricSessionStarted, []string{
		"precondition:" + precondition,
		"sampled:" + strconv.FormatBool(sampled),
	}, 1)
}

func (m *Metrics) EventWritten(t event.Type) {
	_ = m.client.Incr(metricEventWritten, []string{"event_type:" + string(t)}, 1)
}

func (m *Metrics) EventDropped(t event.Type, reason string) {
	_ = m.client.Incr(metricEventDropped, []string{"event_type:" + string(t), "reason:" + reason}, 1)
}

// Close flushes buffered metrics and releases the client.
func (m *Metrics) Close() error {
	return m.client.Close()
}
