package event

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sync"
)

// Writer receives fully built events. Writes are fire-and-forget: a Writer
// never reports failures back to the scope that produced the event.
type Writer interface {
	Write(e Event)
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(e Event)

func (f WriterFunc) Write(e Event) { f(e) }

// MultiWriter fans every event out to each writer in order.
func MultiWriter(writers ...Writer) Writer {
	return WriterFunc(func(e Event) {
		for _, w := range writers {
			w.Write(e)
		}
	})
}

// Discard drops every event.
var Discard Writer = WriterFunc(func(Event) {})

// Recorder keeps written events in memory. It is safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) Write(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything written so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// ViewEvents returns the recorded view events in write order.
func (r *Recorder) ViewEvents() []*ViewEvent {
	var out []*ViewEvent
	for _, e := range r.Events() {
		if v, ok := e.(*ViewEvent); ok {
			out = append(out, v)
		}
	}
	return out
}

// ActionEvents returns the recorded action events in write order.
func (r *Recorder) ActionEvents() []*ActionEvent {
	var out []*ActionEvent
	for _, e := range r.Events() {
		if a, ok := e.(*ActionEvent); ok {
			out = append(out, a)
		}
	}
	return out
}

// JSONLWriter encodes each event as one JSON object per line. The first
// encoding or write error is kept and reported by Err; later events are
// dropped.
type JSONLWriter struct {
	mu  sync.Mutex
	w   io.Writer
	err error
}

func NewJSONLWriter(w io.Writer) *JSONLWriter {
	return &JSONLWriter{w: w}
}

func (j *JSONLWriter) Write(e Event) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.err != nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		j.err = fmt.Errorf("marshal %s event: %w", e.EventType(), err)
		return
	}
	data = append(data, '\n')
	if _, err := j.w.Write(data); err != nil {
		j.err = fmt.Errorf("write %s event: %w", e.EventType(), err)
	}
}

// Err returns the first error met while writing.
func (j *JSONLWriter) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

// ReadJSONL decodes a stream written by JSONLWriter. Blank lines are skipped.
func ReadJSONL(r io.Reader) ([]Event, error) {
	var events []Event
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		e, err := Decode(data)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		events = append(events, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	return events, nil
}

// Decode unmarshals a single event, using its "type" field to pick the model.
func Decode(data []byte) (Event, error) {
	var head struct {
		Type Type `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("failed to parse event: %w", err)
	}
	var e Event
	switch head.Type {
	case TypeView:
		e = &ViewEvent{}
	case TypeAction:
		e = &ActionEvent{}
	case TypeResource:
		e = &ResourceEvent{}
	case TypeError:
		e = &ErrorEvent{}
	case TypeLongTask:
		e = &LongTaskEvent{}
	default:
		return nil, fmt.Errorf("unknown event type %q", head.Type)
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, fmt.Errorf("failed to parse %s event: %w", head.Type, err)
	}
	return e, nil
}
