package event

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEvents() []Event {
	date := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	common := func(t Type) Common {
		return Common{
			Date:        Millis(date),
			Type:        t,
			Application: Application{ID: "app"},
			Session:     Session{ID: "s1", Type: "user", IsActive: true},
			DD:          DD{Session: &DDSession{SessionPrecondition: "user_app_launch", StartDate: Millis(date)}},
		}
	}
	view := &ViewEvent{Common: common(TypeView), View: ViewDetails{ID: "v1", Name: "Home", URL: "app/home", TimeSpent: Nanos(time.Second), IsActive: true}}
	view.DD.DocumentVersion = 2
	status := 200
	return []Event{
		view,
		&ActionEvent{Common: common(TypeAction), View: ViewRef{ID: "v1", URL: "app/home"}, Action: ActionDetails{ID: "a1", Type: "tap", LoadingTime: NanosPtr(100*time.Millisecond, true)}},
		&ResourceEvent{Common: common(TypeResource), View: ViewRef{ID: "v1"}, Resource: ResourceDetails{ID: "r1", URL: "https://example.com", Method: "GET", StatusCode: &status}},
		&ErrorEvent{Common: common(TypeError), View: ViewRef{ID: "v1"}, Error: ErrorDetails{ID: "e1", Message: "boom", Source: "custom"}},
		&LongTaskEvent{Common: common(TypeLongTask), View: ViewRef{ID: "v1"}, LongTask: LongTaskDetails{ID: "l1", Duration: Nanos(time.Second)}},
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w := NewJSONLWriter(&buf)
	events := sampleEvents()
	for _, e := range events {
		w.Write(e)
	}
	require.NoError(t, w.Err())
	assert.Equal(t, len(events), strings.Count(buf.String(), "\n"))

	got, err := ReadJSONL(&buf)
	require.NoError(t, err)
	assert.Equal(t, events, got)
}

func TestReadJSONLSkipsBlankLines(t *testing.T) {
	in := "\n" + `{"type":"error","session":{"id":"s1"},"view":{"id":"v1"},"error":{"message":"x"}}` + "\n\n"
	got, err := ReadJSONL(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "s1", got[0].SessionID())
	assert.Equal(t, "v1", got[0].ViewID())
}

func TestReadJSONLReportsLine(t *testing.T) {
	in := `{"type":"view","view":{"id":"v1"}}` + "\n" + `{"type":"rum"}` + "\n"
	_, err := ReadJSONL(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
	assert.Contains(t, err.Error(), `unknown event type "rum"`)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("not json"))
	assert.Error(t, err)
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestJSONLWriterKeepsFirstError(t *testing.T) {
	w := NewJSONLWriter(failingWriter{})
	for _, e := range sampleEvents() {
		w.Write(e)
	}
	require.Error(t, w.Err())
	assert.Contains(t, w.Err().Error(), "write view event")
}

func TestMultiWriterAndRecorder(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	w := MultiWriter(a, b, Discard)
	for _, e := range sampleEvents() {
		w.Write(e)
	}

	assert.Equal(t, a.Events(), b.Events())
	assert.Len(t, a.Events(), 5)
	require.Len(t, a.ViewEvents(), 1)
	assert.Equal(t, "Home", a.ViewEvents()[0].View.Name)
	require.Len(t, a.ActionEvents(), 1)
	assert.Equal(t, "tap", a.ActionEvents()[0].Action.Type)
}
