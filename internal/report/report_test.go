package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/rumsession/internal/event"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func eventCommon(t event.Type, session string, date time.Time) event.Common {
	return event.Common{
		Date:        event.Millis(date),
		Type:        t,
		Application: event.Application{ID: "app"},
		Session:     event.Session{ID: session, Type: "user", IsActive: true},
		DD: event.DD{Session: &event.DDSession{
			SessionPrecondition: "user_app_launch",
			StartDate:           event.Millis(t0),
		}},
	}
}

func viewEvent(session, id, name string, start time.Time, spent time.Duration, version int64) *event.ViewEvent {
	e := &event.ViewEvent{
		Common: eventCommon(event.TypeView, session, start),
		View: event.ViewDetails{
			ID:        id,
			Name:      name,
			URL:       name,
			TimeSpent: event.Nanos(spent),
			IsActive:  true,
		},
	}
	e.DD.DocumentVersion = version
	return e
}

func TestBuildKeepsLatestViewVersion(t *testing.T) {
	events := []event.Event{
		viewEvent("s1", "v1", "Home", t0, time.Second, 1),
		viewEvent("s1", "v1", "Home", t0, 3*time.Second, 3),
		viewEvent("s1", "v1", "Home", t0, 2*time.Second, 2),
	}

	rep := Build(events)

	require.Len(t, rep.Sessions, 1)
	require.Len(t, rep.Sessions[0].Views, 1)
	v := rep.Sessions[0].Views[0]
	assert.Equal(t, int64(3), v.DocumentVersion)
	assert.Equal(t, 3*time.Second, v.TimeSpent)
	assert.Equal(t, "app", rep.ApplicationID)
	assert.Equal(t, 3, rep.Events)
}

func TestBuildSessionDurationSpansViews(t *testing.T) {
	events := []event.Event{
		viewEvent("s1", "v2", "Detail", t0.Add(2*time.Second), 1500*time.Millisecond, 1),
		viewEvent("s1", "v1", "Home", t0, 2*time.Second, 1),
	}

	s := Build(events).Sessions[0]

	assert.Equal(t, t0, s.Start)
	assert.Equal(t, 3500*time.Millisecond, s.Duration)
	assert.Equal(t, []string{"Home", "Detail"}, s.ViewNames())
	assert.Equal(t, "user_app_launch", s.Precondition)
}

func TestBuildAttributesActionsAndTTID(t *testing.T) {
	ttid := event.Nanos(1500 * time.Millisecond)
	start := &event.ActionEvent{
		Common: eventCommon(event.TypeAction, "s1", t0),
		View:   event.ViewRef{ID: "v1", URL: "ApplicationLaunch"},
		Action: event.ActionDetails{ID: "a1", Type: "application_start", LoadingTime: &ttid},
	}
	tap := &event.ActionEvent{
		Common: eventCommon(event.TypeAction, "s1", t0.Add(time.Second)),
		View:   event.ViewRef{ID: "v1", URL: "ApplicationLaunch"},
		Action: event.ActionDetails{ID: "a2", Type: "tap", Target: event.Target{Name: "OK"}},
	}
	status := 200
	res := &event.ResourceEvent{
		Common:   eventCommon(event.TypeResource, "s1", t0),
		View:     event.ViewRef{ID: "v1"},
		Resource: event.ResourceDetails{URL: "https://example.com", Method: "GET", StatusCode: &status, Duration: 42},
	}
	errEvent := &event.ErrorEvent{
		Common: eventCommon(event.TypeError, "s1", t0),
		View:   event.ViewRef{ID: "v1"},
		Error:  event.ErrorDetails{Message: "boom", Source: "custom"},
	}

	rep := Build([]event.Event{
		viewEvent("s1", "v1", "ApplicationLaunch", t0, time.Second, 1),
		start, tap, res, errEvent,
	})

	s := rep.Sessions[0]
	require.NotNil(t, s.TTID)
	assert.Equal(t, 1500*time.Millisecond, *s.TTID)
	assert.Equal(t, 1, s.Errors)
	require.Len(t, s.Views[0].Actions, 2)
	assert.Equal(t, "OK", s.Views[0].Actions[1].Name)
	require.Len(t, s.Views[0].Resources, 1)
	assert.Equal(t, 200, s.Views[0].Resources[0].StatusCode)
}

func TestBuildSkipsSessionsWithoutViews(t *testing.T) {
	orphan := &event.ErrorEvent{
		Common: eventCommon(event.TypeError, "s0", t0),
		View:   event.ViewRef{ID: "gone"},
	}
	rep := Build([]event.Event{orphan, viewEvent("s1", "v1", "Home", t0, time.Second, 1)})

	require.Len(t, rep.Sessions, 1)
	assert.Equal(t, "s1", rep.Sessions[0].ID)
}

func TestBuildEmpty(t *testing.T) {
	rep := Build(nil)
	assert.Empty(t, rep.Sessions)
	assert.Zero(t, rep.Events)
}
