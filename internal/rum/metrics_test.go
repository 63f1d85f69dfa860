package rum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/fakeyudi/rumsession/internal/appstate"
)

var viewStart = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func newTestTNS() *tnsMetric {
	return newTNSMetric(TimeBasedTNSResourcePredicate{Threshold: DefaultTNSThreshold}, viewStart, "Home")
}

// foreground is an app-state history that stays active from before viewStart.
func foreground() *appstate.History {
	return appstate.NewHistory(appstate.Snapshot{State: appstate.Active, Date: viewStart.Add(-time.Second)})
}

func TestTNSIsLatestInitialResourceEnd(t *testing.T) {
	m := newTestTNS()
	m.trackResourceStart(viewStart, "a", testURL)
	m.trackResourceStart(viewStart.Add(50*time.Millisecond), "b", testURL)
	m.trackResourceStart(viewStart.Add(time.Second), "late", testURL)

	_, ok := m.value(foreground())
	assert.False(t, ok, "pending initial resources")

	m.trackResourceEnd("b", 350*time.Millisecond)
	m.trackResourceEnd("a", 300*time.Millisecond)
	m.trackResourceEnd("late", time.Second)

	v, ok := m.value(foreground())
	require.True(t, ok)
	assert.Equal(t, 400*time.Millisecond, v)
}

func TestTNSUsesResourceDuration(t *testing.T) {
	m := newTestTNS()
	m.trackResourceStart(viewStart.Add(20*time.Millisecond), "a", testURL)
	// The fetch took 180ms even though the stop arrived much later.
	m.trackResourceEnd("a", 180*time.Millisecond)

	v, ok := m.value(foreground())
	require.True(t, ok)
	assert.Equal(t, 200*time.Millisecond, v)
}

func TestTNSIgnoresNegativeDuration(t *testing.T) {
	m := newTestTNS()
	m.trackResourceStart(viewStart, "a", testURL)
	m.trackResourceEnd("a", -time.Millisecond)

	_, ok := m.value(foreground())
	assert.False(t, ok)
}

func TestTNSUnavailableWhenAppLeavesForeground(t *testing.T) {
	m := newTestTNS()
	m.trackResourceStart(viewStart, "a", testURL)
	m.trackResourceEnd("a", 500*time.Millisecond)

	history := foreground()
	history.Append(appstate.Snapshot{State: appstate.Background, Date: viewStart.Add(200 * time.Millisecond)})
	history.Append(appstate.Snapshot{State: appstate.Active, Date: viewStart.Add(300 * time.Millisecond)})
	_, ok := m.value(history)
	assert.False(t, ok)

	later := foreground()
	later.Append(appstate.Snapshot{State: appstate.Background, Date: viewStart.Add(time.Second)})
	v, ok := m.value(later)
	require.True(t, ok, "background after the resources settled")
	assert.Equal(t, 500*time.Millisecond, v)
}

func TestTNSUnavailableWhenViewStopsWithPendingResource(t *testing.T) {
	m := newTestTNS()
	m.trackResourceStart(viewStart, "a", testURL)
	m.trackViewStop()
	m.trackResourceEnd("a", time.Second)

	_, ok := m.value(foreground())
	assert.False(t, ok)
}

func TestTNSUnavailableWithoutInitialResources(t *testing.T) {
	m := newTestTNS()
	m.trackResourceStart(viewStart.Add(DefaultTNSThreshold), "a", testURL)
	m.trackResourceEnd("a", time.Second)
	m.trackViewStop()

	_, ok := m.value(foreground())
	assert.False(t, ok)
}

// Feature: rumsession, Property 4: A resource is initial iff it starts within the TNS threshold
func TestTNSThresholdIsExclusive(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		threshold := time.Duration(rapid.Int64Range(int64(time.Millisecond), int64(time.Second)).Draw(t, "threshold"))
		offset := time.Duration(rapid.Int64Range(-int64(time.Second), 2*int64(threshold)).Draw(t, "offset"))
		loading := time.Duration(rapid.Int64Range(0, int64(time.Second)).Draw(t, "loading"))

		m := newTNSMetric(TimeBasedTNSResourcePredicate{Threshold: threshold}, viewStart, "Home")
		m.trackResourceStart(viewStart.Add(offset), "r", testURL)
		m.trackResourceEnd("r", loading)

		v, ok := m.value(foreground())
		initial := offset >= 0 && offset < threshold
		if ok != initial {
			t.Fatalf("offset %v, threshold %v: value available = %v", offset, threshold, ok)
		}
		if ok && v != offset+loading {
			t.Fatalf("got TNS %v, want %v", v, offset+loading)
		}
	})
}

func newTestINV() *invMetric {
	return newINVMetric(TimeBasedINVActionPredicate{MaxTimeToNextView: DefaultINVMaxTimeToNextView})
}

func TestINVUsesLastQualifyingActionOfPreviousView(t *testing.T) {
	m := newTestINV()
	m.trackViewStart(viewStart, "Home", "v1")
	m.trackAction(viewStart.Add(time.Second), viewStart.Add(time.Second), "v1", ActionTap, "first")
	m.trackAction(viewStart.Add(2*time.Second), viewStart.Add(2*time.Second), "v1", ActionTap, "second")
	m.trackViewStart(viewStart.Add(2500*time.Millisecond), "Cart", "v2")

	v, ok := m.value("v2")
	require.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, v)

	_, ok = m.value("v1")
	assert.False(t, ok, "first view has no predecessor")
}

func TestINVMeasuresScrollFromItsEnd(t *testing.T) {
	m := newTestINV()
	m.trackViewStart(viewStart, "Feed", "v1")
	scrollStart := viewStart.Add(time.Second)
	m.trackAction(scrollStart, scrollStart.Add(2*time.Second), "v1", ActionScroll, "list")
	m.trackViewStart(scrollStart.Add(2500*time.Millisecond), "Detail", "v2")

	v, ok := m.value("v2")
	require.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, v)
}

func TestINVMeasuresTapFromItsStart(t *testing.T) {
	m := newTestINV()
	m.trackViewStart(viewStart, "Home", "v1")
	tap := viewStart.Add(time.Second)
	m.trackAction(tap, tap.Add(discreteActionTimeout), "v1", ActionTap, "open")
	m.trackViewStart(tap.Add(500*time.Millisecond), "Cart", "v2")

	v, ok := m.value("v2")
	require.True(t, ok)
	assert.Equal(t, 500*time.Millisecond, v)
}

func TestINVIgnoresActionsOutsideWindow(t *testing.T) {
	m := newTestINV()
	m.trackViewStart(viewStart, "Home", "v1")
	m.trackAction(viewStart, viewStart, "v1", ActionTap, "old")
	m.trackViewStart(viewStart.Add(DefaultINVMaxTimeToNextView+time.Millisecond), "Cart", "v2")

	_, ok := m.value("v2")
	assert.False(t, ok)
}

func TestINVWindowIsInclusive(t *testing.T) {
	m := newTestINV()
	m.trackViewStart(viewStart, "Home", "v1")
	m.trackAction(viewStart, viewStart, "v1", ActionTap, "edge")
	m.trackViewStart(viewStart.Add(DefaultINVMaxTimeToNextView), "Cart", "v2")

	v, ok := m.value("v2")
	require.True(t, ok)
	assert.Equal(t, DefaultINVMaxTimeToNextView, v)
}

func TestINVForgetsViewsOlderThanPredecessor(t *testing.T) {
	m := newTestINV()
	m.trackViewStart(viewStart, "Home", "v1")
	m.trackAction(viewStart, viewStart, "v1", ActionTap, "tap")
	m.trackViewStart(viewStart.Add(time.Second), "Cart", "v2")
	m.trackViewComplete()
	m.trackViewStart(viewStart.Add(2*time.Second), "Pay", "v3")
	m.trackViewComplete()

	assert.NotContains(t, m.views, "v1")
	assert.NotContains(t, m.actions, "v1")
	assert.Contains(t, m.views, "v3")
}

func TestDurationAttribute(t *testing.T) {
	for _, tc := range []struct {
		raw  any
		want time.Duration
		ok   bool
	}{
		{2 * time.Second, 2 * time.Second, true},
		{250, 250 * time.Millisecond, true},
		{int64(40), 40 * time.Millisecond, true},
		{1.5, 1500 * time.Microsecond, true},
		{"12", 0, false},
	} {
		got, ok := durationAttribute(tc.raw)
		assert.Equal(t, tc.ok, ok, "%v", tc.raw)
		assert.Equal(t, tc.want, got, "%v", tc.raw)
	}
}
