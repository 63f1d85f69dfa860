package appstate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryCurrentAndStateAt(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHistory(Snapshot{State: Inactive, Date: t0})

	h.Append(Snapshot{State: Active, Date: t0.Add(time.Second)})
	h.Append(Snapshot{State: Background, Date: t0.Add(3 * time.Second)})

	assert.Equal(t, Background, h.Current().State)
	assert.Equal(t, Inactive, h.StateAt(t0.Add(500*time.Millisecond)))
	assert.Equal(t, Active, h.StateAt(t0.Add(2*time.Second)))
	assert.Equal(t, Background, h.StateAt(t0.Add(time.Hour)))
}

func TestHistoryAppendCollapsesRepeatedStates(t *testing.T) {
	t0 := time.Now()
	h := NewHistory(Snapshot{State: Active, Date: t0})
	h.Append(Snapshot{State: Active, Date: t0.Add(time.Second)})
	assert.Len(t, h.Snapshots(), 1)
}

func TestHistoryAppendKeepsDateOrder(t *testing.T) {
	t0 := time.Now()
	h := NewHistory(Snapshot{State: Background, Date: t0})
	h.Append(Snapshot{State: Active, Date: t0.Add(2 * time.Second)})
	h.Append(Snapshot{State: Inactive, Date: t0.Add(time.Second)})

	snaps := h.Snapshots()
	require.Len(t, snaps, 3)
	assert.Equal(t, Inactive, snaps[1].State)
	assert.Equal(t, Active, snaps[2].State)
}

func TestHistoryContainsState(t *testing.T) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewHistory(Snapshot{State: Active, Date: t0})
	h.Append(Snapshot{State: Background, Date: t0.Add(2 * time.Second)})
	h.Append(Snapshot{State: Active, Date: t0.Add(3 * time.Second)})

	notActive := func(s State) bool { return s != Active }
	assert.False(t, h.ContainsState(t0, t0.Add(time.Second), notActive))
	assert.True(t, h.ContainsState(t0.Add(time.Second), t0.Add(2*time.Second), notActive))
	assert.True(t, h.ContainsState(t0.Add(2500*time.Millisecond), t0.Add(4*time.Second), notActive))
	assert.False(t, h.ContainsState(t0.Add(3*time.Second), t0.Add(time.Hour), notActive))
}

func TestFirstTransitionTo(t *testing.T) {
	t0 := time.Now()
	h := NewHistory(Snapshot{State: Background, Date: t0})
	_, ok := h.FirstTransitionTo(Active)
	assert.False(t, ok)

	h.Append(Snapshot{State: Active, Date: t0.Add(time.Second)})
	h.Append(Snapshot{State: Background, Date: t0.Add(2 * time.Second)})
	h.Append(Snapshot{State: Active, Date: t0.Add(3 * time.Second)})

	at, ok := h.FirstTransitionTo(Active)
	require.True(t, ok)
	assert.Equal(t, t0.Add(time.Second), at)
}

func TestParseState(t *testing.T) {
	for _, s := range []State{Active, Inactive, Background, Terminated} {
		got, err := ParseState(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseState("suspended")
	assert.Error(t, err)
}

func TestIsRunningInForeground(t *testing.T) {
	assert.True(t, Active.IsRunningInForeground())
	assert.True(t, Inactive.IsRunningInForeground())
	assert.False(t, Background.IsRunningInForeground())
	assert.False(t, Terminated.IsRunningInForeground())
}

func TestParseLaunchReason(t *testing.T) {
	for _, r := range []LaunchReason{LaunchUncertain, LaunchUser, LaunchBackground, LaunchPrewarm} {
		got, err := ParseLaunchReason(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}

	got, err := ParseLaunchReason("")
	require.NoError(t, err)
	assert.Equal(t, LaunchUncertain, got)

	_, err = ParseLaunchReason("cold")
	assert.Error(t, err)
}
