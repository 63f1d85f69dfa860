package rum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOffViewRule(t *testing.T) {
	fresh := SessionState{IsInitialSession: true}
	tracked := SessionState{IsInitialSession: true, HasTrackedAnyView: true}
	later := SessionState{}

	tests := []struct {
		name       string
		state      SessionState
		foreground bool
		background bool
		want       offViewDecision
	}{
		{"initial session in foreground", fresh, true, false, offViewHandleInApplicationLaunchView},
		{"initial session in foreground with background events", fresh, true, true, offViewHandleInApplicationLaunchView},
		{"initial session in background", fresh, false, false, offViewDrop},
		{"initial session in background with background events", fresh, false, true, offViewHandleInBackgroundView},
		{"tracked session in foreground", tracked, true, true, offViewDrop},
		{"tracked session in background", tracked, false, false, offViewDrop},
		{"tracked session in background with background events", tracked, false, true, offViewHandleInBackgroundView},
		{"later session in foreground", later, true, true, offViewDrop},
		{"later session in background with background events", later, false, true, offViewHandleInBackgroundView},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, offViewRule(tc.state, tc.foreground, tc.background))
		})
	}
}

func TestOffViewDecisionCanHandle(t *testing.T) {
	longTask := AddLongTask{}
	resource := StartResource{}
	keepAlive := KeepSessionAlive{}

	assert.True(t, offViewHandleInApplicationLaunchView.canHandle(longTask))
	assert.False(t, offViewHandleInBackgroundView.canHandle(longTask))
	assert.True(t, offViewHandleInBackgroundView.canHandle(resource))
	assert.True(t, offViewHandleInApplicationLaunchView.canHandle(resource))
	assert.False(t, offViewHandleInApplicationLaunchView.canHandle(keepAlive))
	assert.False(t, offViewDrop.canHandle(resource))
	assert.Equal(t, "background_view", offViewHandleInBackgroundView.String())
}
