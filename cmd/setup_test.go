package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/rumsession/internal/profile"
)

func TestSetupSavesProfileStampedOnEvents(t *testing.T) {
	tmp := isolate(t)
	rootCmd.SetIn(strings.NewReader("u-1\nAda\nada@example.com\njson\nreports\ny\n"))
	t.Cleanup(func() { rootCmd.SetIn(nil) })

	out, err := executeCommand(rootCmd, "setup")
	require.NoError(t, err)
	assert.Contains(t, out, "Profile saved")

	prof, err := profile.Load()
	require.NoError(t, err)
	assert.Equal(t, &profile.Profile{
		UserID:                "u-1",
		Name:                  "Ada",
		Email:                 "ada@example.com",
		DefaultFormat:         "json",
		OutputDir:             "reports",
		TrackBackgroundEvents: true,
	}, prof)

	// The profile fills the config gaps and its user is stamped on events.
	writeFile(t, filepath.Join(tmp, "home.yaml"), homeScenario)
	_, err = executeCommand(rootCmd, "replay", "home.yaml")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join("reports", "home-report.json"))
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join("reports", "home.events.jsonl"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"usr":{"id":"u-1","name":"Ada","email":"ada@example.com"}`)
	assert.True(t, *GetConfig().TrackBackgroundEvents)
}
