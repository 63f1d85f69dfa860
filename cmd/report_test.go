package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fakeyudi/rumsession/internal/report"
)

func TestReportRendersEventsFile(t *testing.T) {
	tmp := isolate(t)
	writeFile(t, filepath.Join(tmp, "home.yaml"), homeScenario)
	_, err := executeCommand(rootCmd, "replay", "home.yaml")
	require.NoError(t, err)

	out, err := executeCommand(rootCmd, "report", "home.events.jsonl")
	require.NoError(t, err)
	assert.Contains(t, out, "# RUM sessions: rumsession")
	assert.Contains(t, out, "| Home |")

	_, err = executeCommand(rootCmd, "report", "home.events.jsonl", "--format", "json", "-o", "r.json")
	require.NoError(t, err)
	data, err := os.ReadFile("r.json")
	require.NoError(t, err)
	rep, err := (&report.JSONParser{}).Parse(data)
	require.NoError(t, err)
	assert.Len(t, rep.Sessions, 1)
}

func TestReportMissingFile(t *testing.T) {
	isolate(t)
	_, err := executeCommand(rootCmd, "report", "nope.jsonl")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestReportUnknownFormat(t *testing.T) {
	tmp := isolate(t)
	writeFile(t, filepath.Join(tmp, "empty.jsonl"), "")
	_, err := executeCommand(rootCmd, "report", "empty.jsonl", "--format", "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown report format "pdf"`)
}
