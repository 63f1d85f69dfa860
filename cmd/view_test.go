package cmd

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/fakeyudi/rumsession/internal/report"
)

// generateReport produces a report with 1-5 sessions of 1-4 views each.
func generateReport(t *rapid.T) *report.Report {
	start := time.Unix(rapid.Int64Range(1_000_000_000, 1_700_000_000).Draw(t, "unix_sec"), 0).UTC()
	rep := &report.Report{ApplicationID: "app", Events: rapid.IntRange(1, 100).Draw(t, "events")}
	nSessions := rapid.IntRange(1, 5).Draw(t, "sessions")
	for i := 0; i < nSessions; i++ {
		s := report.Session{ID: fmt.Sprintf("session-%d", i), Precondition: "user_app_launch", Start: start}
		nViews := rapid.IntRange(1, 4).Draw(t, "views")
		for j := 0; j < nViews; j++ {
			s.Views = append(s.Views, report.View{
				Name:      fmt.Sprintf("View%d_%d", i, j),
				Start:     start,
				TimeSpent: time.Duration(rapid.IntRange(0, 10_000).Draw(t, "ms")) * time.Millisecond,
			})
		}
		rep.Sessions = append(rep.Sessions, s)
	}
	return rep
}

// Feature: rumsession, Property 6: Plain view lists every session and view in order
func TestPrintReportOrder(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		rep := generateReport(rt)
		var buf bytes.Buffer
		printReport(&buf, rep)
		out := buf.String()

		pos := strings.Index(out, "## Summary")
		if pos != 0 {
			rt.Fatalf("summary must come first, got:\n%s", out)
		}
		for i, s := range rep.Sessions {
			header := fmt.Sprintf("## Session %d: %s", i+1, s.ID)
			next := strings.Index(out[pos:], header)
			if next < 0 {
				rt.Fatalf("missing %q in:\n%s", header, out)
			}
			pos += next
			for _, v := range s.Views {
				next = strings.Index(out[pos:], "    "+v.Name+"  ")
				if next < 0 {
					rt.Fatalf("view %q missing or out of order in:\n%s", v.Name, out)
				}
				pos += next
			}
		}
	})
}

func TestViewPlainFromEventsAndReport(t *testing.T) {
	tmp := isolate(t)
	writeFile(t, filepath.Join(tmp, "home.yaml"), homeScenario)
	_, err := executeCommand(rootCmd, "replay", "home.yaml")
	require.NoError(t, err)

	fromEvents, err := executeCommand(rootCmd, "view", "home.events.jsonl", "--plain")
	require.NoError(t, err)
	assert.Contains(t, fromEvents, "Precondition: user_app_launch")
	assert.Contains(t, fromEvents, "Home  ")
	assert.Contains(t, fromEvents, "(active)")

	// Output is not a terminal under test, so the TUI is skipped.
	fromReport, err := executeCommand(rootCmd, "view", "home-report.md")
	require.NoError(t, err)
	assert.Equal(t, fromEvents, fromReport)
}

func TestViewMissingFile(t *testing.T) {
	isolate(t)
	_, err := executeCommand(rootCmd, "view", "missing.md", "--plain")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file not found")
}

func TestPrintReportWithoutSessions(t *testing.T) {
	var buf bytes.Buffer
	printReport(&buf, &report.Report{})
	assert.Contains(t, buf.String(), "(no sessions)")
	assert.Contains(t, buf.String(), "Application: -")
}
