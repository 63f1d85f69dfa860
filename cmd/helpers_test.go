package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
)

// executeCommand runs a cobra command with the given args and captures combined output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	return executeCommandContext(context.Background(), root, args...)
}

// isolate points HOME, XDG_DATA_HOME and the working directory at a temp
// dir so no real state is touched. It returns that directory.
func isolate(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmp, "data"))
	t.Chdir(tmp)
	return tmp
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

const homeScenario = `name: home screen
launch:
  reason: user
  time_to_init: 200ms
steps:
  - op: start_view
    view: home
    name: Home
    path: app/home
  - after: 100ms
    op: start_resource
    key: r1
    url: https://api.example.com/items
  - after: 300ms
    op: stop_resource
    key: r1
    status: 200
  - after: 1s
    op: add_action
    action: tap
    name: buy
  - after: 500ms
    op: add_error
    message: payment failed
`

// executeCommandContext runs a cobra command under ctx and captures combined
// output. Flag variables survive between executions in one process, so they
// are reset first.
func executeCommandContext(ctx context.Context, root *cobra.Command, args ...string) (output string, err error) {
	replayFormat, replayEvents = "", ""
	reportFormat, reportOutput = "", ""
	followEvents, followLaunchReason, followInitialState = "", "user", "active"
	plainOutput = false
	statusApp, statusAll = "", false

	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteContextC(ctx)
	return buf.String(), err
}
