package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/rumsession/internal/appstate"
	"github.com/fakeyudi/rumsession/internal/event"
	"github.com/fakeyudi/rumsession/internal/report"
	"github.com/fakeyudi/rumsession/internal/rum"
	"github.com/fakeyudi/rumsession/internal/scenario"
)

var (
	followEvents       string
	followLaunchReason string
	followInitialState string
)

var followCmd = &cobra.Command{
	Use:   "follow <steps.jsonl>",
	Short: "Apply steps to a live monitor as they are appended to a file (Ctrl-C to stop)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, err := appstate.ParseLaunchReason(followLaunchReason)
		if err != nil {
			return err
		}
		state, err := appstate.ParseState(followInitialState)
		if err != nil {
			return err
		}

		opts, release, err := monitorOptions()
		if err != nil {
			return err
		}
		defer release()

		eventsPath := followEvents
		if eventsPath == "" {
			base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
			eventsPath = filepath.Join(outputDir(), base+".events.jsonl")
		}
		if err := os.MkdirAll(filepath.Dir(eventsPath), 0o755); err != nil {
			return err
		}
		f, err := os.Create(eventsPath)
		if err != nil {
			return err
		}
		defer f.Close()
		jsonl := event.NewJSONLWriter(f)
		recorder := event.NewRecorder()

		now := time.Now()
		m := rum.NewMonitor(cfg.RUM(), append(opts,
			rum.WithWriter(event.MultiWriter(jsonl, recorder)),
			rum.WithLaunchInfo(appstate.LaunchInfo{Reason: reason, ProcessLaunchDate: now, RuntimeLoadDate: now}),
			rum.WithInitialAppState(state),
		)...)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cmd.Printf("Following %s, events go to %s (Ctrl-C to stop)\n", args[0], eventsPath)
		followErr := scenario.Follow(ctx, args[0], m, logger)
		m.Close()

		if err := jsonl.Err(); err != nil {
			return fmt.Errorf("write events: %w", err)
		}
		if followErr != nil {
			return followErr
		}
		cmd.Println()
		printReport(cmd.OutOrStdout(), report.Build(recorder.Events()))
		return nil
	},
}

func init() {
	followCmd.Flags().StringVar(&followEvents, "events", "", "Path of the JSON-lines events file (default <output_dir>/<steps>.events.jsonl)")
	followCmd.Flags().StringVar(&followLaunchReason, "launch-reason", "user", "Process launch reason: user, background, prewarm or uncertain")
	followCmd.Flags().StringVar(&followInitialState, "initial-state", "active", "Application state at launch")
	rootCmd.AddCommand(followCmd)
}
