package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/rumsession/internal/report"
	"github.com/fakeyudi/rumsession/internal/scenario"
)

var (
	replayFormat string
	replayEvents string
)

var replayCmd = &cobra.Command{
	Use:   "replay <scenario.yaml>",
	Short: "Replay a scenario and write its RUM events and session report",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := scenario.Load(args[0])
		if err != nil {
			return err
		}

		opts, release, err := monitorOptions()
		if err != nil {
			return err
		}
		defer release()

		events, err := scenario.Run(s, cfg.RUM(), opts...)
		if err != nil {
			return fmt.Errorf("replay %s: %w", args[0], err)
		}

		base := strings.TrimSuffix(filepath.Base(args[0]), filepath.Ext(args[0]))
		eventsPath := replayEvents
		if eventsPath == "" {
			eventsPath = filepath.Join(outputDir(), base+".events.jsonl")
		}
		if err := writeEvents(eventsPath, events); err != nil {
			return fmt.Errorf("write events: %w", err)
		}

		format := replayFormat
		if format == "" {
			format = cfg.DefaultFormat
		}
		rep := report.Build(events)
		data, err := renderReport(rep, format)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(outputDir(), 0o755); err != nil {
			return err
		}
		reportPath := filepath.Join(outputDir(), base+"-report"+extFor(format))
		if err := os.WriteFile(reportPath, data, 0o644); err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		cmd.Printf("Replayed %d steps: %d events in %d sessions.\n", len(s.Steps), len(events), len(rep.Sessions))
		cmd.Printf("Events: %s\n", eventsPath)
		cmd.Printf("Report: %s\n", reportPath)
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayFormat, "format", "", "Report format: markdown or json (overrides config)")
	replayCmd.Flags().StringVar(&replayEvents, "events", "", "Path of the JSON-lines events file (default <output_dir>/<scenario>.events.jsonl)")
	rootCmd.AddCommand(replayCmd)
}
