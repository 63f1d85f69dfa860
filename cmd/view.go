package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/rumsession/internal/report"
	"github.com/fakeyudi/rumsession/internal/tui"
)

var plainOutput bool

var viewCmd = &cobra.Command{
	Use:   "view <file>",
	Short: "View a session report or a RUM events file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := loadReport(args[0])
		if err != nil {
			return err
		}

		if plainOutput || !term.IsTerminal(os.Stdout.Fd()) {
			printReport(cmd.OutOrStdout(), rep)
			return nil
		}
		return tui.Run(rep, args[0])
	},
}

// loadReport reads a rendered report, or builds one from a .jsonl events file.
func loadReport(path string) (*report.Report, error) {
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		events, err := readEvents(path)
		if err != nil {
			return nil, err
		}
		return report.Build(events), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, err
	}
	return report.Detect(data).Parse(data)
}

// printReport writes a plain-text summary of rep to w.
func printReport(w io.Writer, rep *report.Report) {
	fmt.Fprintln(w, "## Summary")
	fmt.Fprintf(w, "  Application: %s\n", orDash(rep.ApplicationID))
	fmt.Fprintf(w, "  Events:      %d\n", rep.Events)
	fmt.Fprintf(w, "  Sessions:    %d\n", len(rep.Sessions))
	fmt.Fprintln(w)

	if len(rep.Sessions) == 0 {
		fmt.Fprintln(w, "  (no sessions)")
		return
	}

	for i, s := range rep.Sessions {
		fmt.Fprintf(w, "## Session %d: %s\n", i+1, s.ID)
		fmt.Fprintf(w, "  Precondition: %s\n", orDash(s.Precondition))
		fmt.Fprintf(w, "  Started:      %s\n", s.Start.UTC().Format("2006-01-02 15:04:05.000 MST"))
		fmt.Fprintf(w, "  Duration:     %s\n", s.Duration)
		if s.TTID != nil {
			fmt.Fprintf(w, "  TTID:         %s\n", *s.TTID)
		}
		fmt.Fprintf(w, "  Errors:       %d\n", s.Errors)
		fmt.Fprintln(w, "  Views:")
		for _, v := range s.Views {
			state := ""
			if v.IsActive {
				state = " (active)"
			}
			fmt.Fprintf(w, "    %s  %s  %d actions, %d resources, %d errors%s\n",
				v.Name, v.TimeSpent, v.ActionCount, v.ResourceCount, v.ErrorCount, state)
		}
		fmt.Fprintln(w)
	}
}

func init() {
	viewCmd.Flags().BoolVar(&plainOutput, "plain", false, "plain text output instead of TUI")
	rootCmd.AddCommand(viewCmd)
}
