package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/rumsession/internal/rumcontext"
)

var (
	statusApp string
	statusAll bool
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the last RUM context published by a monitor",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := rumcontext.NewStore()
		if err != nil {
			return err
		}

		if statusAll {
			all, err := store.List()
			if err != nil {
				return err
			}
			if len(all) == 0 {
				cmd.Println("no RUM context recorded")
				return nil
			}
			for _, s := range all {
				state := "inactive"
				if s.IsSessionActive {
					state = "active"
				}
				cmd.Printf("%s  %s  session %s (%s)  view %s\n",
					s.UpdatedAt.Format(time.RFC3339), s.ApplicationID, orDash(s.SessionID), state, orDash(s.ViewName))
			}
			return nil
		}

		s, err := store.Load(statusApp)
		if err != nil {
			if errors.Is(err, rumcontext.ErrNoContext) {
				cmd.Println(err.Error())
				return nil
			}
			return err
		}

		cmd.Printf("Updated: %s\n", s.UpdatedAt.Format(time.RFC3339))
		cmd.Printf("Application: %s\n", orDash(s.ApplicationID))
		cmd.Printf("Session: %s\n", orDash(s.SessionID))
		if s.IsSessionActive {
			cmd.Println("Session state: active")
		} else {
			cmd.Println("Session state: inactive")
		}
		cmd.Printf("View: %s (%s)\n", orDash(s.ViewName), orDash(s.ViewPath))
		cmd.Printf("View ID: %s\n", orDash(s.ViewID))
		cmd.Printf("Action ID: %s\n", orDash(s.UserActionID))
		return nil
	},
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func init() {
	statusCmd.Flags().StringVar(&statusApp, "app", "", "application ID (default: most recently updated)")
	statusCmd.Flags().BoolVar(&statusAll, "all", false, "list the context of every application")
	rootCmd.AddCommand(statusCmd)
}
