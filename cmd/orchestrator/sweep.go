package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSweepCommand() *cobra.Command {
	var today string

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Complete scheduled sessions dated before today",
		Long: `Run the auto-completion sweep once and exit.

Example:
  orchestrator sweep
  orchestrator sweep --today 2024-03-11`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			day := a.sweeps.Today()
			if today != "" {
				day, err = time.Parse("2006-01-02", today)
				if err != nil {
					return fmt.Errorf("invalid --today %q: want YYYY-MM-DD", today)
				}
			}

			count, err := a.sweeps.Sweep(cmd.Context(), day)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "transitioned %d session(s) before %s\n", count, day.Format("2006-01-02"))
			return nil
		},
	}

	cmd.Flags().StringVar(&today, "today", "", "calendar date to sweep against (YYYY-MM-DD)")
	return cmd
}
