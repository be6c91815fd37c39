package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "orchestrator",
		Short:         "Peer tutoring workflow orchestrator",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newSweepCommand())
	cmd.AddCommand(newTokenCommand())
	cmd.AddCommand(newMigrateCommand())

	return cmd
}
