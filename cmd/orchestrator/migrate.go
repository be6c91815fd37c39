package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/noah-isme/tutoring-orchestrator/pkg/database"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the schema to the configured database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logr, err := loadConfig()
			if err != nil {
				return err
			}
			defer logr.Sync() //nolint:errcheck

			db, err := database.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open database: %w", err)
			}
			defer db.Close()

			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			logr.Sugar().Infow("schema applied", "driver", db.DriverName())
			return nil
		},
	}
}
