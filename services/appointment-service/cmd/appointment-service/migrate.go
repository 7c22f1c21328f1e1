package main

import (
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema to the configured database",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := loggerFor(cmd)
			store, err := openStore(cmd.Context(), cmd, logger)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			if err := store.Migrate(cmd.Context()); err != nil {
				return err
			}
			logger.Info("schema applied")
			return nil
		},
	}
}
