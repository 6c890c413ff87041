package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Konfistador/ExplorationAppBackend/internal/logger"
)

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	var reset bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create tables and indexes",
		Long: `Create every table and index the engine needs. Safe to run repeatedly.

With --reset all application tables are emptied afterwards.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			db, err := openDatabase(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			if reset {
				if err := db.ResetAppTables(ctx); err != nil {
					return err
				}
			}
			logger.LogSystem("Migration finished")
			return nil
		},
	}

	cmd.Flags().BoolVar(&reset, "reset", false, "empty all application tables")
	return cmd
}
