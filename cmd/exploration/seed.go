package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/database"
)

func NewSeedCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert demo locations, storylines and trophies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
			defer cancel()

			db, err := openDatabase(ctx, opts.cfg)
			if err != nil {
				return err
			}
			defer db.Close()

			store := database.NewStore(db.BunDB(), opts.cfg.Progression.TxTimeoutDuration())
			return db.Seed(ctx, store)
		},
	}
}
