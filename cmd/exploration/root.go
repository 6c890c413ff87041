package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Konfistador/ExplorationAppBackend/internal/config"
	"github.com/Konfistador/ExplorationAppBackend/internal/gateways/database"
	"github.com/Konfistador/ExplorationAppBackend/internal/logger"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string

	cfg *config.Config
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "exploration",
		Short:         "Exploration progression backend",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			logger.Setup(cmd.ErrOrStderr(), cfg.Log.Level, cfg.Log.Color)
			return nil
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", defaultConfigPath(), "path to TOML config (optional)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewSeedCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

// defaultConfigPath returns config.toml when it exists in the working
// directory, otherwise the empty path which means defaults plus env.
func defaultConfigPath() string {
	if _, err := os.Stat("config.toml"); err == nil {
		return "config.toml"
	}
	return ""
}

// openDatabase connects and makes sure the schema exists.
func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	start := time.Now()
	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.InitializeSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logger.LogSystem("Database ready",
		slog.String("driver", cfg.DB.Driver),
		slog.Duration("took", time.Since(start)))
	return db, nil
}
