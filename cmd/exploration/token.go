package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Konfistador/ExplorationAppBackend/internal/backend/middleware"
)

// NewTokenCommand prints a bearer token for an existing account. Meant for
// local testing against the HTTP API.
func NewTokenCommand(opts *RootOptions) *cobra.Command {
	var (
		accountID int64
		ttl       time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a bearer token for an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if accountID <= 0 {
				return fmt.Errorf("--account must be a positive id")
			}
			token, err := middleware.SignToken([]byte(opts.cfg.HTTP.JWTSecret), accountID, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}

	cmd.Flags().Int64Var(&accountID, "account", 0, "account id placed in the token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
