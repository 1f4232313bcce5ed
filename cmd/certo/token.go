package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"certo/internal/jwttoken"
	"certo/internal/platform/config"
)

// newTokenCmd mints a bearer token for an issuer profile, for use against
// the authenticated API endpoints.
func newTokenCmd() *cobra.Command {
	var (
		profileID int64
		ttl       time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Generate an issuer API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			if profileID <= 0 {
				return fmt.Errorf("--profile-id is required")
			}
			cfg := config.FromEnv()
			token, err := jwttoken.NewService(cfg.JWTSigningKey, "certo").Generate(profileID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().Int64Var(&profileID, "profile-id", 0, "issuer profile id the token acts as")
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}
