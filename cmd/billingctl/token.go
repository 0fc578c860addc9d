package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/myagiz61/backend/internal/config"
	"github.com/myagiz61/backend/internal/infra/api"
)

func tokenCmd() *cobra.Command {
	var (
		admin bool
		ttl   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token [user-id]",
		Short: "Mint a bearer token for a user (support and smoke tests)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := uuid.Validate(args[0]); err != nil {
				return fmt.Errorf("user id must be a UUID")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			tok, err := api.NewAuthManager(cfg.Auth.JWTSecret, ttl).Mint(args[0], admin)
			if err != nil {
				return err
			}
			cmd.Println(tok)
			return nil
		},
	}
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	cfg.Runtime.Dev = devMode
	return cfg, nil
}
