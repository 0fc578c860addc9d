package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/myagiz61/backend/internal/infra/db/migrations"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the database schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := migrations.Up(cfg.Database.URL); err != nil {
				return fmt.Errorf("migrate up: %w", err)
			}
			return printVersion(cmd, cfg.Database.URL)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back the given number of migrations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := strconv.Atoi(args[0])
			if err != nil || steps <= 0 {
				return fmt.Errorf("steps must be a positive integer")
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if err := migrations.Down(cfg.Database.URL, steps); err != nil {
				return fmt.Errorf("migrate down: %w", err)
			}
			return printVersion(cmd, cfg.Database.URL)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printVersion(cmd, cfg.Database.URL)
		},
	})
	return cmd
}

func printVersion(cmd *cobra.Command, url string) error {
	v, dirty, err := migrations.Version(url)
	if err != nil {
		return err
	}
	cmd.Printf("schema version %d (dirty=%t)\n", v, dirty)
	return nil
}
