package main

import (
	"fmt"
	"strconv"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/medlocator/hospital-map/backend/internal/infrastructure/clients/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the hospitals schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := postgres.NewClient(cmd.Context(), &cfg.Database)
		if err != nil {
			return err
		}
		defer client.Close()
		return client.Migrate()
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [steps]",
	Short: "Roll back migrations (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n <= 0 {
				return fmt.Errorf("steps must be a positive integer, got %q", args[0])
			}
			steps = n
		}

		client, err := postgres.NewClient(cmd.Context(), &cfg.Database)
		if err != nil {
			return err
		}
		defer client.Close()
		return client.MigrateDown(steps)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := postgres.NewClient(cmd.Context(), &cfg.Database)
		if err != nil {
			return err
		}
		defer client.Close()

		version, dirty, err := client.MigrationVersion()
		if err != nil {
			return err
		}
		if dirty {
			log.Warn().Uint("version", version).Msg("Schema is dirty; fix the failed migration before continuing")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d\n", version)
		return nil
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}
