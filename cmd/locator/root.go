package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/medlocator/hospital-map/backend/internal/infrastructure/observability"
	"github.com/medlocator/hospital-map/backend/pkg/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "locator",
	Short: "Hospital map operations tool",
	Long:  "Runs medical facility searches from the terminal and manages the hospital database schema.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		observability.InitLogger("locator", cfg.Server.Env)
		return nil
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
