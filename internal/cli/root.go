// Package cli defines the cobra command tree for the keywe backend.
package cli

import (
	"keywe-backend/internal/config"
	"keywe-backend/internal/utils"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Every subcommand loads configuration
// from the environment (and .env) before it runs.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "keywe",
		Short:         "KeyWe real-estate marketplace backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(),
		newMigrateCmd(),
		newSeedCmd(),
		newRetagCmd(),
		newCreateAdminCmd(),
	)
	return root
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	utils.SetupLogger(cfg.Server.Environment, cfg.Server.LogLevel)
	utils.RegisterValidators()
	return cfg, nil
}
