package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/summit-goods/commission-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "commission-cli",
	Short: "CRM-to-ERP customer sync and commission data validation",
	Long:  "Syncs active Copper CRM companies into the ERP customer table and validates monthly commission data against rep assignments and rate tables.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
