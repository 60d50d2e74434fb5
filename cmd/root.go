package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/dealsync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "dealsync",
	Short: "CRM deal sync and spreadsheet reconciliation",
	Long:  "Extracts deals and persons from Pipedrive into a record store, then reconciles the mailers, PURL and digisheet spreadsheets against it.",
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
