package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/veerayerva/warehouse-returns/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "returns-docs",
	Short: "Warehouse returns document analysis service",
	Long:  "Analyzes returns paperwork with a document-intelligence model, gates extracted fields by confidence, and archives low-confidence documents for human review.",
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
