package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/invoiceguard/invoiceguard/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "invoiceguard",
	Short: "Diagnostics pipeline for e-invoice validation findings",
	Long:  "Runs XML e-invoices through the validation engine, enriches the raw findings with document evidence, and renders consumer-facing diagnoses in short, balanced, or detailed form.",
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
