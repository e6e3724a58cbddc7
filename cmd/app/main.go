package main

import (
	"fmt"
	"os"

	"SentiPulse/pkg/config"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "sentipulse",
	Short: "Market sentiment aggregation service",
	Long: `SentiPulse ingests sentiment-annotated messages per instrument, folds them into
per-window aggregates and turns every aggregate into a BUY, HOLD or SELL recommendation.`,
	SilenceUsage: true,
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	return cfg, nil
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config/config.yaml", "config file path")
	rootCmd.AddCommand(serveCmd, migrateCmd, aggregateCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sentipulse: %s\n", err)
		os.Exit(1)
	}
}
