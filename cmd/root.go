package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fenchurch-labs/corep-assistant/internal/config"
)

// version is stamped at build time via -ldflags "-X main.version=...".
var version = "dev"

var (
	cfg     *config.Config
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:     "corep",
	Short:   "PRA COREP reporting assistant",
	Version: version,
	Long: `Analyzes bank capital scenarios against retrieved PRA Rulebook and CRR
text, populates COREP C 01.00 (Own Funds) with justifications via a
structured Claude call, validates the result, and keeps a full audit trail.`,
	Example: `  corep corpus load --file data/pra_corep_c01.json
  corep analyze --question "What is our CET1 capital?" --scenario "UK bank, GBP 500m ordinary shares..." --html report.html
  corep render --id 3f2a... --xlsx c0100.xlsx
  corep serve --port 8000`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
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

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
