package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"FraudShield/internal/config"
	"FraudShield/internal/logging"
)

var (
	configPath string
	dbPath     string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "fraudshield",
	Short: "FraudShield - fraud warnings for web content",
	Long: `FraudShield scans the content of a page (webmail, chat or any site),
classifies each message with a remote model or local heuristics and overlays
risk-tiered warnings next to suspicious content.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (default: $FRAUDSHIELD_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite settings database (overrides storage.path)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
}

func loadConfig() config.Config {
	path := configPath
	if path == "" {
		path = os.Getenv("FRAUDSHIELD_CONFIG")
	}
	cfg := config.LoadFile(path)
	if dbPath != "" {
		cfg.Storage.Path = dbPath
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	return cfg
}

func newLogger(cmd *cobra.Command, cfg config.Config) *slog.Logger {
	return logging.NewWithWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
}
