package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vitos/fx_swing_trader/internal/config"
	"github.com/vitos/fx_swing_trader/internal/infrastructure/logger"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "swingbot",
		Short: "Forex swing trading engine against an MT5-style bridge",
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to config file")
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(zonesCmd)
	rootCmd.AddCommand(journalCmd)
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, console bool) (*zap.Logger, error) {
	if console {
		return logger.NewConsoleLogger(cfg.Logging.Level)
	}
	return logger.NewLogger(cfg.Logging.Level)
}
