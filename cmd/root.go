package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tracklab/stravatag/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "stravatag",
	Short: "Automatic titles and descriptions for Strava activities",
	Long:  "Watches your recent Strava activities and applies titles and descriptions from configured markers: distance bands, pace bands, start times, dates and GPS routes.",
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
