package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll for new activities until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		interval := time.Duration(cfg.RefreshMinutes) * time.Minute
		zap.L().Info("watching for new activities", zap.Duration("interval", interval))

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			result, err := env.tagger.RunOnce(ctx)
			if err != nil {
				// Keep polling: a failed pass is retried on the next tick and
				// is already recorded in the poll run history.
				zap.L().Error("pass failed", zap.Error(err))
			} else if result.Checked > 0 {
				zap.L().Info("pass complete",
					zap.Int("checked", result.Checked),
					zap.Int("tagged", result.Tagged),
				)
			}

			select {
			case <-ctx.Done():
				zap.L().Info("shutting down")
				return nil
			case <-ticker.C:
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
