package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Scan recent activities once and tag the new ones",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		result, err := env.tagger.RunOnce(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("pass complete",
			zap.Int("checked", result.Checked),
			zap.Int("tagged", result.Tagged),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
