package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tracklab/stravatag/pkg/strava"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authorize access to your Strava account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		oauth := strava.NewOAuth(cfg.Strava.ClientID, cfg.Strava.ClientSecret)
		tok, err := oauth.Authorize(ctx)
		if err != nil {
			return err
		}

		if _, err := strava.NewTokenManagerWithToken(oauth, cfg.Strava.CredentialsFile, *tok); err != nil {
			return err
		}

		zap.L().Info("authorization complete",
			zap.String("credentials_file", cfg.Strava.CredentialsFile),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
