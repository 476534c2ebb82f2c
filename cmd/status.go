package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var statusRuns int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show seen-activity count, recent poll runs and effective config",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return err
		}

		count, err := st.CountSeen(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("seen activities: %d\n\n", count)

		runs, err := st.RecentPollRuns(ctx, statusRuns)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("no poll runs recorded")
		} else {
			fmt.Println("recent poll runs:")
			for _, r := range runs {
				status := "running"
				if r.FinishedAt != nil {
					status = fmt.Sprintf("checked=%d tagged=%d", r.Checked, r.Tagged)
					if r.Error != "" {
						status += " error=" + r.Error
					}
				}
				fmt.Printf("  %s  %s  %s\n", r.StartedAt.Format("2006-01-02 15:04:05"), r.ID[:8], status)
			}
		}

		redacted := *cfg
		redacted.Strava.ClientSecret = "<redacted>"
		out, err := yaml.Marshal(redacted)
		if err != nil {
			return err
		}
		fmt.Printf("\neffective config:\n%s", out)
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusRuns, "runs", 10, "number of recent poll runs to show")
	rootCmd.AddCommand(statusCmd)
}
