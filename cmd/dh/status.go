package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/dashboard"
)

func newStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent provisioning activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	gdb, err := openState(cfg)
	if err != nil {
		return err
	}

	runs, err := dashboard.RecentRuns(gdb, 10)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, "Recent runs:")
	if len(runs) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for _, r := range runs {
		finished := "running"
		if r.FinishedAt != nil {
			finished = r.FinishedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(out, "  %-12s %-12s %-9s ok=%d fail=%d  %s\n",
			r.ID, r.Stage, r.Status, r.StepsOK, r.StepsFail, finished)
	}

	checks, err := dashboard.LatestChecks(gdb)
	if err != nil {
		return err
	}
	if len(checks) > 0 {
		fmt.Fprintln(out, "\nCredentials (last verified):")
		for _, c := range checks {
			fmt.Fprintf(out, "  %-22s %-8s %s\n", c.Key, c.Status, c.CheckedAt.Format(time.RFC3339))
		}
	}

	caches, err := dashboard.CacheSummary(gdb)
	if err != nil {
		return err
	}
	if len(caches) > 0 {
		fmt.Fprintln(out, "\nCache volumes:")
		for _, c := range caches {
			fmt.Fprintf(out, "  %-24s %8d entries %10s\n", c.Name, c.Entries, formatBytes(c.SizeBytes))
		}
	}
	return nil
}
