package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/cache"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/maintenance"
	"github.com/zulandar/dockhand/internal/notify"
)

func newDaemonCmd() *cobra.Command {
	var (
		configPath   string
		pollInterval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the background maintenance loop",
		Long: `Runs maintenance until interrupted: sweeps runs whose process died while
still marked running, refreshes cache volume statistics, and prunes caches
on the configured cron schedule. Prune failures go to the configured
notification sinks.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			gdb, err := openState(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			d := &maintenance.Daemon{
				DB:           gdb,
				Cache:        &cache.Manager{DB: gdb, Volumes: cfg.Volumes},
				Cfg:          cfg,
				Notify:       notify.FromConfig(cfg.Notify),
				PollInterval: pollInterval,
				Out:          cmd.OutOrStdout(),
			}
			return d.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	cmd.Flags().DurationVar(&pollInterval, "poll-interval", 0, "maintenance poll interval (default 30s)")
	return cmd
}
