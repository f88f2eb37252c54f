package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/dashboard"
	"github.com/zulandar/dockhand/internal/toolchain"
)

func newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Install and inspect the cached Python tooling",
	}

	cmd.AddCommand(newToolsInstallCmd())
	cmd.AddCommand(newToolsStatusCmd())
	return cmd
}

func newToolsInstallCmd() *cobra.Command {
	var (
		configPath string
		jobs       int
	)

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the configured tools, restoring from cache when possible",
		Long: `Installs every tool listed in the config. A tool whose name@version is
already in the file cache is restored with a directory copy instead of
re-running its installer. Fresh installs are published back to the cache so
the next container rebuild skips them. One tool failing does not stop the
rest.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToolsInstall(cmd, configPath, jobs)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	cmd.Flags().IntVarP(&jobs, "jobs", "j", 0, "max concurrent installers (default from config)")
	return cmd
}

func runToolsInstall(cmd *cobra.Command, configPath string, jobs int) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if len(cfg.Tools.List) == 0 {
		fmt.Fprintln(out, "No tools configured")
		return nil
	}
	if jobs == 0 {
		jobs = cfg.Tools.Jobs
	}

	if gpu, how := (toolchain.GPUProbe{}).Detect(); gpu {
		fmt.Fprintf(out, "GPU detected (%s)\n", how)
	} else {
		fmt.Fprintln(out, "No GPU detected; CPU-only installs")
	}

	in := &toolchain.Installer{
		InstallDir: cfg.Tools.InstallDir,
		CacheDir:   cfg.Tools.CacheDir,
		Jobs:       jobs,
	}
	if gdb, err := openState(cfg); err == nil {
		in.DB = gdb
	}

	results := in.InstallAll(cmd.Context(), cfg.Tools.List)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			fmt.Fprintf(out, "[FAIL] %s@%s: %v\n", r.Tool, r.Version, r.Err)
			continue
		}
		fmt.Fprintf(out, "[PASS] %s@%s from %s (%s)\n",
			r.Tool, r.Version, r.Source, r.Duration.Round(time.Millisecond))
	}
	if failed > 0 {
		return fmt.Errorf("%d tool install(s) failed", failed)
	}
	return nil
}

func newToolsStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show recent tool install history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			gdb, err := openState(cfg)
			if err != nil {
				return err
			}
			rows, err := dashboard.RecentToolInstalls(gdb, 20)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(out, "No tool installs recorded yet")
				return nil
			}
			fmt.Fprintf(out, "%-16s %-12s %-8s %-8s %10s\n", "TOOL", "VERSION", "SOURCE", "STATUS", "DURATION")
			for _, r := range rows {
				fmt.Fprintf(out, "%-16s %-12s %-8s %-8s %8dms\n", r.Tool, r.Version, r.Source, r.Status, r.DurationMs)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	return cmd
}
