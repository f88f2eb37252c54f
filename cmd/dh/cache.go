package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/cache"
	"github.com/zulandar/dockhand/internal/config"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the devcontainer cache volumes",
	}

	cmd.AddCommand(newCacheInitCmd())
	cmd.AddCommand(newCacheStatusCmd())
	cmd.AddCommand(newCachePruneCmd())
	return cmd
}

func cacheManager(configPath string) (*cache.Manager, *config.Config, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, nil, err
	}
	m := &cache.Manager{Volumes: cfg.Volumes}
	if gdb, err := openState(cfg); err == nil {
		m.DB = gdb
	}
	return m, cfg, nil
}

func newCacheInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create cache directories and workspace symlinks",
		Long: `Ensures every configured cache volume's mount directory exists and its
workspace symlink (like ~/.nuget/packages) points into it. Safe to run on
every container start: already-correct state is left alone.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := cacheManager(configPath)
			if err != nil {
				return err
			}
			stats, err := m.Init()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !stats.Changed() {
				fmt.Fprintf(out, "Caches already set up (%d volume(s))\n", stats.AlreadySetup)
			} else {
				fmt.Fprintf(out, "Created %d dir(s), %d link(s); %d already set up\n",
					stats.DirsCreated, stats.LinksCreated, stats.AlreadySetup)
			}
			for _, p := range stats.Problems {
				fmt.Fprintf(out, "WARNING: %s\n", p)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	return cmd
}

func newCacheStatusCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show cache volume usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, _, err := cacheManager(configPath)
			if err != nil {
				return err
			}
			stats, err := m.Status()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-24s %-24s %8s %10s\n", "VOLUME", "MOUNT", "ENTRIES", "SIZE")
			for _, s := range stats {
				fmt.Fprintf(out, "%-24s %-24s %8d %10s\n", s.Name, s.MountPath, s.Entries, formatBytes(s.SizeBytes))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	return cmd
}

func newCachePruneCmd() *cobra.Command {
	var (
		configPath string
		maxAgeDays int
		maxSizeMB  int64
	)

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Remove old cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cfg, err := cacheManager(configPath)
			if err != nil {
				return err
			}
			if maxAgeDays == 0 {
				maxAgeDays = cfg.Cache.MaxAgeDays
			}
			if maxSizeMB == 0 {
				maxSizeMB = cfg.Cache.MaxSizeMB
			}
			removed, err := m.Prune(time.Duration(maxAgeDays)*24*time.Hour, maxSizeMB*1024*1024)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d cache entr%s\n", removed, pluralY(removed))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	cmd.Flags().IntVar(&maxAgeDays, "max-age-days", 0, "remove entries older than this (default from config)")
	cmd.Flags().Int64Var(&maxSizeMB, "max-size-mb", 0, "per-volume size cap in MB (default from config)")
	return cmd
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
