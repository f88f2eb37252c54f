package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/perms"
)

func newPermsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "perms",
		Short: "Fix and verify bind-mount ownership",
	}

	cmd.AddCommand(newPermsInitCmd())
	cmd.AddCommand(newPermsFixCmd())
	cmd.AddCommand(newPermsWaitCmd())
	return cmd
}

func newPermsInitCmd() *cobra.Command {
	var (
		configPath string
		timeout    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Fix ownership, then wait for the paths to become writable",
		Long: `The full permission setup used by the on-create hook: chown/chmod every
configured path, then poll until all of them accept writes or the timeout
expires.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			paths := permPaths(cfg)
			for _, p := range paths {
				if err := perms.EnsureOwnership(p, cfg.Perms.UID, cfg.Perms.GID); err != nil {
					return err
				}
			}
			if timeout == 0 {
				timeout = time.Duration(cfg.Perms.TimeoutSeconds) * time.Second
			}
			interval := time.Duration(cfg.Perms.IntervalSeconds) * time.Second
			if err := perms.WaitWritable(cmd.Context(), paths, timeout, interval); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d path(s) owned and writable\n", len(paths))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "readiness timeout (default from config)")
	return cmd
}

func newPermsFixCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Chown and chmod the configured bind-mount paths",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			paths := permPaths(cfg)
			for _, p := range paths {
				if err := perms.EnsureOwnership(p, cfg.Perms.UID, cfg.Perms.GID); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Ownership fixed on %d path(s): %s\n",
				len(paths), strings.Join(paths, ", "))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	return cmd
}

func newPermsWaitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "wait",
		Short: "Block until the configured paths are writable",
		Long: `Polls each configured path until it accepts a write probe or the timeout
expires. Run this before provisioning steps that write into cache mounts:
ownership fixes from the container entrypoint can land after the hook starts.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			paths := permPaths(cfg)
			timeout := time.Duration(cfg.Perms.TimeoutSeconds) * time.Second
			interval := time.Duration(cfg.Perms.IntervalSeconds) * time.Second

			if err := perms.WaitWritable(cmd.Context(), paths, timeout, interval); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "All %d path(s) writable\n", len(paths))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	return cmd
}

// permPaths is the readiness set: explicit config paths, or every volume
// mount path when none are configured.
func permPaths(cfg *config.Config) []string {
	if len(cfg.Perms.Paths) > 0 {
		return cfg.Perms.Paths
	}
	paths := make([]string, len(cfg.Volumes))
	for i, v := range cfg.Volumes {
		paths[i] = v.MountPath
	}
	return paths
}
