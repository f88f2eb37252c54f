package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/dockercli"
)

func newCleanupCmd() *cobra.Command {
	var (
		configPath string
		volumes    bool
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Remove the devcontainer and optionally its cache volumes",
		Long: `Removes the devcontainer and prunes dangling build state. --volumes also
deletes the named cache volumes, which throws away all cached packages and
tool installs; that requires --force or an interactive confirmation.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCleanup(cmd, configPath, volumes, force)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	cmd.Flags().BoolVar(&volumes, "volumes", false, "also remove the cache volumes")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "skip the confirmation prompt")
	return cmd
}

func runCleanup(cmd *cobra.Command, configPath string, volumes, force bool) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	docker := &dockercli.Docker{Runner: newCLIRunner(cmd, cfg)}

	if volumes && !force {
		names := make([]string, len(cfg.Volumes))
		for i, v := range cfg.Volumes {
			names[i] = v.Name
		}
		fmt.Fprintf(out, "This deletes cache volumes: %s\nType 'yes' to continue: ", strings.Join(names, ", "))
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if strings.TrimSpace(line) != "yes" {
			fmt.Fprintln(out, "Aborted")
			return nil
		}
	}

	if err := docker.ContainerRemove(ctx, cfg.Container.Name, true); err != nil {
		// Container may simply not exist; report and keep going.
		fmt.Fprintf(out, "WARNING: remove container: %v\n", err)
	} else {
		fmt.Fprintf(out, "Removed container %s\n", cfg.Container.Name)
	}

	if volumes {
		existing, err := docker.VolumeNames(ctx)
		if err != nil {
			return err
		}
		present := map[string]bool{}
		for _, n := range existing {
			present[n] = true
		}
		for _, v := range cfg.Volumes {
			if !present[v.Name] {
				continue
			}
			if err := docker.VolumeRemove(ctx, v.Name, true); err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed volume %s\n", v.Name)
		}
	}

	if err := docker.Prune(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "Cleanup complete")
	return nil
}
