package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/dockercli"
)

func newInspectCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "inspect [target]",
		Short: "Inspect the devcontainer (or any container/volume by name)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			docker := &dockercli.Docker{Runner: newCLIRunner(cmd, cfg)}

			target := cfg.Container.Name
			if len(args) == 1 {
				target = args[0]
			}

			// Resolve a container name to its ID so inspect output includes
			// runtime state even when the name is a label match.
			if id, err := docker.ContainerID(cmd.Context(), target); err == nil && id != "" {
				target = id
			}

			out, err := docker.Inspect(cmd.Context(), target)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	return cmd
}
