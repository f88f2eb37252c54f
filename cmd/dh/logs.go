package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/dockercli"
	"github.com/zulandar/dockhand/internal/models"
)

func newLogsCmd() *cobra.Command {
	var (
		configPath string
		follow     bool
		tail       int
		session    string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show devcontainer logs or captured command output",
		Long: `Without flags, streams the devcontainer's docker logs. --session replays
the captured output of a past dockhand subprocess from the state store
(session IDs appear in 'dh status').`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if session != "" {
				return showSessionLogs(cmd, cfg, session)
			}

			docker := &dockercli.Docker{Runner: newCLIRunner(cmd, cfg)}
			id, err := docker.ContainerID(cmd.Context(), cfg.Container.Name)
			if err != nil {
				return err
			}
			if id == "" {
				return fmt.Errorf("no container named %s is running", cfg.Container.Name)
			}
			return docker.Logs(cmd.Context(), id, follow, tail)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow log output")
	cmd.Flags().IntVar(&tail, "tail", 200, "number of lines to show from the end")
	cmd.Flags().StringVar(&session, "session", "", "replay a captured command session from the state store")
	return cmd
}

func showSessionLogs(cmd *cobra.Command, cfg *config.Config, session string) error {
	gdb, err := openState(cfg)
	if err != nil {
		return err
	}
	var logs []models.CommandLog
	if err := gdb.Where("session_id = ?", session).Order("id ASC").Find(&logs).Error; err != nil {
		return fmt.Errorf("load session %s: %w", session, err)
	}
	if len(logs) == 0 {
		return fmt.Errorf("no captured output for session %s", session)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "$ %s\n", logs[0].Command)
	for _, l := range logs {
		prefix := ""
		if l.Direction == "err" {
			prefix = "! "
		}
		fmt.Fprintf(out, "%s%s", prefix, l.Content)
	}
	return nil
}
