package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/envfile"
)

func newGitIgnoreCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "gitignore",
		Short: "Ensure the secrets file is git-ignored",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			envPath := filepath.Join(cfg.Workspace, cfg.EnvFile)
			dir, name := filepath.Dir(envPath), filepath.Base(envPath)

			if envfile.IsGitIgnored(dir, name) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s is already git-ignored\n", name)
				return nil
			}
			if err := envfile.EnsureGitIgnored(dir, name); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s to .gitignore\n", name)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	return cmd
}
