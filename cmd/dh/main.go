package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/db"
	"github.com/zulandar/dockhand/internal/dockercli"
	"gorm.io/gorm"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// Exit codes: 0 success, 1 failure, 2 missing prerequisite tool.
const (
	exitOK          = 0
	exitFailure     = 1
	exitMissingTool = 2
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dh",
		Short: "Dockhand: devcontainer provisioning and operations",
		Long:  "Dockhand provisions and operates the Aspire devcontainer: secrets, cache volumes, permissions, Python tooling, builds, and diagnostics.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newEnvCmd())
	cmd.AddCommand(newVerifyCmd())
	cmd.AddCommand(newPermsCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newToolsCmd())
	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newRebuildCmd())
	cmd.AddCommand(newUpCmd())
	cmd.AddCommand(newCleanupCmd())
	cmd.AddCommand(newInspectCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newValidateCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newHookCmd())
	cmd.AddCommand(newDaemonCmd())
	cmd.AddCommand(newDashboardCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newGitIgnoreCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "dh %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, dockercli.ErrMissingTool) {
			return exitMissingTool
		}
		return exitFailure
	}
	return exitOK
}

func main() {
	os.Exit(execute(newRootCmd()))
}

// loadConfig reads the config file, falling back to defaults when the file
// does not exist (dockhand works out of the box in a standard checkout).
func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err == nil {
		return cfg, nil
	}
	if os.IsNotExist(errors.Unwrap(err)) && path == config.DefaultPath {
		return config.Parse(nil)
	}
	return nil, err
}

// openState opens and migrates the state store named by the config.
func openState(cfg *config.Config) (*gorm.DB, error) {
	gdb, err := db.Open(cfg.State.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}
