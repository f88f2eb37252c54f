package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/cache"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/dockercli"
	"github.com/zulandar/dockhand/internal/envfile"
	"github.com/zulandar/dockhand/internal/lifecycle"
	"github.com/zulandar/dockhand/internal/perms"
	"github.com/zulandar/dockhand/internal/toolchain"
)

func newHookCmd() *cobra.Command {
	var (
		configPath string
		strict     bool
	)

	cmd := &cobra.Command{
		Use:   "hook [on-create|post-create|post-start]",
		Short: "Run a devcontainer lifecycle hook",
		Long: `Runs the step sequence configured for one devcontainer lifecycle hook.
A failing step is recorded and reported but does not abort the hook: a
half-provisioned container beats no container. --strict makes any failure
fatal, for CI.

Wire these into devcontainer.json:

  "onCreateCommand":   "dh hook on-create",
  "postCreateCommand": "dh hook post-create",
  "postStartCommand":  "dh hook post-start"`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"on-create", "post-create", "post-start"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHook(cmd, configPath, args[0], strict)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	cmd.Flags().BoolVar(&strict, "strict", false, "fail the hook when any step fails")
	return cmd
}

func runHook(cmd *cobra.Command, configPath, hookName string, strict bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	var stage string
	var stepNames []string
	switch hookName {
	case "on-create":
		stage, stepNames = lifecycle.StageOnCreate, cfg.Hooks.OnCreate
	case "post-create":
		stage, stepNames = lifecycle.StagePostCreate, cfg.Hooks.PostCreate
	case "post-start":
		stage, stepNames = lifecycle.StagePostStart, cfg.Hooks.PostStart
	default:
		return fmt.Errorf("unknown hook %q", hookName)
	}

	o := &lifecycle.Orchestrator{
		Out:    cmd.OutOrStdout(),
		Strict: strict,
	}
	if gdb, err := openState(cfg); err == nil {
		o.DB = gdb
	}
	o.Steps = hookSteps(cfg, o)

	_, err = o.RunHook(cmd.Context(), stage, stepNames)
	return err
}

// hookSteps binds the provisioning components to the step names hooks refer
// to in config.
func hookSteps(cfg *config.Config, o *lifecycle.Orchestrator) map[string]lifecycle.StepFunc {
	return map[string]lifecycle.StepFunc{
		"perms": func(ctx context.Context) (string, error) {
			paths := permPaths(cfg)
			for _, p := range paths {
				if err := perms.EnsureOwnership(p, cfg.Perms.UID, cfg.Perms.GID); err != nil {
					return "", err
				}
			}
			timeout := time.Duration(cfg.Perms.TimeoutSeconds) * time.Second
			interval := time.Duration(cfg.Perms.IntervalSeconds) * time.Second
			if err := perms.WaitWritable(ctx, paths, timeout, interval); err != nil {
				return "", err
			}
			return fmt.Sprintf("%d path(s) owned and writable", len(paths)), nil
		},

		"caches": func(ctx context.Context) (string, error) {
			m := &cache.Manager{DB: o.DB, Volumes: cfg.Volumes}
			stats, err := m.Init()
			if err != nil {
				return "", err
			}
			if !stats.Changed() {
				return fmt.Sprintf("%d volume(s) already set up", stats.AlreadySetup), nil
			}
			return fmt.Sprintf("%d dir(s), %d link(s) created", stats.DirsCreated, stats.LinksCreated), nil
		},

		"tools": func(ctx context.Context) (string, error) {
			if len(cfg.Tools.List) == 0 {
				return "no tools configured", nil
			}
			in := &toolchain.Installer{
				DB:         o.DB,
				InstallDir: cfg.Tools.InstallDir,
				CacheDir:   cfg.Tools.CacheDir,
				Jobs:       cfg.Tools.Jobs,
			}
			results := in.InstallAll(ctx, cfg.Tools.List)
			cached, installed, failed := 0, 0, 0
			var firstErr error
			for _, r := range results {
				switch {
				case r.Err != nil:
					failed++
					if firstErr == nil {
						firstErr = fmt.Errorf("%s@%s: %w", r.Tool, r.Version, r.Err)
					}
				case r.Source == toolchain.SourceCache:
					cached++
				default:
					installed++
				}
			}
			if failed > 0 {
				return "", fmt.Errorf("%d tool(s) failed, first: %w", failed, firstErr)
			}
			return fmt.Sprintf("%d from cache, %d installed", cached, installed), nil
		},

		"env": func(ctx context.Context) (string, error) {
			envPath := filepath.Join(cfg.Workspace, cfg.EnvFile)
			f, err := envfile.Load(envPath)
			if err != nil {
				return "no " + cfg.EnvFile + " found, skipping", nil
			}
			f.LoadIntoEnv()
			if missing := f.Missing(); len(missing) > 0 {
				return fmt.Sprintf("loaded %d value(s), missing %s",
					len(f.Keys()), strings.Join(missing, ", ")), nil
			}
			return fmt.Sprintf("loaded %d value(s)", len(f.Keys())), nil
		},

		"restore": func(ctx context.Context) (string, error) {
			argv := cfg.Hooks.RestoreCommand
			if len(argv) == 0 {
				argv = []string{"dotnet", "restore"}
			}
			r := &dockercli.Runner{DB: o.DB, Out: o.Out}
			if err := r.Run(ctx, argv[0], argv[1:]...); err != nil {
				return "", err
			}
			return strings.Join(argv, " "), nil
		},
	}
}
