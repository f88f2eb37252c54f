package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/dockercli"
	"github.com/zulandar/dockhand/internal/envfile"
	"github.com/zulandar/dockhand/internal/notify"
)

// newCLIRunner wires a subprocess runner with command-log capture. State
// store trouble degrades to an uncaptured runner rather than blocking the
// build.
func newCLIRunner(cmd *cobra.Command, cfg *config.Config) *dockercli.Runner {
	r := &dockercli.Runner{Out: cmd.OutOrStdout()}
	if gdb, err := openState(cfg); err == nil {
		r.DB = gdb
	}
	return r
}

func newBuildCmd() *cobra.Command {
	var (
		configPath string
		noCache    bool
		doNotify   bool
		buildx     bool
		cacheRef   string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the devcontainer image",
		Long: `Builds the devcontainer image via the devcontainer CLI. Secrets from the
.env file are exported to the build environment so the Dockerfile can consume
them as build secrets without baking them into layers.

--buildx builds the image directly with docker buildx instead, passing the
captured credentials as build secrets and optionally pushing layer cache to a
registry (--cache-ref).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if buildx || cacheRef != "" {
				return runBuildxBuild(cmd, configPath, noCache, cacheRef, doNotify)
			}
			return runBuild(cmd, configPath, noCache, false, doNotify)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "build without the Docker layer cache")
	cmd.Flags().BoolVar(&doNotify, "notify", false, "send a notification on build failure")
	cmd.Flags().BoolVar(&buildx, "buildx", false, "build with docker buildx instead of the devcontainer CLI")
	cmd.Flags().StringVar(&cacheRef, "cache-ref", "", "registry ref for buildx layer cache (implies --buildx)")
	return cmd
}

func runBuildxBuild(cmd *cobra.Command, configPath string, noCache bool, cacheRef string, doNotify bool) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if cfg.Container.Image == "" {
		return fmt.Errorf("container.image must be set in config for --buildx")
	}

	var secretEnvs []string
	if f, err := envfile.Load(filepath.Join(cfg.Workspace, cfg.EnvFile)); err == nil {
		f.LoadIntoEnv()
		secretEnvs = f.Keys()
	}

	docker := &dockercli.Docker{Runner: newCLIRunner(cmd, cfg)}
	buildErr := docker.BuildxBuild(cmd.Context(), dockercli.BuildOpts{
		Dockerfile: filepath.Join(cfg.Workspace, cfg.Container.ConfigDir, "Dockerfile"),
		ContextDir: cfg.Workspace,
		Tag:        cfg.Container.Image,
		NoCache:    noCache,
		CacheRef:   cacheRef,
		SecretEnvs: secretEnvs,
	})
	if buildErr != nil {
		if doNotify {
			sent := notify.FromConfig(cfg.Notify).Notify(cmd.Context(),
				"devcontainer image build failed", buildErr.Error())
			fmt.Fprintf(out, "Notified %d sink(s)\n", sent)
		}
		return buildErr
	}
	fmt.Fprintf(out, "Built %s\n", cfg.Container.Image)
	return nil
}

func newRebuildCmd() *cobra.Command {
	var (
		configPath string
		doNotify   bool
	)

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the devcontainer from scratch and replace the running container",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, configPath, true, true, doNotify)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	cmd.Flags().BoolVar(&doNotify, "notify", false, "send a notification on build failure")
	return cmd
}

func runBuild(cmd *cobra.Command, configPath string, noCache, replace, doNotify bool) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	// Export .env so the devcontainer CLI and Dockerfile build secrets see
	// the captured credentials.
	if f, err := envfile.Load(filepath.Join(cfg.Workspace, cfg.EnvFile)); err == nil {
		f.LoadIntoEnv()
	}

	dc := &dockercli.Devcontainer{Runner: newCLIRunner(cmd, cfg)}

	buildErr := dc.Build(cmd.Context(), cfg.Workspace, noCache)
	if buildErr == nil && replace {
		fmt.Fprintln(out, "Image built; replacing running container")
		buildErr = dc.Up(cmd.Context(), cfg.Workspace, true)
	}

	if buildErr != nil {
		if doNotify {
			sent := notify.FromConfig(cfg.Notify).Notify(cmd.Context(),
				"devcontainer build failed", buildErr.Error())
			fmt.Fprintf(out, "Notified %d sink(s)\n", sent)
		}
		return buildErr
	}

	fmt.Fprintln(out, "Build complete")
	return nil
}

func newUpCmd() *cobra.Command {
	var (
		configPath     string
		removeExisting bool
	)

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Start the devcontainer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if f, err := envfile.Load(filepath.Join(cfg.Workspace, cfg.EnvFile)); err == nil {
				f.LoadIntoEnv()
			}
			dc := &dockercli.Devcontainer{Runner: newCLIRunner(cmd, cfg)}
			if err := dc.Up(cmd.Context(), cfg.Workspace, removeExisting); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Devcontainer is up")
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	cmd.Flags().BoolVar(&removeExisting, "remove-existing", false, "remove an existing container first")
	return cmd
}
