package main

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/db"
	"github.com/zulandar/dockhand/internal/devjson"
	"github.com/zulandar/dockhand/internal/dockercli"
	"github.com/zulandar/dockhand/internal/envfile"
)

func newDoctorCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check devcontainer prerequisites and configuration",
		Long:  "Runs diagnostic checks on Dockhand prerequisites: config, binaries, Docker daemon, state store, schema, secrets file, and devcontainer.json.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	return cmd
}

type checkResult struct {
	name   string
	status string // "PASS", "FAIL", "WARN"
	detail string
}

func runDoctor(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Dockhand Doctor")
	fmt.Fprintln(out, "===============")

	var results []checkResult

	// 1. Config
	cfg, cfgResult := checkConfig(configPath)
	results = append(results, cfgResult)

	// 2. Binaries
	for _, bin := range []string{"docker", "devcontainer", "git", "dotnet"} {
		results = append(results, checkBinary(bin))
	}

	// 3. Docker daemon
	results = append(results, checkDockerDaemon(cmd))

	// 4. State store + schema
	if cfg != nil {
		results = append(results, checkStateStore(cfg)...)
	} else {
		results = append(results, checkResult{"State store", "FAIL", "skipped (no config)"})
	}

	// 5. Secrets file
	if cfg != nil {
		results = append(results, checkEnvFile(cfg)...)
	}

	// 6. devcontainer.json
	if cfg != nil {
		results = append(results, checkDevcontainerJSON(cfg))
	}

	passed, failed, warned := 0, 0, 0
	for _, r := range results {
		printCheckResult(out, r)
		switch r.status {
		case "PASS":
			passed++
		case "FAIL":
			failed++
		case "WARN":
			warned++
		}
	}

	fmt.Fprintf(out, "\n%d passed, %d failed, %d warning\n", passed, failed, warned)

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func printCheckResult(out io.Writer, r checkResult) {
	fmt.Fprintf(out, "[%s] %s: %s\n", r.status, r.name, r.detail)
}

func checkConfig(path string) (*config.Config, checkResult) {
	cfg, err := loadConfig(path)
	if err != nil {
		return nil, checkResult{"Config file", "FAIL", fmt.Sprintf("%s: %v", path, err)}
	}
	if _, statErr := os.Stat(path); statErr != nil {
		return cfg, checkResult{"Config file", "PASS", "not present, using defaults"}
	}
	return cfg, checkResult{"Config file", "PASS", path}
}

func checkBinary(name string) checkResult {
	path, err := exec.LookPath(name)
	if err != nil {
		switch name {
		case "dotnet":
			return checkResult{binaryLabel(name), "WARN", "not found (Aspire builds need the .NET SDK inside the container)"}
		case "devcontainer":
			return checkResult{binaryLabel(name), "FAIL", "not found (npm install -g @devcontainers/cli)"}
		}
		return checkResult{binaryLabel(name), "FAIL", "not found in PATH"}
	}

	cmd := exec.Command(path, "--version")
	out, err := cmd.Output()
	if err != nil {
		return checkResult{binaryLabel(name), "PASS", "found (version unknown)"}
	}
	version := strings.TrimSpace(strings.Split(string(out), "\n")[0])
	return checkResult{binaryLabel(name), "PASS", version}
}

func binaryLabel(name string) string {
	switch name {
	case "docker":
		return "Docker CLI"
	case "devcontainer":
		return "Devcontainer CLI"
	case "git":
		return "Git"
	case "dotnet":
		return ".NET SDK"
	default:
		return name
	}
}

func checkDockerDaemon(cmd *cobra.Command) checkResult {
	docker := &dockercli.Docker{Runner: &dockercli.Runner{}}
	if err := docker.Ping(cmd.Context()); err != nil {
		return checkResult{"Docker daemon", "FAIL", err.Error()}
	}
	return checkResult{"Docker daemon", "PASS", "reachable"}
}

func checkStateStore(cfg *config.Config) []checkResult {
	gdb, err := db.Open(cfg.State.DSN)
	if err != nil {
		return []checkResult{{"State store", "FAIL", fmt.Sprintf("%s: %v", cfg.State.DSN, err)}}
	}
	results := []checkResult{{"State store", "PASS", cfg.State.DSN}}

	if err := db.AutoMigrate(gdb); err != nil {
		results = append(results, checkResult{"Schema", "FAIL", fmt.Sprintf("migrate: %v", err)})
		return results
	}
	migrated := 0
	for _, model := range db.AllModels() {
		if gdb.Migrator().HasTable(model) {
			migrated++
		}
	}
	results = append(results, checkResult{"Schema", "PASS",
		fmt.Sprintf("%d/%d tables migrated", migrated, len(db.AllModels()))})
	return results
}

func checkEnvFile(cfg *config.Config) []checkResult {
	envPath := filepath.Join(cfg.Workspace, cfg.EnvFile)

	f, err := envfile.Load(envPath)
	if err != nil {
		return []checkResult{{"Secrets file", "WARN", fmt.Sprintf("%s not found (run 'dh env setup')", envPath)}}
	}

	var results []checkResult
	if missing := f.Missing(); len(missing) > 0 {
		results = append(results, checkResult{"Secrets file", "WARN",
			fmt.Sprintf("missing: %s", strings.Join(missing, ", "))})
	} else {
		results = append(results, checkResult{"Secrets file", "PASS", "all required keys set"})
	}

	if mode, err := envfile.Mode(envPath); err == nil {
		if mode == 0o600 {
			results = append(results, checkResult{"Secrets mode", "PASS", "600"})
		} else {
			results = append(results, checkResult{"Secrets mode", "FAIL", fmt.Sprintf("%o, want 600", mode)})
		}
	}

	if envfile.IsGitIgnored(filepath.Dir(envPath), filepath.Base(envPath)) {
		results = append(results, checkResult{"Gitignore", "PASS", cfg.EnvFile + " is ignored"})
	} else {
		results = append(results, checkResult{"Gitignore", "FAIL", cfg.EnvFile + " is not in .gitignore"})
	}
	return results
}

func checkDevcontainerJSON(cfg *config.Config) checkResult {
	path := filepath.Join(cfg.Workspace, cfg.Container.ConfigDir, "devcontainer.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return checkResult{"devcontainer.json", "WARN", fmt.Sprintf("%s not found", path)}
	}
	if !devjson.Valid(data) {
		return checkResult{"devcontainer.json", "FAIL", "invalid JSONC"}
	}
	return checkResult{"devcontainer.json", "PASS", path}
}
