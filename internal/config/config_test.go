package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const fullYAML = `
workspace: /workspaces/aspire
env_file: .devcontainer/.env

container:
  name: aspire-dev
  image: aspire-devcontainer:local
  config_dir: .devcontainer
  remote_user: vscode

state:
  dsn: .dockhand/state.db

volumes:
  - name: aspire-nuget-cache
    mount_path: /cache/nuget
    link: ~/.nuget/packages
  - name: python-tools-cache
    mount_path: /cache/python-tools

cache:
  prune_cron: "0 3 * * *"
  max_age_days: 14
  max_size_mb: 4096

permissions:
  paths: ["/workspaces/aspire", "/cache/nuget"]
  uid: 1000
  gid: 1000
  timeout_seconds: 45

tools:
  jobs: 2
  install_dir: /usr/local/py-tools
  cache_dir: /cache/python-tools
  list:
    - name: ruff
      version: "0.4.4"
      installer: ["pipx", "install", "ruff==0.4.4"]
    - name: pre-commit
      version: "3.7.0"
      installer: ["pipx", "install", "pre-commit==3.7.0"]

hooks:
  on_create: ["perms", "caches"]
  post_create: ["tools", "env", "restore"]
  restore_command: ["dotnet", "restore"]

notify:
  slack:
    token_env: SLACK_BOT_TOKEN
    channel: "#devcontainer-alerts"

dashboard:
  port: 9090
`

const minimalYAML = `
container:
  image: aspire-devcontainer:local
`

func TestParse_FullConfig(t *testing.T) {
	cfg, err := Parse([]byte(fullYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Workspace != "/workspaces/aspire" {
		t.Errorf("Workspace = %q, want /workspaces/aspire", cfg.Workspace)
	}
	if cfg.EnvFile != ".devcontainer/.env" {
		t.Errorf("EnvFile = %q, want .devcontainer/.env", cfg.EnvFile)
	}
	if cfg.Container.Name != "aspire-dev" {
		t.Errorf("Container.Name = %q, want aspire-dev", cfg.Container.Name)
	}
	if len(cfg.Volumes) != 2 {
		t.Fatalf("len(Volumes) = %d, want 2", len(cfg.Volumes))
	}
	if cfg.Volumes[0].Link != "~/.nuget/packages" {
		t.Errorf("Volumes[0].Link = %q, want ~/.nuget/packages", cfg.Volumes[0].Link)
	}
	if cfg.Cache.PruneCron != "0 3 * * *" {
		t.Errorf("Cache.PruneCron = %q, want 0 3 * * *", cfg.Cache.PruneCron)
	}
	if cfg.Cache.MaxAgeDays != 14 {
		t.Errorf("Cache.MaxAgeDays = %d, want 14", cfg.Cache.MaxAgeDays)
	}
	if cfg.Perms.TimeoutSeconds != 45 {
		t.Errorf("Perms.TimeoutSeconds = %d, want 45", cfg.Perms.TimeoutSeconds)
	}
	if cfg.Perms.IntervalSeconds != 1 {
		t.Errorf("Perms.IntervalSeconds = %d, want 1 (default)", cfg.Perms.IntervalSeconds)
	}
	if cfg.Tools.Jobs != 2 {
		t.Errorf("Tools.Jobs = %d, want 2", cfg.Tools.Jobs)
	}
	if len(cfg.Tools.List) != 2 {
		t.Fatalf("len(Tools.List) = %d, want 2", len(cfg.Tools.List))
	}
	if cfg.Tools.List[0].Version != "0.4.4" {
		t.Errorf("Tools.List[0].Version = %q, want 0.4.4", cfg.Tools.List[0].Version)
	}
	if len(cfg.Hooks.RestoreCommand) != 2 {
		t.Errorf("len(Hooks.RestoreCommand) = %d, want 2", len(cfg.Hooks.RestoreCommand))
	}
	if cfg.Notify.Slack.Channel != "#devcontainer-alerts" {
		t.Errorf("Notify.Slack.Channel = %q, want #devcontainer-alerts", cfg.Notify.Slack.Channel)
	}
	if cfg.Dashboard.Port != 9090 {
		t.Errorf("Dashboard.Port = %d, want 9090", cfg.Dashboard.Port)
	}
}

func TestParse_MinimalConfig_AppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Workspace != "." {
		t.Errorf("Workspace = %q, want %q (default)", cfg.Workspace, ".")
	}
	if cfg.EnvFile != ".env" {
		t.Errorf("EnvFile = %q, want %q (default)", cfg.EnvFile, ".env")
	}
	if cfg.Container.ConfigDir != ".devcontainer" {
		t.Errorf("Container.ConfigDir = %q, want .devcontainer (default)", cfg.Container.ConfigDir)
	}
	if len(cfg.Volumes) != 5 {
		t.Fatalf("len(Volumes) = %d, want 5 (default volume set)", len(cfg.Volumes))
	}
	if cfg.Volumes[0].Name != "aspire-nuget-cache" {
		t.Errorf("Volumes[0].Name = %q, want aspire-nuget-cache", cfg.Volumes[0].Name)
	}
	if cfg.Perms.TimeoutSeconds != 30 {
		t.Errorf("Perms.TimeoutSeconds = %d, want 30 (default)", cfg.Perms.TimeoutSeconds)
	}
	if cfg.Tools.Jobs != 4 {
		t.Errorf("Tools.Jobs = %d, want 4 (default)", cfg.Tools.Jobs)
	}
	if got := cfg.Hooks.PostCreate; len(got) != 3 || got[0] != "tools" {
		t.Errorf("Hooks.PostCreate = %v, want [tools env restore] (default)", got)
	}
	if cfg.State.DSN != ".dockhand/state.db" {
		t.Errorf("State.DSN = %q, want .dockhand/state.db (default)", cfg.State.DSN)
	}
}

func TestParse_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name: "volume missing mount path",
			yaml: `
volumes:
  - name: aspire-nuget-cache
`,
			wantErr: "mount_path is required",
		},
		{
			name: "duplicate volume name",
			yaml: `
volumes:
  - name: aspire-nuget-cache
    mount_path: /cache/a
  - name: aspire-nuget-cache
    mount_path: /cache/b
`,
			wantErr: "duplicated",
		},
		{
			name: "tool missing installer",
			yaml: `
tools:
  list:
    - name: ruff
      version: "0.4.4"
`,
			wantErr: "installer is required",
		},
		{
			name: "slack channel without token env",
			yaml: `
notify:
  slack:
    channel: "#alerts"
`,
			wantErr: "token_env is required",
		},
		{
			name:    "malformed yaml",
			yaml:    "workspace: [unclosed",
			wantErr: "config: parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dockhand.yaml")
	if err := os.WriteFile(path, []byte(fullYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.Container.Image != "aspire-devcontainer:local" {
		t.Errorf("Container.Image = %q, want aspire-devcontainer:local", cfg.Container.Image)
	}
}
