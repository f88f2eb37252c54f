// Package config provides YAML-based configuration loading for dockhand.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPath is where dockhand looks for its config file.
const DefaultPath = "dockhand.yaml"

// Config is the top-level dockhand configuration, loaded from dockhand.yaml.
type Config struct {
	Workspace string          `yaml:"workspace"`
	Container ContainerConfig `yaml:"container"`
	EnvFile   string          `yaml:"env_file"`
	State     StateConfig     `yaml:"state"`
	Volumes   []VolumeConfig  `yaml:"volumes"`
	Cache     CacheConfig     `yaml:"cache"`
	Perms     PermsConfig     `yaml:"permissions"`
	Tools     ToolsConfig     `yaml:"tools"`
	Hooks     HooksConfig     `yaml:"hooks"`
	Notify    NotifyConfig    `yaml:"notify"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// ContainerConfig identifies the devcontainer and its build inputs.
type ContainerConfig struct {
	Name       string `yaml:"name"`
	Image      string `yaml:"image"`
	ConfigDir  string `yaml:"config_dir"`
	RemoteUser string `yaml:"remote_user"`
}

// StateConfig selects the state store backend.
type StateConfig struct {
	// DSN is a sqlite file path, or a MySQL DSN (user@tcp(host:port)/db) for
	// shared team state.
	DSN string `yaml:"dsn"`
}

// VolumeConfig maps a Docker named volume to its container mount path and an
// optional workspace symlink created by cache init.
type VolumeConfig struct {
	Name      string `yaml:"name"`
	MountPath string `yaml:"mount_path"`
	Link      string `yaml:"link"`
}

// CacheConfig controls cache maintenance.
type CacheConfig struct {
	PruneCron  string `yaml:"prune_cron"`
	MaxAgeDays int    `yaml:"max_age_days"`
	MaxSizeMB  int64  `yaml:"max_size_mb"`
}

// PermsConfig controls the bind-mount ownership fixup and readiness poll.
type PermsConfig struct {
	Paths           []string `yaml:"paths"`
	UID             int      `yaml:"uid"`
	GID             int      `yaml:"gid"`
	TimeoutSeconds  int      `yaml:"timeout_seconds"`
	IntervalSeconds int      `yaml:"interval_seconds"`
}

// ToolsConfig lists the Python tooling installed through the file cache.
type ToolsConfig struct {
	Jobs       int          `yaml:"jobs"`
	InstallDir string       `yaml:"install_dir"`
	CacheDir   string       `yaml:"cache_dir"`
	List       []ToolConfig `yaml:"list"`
}

// ToolConfig describes one cached tool install.
type ToolConfig struct {
	Name      string   `yaml:"name"`
	Version   string   `yaml:"version"`
	Installer []string `yaml:"installer"`
}

// HooksConfig lists the step names each devcontainer lifecycle hook runs, in
// order. Step names must be registered in the lifecycle package.
type HooksConfig struct {
	OnCreate       []string `yaml:"on_create"`
	PostCreate     []string `yaml:"post_create"`
	PostStart      []string `yaml:"post_start"`
	RestoreCommand []string `yaml:"restore_command"`
}

// NotifyConfig holds optional failure-notification sinks. Tokens are read
// from the environment, never from YAML.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
}

// SlackConfig configures the Slack notifier.
type SlackConfig struct {
	TokenEnv string `yaml:"token_env"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig configures the Discord notifier.
type DiscordConfig struct {
	TokenEnv  string `yaml:"token_env"`
	ChannelID string `yaml:"channel_id"`
}

// DashboardConfig configures the status dashboard.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// DefaultVolumes is the cache volume set the Aspire devcontainer declares.
func DefaultVolumes() []VolumeConfig {
	return []VolumeConfig{
		{Name: "aspire-nuget-cache", MountPath: "/cache/nuget", Link: "~/.nuget/packages"},
		{Name: "aspire-build-cache", MountPath: "/cache/build"},
		{Name: "aspire-dotnet-cache", MountPath: "/cache/dotnet"},
		{Name: "python-binaries-cache", MountPath: "/cache/python-bin"},
		{Name: "python-tools-cache", MountPath: "/cache/python-tools"},
	}
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Workspace == "" {
		c.Workspace = "."
	}
	if c.Container.Name == "" {
		c.Container.Name = "aspire-devcontainer"
	}
	if c.Container.ConfigDir == "" {
		c.Container.ConfigDir = ".devcontainer"
	}
	if c.Container.RemoteUser == "" {
		c.Container.RemoteUser = "vscode"
	}
	if c.EnvFile == "" {
		c.EnvFile = ".env"
	}
	if c.State.DSN == "" {
		c.State.DSN = ".dockhand/state.db"
	}
	if len(c.Volumes) == 0 {
		c.Volumes = DefaultVolumes()
	}
	if c.Cache.MaxAgeDays == 0 {
		c.Cache.MaxAgeDays = 30
	}
	if c.Perms.TimeoutSeconds == 0 {
		c.Perms.TimeoutSeconds = 30
	}
	if c.Perms.IntervalSeconds == 0 {
		c.Perms.IntervalSeconds = 1
	}
	if c.Perms.UID == 0 {
		c.Perms.UID = 1000
	}
	if c.Perms.GID == 0 {
		c.Perms.GID = 1000
	}
	if c.Tools.Jobs == 0 {
		c.Tools.Jobs = 4
	}
	if c.Tools.InstallDir == "" {
		c.Tools.InstallDir = "/usr/local/py-tools"
	}
	if c.Tools.CacheDir == "" {
		c.Tools.CacheDir = "/cache/python-tools"
	}
	if len(c.Hooks.OnCreate) == 0 {
		c.Hooks.OnCreate = []string{"perms", "caches"}
	}
	if len(c.Hooks.PostCreate) == 0 {
		c.Hooks.PostCreate = []string{"tools", "env", "restore"}
	}
	if len(c.Hooks.PostStart) == 0 {
		c.Hooks.PostStart = []string{"env"}
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	seen := map[string]bool{}
	for i, v := range c.Volumes {
		if v.Name == "" {
			errs = append(errs, fmt.Sprintf("volumes[%d].name is required", i))
		}
		if v.MountPath == "" {
			errs = append(errs, fmt.Sprintf("volumes[%d].mount_path is required", i))
		}
		if seen[v.Name] {
			errs = append(errs, fmt.Sprintf("volumes[%d].name %q is duplicated", i, v.Name))
		}
		seen[v.Name] = true
	}
	for i, t := range c.Tools.List {
		if t.Name == "" {
			errs = append(errs, fmt.Sprintf("tools.list[%d].name is required", i))
		}
		if t.Version == "" {
			errs = append(errs, fmt.Sprintf("tools.list[%d].version is required", i))
		}
		if len(t.Installer) == 0 {
			errs = append(errs, fmt.Sprintf("tools.list[%d].installer is required", i))
		}
	}
	if c.Notify.Slack.Channel != "" && c.Notify.Slack.TokenEnv == "" {
		errs = append(errs, "notify.slack.token_env is required when a channel is set")
	}
	if c.Notify.Discord.ChannelID != "" && c.Notify.Discord.TokenEnv == "" {
		errs = append(errs, "notify.discord.token_env is required when a channel_id is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
