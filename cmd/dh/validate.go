package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/devjson"
)

func newValidateCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate devcontainer configuration files",
		Long: `Checks that devcontainer.json and tasks.json parse as JSONC (comments and
trailing commas allowed), that volume mounts reference configured cache
volumes, and that referenced lifecycle scripts exist and are executable.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultPath, "path to dockhand config file")
	return cmd
}

// devcontainerSpec is the subset of devcontainer.json that validation needs.
type devcontainerSpec struct {
	Name              string      `json:"name"`
	Mounts            []string    `json:"mounts"`
	OnCreateCommand   interface{} `json:"onCreateCommand"`
	PostCreateCommand interface{} `json:"postCreateCommand"`
	PostStartCommand  interface{} `json:"postStartCommand"`
}

func runValidate(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	failed := 0
	report := func(ok bool, format string, args ...interface{}) {
		label := "PASS"
		if !ok {
			label = "FAIL"
			failed++
		}
		fmt.Fprintf(out, "[%s] %s\n", label, fmt.Sprintf(format, args...))
	}

	configDir := filepath.Join(cfg.Workspace, cfg.Container.ConfigDir)

	devPath := filepath.Join(configDir, "devcontainer.json")
	spec, err := loadDevcontainerJSON(devPath)
	if err != nil {
		report(false, "%s: %v", devPath, err)
	} else {
		report(true, "%s parses as JSONC", devPath)
		validateMounts(cfg, spec, report)
		validateScripts(cfg.Workspace, spec, report)
	}

	tasksPath := filepath.Join(cfg.Workspace, ".vscode", "tasks.json")
	if data, err := os.ReadFile(tasksPath); err == nil {
		if devjson.Valid(data) {
			report(true, "%s parses as JSONC", tasksPath)
		} else {
			report(false, "%s: invalid JSONC", tasksPath)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d validation check(s) failed", failed)
	}
	fmt.Fprintln(out, "\nConfiguration valid")
	return nil
}

func loadDevcontainerJSON(path string) (*devcontainerSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec devcontainerSpec
	if err := devjson.Decode(data, &spec); err != nil {
		return nil, fmt.Errorf("invalid JSONC: %w", err)
	}
	return &spec, nil
}

// validateMounts checks that every volume mount in devcontainer.json names a
// configured cache volume, and that every configured volume is mounted.
func validateMounts(cfg *config.Config, spec *devcontainerSpec, report func(bool, string, ...interface{})) {
	known := map[string]bool{}
	for _, v := range cfg.Volumes {
		known[v.Name] = false
	}

	for _, m := range spec.Mounts {
		source, isVolume := parseMount(m)
		if !isVolume {
			continue
		}
		if _, ok := known[source]; !ok {
			report(false, "mount references unknown volume %q", source)
			continue
		}
		known[source] = true
	}

	for _, v := range cfg.Volumes {
		if !known[v.Name] {
			report(false, "configured volume %q is not mounted in devcontainer.json", v.Name)
		}
	}
	report(true, "volume mounts match configured caches")
}

// parseMount extracts the source from a "source=X,target=Y,type=volume"
// mount string.
func parseMount(m string) (source string, isVolume bool) {
	for _, part := range strings.Split(m, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			continue
		}
		switch strings.TrimSpace(k) {
		case "source":
			source = strings.TrimSpace(v)
		case "type":
			isVolume = strings.TrimSpace(v) == "volume"
		}
	}
	return source, isVolume
}

// validateScripts checks that shell scripts referenced by lifecycle commands
// exist and are executable.
func validateScripts(workspace string, spec *devcontainerSpec, report func(bool, string, ...interface{})) {
	for stage, cmd := range map[string]interface{}{
		"onCreateCommand":   spec.OnCreateCommand,
		"postCreateCommand": spec.PostCreateCommand,
		"postStartCommand":  spec.PostStartCommand,
	} {
		for _, script := range scriptPaths(cmd) {
			path := script
			if !filepath.IsAbs(path) {
				path = filepath.Join(workspace, script)
			}
			info, err := os.Stat(path)
			switch {
			case err != nil:
				report(false, "%s: script %s does not exist", stage, script)
			case info.Mode()&0o111 == 0:
				report(false, "%s: script %s is not executable", stage, script)
			default:
				report(true, "%s: script %s ok", stage, script)
			}
		}
	}
}

// scriptPaths pulls .sh references out of a lifecycle command, which may be
// a string, an argv array, or a map of named commands.
func scriptPaths(cmd interface{}) []string {
	var scripts []string
	collect := func(s string) {
		for _, field := range strings.Fields(s) {
			if strings.HasSuffix(field, ".sh") {
				scripts = append(scripts, field)
			}
		}
	}
	switch v := cmd.(type) {
	case string:
		collect(v)
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok {
				collect(s)
			}
		}
	case map[string]interface{}:
		for _, item := range v {
			scripts = append(scripts, scriptPaths(item)...)
		}
	}
	return scripts
}
