package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/dockhand/internal/db"
	"github.com/zulandar/dockhand/internal/models"
)

// writeHookConfig builds a config whose volumes and perms paths live under
// the temp workspace, so hook steps run for real.
func writeHookConfig(t *testing.T, ws string) string {
	t.Helper()
	mount := filepath.Join(ws, "cache", "nuget")
	yaml := "workspace: " + ws + "\n" +
		"state:\n  dsn: " + filepath.Join(ws, "state.db") + "\n" +
		"volumes:\n" +
		"  - name: aspire-nuget-cache\n    mount_path: " + mount + "\n" +
		"permissions:\n  paths: [" + mount + "]\n" +
		"hooks:\n  on_create: [perms, caches]\n"

	path := filepath.Join(ws, "dockhand.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestHook_OnCreate(t *testing.T) {
	if os.Geteuid() != 0 {
		t.Skip("perms step chowns to uid 1000; needs root")
	}
	ws := t.TempDir()
	cfgPath := writeHookConfig(t, ws)
	if err := os.MkdirAll(filepath.Join(ws, "cache", "nuget"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	out, err := runCmd(t, "hook", "on-create", "--config", cfgPath)
	if err != nil {
		t.Fatalf("hook on-create: %v\n%s", err, out)
	}
	if !strings.Contains(out, "[PASS] perms") || !strings.Contains(out, "[PASS] caches") {
		t.Errorf("output = %s", out)
	}
	if !strings.Contains(out, "2 ok, 0 failed") {
		t.Errorf("summary missing: %s", out)
	}

	// The run and both steps are in the state store.
	gdb, err := db.Open(filepath.Join(ws, "state.db"))
	if err != nil {
		t.Fatalf("open state: %v", err)
	}
	var runs []models.ProvisionRun
	if err := gdb.Find(&runs).Error; err != nil {
		t.Fatalf("query runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != "ok" || runs[0].StepsOK != 2 {
		t.Errorf("runs = %+v", runs)
	}
}

func TestHook_NeverBlocksOnFailure(t *testing.T) {
	ws := t.TempDir()
	yaml := "workspace: " + ws + "\n" +
		"state:\n  dsn: " + filepath.Join(ws, "state.db") + "\n" +
		"permissions:\n  paths: [" + filepath.Join(ws, "does-not-exist") + "]\n" +
		"hooks:\n  on_create: [perms]\n"
	cfgPath := filepath.Join(ws, "dockhand.yaml")
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := runCmd(t, "hook", "on-create", "--config", cfgPath)
	if err != nil {
		t.Fatalf("hook should not fail without --strict: %v\n%s", err, out)
	}
	if !strings.Contains(out, "[FAIL] perms") {
		t.Errorf("output = %s", out)
	}

	if _, err := runCmd(t, "hook", "on-create", "--config", cfgPath, "--strict"); err == nil {
		t.Error("--strict should surface step failures as errors")
	}
}

func TestHook_RejectsUnknownStage(t *testing.T) {
	ws := t.TempDir()
	cfgPath := writeWorkspaceConfig(t, ws)
	if _, err := runCmd(t, "hook", "mid-flight", "--config", cfgPath); err == nil {
		t.Error("expected error for unknown hook stage")
	}
}
