package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zulandar/dockhand/internal/db"
	"github.com/zulandar/dockhand/internal/models"
)

func TestVerifyOffline_AfterSetup(t *testing.T) {
	ws := t.TempDir()
	cfgPath := writeWorkspaceConfig(t, ws)

	for _, k := range []string{"GH_PAT", "GITHUB_OWNER", "GITHUB_RUNNER_TOKEN", "DOCKER_ACCESS_TOKEN", "DOCKER_USERNAME"} {
		t.Setenv(k, "value-for-"+k)
	}
	if out, err := runCmd(t, "env", "setup", "--config", cfgPath, "--non-interactive"); err != nil {
		t.Fatalf("env setup: %v\n%s", err, out)
	}

	out, err := runCmd(t, "verify", "--offline", "--config", cfgPath)
	if err != nil {
		t.Fatalf("verify --offline: %v\n%s", err, out)
	}
	if strings.Count(out, "[PASS]") != 5 {
		t.Errorf("want 5 PASS lines, got:\n%s", out)
	}

	// Outcomes are persisted.
	gdb, err := db.Open(filepath.Join(ws, "state.db"))
	if err != nil {
		t.Fatalf("open state: %v", err)
	}
	var checks []models.CredentialCheck
	if err := gdb.Find(&checks).Error; err != nil {
		t.Fatalf("query checks: %v", err)
	}
	if len(checks) != 5 {
		t.Errorf("checks = %d, want 5", len(checks))
	}
}

func TestVerifyOffline_FailsOnMissingKey(t *testing.T) {
	ws := t.TempDir()
	cfgPath := writeWorkspaceConfig(t, ws)

	if err := os.WriteFile(filepath.Join(ws, ".env"), []byte("GH_PAT=x\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	out, err := runCmd(t, "verify", "--offline", "--config", cfgPath)
	if err == nil {
		t.Fatalf("expected failure, output:\n%s", out)
	}
	if !strings.Contains(out, "[FAIL] GITHUB_OWNER") {
		t.Errorf("output = %s", out)
	}
}

func TestVerify_NoEnvFile(t *testing.T) {
	ws := t.TempDir()
	cfgPath := writeWorkspaceConfig(t, ws)

	if _, err := runCmd(t, "verify", "--offline", "--config", cfgPath); err == nil {
		t.Error("expected error when .env does not exist")
	}
}
