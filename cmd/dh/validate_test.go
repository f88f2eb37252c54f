package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseMount(t *testing.T) {
	tests := []struct {
		mount      string
		wantSource string
		wantVolume bool
	}{
		{"source=aspire-nuget-cache,target=/cache/nuget,type=volume", "aspire-nuget-cache", true},
		{"source=/host/path,target=/workspace,type=bind", "/host/path", false},
		{"type=volume,source=python-tools-cache,target=/cache/python-tools", "python-tools-cache", true},
		{"garbage", "", false},
	}

	for _, tt := range tests {
		source, isVolume := parseMount(tt.mount)
		if source != tt.wantSource || isVolume != tt.wantVolume {
			t.Errorf("parseMount(%q) = (%q, %v), want (%q, %v)",
				tt.mount, source, isVolume, tt.wantSource, tt.wantVolume)
		}
	}
}

func TestScriptPaths(t *testing.T) {
	tests := []struct {
		name string
		cmd  interface{}
		want []string
	}{
		{"string", "bash .devcontainer/setup.sh --fast", []string{".devcontainer/setup.sh"}},
		{"argv", []interface{}{"sh", "-c", "./init.sh"}, []string{"./init.sh"}},
		{"map", map[string]interface{}{"tools": "scripts/tools.sh"}, []string{"scripts/tools.sh"}},
		{"no scripts", "dh hook on-create", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := scriptPaths(tt.cmd)
			if len(got) != len(tt.want) {
				t.Fatalf("scriptPaths() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("scriptPaths()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func writeDevcontainerJSON(t *testing.T, ws, content string) {
	t.Helper()
	dir := filepath.Join(ws, ".devcontainer")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "devcontainer.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

const validDevcontainer = `{
	// Aspire development container
	"name": "aspire",
	"mounts": [
		"source=aspire-nuget-cache,target=/cache/nuget,type=volume",
		"source=aspire-build-cache,target=/cache/build,type=volume",
		"source=aspire-dotnet-cache,target=/cache/dotnet,type=volume",
		"source=python-binaries-cache,target=/cache/python-bin,type=volume",
		"source=python-tools-cache,target=/cache/python-tools,type=volume",
	],
}`

func TestValidate_ValidConfig(t *testing.T) {
	ws := t.TempDir()
	cfgPath := writeWorkspaceConfig(t, ws)
	writeDevcontainerJSON(t, ws, validDevcontainer)

	out, err := runCmd(t, "validate", "--config", cfgPath)
	if err != nil {
		t.Fatalf("validate: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Configuration valid") {
		t.Errorf("output = %s", out)
	}
}

func TestValidate_RejectsBrokenJSONC(t *testing.T) {
	ws := t.TempDir()
	cfgPath := writeWorkspaceConfig(t, ws)
	writeDevcontainerJSON(t, ws, `{"name": "aspire",`)

	out, err := runCmd(t, "validate", "--config", cfgPath)
	if err == nil {
		t.Fatalf("expected failure, output:\n%s", out)
	}
}

func TestValidate_FlagsUnknownVolume(t *testing.T) {
	ws := t.TempDir()
	cfgPath := writeWorkspaceConfig(t, ws)
	writeDevcontainerJSON(t, ws, `{
		"name": "aspire",
		"mounts": ["source=rogue-volume,target=/x,type=volume"]
	}`)

	out, err := runCmd(t, "validate", "--config", cfgPath)
	if err == nil {
		t.Fatal("expected failure for unknown volume")
	}
	if !strings.Contains(out, "rogue-volume") {
		t.Errorf("output should name the rogue volume: %s", out)
	}
}

func TestValidate_FlagsNonExecutableScript(t *testing.T) {
	ws := t.TempDir()
	cfgPath := writeWorkspaceConfig(t, ws)

	script := filepath.Join(ws, "setup.sh")
	if err := os.WriteFile(script, []byte("#!/bin/sh\n"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	writeDevcontainerJSON(t, ws, `{
		"name": "aspire",
		"mounts": [
			"source=aspire-nuget-cache,target=/cache/nuget,type=volume",
			"source=aspire-build-cache,target=/cache/build,type=volume",
			"source=aspire-dotnet-cache,target=/cache/dotnet,type=volume",
			"source=python-binaries-cache,target=/cache/python-bin,type=volume",
			"source=python-tools-cache,target=/cache/python-tools,type=volume"
		],
		"onCreateCommand": "setup.sh"
	}`)

	out, err := runCmd(t, "validate", "--config", cfgPath)
	if err == nil {
		t.Fatal("expected failure for non-executable script")
	}
	if !strings.Contains(out, "not executable") {
		t.Errorf("output = %s", out)
	}
}
