// Package envfile reads and writes the devcontainer secrets file (.env).
//
// The file is plain KEY=value lines. Values are written double-quoted; on
// read, surrounding double quotes are stripped but no other quoting rules are
// enforced. The file carries mode 0600 and must be git-ignored.
package envfile

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// RequiredKeys are the secrets the devcontainer needs. Order matters for
// display and for the written file.
var RequiredKeys = []string{
	"GH_PAT",
	"GITHUB_OWNER",
	"GITHUB_RUNNER_TOKEN",
	"DOCKER_ACCESS_TOKEN",
	"DOCKER_USERNAME",
}

// File holds parsed .env contents. Key order from the source is preserved so
// rewrites don't reshuffle the file.
type File struct {
	keys   []string
	values map[string]string
}

// New returns an empty File.
func New() *File {
	return &File{values: make(map[string]string)}
}

// Parse reads KEY=value lines. Blank lines and #-comments are skipped.
// Malformed lines (no '=') are an error; the original scripts sourced these
// files blindly, which hid typos until some later step failed.
func Parse(data []byte) (*File, error) {
	f := New()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("envfile: line %d: not KEY=value: %q", lineNo, line)
		}
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("envfile: line %d: empty key", lineNo)
		}
		value = strings.TrimSpace(value)
		if len(value) >= 2 && strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) {
			value = value[1 : len(value)-1]
		}
		f.Set(key, value)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("envfile: scan: %w", err)
	}
	return f, nil
}

// Load reads and parses path. On success it also best-effort tightens the
// file mode to 0600 (the original init-env.sh did the same chmod on load).
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("envfile: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, err
	}
	os.Chmod(path, 0o600)
	return f, nil
}

// Get returns the value for key, or "".
func (f *File) Get(key string) string {
	return f.values[key]
}

// Set stores key=value, appending the key if it is new.
func (f *File) Set(key, value string) {
	if _, ok := f.values[key]; !ok {
		f.keys = append(f.keys, key)
	}
	f.values[key] = value
}

// Keys returns the keys in file order.
func (f *File) Keys() []string {
	out := make([]string, len(f.keys))
	copy(out, f.keys)
	return out
}

// Missing returns the required keys that are absent or empty, in canonical
// order.
func (f *File) Missing() []string {
	var missing []string
	for _, k := range RequiredKeys {
		if f.values[k] == "" {
			missing = append(missing, k)
		}
	}
	return missing
}

// Render serializes the file as double-quoted KEY="value" lines. Required
// keys come first in canonical order, then any extra keys in file order.
func (f *File) Render() []byte {
	var buf bytes.Buffer
	written := make(map[string]bool)
	for _, k := range RequiredKeys {
		if _, ok := f.values[k]; ok {
			fmt.Fprintf(&buf, "%s=%q\n", k, f.values[k])
			written[k] = true
		}
	}
	for _, k := range f.keys {
		if !written[k] {
			fmt.Fprintf(&buf, "%s=%q\n", k, f.values[k])
		}
	}
	return buf.Bytes()
}

// Write persists the file at path with mode 0600. The write goes through a
// temp file and rename so a crash can't leave a half-written secrets file.
func (f *File) Write(path string) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".env-*")
	if err != nil {
		return fmt.Errorf("envfile: create temp: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("envfile: chmod temp: %w", err)
	}
	if _, err := tmp.Write(f.Render()); err != nil {
		tmp.Close()
		return fmt.Errorf("envfile: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("envfile: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("envfile: rename into place: %w", err)
	}
	return nil
}

// LoadIntoEnv sets each file value into the process environment. Variables
// already set in the environment win over file values.
func (f *File) LoadIntoEnv() {
	for _, k := range f.keys {
		if _, exists := os.LookupEnv(k); !exists {
			os.Setenv(k, f.values[k])
		}
	}
}

// FromEnviron builds a File from the current process environment, taking only
// the required keys.
func FromEnviron() *File {
	f := New()
	for _, k := range RequiredKeys {
		if v := os.Getenv(k); v != "" {
			f.Set(k, v)
		}
	}
	return f
}

// EnsureGitIgnored makes sure name is listed in dir's .gitignore, appending
// it if absent. Idempotent.
func EnsureGitIgnored(dir, name string) error {
	path := filepath.Join(dir, ".gitignore")
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("envfile: read .gitignore: %w", err)
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == name {
			return nil
		}
	}

	var buf bytes.Buffer
	buf.Write(data)
	if len(data) > 0 && !bytes.HasSuffix(data, []byte("\n")) {
		buf.WriteByte('\n')
	}
	buf.WriteString(name + "\n")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("envfile: update .gitignore: %w", err)
	}
	return nil
}

// IsGitIgnored reports whether name appears in dir's .gitignore.
func IsGitIgnored(dir, name string) bool {
	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	if err != nil {
		return false
	}
	for _, line := range strings.Split(string(data), "\n") {
		if strings.TrimSpace(line) == name {
			return true
		}
	}
	return false
}

// Mode returns the permission bits of path.
func Mode(path string) (os.FileMode, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("envfile: stat %s: %w", path, err)
	}
	return info.Mode().Perm(), nil
}

// SortedExtraKeys returns non-required keys in sorted order, for display.
func (f *File) SortedExtraKeys() []string {
	required := make(map[string]bool, len(RequiredKeys))
	for _, k := range RequiredKeys {
		required[k] = true
	}
	var extra []string
	for _, k := range f.keys {
		if !required[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	return extra
}
