// Package perms fixes ownership on bind-mounted paths and waits for them to
// become writable. Everything here is best-effort: container creation must
// never be blocked by a chown that the kernel refuses.
package perms

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// DefaultTimeout bounds the write-readiness poll.
	DefaultTimeout = 30 * time.Second
	// DefaultInterval is the fixed poll interval. No backoff, no jitter:
	// the wait is short and local, a plain bounded busy-wait is enough.
	DefaultInterval = 1 * time.Second

	probeName = ".dockhand-write-probe"
)

// EnsureOwnership recursively chowns path to uid:gid and loosens directory
// modes to 0775. Individual failures are collected, not fatal; the returned
// error (if any) is a summary for reporting.
func EnsureOwnership(path string, uid, gid int) error {
	var failures []string
	walkErr := filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", p, err))
			return nil
		}
		if err := os.Chown(p, uid, gid); err != nil {
			failures = append(failures, fmt.Sprintf("chown %s: %v", p, err))
		}
		if d.IsDir() {
			if err := os.Chmod(p, 0o775); err != nil {
				failures = append(failures, fmt.Sprintf("chmod %s: %v", p, err))
			}
		}
		return nil
	})
	if walkErr != nil {
		failures = append(failures, walkErr.Error())
	}
	if len(failures) > 0 {
		return fmt.Errorf("perms: %d path(s) not adjusted: %s", len(failures), strings.Join(first(failures, 5), "; "))
	}
	return nil
}

// WaitWritable polls until every path accepts a probe file write, up to
// timeout. Returns nil when all paths are writable, the context error on
// cancellation, or a timeout error naming the paths still blocked.
func WaitWritable(ctx context.Context, paths []string, timeout, interval time.Duration) error {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultInterval
	}

	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		blocked := blockedPaths(paths)
		if len(blocked) == 0 {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("perms: not writable after %s: %s", timeout, strings.Join(blocked, ", "))
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("perms: wait cancelled: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// Writable reports whether a probe file can be created and removed in dir.
func Writable(dir string) bool {
	probe := filepath.Join(dir, probeName)
	f, err := os.OpenFile(probe, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return false
	}
	f.Close()
	os.Remove(probe)
	return true
}

func blockedPaths(paths []string) []string {
	var blocked []string
	for _, p := range paths {
		if !Writable(p) {
			blocked = append(blocked, p)
		}
	}
	return blocked
}

func first(s []string, n int) []string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
