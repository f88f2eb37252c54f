// Package toolchain installs Python tooling through a file cache shared
// across container rebuilds. Cache publishes stage into a temp directory and
// rename into place, guarded by a lock file, so two container builds running
// at once cannot leave a half-copied entry behind.
package toolchain

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/models"
	"gorm.io/gorm"
)

const (
	// staleLockAge is how old a lock file must be before another publisher
	// may break it (the holder is assumed dead).
	staleLockAge = 10 * time.Minute

	// SourceCache marks a tool restored from the cache; SourceInstall marks
	// a fresh installer run.
	SourceCache   = "cache"
	SourceInstall = "install"
)

// Installer runs tool installs through the cache.
type Installer struct {
	DB         *gorm.DB
	InstallDir string
	CacheDir   string
	// Jobs caps concurrent installer subprocesses. Default 4.
	Jobs int
	// RunInstaller executes one tool's installer command. Replaceable in
	// tests; the default execs the configured argv.
	RunInstaller func(ctx context.Context, tool config.ToolConfig, installDir string) error
}

// Result is the outcome of installing one tool.
type Result struct {
	Tool     string
	Version  string
	Source   string
	Err      error
	Duration time.Duration
}

// InstallAll installs every tool, restoring from cache where possible and
// running at most Jobs installers concurrently. One tool failing does not
// stop the others; the per-tool error is in its Result.
func (in *Installer) InstallAll(ctx context.Context, tools []config.ToolConfig) []Result {
	jobs := in.Jobs
	if jobs <= 0 {
		jobs = 4
	}

	results := make([]Result, len(tools))
	slots := make(chan struct{}, jobs)
	var wg sync.WaitGroup

	for i, tool := range tools {
		wg.Add(1)
		go func(i int, tool config.ToolConfig) {
			defer wg.Done()
			slots <- struct{}{}
			defer func() { <-slots }()
			results[i] = in.installOne(ctx, tool)
		}(i, tool)
	}
	wg.Wait()

	if in.DB != nil {
		for _, r := range results {
			status := "ok"
			if r.Err != nil {
				status = "failed"
			}
			in.DB.Create(&models.ToolInstall{
				Tool:       r.Tool,
				Version:    r.Version,
				Source:     r.Source,
				Status:     status,
				DurationMs: r.Duration.Milliseconds(),
				CreatedAt:  time.Now(),
			})
		}
	}
	return results
}

func (in *Installer) installOne(ctx context.Context, tool config.ToolConfig) Result {
	start := time.Now()
	res := Result{Tool: tool.Name, Version: tool.Version}

	cacheEntry := in.cachePath(tool)
	installPath := filepath.Join(in.InstallDir, tool.Name)

	if dirExists(cacheEntry) {
		res.Source = SourceCache
		res.Err = in.restore(cacheEntry, installPath)
		res.Duration = time.Since(start)
		return res
	}

	res.Source = SourceInstall
	run := in.RunInstaller
	if run == nil {
		run = execInstaller
	}
	if err := run(ctx, tool, in.InstallDir); err != nil {
		res.Err = fmt.Errorf("toolchain: install %s: %w", tool.Name, err)
		res.Duration = time.Since(start)
		return res
	}
	if err := in.publish(installPath, cacheEntry); err != nil {
		// The install itself succeeded; a failed publish only costs the next
		// build a reinstall.
		res.Err = fmt.Errorf("toolchain: publish %s to cache: %w", tool.Name, err)
	}
	res.Duration = time.Since(start)
	return res
}

func (in *Installer) cachePath(tool config.ToolConfig) string {
	return filepath.Join(in.CacheDir, tool.Name+"-"+tool.Version)
}

// restore copies a cache entry into the install dir via stage+rename.
func (in *Installer) restore(cacheEntry, installPath string) error {
	if err := os.MkdirAll(filepath.Dir(installPath), 0o775); err != nil {
		return fmt.Errorf("toolchain: create install dir: %w", err)
	}
	stage, err := os.MkdirTemp(filepath.Dir(installPath), ".restore-*")
	if err != nil {
		return fmt.Errorf("toolchain: stage restore: %w", err)
	}
	defer os.RemoveAll(stage)

	staged := filepath.Join(stage, "payload")
	if err := copyDir(cacheEntry, staged); err != nil {
		return fmt.Errorf("toolchain: copy from cache: %w", err)
	}
	os.RemoveAll(installPath)
	if err := os.Rename(staged, installPath); err != nil {
		return fmt.Errorf("toolchain: activate restore: %w", err)
	}
	return nil
}

// publish copies a fresh install into the cache. The lock file serializes
// concurrent publishers; if another holds the lock, the publish is skipped
// (that publisher will populate the same entry).
func (in *Installer) publish(installPath, cacheEntry string) error {
	if err := os.MkdirAll(in.CacheDir, 0o775); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	lock := cacheEntry + ".lock"
	acquired, err := acquireLock(lock)
	if err != nil {
		return err
	}
	if !acquired {
		return nil
	}
	defer os.Remove(lock)

	// Somebody else may have published while we installed.
	if dirExists(cacheEntry) {
		return nil
	}

	stage, err := os.MkdirTemp(in.CacheDir, ".publish-*")
	if err != nil {
		return fmt.Errorf("stage publish: %w", err)
	}
	defer os.RemoveAll(stage)

	staged := filepath.Join(stage, "payload")
	if err := copyDir(installPath, staged); err != nil {
		return fmt.Errorf("copy into stage: %w", err)
	}
	if err := os.Rename(staged, cacheEntry); err != nil {
		return fmt.Errorf("activate cache entry: %w", err)
	}
	return nil
}

// acquireLock creates the lock file with O_EXCL. Stale locks are broken once.
func acquireLock(path string) (bool, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err == nil {
		fmt.Fprintf(f, "%d\n", os.Getpid())
		f.Close()
		return true, nil
	}
	if !os.IsExist(err) {
		return false, fmt.Errorf("acquire lock %s: %w", path, err)
	}

	info, statErr := os.Stat(path)
	if statErr != nil {
		return false, nil
	}
	if time.Since(info.ModTime()) < staleLockAge {
		return false, nil
	}
	os.Remove(path)
	f, err = os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return false, nil
	}
	fmt.Fprintf(f, "%d\n", os.Getpid())
	f.Close()
	return true, nil
}

func execInstaller(ctx context.Context, tool config.ToolConfig, installDir string) error {
	if len(tool.Installer) == 0 {
		return fmt.Errorf("no installer command configured")
	}
	cmd := exec.CommandContext(ctx, tool.Installer[0], tool.Installer[1:]...)
	cmd.Env = append(os.Environ(), "PIPX_HOME="+installDir, "PIPX_BIN_DIR="+filepath.Join(installDir, "bin"))
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%v: %s", err, firstLine(out))
	}
	return nil
}

func firstLine(b []byte) string {
	for i, c := range b {
		if c == '\n' {
			return string(b[:i])
		}
	}
	return string(b)
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
