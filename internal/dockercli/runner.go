// Package dockercli shells out to the docker and devcontainer CLIs. Output
// from every subprocess is mirrored to the caller and flushed to CommandLog
// rows so a failed build can be inspected after the fact.
package dockercli

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/zulandar/dockhand/internal/models"
	"gorm.io/gorm"
)

// ErrMissingTool marks a required CLI binary that is not on PATH. The command
// layer maps it to exit code 2.
var ErrMissingTool = errors.New("required tool not found")

// DefaultFlushInterval is the interval between periodic log flushes.
const DefaultFlushInterval = 5 * time.Second

// Runner executes subprocesses with output capture.
type Runner struct {
	DB    *gorm.DB  // optional; nil disables persistence
	RunID string    // provisioning run this output belongs to
	Out   io.Writer // optional; mirrors combined output
}

// GenerateSessionID creates a unique session ID in cmd-xxxxxxxx format.
func GenerateSessionID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("dockercli: generate session ID: %w", err)
	}
	return "cmd-" + hex.EncodeToString(b), nil
}

// Run executes name with args, streaming output to the mirror writer and the
// command log. Cancellation sends SIGTERM and escalates to SIGKILL after 10s.
func (r *Runner) Run(ctx context.Context, name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return fmt.Errorf("dockercli: %s: %w", name, ErrMissingTool)
	}

	sessionID, err := GenerateSessionID()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = 10 * time.Second

	display := name + " " + strings.Join(args, " ")
	stdout := r.newLogWriter(sessionID, display, "out")
	stderr := r.newLogWriter(sessionID, display, "err")
	cmd.Stdout = stdout
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("dockercli: start %s: %w", name, err)
	}

	flushCtx, flushCancel := context.WithCancel(ctx)
	startFlusher(flushCtx, stdout, DefaultFlushInterval)
	startFlusher(flushCtx, stderr, DefaultFlushInterval)

	waitErr := cmd.Wait()
	flushCancel()
	stdout.Close()
	stderr.Close()

	if waitErr != nil {
		return fmt.Errorf("dockercli: %s: %w", display, waitErr)
	}
	return nil
}

// Output executes name with args and returns trimmed stdout. Used for short
// query commands (volume ls, inspect) whose output the caller parses.
func (r *Runner) Output(ctx context.Context, name string, args ...string) (string, error) {
	if _, err := exec.LookPath(name); err != nil {
		return "", fmt.Errorf("dockercli: %s: %w", name, ErrMissingTool)
	}
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return "", fmt.Errorf("dockercli: %s %s: %s", name, strings.Join(args, " "), msg)
	}
	return strings.TrimSpace(string(out)), nil
}

// logWriter buffers subprocess output and periodically flushes it to
// command_logs via an injected writeFn.
type logWriter struct {
	runID     string
	sessionID string
	command   string
	direction string // "out" or "err"

	mu      sync.Mutex
	buf     bytes.Buffer
	writeFn func(models.CommandLog) error
	mirror  io.Writer
}

func (r *Runner) newLogWriter(sessionID, command, direction string) *logWriter {
	w := &logWriter{
		runID:     r.RunID,
		sessionID: sessionID,
		command:   command,
		direction: direction,
		mirror:    r.Out,
	}
	if r.DB != nil {
		gdb := r.DB
		w.writeFn = func(log models.CommandLog) error {
			return gdb.Create(&log).Error
		}
	}
	return w
}

// Write appends bytes to the internal buffer (implements io.Writer).
func (w *logWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	n, err := w.buf.Write(p)
	if w.mirror != nil {
		w.mirror.Write(p)
	}
	return n, err
}

// Flush writes accumulated buffer contents to command_logs and resets the
// buffer.
func (w *logWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() == 0 || w.writeFn == nil {
		w.buf.Reset()
		return nil
	}

	content := w.buf.String()
	w.buf.Reset()

	return w.writeFn(models.CommandLog{
		RunID:     w.runID,
		SessionID: w.sessionID,
		Command:   w.command,
		Direction: w.direction,
		Content:   content,
		CreatedAt: time.Now(),
	})
}

// Close performs a final flush.
func (w *logWriter) Close() error {
	return w.Flush()
}

// startFlusher launches a goroutine that periodically flushes the logWriter.
func startFlusher(ctx context.Context, w *logWriter, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Flush()
			}
		}
	}()
}
