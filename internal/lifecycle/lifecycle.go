// Package lifecycle sequences devcontainer hook steps (onCreate, postCreate,
// postStart) and records every run in the state store.
//
// Hooks follow the never-block policy: a failing step is recorded and
// reported but does not abort the hook, because a half-provisioned container
// beats no container. Strict mode inverts that for CI.
package lifecycle

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/zulandar/dockhand/internal/models"
	"gorm.io/gorm"
)

// Known hook stages, in devcontainer execution order.
const (
	StageOnCreate   = "onCreate"
	StagePostCreate = "postCreate"
	StagePostStart  = "postStart"
)

// Step statuses recorded in HookExecution rows.
const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

// StepFunc performs one provisioning step and returns a human detail line.
type StepFunc func(ctx context.Context) (string, error)

// Orchestrator runs hook step sequences.
type Orchestrator struct {
	DB     *gorm.DB // optional
	Out    io.Writer
	Steps  map[string]StepFunc
	Strict bool
}

// StepResult is the outcome of one step.
type StepResult struct {
	Name     string
	Status   string
	Detail   string
	Duration time.Duration
}

// Report summarizes one hook run.
type Report struct {
	RunID   string
	Stage   string
	Results []StepResult
	OK      int
	Failed  int
	Skipped int
}

// GenerateRunID creates a unique run ID in run-xxxxxxxx format.
func GenerateRunID() (string, error) {
	b := make([]byte, 4)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("lifecycle: generate run ID: %w", err)
	}
	return "run-" + hex.EncodeToString(b), nil
}

// RunHook executes the named steps in order. Under the never-block policy
// the returned error is nil even when steps fail; strict mode returns an
// error naming the first failure instead.
func (o *Orchestrator) RunHook(ctx context.Context, stage string, stepNames []string) (*Report, error) {
	runID, err := GenerateRunID()
	if err != nil {
		return nil, err
	}
	report := &Report{RunID: runID, Stage: stage}
	started := time.Now()

	if o.DB != nil {
		run := models.ProvisionRun{ID: runID, Stage: stage, StepsTotal: len(stepNames), StartedAt: started}
		if err := o.DB.Create(&run).Error; err != nil {
			return nil, fmt.Errorf("lifecycle: record run: %w", err)
		}
	}

	for _, name := range stepNames {
		res := o.runStep(ctx, name)
		report.Results = append(report.Results, res)
		switch res.Status {
		case StatusOK:
			report.OK++
		case StatusFailed:
			report.Failed++
		case StatusSkipped:
			report.Skipped++
		}

		if o.DB != nil {
			o.DB.Create(&models.HookExecution{
				RunID:      runID,
				Step:       name,
				Status:     res.Status,
				Detail:     res.Detail,
				DurationMs: res.Duration.Milliseconds(),
				CreatedAt:  time.Now(),
			})
		}
		if o.Out != nil {
			fmt.Fprintf(o.Out, "[%s] %s: %s\n", statusLabel(res.Status), name, res.Detail)
		}
	}

	status := "ok"
	if report.Failed > 0 {
		status = "degraded"
	}
	if o.DB != nil {
		now := time.Now()
		o.DB.Model(&models.ProvisionRun{}).Where("id = ?", runID).Updates(map[string]interface{}{
			"status":      status,
			"steps_ok":    report.OK,
			"steps_fail":  report.Failed,
			"steps_skip":  report.Skipped,
			"finished_at": &now,
		})
	}

	if o.Out != nil {
		fmt.Fprintf(o.Out, "\n%s: %d ok, %d failed, %d skipped (%s)\n",
			stage, report.OK, report.Failed, report.Skipped, time.Since(started).Round(time.Millisecond))
	}

	if o.Strict && report.Failed > 0 {
		return report, fmt.Errorf("lifecycle: %s: %d step(s) failed", stage, report.Failed)
	}
	return report, nil
}

func (o *Orchestrator) runStep(ctx context.Context, name string) StepResult {
	start := time.Now()
	fn, ok := o.Steps[name]
	if !ok {
		return StepResult{Name: name, Status: StatusSkipped, Detail: "unknown step", Duration: time.Since(start)}
	}

	detail, err := fn(ctx)
	res := StepResult{Name: name, Detail: detail, Duration: time.Since(start)}
	if err != nil {
		res.Status = StatusFailed
		res.Detail = err.Error()
	} else {
		res.Status = StatusOK
	}
	return res
}

func statusLabel(status string) string {
	switch status {
	case StatusOK:
		return "PASS"
	case StatusFailed:
		return "FAIL"
	default:
		return "SKIP"
	}
}
