package models

import "time"

// ProvisionRun records one invocation of a lifecycle hook or build operation.
type ProvisionRun struct {
	ID         string `gorm:"primaryKey;size:32"`
	Stage      string `gorm:"size:32;index"`
	Status     string `gorm:"size:16;default:running;index"`
	StepsTotal int
	StepsOK    int
	StepsFail  int
	StepsSkip  int
	StartedAt  time.Time
	FinishedAt *time.Time

	Steps []HookExecution `gorm:"foreignKey:RunID"`
}

// HookExecution records one step within a provisioning run.
type HookExecution struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	RunID      string `gorm:"size:32;index"`
	Step       string `gorm:"size:64"`
	Status     string `gorm:"size:16"`
	Detail     string `gorm:"type:text"`
	DurationMs int64
	CreatedAt  time.Time
}
