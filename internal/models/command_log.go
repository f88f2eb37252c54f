package models

import "time"

// CommandLog captures subprocess output for debugging.
type CommandLog struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	RunID     string `gorm:"size:32;index:idx_run_session"`
	SessionID string `gorm:"size:64;index:idx_run_session"`
	Command   string `gorm:"size:255"`
	Direction string `gorm:"size:4"` // "out" or "err"
	Content   string `gorm:"type:mediumtext"`
	CreatedAt time.Time
}
