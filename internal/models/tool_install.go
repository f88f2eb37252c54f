package models

import "time"

// ToolInstall records one Python tool install or cache restore.
type ToolInstall struct {
	ID         uint   `gorm:"primaryKey;autoIncrement"`
	Tool       string `gorm:"size:64;index"`
	Version    string `gorm:"size:64"`
	Source     string `gorm:"size:16"` // "cache" or "install"
	Status     string `gorm:"size:16"`
	DurationMs int64
	CreatedAt  time.Time
}
