package models

import "time"

// CacheVolume tracks one named cache volume's observed state.
type CacheVolume struct {
	Name       string `gorm:"primaryKey;size:64"`
	MountPath  string `gorm:"size:255"`
	Entries    int64
	SizeBytes  int64
	LastUsedAt time.Time
	UpdatedAt  time.Time
}
