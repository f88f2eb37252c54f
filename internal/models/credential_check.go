package models

import "time"

// CredentialCheck records the outcome of one credential verification probe.
type CredentialCheck struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Key       string `gorm:"size:32;index"`
	Status    string `gorm:"size:16"` // "valid", "invalid", "unknown", "missing"
	Detail    string `gorm:"type:text"`
	CheckedAt time.Time
}
