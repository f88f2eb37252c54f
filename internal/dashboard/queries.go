package dashboard

import (
	"time"

	"github.com/zulandar/dockhand/internal/models"
	"gorm.io/gorm"
)

// RunRow holds provisioning run data for display.
type RunRow struct {
	ID         string     `json:"id"`
	Stage      string     `json:"stage"`
	Status     string     `json:"status"`
	StepsOK    int        `json:"steps_ok"`
	StepsFail  int        `json:"steps_fail"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// RecentRuns returns the latest provisioning runs, newest first.
func RecentRuns(db *gorm.DB, limit int) ([]RunRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []models.ProvisionRun
	if err := db.Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, err
	}
	rows := make([]RunRow, len(runs))
	for i, r := range runs {
		rows[i] = RunRow{
			ID:         r.ID,
			Stage:      r.Stage,
			Status:     r.Status,
			StepsOK:    r.StepsOK,
			StepsFail:  r.StepsFail,
			StartedAt:  r.StartedAt,
			FinishedAt: r.FinishedAt,
		}
	}
	return rows, nil
}

// CacheRow holds cache volume usage for display.
type CacheRow struct {
	Name       string    `json:"name"`
	MountPath  string    `json:"mount_path"`
	Entries    int64     `json:"entries"`
	SizeBytes  int64     `json:"size_bytes"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// CacheSummary returns all known cache volumes.
func CacheSummary(db *gorm.DB) ([]CacheRow, error) {
	var vols []models.CacheVolume
	if err := db.Order("name ASC").Find(&vols).Error; err != nil {
		return nil, err
	}
	rows := make([]CacheRow, len(vols))
	for i, v := range vols {
		rows[i] = CacheRow{
			Name:       v.Name,
			MountPath:  v.MountPath,
			Entries:    v.Entries,
			SizeBytes:  v.SizeBytes,
			LastUsedAt: v.LastUsedAt,
		}
	}
	return rows, nil
}

// ToolRow holds one tool install record.
type ToolRow struct {
	Tool       string    `json:"tool"`
	Version    string    `json:"version"`
	Source     string    `json:"source"`
	Status     string    `json:"status"`
	DurationMs int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// RecentToolInstalls returns the latest tool install records, newest first.
func RecentToolInstalls(db *gorm.DB, limit int) ([]ToolRow, error) {
	if limit <= 0 {
		limit = 50
	}
	var installs []models.ToolInstall
	if err := db.Order("id DESC").Limit(limit).Find(&installs).Error; err != nil {
		return nil, err
	}
	rows := make([]ToolRow, len(installs))
	for i, t := range installs {
		rows[i] = ToolRow{
			Tool:       t.Tool,
			Version:    t.Version,
			Source:     t.Source,
			Status:     t.Status,
			DurationMs: t.DurationMs,
			CreatedAt:  t.CreatedAt,
		}
	}
	return rows, nil
}

// CheckRow holds the most recent verification outcome per credential.
type CheckRow struct {
	Key       string    `json:"key"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail"`
	CheckedAt time.Time `json:"checked_at"`
}

// LatestChecks returns the newest CredentialCheck per key.
func LatestChecks(db *gorm.DB) ([]CheckRow, error) {
	var checks []models.CredentialCheck
	if err := db.Order("id ASC").Find(&checks).Error; err != nil {
		return nil, err
	}
	latest := map[string]models.CredentialCheck{}
	var order []string
	for _, c := range checks {
		if _, seen := latest[c.Key]; !seen {
			order = append(order, c.Key)
		}
		latest[c.Key] = c
	}
	rows := make([]CheckRow, 0, len(order))
	for _, k := range order {
		c := latest[k]
		rows = append(rows, CheckRow{Key: c.Key, Status: c.Status, Detail: c.Detail, CheckedAt: c.CheckedAt})
	}
	return rows, nil
}
