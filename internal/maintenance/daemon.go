// Package maintenance runs the dockhand background daemon: stale-run
// sweeping, cache statistics refresh, and cron-scheduled cache pruning with
// failure notifications.
package maintenance

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/zulandar/dockhand/internal/cache"
	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/models"
	"github.com/zulandar/dockhand/internal/notify"
	"gorm.io/gorm"
)

const (
	defaultPollInterval = 30 * time.Second
	// staleRunAge is how long a run may stay "running" before the daemon
	// marks it stalled (its process is assumed gone).
	staleRunAge = 1 * time.Hour
)

// Daemon is the maintenance loop.
type Daemon struct {
	DB           *gorm.DB
	Cache        *cache.Manager
	Cfg          *config.Config
	Notify       notify.Multi
	PollInterval time.Duration
	Out          io.Writer
}

// Run executes the maintenance loop until ctx is cancelled.
func (d *Daemon) Run(ctx context.Context) error {
	if d.DB == nil {
		return fmt.Errorf("maintenance: db is required")
	}
	if d.Cfg == nil {
		return fmt.Errorf("maintenance: config is required")
	}
	interval := d.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	out := d.Out
	if out == nil {
		out = io.Discard
	}

	var nextPrune time.Time
	if d.Cfg.Cache.PruneCron != "" {
		nextPrune = nextCronTime(d.Cfg.Cache.PruneCron, time.Now())
		if nextPrune.IsZero() {
			return fmt.Errorf("maintenance: bad prune_cron %q", d.Cfg.Cache.PruneCron)
		}
		fmt.Fprintf(out, "Cache prune scheduled for %s\n", nextPrune.Format(time.RFC3339))
	}

	fmt.Fprintf(out, "Maintenance daemon starting (poll every %s)\n", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if n, err := d.SweepStaleRuns(); err != nil {
			log.Printf("maintenance: sweep: %v", err)
		} else if n > 0 {
			fmt.Fprintf(out, "Marked %d stale run(s)\n", n)
		}

		if d.Cache != nil {
			if _, err := d.Cache.Status(); err != nil {
				log.Printf("maintenance: cache stats: %v", err)
			}

			if !nextPrune.IsZero() && time.Now().After(nextPrune) {
				d.runPrune(ctx, out)
				nextPrune = nextCronTime(d.Cfg.Cache.PruneCron, time.Now())
			}
		}

		select {
		case <-ctx.Done():
			fmt.Fprintln(out, "Maintenance daemon stopped.")
			return nil
		case <-ticker.C:
		}
	}
}

// SweepStaleRuns marks running ProvisionRuns older than staleRunAge as
// stalled and returns how many were updated.
func (d *Daemon) SweepStaleRuns() (int64, error) {
	cutoff := time.Now().Add(-staleRunAge)
	res := d.DB.Model(&models.ProvisionRun{}).
		Where("status = ? AND started_at < ?", "running", cutoff).
		Update("status", "stalled")
	if res.Error != nil {
		return 0, fmt.Errorf("maintenance: sweep stale runs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (d *Daemon) runPrune(ctx context.Context, out io.Writer) {
	maxAge := time.Duration(d.Cfg.Cache.MaxAgeDays) * 24 * time.Hour
	maxSize := d.Cfg.Cache.MaxSizeMB * 1024 * 1024

	removed, err := d.Cache.Prune(maxAge, maxSize)
	if err != nil {
		log.Printf("maintenance: prune: %v", err)
		d.Notify.Notify(ctx, "dockhand: cache prune failed", err.Error())
		return
	}
	fmt.Fprintf(out, "Cache prune removed %d entries\n", removed)
}
