// Package cache initializes and maintains the devcontainer's named cache
// volumes: mount point directories, workspace symlinks into them, usage
// statistics in the state store, and age/size pruning.
package cache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Manager performs cache volume operations.
type Manager struct {
	DB      *gorm.DB
	Volumes []config.VolumeConfig
	// Home is used to expand a leading "~" in link paths. Defaults to the
	// current user's home directory.
	Home string
}

// InitStats summarizes one Init run.
type InitStats struct {
	DirsCreated  int
	LinksCreated int
	AlreadySetup int
	Problems     []string
}

// Init creates mount point directories and workspace symlinks for every
// configured volume. Idempotent: paths already in the right shape are
// counted, never touched, so a second run reports zero creations.
func (m *Manager) Init() (InitStats, error) {
	var stats InitStats
	for _, v := range m.Volumes {
		created, err := ensureDir(v.MountPath)
		if err != nil {
			stats.Problems = append(stats.Problems, fmt.Sprintf("%s: %v", v.Name, err))
			continue
		}
		if created {
			stats.DirsCreated++
		} else {
			stats.AlreadySetup++
		}

		if v.Link == "" {
			continue
		}
		linked, err := m.ensureLink(v.Link, v.MountPath)
		if err != nil {
			stats.Problems = append(stats.Problems, fmt.Sprintf("%s: %v", v.Name, err))
			continue
		}
		if linked {
			stats.LinksCreated++
		} else {
			stats.AlreadySetup++
		}
	}

	if m.DB != nil {
		if err := m.recordVolumes(); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// Changed reports whether the run made any filesystem modifications.
func (s InitStats) Changed() bool {
	return s.DirsCreated > 0 || s.LinksCreated > 0
}

// VolumeStat is one volume's measured usage.
type VolumeStat struct {
	Name      string
	MountPath string
	Entries   int64
	SizeBytes int64
}

// Status measures each volume's entry count and size, persisting the result
// as CacheVolume rows when a DB is attached.
func (m *Manager) Status() ([]VolumeStat, error) {
	stats := make([]VolumeStat, 0, len(m.Volumes))
	for _, v := range m.Volumes {
		entries, size := measure(v.MountPath)
		stats = append(stats, VolumeStat{
			Name:      v.Name,
			MountPath: v.MountPath,
			Entries:   entries,
			SizeBytes: size,
		})
	}

	if m.DB != nil {
		for _, s := range stats {
			row := models.CacheVolume{
				Name:       s.Name,
				MountPath:  s.MountPath,
				Entries:    s.Entries,
				SizeBytes:  s.SizeBytes,
				LastUsedAt: time.Now(),
			}
			if err := m.DB.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "name"}},
				UpdateAll: true,
			}).Create(&row).Error; err != nil {
				return stats, fmt.Errorf("cache: record volume %s: %w", s.Name, err)
			}
		}
	}
	return stats, nil
}

// Prune removes top-level cache entries older than maxAge, then removes
// oldest-first until each volume fits maxSizeBytes (0 disables the size cap).
// Returns the number of entries removed.
func (m *Manager) Prune(maxAge time.Duration, maxSizeBytes int64) (int, error) {
	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, v := range m.Volumes {
		entries, err := os.ReadDir(v.MountPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return removed, fmt.Errorf("cache: read %s: %w", v.MountPath, err)
		}

		type aged struct {
			path string
			mod  time.Time
			size int64
		}
		var kept []aged
		for _, e := range entries {
			p := filepath.Join(v.MountPath, e.Name())
			info, err := e.Info()
			if err != nil {
				continue
			}
			if maxAge > 0 && info.ModTime().Before(cutoff) {
				if err := os.RemoveAll(p); err == nil {
					removed++
				}
				continue
			}
			_, size := measure(p)
			kept = append(kept, aged{path: p, mod: info.ModTime(), size: size})
		}

		if maxSizeBytes <= 0 {
			continue
		}
		var total int64
		for _, k := range kept {
			total += k.size
		}
		sort.Slice(kept, func(i, j int) bool { return kept[i].mod.Before(kept[j].mod) })
		for _, k := range kept {
			if total <= maxSizeBytes {
				break
			}
			if err := os.RemoveAll(k.path); err == nil {
				removed++
				total -= k.size
			}
		}
	}
	return removed, nil
}

// recordVolumes upserts a row per volume so the dashboard sees volumes even
// before the first Status run.
func (m *Manager) recordVolumes() error {
	for _, v := range m.Volumes {
		row := models.CacheVolume{Name: v.Name, MountPath: v.MountPath, LastUsedAt: time.Now()}
		if err := m.DB.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"mount_path", "last_used_at"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("cache: record volume %s: %w", v.Name, err)
		}
	}
	return nil
}

// ensureDir creates dir if absent. Returns whether it was created.
func ensureDir(dir string) (bool, error) {
	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return false, fmt.Errorf("%s exists and is not a directory", dir)
		}
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, err
	}
	if err := os.MkdirAll(dir, 0o775); err != nil {
		return false, err
	}
	return true, nil
}

// ensureLink makes link a symlink to target. An existing correct symlink is
// left alone; an existing wrong symlink is replaced; a real directory at the
// link path is an error (never destroy user data).
func (m *Manager) ensureLink(link, target string) (bool, error) {
	link = m.expandHome(link)
	if err := os.MkdirAll(filepath.Dir(link), 0o775); err != nil {
		return false, err
	}

	current, err := os.Readlink(link)
	if err == nil {
		if current == target {
			return false, nil
		}
		if err := os.Remove(link); err != nil {
			return false, err
		}
		return true, os.Symlink(target, link)
	}

	if _, statErr := os.Lstat(link); statErr == nil {
		return false, fmt.Errorf("%s exists and is not a symlink", link)
	}
	return true, os.Symlink(target, link)
}

func (m *Manager) expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home := m.Home
	if home == "" {
		home, _ = os.UserHomeDir()
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// measure walks path and returns the number of regular files and their total
// size. Missing paths measure as zero.
func measure(path string) (entries, size int64) {
	filepath.WalkDir(path, func(_ string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		entries++
		if info, err := d.Info(); err == nil {
			size += info.Size()
		}
		return nil
	})
	return entries, size
}
