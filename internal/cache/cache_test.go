package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/zulandar/dockhand/internal/config"
	"github.com/zulandar/dockhand/internal/db"
	"github.com/zulandar/dockhand/internal/models"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return gdb
}

func testManager(t *testing.T) (*Manager, string) {
	t.Helper()
	root := t.TempDir()
	home := filepath.Join(root, "home")
	if err := os.MkdirAll(home, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	m := &Manager{
		DB:   testDB(t),
		Home: home,
		Volumes: []config.VolumeConfig{
			{Name: "aspire-nuget-cache", MountPath: filepath.Join(root, "nuget"), Link: "~/.nuget/packages"},
			{Name: "python-tools-cache", MountPath: filepath.Join(root, "py-tools")},
		},
	}
	return m, root
}

func TestInit_CreatesDirsAndLinks(t *testing.T) {
	m, root := testManager(t)

	stats, err := m.Init()
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if stats.DirsCreated != 2 {
		t.Errorf("DirsCreated = %d, want 2", stats.DirsCreated)
	}
	if stats.LinksCreated != 1 {
		t.Errorf("LinksCreated = %d, want 1", stats.LinksCreated)
	}
	if len(stats.Problems) != 0 {
		t.Errorf("Problems = %v, want none", stats.Problems)
	}

	link := filepath.Join(m.Home, ".nuget", "packages")
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("readlink: %v", err)
	}
	if want := filepath.Join(root, "nuget"); target != want {
		t.Errorf("link target = %q, want %q", target, want)
	}
}

func TestInit_SecondRunIdempotent(t *testing.T) {
	m, _ := testManager(t)

	if _, err := m.Init(); err != nil {
		t.Fatalf("first Init error: %v", err)
	}
	second, err := m.Init()
	if err != nil {
		t.Fatalf("second Init error: %v", err)
	}
	if second.Changed() {
		t.Errorf("second run changed filesystem: %+v", second)
	}
	if second.AlreadySetup != 3 {
		t.Errorf("AlreadySetup = %d, want 3 (2 dirs + 1 link)", second.AlreadySetup)
	}
}

func TestInit_RefusesToReplaceRealDir(t *testing.T) {
	m, _ := testManager(t)
	link := filepath.Join(m.Home, ".nuget", "packages")
	if err := os.MkdirAll(link, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	stats, err := m.Init()
	if err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if len(stats.Problems) != 1 {
		t.Fatalf("Problems = %v, want 1 (real dir at link path)", stats.Problems)
	}
	// The directory must survive.
	if info, err := os.Lstat(link); err != nil || !info.IsDir() {
		t.Error("existing directory at link path was destroyed")
	}
}

func TestInit_RecordsVolumes(t *testing.T) {
	m, _ := testManager(t)
	if _, err := m.Init(); err != nil {
		t.Fatalf("Init error: %v", err)
	}

	var count int64
	if err := m.DB.Model(&models.CacheVolume{}).Count(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("CacheVolume rows = %d, want 2", count)
	}
}

func TestStatus_MeasuresAndPersists(t *testing.T) {
	m, root := testManager(t)
	if _, err := m.Init(); err != nil {
		t.Fatalf("Init error: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "nuget", "pkg.nupkg"), []byte("0123456789"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	stats, err := m.Status()
	if err != nil {
		t.Fatalf("Status error: %v", err)
	}
	if stats[0].Entries != 1 || stats[0].SizeBytes != 10 {
		t.Errorf("nuget stat = %+v, want 1 entry / 10 bytes", stats[0])
	}

	var row models.CacheVolume
	if err := m.DB.First(&row, "name = ?", "aspire-nuget-cache").Error; err != nil {
		t.Fatalf("read row: %v", err)
	}
	if row.Entries != 1 || row.SizeBytes != 10 {
		t.Errorf("persisted stat = %+v, want 1 entry / 10 bytes", row)
	}
}

func TestPrune_ByAge(t *testing.T) {
	m, root := testManager(t)
	if _, err := m.Init(); err != nil {
		t.Fatalf("Init error: %v", err)
	}

	old := filepath.Join(root, "nuget", "old-pkg")
	fresh := filepath.Join(root, "nuget", "fresh-pkg")
	for _, p := range []string{old, fresh} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	stale := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(old, stale, stale); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed, err := m.Prune(24*time.Hour, 0)
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Error("stale entry survived prune")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("fresh entry was pruned")
	}
}

func TestPrune_BySize_OldestFirst(t *testing.T) {
	m, root := testManager(t)
	if _, err := m.Init(); err != nil {
		t.Fatalf("Init error: %v", err)
	}

	older := filepath.Join(root, "py-tools", "older")
	newer := filepath.Join(root, "py-tools", "newer")
	for _, p := range []string{older, newer} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(filepath.Join(p, "blob"), make([]byte, 100), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	past := time.Now().Add(-1 * time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	removed, err := m.Prune(0, 150)
	if err != nil {
		t.Fatalf("Prune error: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(older); !os.IsNotExist(err) {
		t.Error("oldest entry should have been evicted first")
	}
	if _, err := os.Stat(newer); err != nil {
		t.Error("newest entry should survive")
	}
}
