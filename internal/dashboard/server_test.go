package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/zulandar/dockhand/internal/db"
	"github.com/zulandar/dockhand/internal/models"
	"gorm.io/gorm"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return gdb
}

func get(t *testing.T, router http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	router := newRouter(testDB(t))
	w := get(t, router, "/healthz")
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

func TestAPIRuns(t *testing.T) {
	gdb := testDB(t)
	for _, r := range []models.ProvisionRun{
		{ID: "run-a", Stage: "onCreate", Status: "ok", StartedAt: time.Now().Add(-time.Hour)},
		{ID: "run-b", Stage: "postCreate", Status: "degraded", StartedAt: time.Now()},
	} {
		if err := gdb.Create(&r).Error; err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	w := get(t, newRouter(gdb), "/api/runs")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var rows []RunRow
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0].ID != "run-b" {
		t.Errorf("rows[0].ID = %q, want run-b (newest first)", rows[0].ID)
	}
}

func TestAPICaches(t *testing.T) {
	gdb := testDB(t)
	if err := gdb.Create(&models.CacheVolume{
		Name: "aspire-nuget-cache", MountPath: "/cache/nuget", Entries: 12, SizeBytes: 4096,
	}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	w := get(t, newRouter(gdb), "/api/caches")
	var rows []CacheRow
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rows) != 1 || rows[0].Entries != 12 {
		t.Errorf("rows = %+v", rows)
	}
}

func TestAPIChecks_LatestPerKey(t *testing.T) {
	gdb := testDB(t)
	for _, c := range []models.CredentialCheck{
		{Key: "GH_PAT", Status: "invalid", CheckedAt: time.Now().Add(-time.Hour)},
		{Key: "GH_PAT", Status: "valid", CheckedAt: time.Now()},
		{Key: "DOCKER_ACCESS_TOKEN", Status: "valid", CheckedAt: time.Now()},
	} {
		if err := gdb.Create(&c).Error; err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	w := get(t, newRouter(gdb), "/api/checks")
	var rows []CheckRow
	if err := json.Unmarshal(w.Body.Bytes(), &rows); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 (one per key)", len(rows))
	}
	for _, r := range rows {
		if r.Key == "GH_PAT" && r.Status != "valid" {
			t.Errorf("GH_PAT status = %q, want valid (latest wins)", r.Status)
		}
	}
}
