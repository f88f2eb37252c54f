// Package db opens and migrates the dockhand state store.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	sqlmysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DefaultPath is the default sqlite state store location, relative to the
// workspace root.
const DefaultPath = ".dockhand/state.db"

// Open connects to the state store. A DSN containing "@tcp(" selects the MySQL
// driver (shared team state); anything else is treated as a sqlite file path.
func Open(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = DefaultPath
	}
	if strings.Contains(dsn, "@tcp(") {
		return openMySQL(dsn)
	}
	return openSQLite(dsn)
}

func openSQLite(path string) (*gorm.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("db: create state dir: %w", err)
		}
	}
	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open sqlite %s: %w", path, err)
	}
	return gdb, nil
}

func openMySQL(dsn string) (*gorm.DB, error) {
	cfg, err := sqlmysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("db: parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	gdb, err := gorm.Open(mysql.Open(cfg.FormatDSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open mysql: %w", err)
	}
	return gdb, nil
}
