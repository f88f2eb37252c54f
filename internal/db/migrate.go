package db

import (
	"fmt"

	"github.com/zulandar/dockhand/internal/models"
	"gorm.io/gorm"
)

// AllModels returns every GORM model the state store migrates.
func AllModels() []interface{} {
	return []interface{}{
		&models.ProvisionRun{},
		&models.HookExecution{},
		&models.CacheVolume{},
		&models.ToolInstall{},
		&models.CommandLog{},
		&models.CredentialCheck{},
	}
}

// AutoMigrate creates or updates all state store tables.
func AutoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	return nil
}

// Reset drops and recreates all state store tables.
func Reset(gdb *gorm.DB) error {
	for _, m := range AllModels() {
		if err := gdb.Migrator().DropTable(m); err != nil {
			return fmt.Errorf("db: drop table: %w", err)
		}
	}
	return AutoMigrate(gdb)
}
