package db

import (
	"fmt"

	"github.com/clarion-legal/careers/internal/models"
	"gorm.io/gorm"
)

// Migrate creates or updates the schema for all application models.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}
	return conn.AutoMigrate(
		&models.Candidate{},
		&models.ProfileTestResult{},
		&models.Admin{},
		&models.AuditLog{},
	)
}
