package app

import (
	"sync"

	"gorm.io/gorm"

	"github.com/clarion-legal/careers/internal/config"
	"github.com/clarion-legal/careers/internal/db"
	"github.com/clarion-legal/careers/internal/storage"
)

// Process-wide handles shared by the server and CLI commands. Both are
// constructed once on first use; later calls return the same instance.
var (
	dbOnce  sync.Once
	dbConn  *gorm.DB
	dbErr   error
	objOnce sync.Once
	objStor storage.ObjectStore
	objErr  error
)

// Database returns the shared database handle, opening it on first call.
func Database(cfg *config.Config) (*gorm.DB, error) {
	dbOnce.Do(func() {
		dbConn, dbErr = db.Open(cfg.Database.DSN)
	})
	return dbConn, dbErr
}

// Storage returns the shared object store, constructing it on first call.
func Storage(cfg *config.Config) (storage.ObjectStore, error) {
	objOnce.Do(func() {
		objStor, objErr = storage.NewFromConfig(cfg.Storage)
	})
	return objStor, objErr
}
