package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/clarion-legal/careers/internal/config"
	log "github.com/sirupsen/logrus"
)

// NewFromConfig constructs the configured object-store backend.
func NewFromConfig(cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Backend {
	case "s3":
		return NewS3Store(cfg.Bucket, cfg.Prefix, cfg.Region, cfg.Endpoint, cfg.AccessKey, cfg.SecretKey)
	case "file":
		return NewFileStore(cfg.LocalDir)
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", cfg.Backend)
	}
}

// CleanTemp removes objects under the temporary upload prefix older than
// maxAge. Abandoned uploads (location requested, submission never completed)
// accumulate there.
func CleanTemp(ctx context.Context, store ObjectStore, maxAge time.Duration) (int, error) {
	objects, errList := store.List(ctx, TempPrefix)
	if errList != nil {
		return 0, errList
	}

	cutoff := time.Now().Add(-maxAge)
	deleted := 0
	for _, obj := range objects {
		if obj.ModifiedAt.After(cutoff) {
			continue
		}
		if errDelete := store.Delete(ctx, obj.Path); errDelete != nil {
			log.WithError(errDelete).WithField("path", obj.Path).Warn("failed to delete stale temp object")
			continue
		}
		deleted++
	}
	return deleted, nil
}
