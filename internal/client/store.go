package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/keshon/orator/internal/config"
	"github.com/keshon/orator/internal/storage"
	"github.com/keshon/orator/internal/storage/filestore"
	"github.com/keshon/orator/internal/storage/postgres"
)

// OpenStore opens the storage backend selected by STORAGE_DRIVER.
func OpenStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storage.Client, error) {
	log = log.With().Str("component", "storage").Logger()
	switch cfg.StorageDriver {
	case "postgres":
		return postgres.Open(ctx, cfg.DatabaseURL, log)
	case "file", "":
		if err := os.MkdirAll(filepath.Dir(cfg.StoragePath), 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
		return filestore.Open(cfg.StoragePath, log)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
}
