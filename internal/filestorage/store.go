package filestorage

import (
	"context"
	"fmt"
	"io"

	"lostfound_backend/internal/config"

	"go.uber.org/zap"
)

// StoredFile identifies a saved object. Key is what Delete needs, URL is what clients load.
type StoredFile struct {
	Key string `json:"key"`
	URL string `json:"url"`
}

// Store persists binary objects under a sub-directory (or folder) name.
type Store interface {
	Put(ctx context.Context, r io.Reader, subDir, ext string) (StoredFile, error)
	Delete(ctx context.Context, key string) error
}

// NewStore builds the Store selected by STORAGE_DRIVER.
func NewStore(cfg *config.Config, logger *zap.Logger) (Store, error) {
	switch cfg.StorageDriver {
	case "", "local":
		return NewLocalStore(cfg.StorageLocalPath, cfg.StoragePublicBaseURL, logger)
	case "cloudinary":
		return NewCloudinaryStore(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder, logger)
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
