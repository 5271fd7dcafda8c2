package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/config"
	"github.com/HSouheill/nestfire_backend/models"
)

// MediaStore keeps binary objects addressed by a public id
type MediaStore interface {
	Upload(ctx context.Context, name, contentType string, r io.Reader) (models.MediaRef, error)
	Delete(ctx context.Context, publicID string) error
}

// New builds the store selected by STORAGE_DRIVER
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (MediaStore, error) {
	switch cfg.StorageDriver {
	case config.StorageS3:
		return NewS3Store(cfg.S3Region, cfg.S3Bucket)
	case config.StorageGCS:
		return NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentialsFile)
	case config.StorageLocal, "":
		return NewLocalStore(cfg.LocalStoragePath, cfg.PublicBaseURL+"/uploads", logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// cleanKey rejects keys that would escape the store root
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	return cleaned, nil
}
