package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/HSouheill/nestfire_backend/models"
)

// LocalStore writes objects under a directory that echo serves at /uploads
type LocalStore struct {
	basePath string
	baseURL  string
	logger   *zap.Logger
}

func NewLocalStore(basePath, baseURL string, logger *zap.Logger) (*LocalStore, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &LocalStore{basePath: basePath, baseURL: baseURL, logger: logger.Named("storage")}, nil
}

// Root is the directory holding the stored files
func (s *LocalStore) Root() string { return s.basePath }

func (s *LocalStore) Upload(ctx context.Context, name, contentType string, r io.Reader) (models.MediaRef, error) {
	key, err := cleanKey(name)
	if err != nil {
		return models.MediaRef{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.MediaRef{}, err
	}

	fullPath := filepath.Join(s.basePath, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return models.MediaRef{}, fmt.Errorf("create directory: %w", err)
	}

	dst, err := os.OpenFile(fullPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(dst, r); err != nil {
		dst.Close()
		os.Remove(fullPath)
		return models.MediaRef{}, fmt.Errorf("write file: %w", err)
	}
	if err := dst.Close(); err != nil {
		return models.MediaRef{}, fmt.Errorf("close file: %w", err)
	}

	s.logger.Debug("file stored", zap.String("key", key), zap.String("contentType", contentType))
	return models.MediaRef{URL: s.baseURL + "/" + key, PublicID: key}, nil
}

func (s *LocalStore) Delete(ctx context.Context, publicID string) error {
	key, err := cleanKey(publicID)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(s.basePath, filepath.FromSlash(key)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
