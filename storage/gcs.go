package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"github.com/HSouheill/nestfire_backend/models"
)

// GCSStore keeps objects in a Google Cloud Storage bucket
type GCSStore struct {
	client     *storage.Client
	bucketName string
}

// NewGCSStore uses the credentials file when given, application default credentials otherwise
func NewGCSStore(ctx context.Context, bucketName, credentialsFile string) (*GCSStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &GCSStore{client: client, bucketName: bucketName}, nil
}

func (c *GCSStore) Upload(ctx context.Context, name, contentType string, r io.Reader) (models.MediaRef, error) {
	key, err := cleanKey(name)
	if err != nil {
		return models.MediaRef{}, err
	}

	writer := c.client.Bucket(c.bucketName).Object(key).NewWriter(ctx)
	writer.ContentType = contentType
	if _, err := io.Copy(writer, r); err != nil {
		writer.Close()
		return models.MediaRef{}, fmt.Errorf("gcs write %s: %w", key, err)
	}
	// the object is committed on Close
	if err := writer.Close(); err != nil {
		return models.MediaRef{}, fmt.Errorf("gcs close %s: %w", key, err)
	}
	return models.MediaRef{
		URL:      fmt.Sprintf("https://storage.googleapis.com/%s/%s", c.bucketName, key),
		PublicID: key,
	}, nil
}

func (c *GCSStore) Delete(ctx context.Context, publicID string) error {
	err := c.client.Bucket(c.bucketName).Object(publicID).Delete(ctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("gcs delete %s: %w", publicID, err)
	}
	return nil
}

// Close releases the client
func (c *GCSStore) Close() error {
	return c.client.Close()
}
