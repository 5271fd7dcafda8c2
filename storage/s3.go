package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"github.com/HSouheill/nestfire_backend/models"
)

// S3Store keeps objects in an S3 bucket
type S3Store struct {
	s3     *s3.S3
	bucket string
}

func NewS3Store(region, bucket string) (*S3Store, error) {
	sess, err := session.NewSession(&aws.Config{
		Region: aws.String(region),
	})
	if err != nil {
		return nil, fmt.Errorf("aws session: %w", err)
	}
	return &S3Store{s3: s3.New(sess), bucket: bucket}, nil
}

func (c *S3Store) Upload(ctx context.Context, name, contentType string, r io.Reader) (models.MediaRef, error) {
	key, err := cleanKey(name)
	if err != nil {
		return models.MediaRef{}, err
	}
	// PutObject needs a seekable body
	data, err := io.ReadAll(r)
	if err != nil {
		return models.MediaRef{}, err
	}

	_, err = c.s3.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return models.MediaRef{}, fmt.Errorf("s3 put %s: %w", key, err)
	}
	return models.MediaRef{URL: fmt.Sprintf("https://%s.s3.amazonaws.com/%s", c.bucket, key), PublicID: key}, nil
}

func (c *S3Store) Delete(ctx context.Context, publicID string) error {
	_, err := c.s3.DeleteObjectWithContext(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s: %w", publicID, err)
	}
	return nil
}
