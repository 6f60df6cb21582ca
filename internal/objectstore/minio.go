package objectstore

import (
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
)

// MinIOClient adapts a minio.Client and a fixed bucket to the Client
// interface.
type MinIOClient struct {
	client *minio.Client
	bucket string
}

// NewMinIOClient constructs an adapter over an established connection.
func NewMinIOClient(client *minio.Client, bucket string) *MinIOClient {
	return &MinIOClient{client: client, bucket: bucket}
}

var _ Client = (*MinIOClient)(nil)

func (c *MinIOClient) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if _, err := c.client.PutObject(ctx, c.bucket, key, reader, size, opts); err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func (c *MinIOClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	// GetObject defers errors until the first read, so probe existence first
	// to give callers a clean not-found.
	if _, err := c.client.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("stat object %s: %w", key, err)
	}

	object, err := c.client.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	return object, nil
}

func (c *MinIOClient) Delete(ctx context.Context, key string) (bool, error) {
	if err := c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return false, fmt.Errorf("remove object %s: %w", key, err)
	}
	return true, nil
}
