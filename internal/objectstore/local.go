package objectstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalClient stores objects as plain files under a base directory. Meant
// for development and single-node deployments without MinIO.
type LocalClient struct {
	baseDir string
}

// NewLocalClient ensures the base directory exists.
func NewLocalClient(baseDir string) (*LocalClient, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &LocalClient{baseDir: baseDir}, nil
}

var _ Client = (*LocalClient)(nil)

func (c *LocalClient) path(key string) string {
	return filepath.Join(c.baseDir, filepath.FromSlash(key))
}

func (c *LocalClient) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create object dir: %w", err)
	}

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create object file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return fmt.Errorf("write object %s: %w", key, err)
	}
	return nil
}

func (c *LocalClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(c.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open object %s: %w", key, err)
	}
	return f, nil
}

func (c *LocalClient) Delete(ctx context.Context, key string) (bool, error) {
	if err := os.Remove(c.path(key)); err != nil {
		if os.IsNotExist(err) {
			return true, nil
		}
		return false, fmt.Errorf("remove object %s: %w", key, err)
	}
	return true, nil
}
