// Package storage reads and writes whole blobs by key on the local
// filesystem, S3, or Azure Blob Storage. Keys always use forward slashes.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/OCHA-DAP/hdx-foodsecurity-CERF/internal/config"
)

// ErrNotFound is returned by Get when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// Blob is a flat key/value blob store.
type Blob interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Key joins a prefix and name into a blob key, dropping empty parts.
func Key(prefix, name string) string {
	return strings.TrimPrefix(path.Join(prefix, name), "/")
}

func notFound(key string) error {
	return fmt.Errorf("%w: %s", ErrNotFound, key)
}

// New opens the blob store selected by STORAGE_BACKEND. STORAGE_ROOT names
// the directory, bucket or container.
func New(ctx context.Context, cfg *config.Config) (Blob, error) {
	switch cfg.StorageBackend {
	case config.BackendFile:
		return NewFileStore(cfg.StorageRoot), nil
	case config.BackendS3:
		return NewS3Store(ctx, cfg.StorageRoot)
	case config.BackendAzure:
		return NewAzureStore(cfg.StorageRoot, cfg.AzureAccountURL, cfg.AzureConnectionString)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
