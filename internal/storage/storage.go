package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/prompthub/apiserver/config"
)

// Well-known key prefixes. Uploaded originals live under "uploads/",
// derived thumbnails under "thumbnails/"; the same keys double as the
// public /uploads and /thumbnails URL paths.
const (
	UploadPrefix    = "uploads"
	ThumbnailPrefix = "thumbnails"
)

// ObjectStorage is where uploaded originals and thumbnails live. Keys
// are slash-separated paths relative to the backend's root or bucket.
type ObjectStorage interface {
	// Init prepares the backend (creates directories or the bucket).
	Init(ctx context.Context) error
	// Put writes an object under key.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Get opens a reader for the object at key.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object at key.
	Delete(ctx context.Context, key string) error
}

// New selects a backend from config: "local" (default), "minio", or "gcs".
func New(ctx context.Context, cfg config.StorageConfig) (ObjectStorage, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "local":
		return NewLocalStorage(cfg.Local)
	case "minio":
		return NewMinioStorage(cfg.Minio)
	case "gcs":
		return NewGCSStorage(ctx, cfg.GCS)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// Key joins a prefix and a file name into a storage key.
func Key(prefix, name string) string {
	return prefix + "/" + name
}
