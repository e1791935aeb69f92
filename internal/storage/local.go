package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/prompthub/apiserver/config"
)

// LocalStorage keeps uploads and thumbnails in two local directories.
// It is the default backend and the one the static file routes assume
// in development.
type LocalStorage struct {
	uploadsDir    string
	thumbnailsDir string
}

// NewLocalStorage constructs a filesystem backend from config.
func NewLocalStorage(cfg config.LocalConfig) (*LocalStorage, error) {
	if strings.TrimSpace(cfg.UploadsDir) == "" || strings.TrimSpace(cfg.ThumbnailsDir) == "" {
		return nil, errors.New("uploads and thumbnails directories are required")
	}
	return &LocalStorage{
		uploadsDir:    cfg.UploadsDir,
		thumbnailsDir: cfg.ThumbnailsDir,
	}, nil
}

// Init creates the uploads and thumbnails directories.
func (l *LocalStorage) Init(ctx context.Context) error {
	for _, dir := range []string{l.uploadsDir, l.thumbnailsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}

// Put writes an object under key.
func (l *LocalStorage) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	dst, err := l.resolve(key)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(file, r); err != nil {
		_ = file.Close()
		_ = os.Remove(dst)
		return err
	}
	return file.Close()
}

// Get opens a reader for the object at key.
func (l *LocalStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	src, err := l.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(src)
}

// Delete removes the object at key. A missing file is not an error.
func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	target, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// resolve maps a storage key onto a path under the matching directory,
// refusing names that would escape it.
func (l *LocalStorage) resolve(key string) (string, error) {
	prefix, name, ok := strings.Cut(key, "/")
	if !ok || name == "" {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	if name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}

	switch prefix {
	case UploadPrefix:
		return filepath.Join(l.uploadsDir, name), nil
	case ThumbnailPrefix:
		return filepath.Join(l.thumbnailsDir, name), nil
	default:
		return "", fmt.Errorf("invalid storage key %q", key)
	}
}
