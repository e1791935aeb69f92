package images

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/prompthub/apiserver/config"
	"github.com/prompthub/apiserver/internal/storage"
	"github.com/prompthub/apiserver/types"

	// Register the webp decoder; jpeg, png, and gif come with imaging.
	_ "golang.org/x/image/webp"
)

const (
	thumbnailWidth   = 300
	thumbnailHeight  = 300
	thumbnailQuality = 80
)

// ErrUnsupportedType is returned for files outside the extension allow-list.
var ErrUnsupportedType = errors.New("unsupported image type")

// ErrTooLarge is returned when an upload exceeds the configured ceiling.
var ErrTooLarge = errors.New("image file too large")

// ErrInvalidImage is returned when the payload does not decode as an image.
var ErrInvalidImage = errors.New("invalid image data")

// Processor validates uploaded images, stores the original, and derives
// a fixed-size center-cropped thumbnail. Thumbnailing is synchronous;
// the request holds until the thumbnail is written.
type Processor struct {
	store       storage.ObjectStorage
	maxFileSize int64
	allowedExts map[string]struct{}
}

// NewProcessor constructs a Processor over the given storage backend.
func NewProcessor(store storage.ObjectStorage, cfg config.UploadConfig) *Processor {
	allowed := make(map[string]struct{}, len(cfg.AllowedTypes))
	for _, ext := range cfg.AllowedTypes {
		allowed[strings.ToLower(ext)] = struct{}{}
	}
	return &Processor{
		store:       store,
		maxFileSize: cfg.MaxFileSize,
		allowedExts: allowed,
	}
}

// Validate checks the filename extension against the allow-list and the
// declared size against the ceiling. It is called before any bytes are
// read so oversize uploads fail fast.
func (p *Processor) Validate(filename string, size int64) error {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if _, ok := p.allowedExts[ext]; !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	if size > p.maxFileSize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, size, p.maxFileSize)
	}
	return nil
}

// Process stores the original under a collision-resistant name and
// writes a 300x300 center-cropped JPEG thumbnail next to it. On any
// failure nothing is left behind in storage.
func (p *Processor) Process(ctx context.Context, r io.Reader, originalName string, declaredSize int64, mimeType string) (types.PromptImage, error) {
	if err := p.Validate(originalName, declaredSize); err != nil {
		return types.PromptImage{}, err
	}

	data, err := readLimited(r, p.maxFileSize)
	if err != nil {
		return types.PromptImage{}, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return types.PromptImage{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	thumbnail := imaging.Fill(img, thumbnailWidth, thumbnailHeight, imaging.Center, imaging.Lanczos)
	var thumbBuf bytes.Buffer
	if err := imaging.Encode(&thumbBuf, thumbnail, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return types.PromptImage{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	ext := strings.ToLower(filepath.Ext(originalName))
	name := uuid.NewString() + ext
	thumbName := "thumb_" + strings.TrimSuffix(name, ext) + ".jpg"
	originalKey := storage.Key(storage.UploadPrefix, name)
	thumbKey := storage.Key(storage.ThumbnailPrefix, thumbName)

	if mimeType == "" {
		mimeType = mime.TypeByExtension(ext)
	}

	if err := p.store.Put(ctx, originalKey, bytes.NewReader(data), int64(len(data)), mimeType); err != nil {
		return types.PromptImage{}, err
	}
	if err := p.store.Put(ctx, thumbKey, bytes.NewReader(thumbBuf.Bytes()), int64(thumbBuf.Len()), "image/jpeg"); err != nil {
		_ = p.store.Delete(ctx, originalKey)
		return types.PromptImage{}, err
	}

	return types.PromptImage{
		FileName:      name,
		OriginalName:  originalName,
		FilePath:      originalKey,
		ThumbnailPath: thumbKey,
		FileSize:      int64(len(data)),
		MimeType:      mimeType,
	}, nil
}

// Remove deletes the stored original and thumbnail for an image record.
func (p *Processor) Remove(ctx context.Context, image types.PromptImage) error {
	var errs []error
	if image.FilePath != "" {
		if err := p.store.Delete(ctx, image.FilePath); err != nil {
			errs = append(errs, err)
		}
	}
	if image.ThumbnailPath != "" {
		if err := p.store.Delete(ctx, image.ThumbnailPath); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	limited := io.LimitReader(r, limit+1)
	data, err := io.ReadAll(limited)
	if err != nil {
		return nil, errors.New("failed to read upload")
	}
	if int64(len(data)) > limit {
		return nil, ErrTooLarge
	}
	return data, nil
}
