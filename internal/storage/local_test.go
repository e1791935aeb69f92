package storage

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/prompthub/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocalFixture(t *testing.T) *LocalStorage {
	t.Helper()

	root := t.TempDir()
	store, err := NewLocalStorage(config.LocalConfig{
		UploadsDir:    filepath.Join(root, "uploads"),
		ThumbnailsDir: filepath.Join(root, "thumbnails"),
	})
	require.NoError(t, err)
	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestLocalPutGetDelete(t *testing.T) {
	store := newLocalFixture(t)
	ctx := context.Background()
	payload := []byte("image bytes")

	key := Key(UploadPrefix, "a.png")
	require.NoError(t, store.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), "image/png"))

	reader, err := store.Get(ctx, key)
	require.NoError(t, err)
	got, err := io.ReadAll(reader)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	assert.Equal(t, payload, got)

	require.NoError(t, store.Delete(ctx, key))
	_, err = store.Get(ctx, key)
	assert.Error(t, err)

	// Deleting an already-missing object is not an error.
	assert.NoError(t, store.Delete(ctx, key))
}

func TestLocalThumbnailKeysLandInThumbnailsDir(t *testing.T) {
	store := newLocalFixture(t)
	ctx := context.Background()

	key := Key(ThumbnailPrefix, "thumb_a.jpg")
	require.NoError(t, store.Put(ctx, key, bytes.NewReader([]byte("x")), 1, "image/jpeg"))

	reader, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.NoError(t, reader.Close())

	_, err = store.Get(ctx, Key(UploadPrefix, "thumb_a.jpg"))
	assert.Error(t, err)
}

func TestLocalRejectsEscapingKeys(t *testing.T) {
	store := newLocalFixture(t)
	ctx := context.Background()

	for _, key := range []string{
		"uploads/../secrets.txt",
		"uploads/.hidden",
		"uploads/",
		"elsewhere/a.png",
		"a.png",
	} {
		err := store.Put(ctx, key, bytes.NewReader([]byte("x")), 1, "")
		assert.Error(t, err, key)
	}
}
