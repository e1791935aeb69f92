package handlers

import (
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prompthub/apiserver/internal/storage"
)

// FileHandler streams stored uploads and thumbnails over HTTP so every
// storage backend serves files through the same URLs.
type FileHandler struct {
	store storage.ObjectStorage
}

// NewFileHandler constructs a handler backed by the given storage.
func NewFileHandler(store storage.ObjectStorage) *FileHandler {
	return &FileHandler{store: store}
}

// ServeUpload streams an original upload by file name.
func (h *FileHandler) ServeUpload(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, storage.UploadPrefix)
}

// ServeThumbnail streams a generated thumbnail by file name.
func (h *FileHandler) ServeThumbnail(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, storage.ThumbnailPrefix)
}

func (h *FileHandler) serve(w http.ResponseWriter, r *http.Request, prefix string) {
	name := chi.URLParam(r, "name")
	if name == "" || name != path.Base(name) || strings.HasPrefix(name, ".") {
		writeError(w, http.StatusBadRequest, "invalid file name")
		return
	}

	reader, err := h.store.Get(r.Context(), storage.Key(prefix, name))
	if err != nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	defer reader.Close()

	if contentType := mime.TypeByExtension(path.Ext(name)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = io.Copy(w, reader)
}
