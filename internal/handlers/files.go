package handlers

import (
	"bufio"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/schooldesk/console/internal/storage"
)

// File streams an object from the configured storage.
func (h *Handler) File(w http.ResponseWriter, r *http.Request) {
	if h.storage == nil {
		http.NotFound(w, r)
		return
	}

	key := strings.TrimPrefix(path.Clean("/"+chi.URLParam(r, "*")), "/")
	if key == "" || key == "." {
		http.NotFound(w, r)
		return
	}

	obj, err := h.storage.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.log.WithError(err).WithField("key", key).Warn("open object")
		writeError(w, http.StatusBadGateway, "file storage unavailable")
		return
	}
	defer obj.Close()

	// Some backends only report a failure on the first read.
	reader := bufio.NewReader(obj)
	if _, err := reader.Peek(1); err != nil && !errors.Is(err, io.EOF) {
		h.log.WithError(err).WithField("key", key).Warn("read object")
		writeError(w, http.StatusBadGateway, "file storage unavailable")
		return
	}

	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, reader)
}
