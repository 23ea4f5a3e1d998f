package httpapi

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"speakgate/internal/observability"
)

var safeExt = regexp.MustCompile(`^\.[A-Za-z0-9]{1,8}$`)

func (h *Handler) uploadDir() string {
	if h.Config.Uploads.Dir == "" {
		return "uploads"
	}
	return h.Config.Uploads.Dir
}

func (h *Handler) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	limit := h.Config.Uploads.MaxBytes
	if limit <= 0 {
		limit = 25 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	file, header, err := r.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, &ValidationError{Status: http.StatusRequestEntityTooLarge, Message: "file too large"})
		default:
			writeError(w, &ValidationError{Message: "No file uploaded"})
		}
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !safeExt.MatchString(ext) {
		ext = ""
	}
	name := uuid.NewString() + ext

	dir := h.uploadDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		h.logger().Printf("upload mkdir failed request_id=%s: %v", observability.RequestIDFromContext(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "upload failed"})
		return
	}
	dst, err := os.OpenFile(filepath.Join(dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		h.logger().Printf("upload create failed request_id=%s: %v", observability.RequestIDFromContext(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "upload failed"})
		return
	}
	if _, err := io.Copy(dst, file); err != nil {
		_ = dst.Close()
		_ = os.Remove(dst.Name())
		h.logger().Printf("upload write failed request_id=%s: %v", observability.RequestIDFromContext(r.Context()), err)
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "upload failed"})
		return
	}
	if err := dst.Close(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"message": "upload failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"audioUrl": "/uploads/" + name})
}

// uploadsFileServer serves stored files but never directory listings.
func (h *Handler) uploadsFileServer() http.Handler {
	fs := http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.uploadDir())))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fs.ServeHTTP(w, r)
	})
}
