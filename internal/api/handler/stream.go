package handler

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

// StreamHandler serves video files with byte-range support.
type StreamHandler struct {
	mediaDir string
}

// NewStreamHandler creates a StreamHandler serving files from mediaDir.
func NewStreamHandler(mediaDir string) *StreamHandler {
	return &StreamHandler{mediaDir: mediaDir}
}

// Stream handles GET /api/videos/{filename}/stream
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")
	if !safeFilename(filename) {
		Error(w, http.StatusBadRequest, "invalid_filename", "Filename must not contain path separators")
		return
	}

	path := filepath.Join(h.mediaDir, filename)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			Error(w, http.StatusNotFound, "video_not_found", "Video not found")
			return
		}
		Error(w, http.StatusInternalServerError, "internal_error", "Failed to open video file")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		Error(w, http.StatusNotFound, "video_not_found", "Video not found")
		return
	}

	// ServeContent handles Range requests, Content-Type sniffing and
	// If-Modified-Since for us.
	http.ServeContent(w, r, filename, info.ModTime(), f)
}

// safeFilename rejects anything that could escape the media directory.
func safeFilename(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	if strings.ContainsAny(name, `/\`) {
		return false
	}
	return !strings.Contains(name, "..")
}
