package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ymzk-dev/mediavault/internal/domain/repository"
	"github.com/ymzk-dev/mediavault/internal/usecase"
)

// ThumbnailQueue schedules background thumbnail generation. Implemented by
// *thumbnail.Pool; nil disables queueing.
type ThumbnailQueue interface {
	EnsureThumbnails(filenames []string) int
}

type VideoListResponse struct {
	Videos []usecase.VideoMeta `json:"videos"`
	Count  int                 `json:"count"`
}

type TagListResponse struct {
	Tags []string `json:"tags"`
}

// LibraryHandler handles read-side library requests.
type LibraryHandler struct {
	svc    usecase.LibraryService
	thumbs ThumbnailQueue
}

// NewLibraryHandler creates a new LibraryHandler.
func NewLibraryHandler(svc usecase.LibraryService, thumbs ThumbnailQueue) *LibraryHandler {
	return &LibraryHandler{svc: svc, thumbs: thumbs}
}

// List handles GET /api/videos
func (h *LibraryHandler) List(w http.ResponseWriter, r *http.Request) {
	sortBy := r.URL.Query().Get("sort")
	order := r.URL.Query().Get("order")

	videos, err := h.svc.List(r.Context(), sortBy, order)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	h.queueThumbnails(videos)
	JSON(w, http.StatusOK, VideoListResponse{Videos: videos, Count: len(videos)})
}

// Get handles GET /api/videos/{filename}
func (h *LibraryHandler) Get(w http.ResponseWriter, r *http.Request) {
	meta, err := h.svc.Get(r.Context(), chi.URLParam(r, "filename"))
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, meta)
}

// Related handles GET /api/videos/{filename}/related
func (h *LibraryHandler) Related(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			Error(w, http.StatusBadRequest, "invalid_limit", "Limit must be a positive integer")
			return
		}
		limit = parsed
	}

	videos, err := h.svc.Related(r.Context(), chi.URLParam(r, "filename"), limit)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, VideoListResponse{Videos: videos, Count: len(videos)})
}

// BestOf handles GET /api/videos/best
func (h *LibraryHandler) BestOf(w http.ResponseWriter, r *http.Request) {
	videos, err := h.svc.BestOf(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, VideoListResponse{Videos: videos, Count: len(videos)})
}

// Random handles GET /api/videos/random
func (h *LibraryHandler) Random(w http.ResponseWriter, r *http.Request) {
	meta, err := h.svc.Random(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, meta)
}

// Tags handles GET /api/tags
func (h *LibraryHandler) Tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.svc.UniqueTags(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}

	JSON(w, http.StatusOK, TagListResponse{Tags: tags})
}

// Favorites handles GET /api/favorites
func (h *LibraryHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	videos, err := h.svc.Favorites(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, VideoListResponse{Videos: videos, Count: len(videos)})
}

// Views handles GET /api/views
func (h *LibraryHandler) Views(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ViewCounts(r.Context())
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	counts := make(map[string]int64, len(views))
	for key, entry := range views {
		counts[key] = entry.Count
	}
	JSON(w, http.StatusOK, counts)
}

func (h *LibraryHandler) queueThumbnails(videos []usecase.VideoMeta) {
	if h.thumbs == nil || len(videos) == 0 {
		return
	}
	filenames := make([]string, len(videos))
	for i, v := range videos {
		filenames[i] = v.Filename
	}
	h.thumbs.EnsureThumbnails(filenames)
}

func (h *LibraryHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidSort):
		Error(w, http.StatusBadRequest, "invalid_sort", "Unknown sort key or order")
	case errors.Is(err, repository.ErrVideoNotFound):
		Error(w, http.StatusNotFound, "video_not_found", "Video not found")
	case errors.Is(err, usecase.ErrLibraryEmpty):
		Error(w, http.StatusNotFound, "library_empty", "No videos in the library")
	case errors.Is(err, repository.ErrStoreUnavailable):
		Error(w, http.StatusInternalServerError, "store_unavailable", "Metadata store did not respond in time")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
