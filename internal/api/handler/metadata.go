package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/ymzk-dev/mediavault/internal/domain/model"
	"github.com/ymzk-dev/mediavault/internal/domain/repository"
	"github.com/ymzk-dev/mediavault/internal/usecase"
)

// Request/Response types

type RateRequest struct {
	Filename string `json:"filename"`
	Rating   int    `json:"rating"`
}

type RateResponse struct {
	Filename  string    `json:"filename"`
	Rating    int       `json:"rating"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ViewRequest struct {
	Filename string `json:"filename"`
}

type ViewResponse struct {
	Filename     string    `json:"filename"`
	Views        int64     `json:"views"`
	LastViewedAt time.Time `json:"last_viewed_at"`
}

type TagRequest struct {
	Filename string `json:"filename"`
	Tag      string `json:"tag"`
}

type TagResponse struct {
	Filename string   `json:"filename"`
	Tags     []string `json:"tags"`
}

type FavoriteRequest struct {
	Filename string `json:"filename"`
}

type FavoriteResponse struct {
	Filename  string   `json:"filename"`
	Favorite  bool     `json:"favorite"`
	Favorites []string `json:"favorites"`
}

// MetadataHandler handles metadata write requests.
type MetadataHandler struct {
	svc usecase.MetadataService
}

// NewMetadataHandler creates a new MetadataHandler.
func NewMetadataHandler(svc usecase.MetadataService) *MetadataHandler {
	return &MetadataHandler{svc: svc}
}

// Rate handles POST /api/ratings
func (h *MetadataHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req RateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Filename == "" {
		Error(w, http.StatusBadRequest, "invalid_filename", "Filename is required")
		return
	}

	entry, err := h.svc.SetRating(r.Context(), req.Filename, req.Rating)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, RateResponse{
		Filename:  req.Filename,
		Rating:    entry.Value,
		UpdatedAt: entry.UpdatedAt,
	})
}

// View handles POST /api/views
func (h *MetadataHandler) View(w http.ResponseWriter, r *http.Request) {
	var req ViewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Filename == "" {
		Error(w, http.StatusBadRequest, "invalid_filename", "Filename is required")
		return
	}

	entry, err := h.svc.IncrementView(r.Context(), req.Filename)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, ViewResponse{
		Filename:     req.Filename,
		Views:        entry.Count,
		LastViewedAt: entry.LastViewedAt,
	})
}

// AddTag handles POST /api/tags
func (h *MetadataHandler) AddTag(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTagRequest(w, r)
	if !ok {
		return
	}

	tags, err := h.svc.AddTag(r.Context(), req.Filename, req.Tag)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, TagResponse{Filename: req.Filename, Tags: tags})
}

// RemoveTag handles DELETE /api/tags
func (h *MetadataHandler) RemoveTag(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeTagRequest(w, r)
	if !ok {
		return
	}

	tags, err := h.svc.RemoveTag(r.Context(), req.Filename, req.Tag)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}
	if tags == nil {
		tags = []string{}
	}

	JSON(w, http.StatusOK, TagResponse{Filename: req.Filename, Tags: tags})
}

// Favorite handles POST /api/favorites
func (h *MetadataHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	var req FavoriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return
	}
	if req.Filename == "" {
		Error(w, http.StatusBadRequest, "invalid_filename", "Filename is required")
		return
	}

	favorite, favorites, err := h.svc.ToggleFavorite(r.Context(), req.Filename)
	if err != nil {
		h.handleServiceError(w, err)
		return
	}

	JSON(w, http.StatusOK, FavoriteResponse{
		Filename:  req.Filename,
		Favorite:  favorite,
		Favorites: favorites,
	})
}

func (h *MetadataHandler) decodeTagRequest(w http.ResponseWriter, r *http.Request) (TagRequest, bool) {
	var req TagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "invalid_request", "Invalid JSON body")
		return TagRequest{}, false
	}
	if req.Filename == "" {
		Error(w, http.StatusBadRequest, "invalid_filename", "Filename is required")
		return TagRequest{}, false
	}
	return req, true
}

func (h *MetadataHandler) handleServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidRating):
		Error(w, http.StatusBadRequest, "invalid_rating", "Rating must be between 1 and 5")
	case errors.Is(err, model.ErrEmptyTag):
		Error(w, http.StatusBadRequest, "invalid_tag", "Tag cannot be empty")
	case errors.Is(err, model.ErrEmptyFilename):
		Error(w, http.StatusBadRequest, "invalid_filename", "Filename is required")
	case errors.Is(err, repository.ErrVideoNotFound):
		Error(w, http.StatusNotFound, "video_not_found", "Video not found")
	case errors.Is(err, repository.ErrStoreUnavailable):
		Error(w, http.StatusInternalServerError, "store_unavailable", "Metadata store did not respond in time")
	default:
		Error(w, http.StatusInternalServerError, "internal_error", "An unexpected error occurred")
	}
}
