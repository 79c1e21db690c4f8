package handler

import (
	"context"
	"net/http"

	"github.com/ymzk-dev/mediavault/internal/cache"
	"github.com/ymzk-dev/mediavault/internal/perf"
)

// PerfSource exposes the aggregated performance snapshot. Implemented by
// *perf.Collector.
type PerfSource interface {
	Snapshot() perf.Snapshot
}

// CacheAdmin exposes the cache control surface. Implemented by *cache.Store.
type CacheAdmin interface {
	Status() []cache.DomainStatus
	RefreshAll(ctx context.Context) error
}

// PerformanceResponse is the dashboard payload: the collector snapshot plus
// which durable backend the process selected at startup. Field names are a
// stable contract with the dashboard frontend.
type PerformanceResponse struct {
	perf.Snapshot
	Backend string `json:"backend"`
}

type CacheStatusResponse struct {
	Domains []cache.DomainStatus `json:"domains"`
}

type CacheRefreshResponse struct {
	Status string `json:"status"`
}

// AdminHandler handles the operator endpoints under /admin.
type AdminHandler struct {
	source  PerfSource
	cache   CacheAdmin
	backend string
}

// NewAdminHandler creates a new AdminHandler. backend names the durable
// store mode selected at startup ("primary" or "fallback").
func NewAdminHandler(source PerfSource, cacheAdmin CacheAdmin, backend string) *AdminHandler {
	return &AdminHandler{source: source, cache: cacheAdmin, backend: backend}
}

// Performance handles GET /admin/performance
func (h *AdminHandler) Performance(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, PerformanceResponse{
		Snapshot: h.source.Snapshot(),
		Backend:  h.backend,
	})
}

// CacheStatus handles GET /admin/cache/status
func (h *AdminHandler) CacheStatus(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, CacheStatusResponse{Domains: h.cache.Status()})
}

// CacheRefresh handles POST /admin/cache/refresh
func (h *AdminHandler) CacheRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.RefreshAll(r.Context()); err != nil {
		Error(w, http.StatusInternalServerError, "refresh_failed", "Cache refresh failed")
		return
	}
	JSON(w, http.StatusOK, CacheRefreshResponse{Status: "refreshed"})
}
