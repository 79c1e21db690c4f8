package handler

import (
	"net/http"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

// NewHealthHandler reports liveness plus the store backend selected at
// startup, so probes can tell a degraded flat-file instance from a healthy
// one.
func NewHealthHandler(backend string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		JSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Backend: backend,
		})
	}
}
