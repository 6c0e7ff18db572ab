package handlers

import (
	"context"
	"net/http"

	"github.com/motia-studio/engine/internal/store"
	appErr "github.com/motia-studio/engine/pkg/errors"
)

// StatsSource reports record store state.
type StatsSource interface {
	Stats(ctx context.Context) (store.Stats, error)
}

type HealthHandler struct {
	stats StatsSource
}

func NewHealthHandler(stats StatsSource) *HealthHandler { return &HealthHandler{stats: stats} }

func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	writeData(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// Readiness fails while the storage backend cannot be read.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	if h.stats == nil {
		writeData(w, r, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	st, err := h.stats.Stats(r.Context())
	if err != nil {
		writeError(w, r, appErr.Wrap(err, appErr.CodeUnavailable, "storage unavailable"))
		return
	}
	writeData(w, r, http.StatusOK, map[string]any{"status": "ready", "store": st})
}
