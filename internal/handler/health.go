package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/jobdeck/jobdeck/api/internal/model"
)

// QueueInspector exposes queue depth for the health surface
type QueueInspector interface {
	Counts(ctx context.Context) (map[model.DispatchState]int, error)
}

// HealthResponse is the health endpoint payload
type HealthResponse struct {
	Status string         `json:"status"`
	Time   time.Time      `json:"time"`
	Queue  map[string]int `json:"queue,omitempty"`
}

// HealthHandler handles GET /health
type HealthHandler struct {
	queue  QueueInspector
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(queue QueueInspector, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{queue: queue, logger: logger}
}

// ServeHTTP reports process health plus per-state queue depth. A failing
// counts query degrades the payload, not the status: delivery workers
// may still be healthy when the store is briefly unreachable.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC(),
	}

	if h.queue != nil {
		counts, err := h.queue.Counts(r.Context())
		if err != nil {
			h.logger.Warn("queue counts unavailable", slog.String("error", err.Error()))
		} else {
			resp.Queue = make(map[string]int, len(counts))
			for state, n := range counts {
				resp.Queue[string(state)] = n
			}
		}
	}

	WriteJSON(w, http.StatusOK, resp)
}
