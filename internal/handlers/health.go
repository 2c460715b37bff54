package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/BradenHooton/riskgate/pkg/http"
)

// Pinger reports whether a backing store is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports liveness and history backend reachability
type HealthHandler struct {
	history Pinger
	backend string
	timeout time.Duration
	logger  *slog.Logger
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status  string `json:"status"`
	History string `json:"history"`
	Backend string `json:"backend"`
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(history Pinger, backend string, logger *slog.Logger) *HealthHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HealthHandler{
		history: history,
		backend: backend,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	resp := HealthResponse{Status: "ok", History: "ok", Backend: h.backend}
	if err := h.history.Ping(ctx); err != nil {
		h.logger.Warn("history backend unreachable", slog.String("backend", h.backend), slog.Any("error", err))
		resp.Status = "degraded"
		resp.History = "unavailable"
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
