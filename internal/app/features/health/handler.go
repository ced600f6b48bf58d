package health

import (
	"context"
	"net/http"

	"github.com/adityav2131/major-project-sub000/internal/app/features/apierr"
	"github.com/adityav2131/major-project-sub000/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Pinger is the slice of the store the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Store   Pinger
	Backend string
	Log     *zap.Logger
}

// NewHandler constructs a health Handler. backend names the store
// ("mongo" or "memory") in the response.
func NewHandler(st Pinger, backend string, logger *zap.Logger) *Handler {
	return &Handler{Store: st, Backend: backend, Log: logger}
}

type healthResponse struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Backend string `json:"backend"`
	Error   string `json:"error,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "store":"connected", "backend":"mongo" }
//
// On store failure: 503 and
//
//	{ "status":"error", "store":"disconnected", "backend":"mongo", "error":"…" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{Status: "ok", Store: "connected", Backend: h.Backend}
	if err := h.Store.Ping(ctx); err != nil {
		h.Log.Error("health-check: store ping failed", zap.String("backend", h.Backend), zap.Error(err))
		resp.Status = "error"
		resp.Store = "disconnected"
		resp.Error = err.Error()
		apierr.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	apierr.JSON(w, http.StatusOK, resp)
}
