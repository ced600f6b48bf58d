// internal/app/features/mentors/handler.go
package mentors

import (
	"context"
	"net/http"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/features/apierr"
	"github.com/adityav2131/major-project-sub000/internal/app/mentors"
	"github.com/adityav2131/major-project-sub000/internal/app/system/metrics"
	"github.com/adityav2131/major-project-sub000/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler exposes mentor capacity bookkeeping.
type Handler struct {
	Mentors *mentors.Allocator
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

func NewHandler(alloc *mentors.Allocator, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{Mentors: alloc, Metrics: m, Log: logger}
}

type capacityRequest struct {
	MaxTeamsAllowed int `json:"max_teams_allowed" validate:"gte=0,lte=100"`
}

// setCapacity handles PUT /mentors/{id}/capacity (admin).
func (h *Handler) setCapacity(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	var req capacityRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	start := time.Now()
	c, err := h.Mentors.SetMentorCapacity(ctx, a, chi.URLParam(r, "id"), req.MaxTeamsAllowed)
	h.Metrics.Observe("mentors.set_capacity", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, c)
}

// capacity handles GET /mentors/{id}/capacity.
func (h *Handler) capacity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	c, err := h.Mentors.Capacity(ctx, chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, c)
}

// available handles GET /mentors/available.
func (h *Handler) available(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	out, err := h.Mentors.ListAvailable(ctx)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"mentors": out})
}
