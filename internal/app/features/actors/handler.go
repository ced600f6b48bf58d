// internal/app/features/actors/handler.go
package actors

import (
	"context"
	"net/http"

	"github.com/adityav2131/major-project-sub000/internal/app/actors"
	"github.com/adityav2131/major-project-sub000/internal/app/features/apierr"
	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/app/system/timeouts"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Handler serves the actor directory.
type Handler struct {
	Directory *actors.Directory
	Log       *zap.Logger
}

func NewHandler(d *actors.Directory, logger *zap.Logger) *Handler {
	return &Handler{Directory: d, Log: logger}
}

type registerRequest struct {
	Role models.Role `json:"role" validate:"required,oneof=student faculty admin external_evaluator"`
}

// me handles GET /actors/me.
func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rec, err := h.Directory.Get(ctx, a.ID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, rec)
}

// list handles GET /actors?role= (admin).
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	if err := authz.RequireAdmin(a); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	out, err := h.Directory.List(ctx, models.Role(r.URL.Query().Get("role")))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if out == nil {
		out = []models.Actor{}
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"actors": out})
}

// register handles PUT /actors/{id} (admin).
func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	var req registerRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rec, err := h.Directory.Register(ctx, a, chi.URLParam(r, "id"), req.Role)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, rec)
}
