// internal/app/features/panels/panels.go
package panels

import (
	"context"
	"net/http"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/features/apierr"
	"github.com/adityav2131/major-project-sub000/internal/app/system/timeouts"
	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// create handles POST /panels (admin).
func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	var req createRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	start := time.Now()
	p, err := h.Panels.CreatePanel(ctx, a, req.Name, req.Type, req.FacultyIDs)
	h.Metrics.Observe("panels.create", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusCreated, p)
}

// list handles GET /panels?type=&status=.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := models.PanelStatus(q.Get("status"))
	if status != "" && status != models.PanelActive && status != models.PanelInactive {
		apierr.Write(w, r, h.Log, errs.Validation("unknown panel status %q", status))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	out, err := h.Panels.List(ctx, models.PanelType(q.Get("type")), status)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if out == nil {
		out = []models.EvaluationPanel{}
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"panels": out})
}

// get handles GET /panels/{id}.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Panels.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, p)
}

// forProject handles GET /panels/for-project/{projectID}?type=.
func (h *Handler) forProject(w http.ResponseWriter, r *http.Request) {
	typ := models.PanelType(r.URL.Query().Get("type"))
	if !typ.Valid() {
		apierr.Write(w, r, h.Log, errs.Validation("unknown panel type %q", typ))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Panels.PanelFor(ctx, chi.URLParam(r, "projectID"), typ)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, p)
}

// assign handles POST /panels/{id}/projects.
func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	var req assignRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	start := time.Now()
	p, err := h.Panels.AssignProject(ctx, a, chi.URLParam(r, "id"), req.ProjectID)
	h.Metrics.Observe("panels.assign", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, p)
}

// unassign handles DELETE /panels/{id}/projects/{projectID}.
func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	start := time.Now()
	p, err := h.Panels.RemoveProject(ctx, a, chi.URLParam(r, "id"), chi.URLParam(r, "projectID"))
	h.Metrics.Observe("panels.remove", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, p)
}

// setStatus handles PUT /panels/{id}/status.
func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	start := time.Now()
	p, err := h.Panels.SetStatus(ctx, a, chi.URLParam(r, "id"), req.Status)
	h.Metrics.Observe("panels.status", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, p)
}
