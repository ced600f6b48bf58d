// internal/app/features/projects/projects.go
package projects

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/features/apierr"
	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/app/system/timeouts"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// create handles POST /projects.
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
	p, err := h.Gate.CreateProject(ctx, a, req.TeamID, req.Title, req.Description)
	h.Metrics.Observe("projects.create", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusCreated, p)
}

// get handles GET /projects/{id}.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Gateway.Project(ctx, a, chi.URLParam(r, "id"))
	if err != nil {
		apierr.WriteConcealed(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, p)
}

// submission handles GET /projects/{id}/phases/{phase}/submission.
func (h *Handler) submission(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	ph, err := parsePhase(chi.URLParam(r, "phase"))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	sub, err := h.Gateway.Submission(ctx, a, chi.URLParam(r, "id"), ph)
	if err != nil {
		apierr.WriteConcealed(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, sub)
}

type submitFunc func(ctx context.Context, a authz.Actor, projectID, ref string) (models.Submission, error)

// submitWith decodes the artifact and hands it to fn.
func (h *Handler) submitWith(w http.ResponseWriter, r *http.Request, op string, fn submitFunc) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	var req submitRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, op)
	defer cancel()

	start := time.Now()
	sub, err := fn(ctx, a, chi.URLParam(r, "id"), req.ArtifactRef)
	h.Metrics.Observe(op, start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusAccepted, sub)
}

// submitPhase handles POST /projects/{id}/phases/{phase}/submit.
func (h *Handler) submitPhase(w http.ResponseWriter, r *http.Request) {
	ph, err := parsePhase(chi.URLParam(r, "phase"))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	h.submitWith(w, r, "submissions.submit", func(ctx context.Context, a authz.Actor, projectID, ref string) (models.Submission, error) {
		return h.Gateway.Submit(ctx, a, projectID, ph, ref)
	})
}

func (h *Handler) submitAbstract(w http.ResponseWriter, r *http.Request) {
	h.submitWith(w, r, "submissions.abstract", h.Gateway.SubmitAbstract)
}

func (h *Handler) submitSynopsis(w http.ResponseWriter, r *http.Request) {
	h.submitWith(w, r, "submissions.synopsis", h.Gateway.SubmitSynopsis)
}

// submitPresentation handles POST /projects/{id}/presentations/{n}.
func (h *Handler) submitPresentation(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "n")
	n, err := strconv.Atoi(raw)
	if err != nil {
		apierr.Write(w, r, h.Log, apierr.PathError("presentation number", raw))
		return
	}
	h.submitWith(w, r, "submissions.presentation", func(ctx context.Context, a authz.Actor, projectID, ref string) (models.Submission, error) {
		return h.Gateway.SubmitPresentationRecord(ctx, a, projectID, n, ref)
	})
}

func (h *Handler) submitFinalReport(w http.ResponseWriter, r *http.Request) {
	h.submitWith(w, r, "submissions.final_report", h.Gateway.SubmitFinalReport)
}

// review handles POST /projects/{id}/phases/{phase}/review.
func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	ph, err := parsePhase(chi.URLParam(r, "phase"))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	var req reviewRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "submissions.review")
	defer cancel()

	start := time.Now()
	p, err := h.Gateway.RecordReview(ctx, a, chi.URLParam(r, "id"), ph, req.Decision, req.Feedback)
	h.Metrics.Observe("submissions.review", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, p)
}

// reopen handles POST /projects/{id}/phases/{phase}/reopen (admin).
func (h *Handler) reopen(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	ph, err := parsePhase(chi.URLParam(r, "phase"))
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	start := time.Now()
	p, err := h.Gate.Reopen(ctx, a, chi.URLParam(r, "id"), ph)
	h.Metrics.Observe("projects.reopen", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, p)
}
