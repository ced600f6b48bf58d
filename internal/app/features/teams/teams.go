// internal/app/features/teams/teams.go
package teams

import (
	"context"
	"net/http"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/features/apierr"
	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/app/system/timeouts"
	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// create handles POST /teams.
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
	team, err := h.Teams.CreateTeam(ctx, a, req.Name, req.Domain, req.MaxMembers)
	h.Metrics.Observe("teams.create", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusCreated, team)
}

// list handles GET /teams?status=&mentor_id=.
func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.TeamFilter{
		Status:   models.TeamStatus(q.Get("status")),
		MentorID: q.Get("mentor_id"),
	}
	switch f.Status {
	case "", models.TeamForming, models.TeamActive, models.TeamCompleted, models.TeamSuspended:
	default:
		apierr.Write(w, r, h.Log, errs.Validation("unknown team status %q", f.Status))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	out, err := h.Teams.List(ctx, f)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	if out == nil {
		out = []models.Team{}
	}
	apierr.JSON(w, http.StatusOK, map[string]any{"teams": out})
}

// get handles GET /teams/{id}.
func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	team, err := h.Teams.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		apierr.WriteConcealed(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, team)
}

// mine handles GET /teams/mine.
func (h *Handler) mine(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	team, err := h.Teams.TeamOf(ctx, a.ID)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, team)
}

// join handles POST /teams/{id}/join.
func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	start := time.Now()
	team, err := h.Teams.JoinTeam(ctx, a, chi.URLParam(r, "id"))
	h.Metrics.Observe("teams.join", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, team)
}

// leave handles POST /teams/{id}/leave. The body is optional.
func (h *Handler) leave(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	var req leaveRequest
	if r.ContentLength != 0 {
		if err := apierr.Decode(r, &req); err != nil {
			apierr.Write(w, r, h.Log, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	start := time.Now()
	team, err := h.Teams.LeaveTeam(ctx, a, chi.URLParam(r, "id"), req.MemberID)
	h.Metrics.Observe("teams.leave", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, team)
}

// transferLeadership handles POST /teams/{id}/leader.
func (h *Handler) transferLeadership(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	var req leaderRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	start := time.Now()
	team, err := h.Teams.TransferLeadership(ctx, a, chi.URLParam(r, "id"), req.LeaderID)
	h.Metrics.Observe("teams.transfer_leadership", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, team)
}

// setMaxMembers handles PUT /teams/{id}/max-members.
func (h *Handler) setMaxMembers(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	var req maxMembersRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	start := time.Now()
	team, err := h.Teams.SetMaxMembers(ctx, a, chi.URLParam(r, "id"), req.MaxMembers)
	h.Metrics.Observe("teams.set_max_members", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, team)
}

// selectMentor handles POST /teams/{id}/mentor.
func (h *Handler) selectMentor(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	var req mentorRequest
	if err := apierr.Decode(r, &req); err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	start := time.Now()
	team, err := h.Mentors.SelectMentor(ctx, a, chi.URLParam(r, "id"), req.MentorID)
	h.Metrics.Observe("mentors.select", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, team)
}

// releaseMentor handles DELETE /teams/{id}/mentor.
func (h *Handler) releaseMentor(w http.ResponseWriter, r *http.Request) {
	a, ok := apierr.Actor(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	start := time.Now()
	team, err := h.Mentors.ReleaseMentor(ctx, a, chi.URLParam(r, "id"))
	h.Metrics.Observe("mentors.release", start, err)
	if err != nil {
		apierr.Write(w, r, h.Log, err)
		return
	}
	apierr.JSON(w, http.StatusOK, team)
}
