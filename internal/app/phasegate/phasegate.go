// internal/app/phasegate/phasegate.go

// Package phasegate owns a project's phase progression: which phase is
// open, who has submitted, and what the reviewers decided.
//
// A project moves through seven phases in order. Each phase cycles through
// not_submitted → pending_review → (approved | revision_needed | rejected).
// Only approving the current phase advances current_phase, so it never
// moves backwards. Submit and Review do not retry: a lost race is returned
// to the caller as ConcurrentModification.
package phasegate

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/notify"
	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/app/system/htmlsanitize"
	"github.com/adityav2131/major-project-sub000/internal/app/system/policyfile"
	"github.com/adityav2131/major-project-sub000/internal/app/system/txn"
	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Guard is an extra precondition evaluated inside the unit of work, after
// the project is read and before any phase rule. Callers use it to check
// team membership or panel assignment against the same snapshot. A guard
// for a panel-evaluated phase returns the responsible panel's id, which is
// recorded on the submission.
type Guard func(ctx context.Context, r store.Reader, p models.Project) (panelID string, err error)

// Gate is the phase component.
type Gate struct {
	st     store.Store
	em     notify.Emitter
	log    *zap.Logger
	policy policyfile.Policy
	now    func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithPolicy sets the deadlines Submit checks against.
func WithPolicy(p policyfile.Policy) Option {
	return func(g *Gate) { g.policy = p }
}

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// New returns a Gate.
func New(st store.Store, em notify.Emitter, logger *zap.Logger, opts ...Option) *Gate {
	if em == nil {
		em = notify.Discard
	}
	g := &Gate{
		st:     st,
		em:     em,
		log:    logger,
		policy: policyfile.Default(),
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func runGuard(ctx context.Context, g Guard, r store.Reader, p models.Project) (string, error) {
	if g == nil {
		return "", nil
	}
	return g(ctx, r, p)
}

func phaseLocked(format string, args ...any) error {
	return errs.New(errs.KindPhaseLocked, format, args...)
}

// CreateProject starts the team's single project at phase 1. Only a team
// member may create it. A team that already has a mentor becomes active.
func (g *Gate) CreateProject(ctx context.Context, a authz.Actor, teamID, title, description string) (models.Project, error) {
	title = htmlsanitize.PlainText(title)
	if title == "" {
		return models.Project{}, errs.Validation("project title is required")
	}

	now := g.now()
	p := models.Project{
		ID:           uuid.NewString(),
		TeamID:       teamID,
		Title:        title,
		Description:  htmlsanitize.PlainText(description),
		CurrentPhase: models.PhaseAbstract,
		Phases:       models.NewPhaseStates(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	var activated bool
	err := txn.Run(ctx, g.st, g.log, "phasegate.create_project", func(ctx context.Context, tx store.Tx) error {
		team, err := tx.Team(ctx, teamID)
		if err != nil {
			return store.NotFoundAs(err, "team")
		}
		if !team.HasMember(a.ID) {
			return errs.PermissionDenied("only a team member may create its project")
		}
		if team.Closed() {
			return errs.InvalidState("team is %s", team.Status)
		}
		if _, err := tx.ProjectByTeam(ctx, teamID); err == nil {
			return errs.InvalidState("team already has a project")
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		p.Version = 0
		if err := tx.InsertProject(ctx, &p); err != nil {
			return err
		}
		// The team is written even when it stays forming, so a concurrent
		// SelectMentor conflicts here instead of missing the project.
		activated = team.Activate(true)
		team.UpdatedAt = now
		return tx.UpdateTeam(ctx, &team)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return models.Project{}, errs.InvalidState("team already has a project")
	}
	if err != nil {
		return models.Project{}, err
	}

	g.log.Info("project created",
		zap.String("project_id", p.ID),
		zap.String("team_id", teamID),
		zap.Bool("team_activated", activated))
	return p, nil
}

// SubmitRequest is one phase artifact submission.
type SubmitRequest struct {
	ProjectID   string
	Phase       models.Phase
	ArtifactRef string
	By          string
	Check       Guard
}

// Submit records an artifact for the project's current phase and moves the
// phase to pending_review.
//
// Submitting any phase other than the current one, a rejected phase, or a
// phase whose predecessor is not approved is PhaseLocked. Submitting while a
// review is pending is ConcurrentModification. Past the configured deadline
// the attempt is flagged late, or refused when deadlines are enforced.
func (g *Gate) Submit(ctx context.Context, req SubmitRequest) (models.Submission, error) {
	req.ArtifactRef = strings.TrimSpace(req.ArtifactRef)
	switch {
	case !req.Phase.Valid():
		return models.Submission{}, errs.Validation("phase must be between 1 and 7")
	case req.ArtifactRef == "":
		return models.Submission{}, errs.Validation("artifact reference is required")
	case req.By == "":
		return models.Submission{}, errs.Validation("submitter is required")
	}

	var sub models.Submission
	err := txn.Once(ctx, g.st, "phasegate.submit", func(ctx context.Context, tx store.Tx) error {
		p, err := tx.Project(ctx, req.ProjectID)
		if err != nil {
			return store.NotFoundAs(err, "project")
		}
		panelID, err := runGuard(ctx, req.Check, tx, p)
		if err != nil {
			return err
		}
		ph := req.Phase
		switch {
		case p.Completed:
			return phaseLocked("project is completed")
		case ph != p.CurrentPhase:
			return phaseLocked("%s is not open; the current phase is %s", ph, p.CurrentPhase)
		case ph > models.PhaseAbstract && p.StatusOf(ph-1) != models.StatusApproved:
			return phaseLocked("%s is not approved yet", ph-1)
		}
		switch p.StatusOf(ph) {
		case models.StatusPendingReview:
			return errs.New(errs.KindConcurrentModification, "%s is already awaiting review", ph)
		case models.StatusRejected:
			return phaseLocked("%s was rejected; an administrator must reopen it", ph)
		case models.StatusApproved:
			return phaseLocked("%s is already approved", ph)
		}

		now := g.now()
		late := false
		if d, ok := g.policy.Deadline(ph); ok && now.After(d) {
			if g.policy.EnforceDeadlines {
				return phaseLocked("the %s deadline passed at %s", ph, d.Format(time.RFC3339))
			}
			late = true
		}

		sub, err = tx.Submission(ctx, p.ID, ph)
		switch {
		case errors.Is(err, store.ErrNotFound):
			sub = models.Submission{
				ID:        uuid.NewString(),
				ProjectID: p.ID,
				Phase:     ph,
				Kind:      ph.SubmissionKind(),
				CreatedAt: now,
			}
		case err != nil:
			return err
		}
		sub.ArtifactRef = req.ArtifactRef
		sub.SubmittedBy = req.By
		sub.PanelID = panelID
		sub.ReviewerID = ""
		sub.Decision = ""
		sub.Feedback = ""
		sub.Late = late
		sub.History = append(sub.History, models.Attempt{
			ArtifactRef: req.ArtifactRef,
			SubmittedBy: req.By,
			SubmittedAt: now,
			Late:        late,
		})
		sub.UpdatedAt = now
		if err := tx.PutSubmission(ctx, &sub); err != nil {
			return err
		}

		st := p.State(ph)
		st.Status = models.StatusPendingReview
		st.SubmissionID = sub.ID
		p.UpdatedAt = now
		return tx.UpdateProject(ctx, &p)
	})
	if err != nil {
		return models.Submission{}, err
	}

	g.log.Info("phase submitted",
		zap.String("project_id", req.ProjectID),
		zap.String("phase", req.Phase.Key()),
		zap.String("submitted_by", req.By),
		zap.Int("attempt", len(sub.History)),
		zap.Bool("late", sub.Late))
	return sub, nil
}

// ReviewRequest is one reviewer decision on a pending phase.
type ReviewRequest struct {
	ProjectID  string
	Phase      models.Phase
	Decision   models.Decision
	Feedback   string
	ReviewerID string
	Check      Guard
}

// Review records the decision on a pending phase.
//
// approved marks the phase approved and opens the next one; approving the
// final report completes the project and its team. revision_needed returns
// the phase to not_submitted and counts the cycle. rejected locks the phase
// until an administrator reopens it.
func (g *Gate) Review(ctx context.Context, req ReviewRequest) (models.Project, error) {
	switch {
	case !req.Phase.Valid():
		return models.Project{}, errs.Validation("phase must be between 1 and 7")
	case !req.Decision.Valid():
		return models.Project{}, errs.Validation("decision must be approved, rejected or revision_needed")
	case req.ReviewerID == "":
		return models.Project{}, errs.Validation("reviewer is required")
	}
	feedback := htmlsanitize.PlainText(req.Feedback)

	var (
		p    models.Project
		sub  models.Submission
		team models.Team
	)
	err := txn.Once(ctx, g.st, "phasegate.review", func(ctx context.Context, tx store.Tx) error {
		var err error
		if p, err = tx.Project(ctx, req.ProjectID); err != nil {
			return store.NotFoundAs(err, "project")
		}
		panelID, err := runGuard(ctx, req.Check, tx, p)
		if err != nil {
			return err
		}
		ph := req.Phase
		if p.StatusOf(ph) != models.StatusPendingReview {
			return errs.InvalidState("%s is %s, not pending review", ph, p.StatusOf(ph))
		}
		if sub, err = tx.Submission(ctx, p.ID, ph); err != nil {
			return store.NotFoundAs(err, "submission")
		}
		if team, err = tx.Team(ctx, p.TeamID); err != nil {
			return store.NotFoundAs(err, "team")
		}

		now := g.now()
		sub.Decision = req.Decision
		sub.Feedback = feedback
		sub.ReviewerID = req.ReviewerID
		if panelID != "" {
			sub.PanelID = panelID
		}
		if n := len(sub.History); n > 0 {
			last := &sub.History[n-1]
			last.Decision = req.Decision
			last.Feedback = feedback
			last.ReviewerID = req.ReviewerID
			last.ReviewedAt = &now
		}
		sub.UpdatedAt = now

		st := p.State(ph)
		switch req.Decision {
		case models.DecisionApproved:
			st.Status = models.StatusApproved
			if ph == models.PhaseFinalReport {
				p.Completed = true
				p.CompletedAt = &now
				team.Status = models.TeamCompleted
				team.UpdatedAt = now
				if err := tx.UpdateTeam(ctx, &team); err != nil {
					return err
				}
			} else {
				p.CurrentPhase = ph + 1
			}
		case models.DecisionRevisionNeeded:
			st.Status = models.StatusNotSubmitted
			sub.RevisionCount++
		case models.DecisionRejected:
			st.Status = models.StatusRejected
		}
		p.UpdatedAt = now

		if err := tx.PutSubmission(ctx, &sub); err != nil {
			return err
		}
		return tx.UpdateProject(ctx, &p)
	})
	if err != nil {
		return models.Project{}, err
	}

	g.log.Info("phase reviewed",
		zap.String("project_id", p.ID),
		zap.String("phase", req.Phase.Key()),
		zap.String("decision", string(req.Decision)),
		zap.String("reviewer_id", req.ReviewerID))
	g.announce(ctx, req, p, sub, team)
	return p, nil
}

func (g *Gate) announce(ctx context.Context, req ReviewRequest, p models.Project, sub models.Submission, team models.Team) {
	recipients := make([]string, 0, len(team.Members))
	for _, m := range team.Members {
		recipients = append(recipients, m.ActorID)
	}
	base := notify.Event{
		ActorID:    req.ReviewerID,
		TeamID:     team.ID,
		ProjectID:  p.ID,
		PanelID:    sub.PanelID,
		MentorID:   team.MentorID,
		Phase:      req.Phase,
		Recipients: recipients,
	}

	switch req.Decision {
	case models.DecisionApproved:
		ev := base
		ev.Type = notify.PhaseAdvanced
		if !p.Completed {
			ev.Details = map[string]string{"next_phase": p.CurrentPhase.Key()}
		}
		g.em.Emit(ctx, ev)
		if p.Completed {
			done := base
			done.Type = notify.ProjectCompleted
			g.em.Emit(ctx, done)
		}
	case models.DecisionRevisionNeeded:
		ev := base
		ev.Type = notify.RevisionRequested
		ev.Details = map[string]string{"revision_count": strconv.Itoa(sub.RevisionCount)}
		g.em.Emit(ctx, ev)
	}
}

// Reopen returns a rejected current phase to not_submitted. Admin only.
func (g *Gate) Reopen(ctx context.Context, a authz.Actor, projectID string, ph models.Phase) (models.Project, error) {
	if err := authz.RequireAdmin(a); err != nil {
		return models.Project{}, err
	}
	if !ph.Valid() {
		return models.Project{}, errs.Validation("phase must be between 1 and 7")
	}

	var p models.Project
	err := txn.Run(ctx, g.st, g.log, "phasegate.reopen", func(ctx context.Context, tx store.Tx) error {
		var err error
		if p, err = tx.Project(ctx, projectID); err != nil {
			return store.NotFoundAs(err, "project")
		}
		if p.StatusOf(ph) != models.StatusRejected {
			return errs.InvalidState("%s is %s, not rejected", ph, p.StatusOf(ph))
		}
		p.State(ph).Status = models.StatusNotSubmitted
		p.UpdatedAt = g.now()
		return tx.UpdateProject(ctx, &p)
	})
	if err != nil {
		return models.Project{}, err
	}
	g.log.Info("phase reopened",
		zap.String("project_id", projectID),
		zap.String("phase", ph.Key()),
		zap.String("admin_id", a.ID))
	return p, nil
}

// Project returns one project.
func (g *Gate) Project(ctx context.Context, projectID string) (models.Project, error) {
	p, err := g.st.Project(ctx, projectID)
	return p, store.NotFoundAs(err, "project")
}

// ProjectOfTeam returns the project of teamID.
func (g *Gate) ProjectOfTeam(ctx context.Context, teamID string) (models.Project, error) {
	p, err := g.st.ProjectByTeam(ctx, teamID)
	return p, store.NotFoundAs(err, "project")
}

// Submission returns the submission record for one phase.
func (g *Gate) Submission(ctx context.Context, projectID string, ph models.Phase) (models.Submission, error) {
	if !ph.Valid() {
		return models.Submission{}, errs.Validation("phase must be between 1 and 7")
	}
	s, err := g.st.Submission(ctx, projectID, ph)
	return s, store.NotFoundAs(err, "submission")
}
