// internal/app/submissions/submissions.go

// Package submissions is the entry point for phase artifacts and review
// decisions. It checks who is acting and which panel is responsible, then
// hands the transition to the phase gate. All checks run in the gate's
// unit of work, against the same snapshot the transition is decided on.
package submissions

import (
	"context"

	"github.com/adityav2131/major-project-sub000/internal/app/panels"
	"github.com/adityav2131/major-project-sub000/internal/app/phasegate"
	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"go.uber.org/zap"
)

// Gateway is the submission component.
type Gateway struct {
	st   store.Reader
	gate *phasegate.Gate
	log  *zap.Logger
}

// New returns a Gateway over gate. st serves the visibility checks of the
// read-only queries.
func New(st store.Reader, gate *phasegate.Gate, logger *zap.Logger) *Gateway {
	return &Gateway{st: st, gate: gate, log: logger}
}

// SubmitAbstract submits phase 1.
func (g *Gateway) SubmitAbstract(ctx context.Context, a authz.Actor, projectID, artifactRef string) (models.Submission, error) {
	return g.Submit(ctx, a, projectID, models.PhaseAbstract, artifactRef)
}

// SubmitSynopsis submits phase 2. The project must sit on an active
// synopsis panel.
func (g *Gateway) SubmitSynopsis(ctx context.Context, a authz.Actor, projectID, artifactRef string) (models.Submission, error) {
	return g.Submit(ctx, a, projectID, models.PhaseSynopsis, artifactRef)
}

// SubmitPresentationRecord submits presentation n (1..4), phases 3..6.
func (g *Gateway) SubmitPresentationRecord(ctx context.Context, a authz.Actor, projectID string, n int, artifactRef string) (models.Submission, error) {
	ph, ok := models.PresentationPhase(n)
	if !ok {
		return models.Submission{}, errs.Validation("presentation number must be between 1 and 4")
	}
	return g.Submit(ctx, a, projectID, ph, artifactRef)
}

// SubmitFinalReport submits phase 7.
func (g *Gateway) SubmitFinalReport(ctx context.Context, a authz.Actor, projectID, artifactRef string) (models.Submission, error) {
	return g.Submit(ctx, a, projectID, models.PhaseFinalReport, artifactRef)
}

// Submit submits the artifact for ph on behalf of a member of the owning
// team. The team must have a mentor, and panel-evaluated phases need an
// active panel of the matching type holding the project.
func (g *Gateway) Submit(ctx context.Context, a authz.Actor, projectID string, ph models.Phase, artifactRef string) (models.Submission, error) {
	if err := authz.RequireRole(a, models.RoleStudent); err != nil {
		return models.Submission{}, err
	}

	s, err := g.gate.Submit(ctx, phasegate.SubmitRequest{
		ProjectID:   projectID,
		Phase:       ph,
		ArtifactRef: artifactRef,
		By:          a.ID,
		Check: func(ctx context.Context, r store.Reader, p models.Project) (string, error) {
			team, err := r.Team(ctx, p.TeamID)
			if err != nil {
				return "", store.NotFoundAs(err, "team")
			}
			if !team.HasMember(a.ID) {
				// Indistinguishable from a missing project for outsiders.
				return "", errs.NotFound("project")
			}
			if team.Status == models.TeamSuspended {
				return "", errs.InvalidState("team is suspended")
			}
			if !team.HasMentor() {
				return "", errs.InvalidState("team has no mentor yet")
			}
			return panelFor(ctx, r, p.ID, ph)
		},
	})
	if err != nil {
		g.log.Debug("submission refused",
			zap.String("project_id", projectID),
			zap.String("phase", ph.Key()),
			zap.String("actor_id", a.ID),
			zap.String("kind", string(errs.KindOf(err))))
		return models.Submission{}, err
	}
	return s, nil
}

// panelFor returns the active panel responsible for ph, or "" for
// mentor-evaluated phases.
func panelFor(ctx context.Context, r store.Reader, projectID string, ph models.Phase) (string, error) {
	typ, ok := ph.PanelType()
	if !ok {
		return "", nil
	}
	p, err := panels.ActiveFor(ctx, r, projectID, typ)
	if err != nil {
		return "", err
	}
	return p.ID, nil
}

// RecordReview records a reviewer decision. The abstract and the final
// report are reviewed by the team's mentor; every other phase by a member
// of the active panel holding the project.
func (g *Gateway) RecordReview(ctx context.Context, a authz.Actor, projectID string, ph models.Phase, decision models.Decision, feedback string) (models.Project, error) {
	if err := authz.RequireRole(a, models.RoleFaculty, models.RoleExternalEvaluator); err != nil {
		return models.Project{}, err
	}

	p, err := g.gate.Review(ctx, phasegate.ReviewRequest{
		ProjectID:  projectID,
		Phase:      ph,
		Decision:   decision,
		Feedback:   feedback,
		ReviewerID: a.ID,
		Check: func(ctx context.Context, r store.Reader, p models.Project) (string, error) {
			// Reviewers with no tie to the project learn nothing about it.
			if ok, err := canSee(ctx, r, a, p); err != nil {
				return "", err
			} else if !ok {
				return "", errs.NotFound("project")
			}
			typ, panelEvaluated := ph.PanelType()
			if !panelEvaluated {
				team, err := r.Team(ctx, p.TeamID)
				if err != nil {
					return "", store.NotFoundAs(err, "team")
				}
				if team.MentorID != a.ID {
					return "", errs.PermissionDenied("only the team mentor may review the %s", ph)
				}
				return "", nil
			}
			panel, err := panels.ActiveFor(ctx, r, p.ID, typ)
			if err != nil {
				return "", err
			}
			if !panel.HasFaculty(a.ID) {
				return "", errs.PermissionDenied("not a member of the %s panel for this project", typ)
			}
			return panel.ID, nil
		},
	})
	if err != nil {
		return models.Project{}, err
	}
	return p, nil
}

// Project returns the project if a may see it: team members, the mentor,
// faculty on a panel holding it, and admins. Anyone else gets NotFound.
func (g *Gateway) Project(ctx context.Context, a authz.Actor, projectID string) (models.Project, error) {
	p, err := g.gate.Project(ctx, projectID)
	if err != nil || a.IsAdmin() {
		return p, err
	}
	ok, err := canSee(ctx, g.st, a, p)
	if err != nil {
		return models.Project{}, err
	}
	if !ok {
		return models.Project{}, errs.NotFound("project")
	}
	return p, nil
}

// Submission returns the record for ph under the same visibility as Project.
func (g *Gateway) Submission(ctx context.Context, a authz.Actor, projectID string, ph models.Phase) (models.Submission, error) {
	if _, err := g.Project(ctx, a, projectID); err != nil {
		return models.Submission{}, err
	}
	return g.gate.Submission(ctx, projectID, ph)
}

func canSee(ctx context.Context, r store.Reader, a authz.Actor, p models.Project) (bool, error) {
	team, err := r.Team(ctx, p.TeamID)
	if err != nil {
		return false, store.NotFoundAs(err, "team")
	}
	if team.HasMember(a.ID) || team.MentorID == a.ID {
		return true, nil
	}
	ps, err := r.PanelsForProject(ctx, p.ID)
	if err != nil {
		return false, err
	}
	for _, panel := range ps {
		if panel.HasFaculty(a.ID) {
			return true, nil
		}
	}
	return false, nil
}
