// internal/app/panels/panels.go

// Package panels composes evaluation panels and assigns projects to them.
//
// A panel is four distinct faculty members evaluating one phase family.
// A project's team mentor never sits on a panel holding that project, and a
// project sits on at most one active panel of each type.
package panels

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/notify"
	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/app/system/htmlsanitize"
	"github.com/adityav2131/major-project-sub000/internal/app/system/txn"
	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Builder is the panel component.
type Builder struct {
	st  store.Store
	em  notify.Emitter
	log *zap.Logger
}

// New returns a Builder.
func New(st store.Store, em notify.Emitter, logger *zap.Logger) *Builder {
	if em == nil {
		em = notify.Discard
	}
	return &Builder{st: st, em: em, log: logger}
}

// CreatePanel creates an active panel of typ with exactly four distinct
// faculty members.
func (b *Builder) CreatePanel(ctx context.Context, a authz.Actor, name string, typ models.PanelType, facultyIDs []string) (models.EvaluationPanel, error) {
	if err := authz.RequireAdmin(a); err != nil {
		return models.EvaluationPanel{}, err
	}
	name = htmlsanitize.PlainText(name)
	if name == "" {
		return models.EvaluationPanel{}, errs.Validation("panel name is required")
	}
	if !typ.Valid() {
		return models.EvaluationPanel{}, errs.Validation("unknown panel type %q", typ)
	}
	ids, err := distinctFaculty(facultyIDs)
	if err != nil {
		return models.EvaluationPanel{}, err
	}

	now := time.Now().UTC()
	p := models.EvaluationPanel{
		ID:                uuid.NewString(),
		Name:              name,
		Type:              typ,
		FacultyIDs:        ids,
		ExcludedMentorIDs: []string{},
		ProjectIDs:        []string{},
		Status:            models.PanelActive,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	err = txn.Run(ctx, b.st, b.log, "panels.create", func(ctx context.Context, tx store.Tx) error {
		for _, id := range ids {
			if err := requireFaculty(ctx, tx, id); err != nil {
				return err
			}
		}
		p.Version = 0
		return tx.InsertPanel(ctx, &p)
	})
	if err != nil {
		return models.EvaluationPanel{}, err
	}

	b.log.Info("panel created",
		zap.String("panel_id", p.ID),
		zap.String("type", string(typ)),
		zap.Strings("faculty_ids", ids))
	return p, nil
}

func distinctFaculty(ids []string) ([]string, error) {
	if len(ids) != models.PanelSize {
		return nil, errs.Validation("a panel needs exactly %d faculty members, got %d", models.PanelSize, len(ids))
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return nil, errs.Validation("faculty id must not be empty")
		}
		if seen[id] {
			return nil, errs.Validation("faculty member %s is listed twice", id)
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func requireFaculty(ctx context.Context, r store.Reader, id string) error {
	a, err := r.Actor(ctx, id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && a.Role != models.RoleFaculty) {
		return errs.Validation("%s is not a faculty member", id)
	}
	return err
}

// AssignProject puts projectID on the panel. Assigning a project the panel
// already holds changes nothing.
func (b *Builder) AssignProject(ctx context.Context, a authz.Actor, panelID, projectID string) (models.EvaluationPanel, error) {
	if err := authz.RequireAdmin(a); err != nil {
		return models.EvaluationPanel{}, err
	}

	var (
		panel   models.EvaluationPanel
		team    models.Team
		changed bool
	)
	err := txn.Run(ctx, b.st, b.log, "panels.assign", func(ctx context.Context, tx store.Tx) error {
		var err error
		if panel, err = tx.Panel(ctx, panelID); err != nil {
			return store.NotFoundAs(err, "panel")
		}
		project, err := tx.Project(ctx, projectID)
		if err != nil {
			return store.NotFoundAs(err, "project")
		}
		if changed = !panel.HasProject(projectID); !changed {
			return nil
		}
		if panel.Status != models.PanelActive {
			return errs.InvalidState("panel %s is inactive", panelID)
		}
		if project.Completed {
			return errs.InvalidState("project %s is already complete", projectID)
		}
		if team, err = tx.Team(ctx, project.TeamID); err != nil {
			return store.NotFoundAs(err, "team")
		}
		if team.HasMentor() && panel.HasFaculty(team.MentorID) {
			return errs.New(errs.KindExclusionViolation,
				"faculty member %s mentors this project's team and cannot evaluate it", team.MentorID)
		}
		if other, err := ActiveFor(ctx, tx, projectID, panel.Type); err == nil {
			return errs.InvalidState("project is already on active %s panel %s", panel.Type, other.ID)
		} else if !errors.Is(err, errs.ErrNoPanelAssigned) {
			return err
		}

		// Bump the team too: SelectMentor writes it, so a racing mentor
		// choice conflicts with this assignment.
		team.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateTeam(ctx, &team); err != nil {
			return err
		}
		panel.ProjectIDs = append(panel.ProjectIDs, projectID)
		return b.save(ctx, tx, &panel)
	})
	if err != nil {
		return models.EvaluationPanel{}, err
	}
	if !changed {
		return panel, nil
	}

	b.log.Info("project assigned to panel",
		zap.String("panel_id", panelID),
		zap.String("project_id", projectID),
		zap.String("type", string(panel.Type)))
	b.em.Emit(ctx, notify.Event{
		Type:       notify.PanelAssigned,
		ActorID:    a.ID,
		TeamID:     team.ID,
		ProjectID:  projectID,
		PanelID:    panelID,
		Recipients: recipients(panel, team),
		Details:    map[string]string{"panel_type": string(panel.Type)},
	})
	return panel, nil
}

func recipients(p models.EvaluationPanel, t models.Team) []string {
	out := append([]string(nil), p.FacultyIDs...)
	for _, m := range t.Members {
		out = append(out, m.ActorID)
	}
	return out
}

// RemoveProject takes projectID off the panel. It always succeeds when the
// panel exists.
func (b *Builder) RemoveProject(ctx context.Context, a authz.Actor, panelID, projectID string) (models.EvaluationPanel, error) {
	if err := authz.RequireAdmin(a); err != nil {
		return models.EvaluationPanel{}, err
	}
	var panel models.EvaluationPanel
	err := txn.Run(ctx, b.st, b.log, "panels.remove", func(ctx context.Context, tx store.Tx) error {
		var err error
		if panel, err = tx.Panel(ctx, panelID); err != nil {
			return store.NotFoundAs(err, "panel")
		}
		kept := panel.ProjectIDs[:0:0]
		for _, id := range panel.ProjectIDs {
			if id != projectID {
				kept = append(kept, id)
			}
		}
		if len(kept) == len(panel.ProjectIDs) {
			return nil
		}
		panel.ProjectIDs = kept
		return b.save(ctx, tx, &panel)
	})
	if err != nil {
		return models.EvaluationPanel{}, err
	}
	b.log.Info("project removed from panel", zap.String("panel_id", panelID), zap.String("project_id", projectID))
	return panel, nil
}

// SetStatus activates or deactivates a panel. Activation fails when one of
// its projects already sits on another active panel of the same type.
func (b *Builder) SetStatus(ctx context.Context, a authz.Actor, panelID string, status models.PanelStatus) (models.EvaluationPanel, error) {
	if err := authz.RequireAdmin(a); err != nil {
		return models.EvaluationPanel{}, err
	}
	if status != models.PanelActive && status != models.PanelInactive {
		return models.EvaluationPanel{}, errs.Validation("unknown panel status %q", status)
	}
	var panel models.EvaluationPanel
	err := txn.Run(ctx, b.st, b.log, "panels.status", func(ctx context.Context, tx store.Tx) error {
		var err error
		if panel, err = tx.Panel(ctx, panelID); err != nil {
			return store.NotFoundAs(err, "panel")
		}
		if panel.Status == status {
			return nil
		}
		if status == models.PanelActive {
			for _, pid := range panel.ProjectIDs {
				if other, err := ActiveFor(ctx, tx, pid, panel.Type); err == nil {
					return errs.InvalidState("project %s is already on active %s panel %s", pid, panel.Type, other.ID)
				} else if !errors.Is(err, errs.ErrNoPanelAssigned) {
					return err
				}
			}
		}
		panel.Status = status
		panel.UpdatedAt = time.Now().UTC()
		return tx.UpdatePanel(ctx, &panel)
	})
	if err != nil {
		return models.EvaluationPanel{}, err
	}
	b.log.Info("panel status set", zap.String("panel_id", panelID), zap.String("status", string(status)))
	return panel, nil
}

// save recomputes the derived exclusion list and writes the panel.
func (b *Builder) save(ctx context.Context, tx store.Tx, p *models.EvaluationPanel) error {
	ex, err := exclusions(ctx, tx, p.ProjectIDs)
	if err != nil {
		return err
	}
	p.ExcludedMentorIDs = ex
	p.UpdatedAt = time.Now().UTC()
	return tx.UpdatePanel(ctx, p)
}

// Get returns one panel.
func (b *Builder) Get(ctx context.Context, panelID string) (models.EvaluationPanel, error) {
	p, err := b.st.Panel(ctx, panelID)
	return p, store.NotFoundAs(err, "panel")
}

// List returns panels of typ (every type when empty), oldest first.
func (b *Builder) List(ctx context.Context, typ models.PanelType, status models.PanelStatus) ([]models.EvaluationPanel, error) {
	if typ != "" && !typ.Valid() {
		return nil, errs.Validation("unknown panel type %q", typ)
	}
	return b.st.ListPanels(ctx, store.PanelFilter{Type: typ, Status: status})
}

// PanelFor returns the active panel of typ evaluating projectID.
func (b *Builder) PanelFor(ctx context.Context, projectID string, typ models.PanelType) (models.EvaluationPanel, error) {
	return ActiveFor(ctx, b.st, projectID, typ)
}

// ActiveFor returns the active panel of typ holding projectID, or a
// NoPanelAssigned error. Passing a unit of work's Tx makes the answer part
// of that unit.
func ActiveFor(ctx context.Context, r store.Reader, projectID string, typ models.PanelType) (models.EvaluationPanel, error) {
	ps, err := r.PanelsForProject(ctx, projectID)
	if err != nil {
		return models.EvaluationPanel{}, err
	}
	for _, p := range ps {
		if p.Type == typ && p.Status == models.PanelActive {
			return p, nil
		}
	}
	return models.EvaluationPanel{}, errs.New(errs.KindNoPanelAssigned, "no active %s panel holds this project", typ)
}

// RefreshExclusions recomputes the excluded mentors of every panel holding
// projectID. Callers that change a team's mentor run it in the same unit
// of work.
func RefreshExclusions(ctx context.Context, tx store.Tx, projectID string) error {
	ps, err := tx.PanelsForProject(ctx, projectID)
	if err != nil {
		return err
	}
	for i := range ps {
		ex, err := exclusions(ctx, tx, ps[i].ProjectIDs)
		if err != nil {
			return err
		}
		if equal(ex, ps[i].ExcludedMentorIDs) {
			continue
		}
		ps[i].ExcludedMentorIDs = ex
		ps[i].UpdatedAt = time.Now().UTC()
		if err := tx.UpdatePanel(ctx, &ps[i]); err != nil {
			return err
		}
	}
	return nil
}

// exclusions returns the sorted, distinct mentors of the projects' teams.
func exclusions(ctx context.Context, r store.Reader, projectIDs []string) ([]string, error) {
	seen := map[string]bool{}
	out := []string{}
	for _, pid := range projectIDs {
		p, err := r.Project(ctx, pid)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		t, err := r.Team(ctx, p.TeamID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if t.HasMentor() && !seen[t.MentorID] {
			seen[t.MentorID] = true
			out = append(out, t.MentorID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
