// internal/app/mentors/mentors.go

// Package mentors keeps per-faculty supervision counters and assigns
// mentors to teams.
//
// A mentor's current_teams_count always equals the number of teams whose
// mentor_id names them, and never exceeds max_teams_allowed. Both sides are
// written in the same unit of work.
package mentors

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/notify"
	"github.com/adityav2131/major-project-sub000/internal/app/panels"
	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/app/system/policyfile"
	"github.com/adityav2131/major-project-sub000/internal/app/system/txn"
	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"go.uber.org/zap"
)

// Allocator is the mentor component.
type Allocator struct {
	st         store.Store
	em         notify.Emitter
	log        *zap.Logger
	defaultCap int
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithDefaultCapacity sets max_teams_allowed for mentors without a record.
func WithDefaultCapacity(n int) Option {
	return func(a *Allocator) { a.defaultCap = n }
}

// New returns an Allocator.
func New(st store.Store, em notify.Emitter, logger *zap.Logger, opts ...Option) *Allocator {
	if em == nil {
		em = notify.Discard
	}
	a := &Allocator{st: st, em: em, log: logger, defaultCap: policyfile.DefaultMaxTeamsPerMentor}
	for _, o := range opts {
		o(a)
	}
	return a
}

// capacityOf returns the stored record, or a default one with Version 0.
func (m *Allocator) capacityOf(ctx context.Context, r store.Reader, mentorID string) (models.MentorCapacity, error) {
	c, err := r.MentorCapacity(ctx, mentorID)
	if errors.Is(err, store.ErrNotFound) {
		return models.MentorCapacity{MentorID: mentorID, MaxTeamsAllowed: m.defaultCap}, nil
	}
	return c, err
}

func requireMentor(ctx context.Context, r store.Reader, mentorID string) error {
	a, err := r.Actor(ctx, mentorID)
	if err != nil {
		return store.NotFoundAs(err, "mentor")
	}
	if a.Role != models.RoleFaculty {
		return errs.Validation("%s is not a faculty member", mentorID)
	}
	return nil
}

// SetMentorCapacity sets how many teams mentorID may supervise.
func (m *Allocator) SetMentorCapacity(ctx context.Context, a authz.Actor, mentorID string, maxTeams int) (models.MentorCapacity, error) {
	if err := authz.RequireAdmin(a); err != nil {
		return models.MentorCapacity{}, err
	}
	if maxTeams < 0 {
		return models.MentorCapacity{}, errs.Validation("max teams must not be negative")
	}

	var c models.MentorCapacity
	err := txn.Run(ctx, m.st, m.log, "mentors.set_capacity", func(ctx context.Context, tx store.Tx) error {
		if err := requireMentor(ctx, tx, mentorID); err != nil {
			return err
		}
		var err error
		if c, err = m.capacityOf(ctx, tx, mentorID); err != nil {
			return err
		}
		if maxTeams < c.CurrentTeamsCount {
			return errs.Validation("mentor %s already supervises %d teams; cannot lower the limit to %d",
				mentorID, c.CurrentTeamsCount, maxTeams)
		}
		c.MaxTeamsAllowed = maxTeams
		c.UpdatedAt = time.Now().UTC()
		return tx.PutMentorCapacity(ctx, &c)
	})
	if err != nil {
		return models.MentorCapacity{}, err
	}
	m.log.Info("mentor capacity set", zap.String("mentor_id", mentorID), zap.Int("max_teams_allowed", maxTeams))
	return c, nil
}

// SelectMentor assigns mentorID to the team. The caller must lead the team
// or be an admin. The slot check and the counter increment form one unit of
// work with the team update, so two teams racing for a mentor's last slot
// get exactly one winner.
func (m *Allocator) SelectMentor(ctx context.Context, a authz.Actor, teamID, mentorID string) (models.Team, error) {
	var team models.Team
	err := txn.Run(ctx, m.st, m.log, "mentors.select", func(ctx context.Context, tx store.Tx) error {
		var err error
		if team, err = tx.Team(ctx, teamID); err != nil {
			return store.NotFoundAs(err, "team")
		}
		if a.ID != team.LeaderID && !a.IsAdmin() {
			return errs.PermissionDenied("only the team leader may choose a mentor")
		}
		if team.Closed() {
			return errs.InvalidState("team is %s", team.Status)
		}
		if team.HasMentor() {
			return errs.InvalidState("team already has a mentor")
		}
		if err := requireMentor(ctx, tx, mentorID); err != nil {
			return err
		}

		project, err := tx.ProjectByTeam(ctx, teamID)
		hasProject := err == nil
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}
		if hasProject {
			ps, err := tx.PanelsForProject(ctx, project.ID)
			if err != nil {
				return err
			}
			for _, p := range ps {
				if p.HasFaculty(mentorID) {
					return errs.New(errs.KindExclusionViolation,
						"%s sits on %s panel %s which evaluates this team", mentorID, p.Type, p.ID)
				}
			}
		}

		c, err := m.capacityOf(ctx, tx, mentorID)
		if err != nil {
			return err
		}
		if !c.Available() {
			return errs.New(errs.KindCapacityExceeded, "mentor %s already supervises %d of %d teams",
				mentorID, c.CurrentTeamsCount, c.MaxTeamsAllowed)
		}
		c.CurrentTeamsCount++
		c.UpdatedAt = time.Now().UTC()
		if err := tx.PutMentorCapacity(ctx, &c); err != nil {
			return err
		}

		team.MentorID = mentorID
		team.Activate(hasProject)
		team.UpdatedAt = c.UpdatedAt
		if err := tx.UpdateTeam(ctx, &team); err != nil {
			return err
		}
		if hasProject {
			return panels.RefreshExclusions(ctx, tx, project.ID)
		}
		return nil
	})
	if err != nil {
		return models.Team{}, err
	}

	m.log.Info("mentor assigned",
		zap.String("team_id", teamID),
		zap.String("mentor_id", mentorID),
		zap.String("status", string(team.Status)))
	recipients := []string{mentorID}
	for _, mem := range team.Members {
		recipients = append(recipients, mem.ActorID)
	}
	m.em.Emit(ctx, notify.Event{
		Type:       notify.MentorAssigned,
		ActorID:    a.ID,
		TeamID:     teamID,
		MentorID:   mentorID,
		Recipients: recipients,
	})
	return team, nil
}

// ReleaseMentor clears the team's mentor and frees the slot. The team
// leader, the mentor or an admin may release; releasing a team without a
// mentor is a no-op.
func (m *Allocator) ReleaseMentor(ctx context.Context, a authz.Actor, teamID string) (models.Team, error) {
	var (
		team     models.Team
		mentorID string
	)
	err := txn.Run(ctx, m.st, m.log, "mentors.release", func(ctx context.Context, tx store.Tx) error {
		var err error
		if team, err = tx.Team(ctx, teamID); err != nil {
			return store.NotFoundAs(err, "team")
		}
		if a.ID != team.LeaderID && a.ID != team.MentorID && !a.IsAdmin() {
			return errs.PermissionDenied("only the team leader, its mentor or an admin may release the mentor")
		}
		if team.Status == models.TeamCompleted {
			return errs.InvalidState("team is completed")
		}
		mentorID = team.MentorID
		_, err = m.ReleaseInTx(ctx, tx, &team)
		return err
	})
	if err != nil {
		return models.Team{}, err
	}
	if mentorID != "" {
		m.log.Info("mentor released", zap.String("team_id", teamID), zap.String("mentor_id", mentorID))
	}
	return team, nil
}

// ReleaseInTx frees the team's mentor slot inside the caller's unit of work
// and writes the team with whatever other changes the caller made to it.
// It reports whether a mentor was released; when none was, nothing is
// written.
func (m *Allocator) ReleaseInTx(ctx context.Context, tx store.Tx, team *models.Team) (bool, error) {
	if !team.HasMentor() {
		return false, nil
	}
	c, err := m.capacityOf(ctx, tx, team.MentorID)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	if c.CurrentTeamsCount > 0 {
		c.CurrentTeamsCount--
	}
	c.UpdatedAt = now
	if err := tx.PutMentorCapacity(ctx, &c); err != nil {
		return false, err
	}

	team.MentorID = ""
	if team.Status == models.TeamActive {
		team.Status = models.TeamForming
	}
	team.UpdatedAt = now
	if err := tx.UpdateTeam(ctx, team); err != nil {
		return false, err
	}

	project, err := tx.ProjectByTeam(ctx, team.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return true, nil
	case err != nil:
		return false, err
	}
	return true, panels.RefreshExclusions(ctx, tx, project.ID)
}

// Capacity returns the bookkeeping for mentorID; a faculty member without
// a record reports the default limit and zero teams.
func (m *Allocator) Capacity(ctx context.Context, mentorID string) (models.MentorCapacity, error) {
	if err := requireMentor(ctx, m.st, mentorID); err != nil {
		return models.MentorCapacity{}, err
	}
	return m.capacityOf(ctx, m.st, mentorID)
}

// ListAvailable returns every faculty member with a free slot, most free
// slots first.
func (m *Allocator) ListAvailable(ctx context.Context) ([]models.MentorCapacity, error) {
	faculty, err := m.st.ListActors(ctx, models.RoleFaculty)
	if err != nil {
		return nil, err
	}
	caps, err := m.st.ListMentorCapacities(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.MentorCapacity, len(caps))
	for _, c := range caps {
		byID[c.MentorID] = c
	}

	out := []models.MentorCapacity{}
	for _, f := range faculty {
		c, ok := byID[f.ID]
		if !ok {
			c = models.MentorCapacity{MentorID: f.ID, MaxTeamsAllowed: m.defaultCap}
		}
		if c.Available() {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FreeSlots() != out[j].FreeSlots() {
			return out[i].FreeSlots() > out[j].FreeSlots()
		}
		return out[i].MentorID < out[j].MentorID
	})
	return out, nil
}
