package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/google/uuid"
)

// Fixtures writes test data straight into a store, bypassing the engine's
// rules so tests can start from any reachable (or deliberately odd) state.
type Fixtures struct {
	st   store.Store
	t    *testing.T
	base time.Time
}

// NewFixtures creates a new Fixtures instance over st.
func NewFixtures(t *testing.T, st store.Store) *Fixtures {
	t.Helper()
	return &Fixtures{st: st, t: t, base: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)}
}

// Store returns the underlying store for direct access in tests.
func (f *Fixtures) Store() store.Store { return f.st }

func (f *Fixtures) write(ctx context.Context, what string, fn func(ctx context.Context, tx store.Tx) error) {
	f.t.Helper()
	if err := f.st.Atomically(ctx, fn); err != nil {
		f.t.Fatalf("failed to create test %s: %v", what, err)
	}
}

// CreateActor registers id with role and returns the matching principal.
func (f *Fixtures) CreateActor(ctx context.Context, id string, role models.Role) authz.Actor {
	f.t.Helper()
	f.write(ctx, "actor", func(ctx context.Context, tx store.Tx) error {
		return tx.InsertActor(ctx, models.Actor{ID: id, Role: role, CreatedAt: f.base})
	})
	return authz.Actor{ID: id, Role: role}
}

// Student registers a student.
func (f *Fixtures) Student(ctx context.Context, id string) authz.Actor {
	f.t.Helper()
	return f.CreateActor(ctx, id, models.RoleStudent)
}

// Faculty registers a faculty member.
func (f *Fixtures) Faculty(ctx context.Context, id string) authz.Actor {
	f.t.Helper()
	return f.CreateActor(ctx, id, models.RoleFaculty)
}

// Admin registers an administrator.
func (f *Fixtures) Admin(ctx context.Context, id string) authz.Actor {
	f.t.Helper()
	return f.CreateActor(ctx, id, models.RoleAdmin)
}

// TeamSpec describes a team to create. Members[0] is the leader unless
// LeaderID is set. Member i joined i minutes after the base time.
type TeamSpec struct {
	Name       string
	Members    []string
	LeaderID   string
	MaxMembers int
	MentorID   string
	Status     models.TeamStatus
}

// CreateTeam inserts a team, its memberships and, when a mentor is given,
// counts the team against that mentor's capacity.
func (f *Fixtures) CreateTeam(ctx context.Context, ts TeamSpec) models.Team {
	f.t.Helper()

	if ts.Name == "" {
		ts.Name = "Team " + uuid.NewString()[:8]
	}
	if ts.MaxMembers == 0 {
		ts.MaxMembers = 4
	}
	if ts.Status == "" {
		ts.Status = models.TeamForming
	}
	if ts.LeaderID == "" && len(ts.Members) > 0 {
		ts.LeaderID = ts.Members[0]
	}

	team := models.Team{
		ID:         uuid.NewString(),
		Name:       ts.Name,
		Domain:     "testing",
		LeaderID:   ts.LeaderID,
		MentorID:   ts.MentorID,
		MaxMembers: ts.MaxMembers,
		Status:     ts.Status,
		CreatedAt:  f.base,
		UpdatedAt:  f.base,
	}
	for i, id := range ts.Members {
		team.Members = append(team.Members, models.TeamMember{
			ActorID:  id,
			JoinedAt: f.base.Add(time.Duration(i) * time.Minute),
		})
	}

	f.write(ctx, "team", func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertTeam(ctx, &team); err != nil {
			return err
		}
		for _, m := range team.Members {
			if err := tx.InsertMembership(ctx, models.TeamMembership{
				ActorID: m.ActorID, TeamID: team.ID, JoinedAt: m.JoinedAt,
			}); err != nil {
				return err
			}
		}
		if ts.MentorID == "" {
			return nil
		}
		c, err := tx.MentorCapacity(ctx, ts.MentorID)
		if err != nil {
			c = models.MentorCapacity{MentorID: ts.MentorID, MaxTeamsAllowed: 15}
		}
		c.CurrentTeamsCount++
		return tx.PutMentorCapacity(ctx, &c)
	})
	return team
}

// SetCapacity writes a mentor capacity record as given.
func (f *Fixtures) SetCapacity(ctx context.Context, mentorID string, max, current int) models.MentorCapacity {
	f.t.Helper()
	var c models.MentorCapacity
	f.write(ctx, "capacity", func(ctx context.Context, tx store.Tx) error {
		existing, err := tx.MentorCapacity(ctx, mentorID)
		if err == nil {
			c = existing
		} else {
			c = models.MentorCapacity{MentorID: mentorID}
		}
		c.MaxTeamsAllowed = max
		c.CurrentTeamsCount = current
		c.UpdatedAt = f.base
		return tx.PutMentorCapacity(ctx, &c)
	})
	return c
}

// CreateProject inserts a project for teamID whose phases up to and
// including approvedThrough are approved. Pass 0 for a fresh project.
func (f *Fixtures) CreateProject(ctx context.Context, teamID string, approvedThrough models.Phase) models.Project {
	f.t.Helper()

	p := models.Project{
		ID:           uuid.NewString(),
		TeamID:       teamID,
		Title:        "Project for " + teamID,
		CurrentPhase: models.PhaseAbstract,
		Phases:       models.NewPhaseStates(),
		CreatedAt:    f.base,
		UpdatedAt:    f.base,
	}
	for ph := models.PhaseAbstract; ph <= approvedThrough && ph.Valid(); ph++ {
		p.State(ph).Status = models.StatusApproved
		if ph < models.PhaseFinalReport {
			p.CurrentPhase = ph + 1
		} else {
			p.Completed = true
		}
	}

	f.write(ctx, "project", func(ctx context.Context, tx store.Tx) error {
		return tx.InsertProject(ctx, &p)
	})
	return p
}

// CreatePanel inserts an active panel, optionally holding projectIDs.
// Exclusions are not derived; pass them explicitly when a test needs them.
func (f *Fixtures) CreatePanel(ctx context.Context, typ models.PanelType, facultyIDs []string, projectIDs ...string) models.EvaluationPanel {
	f.t.Helper()

	p := models.EvaluationPanel{
		ID:                uuid.NewString(),
		Name:              string(typ) + " panel",
		Type:              typ,
		FacultyIDs:        append([]string(nil), facultyIDs...),
		ExcludedMentorIDs: []string{},
		ProjectIDs:        append([]string{}, projectIDs...),
		Status:            models.PanelActive,
		CreatedAt:         f.base,
		UpdatedAt:         f.base,
	}
	f.write(ctx, "panel", func(ctx context.Context, tx store.Tx) error {
		return tx.InsertPanel(ctx, &p)
	})
	return p
}

// Team re-reads a team, failing the test when it is missing.
func (f *Fixtures) Team(ctx context.Context, id string) models.Team {
	f.t.Helper()
	t, err := f.st.Team(ctx, id)
	if err != nil {
		f.t.Fatalf("read team %s: %v", id, err)
	}
	return t
}

// Capacity re-reads a mentor capacity record.
func (f *Fixtures) Capacity(ctx context.Context, mentorID string) models.MentorCapacity {
	f.t.Helper()
	c, err := f.st.MentorCapacity(ctx, mentorID)
	if err != nil {
		f.t.Fatalf("read capacity %s: %v", mentorID, err)
	}
	return c
}

// Project re-reads a project.
func (f *Fixtures) Project(ctx context.Context, id string) models.Project {
	f.t.Helper()
	p, err := f.st.Project(ctx, id)
	if err != nil {
		f.t.Fatalf("read project %s: %v", id, err)
	}
	return p
}

// Panel re-reads a panel.
func (f *Fixtures) Panel(ctx context.Context, id string) models.EvaluationPanel {
	f.t.Helper()
	p, err := f.st.Panel(ctx, id)
	if err != nil {
		f.t.Fatalf("read panel %s: %v", id, err)
	}
	return p
}
