// internal/app/store/memstore/memstore.go

// Package memstore is an in-memory store.Store used by tests and by
// ephemeral runs (store_backend=memory).
//
// It is built on go-memdb: a unit of work is one write transaction, and
// writers are serialized by memdb's writer lock. Reads outside a unit of
// work run on an immutable snapshot and never wait for writers. Stored
// objects are private copies; every read returns a fresh clone.
package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/hashicorp/go-memdb"
)

// Compile-time contract assertions.
var (
	_ store.Store = (*Store)(nil)
	_ store.Tx    = (*tx)(nil)
)

// Store is the in-memory store.
type Store struct {
	db *memdb.MemDB
}

// New returns an empty store.
func New() *Store {
	db, err := memdb.NewMemDB(schema())
	if err != nil {
		// The schema is a package constant.
		panic(fmt.Sprintf("memstore: invalid schema: %v", err))
	}
	return &Store{db: db}
}

func (s *Store) view() reader { return reader{txn: s.db.Txn(false)} }

// Atomically runs fn in one write transaction and commits it if fn succeeds
// and ctx is still live.
func (s *Store) Atomically(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	txn := s.db.Txn(true)
	defer txn.Abort()

	if err := fn(ctx, &tx{reader: reader{txn: txn}}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

func (s *Store) Ping(ctx context.Context) error  { return ctx.Err() }
func (s *Store) Close(ctx context.Context) error { return nil }

func (s *Store) Actor(ctx context.Context, id string) (models.Actor, error) {
	return s.view().Actor(ctx, id)
}
func (s *Store) ListActors(ctx context.Context, role models.Role) ([]models.Actor, error) {
	return s.view().ListActors(ctx, role)
}
func (s *Store) Team(ctx context.Context, id string) (models.Team, error) {
	return s.view().Team(ctx, id)
}
func (s *Store) ListTeams(ctx context.Context, f store.TeamFilter) ([]models.Team, error) {
	return s.view().ListTeams(ctx, f)
}
func (s *Store) MembershipOf(ctx context.Context, actorID string) (models.TeamMembership, error) {
	return s.view().MembershipOf(ctx, actorID)
}
func (s *Store) MentorCapacity(ctx context.Context, mentorID string) (models.MentorCapacity, error) {
	return s.view().MentorCapacity(ctx, mentorID)
}
func (s *Store) ListMentorCapacities(ctx context.Context) ([]models.MentorCapacity, error) {
	return s.view().ListMentorCapacities(ctx)
}
func (s *Store) Project(ctx context.Context, id string) (models.Project, error) {
	return s.view().Project(ctx, id)
}
func (s *Store) ProjectByTeam(ctx context.Context, teamID string) (models.Project, error) {
	return s.view().ProjectByTeam(ctx, teamID)
}
func (s *Store) Panel(ctx context.Context, id string) (models.EvaluationPanel, error) {
	return s.view().Panel(ctx, id)
}
func (s *Store) ListPanels(ctx context.Context, f store.PanelFilter) ([]models.EvaluationPanel, error) {
	return s.view().ListPanels(ctx, f)
}
func (s *Store) PanelsForProject(ctx context.Context, projectID string) ([]models.EvaluationPanel, error) {
	return s.view().PanelsForProject(ctx, projectID)
}
func (s *Store) Submission(ctx context.Context, projectID string, phase models.Phase) (models.Submission, error) {
	return s.view().Submission(ctx, projectID, phase)
}

/* -------------------------------------------------------------------------- */
/* reads                                                                      */
/* -------------------------------------------------------------------------- */

type reader struct{ txn *memdb.Txn }

func (r reader) first(table, index string, args ...any) (any, error) {
	raw, err := r.txn.First(table, index, args...)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, store.ErrNotFound
	}
	return raw, nil
}

func (r reader) each(table, index string, visit func(any), args ...any) error {
	it, err := r.txn.Get(table, index, args...)
	if err != nil {
		return err
	}
	for raw := it.Next(); raw != nil; raw = it.Next() {
		visit(raw)
	}
	return nil
}

func (r reader) Actor(_ context.Context, id string) (models.Actor, error) {
	raw, err := r.first(tableActors, indexID, id)
	if err != nil {
		return models.Actor{}, err
	}
	return *raw.(*models.Actor), nil
}

func (r reader) ListActors(_ context.Context, role models.Role) ([]models.Actor, error) {
	out := []models.Actor{}
	visit := func(raw any) { out = append(out, *raw.(*models.Actor)) }
	var err error
	if role == "" {
		err = r.each(tableActors, indexID, visit)
	} else {
		err = r.each(tableActors, indexRole, visit, string(role))
	}
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r reader) Team(_ context.Context, id string) (models.Team, error) {
	raw, err := r.first(tableTeams, indexID, id)
	if err != nil {
		return models.Team{}, err
	}
	return raw.(*models.Team).Clone(), nil
}

func (r reader) ListTeams(_ context.Context, f store.TeamFilter) ([]models.Team, error) {
	out := []models.Team{}
	err := r.each(tableTeams, indexID, func(raw any) {
		t := raw.(*models.Team)
		if f.Status != "" && t.Status != f.Status {
			return
		}
		if f.MentorID != "" && t.MentorID != f.MentorID {
			return
		}
		out = append(out, t.Clone())
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r reader) MembershipOf(_ context.Context, actorID string) (models.TeamMembership, error) {
	raw, err := r.first(tableMemberships, indexID, actorID)
	if err != nil {
		return models.TeamMembership{}, err
	}
	return *raw.(*models.TeamMembership), nil
}

func (r reader) MentorCapacity(_ context.Context, mentorID string) (models.MentorCapacity, error) {
	raw, err := r.first(tableCapacities, indexID, mentorID)
	if err != nil {
		return models.MentorCapacity{}, err
	}
	return *raw.(*models.MentorCapacity), nil
}

func (r reader) ListMentorCapacities(_ context.Context) ([]models.MentorCapacity, error) {
	out := []models.MentorCapacity{}
	err := r.each(tableCapacities, indexID, func(raw any) {
		out = append(out, *raw.(*models.MentorCapacity))
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r reader) Project(_ context.Context, id string) (models.Project, error) {
	raw, err := r.first(tableProjects, indexID, id)
	if err != nil {
		return models.Project{}, err
	}
	return raw.(*models.Project).Clone(), nil
}

func (r reader) ProjectByTeam(_ context.Context, teamID string) (models.Project, error) {
	raw, err := r.first(tableProjects, indexTeam, teamID)
	if err != nil {
		return models.Project{}, err
	}
	return raw.(*models.Project).Clone(), nil
}

func (r reader) Panel(_ context.Context, id string) (models.EvaluationPanel, error) {
	raw, err := r.first(tablePanels, indexID, id)
	if err != nil {
		return models.EvaluationPanel{}, err
	}
	return raw.(*models.EvaluationPanel).Clone(), nil
}

func (r reader) ListPanels(_ context.Context, f store.PanelFilter) ([]models.EvaluationPanel, error) {
	out := []models.EvaluationPanel{}
	err := r.each(tablePanels, indexID, func(raw any) {
		p := raw.(*models.EvaluationPanel)
		if f.Type != "" && p.Type != f.Type {
			return
		}
		if f.Status != "" && p.Status != f.Status {
			return
		}
		out = append(out, p.Clone())
	})
	if err != nil {
		return nil, err
	}
	sortPanels(out)
	return out, nil
}

func (r reader) PanelsForProject(_ context.Context, projectID string) ([]models.EvaluationPanel, error) {
	out := []models.EvaluationPanel{}
	err := r.each(tablePanels, indexPanel, func(raw any) {
		out = append(out, raw.(*models.EvaluationPanel).Clone())
	}, projectID)
	if err != nil {
		return nil, err
	}
	sortPanels(out)
	return out, nil
}

func (r reader) Submission(_ context.Context, projectID string, phase models.Phase) (models.Submission, error) {
	raw, err := r.first(tableSubmissions, indexPhase, projectID, phase)
	if err != nil {
		return models.Submission{}, err
	}
	return raw.(*models.Submission).Clone(), nil
}

// sortPanels orders by creation time; the id index already ordered ties.
func sortPanels(ps []models.EvaluationPanel) {
	sort.SliceStable(ps, func(i, j int) bool { return ps[i].CreatedAt.Before(ps[j].CreatedAt) })
}

/* -------------------------------------------------------------------------- */
/* writes                                                                     */
/* -------------------------------------------------------------------------- */

type tx struct{ reader }

func (t *tx) exists(table, index string, args ...any) (bool, error) {
	raw, err := t.txn.First(table, index, args...)
	if err != nil {
		return false, err
	}
	return raw != nil, nil
}

// insert stores obj unless a row with the same id already exists.
func (t *tx) insert(table, id string, obj any) error {
	ok, err := t.exists(table, indexID, id)
	if err != nil {
		return err
	}
	if ok {
		return store.ErrDuplicate
	}
	return t.txn.Insert(table, obj)
}

// version returns the stored version of id, or 0 when absent.
func (t *tx) version(table, id string) (int64, error) {
	raw, err := t.txn.First(table, indexID, id)
	if err != nil || raw == nil {
		return 0, err
	}
	switch v := raw.(type) {
	case *models.Team:
		return v.Version, nil
	case *models.MentorCapacity:
		return v.Version, nil
	case *models.Project:
		return v.Version, nil
	case *models.EvaluationPanel:
		return v.Version, nil
	case *models.Submission:
		return v.Version, nil
	}
	return 0, fmt.Errorf("memstore: %s has no version", table)
}

// guard checks that the stored version still equals want. want 0 means the
// row must not exist yet.
func (t *tx) guard(table, id string, want int64) error {
	got, err := t.version(table, id)
	if err != nil {
		return err
	}
	if got != want {
		return store.ErrConflict
	}
	return nil
}

func (t *tx) InsertActor(_ context.Context, a models.Actor) error {
	return t.insert(tableActors, a.ID, &a)
}

func (t *tx) InsertTeam(_ context.Context, team *models.Team) error {
	cp := team.Clone()
	cp.Version = 1
	if err := t.insert(tableTeams, cp.ID, &cp); err != nil {
		return err
	}
	team.Version = 1
	return nil
}

func (t *tx) UpdateTeam(_ context.Context, team *models.Team) error {
	if team.Version == 0 {
		return store.ErrConflict
	}
	if err := t.guard(tableTeams, team.ID, team.Version); err != nil {
		return err
	}
	cp := team.Clone()
	cp.Version++
	if err := t.txn.Insert(tableTeams, &cp); err != nil {
		return err
	}
	team.Version = cp.Version
	return nil
}

func (t *tx) InsertMembership(_ context.Context, m models.TeamMembership) error {
	return t.insert(tableMemberships, m.ActorID, &m)
}

func (t *tx) DeleteMembership(_ context.Context, actorID string) error {
	_, err := t.txn.DeleteAll(tableMemberships, indexID, actorID)
	return err
}

func (t *tx) PutMentorCapacity(_ context.Context, c *models.MentorCapacity) error {
	if err := t.guard(tableCapacities, c.MentorID, c.Version); err != nil {
		return err
	}
	cp := *c
	cp.Version++
	if err := t.txn.Insert(tableCapacities, &cp); err != nil {
		return err
	}
	c.Version = cp.Version
	return nil
}

func (t *tx) InsertProject(_ context.Context, p *models.Project) error {
	// memdb does not enforce uniqueness on secondary indexes.
	taken, err := t.exists(tableProjects, indexTeam, p.TeamID)
	if err != nil {
		return err
	}
	if taken {
		return store.ErrDuplicate
	}
	cp := p.Clone()
	cp.Version = 1
	if err := t.insert(tableProjects, cp.ID, &cp); err != nil {
		return err
	}
	p.Version = 1
	return nil
}

func (t *tx) UpdateProject(_ context.Context, p *models.Project) error {
	if p.Version == 0 {
		return store.ErrConflict
	}
	if err := t.guard(tableProjects, p.ID, p.Version); err != nil {
		return err
	}
	cp := p.Clone()
	cp.Version++
	if err := t.txn.Insert(tableProjects, &cp); err != nil {
		return err
	}
	p.Version = cp.Version
	return nil
}

func (t *tx) InsertPanel(_ context.Context, p *models.EvaluationPanel) error {
	cp := p.Clone()
	cp.Version = 1
	if err := t.insert(tablePanels, cp.ID, &cp); err != nil {
		return err
	}
	p.Version = 1
	return nil
}

func (t *tx) UpdatePanel(_ context.Context, p *models.EvaluationPanel) error {
	if p.Version == 0 {
		return store.ErrConflict
	}
	if err := t.guard(tablePanels, p.ID, p.Version); err != nil {
		return err
	}
	cp := p.Clone()
	cp.Version++
	if err := t.txn.Insert(tablePanels, &cp); err != nil {
		return err
	}
	p.Version = cp.Version
	return nil
}

func (t *tx) PutSubmission(_ context.Context, s *models.Submission) error {
	raw, err := t.txn.First(tableSubmissions, indexPhase, s.ProjectID, s.Phase)
	if err != nil {
		return err
	}
	var cur int64
	if raw != nil {
		prev := raw.(*models.Submission)
		if prev.ID != s.ID {
			return store.ErrConflict
		}
		cur = prev.Version
	}
	if cur != s.Version {
		return store.ErrConflict
	}
	cp := s.Clone()
	cp.Version++
	if err := t.txn.Insert(tableSubmissions, &cp); err != nil {
		return err
	}
	s.Version = cp.Version
	return nil
}
