package memstore_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/app/store/memstore"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
)

func newTeam(id string) *models.Team {
	now := time.Now().UTC()
	return &models.Team{
		ID:         id,
		Name:       "Team " + id,
		Members:    []models.TeamMember{{ActorID: "s1", JoinedAt: now}},
		LeaderID:   "s1",
		MaxMembers: 4,
		Status:     models.TeamForming,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestAtomically_CommitsOnSuccess(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertTeam(ctx, newTeam("t1"))
	})
	if err != nil {
		t.Fatalf("Atomically failed: %v", err)
	}

	got, err := s.Team(ctx, "t1")
	if err != nil {
		t.Fatalf("Team failed: %v", err)
	}
	if got.Version != 1 {
		t.Errorf("Version: got %d, want 1", got.Version)
	}
}

func TestAtomically_DiscardsOnError(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertTeam(ctx, newTeam("t1")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	if _, err := s.Team(ctx, "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after rollback, got %v", err)
	}
}

func TestAtomically_CancelledContextCommitsNothing(t *testing.T) {
	s := memstore.New()
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertTeam(ctx, newTeam("t1")); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if _, err := s.Team(context.Background(), "t1"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected no partial state, got %v", err)
	}
}

func TestUpdateTeam_StaleVersionConflicts(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	if err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertTeam(ctx, newTeam("t1"))
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	stale, _ := s.Team(ctx, "t1")

	if err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.Team(ctx, "t1")
		if err != nil {
			return err
		}
		cur.Name = "renamed"
		return tx.UpdateTeam(ctx, &cur)
	}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		stale.Name = "lost update"
		return tx.UpdateTeam(ctx, &stale)
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	got, _ := s.Team(ctx, "t1")
	if got.Name != "renamed" || got.Version != 2 {
		t.Errorf("got name=%q version=%d, want renamed/2", got.Name, got.Version)
	}
}

func TestInsertMembership_Duplicate(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	m := models.TeamMembership{ActorID: "s1", TeamID: "t1", JoinedAt: time.Now()}

	if err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertMembership(ctx, m)
	}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}

	err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		m.TeamID = "t2"
		return tx.InsertMembership(ctx, m)
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestInsertProject_OnePerTeam(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	p1 := &models.Project{ID: "p1", TeamID: "t1", CurrentPhase: models.PhaseAbstract, Phases: models.NewPhaseStates()}
	p2 := &models.Project{ID: "p2", TeamID: "t1", CurrentPhase: models.PhaseAbstract, Phases: models.NewPhaseStates()}

	if err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertProject(ctx, p1)
	}); err != nil {
		t.Fatalf("insert p1 failed: %v", err)
	}
	err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertProject(ctx, p2)
	})
	if !errors.Is(err, store.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}

	got, err := s.ProjectByTeam(ctx, "t1")
	if err != nil || got.ID != "p1" {
		t.Errorf("ProjectByTeam: got %q, %v", got.ID, err)
	}
}

func TestPutMentorCapacity_InsertThenUpdate(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	c := &models.MentorCapacity{MentorID: "f1", MaxTeamsAllowed: 2}
	if err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.PutMentorCapacity(ctx, c)
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	// A second insert with Version 0 means someone else created it first.
	err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.PutMentorCapacity(ctx, &models.MentorCapacity{MentorID: "f1", MaxTeamsAllowed: 5})
	})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	if err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		cur, err := tx.MentorCapacity(ctx, "f1")
		if err != nil {
			return err
		}
		cur.CurrentTeamsCount++
		return tx.PutMentorCapacity(ctx, &cur)
	}); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	got, _ := s.MentorCapacity(ctx, "f1")
	if got.CurrentTeamsCount != 1 || got.Version != 2 {
		t.Errorf("got count=%d version=%d, want 1/2", got.CurrentTeamsCount, got.Version)
	}
}

func TestReads_DoNotAliasCommittedState(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	if err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertTeam(ctx, newTeam("t1"))
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, _ := s.Team(ctx, "t1")
	got.Members[0].ActorID = "mutated"

	again, _ := s.Team(ctx, "t1")
	if again.Members[0].ActorID != "s1" {
		t.Errorf("committed state was mutated through a read: %q", again.Members[0].ActorID)
	}
}

func TestPanelsForProject(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		for i, id := range []string{"a", "b", "c"} {
			p := &models.EvaluationPanel{
				ID:        id,
				Type:      models.PanelSynopsis,
				Status:    models.PanelActive,
				CreatedAt: now.Add(time.Duration(i) * time.Second),
			}
			if id != "b" {
				p.ProjectIDs = []string{"p1"}
			}
			if err := tx.InsertPanel(ctx, p); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	got, err := s.PanelsForProject(ctx, "p1")
	if err != nil {
		t.Fatalf("PanelsForProject failed: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "c" {
		t.Errorf("unexpected panels: %+v", got)
	}
}

func TestSubmission_KeyedByProjectAndPhase(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	sub := &models.Submission{ID: "sub1", ProjectID: "p1", Phase: models.PhaseAbstract, Kind: models.KindAbstract}
	if err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.PutSubmission(ctx, sub)
	}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	if _, err := s.Submission(ctx, "p1", models.PhaseSynopsis); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound for other phase, got %v", err)
	}
	got, err := s.Submission(ctx, "p1", models.PhaseAbstract)
	if err != nil || got.ID != "sub1" {
		t.Errorf("Submission: got %q, %v", got.ID, err)
	}
}

func TestViews_DoNotSeeUncommittedWrites(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()

	err := s.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		if err := tx.InsertTeam(ctx, newTeam("t1")); err != nil {
			return err
		}
		if _, err := tx.Team(ctx, "t1"); err != nil {
			t.Errorf("unit of work should see its own insert: %v", err)
		}
		if _, err := s.Team(ctx, "t1"); !errors.Is(err, store.ErrNotFound) {
			t.Errorf("view saw an uncommitted insert: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Atomically failed: %v", err)
	}
	if _, err := s.Team(ctx, "t1"); err != nil {
		t.Errorf("expected committed team, got %v", err)
	}
}
