package phasegate_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/notify"
	"github.com/adityav2131/major-project-sub000/internal/app/phasegate"
	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/app/store/memstore"
	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/app/system/policyfile"
	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/adityav2131/major-project-sub000/internal/testutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var now = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type env struct {
	ctx   context.Context
	st    store.Store
	fx    *testutil.Fixtures
	rec   *testutil.Recorder
	gate  *phasegate.Gate
	team  models.Team
	admin authz.Actor
}

func setup(t *testing.T, opts ...phasegate.Option) *env {
	t.Helper()
	ctx := context.Background()
	st := memstore.New()
	fx := testutil.NewFixtures(t, st)
	rec := testutil.NewRecorder()
	fx.Student(ctx, "s1")
	fx.Student(ctx, "s2")
	fx.Faculty(ctx, "mentor")
	team := fx.CreateTeam(ctx, testutil.TeamSpec{Members: []string{"s1", "s2"}, MentorID: "mentor"})
	opts = append([]phasegate.Option{phasegate.WithClock(func() time.Time { return now })}, opts...)
	return &env{
		ctx:  ctx,
		st:   st,
		fx:   fx,
		rec:  rec,
		gate:  phasegate.New(st, rec, zap.NewNop(), opts...),
		team:  team,
		admin: fx.Admin(ctx, "admin"),
	}
}

func (e *env) member(id string) authz.Actor {
	return authz.Actor{ID: id, Role: models.RoleStudent}
}

func (e *env) submit(t *testing.T, projectID string, ph models.Phase) models.Submission {
	t.Helper()
	s, err := e.gate.Submit(e.ctx, phasegate.SubmitRequest{
		ProjectID: projectID, Phase: ph, ArtifactRef: "blob://" + ph.Key(), By: "s1",
	})
	if err != nil {
		t.Fatalf("Submit %s failed: %v", ph, err)
	}
	return s
}

func (e *env) review(t *testing.T, projectID string, ph models.Phase, d models.Decision) models.Project {
	t.Helper()
	p, err := e.gate.Review(e.ctx, phasegate.ReviewRequest{
		ProjectID: projectID, Phase: ph, Decision: d, ReviewerID: "mentor",
	})
	if err != nil {
		t.Fatalf("Review %s %s failed: %v", ph, d, err)
	}
	return p
}

func TestCreateProject_ActivatesTeamWithMentor(t *testing.T) {
	e := setup(t)
	p, err := e.gate.CreateProject(e.ctx, e.fx.Student(e.ctx, "s3"), e.team.ID, "T", "")
	if !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("non-member: expected PermissionDenied, got %v (%+v)", err, p)
	}

	p, err = e.gate.CreateProject(e.ctx, e.admin, e.team.ID, "T", "")
	if !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("admin: expected PermissionDenied, got %v", err)
	}

	p, err = e.gate.CreateProject(e.ctx, e.member("s2"), e.team.ID, " <i>Drone</i> mapping ", "aerial <script>x</script>survey")
	if err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	if p.Title != "Drone mapping" || p.CurrentPhase != models.PhaseAbstract || len(p.Phases) != models.PhaseCount {
		t.Errorf("unexpected project: %+v", p)
	}
	for _, s := range p.Phases {
		if s.Status != models.StatusNotSubmitted {
			t.Errorf("%s: got %s, want not_submitted", s.Phase, s.Status)
		}
	}
	if got := e.fx.Team(e.ctx, e.team.ID); got.Status != models.TeamActive {
		t.Errorf("team status: got %s, want active", got.Status)
	}

	if _, err := e.gate.CreateProject(e.ctx, e.member("s1"), e.team.ID, "Again", ""); !errors.Is(err, errs.ErrInvalidState) {
		t.Errorf("second project: expected InvalidState, got %v", err)
	}
	got, err := e.gate.ProjectOfTeam(e.ctx, e.team.ID)
	if err != nil || got.ID != p.ID {
		t.Errorf("ProjectOfTeam: %+v, %v", got, err)
	}
}

func TestCreateProject_TeamWithoutMentorStaysForming(t *testing.T) {
	e := setup(t)
	e.fx.Student(e.ctx, "solo")
	team := e.fx.CreateTeam(e.ctx, testutil.TeamSpec{Members: []string{"solo"}})

	if _, err := e.gate.CreateProject(e.ctx, e.member("solo"), team.ID, "T", ""); err != nil {
		t.Fatalf("CreateProject failed: %v", err)
	}
	got := e.fx.Team(e.ctx, team.ID)
	if got.Status != models.TeamForming {
		t.Errorf("team status: got %s, want forming", got.Status)
	}
	// The team document is written even when it stays forming, so a
	// concurrent mentor choice conflicts with the project creation.
	if got.Version != team.Version+1 {
		t.Errorf("team version: got %d, want %d", got.Version, team.Version+1)
	}
	if _, err := e.gate.CreateProject(e.ctx, e.member("solo"), team.ID, "", ""); !errors.Is(err, errs.ErrValidation) {
		t.Errorf("empty title: expected Validation, got %v", err)
	}
}

func TestSubmit_PhaseGating(t *testing.T) {
	e := setup(t)
	p := e.fx.CreateProject(e.ctx, e.team.ID, 0)

	tests := []struct {
		name  string
		phase models.Phase
		ref   string
		want  error
	}{
		{"future phase", models.PhaseSynopsis, "blob://x", errs.ErrPhaseLocked},
		{"final report first", models.PhaseFinalReport, "blob://x", errs.ErrPhaseLocked},
		{"phase zero", 0, "blob://x", errs.ErrValidation},
		{"phase eight", 8, "blob://x", errs.ErrValidation},
		{"blank artifact", models.PhaseAbstract, "  ", errs.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.gate.Submit(e.ctx, phasegate.SubmitRequest{
				ProjectID: p.ID, Phase: tt.phase, ArtifactRef: tt.ref, By: "s1",
			})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := e.gate.Submit(e.ctx, phasegate.SubmitRequest{
		ProjectID: "missing", Phase: models.PhaseAbstract, ArtifactRef: "blob://x", By: "s1",
	}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("unknown project: expected NotFound, got %v", err)
	}

	s := e.submit(t, p.ID, models.PhaseAbstract)
	if s.Kind != models.KindAbstract || s.SubmittedBy != "s1" || len(s.History) != 1 || s.Late {
		t.Errorf("unexpected submission: %+v", s)
	}
	got := e.fx.Project(e.ctx, p.ID)
	if got.StatusOf(models.PhaseAbstract) != models.StatusPendingReview || got.State(models.PhaseAbstract).SubmissionID != s.ID {
		t.Errorf("unexpected phase state: %+v", got.Phases[0])
	}

	if _, err := e.gate.Submit(e.ctx, phasegate.SubmitRequest{
		ProjectID: p.ID, Phase: models.PhaseAbstract, ArtifactRef: "blob://again", By: "s2",
	}); !errors.Is(err, errs.ErrConcurrentModification) {
		t.Errorf("submit while pending: expected ConcurrentModification, got %v", err)
	}
}

func TestSubmit_SynopsisAfterAbstractApproved(t *testing.T) {
	e := setup(t)
	p := e.fx.CreateProject(e.ctx, e.team.ID, models.PhaseAbstract)

	s := e.submit(t, p.ID, models.PhaseSynopsis)
	if s.Kind != models.KindSynopsis {
		t.Errorf("kind: got %s", s.Kind)
	}
	if got := e.fx.Project(e.ctx, p.ID); got.StatusOf(models.PhaseSynopsis) != models.StatusPendingReview {
		t.Errorf("synopsis status: got %s", got.StatusOf(models.PhaseSynopsis))
	}
}

func TestReview_FullLifecycle(t *testing.T) {
	e := setup(t)
	p := e.fx.CreateProject(e.ctx, e.team.ID, 0)

	prev := models.Phase(0)
	for ph := models.PhaseAbstract; ph <= models.PhaseFinalReport; ph++ {
		e.submit(t, p.ID, ph)
		got := e.review(t, p.ID, ph, models.DecisionApproved)
		if got.StatusOf(ph) != models.StatusApproved {
			t.Fatalf("%s: status %s", ph, got.StatusOf(ph))
		}
		if got.CurrentPhase < prev {
			t.Fatalf("current phase moved backwards: %s after %s", got.CurrentPhase, prev)
		}
		prev = got.CurrentPhase
	}

	got := e.fx.Project(e.ctx, p.ID)
	if !got.Completed || got.CompletedAt == nil || got.CurrentPhase != models.PhaseFinalReport {
		t.Errorf("unexpected final project: %+v", got)
	}
	if team := e.fx.Team(e.ctx, e.team.ID); team.Status != models.TeamCompleted {
		t.Errorf("team status: got %s, want completed", team.Status)
	}
	if got := len(e.rec.OfType(notify.PhaseAdvanced)); got != models.PhaseCount {
		t.Errorf("PhaseAdvanced events: got %d, want %d", got, models.PhaseCount)
	}
	done := e.rec.OfType(notify.ProjectCompleted)
	if len(done) != 1 || done[0].ProjectID != p.ID {
		t.Errorf("ProjectCompleted events: %+v", done)
	}

	if _, err := e.gate.Submit(e.ctx, phasegate.SubmitRequest{
		ProjectID: p.ID, Phase: models.PhaseFinalReport, ArtifactRef: "blob://x", By: "s1",
	}); !errors.Is(err, errs.ErrPhaseLocked) {
		t.Errorf("submit after completion: expected PhaseLocked, got %v", err)
	}
}

func TestReview_RevisionCycle(t *testing.T) {
	e := setup(t)
	p := e.fx.CreateProject(e.ctx, e.team.ID, 0)

	e.submit(t, p.ID, models.PhaseAbstract)
	got, err := e.gate.Review(e.ctx, phasegate.ReviewRequest{
		ProjectID: p.ID, Phase: models.PhaseAbstract, Decision: models.DecisionRevisionNeeded,
		Feedback: "<p>Tighten the <b>scope</b></p>", ReviewerID: "mentor",
	})
	if err != nil {
		t.Fatalf("Review failed: %v", err)
	}
	if got.StatusOf(models.PhaseAbstract) != models.StatusNotSubmitted || got.CurrentPhase != models.PhaseAbstract {
		t.Errorf("after revision: %+v", got.Phases[0])
	}

	sub, err := e.gate.Submission(e.ctx, p.ID, models.PhaseAbstract)
	if err != nil {
		t.Fatal(err)
	}
	if sub.RevisionCount != 1 || sub.Decision != models.DecisionRevisionNeeded || sub.Feedback != "Tighten the scope" {
		t.Errorf("unexpected submission after revision: %+v", sub)
	}
	evs := e.rec.OfType(notify.RevisionRequested)
	if len(evs) != 1 || evs[0].Details["revision_count"] != "1" || len(evs[0].Recipients) != 2 {
		t.Errorf("RevisionRequested events: %+v", evs)
	}

	resub := e.submit(t, p.ID, models.PhaseAbstract)
	if resub.ID != sub.ID || len(resub.History) != 2 || resub.Decision != "" || resub.RevisionCount != 1 {
		t.Errorf("resubmission should update the same record: %+v", resub)
	}
	if h := resub.History[0]; h.Decision != models.DecisionRevisionNeeded || h.ReviewedAt == nil {
		t.Errorf("first attempt should keep its review: %+v", h)
	}

	got = e.review(t, p.ID, models.PhaseAbstract, models.DecisionApproved)
	if got.CurrentPhase != models.PhaseSynopsis {
		t.Errorf("current phase: got %s, want synopsis", got.CurrentPhase)
	}
}

func TestReview_RejectedLocksUntilReopen(t *testing.T) {
	e := setup(t)
	p := e.fx.CreateProject(e.ctx, e.team.ID, 0)
	admin := e.admin

	e.submit(t, p.ID, models.PhaseAbstract)
	got := e.review(t, p.ID, models.PhaseAbstract, models.DecisionRejected)
	if got.StatusOf(models.PhaseAbstract) != models.StatusRejected {
		t.Fatalf("status: got %s", got.StatusOf(models.PhaseAbstract))
	}

	if _, err := e.gate.Submit(e.ctx, phasegate.SubmitRequest{
		ProjectID: p.ID, Phase: models.PhaseAbstract, ArtifactRef: "blob://x", By: "s1",
	}); !errors.Is(err, errs.ErrPhaseLocked) {
		t.Errorf("submit rejected phase: expected PhaseLocked, got %v", err)
	}
	if _, err := e.gate.Reopen(e.ctx, e.member("s1"), p.ID, models.PhaseAbstract); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Errorf("student reopen: expected PermissionDenied, got %v", err)
	}
	if _, err := e.gate.Reopen(e.ctx, admin, p.ID, models.PhaseSynopsis); !errors.Is(err, errs.ErrInvalidState) {
		t.Errorf("reopen of a phase that is not rejected: expected InvalidState, got %v", err)
	}

	got, err := e.gate.Reopen(e.ctx, admin, p.ID, models.PhaseAbstract)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	if got.StatusOf(models.PhaseAbstract) != models.StatusNotSubmitted {
		t.Errorf("after reopen: %s", got.StatusOf(models.PhaseAbstract))
	}
	e.submit(t, p.ID, models.PhaseAbstract)
}

func TestReview_Rejections(t *testing.T) {
	e := setup(t)
	p := e.fx.CreateProject(e.ctx, e.team.ID, 0)

	tests := []struct {
		name string
		req  phasegate.ReviewRequest
		want error
	}{
		{"not pending", phasegate.ReviewRequest{ProjectID: p.ID, Phase: models.PhaseAbstract, Decision: models.DecisionApproved, ReviewerID: "mentor"}, errs.ErrInvalidState},
		{"bad decision", phasegate.ReviewRequest{ProjectID: p.ID, Phase: models.PhaseAbstract, Decision: "maybe", ReviewerID: "mentor"}, errs.ErrValidation},
		{"no reviewer", phasegate.ReviewRequest{ProjectID: p.ID, Phase: models.PhaseAbstract, Decision: models.DecisionApproved}, errs.ErrValidation},
		{"unknown project", phasegate.ReviewRequest{ProjectID: "missing", Phase: models.PhaseAbstract, Decision: models.DecisionApproved, ReviewerID: "mentor"}, errs.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := e.gate.Review(e.ctx, tt.req); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestGuard_RunsInsideUnitOfWork(t *testing.T) {
	e := setup(t)
	p := e.fx.CreateProject(e.ctx, e.team.ID, 0)
	denied := errs.PermissionDenied("not yours")

	_, err := e.gate.Submit(e.ctx, phasegate.SubmitRequest{
		ProjectID: p.ID, Phase: models.PhaseAbstract, ArtifactRef: "blob://x", By: "s1",
		Check: func(ctx context.Context, r store.Reader, got models.Project) (string, error) {
			if got.ID != p.ID {
				t.Errorf("guard saw project %s", got.ID)
			}
			return "", denied
		},
	})
	if !errors.Is(err, errs.ErrPermissionDenied) {
		t.Fatalf("expected the guard's error, got %v", err)
	}
	if got := e.fx.Project(e.ctx, p.ID); got.StatusOf(models.PhaseAbstract) != models.StatusNotSubmitted {
		t.Errorf("a refused submit must not change the phase: %s", got.StatusOf(models.PhaseAbstract))
	}
	if _, err := e.gate.Submission(e.ctx, p.ID, models.PhaseAbstract); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("expected no submission record, got %v", err)
	}
}

func TestSubmit_Deadlines(t *testing.T) {
	pol := policyfile.Default()
	pol.Deadlines[models.PhaseAbstract] = now.Add(-time.Hour)
	pol.Deadlines[models.PhaseSynopsis] = now.Add(time.Hour)

	t.Run("flagged late", func(t *testing.T) {
		e := setup(t, phasegate.WithPolicy(pol))
		p := e.fx.CreateProject(e.ctx, e.team.ID, 0)
		s := e.submit(t, p.ID, models.PhaseAbstract)
		if !s.Late || !s.History[0].Late {
			t.Errorf("expected a late submission: %+v", s)
		}
	})

	t.Run("on time", func(t *testing.T) {
		e := setup(t, phasegate.WithPolicy(pol))
		p := e.fx.CreateProject(e.ctx, e.team.ID, models.PhaseAbstract)
		if s := e.submit(t, p.ID, models.PhaseSynopsis); s.Late {
			t.Errorf("expected an on-time submission: %+v", s)
		}
	})

	t.Run("enforced", func(t *testing.T) {
		strict := pol
		strict.EnforceDeadlines = true
		e := setup(t, phasegate.WithPolicy(strict))
		p := e.fx.CreateProject(e.ctx, e.team.ID, 0)
		_, err := e.gate.Submit(e.ctx, phasegate.SubmitRequest{
			ProjectID: p.ID, Phase: models.PhaseAbstract, ArtifactRef: "blob://x", By: "s1",
		})
		if !errors.Is(err, errs.ErrPhaseLocked) {
			t.Errorf("expected PhaseLocked, got %v", err)
		}
	})
}

func TestSubmit_ConcurrentSubmitsOneWins(t *testing.T) {
	e := setup(t)
	p := e.fx.CreateProject(e.ctx, e.team.ID, 0)

	const n = 8
	results := make([]error, n)
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, results[i] = e.gate.Submit(e.ctx, phasegate.SubmitRequest{
				ProjectID: p.ID, Phase: models.PhaseAbstract, ArtifactRef: "blob://x", By: "s1",
			})
			return nil
		})
	}
	_ = g.Wait()

	wins := 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case !errors.Is(err, errs.ErrConcurrentModification):
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("wins: got %d, want 1", wins)
	}
	sub, _ := e.gate.Submission(e.ctx, p.ID, models.PhaseAbstract)
	if len(sub.History) != 1 {
		t.Errorf("history: got %d attempts, want 1", len(sub.History))
	}
}

func TestReview_ConcurrentReviewsOneWins(t *testing.T) {
	e := setup(t)
	p := e.fx.CreateProject(e.ctx, e.team.ID, 0)
	e.submit(t, p.ID, models.PhaseAbstract)

	decisions := []models.Decision{models.DecisionApproved, models.DecisionRejected, models.DecisionRevisionNeeded, models.DecisionApproved}
	results := make([]error, len(decisions))
	var g errgroup.Group
	for i, d := range decisions {
		g.Go(func() error {
			_, results[i] = e.gate.Review(e.ctx, phasegate.ReviewRequest{
				ProjectID: p.ID, Phase: models.PhaseAbstract, Decision: d, ReviewerID: "mentor",
			})
			return nil
		})
	}
	_ = g.Wait()

	wins := 0
	for _, err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, errs.ErrInvalidState), errors.Is(err, errs.ErrConcurrentModification):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("wins: got %d, want 1", wins)
	}
}

func TestSubmit_LostRaceIsNotRetried(t *testing.T) {
	e := setup(t)
	p := e.fx.CreateProject(e.ctx, e.team.ID, 0)
	cs := testutil.NewConflictingStore(e.st, 1)
	gate := phasegate.New(cs, nil, zap.NewNop())

	_, err := gate.Submit(e.ctx, phasegate.SubmitRequest{
		ProjectID: p.ID, Phase: models.PhaseAbstract, ArtifactRef: "blob://x", By: "s1",
	})
	if !errors.Is(err, errs.ErrConcurrentModification) || !errs.Retryable(err) {
		t.Fatalf("expected a retryable ConcurrentModification, got %v", err)
	}
	if cs.Calls() != 1 {
		t.Errorf("units of work: got %d, want 1", cs.Calls())
	}
	if _, err := gate.Submit(e.ctx, phasegate.SubmitRequest{
		ProjectID: p.ID, Phase: models.PhaseAbstract, ArtifactRef: "blob://x", By: "s1",
	}); err != nil {
		t.Errorf("reissued submit failed: %v", err)
	}
}
