package mentors_test

import (
	"context"
	"net/http"
	"testing"

	mentorsfeature "github.com/adityav2131/major-project-sub000/internal/app/features/mentors"
	"github.com/adityav2131/major-project-sub000/internal/app/mentors"
	"github.com/adityav2131/major-project-sub000/internal/app/store/memstore"
	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/adityav2131/major-project-sub000/internal/testutil"
	"go.uber.org/zap"
)

func setup(t *testing.T) (context.Context, *testutil.Fixtures, http.Handler) {
	t.Helper()
	st := memstore.New()
	alloc := mentors.New(st, nil, zap.NewNop(), mentors.WithDefaultCapacity(3))
	h := mentorsfeature.NewHandler(alloc, nil, zap.NewNop())
	return context.Background(), testutil.NewFixtures(t, st), mentorsfeature.Routes(h)
}

func serve(t *testing.T, router http.Handler, a authz.Actor, method, target string, body any) *testutil.ResponseRecorder {
	t.Helper()
	req := testutil.WithActor(testutil.NewJSONRequest(t, method, target, body), a)
	rec := testutil.NewResponseRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestCapacity_DefaultsWithoutRecord(t *testing.T) {
	ctx, fx, router := setup(t)
	s1 := fx.Student(ctx, "s1")
	fx.Faculty(ctx, "f1")

	rec := serve(t, router, s1, http.MethodGet, "/f1/capacity", nil)
	rec.AssertStatus(t, http.StatusOK)
	var c models.MentorCapacity
	rec.DecodeJSON(t, &c)
	if c.MaxTeamsAllowed != 3 || c.CurrentTeamsCount != 0 {
		t.Errorf("unexpected capacity %+v", c)
	}

	rec = serve(t, router, s1, http.MethodGet, "/s1/capacity", nil)
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = serve(t, router, s1, http.MethodGet, "/ghost/capacity", nil)
	rec.AssertStatus(t, http.StatusNotFound)
}

func TestSetCapacity(t *testing.T) {
	ctx, fx, router := setup(t)
	admin := fx.Admin(ctx, "root")
	f1 := fx.Faculty(ctx, "f1")
	fx.SetCapacity(ctx, "f1", 5, 2)

	rec := serve(t, router, f1, http.MethodPut, "/f1/capacity", map[string]any{"max_teams_allowed": 8})
	rec.AssertStatus(t, http.StatusForbidden)

	rec = serve(t, router, admin, http.MethodPut, "/f1/capacity", map[string]any{"max_teams_allowed": 1})
	rec.AssertStatus(t, http.StatusBadRequest)

	rec = serve(t, router, admin, http.MethodPut, "/f1/capacity", map[string]any{"max_teams_allowed": 8})
	rec.AssertStatus(t, http.StatusOK)
	if c := fx.Capacity(ctx, "f1"); c.MaxTeamsAllowed != 8 || c.CurrentTeamsCount != 2 {
		t.Errorf("stored capacity: %+v", c)
	}
}

func TestAvailable_SkipsFullMentors(t *testing.T) {
	ctx, fx, router := setup(t)
	s1 := fx.Student(ctx, "s1")
	fx.Faculty(ctx, "f1")
	fx.Faculty(ctx, "f2")
	fx.SetCapacity(ctx, "f2", 2, 2)

	rec := serve(t, router, s1, http.MethodGet, "/available", nil)
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		Mentors []models.MentorCapacity `json:"mentors"`
	}
	rec.DecodeJSON(t, &body)
	if len(body.Mentors) != 1 || body.Mentors[0].MentorID != "f1" {
		t.Errorf("available: %+v", body.Mentors)
	}
}
