package actors_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/adityav2131/major-project-sub000/internal/app/actors"
	actorsfeature "github.com/adityav2131/major-project-sub000/internal/app/features/actors"
	"github.com/adityav2131/major-project-sub000/internal/app/store/memstore"
	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/adityav2131/major-project-sub000/internal/testutil"
	"go.uber.org/zap"
)

func setup(t *testing.T) (*testutil.Fixtures, http.Handler) {
	t.Helper()
	st := memstore.New()
	dir := actors.New(st, zap.NewNop())
	// Pin runs in front of the routes the way the server wires it.
	return testutil.NewFixtures(t, st), dir.Pin(actorsfeature.Routes(actorsfeature.NewHandler(dir, zap.NewNop())))
}

func serve(t *testing.T, h http.Handler, a authz.Actor, method, target string, body any) *testutil.ResponseRecorder {
	t.Helper()
	rec := testutil.NewResponseRecorder()
	h.ServeHTTP(rec, testutil.WithActor(testutil.NewJSONRequest(t, method, target, body), a))
	return rec
}

func TestMe_PinsOnFirstRequest(t *testing.T) {
	_, h := setup(t)
	newcomer := authz.Actor{ID: "s1", Role: models.RoleStudent}

	rec := serve(t, h, newcomer, http.MethodGet, "/me", nil)
	rec.AssertStatus(t, http.StatusOK)
	var got models.Actor
	rec.DecodeJSON(t, &got)
	if got.ID != "s1" || got.Role != models.RoleStudent {
		t.Errorf("unexpected actor %+v", got)
	}

	// Same id, escalated role.
	rec = serve(t, h, authz.Actor{ID: "s1", Role: models.RoleAdmin}, http.MethodGet, "/me", nil)
	rec.AssertStatus(t, http.StatusForbidden)
}

func TestRegister(t *testing.T) {
	fx, h := setup(t)
	admin := fx.Admin(context.Background(), "root")
	student := fx.Student(context.Background(), "s1")

	serve(t, h, student, http.MethodPut, "/f1", map[string]any{"role": "faculty"}).AssertStatus(t, http.StatusForbidden)
	serve(t, h, admin, http.MethodPut, "/f1", map[string]any{"role": "dean"}).AssertStatus(t, http.StatusBadRequest)
	serve(t, h, admin, http.MethodPut, "/f1", map[string]any{"role": "faculty"}).AssertStatus(t, http.StatusOK)
	serve(t, h, admin, http.MethodPut, "/f1", map[string]any{"role": "faculty"}).AssertStatus(t, http.StatusOK)

	rec := serve(t, h, admin, http.MethodPut, "/f1", map[string]any{"role": "student"})
	rec.AssertStatus(t, http.StatusConflict)

	rec = serve(t, h, admin, http.MethodGet, "/?role=faculty", nil)
	rec.AssertStatus(t, http.StatusOK)
	var body struct {
		Actors []models.Actor `json:"actors"`
	}
	rec.DecodeJSON(t, &body)
	if len(body.Actors) != 1 || body.Actors[0].ID != "f1" {
		t.Errorf("faculty: %+v", body.Actors)
	}
}
