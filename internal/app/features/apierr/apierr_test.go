package apierr_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/adityav2131/major-project-sub000/internal/app/features/apierr"
	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/adityav2131/major-project-sub000/internal/testutil"
	"go.uber.org/zap"
)

func TestWrite_StatusMapping(t *testing.T) {
	tests := []struct {
		err        error
		want       int
		retryAfter bool
	}{
		{errs.Validation("bad"), http.StatusBadRequest, false},
		{errs.New(errs.KindCapacityExceeded, "full"), http.StatusConflict, false},
		{errs.New(errs.KindPhaseLocked, "locked"), http.StatusLocked, false},
		{errs.New(errs.KindExclusionViolation, "x"), http.StatusConflict, false},
		{errs.New(errs.KindNoPanelAssigned, "x"), http.StatusConflict, false},
		{errs.New(errs.KindConcurrentModification, "race"), http.StatusConflict, true},
		{errs.PermissionDenied("no"), http.StatusForbidden, false},
		{errs.NotFound("team"), http.StatusNotFound, false},
		{errs.New(errs.KindAlreadyInTeam, "x"), http.StatusConflict, false},
		{errs.InvalidState("x"), http.StatusConflict, false},
		{errors.New("disk on fire"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := testutil.NewResponseRecorder()
			apierr.Write(rec, httptest.NewRequest(http.MethodGet, "/x", nil), zap.NewNop(), tt.err)
			rec.AssertStatus(t, tt.want)
			if got := rec.Header().Get("Retry-After") != ""; got != tt.retryAfter {
				t.Errorf("Retry-After present = %v, want %v", got, tt.retryAfter)
			}
			if apierr.Status(tt.err) != tt.want {
				t.Errorf("Status: got %d, want %d", apierr.Status(tt.err), tt.want)
			}
		})
	}
}

func TestWrite_InternalErrorsAreNotLeaked(t *testing.T) {
	rec := testutil.NewResponseRecorder()
	apierr.Write(rec, httptest.NewRequest(http.MethodGet, "/x", nil), zap.NewNop(), errors.New("mongo: secret host"))
	if strings.Contains(rec.Body.String(), "secret host") {
		t.Errorf("internal detail leaked: %s", rec.Body.String())
	}
}

func TestWriteConcealed(t *testing.T) {
	bodies := make([]string, 0, 2)
	for _, err := range []error{errs.PermissionDenied("not your team"), errs.NotFound("team")} {
		rec := testutil.NewResponseRecorder()
		apierr.WriteConcealed(rec, httptest.NewRequest(http.MethodGet, "/teams/x", nil), zap.NewNop(), err)
		rec.AssertStatus(t, http.StatusNotFound)
		bodies = append(bodies, rec.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Errorf("bodies differ:\n%s\n%s", bodies[0], bodies[1])
	}
}

type createReq struct {
	Name       string `json:"name" validate:"notblank,max=120"`
	MaxMembers int    `json:"max_members" validate:"gte=0,lte=20"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{"valid", `{"name":"Rovers","max_members":4}`, ""},
		{"blank name", `{"name":"   "}`, "name"},
		{"too many members", `{"name":"R","max_members":50}`, "max_members"},
		{"unknown field", `{"name":"R","colour":"red"}`, ""},
		{"not json", `{`, ""},
		{"empty", ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/teams", strings.NewReader(tt.body))
			var dst createReq
			err := apierr.Decode(r, &dst)
			if tt.name == "valid" {
				if err != nil || dst.Name != "Rovers" {
					t.Fatalf("Decode: %+v, %v", dst, err)
				}
				return
			}
			if !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("expected Validation, got %v", err)
			}
			if tt.field == "" {
				return
			}
			rec := testutil.NewResponseRecorder()
			apierr.Write(rec, r, zap.NewNop(), err)
			var body apierr.Body
			rec.DecodeJSON(t, &body)
			if body.Fields[tt.field] == "" {
				t.Errorf("expected a message for %q, got %+v", tt.field, body.Fields)
			}
		})
	}
}
