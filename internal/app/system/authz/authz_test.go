package authz_test

import (
	"context"
	"errors"
	"testing"

	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
)

func TestRequireAdmin(t *testing.T) {
	tests := []struct {
		name    string
		actor   authz.Actor
		wantErr bool
	}{
		{"admin", authz.Actor{ID: "a1", Role: models.RoleAdmin}, false},
		{"faculty", authz.Actor{ID: "f1", Role: models.RoleFaculty}, true},
		{"student", authz.Actor{ID: "s1", Role: models.RoleStudent}, true},
		{"empty", authz.Actor{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := authz.RequireAdmin(tt.actor)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RequireAdmin() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, errs.ErrPermissionDenied) {
				t.Errorf("expected PermissionDenied, got %v", err)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	student := authz.Actor{ID: "s1", Role: models.RoleStudent}

	if err := authz.RequireRole(student, models.RoleFaculty, models.RoleStudent); err != nil {
		t.Errorf("expected student to pass, got %v", err)
	}
	if err := authz.RequireRole(student, models.RoleFaculty); !errors.Is(err, errs.ErrPermissionDenied) {
		t.Errorf("expected PermissionDenied, got %v", err)
	}
}

func TestRequireSelfOrAdmin(t *testing.T) {
	if err := authz.RequireSelfOrAdmin(authz.Actor{ID: "s1", Role: models.RoleStudent}, "s1"); err != nil {
		t.Errorf("self should pass: %v", err)
	}
	if err := authz.RequireSelfOrAdmin(authz.Actor{ID: "a1", Role: models.RoleAdmin}, "s1"); err != nil {
		t.Errorf("admin should pass: %v", err)
	}
	if err := authz.RequireSelfOrAdmin(authz.Actor{ID: "s2", Role: models.RoleStudent}, "s1"); err == nil {
		t.Error("other student should be denied")
	}
}

func TestFromContext(t *testing.T) {
	if _, ok := authz.FromContext(context.Background()); ok {
		t.Error("expected no actor in empty context")
	}

	want := authz.Actor{ID: "f1", Role: models.RoleFaculty}
	got, ok := authz.FromContext(authz.WithActor(context.Background(), want))
	if !ok || got != want {
		t.Errorf("FromContext: got %+v/%v, want %+v", got, ok, want)
	}

	// An actor with an unknown role is treated as absent.
	bad := authz.WithActor(context.Background(), authz.Actor{ID: "x", Role: "wizard"})
	if _, ok := authz.FromContext(bad); ok {
		t.Error("expected invalid actor to be rejected")
	}
}
