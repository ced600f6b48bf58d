// internal/app/system/authz/authz.go

// Package authz holds the resolved caller identity and the role checks the
// engine applies before touching any state.
package authz

import (
	"context"

	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
)

// Actor is the caller as resolved by the identity provider. The engine
// trusts it; credentials are verified upstream.
type Actor struct {
	ID   string
	Role models.Role
}

// System is the identity used for work the service does on its own behalf.
var System = Actor{ID: "system", Role: models.RoleAdmin}

// Valid reports whether the identity is usable.
func (a Actor) Valid() bool { return a.ID != "" && a.Role.Valid() }

// IsAdmin reports whether the actor is an admin.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// IsStudent reports whether the actor is a student.
func (a Actor) IsStudent() bool { return a.Role == models.RoleStudent }

// IsFaculty reports whether the actor is a faculty member.
func (a Actor) IsFaculty() bool { return a.Role == models.RoleFaculty }

// RequireAdmin fails with PermissionDenied unless the actor is an admin.
func RequireAdmin(a Actor) error {
	if !a.IsAdmin() {
		return errs.PermissionDenied("admin role required")
	}
	return nil
}

// RequireRole fails with PermissionDenied unless the actor holds one of roles.
func RequireRole(a Actor, roles ...models.Role) error {
	for _, r := range roles {
		if a.Role == r {
			return nil
		}
	}
	return errs.PermissionDenied("role %q may not perform this action", a.Role)
}

// RequireSelfOrAdmin fails unless the actor is id or an admin.
func RequireSelfOrAdmin(a Actor, id string) error {
	if a.ID == id || a.IsAdmin() {
		return nil
	}
	return errs.PermissionDenied("only %s or an admin may do this", id)
}

type ctxKey struct{}

// WithActor returns a copy of ctx carrying a.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, ctxKey{}, a)
}

// FromContext returns the actor stored by WithActor.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(ctxKey{}).(Actor)
	return a, ok && a.Valid()
}
