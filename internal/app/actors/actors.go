// Package actors is the directory of people known to the engine.
//
// The identity provider is the source of truth for who an actor is; the
// directory records the role an actor had the first time it reached the
// engine and refuses any later request that claims a different one.
package actors

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/app/system/txn"
	"github.com/adityav2131/major-project-sub000/internal/domain/errs"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"go.uber.org/zap"
)

// Directory pins and looks up actors.
type Directory struct {
	st  store.Store
	log *zap.Logger
}

// New returns a directory over st.
func New(st store.Store, logger *zap.Logger) *Directory {
	return &Directory{st: st, log: logger}
}

// Ensure records a on first sight and verifies its role afterwards.
func (d *Directory) Ensure(ctx context.Context, a authz.Actor) (models.Actor, error) {
	if !a.Valid() {
		return models.Actor{}, errs.Validation("actor id and a known role are required")
	}
	if got, err := d.st.Actor(ctx, a.ID); err == nil {
		return got, checkRole(got, a.Role)
	} else if !errors.Is(err, store.ErrNotFound) {
		return models.Actor{}, err
	}

	rec, err := d.insert(ctx, "actors.ensure", a.ID, a.Role)
	if err != nil {
		return models.Actor{}, err
	}
	return rec, checkRole(rec, a.Role)
}

// Register pre-registers id with role on behalf of an admin. Registering an
// actor again with the same role is a no-op.
func (d *Directory) Register(ctx context.Context, admin authz.Actor, id string, role models.Role) (models.Actor, error) {
	if err := authz.RequireAdmin(admin); err != nil {
		return models.Actor{}, err
	}
	if id == "" || !role.Valid() {
		return models.Actor{}, errs.Validation("actor id and a known role are required")
	}
	rec, err := d.insert(ctx, "actors.register", id, role)
	if err != nil {
		return models.Actor{}, err
	}
	if rec.Role != role {
		return models.Actor{}, errs.InvalidState("actor %s is already registered as %s", id, rec.Role)
	}
	return rec, nil
}

// insert creates the record unless one exists, and returns whichever won.
func (d *Directory) insert(ctx context.Context, op, id string, role models.Role) (models.Actor, error) {
	var (
		rec     models.Actor
		created bool
	)
	err := txn.Run(ctx, d.st, d.log, op, func(ctx context.Context, tx store.Tx) error {
		existing, err := tx.Actor(ctx, id)
		switch {
		case err == nil:
			rec, created = existing, false
			return nil
		case !errors.Is(err, store.ErrNotFound):
			return err
		}
		rec, created = models.Actor{ID: id, Role: role, CreatedAt: time.Now().UTC()}, true
		return tx.InsertActor(ctx, rec)
	})
	if errors.Is(err, store.ErrDuplicate) {
		// Lost the insert race; the other writer's record stands.
		rec, created = models.Actor{}, false
		rec, err = d.st.Actor(ctx, id)
	}
	if err != nil {
		return models.Actor{}, err
	}
	if !created {
		return rec, nil
	}
	d.log.Info("actor registered", zap.String("actor_id", id), zap.String("role", string(rec.Role)))
	return rec, nil
}

func checkRole(rec models.Actor, claimed models.Role) error {
	if rec.Role != claimed {
		return errs.PermissionDenied("actor %s is registered as %s", rec.ID, rec.Role)
	}
	return nil
}

// Get returns one actor.
func (d *Directory) Get(ctx context.Context, id string) (models.Actor, error) {
	a, err := d.st.Actor(ctx, id)
	return a, store.NotFoundAs(err, "actor")
}

// List returns actors with role, or every actor when role is empty.
func (d *Directory) List(ctx context.Context, role models.Role) ([]models.Actor, error) {
	if role != "" && !role.Valid() {
		return nil, errs.Validation("unknown role %q", role)
	}
	return d.st.ListActors(ctx, role)
}

// Pin is middleware that runs Ensure for the resolved actor. A role that
// contradicts the directory is refused with 403.
func (d *Directory) Pin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, ok := authz.FromContext(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		if _, err := d.Ensure(r.Context(), a); err != nil {
			if errs.KindOf(err) == errs.KindPermissionDenied {
				d.log.Warn("actor role mismatch", zap.String("actor_id", a.ID), zap.String("claimed_role", string(a.Role)))
				writeError(w, http.StatusForbidden, "permission_denied", "role does not match the directory")
				return
			}
			d.log.Error("actor directory lookup failed", zap.String("actor_id", a.ID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "internal", "internal error")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code, "message": msg})
}
