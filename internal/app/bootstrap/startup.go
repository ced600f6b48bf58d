// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/app/system/timeouts"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup applies handler deadlines and registers the configured admin
// before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	n := timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})
	cur := timeouts.Current()
	logger.Info("handler timeouts",
		zap.Int("configured", n),
		zap.Duration("short", cur.Short),
		zap.Duration("medium", cur.Medium),
		zap.Duration("long", cur.Long))

	if appCfg.AdminActorID != "" {
		if err := ensureAdmin(ctx, deps.Store, appCfg.AdminActorID, logger); err != nil {
			return err
		}
	}
	return nil
}

// ensureAdmin registers id as an admin. An existing record with another
// role is left alone and reported, since roles are pinned.
func ensureAdmin(ctx context.Context, st store.Store, id string, logger *zap.Logger) error {
	var existing models.Actor
	err := st.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		a, err := tx.Actor(ctx, id)
		if err == nil {
			existing = a
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		return tx.InsertActor(ctx, models.Actor{ID: id, Role: models.RoleAdmin, CreatedAt: time.Now().UTC()})
	})
	if errors.Is(err, store.ErrDuplicate) {
		existing, err = st.Actor(ctx, id)
	}
	if err != nil {
		logger.Error("admin bootstrap failed", zap.String("actor_id", id), zap.Error(err))
		return err
	}

	switch {
	case existing.ID == "":
		logger.Info("admin registered", zap.String("actor_id", id))
	case existing.Role != models.RoleAdmin:
		logger.Warn("admin_actor_id is registered with another role; not changed",
			zap.String("actor_id", id), zap.String("role", string(existing.Role)))
	default:
		logger.Info("admin already registered", zap.String("actor_id", id))
	}
	return nil
}
