// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"
	"errors"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown drains pending notifications, then closes Redis and the store.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	var problems []error

	if deps.Notify != nil {
		if err := deps.Notify.Close(ctx); err != nil {
			logger.Warn("notification drain incomplete", zap.Error(err))
			problems = append(problems, err)
		}
	}
	if deps.Redis != nil {
		if err := deps.Redis.Close(); err != nil {
			logger.Error("redis close failed", zap.Error(err))
			problems = append(problems, err)
		}
	}
	if deps.Store != nil {
		logger.Info("closing store", zap.String("backend", deps.Backend))
		if err := deps.Store.Close(ctx); err != nil {
			logger.Error("store close failed", zap.Error(err))
			problems = append(problems, err)
		}
	}
	return errors.Join(problems...)
}
