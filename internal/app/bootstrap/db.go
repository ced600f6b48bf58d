// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/notify"
	"github.com/adityav2131/major-project-sub000/internal/app/store/memstore"
	"github.com/adityav2131/major-project-sub000/internal/app/store/mongostore"
	"github.com/adityav2131/major-project-sub000/internal/app/system/indexes"
	"github.com/adityav2131/major-project-sub000/internal/app/system/metrics"
	"github.com/adityav2131/major-project-sub000/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// ConnectDB opens the configured store and Redis, and builds the metrics
// registry and notification dispatcher that sit on top of them.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	deps := DBDeps{Backend: appCfg.StoreBackend, Metrics: metrics.New()}

	switch appCfg.StoreBackend {
	case BackendMemory:
		deps.Store = memstore.New()
	default:
		client, err := connectMongo(ctx, appCfg, logger)
		if err != nil {
			return DBDeps{}, err
		}
		deps.MongoClient = client
		deps.MongoDatabase = client.Database(appCfg.MongoDatabase)
		var opts []mongostore.Option
		if appCfg.AllowNonTransactional {
			opts = append(opts, mongostore.WithNonTransactional())
		}
		ms := mongostore.New(deps.MongoDatabase, logger, opts...)
		if err := requireTransactions(ctx, ms, appCfg.AllowNonTransactional, logger); err != nil {
			_ = client.Disconnect(context.WithoutCancel(ctx))
			return DBDeps{}, err
		}
		deps.Store = ms
	}

	if appCfg.RedisAddr != "" && appCfg.sinkEnabled(SinkRedis) {
		deps.Redis = redis.NewClient(&redis.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		})
		pctx, cancel := context.WithTimeout(ctx, connectTimeout)
		err := deps.Redis.Ping(pctx).Err()
		cancel()
		if err != nil {
			// Deliveries to an unreachable Redis fail per event and are logged.
			logger.Warn("redis ping failed; continuing", zap.String("addr", appCfg.RedisAddr), zap.Error(err))
		} else {
			logger.Info("connected to redis", zap.String("addr", appCfg.RedisAddr), zap.Int("db", appCfg.RedisDB))
		}
	}

	deps.Notify = notify.NewDispatcher(logger, buildSinks(appCfg, deps, logger),
		notify.WithFailureHook(deps.Metrics.NotifyFailed))
	return deps, nil
}

type topologyChecker interface {
	SupportsTransactions(ctx context.Context) (bool, error)
}

// requireTransactions fails startup on a deployment that cannot run
// transactions, unless allow is set.
func requireTransactions(ctx context.Context, p topologyChecker, allow bool, logger *zap.Logger) error {
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	ok, err := p.SupportsTransactions(cctx)
	if err != nil {
		return fmt.Errorf("mongo topology check: %w", err)
	}
	switch {
	case ok:
		return nil
	case allow:
		logger.Warn("MongoDB deployment has no transactions; units of work are not atomic",
			zap.Bool("allow_non_transactional", true))
		return nil
	default:
		logger.Error("MongoDB deployment has no transactions; set allow_non_transactional to run anyway")
		return fmt.Errorf("mongo: deployment does not support transactions (replica set or mongos required, or set allow_non_transactional)")
	}
}

func connectMongo(ctx context.Context, appCfg AppConfig, logger *zap.Logger) (*mongo.Client, error) {
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)
	client, err := mongo.Connect(cctx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", appCfg.MongoMaxPoolSize))
	return client, nil
}

func buildSinks(appCfg AppConfig, deps DBDeps, logger *zap.Logger) []notify.Sink {
	var sinks []notify.Sink
	for _, name := range appCfg.NotifySinks {
		switch name {
		case SinkLog:
			sinks = append(sinks, notify.NewLogSink(logger))
		case SinkOutbox:
			if deps.MongoDatabase != nil {
				sinks = append(sinks, notify.NewOutboxSink(deps.MongoDatabase))
			}
		case SinkRedis:
			if deps.Redis != nil {
				sinks = append(sinks, notify.NewRedisSink(deps.Redis, appCfg.RedisChannel))
			}
		}
	}
	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	logger.Info("notification sinks", zap.Strings("sinks", names))
	return sinks
}

// EnsureSchema creates collections, validators and indexes. The memory
// store needs none of it.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.MongoDatabase == nil {
		return nil
	}
	if err := validators.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("schema validators", zap.Error(err))
		return err
	}
	if err := indexes.EnsureAll(ctx, deps.MongoDatabase); err != nil {
		logger.Error("indexes", zap.Error(err))
		return err
	}
	return nil
}
