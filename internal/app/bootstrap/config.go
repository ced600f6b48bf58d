// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/system/auth"
	"github.com/adityav2131/major-project-sub000/internal/app/system/policyfile"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// Store backends.
const (
	BackendMongo  = "mongo"
	BackendMemory = "memory"
)

// Notification sinks.
const (
	SinkLog    = "log"
	SinkOutbox = "outbox"
	SinkRedis  = "redis"
)

// appConfigKeys are loaded through WAFFLE's config layer:
//   - config files: mongo_uri, jwt_secret, ...
//   - environment: CAPSTONE_MONGO_URI, CAPSTONE_JWT_SECRET, ...
//   - flags: --mongo_uri, --jwt_secret, ...
var appConfigKeys = []config.AppKey{
	{Name: "store_backend", Default: BackendMongo, Desc: "Store backend: 'mongo' or 'memory'"},
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "capstone", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size"},
	{Name: "allow_non_transactional", Default: false, Desc: "Run on a MongoDB deployment without transactions (units of work lose atomicity)"},

	{Name: "identity_mode", Default: auth.ModeJWT, Desc: "How callers are identified: 'jwt' or 'session'"},
	{Name: "jwt_secret", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "HS256 secret for bearer tokens"},
	{Name: "token_ttl", Default: "12h", Desc: "Lifetime of issued bearer tokens"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (session mode)"},
	{Name: "session_name", Default: "capstone-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	{Name: "redis_addr", Default: "", Desc: "Redis address for the event channel (blank disables)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},
	{Name: "redis_db", Default: 0, Desc: "Redis database number"},
	{Name: "redis_channel", Default: "capstone:events", Desc: "Redis pub/sub channel for engine events"},

	{Name: "notify_sinks", Default: "log,outbox", Desc: "Comma-separated notification sinks: log, outbox, redis"},
	{Name: "policy_file", Default: "", Desc: "YAML file with default capacities and phase deadlines"},
	{Name: "rate_limit_per_minute", Default: 120, Desc: "Mutating requests per actor per minute (0 disables)"},
	{Name: "admin_actor_id", Default: "", Desc: "Actor id registered as admin on startup"},

	{Name: "timeout_short", Default: "5s", Desc: "Deadline for single-record reads"},
	{Name: "timeout_medium", Default: "10s", Desc: "Deadline for lists and single-entity writes"},
	{Name: "timeout_long", Default: "30s", Desc: "Deadline for multi-entity units of work"},
}

// LoadConfig loads WAFFLE core config and the engine's AppConfig, then
// parses the policy file so a bad policy fails startup.
//
// Precedence: flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CAPSTONE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		StoreBackend:     strings.ToLower(appValues.String("store_backend")),
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		AllowNonTransactional: appValues.Bool("allow_non_transactional"),

		IdentityMode:  strings.ToLower(appValues.String("identity_mode")),
		JWTSecret:     appValues.String("jwt_secret"),
		TokenTTL:      appValues.Duration("token_ttl", 12*time.Hour),
		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),

		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),
		RedisDB:       appValues.Int("redis_db"),
		RedisChannel:  appValues.String("redis_channel"),

		NotifySinks:        splitList(appValues.String("notify_sinks")),
		PolicyFile:         appValues.String("policy_file"),
		RateLimitPerMinute: appValues.Int("rate_limit_per_minute"),
		AdminActorID:       appValues.String("admin_actor_id"),

		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	appCfg.Policy, err = policyfile.Load(appCfg.PolicyFile)
	if err != nil {
		return nil, AppConfig{}, fmt.Errorf("policy file: %w", err)
	}
	if appCfg.PolicyFile != "" {
		logger.Info("policy loaded",
			zap.String("path", appCfg.PolicyFile),
			zap.Int("default_max_members", appCfg.Policy.DefaultMaxMembers),
			zap.Int("default_max_teams_per_mentor", appCfg.Policy.DefaultMaxTeamsPerMentor),
			zap.Int("deadlines", len(appCfg.Policy.Deadlines)),
			zap.Bool("enforce_deadlines", appCfg.Policy.EnforceDeadlines))
	}
	return coreCfg, appCfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ValidateConfig rejects configurations that cannot start: a malformed
// Mongo URI, an unknown backend, identity mode or sink, a missing secret,
// or a sink whose backend is not configured.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.StoreBackend {
	case BackendMongo:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
	case BackendMemory:
		logger.Warn("memory store selected; state is lost on restart")
	default:
		return fmt.Errorf("store_backend must be %q or %q, got %q", BackendMongo, BackendMemory, appCfg.StoreBackend)
	}

	switch appCfg.IdentityMode {
	case auth.ModeJWT:
		if appCfg.JWTSecret == "" {
			return fmt.Errorf("identity_mode %q requires jwt_secret", auth.ModeJWT)
		}
	case auth.ModeSession:
		if appCfg.SessionKey == "" {
			return fmt.Errorf("identity_mode %q requires session_key", auth.ModeSession)
		}
	default:
		return fmt.Errorf("identity_mode must be %q or %q, got %q", auth.ModeJWT, auth.ModeSession, appCfg.IdentityMode)
	}

	for _, s := range appCfg.NotifySinks {
		switch s {
		case SinkLog:
		case SinkOutbox:
			if appCfg.StoreBackend != BackendMongo {
				return fmt.Errorf("notify sink %q needs store_backend %q", SinkOutbox, BackendMongo)
			}
		case SinkRedis:
			if appCfg.RedisAddr == "" {
				return fmt.Errorf("notify sink %q needs redis_addr", SinkRedis)
			}
		default:
			return fmt.Errorf("unknown notify sink %q (want log, outbox or redis)", s)
		}
	}

	if appCfg.RateLimitPerMinute < 0 {
		return fmt.Errorf("rate_limit_per_minute must not be negative")
	}
	return nil
}
