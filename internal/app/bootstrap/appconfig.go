// internal/app/bootstrap/appconfig.go
package bootstrap

import (
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/system/policyfile"
)

// AppConfig holds service-specific configuration for the capstone engine.
//
// Values come from flags, CAPSTONE_* environment variables, config files
// and defaults (see LoadConfig). WAFFLE's CoreConfig covers the HTTP
// server, logging and CORS; everything about the engine lives here.
type AppConfig struct {
	// Store selection: "mongo" or "memory".
	StoreBackend string

	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// AllowNonTransactional accepts a Mongo deployment without
	// transactions. Multi-document units of work are then not atomic.
	AllowNonTransactional bool

	// Identity: "jwt" (bearer tokens) or "session" (shared cookie).
	IdentityMode  string
	JWTSecret     string
	TokenTTL      time.Duration
	SessionKey    string
	SessionName   string
	SessionDomain string

	// Redis pub/sub for the notification fan-out.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisChannel  string

	// NotifySinks lists enabled sinks: log, outbox, redis.
	NotifySinks []string

	// Policy is parsed from PolicyFile during LoadConfig.
	PolicyFile string
	Policy     policyfile.Policy

	// Mutating requests per actor per minute; 0 disables the limiter.
	RateLimitPerMinute int

	// AdminActorID is registered as an admin at startup when set.
	AdminActorID string

	// Handler deadlines; zero keeps the timeouts package defaults.
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}

// sinkEnabled reports whether name is listed in NotifySinks.
func (c AppConfig) sinkEnabled(name string) bool {
	for _, s := range c.NotifySinks {
		if s == name {
			return true
		}
	}
	return false
}
