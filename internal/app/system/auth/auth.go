package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Modes, constants                                                            |
*─────────────────────────────────────────────────────────────────────────────*/

// Identity modes.
const (
	ModeJWT     = "jwt"     // Authorization: Bearer <HS256 token>
	ModeSession = "session" // shared gorilla session cookie
)

const (
	issuer = "capstone"

	actorIDKey = "actor_id"
	roleKey    = "role"
)

// ErrNoIdentity is returned when a request carries no usable identity.
var ErrNoIdentity = errors.New("auth: no identity")

// Config selects how callers are identified.
type Config struct {
	Mode          string
	JWTSecret     string
	TokenTTL      time.Duration
	SessionKey    string
	SessionName   string
	SessionDomain string
	Secure        bool
}

// Claims is the bearer token payload. Subject carries the actor id.
type Claims struct {
	Role string `json:"role"`
	jwtlib.RegisteredClaims
}

/*─────────────────────────────────────────────────────────────────────────────*
| Manager                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// Manager resolves the caller of each request into an authz.Actor.
type Manager struct {
	mode   string
	secret []byte
	ttl    time.Duration
	store  *sessions.CookieStore
	name   string
	log    *zap.Logger
}

// NewManager validates cfg and builds a Manager.
func NewManager(cfg Config, logger *zap.Logger) (*Manager, error) {
	m := &Manager{mode: cfg.Mode, ttl: cfg.TokenTTL, name: cfg.SessionName, log: logger}
	if m.ttl <= 0 {
		m.ttl = 12 * time.Hour
	}

	switch cfg.Mode {
	case ModeJWT:
		if cfg.JWTSecret == "" {
			return nil, fmt.Errorf("jwt secret is empty; provide ≥32 random chars")
		}
		if len(cfg.JWTSecret) < 32 {
			logger.Warn("jwt secret is short; 32+ chars recommended",
				zap.Int("length", len(cfg.JWTSecret)))
		}
		m.secret = []byte(cfg.JWTSecret)

	case ModeSession:
		if cfg.SessionKey == "" {
			return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
		}
		if len(cfg.SessionKey) < 32 {
			logger.Warn("session key is short; 32+ chars recommended",
				zap.Int("length", len(cfg.SessionKey)))
		}
		if m.name == "" {
			m.name = "capstone-session"
		}
		store := sessions.NewCookieStore([]byte(cfg.SessionKey))
		store.Options = &sessions.Options{
			Domain:   cfg.SessionDomain,
			Path:     "/",
			Secure:   cfg.Secure,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		}
		if cfg.Secure {
			store.Options.SameSite = http.SameSiteNoneMode
		}
		m.store = store

	default:
		return nil, fmt.Errorf("unknown identity mode %q (want %q or %q)", cfg.Mode, ModeJWT, ModeSession)
	}

	logger.Info("identity resolver initialized", zap.String("mode", cfg.Mode))
	return m, nil
}

// Mode returns the configured identity mode.
func (m *Manager) Mode() string { return m.mode }

// IssueToken signs a bearer token for a. Only available in jwt mode.
func (m *Manager) IssueToken(a authz.Actor) (string, error) {
	if m.secret == nil {
		return "", fmt.Errorf("auth: tokens need jwt mode")
	}
	now := time.Now()
	claims := Claims{
		Role: string(a.Role),
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    issuer,
			Subject:   a.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(m.ttl)),
		},
	}
	return jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(m.secret)
}

// ParseToken validates a bearer token and returns its actor.
func (m *Manager) ParseToken(token string) (authz.Actor, error) {
	if m.secret == nil {
		return authz.Actor{}, ErrNoIdentity
	}
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(*jwtlib.Token) (interface{}, error) {
		return m.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}), jwtlib.WithIssuer(issuer))
	if err != nil {
		return authz.Actor{}, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return authz.Actor{}, jwtlib.ErrTokenInvalidClaims
	}
	return actorOf(claims.Subject, claims.Role)
}

// SaveSession stores a in the session cookie. Only available in session mode.
func (m *Manager) SaveSession(w http.ResponseWriter, r *http.Request, a authz.Actor) error {
	if m.store == nil {
		return fmt.Errorf("auth: sessions need session mode")
	}
	sess, _ := m.store.Get(r, m.name)
	sess.Values[actorIDKey] = a.ID
	sess.Values[roleKey] = string(a.Role)
	return sess.Save(r, w)
}

// Resolve returns the caller of r.
func (m *Manager) Resolve(r *http.Request) (authz.Actor, error) {
	switch m.mode {
	case ModeJWT:
		h := r.Header.Get("Authorization")
		tok, ok := strings.CutPrefix(h, "Bearer ")
		if !ok || strings.TrimSpace(tok) == "" {
			return authz.Actor{}, ErrNoIdentity
		}
		return m.ParseToken(strings.TrimSpace(tok))

	case ModeSession:
		sess, err := m.store.Get(r, m.name)
		if err != nil {
			return authz.Actor{}, ErrNoIdentity
		}
		id, _ := sess.Values[actorIDKey].(string)
		role, _ := sess.Values[roleKey].(string)
		return actorOf(id, role)
	}
	return authz.Actor{}, ErrNoIdentity
}

/*─────────────────────────────────────────────────────────────────────────────*
| Middleware                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

// LoadActor injects the caller into the request context when one resolves.
// Requests without identity pass through untouched.
func (m *Manager) LoadActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a, err := m.Resolve(r)
		if err == nil {
			r = WithActor(r, a)
		} else if !errors.Is(err, ErrNoIdentity) {
			m.log.Debug("identity rejected", zap.Error(err))
		}
		next.ServeHTTP(w, r)
	})
}

// RequireActor rejects requests without an identity with 401.
func (m *Manager) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentActor(r); !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole rejects callers that hold none of roles: 401 without an
// identity, 403 with the wrong one.
func (m *Manager) RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, ok := CurrentActor(r)
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if authz.RequireRole(a, roles...) != nil {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CurrentActor returns the caller stored by LoadActor.
func CurrentActor(r *http.Request) (authz.Actor, bool) {
	return authz.FromContext(r.Context())
}

// WithActor returns r carrying a. Handler tests use it to skip resolution.
func WithActor(r *http.Request, a authz.Actor) *http.Request {
	return r.WithContext(authz.WithActor(r.Context(), a))
}

// helpers

func actorOf(id, role string) (authz.Actor, error) {
	a := authz.Actor{ID: strings.TrimSpace(id), Role: models.Role(strings.ToLower(strings.TrimSpace(role)))}
	if !a.Valid() {
		return authz.Actor{}, ErrNoIdentity
	}
	return a, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
