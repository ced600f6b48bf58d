package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/store"
	"github.com/adityav2131/major-project-sub000/internal/app/system/auth"
	"github.com/adityav2131/major-project-sub000/internal/app/system/authz"
	"github.com/adityav2131/major-project-sub000/internal/app/system/policyfile"
	"github.com/adityav2131/major-project-sub000/internal/app/system/timeouts"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

const testSecret = "test-secret-0123456789abcdefghijklmnop"

func memoryConfig() AppConfig {
	return AppConfig{
		StoreBackend:       BackendMemory,
		IdentityMode:       auth.ModeJWT,
		JWTSecret:          testSecret,
		NotifySinks:        []string{SinkLog},
		Policy:             policyfile.Default(),
		RateLimitPerMinute: 0,
	}
}

func TestValidateConfig(t *testing.T) {
	core := &config.CoreConfig{}
	tests := []struct {
		name    string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"memory ok", func(*AppConfig) {}, ""},
		{"mongo ok", func(c *AppConfig) { c.StoreBackend = BackendMongo; c.MongoURI = "mongodb://localhost:27017" }, ""},
		{"unknown backend", func(c *AppConfig) { c.StoreBackend = "sqlite" }, "store_backend"},
		{"unknown identity", func(c *AppConfig) { c.IdentityMode = "basic" }, "identity_mode"},
		{"jwt without secret", func(c *AppConfig) { c.JWTSecret = "" }, "jwt_secret"},
		{"session without key", func(c *AppConfig) { c.IdentityMode = auth.ModeSession }, "session_key"},
		{"unknown sink", func(c *AppConfig) { c.NotifySinks = []string{"sms"} }, "unknown notify sink"},
		{"outbox on memory", func(c *AppConfig) { c.NotifySinks = []string{SinkOutbox} }, "outbox"},
		{"redis without addr", func(c *AppConfig) { c.NotifySinks = []string{SinkRedis} }, "redis_addr"},
		{"negative rate", func(c *AppConfig) { c.RateLimitPerMinute = -1 }, "rate_limit"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(core, cfg, zap.NewNop())
			switch {
			case tt.wantErr == "" && err != nil:
				t.Errorf("unexpected error: %v", err)
			case tt.wantErr != "" && (err == nil || !strings.Contains(err.Error(), tt.wantErr)):
				t.Errorf("error: got %v, want one mentioning %q", err, tt.wantErr)
			}
		})
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" Log, ,REDIS ,outbox")
	want := []string{"log", "redis", "outbox"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("splitList: got %v, want %v", got, want)
	}
}

func TestStartup_RegistersAdminAndTimeouts(t *testing.T) {
	t.Cleanup(timeouts.Reset)
	ctx := context.Background()
	core, logs := observer.New(zap.InfoLevel)
	logger := zap.New(core)

	cfg := memoryConfig()
	cfg.AdminActorID = "root"
	cfg.TimeoutShort = 7 * time.Second
	deps, err := ConnectDB(ctx, &config.CoreConfig{}, cfg, logger)
	if err != nil {
		t.Fatalf("ConnectDB failed: %v", err)
	}

	if err := Startup(ctx, &config.CoreConfig{}, cfg, deps, logger); err != nil {
		t.Fatalf("Startup failed: %v", err)
	}
	a, err := deps.Store.Actor(ctx, "root")
	if err != nil || a.Role != models.RoleAdmin {
		t.Fatalf("admin not registered: %+v, %v", a, err)
	}
	if timeouts.Short().Seconds() != 7 {
		t.Errorf("short timeout: got %v", timeouts.Short())
	}

	// A second start finds the record.
	if err := Startup(ctx, &config.CoreConfig{}, cfg, deps, logger); err != nil {
		t.Fatalf("second Startup failed: %v", err)
	}
	if logs.FilterMessage("admin already registered").Len() != 1 {
		t.Errorf("expected the second start to find the admin, logs: %v", logs.All())
	}
}

func TestEnsureAdmin_LeavesOtherRoleAlone(t *testing.T) {
	ctx := context.Background()
	deps, err := ConnectDB(ctx, &config.CoreConfig{}, memoryConfig(), zap.NewNop())
	if err != nil {
		t.Fatalf("ConnectDB failed: %v", err)
	}
	err = deps.Store.Atomically(ctx, func(ctx context.Context, tx store.Tx) error {
		return tx.InsertActor(ctx, models.Actor{ID: "s1", Role: models.RoleStudent, CreatedAt: time.Now().UTC()})
	})
	if err != nil {
		t.Fatalf("seed actor failed: %v", err)
	}

	core, logs := observer.New(zap.WarnLevel)
	if err := ensureAdmin(ctx, deps.Store, "s1", zap.New(core)); err != nil {
		t.Fatalf("ensureAdmin failed: %v", err)
	}
	a, err := deps.Store.Actor(ctx, "s1")
	if err != nil {
		t.Fatalf("Actor failed: %v", err)
	}
	if a.Role != models.RoleStudent {
		t.Errorf("role: got %q, want student", a.Role)
	}
	if logs.Len() != 1 {
		t.Errorf("expected one warning, got %d", logs.Len())
	}
}

type server struct {
	t       *testing.T
	handler http.Handler
	tokens  *auth.Manager
}

func newServer(t *testing.T, cfg AppConfig) *server {
	t.Helper()
	ctx := context.Background()
	deps, err := ConnectDB(ctx, &config.CoreConfig{}, cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("ConnectDB failed: %v", err)
	}
	t.Cleanup(func() { _ = Shutdown(context.Background(), &config.CoreConfig{}, cfg, deps, zap.NewNop()) })

	h, err := BuildHandler(&config.CoreConfig{}, cfg, deps, zap.NewNop())
	if err != nil {
		t.Fatalf("BuildHandler failed: %v", err)
	}
	tokens, err := auth.NewManager(auth.Config{Mode: auth.ModeJWT, JWTSecret: cfg.JWTSecret}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return &server{t: t, handler: h, tokens: tokens}
}

func (s *server) do(a *authz.Actor, method, target, body string) *httptest.ResponseRecorder {
	s.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if a != nil {
		tok, err := s.tokens.IssueToken(*a)
		if err != nil {
			s.t.Fatalf("IssueToken failed: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func TestBuildHandler_Routes(t *testing.T) {
	s := newServer(t, memoryConfig())
	student := authz.Actor{ID: "s1", Role: models.RoleStudent}
	faculty := authz.Actor{ID: "f1", Role: models.RoleFaculty}

	if rec := s.do(nil, http.MethodGet, "/health", ""); rec.Code != http.StatusOK {
		t.Errorf("/health: got %d", rec.Code)
	}
	if rec := s.do(nil, http.MethodGet, "/teams", ""); rec.Code != http.StatusUnauthorized {
		t.Errorf("/teams without identity: got %d", rec.Code)
	}

	rec := s.do(&student, http.MethodPost, "/teams", `{"name":"Rovers"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create team: got %d (%s)", rec.Code, rec.Body.String())
	}

	// The first request pinned s1 as a student.
	impostor := authz.Actor{ID: "s1", Role: models.RoleAdmin}
	if rec := s.do(&impostor, http.MethodGet, "/actors/me", ""); rec.Code != http.StatusForbidden {
		t.Errorf("role change: got %d", rec.Code)
	}

	if rec := s.do(&student, http.MethodGet, "/panels", ""); rec.Code != http.StatusForbidden {
		t.Errorf("student listing panels: got %d", rec.Code)
	}
	if rec := s.do(&faculty, http.MethodGet, "/panels", ""); rec.Code != http.StatusOK {
		t.Errorf("faculty listing panels: got %d", rec.Code)
	}

	rec = s.do(nil, http.MethodGet, "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("/metrics: got %d", rec.Code)
	}
	for _, want := range []string{
		`capstone_engine_operations_total{op="teams.create",outcome="ok"} 1`,
		`capstone_http_requests_total`,
	} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}

func TestBuildHandler_RateLimit(t *testing.T) {
	cfg := memoryConfig()
	cfg.RateLimitPerMinute = 2
	s := newServer(t, cfg)
	student := authz.Actor{ID: "s1", Role: models.RoleStudent}

	for i := 0; i < 2; i++ {
		s.do(&student, http.MethodPost, "/teams/none/join", "")
	}
	rec := s.do(&student, http.MethodPost, "/teams/none/join", "")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("third write: got %d, want 429", rec.Code)
	}
	if rec := s.do(&student, http.MethodGet, "/teams", ""); rec.Code != http.StatusOK {
		t.Errorf("reads are not limited: got %d", rec.Code)
	}
}

type fakeTopology struct {
	txns bool
	err  error
}

func (f fakeTopology) SupportsTransactions(context.Context) (bool, error) { return f.txns, f.err }

func TestRequireTransactions(t *testing.T) {
	tests := []struct {
		name    string
		topo    fakeTopology
		allow   bool
		wantErr bool
	}{
		{"replica set", fakeTopology{txns: true}, false, false},
		{"standalone refused", fakeTopology{}, false, true},
		{"standalone allowed", fakeTopology{}, true, false},
		{"topology check fails", fakeTopology{err: errors.New("connection reset")}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := requireTransactions(context.Background(), tt.topo, tt.allow, zap.NewNop())
			if (err != nil) != tt.wantErr {
				t.Errorf("requireTransactions: got %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
