// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	"github.com/adityav2131/major-project-sub000/internal/app/actors"
	actorsfeature "github.com/adityav2131/major-project-sub000/internal/app/features/actors"
	healthfeature "github.com/adityav2131/major-project-sub000/internal/app/features/health"
	mentorsfeature "github.com/adityav2131/major-project-sub000/internal/app/features/mentors"
	panelsfeature "github.com/adityav2131/major-project-sub000/internal/app/features/panels"
	projectsfeature "github.com/adityav2131/major-project-sub000/internal/app/features/projects"
	teamsfeature "github.com/adityav2131/major-project-sub000/internal/app/features/teams"
	"github.com/adityav2131/major-project-sub000/internal/app/mentors"
	"github.com/adityav2131/major-project-sub000/internal/app/notify"
	"github.com/adityav2131/major-project-sub000/internal/app/panels"
	"github.com/adityav2131/major-project-sub000/internal/app/phasegate"
	"github.com/adityav2131/major-project-sub000/internal/app/submissions"
	"github.com/adityav2131/major-project-sub000/internal/app/system/auth"
	"github.com/adityav2131/major-project-sub000/internal/app/system/ratelimit"
	"github.com/adityav2131/major-project-sub000/internal/app/teams"
	"github.com/adityav2131/major-project-sub000/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// engine is the set of components behind the HTTP surface.
type engine struct {
	actors  *actors.Directory
	mentors *mentors.Allocator
	teams   *teams.Registry
	gate    *phasegate.Gate
	panels  *panels.Builder
	gateway *submissions.Gateway
}

func newEngine(appCfg AppConfig, deps DBDeps, logger *zap.Logger) engine {
	var em notify.Emitter = notify.Discard
	if deps.Notify != nil {
		em = deps.Notify
	}
	st := deps.Store

	alloc := mentors.New(st, em, logger.Named("mentors"),
		mentors.WithDefaultCapacity(appCfg.Policy.DefaultMaxTeamsPerMentor))
	gate := phasegate.New(st, em, logger.Named("phasegate"), phasegate.WithPolicy(appCfg.Policy))
	return engine{
		actors:  actors.New(st, logger.Named("actors")),
		mentors: alloc,
		teams: teams.New(st, alloc, em, logger.Named("teams"),
			teams.WithDefaultMaxMembers(appCfg.Policy.DefaultMaxMembers)),
		gate:    gate,
		panels:  panels.New(st, em, logger.Named("panels")),
		gateway: submissions.New(st, gate, logger.Named("submissions")),
	}
}

// BuildHandler constructs the root router.
//
// /health and /metrics are open. Everything else resolves the caller
// (bearer token or session cookie), pins its role in the actor directory
// and counts mutating requests against the per-actor rate limit.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	authMgr, err := auth.NewManager(auth.Config{
		Mode:          appCfg.IdentityMode,
		JWTSecret:     appCfg.JWTSecret,
		TokenTTL:      appCfg.TokenTTL,
		SessionKey:    appCfg.SessionKey,
		SessionName:   appCfg.SessionName,
		SessionDomain: appCfg.SessionDomain,
		Secure:        coreCfg.Env == "prod",
	}, logger)
	if err != nil {
		logger.Error("identity resolver init failed", zap.Error(err))
		return nil, err
	}

	eng := newEngine(appCfg, deps, logger)
	m := deps.Metrics

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(m.Middleware)

	healthHandler := healthfeature.NewHandler(deps.Store, deps.Backend, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Group(func(r chi.Router) {
		r.Use(authMgr.LoadActor)
		r.Use(authMgr.RequireActor)
		r.Use(eng.actors.Pin)
		if appCfg.RateLimitPerMinute > 0 {
			r.Use(ratelimit.New(appCfg.RateLimitPerMinute, time.Minute).Middleware)
		}

		r.Mount("/actors", actorsfeature.Routes(actorsfeature.NewHandler(eng.actors, logger)))
		r.Mount("/teams", teamsfeature.Routes(teamsfeature.NewHandler(eng.teams, eng.mentors, m, logger)))
		r.Mount("/mentors", mentorsfeature.Routes(mentorsfeature.NewHandler(eng.mentors, m, logger)))
		r.Mount("/projects", projectsfeature.Routes(projectsfeature.NewHandler(eng.gate, eng.gateway, m, logger)))

		// Panels are staff-only, reads included.
		r.Group(func(r chi.Router) {
			r.Use(authMgr.RequireRole(models.RoleAdmin, models.RoleFaculty, models.RoleExternalEvaluator))
			r.Mount("/panels", panelsfeature.Routes(panelsfeature.NewHandler(eng.panels, m, logger)))
		})
	})

	return r, nil
}
