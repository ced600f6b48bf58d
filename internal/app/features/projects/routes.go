// internal/app/features/projects/routes.go
package projects

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter mounted under /projects.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)

		r.Post("/abstract", h.submitAbstract)
		r.Post("/synopsis", h.submitSynopsis)
		r.Post("/presentations/{n}", h.submitPresentation)
		r.Post("/final-report", h.submitFinalReport)

		r.Route("/phases/{phase}", func(r chi.Router) {
			r.Get("/submission", h.submission)
			r.Post("/submit", h.submitPhase)
			r.Post("/review", h.review)
			r.Post("/reopen", h.reopen)
		})
	})
	return r
}
