// internal/app/features/panels/routes.go
package panels

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter mounted under /panels.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/for-project/{projectID}", h.forProject)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/status", h.setStatus)
		r.Post("/projects", h.assign)
		r.Delete("/projects/{projectID}", h.unassign)
	})
	return r
}
