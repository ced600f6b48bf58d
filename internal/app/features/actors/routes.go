// internal/app/features/actors/routes.go
package actors

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter mounted under /actors.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Get("/me", h.me)
	r.Put("/{id}", h.register)
	return r
}
