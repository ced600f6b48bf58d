// internal/app/features/mentors/routes.go
package mentors

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter mounted under /mentors.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/available", h.available)
	r.Get("/{id}/capacity", h.capacity)
	r.Put("/{id}/capacity", h.setCapacity)
	return r
}
