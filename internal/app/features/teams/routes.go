// internal/app/features/teams/routes.go
package teams

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter mounted under /teams.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/mine", h.mine)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Post("/join", h.join)
		r.Post("/leave", h.leave)
		r.Post("/leader", h.transferLeadership)
		r.Put("/max-members", h.setMaxMembers)
		r.Post("/mentor", h.selectMentor)
		r.Delete("/mentor", h.releaseMentor)
	})
	return r
}
