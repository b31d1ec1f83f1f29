package verification

import "github.com/go-chi/chi/v5"

// Routes returns verification router. Both endpoints are public since they
// run before the user has a session.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/send", h.Send)
	r.Post("/check", h.Check)
	return r
}
