package quote

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veroa/veroa-api/internal/middleware"
)

// Routes returns quote router. convert serves
// POST /quotes/{id}/convert-to-booking and is owned by the booking package.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler, convert http.HandlerFunc) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.With(middleware.RequireRole(middleware.RoleClient)).Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/budget", h.UpdateBudget)
	r.Put("/{id}/changeStatus", h.ChangeStatus)
	r.With(middleware.RequireAdmin()).Put("/{id}/final", h.MarkFinal)
	r.Delete("/{id}", h.Delete)

	if convert != nil {
		r.With(middleware.RequireRole(middleware.RoleClient)).Post("/{id}/convert-to-booking", convert)
	}

	return r
}
