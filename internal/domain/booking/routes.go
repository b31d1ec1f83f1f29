package booking

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/veroa/veroa-api/internal/middleware"
)

// Routes returns booking router
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.With(middleware.RequireRole(middleware.RoleClient)).Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Put("/{id}/status", h.UpdateStatus)
	r.With(middleware.RequireRole(middleware.RolePhotographer)).Put("/{id}/respond", h.Respond)

	// Admin
	r.With(middleware.RequireAdmin()).Put("/{id}/photographer", h.AssignPhotographer)
	r.With(middleware.RequireAdmin()).Delete("/{id}", h.Delete)

	return r
}
