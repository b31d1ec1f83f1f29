package chat

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ConversationRoutes returns the /conversations router
func (h *Handler) ConversationRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Get("/", h.ListConversations)
	r.Post("/", h.StartConversation)

	return r
}

// MessageRoutes returns the /messages router
func (h *Handler) MessageRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.SendMessage)
	r.Post("/read", h.MarkAsRead)
	r.Post("/attachments", h.UploadAttachment)
	r.Get("/{id}", h.GetMessages)

	return r
}

// WSRoute returns the socket handler. Authentication happens inside the
// handshake, so no auth middleware wraps it.
func (h *Handler) WSRoute() http.HandlerFunc {
	return h.WebSocket
}
