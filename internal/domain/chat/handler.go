package chat

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/veroa/veroa-api/internal/middleware"
	"github.com/veroa/veroa-api/internal/pkg/apperr"
	"github.com/veroa/veroa-api/internal/pkg/jwt"
	"github.com/veroa/veroa-api/internal/pkg/response"
	"github.com/veroa/veroa-api/internal/pkg/storage"
	"github.com/veroa/veroa-api/internal/pkg/validator"
)

// Handler handles chat HTTP and socket requests
type Handler struct {
	service     *Service
	hub         *Hub
	jwt         *jwt.Service
	rateLimiter *RateLimiter
	upgrader    websocket.Upgrader
	joinTimeout time.Duration
}

// NewHandler creates chat handler
func NewHandler(service *Service, hub *Hub, jwtService *jwt.Service, redisClient *redis.Client, allowedOrigins []string, joinTimeout time.Duration) *Handler {
	if joinTimeout <= 0 {
		joinTimeout = 5 * time.Second
	}
	return &Handler{
		service:     service,
		hub:         hub,
		jwt:         jwtService,
		rateLimiter: NewRateLimiter(redisClient),
		joinTimeout: joinTimeout,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")

				// Non-browser clients and open configs
				if origin == "" || len(allowedOrigins) == 0 {
					return true
				}

				for _, allowed := range allowedOrigins {
					if allowed == "*" || origin == allowed {
						return true
					}
				}

				log.Warn().Str("origin", origin).Msg("WebSocket origin rejected")
				return false
			},
		},
	}
}

func actorFrom(r *http.Request) Actor {
	return Actor{
		UserID:  middleware.GetUserID(r.Context()),
		IsAdmin: middleware.IsAdmin(r.Context()),
	}
}

// ListConversations handles GET /conversations
func (h *Handler) ListConversations(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListConversations(r.Context(), actorFrom(r))
	if err != nil {
		apperr.Write(w, err)
		return
	}

	resp := make([]*ConversationResponse, len(items))
	for i, c := range items {
		resp[i] = ConversationResponseFromEntity(&c.Conversation, c.UnreadCount)
	}
	response.OK(w, resp)
}

// StartConversation handles POST /conversations
func (h *Handler) StartConversation(w http.ResponseWriter, r *http.Request) {
	var req AnchorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	anchor, err := req.Anchor()
	if err != nil {
		apperr.Write(w, err)
		return
	}

	conv, err := h.service.GetOrCreateConversation(r.Context(), anchor, actorFrom(r))
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.Created(w, ConversationResponseFromEntity(conv, 0))
}

// QuotesWithUnread handles GET /quotes-with-unread-count
func (h *Handler) QuotesWithUnread(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListQuotesWithUnread(r.Context(), actorFrom(r))
	if err != nil {
		apperr.Write(w, err)
		return
	}

	resp := make([]*QuoteInboxResponse, len(items))
	for i, item := range items {
		resp[i] = QuoteInboxResponseFromEntity(item)
	}
	response.OK(w, resp)
}

// GetMessages handles GET /messages/{id}. The id is a booking unless
// ?anchor=quote is given.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid ID")
		return
	}

	anchor := BookingAnchor(id)
	if r.URL.Query().Get("anchor") == string(AnchorQuote) {
		anchor = QuoteAnchor(id)
	}

	page, limit := response.Pagination(r, defaultMessageLimit, maxMessageLimit)
	msgs, total, err := h.service.GetMessages(r.Context(), anchor, actorFrom(r), page, limit)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	items := make([]*MessageResponse, len(msgs))
	for i, m := range msgs {
		items[i] = MessageResponseFromEntity(m)
	}
	response.WithMeta(w, items, response.NewMeta(total, page, limit))
}

// SendMessage handles POST /messages
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)

	if !h.rateLimiter.Allow(r.Context(), actor.UserID) {
		response.TooManyRequests(w)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}
	anchor, err := req.Anchor()
	if err != nil {
		apperr.Write(w, err)
		return
	}

	msg, err := h.service.SendMessage(r.Context(), anchor, actor, &req, false)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.Created(w, MessageResponseFromEntity(msg))
}

// MarkAsRead handles POST /messages/read
func (h *Handler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	var req AnchorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	anchor, err := req.Anchor()
	if err != nil {
		apperr.Write(w, err)
		return
	}

	n, err := h.service.MarkAsRead(r.Context(), anchor, actorFrom(r))
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.OK(w, map[string]int64{"updated": n})
}

// UploadAttachment handles POST /messages/attachments (multipart, field "file")
func (h *Handler) UploadAttachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxAttachmentSize+1<<20)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		response.BadRequest(w, "Invalid multipart form or file too large")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "File is required")
		return
	}
	defer file.Close()

	resp, err := h.service.UploadAttachment(r.Context(), actorFrom(r), file)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.Created(w, resp)
}
