package quote

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veroa/veroa-api/internal/middleware"
	"github.com/veroa/veroa-api/internal/pkg/apperr"
	"github.com/veroa/veroa-api/internal/pkg/response"
	"github.com/veroa/veroa-api/internal/pkg/validator"
)

// Handler handles quote HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates quote handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Create handles POST /quotes
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	q, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.Created(w, QuoteResponseFromEntity(q))
}

// List handles GET /quotes
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := response.Pagination(r, 20, 100)
	filter := ListFilter{
		Status: r.URL.Query().Get("status"),
		Page:   page,
		Limit:  limit,
	}

	ctx := r.Context()
	quotes, total, err := h.service.List(ctx, middleware.GetUserID(ctx), middleware.IsAdmin(ctx), filter)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	items := make([]*QuoteResponse, len(quotes))
	for i, q := range quotes {
		items[i] = QuoteResponseFromEntity(q)
	}

	response.WithMeta(w, items, response.NewMeta(total, page, limit))
}

// Get handles GET /quotes/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	q, err := h.service.GetByID(ctx, id, middleware.GetUserID(ctx), middleware.IsAdmin(ctx))
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.OK(w, QuoteResponseFromEntity(q))
}

// UpdateBudget handles PUT /quotes/{id}/budget
func (h *Handler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req UpdateBudgetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid budget")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	ctx := r.Context()
	q, err := h.service.UpdateBudget(ctx, id, middleware.GetUserID(ctx), middleware.IsAdmin(ctx), req.Budget.Float64())
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.OK(w, QuoteResponseFromEntity(q))
}

// ChangeStatus handles PUT /quotes/{id}/changeStatus
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if !ValidStatus(req.Status) {
		apperr.Write(w, ErrInvalidStatus)
		return
	}

	ctx := r.Context()
	q, err := h.service.ChangeStatus(ctx, id, middleware.GetUserID(ctx), middleware.IsAdmin(ctx), req.Status)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.OK(w, QuoteResponseFromEntity(q))
}

// MarkFinal handles PUT /quotes/{id}/final
func (h *Handler) MarkFinal(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	var req MarkFinalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}

	q, err := h.service.MarkFinal(r.Context(), id, req.IsFinal)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.OK(w, QuoteResponseFromEntity(q))
}

// Delete handles DELETE /quotes/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r, "id")
	if !ok {
		return
	}

	ctx := r.Context()
	if err := h.service.Delete(ctx, id, middleware.GetUserID(ctx), middleware.IsAdmin(ctx)); err != nil {
		apperr.Write(w, err)
		return
	}

	response.Message(w, "Quote deleted")
}

func parseID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		response.BadRequest(w, "Invalid quote ID")
		return uuid.Nil, false
	}
	return id, true
}
