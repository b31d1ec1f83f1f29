package booking

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

// Handler handles booking HTTP requests
type Handler struct {
	service *Service
}

// NewHandler creates booking handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// ConvertQuote handles POST /quotes/{id}/convert-to-booking
func (h *Handler) ConvertQuote(w http.ResponseWriter, r *http.Request) {
	quoteID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid quote ID")
		return
	}

	var req ConvertQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	b, err := h.service.ConvertQuote(r.Context(), quoteID, middleware.GetUserID(r.Context()), &req)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.Created(w, BookingResponseFromEntity(b))
}

// Create handles POST /bookings
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	b, err := h.service.Create(r.Context(), middleware.GetUserID(r.Context()), &req)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.Created(w, BookingResponseFromEntity(b))
}

// List handles GET /bookings
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := response.Pagination(r, 20, 100)
	filter := ListFilter{
		Status: r.URL.Query().Get("status"),
		Page:   page,
		Limit:  limit,
	}

	ctx := r.Context()
	bookings, total, err := h.service.List(ctx, middleware.GetUserID(ctx), middleware.GetRole(ctx), filter)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	items := make([]*BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = BookingResponseFromEntity(b)
	}

	response.WithMeta(w, items, response.NewMeta(total, page, limit))
}

// Get handles GET /bookings/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseBookingID(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	b, err := h.service.GetByID(ctx, id, middleware.GetUserID(ctx), middleware.IsAdmin(ctx))
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.OK(w, BookingResponseFromEntity(b))
}

// UpdateStatus handles PUT /bookings/{id}/status
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseBookingID(w, r)
	if !ok {
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	ctx := r.Context()
	b, err := h.service.UpdateStatus(ctx, id, middleware.GetUserID(ctx), middleware.IsAdmin(ctx), req.Status)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.OK(w, BookingResponseFromEntity(b))
}

// Respond handles PUT /bookings/{id}/respond
func (h *Handler) Respond(w http.ResponseWriter, r *http.Request) {
	id, ok := parseBookingID(w, r)
	if !ok {
		return
	}

	var req RespondRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	b, err := h.service.Respond(r.Context(), id, middleware.GetUserID(r.Context()), req.Response)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.OK(w, BookingResponseFromEntity(b))
}

// AssignPhotographer handles PUT /bookings/{id}/photographer
func (h *Handler) AssignPhotographer(w http.ResponseWriter, r *http.Request) {
	id, ok := parseBookingID(w, r)
	if !ok {
		return
	}

	var req AssignPhotographerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	b, err := h.service.AssignPhotographer(r.Context(), id, req.PhotographerID)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.OK(w, BookingResponseFromEntity(b))
}

// Delete handles DELETE /bookings/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseBookingID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		apperr.Write(w, err)
		return
	}

	response.Message(w, "Booking deleted")
}

func parseBookingID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "Invalid booking ID")
		return uuid.Nil, false
	}
	return id, true
}
