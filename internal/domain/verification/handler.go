package verification

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/veroa/veroa-api/internal/pkg/apperr"
	"github.com/veroa/veroa-api/internal/pkg/response"
	"github.com/veroa/veroa-api/internal/pkg/validator"
)

// Handler exposes the verification provider over HTTP
type Handler struct {
	provider Provider
}

// NewHandler creates verification handler
func NewHandler(provider Provider) *Handler {
	return &Handler{provider: provider}
}

// Send handles POST /verification/send
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	id, err := h.provider.SendVerificationCode(r.Context(), req.Phone)
	if err != nil {
		log.Warn().Err(err).Msg("Verification send failed")
		apperr.Write(w, err)
		return
	}

	response.OK(w, SendResponse{VerificationID: id})
}

// Check handles POST /verification/check
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	var req CheckRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "Invalid JSON body")
		return
	}
	if errors := validator.Validate(&req); errors != nil {
		response.ValidationError(w, errors)
		return
	}

	ok, err := h.provider.CheckVerificationCode(r.Context(), req.VerificationID, req.Code)
	if err != nil {
		apperr.Write(w, err)
		return
	}

	response.OK(w, CheckResponse{Verified: ok})
}
