package booking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/veroa/veroa-api/internal/middleware"
)

func convertCall(h *Handler, quoteID, clientID uuid.UUID, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/quotes/"+quoteID.String()+"/convert-to-booking", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", quoteID.String())
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	req = req.WithContext(middleware.WithUser(ctx, clientID, middleware.RoleClient))

	w := httptest.NewRecorder()
	h.ConvertQuote(w, req)
	return w
}

func TestHandlerConvertQuote(t *testing.T) {
	repo := newMemRepo()
	h := NewHandler(newTestService(repo))
	clientID := uuid.New()
	q := repo.addQuote(clientID)

	body := `{"clientId":"` + clientID.String() + `","flatOrHouseNo":"4","streetName":"Satpaev","city":"Almaty","state":"","postalCode":"050000","totalAmount":"45000"}`

	w := convertCall(h, q.ID, uuid.New(), body)
	if w.Code != http.StatusNotFound {
		t.Fatalf("foreign client: expected 404, got %d", w.Code)
	}

	w = convertCall(h, q.ID, clientID, body)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Data BookingResponse `json:"data"`
	}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.VeroaBookingID != "VEROA-BK-000001" || resp.Data.BookingSource != "quote" {
		t.Fatalf("unexpected booking %+v", resp.Data)
	}

	w = convertCall(h, q.ID, clientID, body)
	if w.Code != http.StatusConflict {
		t.Fatalf("second convert: expected 409, got %d", w.Code)
	}
}

func TestHandlerConvertQuoteValidation(t *testing.T) {
	repo := newMemRepo()
	h := NewHandler(newTestService(repo))
	clientID := uuid.New()
	q := repo.addQuote(clientID)

	w := convertCall(h, q.ID, clientID, `{"city":"Almaty","totalAmount":0}`)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", w.Code)
	}
}
