package verification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type stubProvider struct {
	id      string
	valid   string
	sendErr error
}

func (s *stubProvider) SendVerificationCode(ctx context.Context, phone string) (string, error) {
	if s.sendErr != nil {
		return "", s.sendErr
	}
	return s.id, nil
}

func (s *stubProvider) CheckVerificationCode(ctx context.Context, verificationID, code string) (bool, error) {
	if verificationID != s.id {
		return false, ErrVerificationNotFound
	}
	return code == s.valid, nil
}

func TestHandlerSend(t *testing.T) {
	tests := []struct {
		name     string
		provider *stubProvider
		body     string
		want     int
	}{
		{"ok", &stubProvider{id: "v1"}, `{"phone":"+77011234567"}`, http.StatusOK},
		{"bad phone", &stubProvider{id: "v1"}, `{"phone":"call me"}`, http.StatusUnprocessableEntity},
		{"missing phone", &stubProvider{id: "v1"}, `{}`, http.StatusUnprocessableEntity},
		{"bad json", &stubProvider{id: "v1"}, `{`, http.StatusBadRequest},
		{"vendor down", &stubProvider{sendErr: ErrProviderUnavailable}, `{"phone":"+77011234567"}`, http.StatusServiceUnavailable},
		{"cooldown", &stubProvider{sendErr: ErrCodeAlreadySent}, `{"phone":"+77011234567"}`, http.StatusTooManyRequests},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			NewHandler(tt.provider).Send(w, httptest.NewRequest(http.MethodPost, "/verification/send", strings.NewReader(tt.body)))
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d: %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
}

func TestHandlerCheck(t *testing.T) {
	h := NewHandler(&stubProvider{id: "v1", valid: "123456"})

	check := func(body string) (int, CheckResponse) {
		w := httptest.NewRecorder()
		h.Check(w, httptest.NewRequest(http.MethodPost, "/verification/check", strings.NewReader(body)))
		var resp struct {
			Data CheckResponse `json:"data"`
		}
		_ = json.NewDecoder(w.Body).Decode(&resp)
		return w.Code, resp.Data
	}

	if code, resp := check(`{"verificationId":"v1","code":"123456"}`); code != http.StatusOK || !resp.Verified {
		t.Fatalf("expected verified, got %d %+v", code, resp)
	}
	if code, resp := check(`{"verificationId":"v1","code":"654321"}`); code != http.StatusOK || resp.Verified {
		t.Fatalf("expected unverified, got %d %+v", code, resp)
	}
	if code, _ := check(`{"verificationId":"nope","code":"123456"}`); code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", code)
	}
	if code, _ := check(`{"verificationId":"v1","code":"12ab"}`); code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", code)
	}
}
