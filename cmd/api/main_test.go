package main

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/veroa/veroa-api/internal/config"
	"github.com/veroa/veroa-api/internal/domain/booking"
	"github.com/veroa/veroa-api/internal/domain/chat"
	"github.com/veroa/veroa-api/internal/domain/quote"
	"github.com/veroa/veroa-api/internal/domain/verification"
	"github.com/veroa/veroa-api/internal/middleware"
	"github.com/veroa/veroa-api/internal/pkg/jwt"
)

func testRouter(t *testing.T, withVerification bool) http.Handler {
	t.Helper()
	jwtService := jwt.NewService("test-secret", time.Hour)
	h := handlers{
		quote:   quote.NewHandler(nil),
		booking: booking.NewHandler(nil),
		chat:    chat.NewHandler(nil, nil, jwtService, nil, nil, time.Second),
	}
	if withVerification {
		h.verification = verification.NewHandler(nil)
	}
	cfg := &config.Config{StorageDriver: "local", StorageLocalPath: t.TempDir()}
	return newRouter(cfg, h, middleware.Auth(jwtService))
}

func TestRouterPublicEndpoints(t *testing.T) {
	r := testRouter(t, true)

	for _, path := range []string{"/health", "/api/v1/ping"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
	}
}

func TestRouterProtectedEndpointsNeedToken(t *testing.T) {
	r := testRouter(t, true)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/quotes"},
		{http.MethodPost, "/api/v1/quotes/" + "6c237b44-0a4f-4a03-8ba9-9724b3a3c5d8" + "/convert-to-booking"},
		{http.MethodGet, "/api/v1/bookings"},
		{http.MethodGet, "/api/v1/conversations"},
		{http.MethodPost, "/api/v1/messages"},
		{http.MethodGet, "/api/v1/quotes-with-unread-count"},
		{http.MethodGet, "/debug/vars"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}
}

func TestRouterDebugVarsAdminOnly(t *testing.T) {
	jwtService := jwt.NewService("test-secret", time.Hour)
	r := testRouter(t, false)

	tests := []struct {
		role string
		want int
	}{
		{middleware.RoleClient, http.StatusForbidden},
		{middleware.RoleAdmin, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			token, err := jwtService.GenerateAccessToken(uuid.New(), tt.role)
			if err != nil {
				t.Fatalf("token: %v", err)
			}
			req := httptest.NewRequest(http.MethodGet, "/debug/vars", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, w.Code)
			}
		})
	}
}

func TestRouterUploadsHidesDirectories(t *testing.T) {
	jwtService := jwt.NewService("test-secret", time.Hour)
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "chat", "user-a"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(root, "chat", "user-a", "contract.pdf"), []byte("%PDF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	h := handlers{
		quote:   quote.NewHandler(nil),
		booking: booking.NewHandler(nil),
		chat:    chat.NewHandler(nil, nil, jwtService, nil, nil, time.Second),
	}
	r := newRouter(&config.Config{StorageDriver: "local", StorageLocalPath: root}, h, middleware.Auth(jwtService))

	for _, path := range []string{"/uploads/chat/", "/uploads/chat/user-a/"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, w.Code)
		}
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/uploads/chat/user-a/contract.pdf", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for a stored file, got %d", w.Code)
	}
}

func TestRouterVerificationMount(t *testing.T) {
	w := httptest.NewRecorder()
	testRouter(t, true).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/verification/send", strings.NewReader("{")))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 from the verification handler, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	testRouter(t, false).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/verification/send", strings.NewReader("{")))
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 with verification disabled, got %d", w.Code)
	}
}
