package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"MapLayerStore/internal/config"
	"MapLayerStore/internal/handler"

	"github.com/google/uuid"
)

func TestWithLogging_RequestID(t *testing.T) {
	h := withLogging(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	w := httptest.NewRecorder()
	h(w, httptest.NewRequest(http.MethodPost, "/api/document", nil))
	if w.Code != http.StatusTeapot {
		t.Fatalf("status not passed through: %d", w.Code)
	}
	if _, err := uuid.Parse(w.Header().Get(requestIDHeader)); err != nil {
		t.Fatalf("expected generated uuid request id, got %q", w.Header().Get(requestIDHeader))
	}

	req := httptest.NewRequest(http.MethodPost, "/api/document", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	w = httptest.NewRecorder()
	h(w, req)
	if got := w.Header().Get(requestIDHeader); got != "abc-123" {
		t.Fatalf("caller request id not kept: %q", got)
	}
}

func TestInitRoutes_RegistersEndpoints(t *testing.T) {
	mux := http.NewServeMux()
	cfg := &config.Config{CORS: config.CORSConfig{AllowOrigin: "*"}}
	InitRoutes(mux, cfg, handler.New(nil, nil, ""))

	for _, path := range []string{
		"/api/layers/create", "/api/layers/promote", "/api/document", "/api/grid/replace",
		"/api/portals/create", "/api/portals/delete", "/api/styles/add", "/api/styles/remove",
		"/api/switch/set", "/api/defaults/set",
	} {
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s: status = %d, want 405", path, w.Code)
		}
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/index", nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d", w.Code)
	}
}
