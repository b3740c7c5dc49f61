package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

type routeHandler struct {
	path string
}

func (h *routeHandler) Register(e *echo.Echo) {
	e.GET(h.path, func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
}

func TestNewServerRegistersHandlers(t *testing.T) {
	t.Parallel()

	srv := NewServer(":0", nil, []Handler{
		&routeHandler{path: "/a"},
		nil,
		&routeHandler{path: "/b"},
	})

	for _, path := range []string{"/a", "/b"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Echo().ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("route %s: expected 200, got %d", path, rec.Code)
		}
	}
}

func TestNewServerCORSPreflight(t *testing.T) {
	t.Parallel()

	srv := NewServer(":0", nil, []Handler{&routeHandler{path: "/a"}})

	req := httptest.NewRequest(http.MethodOptions, "/a", nil)
	req.Header.Set(echo.HeaderOrigin, "https://admin.example.com")
	req.Header.Set(echo.HeaderAccessControlRequestMethod, http.MethodGet)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204 preflight, got %d", rec.Code)
	}
	if got := rec.Header().Get(echo.HeaderAccessControlAllowOrigin); got != "*" {
		t.Fatalf("expected wildcard origin, got %q", got)
	}
}

func TestNewServerRecoversPanics(t *testing.T) {
	t.Parallel()

	srv := NewServer(":0", nil, []Handler{})
	srv.Echo().GET("/panic", func(c echo.Context) error {
		panic("boom")
	})

	req := httptest.NewRequest(http.MethodGet, "/panic", nil)
	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 from recover middleware, got %d", rec.Code)
	}
}
