package unit

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/braxle/roomrelay/internal/server"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	logger := testLogger()
	hub := server.NewHub(logger)
	coord := server.NewCoordinator(logger, hub)
	t.Cleanup(func() { server.SetConfig(nil) })
	server.SetConfig(nil)
	return server.SetupRoutes(hub, coord)
}

// TestHealthHandler verifies the health check endpoint returns the expected
// plain text status message.
func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	server.HealthHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/plain" {
		t.Errorf("Expected content type text/plain, got %s", ct)
	}
	if body := rec.Body.String(); !strings.Contains(body, "running") {
		t.Errorf("Unexpected health body: %q", body)
	}
}

// TestWebSocketHandlerRejectsNonGet verifies that the WebSocket endpoint only
// accepts GET requests.
func TestWebSocketHandlerRejectsNonGet(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ws?token=11713", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

// TestWebSocketHandlerRefusesMissingToken verifies that the handshake is
// refused with 401 before any upgrade when no credentials are presented.
func TestWebSocketHandlerRefusesMissingToken(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

// TestWebSocketHandlerRefusesBadToken verifies that auth material lacking the
// shared-secret substring is refused.
func TestWebSocketHandlerRefusesBadToken(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws?token=wrong", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

// TestTestPageHandler verifies the built-in test page is served as HTML.
func TestTestPageHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/test", nil)

	server.TestPageHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/html" {
		t.Errorf("Expected content type text/html, got %s", ct)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "roomrelay") {
		t.Error("Test page body missing expected content")
	}
}

// TestMetricsRoute verifies the Prometheus metrics endpoint responds.
func TestMetricsRoute(t *testing.T) {
	mux := newTestMux(t)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status %d, got %d", http.StatusOK, rec.Code)
	}
}
