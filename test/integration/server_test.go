package integration

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/braxle/roomrelay/test/testhelpers"
)

// TestHealthEndpoint verifies the liveness endpoint of a fully wired server.
func TestHealthEndpoint(t *testing.T) {
	ts := testhelpers.StartTestServer(t)

	resp := testhelpers.MakeRequest(t, http.MethodGet, ts.URL+"/")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "running") {
		t.Errorf("Unexpected health body: %q", body)
	}
}

// TestMetricsEndpoint verifies the Prometheus endpoint exposes the relay's
// own metrics alongside the runtime defaults.
func TestMetricsEndpoint(t *testing.T) {
	ts := testhelpers.StartTestServer(t)

	resp := testhelpers.MakeRequest(t, http.MethodGet, ts.URL+"/metrics")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read body: %v", err)
	}
	if !strings.Contains(string(body), "roomrelay_connected_clients") {
		t.Error("Metrics output missing roomrelay_connected_clients")
	}
}

// TestTestPageEndpoint verifies the built-in test page is reachable.
func TestTestPageEndpoint(t *testing.T) {
	ts := testhelpers.StartTestServer(t)

	resp := testhelpers.MakeRequest(t, http.MethodGet, ts.URL+"/test")
	defer func() { _ = resp.Body.Close() }()

	testhelpers.AssertStatusCode(t, resp, http.StatusOK)
}
