// Package server wires HTTP handlers into a ServeMux for the roomrelay
// application via routing helpers.
package server

import "net/http"

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: health check, WebSocket endpoint, Prometheus metrics, and the
// built-in test page.
func SetupRoutes(hub *Hub, coord *Coordinator) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.Handle("/ws", NewWebSocketHandler(hub, coord))
	mux.Handle("/metrics", MetricsHandler())
	mux.HandleFunc("/test", TestPageHandler)
	return mux
}
