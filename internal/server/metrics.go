package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	connectedClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roomrelay_connected_clients",
		Help: "Number of currently connected WebSocket clients.",
	})

	broadcastsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roomrelay_broadcasts_total",
		Help: "Events fanned out by the hub, labeled by event name.",
	}, []string{"event"})

	droppedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roomrelay_dropped_clients_total",
		Help: "Clients dropped because their send buffer was full.",
	})
)

// MetricsHandler exposes Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
