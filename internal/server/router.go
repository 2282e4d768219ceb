package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/commlogs-systems/commlogs-collector/internal/handlers"
	"github.com/commlogs-systems/commlogs-collector/internal/middleware"
)

// NewRouter composes the collector's HTTP surface.
func NewRouter(ingest *handlers.IngestHandler, metrics *handlers.MetricsHandler, health *handlers.HealthHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", health.HandleHealth)
	mux.HandleFunc("/ingest", ingest.HandleIngest)

	// Aggregate query API
	mux.HandleFunc("/metrics/volume", metrics.HandleVolume)
	mux.HandleFunc("/metrics/error", metrics.HandleErrorRate)
	mux.HandleFunc("/metrics/top-src", metrics.HandleTopSources)

	// Prometheus exposition (exact match, does not shadow /metrics/*)
	mux.Handle("/metrics", promhttp.Handler())

	return middleware.RequestID(mux)
}
