package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oshokin/home-alarm/internal/logger"
)

// HealthFunc reports whether the service can serve requests.
type HealthFunc func(ctx context.Context) error

// requestsPerMinute limits scrapes and probes per client IP.
const requestsPerMinute = 120

// NewRouter returns the HTTP handler serving /metrics and /healthz.
func NewRouter(gatherer prometheus.Gatherer, health HealthFunc) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(httprate.LimitByIP(requestsPerMinute, time.Minute))

	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if health != nil {
			if err := health(req.Context()); err != nil {
				logger.WarnKV(req.Context(), "Health check failed", "error", err)
				http.Error(w, err.Error(), http.StatusServiceUnavailable)

				return
			}
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})

	return r
}
