package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/liamcoop/configbuilder/internal/logger"
)

// slowRequestThreshold marks a request as slow in logs and counters
const slowRequestThreshold = time.Second

type httpMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	f := promauto.With(reg)

	// Logger counters are incremented regardless of log sampling
	counters := map[string]struct {
		help  string
		value func() int64
	}{
		"configbuilder_log_errors_total":         {"Total error-level log calls", logger.TotalErrors.Load},
		"configbuilder_log_warnings_total":       {"Total warning-level log calls", logger.TotalWarnings.Load},
		"configbuilder_http_5xx_total":           {"Total 5xx responses", logger.Total5xxErrors.Load},
		"configbuilder_http_4xx_total":           {"Total 4xx responses", logger.Total4xxErrors.Load},
		"configbuilder_http_slow_requests_total": {"Total requests slower than the threshold", logger.SlowRequests.Load},
	}
	for name, c := range counters {
		value := c.value
		f.NewCounterFunc(prometheus.CounterOpts{Name: name, Help: c.help}, func() float64 {
			return float64(value())
		})
	}

	return &httpMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "configbuilder_http_requests_total",
			Help: "Total HTTP requests by route, method and status",
		}, []string{"route", "method", "status"}),

		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "configbuilder_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// instrument records request counts and latency by chi route pattern
func (m *httpMetrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		m.duration.WithLabelValues(route, r.Method).Observe(elapsed.Seconds())

		if elapsed > slowRequestThreshold {
			logger.WarnSlowRequest()
			logger.Info("Slow request", "route", route, "method", r.Method, "duration_ms", elapsed.Milliseconds())
		}
	})
}

func (s *Server) metricsHandler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{Registry: s.registry})
}
