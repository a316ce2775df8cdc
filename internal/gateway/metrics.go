package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// ─── metric definitions ───────────────────────────────────────

type metrics struct {
	requests  *prometheus.CounterVec
	responses *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	rows      *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bqgate_http_requests_total",
			Help: "Number of incoming HTTP requests.",
		}, []string{"path"}),
		responses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bqgate_http_response_status_total",
			Help: "Status of HTTP responses.",
		}, []string{"path", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bqgate_http_response_time_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path"}),
		rows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bqgate_entity_rows_total",
			Help: "Rows served per configured entity; unmapped entities count as \"other\".",
		}, []string{"entity", "cached"}),
	}
}

// ─── middleware ───────────────────────────────────────────────

// statusWriter captures the status code written by the handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return "unmatched"
	}
	path, err := route.GetPathTemplate()
	if err != nil {
		return "unmatched"
	}
	return path
}

// instrument counts requests, response codes and latency by route template.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := routeTemplate(r)
		m.requests.WithLabelValues(path).Inc()
		timer := prometheus.NewTimer(m.duration.WithLabelValues(path))
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sw, r)
		timer.ObserveDuration()
		m.responses.WithLabelValues(path, strconv.Itoa(sw.status)).Inc()
	})
}

// accessLog writes one structured line per request and tags the response
// with a request id.
func accessLog(log *zap.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get("X-Request-Id")
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set("X-Request-Id", id)

			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			log.Info("request",
				zap.String("request_id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.String("route", routeTemplate(r)),
				zap.Int("status", sw.status),
				zap.Duration("elapsed", time.Since(start)),
			)
		})
	}
}
