// Package gateway exposes entity pages over HTTP.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"bqgate/internal/query"
	"bqgate/internal/service"
	"bqgate/internal/transcode"
)

// EntityService is what the HTTP surface needs from the gateway service.
type EntityService interface {
	Fetch(ctx context.Context, entity string, p query.Params) (*service.FetchResult, error)
	BuildQuery(entity string, p query.Params) (string, error)
	Entities() []string
}

// unmappedEntityLabel is the metric label for entities served as bare table
// names.
const unmappedEntityLabel = "other"

// Server routes HTTP requests to an EntityService.
type Server struct {
	svc     EntityService
	log     *zap.Logger
	metrics *metrics
	router  *mux.Router
}

// New builds the router. Metrics are registered on reg and served from it.
func New(svc EntityService, log *zap.Logger, reg *prometheus.Registry) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	s := &Server{
		svc:     svc,
		log:     log,
		metrics: newMetrics(reg),
		router:  mux.NewRouter(),
	}

	s.router.Use(s.metrics.instrument)
	s.router.Use(accessLog(log))

	s.router.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	s.router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})).Methods(http.MethodGet)
	s.router.HandleFunc("/v1", s.listEntities).Methods(http.MethodGet)
	// the dry-run route must win over the plain entity route
	s.router.HandleFunc("/v1/{entity}:query", s.buildQuery).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/{entity}", s.fetchEntity).Methods(http.MethodGet)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("gateway listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ── Handlers ───────────────────────────────────────────────

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listEntities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"entities": s.svc.Entities()})
}

func (s *Server) buildQuery(w http.ResponseWriter, r *http.Request) {
	entity := mux.Vars(r)["entity"]
	sql, err := s.svc.BuildQuery(entity, query.ParamsFromValues(r.URL.Query()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(sql))
}

func (s *Server) fetchEntity(w http.ResponseWriter, r *http.Request) {
	entity := mux.Vars(r)["entity"]
	res, err := s.svc.Fetch(r.Context(), entity, query.ParamsFromValues(r.URL.Query()))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.rows.WithLabelValues(entityLabel(res), strconv.FormatBool(res.Cached)).Add(float64(res.Rows))

	cache := "miss"
	if res.Cached {
		cache = "hit"
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", cache)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Body)
}

// entityLabel keeps the rows metric bounded to configured entities.
func entityLabel(res *service.FetchResult) string {
	if res.Key == "" {
		return unmappedEntityLabel
	}
	return res.Key
}

// ── Errors ─────────────────────────────────────────────────

type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownEntity):
		return http.StatusNotFound
	// backend errors wrap the context error, so the timeout check comes first
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, service.ErrBackend), errors.Is(err, transcode.ErrSchemaMismatch):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.log.Warn("request failed", zap.Int("status", status), zap.Error(err))
	}
	writeJSON(w, status, errorBody{Code: status, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
