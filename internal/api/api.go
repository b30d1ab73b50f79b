// Package api implements the guard's public HTTP surface: the endpoints
// client applications call to translate text, inspect locale/engine
// capabilities, and check liveness — as opposed to internal/management's
// bearer-token-gated operator surface.
//
// Grounded on spec.md §6's endpoint table in full and on the teacher
// proxy's handler/header-setting conventions (internal/proxy/proxy.go):
// plain http.HandlerFunc routing via http.ServeMux, http.Error for failure
// responses, explicit header setting before WriteHeader.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/askalator/trancelate-ANNI/internal/cache"
	"github.com/askalator/trancelate-ANNI/internal/config"
	"github.com/askalator/trancelate-ANNI/internal/metrics"
	"github.com/askalator/trancelate-ANNI/internal/pipeline"
	"github.com/askalator/trancelate-ANNI/internal/worker"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Version and Commit are overridable at link time (-ldflags
// "-X .../internal/api.Version=... -X .../internal/api.Commit=..."), the
// common Go idiom for stamping a build into a binary; the teacher and
// reference guard have no equivalent, so this is a bare stdlib-compatible
// convention rather than a ported concern.
var (
	Version = "dev"
	Commit  = "unknown"
)

// Server is the guard's public HTTP API.
type Server struct {
	cfg     *config.Config
	orch    *pipeline.Orchestrator
	cache   *cache.Cache
	wc      *worker.Client
	metrics *metrics.Metrics

	startTime  time.Time
	httpServer *http.Server
}

// New builds the public API server. cache and metrics may be nil (caching
// and metrics collection are both optional per config).
func New(cfg *config.Config, orch *pipeline.Orchestrator, c *cache.Cache, wc *worker.Client, m *metrics.Metrics) *Server {
	return &Server{cfg: cfg, orch: orch, cache: c, wc: wc, metrics: m, startTime: time.Now()}
}

// Handler returns the guard's public HTTP handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/meta", s.handleMeta)
	mux.HandleFunc("/capabilities", s.handleCapabilities)
	mux.HandleFunc("/locales", s.handleLocales)
	mux.HandleFunc("/locales.csv", s.handleLocalesCSV)
	mux.HandleFunc("/cache/stats", s.handleCacheStats)
	mux.HandleFunc("/translate", s.handleTranslate)
	mux.HandleFunc("/translate_batch", s.handleTranslateBatch)
	mux.HandleFunc("/detect", s.handleDetect)
	if s.metrics != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{}))
	}
	return s.logMiddleware(mux)
}

// logMiddleware logs every request the way the teacher proxy logs every
// tunnel/forward decision, and counts it toward RequestsTotal when metrics
// are enabled.
func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.metrics != nil {
			s.metrics.RequestsTotal.Inc()
		}
		log.Printf("[API] %s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[API] JSON encode error: %v", err)
	}
}

// errorResponse is the guard's uniform error body shape, analogous to the
// teacher management API's plain-text http.Error calls but structured, since
// this surface is consumed by translation client libraries rather than a
// human operator curling a status endpoint.
type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// ListenAndServe starts the public API server.
func (s *Server) ListenAndServe() error {
	addr := s.cfg.BindAddress
	if addr == "" {
		addr = "0.0.0.0"
	}
	listenAddr := fmt.Sprintf("%s:%d", addr, s.cfg.GuardPort)
	log.Printf("[API] Listening on %s", listenAddr)
	s.httpServer = &http.Server{
		Addr:              listenAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the public API server, or is a no-op if it was
// never started.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
