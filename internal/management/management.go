// Package management provides the guard's internal admin API: bearer-token
// protected endpoints for reloading the glossary term table without a
// restart, and a status summary for operators.
//
// Endpoints:
//
//	GET  /status           - uptime and current config summary (the glossary
//	                         term count is not reported)
//	POST /glossary/reload  - re-read the glossary file + env terms and swap
//	                         them into the live orchestrator atomically
//
// Grounded on the teacher reverse proxy's internal/management/management.go:
// its Server/auth-middleware/writeJSON shape and atomic-swap philosophy are
// kept; its AI-domain registry (add/remove persisted to a JSON file) has no
// analogue in the guard's domain and is not carried over — the thing that
// needs live, operator-triggered reload here is the glossary term table,
// already exposed by internal/pipeline.Orchestrator.SetGlossaryTerms as a
// lock-free atomic snapshot swap, matching spec.md §9's "atomic pointer
// swap" admin-reload decision.
package management

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/askalator/trancelate-ANNI/internal/config"
	"github.com/askalator/trancelate-ANNI/internal/glossary"
	"github.com/askalator/trancelate-ANNI/internal/pipeline"
)

// Server is the guard's admin API server.
type Server struct {
	cfg          *config.Config
	startTime    time.Time
	orchestrator *pipeline.Orchestrator
	token        string // bearer token for auth; empty = no auth

	httpServer *http.Server
}

// New creates an admin server bound to orchestrator's live glossary
// snapshot.
func New(cfg *config.Config, orchestrator *pipeline.Orchestrator) *Server {
	s := &Server{
		cfg:          cfg,
		startTime:    time.Now(),
		orchestrator: orchestrator,
		token:        cfg.ManagementToken,
	}
	if s.token != "" {
		log.Printf("[MANAGEMENT] Bearer token authentication enabled")
	}
	return s
}

// Handler returns the HTTP handler for the admin API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/glossary/reload", s.handleGlossaryReload)
	return s.authMiddleware(mux)
}

// authMiddleware checks for a valid Bearer token if one is configured.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token == "" {
			next.ServeHTTP(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) ||
			subtle.ConstantTimeCompare([]byte(strings.TrimSpace(auth[len(prefix):])), []byte(s.token)) != 1 {
			log.Printf("[MANAGEMENT] Unauthorized access attempt from %s to %s", r.RemoteAddr, r.URL.Path)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	type response struct {
		Status          string `json:"status"`
		Uptime          string `json:"uptime"`
		GuardPort       int    `json:"guardPort"`
		Backend         string `json:"mtBackend"`
		CacheEnabled    bool   `json:"cacheEnabled"`
		GlossaryEnabled bool   `json:"glossaryEnabled"`
		StyleFilter     bool   `json:"styleFilterEnabled"`
		StyleLangs      []string `json:"styleLangs"`
	}
	writeJSON(w, http.StatusOK, response{
		Status:          "running",
		Uptime:          time.Since(s.startTime).Round(time.Second).String(),
		GuardPort:       s.cfg.GuardPort,
		Backend:         s.cfg.WorkerBaseURL(),
		CacheEnabled:    s.cfg.CacheEnable,
		GlossaryEnabled: s.cfg.GlossaryEnable,
		StyleFilter:     s.cfg.EnableStyleFilter,
		StyleLangs:      s.cfg.StyleLangs,
	})
}

// handleGlossaryReload re-reads the configured glossary file and env term
// list from disk and swaps them into the live orchestrator, without
// restarting the process.
func (s *Server) handleGlossaryReload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	terms := glossary.LoadTerms(s.cfg.GlossaryPath, s.cfg.GlossaryTerms)
	s.orchestrator.SetGlossaryTerms(terms)
	log.Printf("[MANAGEMENT] Reloaded glossary: %d terms", len(terms))
	writeJSON(w, http.StatusOK, map[string]int{"terms": len(terms)})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[MANAGEMENT] JSON encode error: %v", err)
	}
}

// ListenAndServe starts the admin HTTP server on the loopback interface
// only — this API is not meant to be reachable from outside the host.
func (s *Server) ListenAndServe() error {
	addr := fmt.Sprintf("127.0.0.1:%d", s.cfg.ManagementPort)
	log.Printf("[MANAGEMENT] Listening on %s", addr)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the admin server, or is a no-op if it was never
// started.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
