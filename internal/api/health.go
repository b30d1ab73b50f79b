package api

import (
	"context"
	"net/http"
	"time"
)

// handleHealth reports process + backend liveness, mirroring the reference
// guard's health endpoint plus mt_guard.py's _backend_status probe.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	backendAlive := false
	if s.wc != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		backendAlive = s.wc.BackendStatus(ctx)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":            true,
		"ready":         true,
		"backend_alive": backendAlive,
		"backend_url":   s.backendURL(),
		"version":       Version,
		"commit":        Commit,
	})
}

func (s *Server) backendURL() string {
	if s.wc == nil {
		return ""
	}
	return s.wc.BaseURL()
}

// handleMeta returns a short capabilities summary — a cheaper sibling of
// /capabilities intended for quick client bootstrap checks.
func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":              Version,
		"commit":               Commit,
		"cache_enabled":        s.cfg.CacheEnable,
		"glossary_enabled":     s.cfg.GlossaryEnable,
		"style_filter_enabled": s.cfg.EnableStyleFilter,
		"style_langs":          s.cfg.StyleLangs,
		"strict_invariants":    s.cfg.StrictInvariants,
	})
}

// handleCacheStats exposes internal/cache's point-in-time counters.
func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	if s.cache == nil {
		writeJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	stats := s.cache.StatsSnapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"enabled":   true,
		"size":      stats.Size,
		"hits":      stats.Hits,
		"misses":    stats.Misses,
		"evictions": stats.Evictions,
	})
}
