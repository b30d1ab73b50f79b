package api

import (
	"encoding/csv"
	"net/http"

	"github.com/askalator/trancelate-ANNI/internal/locales"
)

// handleCapabilities returns the full feature descriptor — invariant
// formats, per-engine style options, spans-only locale subset, engine list
// — computed fresh from the currently configured locales file/extra/disable
// lists on every call, mirroring capabilities.py's compute_capabilities
// (no caching: this endpoint is not hot-path).
func (s *Server) handleCapabilities(w http.ResponseWriter, _ *http.Request) {
	caps := locales.Compute(Version, s.cfg.LocalesPublicPath, s.cfg.LocalesExtra, s.cfg.LocalesDisable)
	writeJSON(w, http.StatusOK, caps)
}

// handleLocales returns the published BCP-47 list with derived engine codes.
func (s *Server) handleLocales(w http.ResponseWriter, _ *http.Request) {
	codes := locales.LoadList(s.cfg.LocalesPublicPath, s.cfg.LocalesExtra, s.cfg.LocalesDisable)
	writeJSON(w, http.StatusOK, map[string]any{"locales": locales.MapWithEngine(codes)})
}

// handleLocalesCSV serves the same data as /locales in CSV form.
func (s *Server) handleLocalesCSV(w http.ResponseWriter, _ *http.Request) {
	codes := locales.LoadList(s.cfg.LocalesPublicPath, s.cfg.LocalesExtra, s.cfg.LocalesDisable)
	rows := locales.MapWithEngine(codes)

	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"bcp47", "engine"})
	for _, l := range rows {
		_ = cw.Write([]string{l.BCP47, l.Engine})
	}
	cw.Flush()
}
