package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/askalator/trancelate-ANNI/internal/glossary"
	"github.com/askalator/trancelate-ANNI/internal/invariants"
	"github.com/askalator/trancelate-ANNI/internal/pipeline"
)

const (
	maxBatchItems = 200
	maxItemChars  = 2000
)

type contextBody struct {
	KeepTerms []string `json:"keep_terms,omitempty"`
}

type styleBody struct {
	Address   string   `json:"address,omitempty"`
	Gender    string   `json:"gender,omitempty"`
	KeepTerms []string `json:"keep_terms,omitempty"`
}

type glossaryTermBody struct {
	Term      string   `json:"term"`
	Canonical string   `json:"canonical"`
	Langs     []string `json:"langs,omitempty"`
	Regex     bool     `json:"regex,omitempty"`
}

type glossaryBody struct {
	Terms []glossaryTermBody `json:"terms,omitempty"`
}

// translateRequestBody is the wire shape of one /translate call, and of one
// item within /translate_batch's items array, per spec.md §6.
type translateRequestBody struct {
	Source       string        `json:"source"`
	Target       string        `json:"target"`
	Text         string        `json:"text"`
	MaxNewTokens *int          `json:"max_new_tokens,omitempty"`
	Debug        bool          `json:"debug,omitempty"`
	Context      *contextBody  `json:"context,omitempty"`
	Style        *styleBody    `json:"style,omitempty"`
	Glossary     *glossaryBody `json:"glossary,omitempty"`
}

type checksDTO struct {
	OK           bool           `json:"ok"`
	HTMLOK       bool           `json:"html_ok"`
	NumOK        bool           `json:"num_ok"`
	PHOK         bool           `json:"ph_ok"`
	ParenOK      bool           `json:"paren_ok"`
	ArtifactOK   bool           `json:"artifact_ok"`
	EmailOK      bool           `json:"email_ok"`
	URLOK        bool           `json:"url_ok"`
	Counts       map[string]int `json:"counts,omitempty"`
	FallbackUsed string         `json:"fallback_used,omitempty"`
}

func toChecksDTO(c invariants.Checks, fallback string) checksDTO {
	return checksDTO{
		OK: c.OK, HTMLOK: c.HTMLOK, NumOK: c.NumOK, PHOK: c.PHOK,
		ParenOK: c.ParenOK, ArtifactOK: c.ArtifactOK, EmailOK: c.EmailOK, URLOK: c.URLOK,
		Counts: c.CountsByType, FallbackUsed: fallback,
	}
}

type translateResponseBody struct {
	TranslatedText string         `json:"translated_text"`
	Checks         checksDTO      `json:"checks"`
	Debug          map[string]any `json:"debug,omitempty"`
	Error          string         `json:"error,omitempty"`
}

// toRequest converts one wire-shape item into the orchestrator's Request,
// merging context.keep_terms and style.keep_terms the way
// mt_guard.py's _collect_glossary_terms merges every keep-term source ahead
// of the glossary.terms list, per SPEC_FULL.md's INJECT_KEEP_TERMS note.
func (b translateRequestBody) toRequest() pipeline.Request {
	req := pipeline.Request{
		SourceBCP47: b.Source,
		TargetBCP47: b.Target,
		Text:        b.Text,
		Debug:       b.Debug,
	}
	if b.Context != nil {
		req.KeepTerms = append(req.KeepTerms, b.Context.KeepTerms...)
	}
	if b.Style != nil {
		req.Address = b.Style.Address
		req.Gender = b.Style.Gender
		req.KeepTerms = append(req.KeepTerms, b.Style.KeepTerms...)
	}
	if b.Glossary != nil {
		req.GlossaryTerms = make([]glossary.Term, 0, len(b.Glossary.Terms))
		for _, t := range b.Glossary.Terms {
			req.GlossaryTerms = append(req.GlossaryTerms, glossary.Term{
				Term: t.Term, Canonical: t.Canonical, Langs: t.Langs, Regex: t.Regex,
			})
		}
	}
	return req
}

func (s *Server) strictFor(targetEngine string) bool {
	if !s.cfg.StrictInvariants {
		return false
	}
	for _, ex := range s.cfg.StrictInvariantsExclude {
		if strings.EqualFold(ex, targetEngine) {
			return false
		}
	}
	return true
}

func checksSummary(c invariants.Checks) string {
	return fmt.Sprintf("ok=%t html=%t num=%t ph=%t paren=%t artifact=%t email=%t url=%t",
		c.OK, c.HTMLOK, c.NumOK, c.PHOK, c.ParenOK, c.ArtifactOK, c.EmailOK, c.URLOK)
}

// handleTranslate implements POST /translate.
func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var body translateRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.EqualFold(body.Source, "auto") {
		writeError(w, http.StatusBadRequest, `source "auto" is not accepted`)
		return
	}
	if body.Source == "" || body.Target == "" {
		writeError(w, http.StatusBadRequest, "source and target are required")
		return
	}

	res, err := s.orch.Translate(r.Context(), body.toRequest())
	if err != nil {
		if s.metrics != nil {
			s.metrics.ErrorsTotal.Inc()
		}
		writeError(w, http.StatusBadGateway, "worker unreachable")
		return
	}
	s.recordResultMetrics(res)

	w.Header().Set("X-Source-Lang", body.Source)
	w.Header().Set("X-Source-Engine-Lang", res.SourceEngineLang)
	w.Header().Set("X-Target-Lang", body.Target)
	w.Header().Set("X-Target-Engine-Lang", res.TargetEngineLang)
	if s.cfg.CacheEnable && res.CacheStatus != "" {
		w.Header().Set("X-Cache", res.CacheStatus)
	}
	if body.Debug {
		w.Header().Set("X-Fallback", res.Fallback)
		w.Header().Set("X-Glossary-Replaced", strconv.Itoa(res.GlossaryReplaced))
		w.Header().Set("X-Glossary-Missing", strconv.Itoa(res.GlossaryMissing))
	}

	status := http.StatusOK
	if !res.Checks.OK && s.strictFor(res.TargetEngineLang) {
		status = http.StatusUnprocessableEntity
		w.Header().Set("X-Invariant-Checks", checksSummary(res.Checks))
	}

	respBody := translateResponseBody{
		TranslatedText: res.TranslatedText,
		Checks:         toChecksDTO(res.Checks, res.Fallback),
	}
	if body.Debug {
		respBody.Debug = map[string]any{
			"fallback":       res.Fallback,
			"degraded":       res.Degraded,
			"degrade_reason": res.DegradeReason,
		}
	}
	writeJSON(w, status, respBody)
}

type translateBatchRequestBody struct {
	Items []translateRequestBody `json:"items"`
}

type translateBatchResponseBody struct {
	Results []translateResponseBody `json:"results"`
}

// handleTranslateBatch implements POST /translate_batch: up to 200 items,
// each ≤2000 chars, processed via a bounded worker pool
// (cfg.BatchConcurrency) and reassembled in original order by index —
// spec.md §5's batch ordering guarantee.
func (s *Server) handleTranslateBatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}
	var body translateBatchRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(body.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items must not be empty")
		return
	}
	if len(body.Items) > maxBatchItems {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("items exceeds max of %d", maxBatchItems))
		return
	}
	for i, item := range body.Items {
		if strings.EqualFold(item.Source, "auto") {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("item %d: source \"auto\" is not accepted", i))
			return
		}
		if utf8.RuneCountInString(item.Text) > maxItemChars {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("item %d: text exceeds %d characters", i, maxItemChars))
			return
		}
	}

	concurrency := s.cfg.BatchConcurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	results := make([]pipeline.Result, len(body.Items))
	errs := make([]error, len(body.Items))

	g, gctx := errgroup.WithContext(r.Context())
	g.SetLimit(concurrency)
	for i, item := range body.Items {
		i, item := i, item
		g.Go(func() error {
			res, err := s.orch.Translate(gctx, item.toRequest())
			results[i] = res
			errs[i] = err
			return nil // per-item errors surface in the response, not as a batch abort
		})
	}
	_ = g.Wait()

	var replacedTotal, missingTotal int
	anyDebug := false
	anyStrictFail := false
	out := make([]translateResponseBody, len(body.Items))
	for i, item := range body.Items {
		if errs[i] != nil {
			out[i] = translateResponseBody{Error: "worker unreachable"}
			continue
		}
		res := results[i]
		s.recordResultMetrics(res)
		replacedTotal += res.GlossaryReplaced
		missingTotal += res.GlossaryMissing
		if item.Debug {
			anyDebug = true
		}
		if !res.Checks.OK && s.strictFor(res.TargetEngineLang) {
			anyStrictFail = true
		}
		rb := translateResponseBody{TranslatedText: res.TranslatedText, Checks: toChecksDTO(res.Checks, res.Fallback)}
		if item.Debug {
			rb.Debug = map[string]any{
				"fallback":       res.Fallback,
				"degraded":       res.Degraded,
				"degrade_reason": res.DegradeReason,
			}
		}
		out[i] = rb
	}

	if anyDebug {
		w.Header().Set("X-Glossary-Replaced-Total", strconv.Itoa(replacedTotal))
		w.Header().Set("X-Glossary-Missing-Total", strconv.Itoa(missingTotal))
	}

	status := http.StatusOK
	if anyStrictFail {
		status = http.StatusUnprocessableEntity
		w.Header().Set("X-Batch-Counts", fmt.Sprintf("total=%d failed_strict=%d", len(body.Items), countStrictFailures(out)))
	}
	writeJSON(w, status, translateBatchResponseBody{Results: out})
}

func countStrictFailures(items []translateResponseBody) int {
	n := 0
	for _, it := range items {
		if !it.Checks.OK {
			n++
		}
	}
	return n
}

func (s *Server) recordResultMetrics(res pipeline.Result) {
	if s.metrics == nil {
		return
	}
	if res.Fallback == "spans_only" || strings.Contains(res.Fallback, "spans_only") {
		s.metrics.RecordSpansOnly(res.TargetEngineLang)
	}
	if res.Degraded {
		s.metrics.RecordDegrade(res.DegradeReason)
	}
	s.metrics.RecordGlossary(res.TargetEngineLang, res.GlossaryReplaced, res.GlossaryMissing)
}
