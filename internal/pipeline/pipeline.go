// Package pipeline implements the guard's central orchestrator: the state
// machine that turns one translate request into a worker call (or several),
// restoring every invariant and glossary term the worker's neural output may
// have mangled, falling back through progressively more conservative
// strategies when restoration or the circuit breaker says the first attempt
// isn't trustworthy.
//
// Grounded on spec.md §4.G's state diagram (the reference guard's own route
// handlers were not part of the retrieved example pack, so the state
// transitions below follow the specification directly rather than a ported
// Python function) and on the five strategies it names: direct, spans-only,
// invariant-interleave, outer-HTML and pivot.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/askalator/trancelate-ANNI/internal/breaker"
	"github.com/askalator/trancelate-ANNI/internal/cache"
	"github.com/askalator/trancelate-ANNI/internal/config"
	"github.com/askalator/trancelate-ANNI/internal/glossary"
	"github.com/askalator/trancelate-ANNI/internal/invariants"
	"github.com/askalator/trancelate-ANNI/internal/langnorm"
	"github.com/askalator/trancelate-ANNI/internal/style"
	"github.com/askalator/trancelate-ANNI/internal/worker"
)

// workerClient is the subset of *worker.Client the orchestrator needs,
// narrowed to an interface so tests can substitute a fake without standing
// up an HTTP server.
type workerClient interface {
	TranslateOne(ctx context.Context, text, src, tgt string) (string, error)
	TranslateChunks(ctx context.Context, chunks []*worker.Chunk, src, tgt string) (time.Duration, error)
}

// Request is one normalized translate call into the orchestrator.
type Request struct {
	SourceBCP47 string
	TargetBCP47 string
	Text        string

	Debug bool

	KeepTerms []string
	Address   string
	Gender    string

	// GlossaryTerms are additional terms supplied with this request only,
	// applied ahead of the globally configured glossary.
	GlossaryTerms []glossary.Term

	// ForceSpansOnly lets a caller (or the spans-only-force config check
	// the API layer performs before calling in) short-circuit straight to
	// the spans-only strategy.
	ForceSpansOnly bool
}

// Result is what the orchestrator hands back to the HTTP layer.
type Result struct {
	TranslatedText string
	Checks         invariants.Checks

	SourceEngineLang string
	TargetEngineLang string

	Fallback string // strategy that ultimately produced TranslatedText, "" for direct
	Degraded bool
	DegradeReason string

	GlossaryReplaced int
	GlossaryMissing  int

	CacheStatus string // "hit", "miss_store", or "" when caching is disabled

	Debug map[string]interface{}
}

// Orchestrator wires every guard component together: the worker client, the
// response cache, and a live, reload-able glossary term list.
type Orchestrator struct {
	cfg    *config.Config
	worker workerClient
	cache  *cache.Cache

	// glossaryTerms is read far more often than it's written (every
	// translate call reads it, only an admin reload call writes it), so
	// it's held as a lock-free atomic snapshot rather than behind a mutex
	// — matching spec.md §5's "read-mostly... lock-free or versioned
	// snapshot reads" requirement for the terms table.
	glossaryTerms atomic.Value // []glossary.Term
}

// New builds an Orchestrator. cache may be nil to disable response caching
// entirely.
func New(cfg *config.Config, w *worker.Client, c *cache.Cache, initialTerms []glossary.Term) *Orchestrator {
	o := &Orchestrator{cfg: cfg, worker: w, cache: c}
	o.SetGlossaryTerms(initialTerms)
	return o
}

// SetGlossaryTerms atomically swaps in a new glossary term snapshot — the
// admin reload endpoint's write path.
func (o *Orchestrator) SetGlossaryTerms(terms []glossary.Term) {
	cp := append([]glossary.Term(nil), terms...)
	o.glossaryTerms.Store(cp)
}

func (o *Orchestrator) currentTerms() []glossary.Term {
	v, _ := o.glossaryTerms.Load().([]glossary.Term)
	return v
}

// Translate runs the full orchestrator state machine for one request.
func (o *Orchestrator) Translate(ctx context.Context, req Request) (Result, error) {
	_, srcEngine := langnorm.NormalizeInput(req.SourceBCP47)
	tgtBCP, tgtEngine := langnorm.NormalizeInput(req.TargetBCP47)

	address := req.Address
	if address == "" {
		address = o.cfg.StyleDefaultAddress
	}
	gender := req.Gender
	if gender == "" {
		gender = o.cfg.StyleDefaultGender
	}

	terms := mergeTerms(o.currentTerms(), req.GlossaryTerms)
	keepTerms := mergeStrings(o.cfg.StyleKeepTerms, req.KeepTerms)

	var cacheKey string
	if o.cache != nil {
		frozenForKey, _ := invariants.FreezeInvariants(req.Text)
		sig := cache.StyleSignature(address, gender) + "|" + cache.GlossarySignature(toCacheTerms(terms))
		cacheKey = cache.BuildKey(srcEngine, tgtEngine, frozenForKey, sig)
		if v, ok := o.cache.Get(cacheKey); ok {
			return Result{
				TranslatedText:   v.Text,
				SourceEngineLang: srcEngine,
				TargetEngineLang: tgtEngine,
				Degraded:         v.Degraded,
				DegradeReason:    v.DegradeReason,
				CacheStatus:      "hit",
			}, nil
		}
	}

	forceSpans := req.ForceSpansOnly ||
		containsFold(o.cfg.SpansOnlyForceBCP47, tgtBCP) ||
		containsFold(o.cfg.SpansOnlyForceEngine, tgtEngine)

	if forceSpans {
		text, checks, err := o.spansOnlyStrategy(ctx, req.Text, srcEngine, tgtEngine, terms, true)
		if err != nil {
			return Result{}, err
		}
		return o.finish(req, srcEngine, tgtEngine, address, gender, keepTerms, terms, cacheKey, text, checks, "force_spans_only", false, ""), nil
	}

	text, checks, rawOut, invStats, gloStats, err := o.directAttempt(ctx, req.Text, srcEngine, tgtEngine, terms, keepTerms)
	if err != nil {
		return Result{}, fmt.Errorf("worker_unreachable: %w", err)
	}

	degrade, reason := breaker.ShouldDegrade(rawOut, breaker.Checks{PHOK: checks.PHOK, FreezeMissing: invStats.Missing}, tgtEngine)

	if checks.OK && invStats.Missing == 0 && !degrade {
		final := o.finish(req, srcEngine, tgtEngine, address, gender, keepTerms, terms, cacheKey, text, checks, "", false, "")
		final.GlossaryReplaced, final.GlossaryMissing = gloStats.ReplacedTotal, gloStats.Missing
		return final, nil
	}

	hasHTML := invariants.HasHTML(req.Text)
	if (!checks.OK || invStats.Missing > 0) && hasHTML {
		if vtext, vchecks, ok := o.outerHTMLStrategy(ctx, req.Text, srcEngine, tgtEngine, terms); ok {
			return o.finish(req, srcEngine, tgtEngine, address, gender, keepTerms, terms, cacheKey, vtext, vchecks, "outer_html", false, ""), nil
		}
	}

	if !checks.OK {
		if itext, ichecks, better := o.interleaveFallback(ctx, req.Text, srcEngine, tgtEngine, terms, checks); better {
			return o.finish(req, srcEngine, tgtEngine, address, gender, keepTerms, terms, cacheKey, itext, ichecks, "interleave", false, ""), nil
		}
	}

	if degrade {
		stext, schecks, serr := o.spansOnlyStrategy(ctx, req.Text, srcEngine, tgtEngine, terms, true)
		if serr == nil {
			return o.finish(req, srcEngine, tgtEngine, address, gender, keepTerms, terms, cacheKey, stext, schecks, "spans_only", true, reason), nil
		}
	}

	// Best available: whatever the direct attempt produced, even though
	// checks didn't fully pass — the orchestrator never discards a
	// translation outright once every fallback has been tried.
	final := o.finish(req, srcEngine, tgtEngine, address, gender, keepTerms, terms, cacheKey, text, checks, "", degrade, reason)
	final.GlossaryReplaced, final.GlossaryMissing = gloStats.ReplacedTotal, gloStats.Missing
	return final, nil
}

// directAttempt runs the Direct strategy: freeze glossary, freeze
// invariants, inject keep-terms, one worker call over the ASCII-safe
// transport form, then unfreeze/scrub/unwrap/validate.
func (o *Orchestrator) directAttempt(ctx context.Context, text, srcEngine, tgtEngine string, terms []glossary.Term, keepTerms []string) (out string, checks invariants.Checks, rawOut string, invStats invariants.UnfreezeStats, gloStats glossary.UnfreezeStats, err error) {
	gFrozen, gMap := glossary.FreezeGlossary(text, tgtEngine, terms)
	iFrozen, iMap := invariants.FreezeInvariants(gFrozen)
	iFrozen, iMap = invariants.FreezeKeepTerms(iFrozen, iMap, keepTerms)
	safeText := glossary.ToSafeTokens(iFrozen, gMap)

	rawOut, err = o.worker.TranslateOne(ctx, safeText, srcEngine, tgtEngine)
	if err != nil {
		return "", invariants.Checks{}, "", invariants.UnfreezeStats{}, glossary.UnfreezeStats{}, err
	}

	restored := glossary.FromSafeTokens(rawOut, gMap)
	restored, invStats = invariants.UnfreezeInvariants(restored, iMap)
	restored, gloStats = glossary.UnfreezeGlossary(restored, gMap)
	restored = invariants.ScrubArtifacts(restored)
	restored = invariants.UnwrapSpuriousWrappers(restored, iMap, text)
	checks = invariants.ValidateInvariants(text, restored, iMap)
	return restored, checks, rawOut, invStats, gloStats, nil
}

// finish applies the style filter, a pivot re-check, and (for successful
// checks) a cache store, then assembles the caller-facing Result.
func (o *Orchestrator) finish(req Request, srcEngine, tgtEngine, address, gender string, keepTerms []string, terms []glossary.Term, cacheKey, text string, checks invariants.Checks, fallback string, degraded bool, reason string) Result {
	out := o.applyStyle(text, tgtEngine, address, gender, keepTerms)
	out, pivoted := o.maybePivot(context.Background(), req.Text, srcEngine, tgtEngine, out)
	if pivoted {
		if fallback == "" {
			fallback = "pivot"
		} else {
			fallback = fallback + "+pivot"
		}
	}

	status := ""
	if o.cache != nil {
		if checks.OK {
			o.cache.Set(cacheKey, cache.Value{Text: out, Degraded: degraded, DegradeReason: reason})
			status = "miss_store"
		}
	}

	return Result{
		TranslatedText:   out,
		Checks:           checks,
		SourceEngineLang: srcEngine,
		TargetEngineLang: tgtEngine,
		Fallback:         fallback,
		Degraded:         degraded,
		DegradeReason:    reason,
		CacheStatus:      status,
	}
}

// applyStyle runs the configured locale's post-style filter, when style
// filtering is enabled and the target engine is one of the configured
// StyleLangs. A filter that fails its own invariant-survival check (see
// internal/style's freezeAndValidate) leaves text unchanged.
func (o *Orchestrator) applyStyle(text, tgtEngine, address, gender string, keepTerms []string) string {
	if !o.cfg.EnableStyleFilter || !containsFold(o.cfg.StyleLangs, tgtEngine) {
		return text
	}
	keep := make(map[string]bool, len(keepTerms))
	for _, t := range keepTerms {
		keep[t] = true
	}
	switch strings.ToLower(tgtEngine) {
	case "de":
		out, _ := style.ApplyStyleDESafe(text, address, gender, keep)
		return out
	case "fr", "it", "es", "pt":
		out, _ := style.ApplyStyleRomanceSafe(text, strings.ToLower(tgtEngine), address)
		return out
	default:
		return text
	}
}

func mergeTerms(global, extra []glossary.Term) []glossary.Term {
	if len(extra) == 0 {
		return global
	}
	out := make([]glossary.Term, 0, len(global)+len(extra))
	out = append(out, extra...) // request-scoped terms take longest-match priority over the global list
	out = append(out, global...)
	return out
}

func mergeStrings(a, b []string) []string {
	if len(b) == 0 {
		return a
	}
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	out = append(out, b...)
	return out
}

func toCacheTerms(terms []glossary.Term) []cache.GlossaryTerm {
	out := make([]cache.GlossaryTerm, 0, len(terms))
	for _, t := range terms {
		out = append(out, cache.GlossaryTerm{Term: t.Term, Canonical: t.Canonical})
	}
	return out
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
