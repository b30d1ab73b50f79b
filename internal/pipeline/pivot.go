package pipeline

import (
	"context"
	"unicode"

	"github.com/askalator/trancelate-ANNI/internal/invariants"
)

// maybePivot implements the Pivot strategy: for a target engine in the
// configured PivotLangs set (default km, lo, my — scripts a neural model
// most often collapses back to transliterated Latin text under load),
// detect a candidate translation leaking too much Latin script and redo the
// whole translation via an intermediate language with two sequential,
// invariant-protected worker calls. Returns the replacement text and
// whether a pivot actually ran.
func (o *Orchestrator) maybePivot(ctx context.Context, srcText, srcEngine, tgtEngine, candidate string) (string, bool) {
	if o.cfg.PivotMidLang == "" || !containsFold(o.cfg.PivotLangs, tgtEngine) {
		return candidate, false
	}
	if latinFraction(candidate) <= o.cfg.LeakLatinMax {
		return candidate, false
	}

	mid, _, err := o.invariantProtectedCall(ctx, srcText, srcEngine, o.cfg.PivotMidLang)
	if err != nil {
		return candidate, false
	}
	final, checks, err := o.invariantProtectedCall(ctx, mid, o.cfg.PivotMidLang, tgtEngine)
	if err != nil || !checks.OK {
		return candidate, false
	}
	return final, true
}

// invariantProtectedCall runs one plain invariant freeze → worker call →
// unfreeze/scrub/unwrap/validate round trip without glossary handling,
// reused by both pivot hops.
func (o *Orchestrator) invariantProtectedCall(ctx context.Context, text, srcEngine, tgtEngine string) (string, invariants.Checks, error) {
	frozen, mapping := invariants.FreezeInvariants(text)
	raw, err := o.worker.TranslateOne(ctx, frozen, srcEngine, tgtEngine)
	if err != nil {
		return "", invariants.Checks{}, err
	}
	out, _ := invariants.UnfreezeInvariants(raw, mapping)
	out = invariants.ScrubArtifacts(out)
	out = invariants.UnwrapSpuriousWrappers(out, mapping, text)
	checks := invariants.ValidateInvariants(text, out, mapping)
	return out, checks, nil
}

// latinFraction is the share of non-space, non-punctuation, non-digit runes in s that
// belong to the Latin script, used to detect a translation that collapsed
// back into transliterated source-language text instead of the requested
// target script.
func latinFraction(s string) float64 {
	total, latin := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) || unicode.IsPunct(r) || unicode.IsDigit(r) {
			continue
		}
		total++
		if unicode.Is(unicode.Latin, r) {
			latin++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(latin) / float64(total)
}
