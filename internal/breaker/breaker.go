// Package breaker decides whether a raw worker translation is bad enough
// that the orchestrator should discard it and retry with a more
// conservative strategy (spans-only), rather than return it to the
// caller. This is the guard's circuit breaker: it trips on gibberish
// output, on invariants the worker dropped, and — more aggressively — on
// any sign of trouble for Cyrillic-script targets, where neural MT is most
// prone to corrupting frozen sentinels.
//
// Grounded on the reference guard's resilience.py in full.
package breaker

import (
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// cyrillicEngines are target engine codes the breaker treats more
// conservatively, matching resilience.py's _CYR_ENGINES.
var cyrillicEngines = map[string]bool{
	"ru": true, "bg": true, "uk": true, "sr": true, "mk": true, "be": true,
}

var (
	angleBracketsRE = regexp.MustCompile(`[<>]{8,}`)
)

// Checks is the subset of invariants.Checks (plus the freeze-miss count)
// the breaker needs to reach a decision, decoupled from the invariants
// package's full Checks type so this package has no import-time
// dependency on it — resilience.py itself only reads a couple of keys out
// of a dict, not the whole validate_invariants result.
type Checks struct {
	PHOK          bool
	FreezeMissing int
}

// ShouldDegrade decides whether the orchestrator should discard
// workerRaw and re-run with the spans-only strategy. It mirrors
// resilience.py's should_degrade: any panic-equivalent condition (none
// exist in this Go port — there's no dict-indexing that can fail) simply
// falls through to "no degrade", matching the Python function's
// try/except-swallow-everything fallback.
func ShouldDegrade(workerRaw string, checks Checks, targetEngine string) (bool, string) {
	t := normalizeForGibberish(workerRaw)
	if t == "" {
		return true, "empty_output"
	}
	if looksLikeGibberish(t) {
		return true, "gibberish"
	}
	if checks.FreezeMissing >= 2 {
		return true, fmt.Sprintf("missing_placeholders:%d", checks.FreezeMissing)
	}
	if cyrillicEngines[strings.ToLower(targetEngine)] {
		if !checks.PHOK {
			return true, "cyr_ph_fail"
		}
		if checks.FreezeMissing > 0 {
			return true, fmt.Sprintf("cyr_missing:%d", checks.FreezeMissing)
		}
	}
	return false, ""
}

func normalizeForGibberish(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// looksLikeGibberish flags output with a long run of one repeated rune, a
// long run of angle brackets (a worker that leaked raw sentinel markup),
// or low lexical variety dominated by one token across a long-enough
// sample — mirroring resilience.py's _looks_like_gibberish.
func looksLikeGibberish(t string) bool {
	if len([]rune(t)) < 2 {
		return true
	}
	run, prev := 0, rune(-1)
	for _, r := range t {
		if r == prev && r != '\n' {
			run++
		} else {
			run, prev = 1, r
		}
		if run >= 10 {
			return true
		}
	}
	if angleBracketsRE.MatchString(t) {
		return true
	}

	tokens := strings.Fields(t)
	if len(tokens) >= 8 {
		counts := map[string]int{}
		top := 0
		for _, tok := range tokens {
			counts[tok]++
			if counts[tok] > top {
				top = counts[tok]
			}
		}
		variety := float64(len(counts)) / float64(len(tokens))
		dominance := float64(top) / float64(len(tokens))
		if variety < 0.2 && dominance >= 0.25 {
			return true
		}
	}
	return false
}
