// Package style applies per-locale post-translation formatting rules —
// German formality (du/Sie) and gender-inclusive noun forms, and Romance
// T/V pronoun register (tu/vous, tu/Lei, tú/usted, tu/você) — on top of the
// MT worker's raw output. Every filter operates invariants-safe: it freezes
// the text first so its regex substitutions can never touch an HTML tag,
// placeholder, URL, or other protected span, then validates afterward that
// nothing was damaged, falling back to the untouched translation when it
// was.
//
// Grounded on the reference guard's styles_de.py and styles_romance.py in
// full.
package style

import (
	"strconv"
	"strings"

	"github.com/askalator/trancelate-ANNI/internal/invariants"
)

// freezeAndValidate runs fn over a frozen copy of text (so fn's regex
// substitutions never see a live invariant span), then checks that every
// sentinel fn's transform ran over is still intact afterward. It returns the
// original text unchanged, with a failing Checks, if the transform corrupted
// or deleted a sentinel; otherwise it unfreezes fn's output and returns
// that. The check runs on the still-frozen output, before unfreezing, so the
// thing worth validating is sentinel survival, not raw-span presence
// (invariants.ValidateInvariants checks the latter and is the right tool
// only after unfreeze has already run; reusing it here would always fail,
// since the raw spans are exactly what freezing replaced). Mirrors styles_de.py's apply_style_de_safe and
// styles_romance.py's apply_style_romance_safe, which both validate their
// still-frozen output the same way.
func freezeAndValidate(text string, fn func(frozen string) string) (string, invariants.Checks) {
	frozen, mapping := invariants.FreezeInvariants(text)
	out := fn(frozen)

	checks := invariants.Checks{CountsByType: map[string]int{}}
	ok := true
	for _, inv := range mapping {
		checks.CountsByType[inv.Type]++
		sentinel := "<|INV:" + strconv.Itoa(inv.ID) + ":" + inv.CRC + "|>"
		if !strings.Contains(out, sentinel) {
			ok = false
		}
	}
	// IsArtifactFree assumes invariants have already been unfrozen — it
	// flags an intact `<|INV:id:crc|>` sentinel itself as a leaked artifact
	// fragment, since it can't tell a well-formed sentinel from a mangled
	// one by shape alone. Since text here is still frozen, sentinel
	// survival (checked above) is the meaningful safety property; the
	// other Checks fields are trivially true in this still-frozen context.
	checks.HTMLOK = true
	checks.NumOK = true
	checks.PHOK = true
	checks.EmailOK = true
	checks.URLOK = true
	checks.ArtifactOK = true
	checks.ParenOK = ok
	checks.OK = ok

	if !checks.OK {
		return text, checks
	}
	out, _ = invariants.UnfreezeInvariants(out, mapping)
	return out, checks
}
