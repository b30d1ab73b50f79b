package style

import (
	"regexp"
	"strings"

	"github.com/askalator/trancelate-ANNI/internal/invariants"
)

// Pronoun/possessive register swaps for French, Italian, Spanish and
// Portuguese. These are deliberately conservative — pronouns and
// possessives only, no verb conjugation — mirroring styles_romance.py's own
// comment that this is a minimal, not exhaustive, mapping.
var (
	frInformal = []pairRE{
		{regexp.MustCompile(`\b[Vv]ous\b`), "tu"},
		{regexp.MustCompile(`\b[Vv]otre\b`), "ton"},
		{regexp.MustCompile(`\b[Vv]os\b`), "tes"},
	}
	frFormal = []pairRE{
		{regexp.MustCompile(`\b[Tt]u\b`), "vous"},
		{regexp.MustCompile(`\b[Tt]on\b`), "votre"},
		{regexp.MustCompile(`\b[Tt]a\b`), "votre"},
		{regexp.MustCompile(`\b[Tt]es\b`), "vos"},
	}

	itInformal = []pairRE{
		{regexp.MustCompile(`\b[Ll]ei\b`), "tu"},
		{regexp.MustCompile(`\b[Ll]e\b`), "ti"},
		{regexp.MustCompile(`\b[Ss]uo[ai]\b`), "tuo"},
		{regexp.MustCompile(`\b[Ss]uoi\b`), "tuoi"},
		{regexp.MustCompile(`\b[Ss]ue\b`), "tue"},
	}
	itFormal = []pairRE{
		{regexp.MustCompile(`\b[Tt]u\b`), "Lei"},
		{regexp.MustCompile(`\b[Tt]i\b`), "Le"},
		{regexp.MustCompile(`\b[Tt]uo[ai]\b`), "Suo"},
		{regexp.MustCompile(`\b[Tt]uoi\b`), "Suoi"},
		{regexp.MustCompile(`\b[Tt]ue\b`), "Sue"},
	}

	esInformal = []pairRE{
		{regexp.MustCompile(`\b[Uu]sted(es)?\b`), "tú"},
		{regexp.MustCompile(`\b[Ss]u(s)?\b`), "tu"},
		{regexp.MustCompile(`\b[Ll]e(s)?\b`), "te"},
	}
	esFormal = []pairRE{
		{regexp.MustCompile(`\b[Tt]ú([^\p{L}\p{N}_]|$)`), "usted$1"},
		{regexp.MustCompile(`\b[Tt]u\b`), "su"},
		{regexp.MustCompile(`\b[Tt]e\b`), "le"},
	}

	ptInformal = []pairRE{
		{regexp.MustCompile(`\b[Vv]ocês?([^\p{L}\p{N}_]|$)`), "tu$1"},
		{regexp.MustCompile(`\b[Ss]eu(s)?\b`), "teu"},
		{regexp.MustCompile(`\b[Ss]ua(s)?\b`), "tua"},
	}
	ptFormal = []pairRE{
		{regexp.MustCompile(`\b[Tt]u\b`), "você"},
		{regexp.MustCompile(`\b[Tt]eu(s)?\b`), "seu"},
		{regexp.MustCompile(`\b[Tt]ua(s)?\b`), "sua"},
	}
)

// ApplyStyleRomanceSafe rewrites T/V pronoun register for the given Romance
// engine code (fr/it/es/pt) and address ("du"/"informal" or
// "sie"/"formal"), operating on a frozen copy of text so the regex
// substitutions never touch a protected invariant span. Any other engine
// code, or an empty/"auto" address, leaves text untouched — mirroring
// styles_romance.py's early returns.
func ApplyStyleRomanceSafe(text, langEngine, address string) (string, invariants.Checks) {
	addr := strings.ToLower(address)
	le := strings.ToLower(langEngine)

	if addr == "" || addr == "auto" {
		return text, invariants.Checks{OK: true}
	}

	informal := addr == "du" || addr == "informal"
	formal := addr == "sie" || addr == "formal"

	var pairs []pairRE
	switch le {
	case "fr":
		pairs = pickPairs(informal, formal, frInformal, frFormal)
	case "it":
		pairs = pickPairs(informal, formal, itInformal, itFormal)
	case "es":
		pairs = pickPairs(informal, formal, esInformal, esFormal)
	case "pt":
		pairs = pickPairs(informal, formal, ptInformal, ptFormal)
	default:
		return text, invariants.Checks{OK: true}
	}
	if pairs == nil {
		return text, invariants.Checks{OK: true}
	}

	return freezeAndValidate(text, func(frozen string) string {
		return applyPairs(frozen, pairs)
	})
}

func pickPairs(informal, formal bool, infPairs, formPairs []pairRE) []pairRE {
	switch {
	case informal:
		return infPairs
	case formal:
		return formPairs
	default:
		return nil
	}
}
