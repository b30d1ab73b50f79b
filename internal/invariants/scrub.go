package invariants

import (
	"regexp"
	"strings"
)

// rtlIsolates are the directional-isolate control characters (U+2066-2069)
// an MT model occasionally wraps around frozen spans when the target script
// is right-to-left. They carry no information once translation is done and
// are stripped outright.
var rtlIsolates = map[rune]bool{'⁦': true, '⁧': true, '⁨': true, '⁩': true}

const rareSymbol = '♰' // used by some MT backends as an internal span marker that occasionally leaks into output

func isNoiseRune(r rune) bool {
	return rtlIsolates[r] || r == rareSymbol
}

// sentinelFragmentRE matches a leaked sentinel-wrapper fragment
// ("INV:3:A1B2C3" or "|INV:3:A1B2C3|") that survived with its outer angle
// brackets stripped off by the model but is otherwise intact — there is no
// payload worth preserving here, just the sentinel scaffolding itself, so
// it is deleted outright. Mirrors invariants.py's two `<|INV:...|>` /
// `|INV:...|` removal subs.
var sentinelFragmentRE = regexp.MustCompile(`\|?\s*(?:INV|GLO)\s*:\s*\d+\s*:\s*[0-9A-Fa-f]{4,8}\s*\|?`)

// pipeCRCWrapRE matches a leaked pipe-CRC wrapper around an otherwise-intact
// raw invariant payload that was never a sentinel to begin with — e.g. a
// restored HTML tag or date that picked up a stray `|<p>:63ADA5|` /
// `|01.09.2025:F733BC|` wrapper somewhere in the round trip. Unlike
// sentinelFragmentRE, the wrapped inner content is recovered rather than
// deleted. Mirrors invariants.py's PIPE_CRC_WRAP_RE exactly (the inner
// group may itself contain ":", e.g. a wrapped URL, hence `[^|]+` rather
// than `[^:]+`).
var pipeCRCWrapRE = regexp.MustCompile(`\|([^|]+):[0-9A-Fa-f]{4,8}\|`)

var whitespaceRunRE = regexp.MustCompile(`[ \t]{2,}`)

// spaceBeforePunctRE collapses whitespace immediately preceding a sentence
// punctuation mark, mirroring invariants.py's `\s+([.,!?;:])` -> `\1` pass
// ("word ." -> "word.").
var spaceBeforePunctRE = regexp.MustCompile(`\s+([.,!?;:])`)

// ScrubArtifacts removes MT-introduced debris that unfreezing alone can't
// fix: stray directional isolates, the rare internal marker symbol, leaked
// sentinel fragments and pipe-CRC wrappers, angle brackets that don't
// belong to real markup, and spurious whitespace. Mirrors invariants.py's
// scrub_artifacts. The stray-bracket pass there relies on Python regex
// lookaround ((?!...)/(?<!...)), which Go's RE2 engine does not support;
// here it is reimplemented as a direct rune scan (stripAngleBracketNoise)
// with equivalent behavior.
func ScrubArtifacts(text string) string {
	var b strings.Builder
	for _, r := range text {
		if isNoiseRune(r) {
			continue
		}
		b.WriteRune(r)
	}
	out := b.String()

	out = stripAngleBracketNoise(out)
	out = sentinelFragmentRE.ReplaceAllString(out, "")

	out = whitespaceRunRE.ReplaceAllString(out, " ")
	out = spaceBeforePunctRE.ReplaceAllString(out, "$1")
	out = strings.TrimSpace(out)

	// Leaked pipe-CRC wrappers can themselves be nested (very rare but seen
	// in practice), so apply up to three idempotent passes, matching the
	// reference implementation's loop — run last, on the already-trimmed
	// text, since invariants.py applies PIPE_CRC_WRAP_RE after strip().
	for i := 0; i < 3; i++ {
		next := pipeCRCWrapRE.ReplaceAllString(out, "$1")
		if next == out {
			break
		}
		out = next
	}

	return out
}

// stripAngleBracketNoise removes '<' and '>' characters that are not part of
// a real HTML tag: a '<' is noise unless immediately followed by a letter,
// '/', or '!' (the start of a tag or comment); a '>' is noise unless
// immediately preceded by a letter, digit, '/', '"', a single quote, or '-' (the end of a
// tag, attribute, or comment). This is a direct rune-scan reimplementation
// of invariants.py's lookaround-based stray-bracket regex, since RE2 has no
// lookaround.
func stripAngleBracketNoise(s string) string {
	runes := []rune(s)
	keep := make([]bool, len(runes))
	for i := range keep {
		keep[i] = true
	}
	for i, r := range runes {
		switch r {
		case '<':
			if i+1 >= len(runes) || !isTagOpener(runes[i+1]) {
				keep[i] = false
			}
		case '>':
			if i == 0 || !isTagCloser(runes[i-1]) {
				keep[i] = false
			}
		}
	}
	var b strings.Builder
	for i, r := range runes {
		if keep[i] {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isTagOpener(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '/' || r == '!'
}

func isTagCloser(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') ||
		r == '/' || r == '"' || r == '\'' || r == '-'
}

// IsArtifactFree reports whether text is free of the residue ScrubArtifacts
// removes: directional isolates, the rare marker symbol, leaked sentinel
// fragments, and unpaired angle brackets.
func IsArtifactFree(text string) bool {
	for _, r := range text {
		if isNoiseRune(r) {
			return false
		}
	}
	if sentinelFragmentRE.MatchString(text) {
		return false
	}
	depth := 0
	for _, r := range text {
		if r == '<' {
			depth++
		} else if r == '>' {
			depth--
			if depth < 0 {
				return false
			}
		}
	}
	return depth == 0
}

// wrapperPairs are the (open, close) bracket/quote pairs an MT model
// sometimes adds around a frozen span's restored text, mirroring
// invariants.py's eight wrapper patterns (ASCII and fullwidth variants of
// parens, brackets, and quotes).
var wrapperPairs = [][2]string{
	{"(", ")"}, {"[", "]"},
	{"“", "”"}, {"‘", "’"},
	{"\"", "\""}, {"'", "'"},
	{"（", "）"}, {"【", "】"},
}

// UnwrapSpuriousWrappers strips a wrapper pair the model added around a
// restored (non-HTML) invariant's raw text, but only when that exact wrapped
// form was not already present in originalText — i.e. only when the wrapper
// is something the model introduced, not something the source author wrote
// on purpose. Mirrors invariants.py's unwrap_spurious_wrappers.
func UnwrapSpuriousWrappers(text string, mapping []Invariant, originalText string) string {
	for _, inv := range mapping {
		if inv.Type == TypeHTML || inv.Raw == "" {
			continue
		}
		for _, wp := range wrapperPairs {
			wrapped := wp[0] + inv.Raw + wp[1]
			if !strings.Contains(text, wrapped) {
				continue
			}
			if strings.Contains(originalText, wrapped) {
				continue // author's own wrapping, not the model's
			}
			text = strings.ReplaceAll(text, wrapped, inv.Raw)
		}
	}
	return text
}
