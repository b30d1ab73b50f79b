// Package invariants detects substrings of a source text that must survive
// translation byte-for-byte (HTML markup, placeholders, URLs, emails, dates,
// times, currency amounts and bare numbers), replaces them with opaque
// sentinel tokens before the text reaches the MT worker, and restores the
// original substrings afterward — tolerating the token mangling neural MT
// models routinely apply to anything that looks like natural-language text.
//
// Grounded on the reference guard's invariants.py: PATTERNS, make_crc,
// freeze_invariants, unfreeze_invariants, scrub_artifacts,
// unwrap_spurious_wrappers and validate_invariants. Go's regexp package is
// RE2-based and has no lookaround, so scrub_artifacts's stray-bracket removal
// (which relies on Python's (?<!...)/(?!...)) is reimplemented here as a
// plain rune scan rather than ported as regex; every other piece is a direct
// structural port.
package invariants

import (
	"crypto/sha1" // #nosec G401 -- content fingerprint for sentinel matching, not a security boundary
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Invariant is one frozen span: its position in the mapping list is its ID,
// Type identifies which pattern matched, Raw is the original substring, and
// CRC is the short fingerprint embedded in the sentinel token.
type Invariant struct {
	ID   int
	Type string
	Raw  string
	CRC  string
}

// Sentinel types, in priority order. Earlier types win overlapping spans.
const (
	TypeHTML         = "html"
	TypeEmail        = "email"
	TypeURL          = "url"
	TypeTime         = "time"
	TypeDate         = "date"
	TypeCurrency     = "currency"
	TypePlaceholder1 = "placeholder1" // {name}
	TypePlaceholder2 = "placeholder2" // {{name}}
	TypeNumber       = "number"
	TypeKeepTerm     = "keep_term"
)

// currencySym and currencySep mirror invariants.py's CURRENCY_SYM/CURRENCY_SEP
// character classes, tolerant of the symbol/grouping conventions used across
// locales (comma or period as decimal separator, NBSP/narrow-NBSP as
// thousands separator). Defined as raw strings so the RE2 \x{...} hex escape
// reaches regexp.MustCompile literally instead of being interpreted by the Go
// string literal itself.
const (
	currencySym = `$€£¥₹₩₽`
	currencySep = `.,\x{00A0}\x{202F} `
)

// pattern pairs a compiled regex with the invariant type it produces.
// Order defines match priority: find_non_overlapping_matches walks this
// slice in order and a lower-priority pattern never displaces a span
// already claimed by an earlier one.
type pattern struct {
	typ string
	re  *regexp.Regexp
}

var patterns = []pattern{
	{TypeHTML, regexp.MustCompile(`</?[a-zA-Z][a-zA-Z0-9]*(?:\s+[a-zA-Z:][-a-zA-Z0-9:]*(?:\s*=\s*(?:"[^"]*"|'[^']*'|[^\s>]+))?)*\s*/?>|<!--.*?-->`)},
	{TypeEmail, regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)},
	{TypeURL, regexp.MustCompile(`(?:https?://|www\.)[^\s<>"']+`)},
	{TypeTime, regexp.MustCompile(`\b([01]?\d|2[0-3]):[0-5]\d(?::[0-5]\d)?\s*(?:[AaPp]\.?[Mm]\.?)?\b`)},
	{TypeDate, regexp.MustCompile(`\b(?:\d{4}-\d{2}-\d{2}|\d{1,2}/\d{1,2}/\d{2,4}|\d{1,2}\.\d{1,2}\.\d{2,4})\b`)},
	{TypeCurrency, regexp.MustCompile(`[` + currencySym + `]\s?\d[\d` + currencySep + `]*\d|\d[\d` + currencySep + `]*\d\s?[` + currencySym + `]`)},
	{TypePlaceholder1, regexp.MustCompile(`\{[A-Za-z_][A-Za-z0-9_]*\}`)},
	{TypePlaceholder2, regexp.MustCompile(`\{\{[A-Za-z_][A-Za-z0-9_.]*\}\}`)},
	{TypeNumber, regexp.MustCompile(`\b\d[\d,.\x{00A0}\x{202F}]*\d\b|\b\d\b`)},
}

// span is a claimed, non-overlapping match ready for freezing.
type span struct {
	start, end int
	text       string
	typ        string
}

// FindNonOverlappingMatches scans text with every pattern in priority order
// and returns the claimed spans sorted by start offset. A span from a
// lower-priority pattern is discarded whenever it overlaps a span already
// claimed by a higher-priority pattern — mirroring invariants.py's greedy
// priority scan rather than Go regexp's own (unordered) match semantics.
func FindNonOverlappingMatches(text string) []span {
	var claimed []span
	taken := func(s, e int) bool {
		for _, c := range claimed {
			if s < c.end && e > c.start {
				return true
			}
		}
		return false
	}
	for _, p := range patterns {
		for _, m := range p.re.FindAllStringIndex(text, -1) {
			if taken(m[0], m[1]) {
				continue
			}
			claimed = append(claimed, span{start: m[0], end: m[1], text: text[m[0]:m[1]], typ: p.typ})
		}
	}
	sort.Slice(claimed, func(i, j int) bool { return claimed[i].start < claimed[j].start })
	return claimed
}

// makeCRC fingerprints raw with the first six hex characters of its
// uppercased SHA-1 digest, matching invariants.py's make_crc exactly so that
// sentinels produced by either implementation are interchangeable.
func makeCRC(raw string) string {
	sum := sha1.Sum([]byte(raw)) // #nosec G401
	return strings.ToUpper(fmt.Sprintf("%x", sum))[:6]
}

// sentinel renders the wire form of a frozen invariant.
func sentinel(ns string, id int, crc string) string {
	return fmt.Sprintf("<|%s:%d:%s|>", ns, id, crc)
}

// isASCIIAlnum reports whether r is an ASCII letter or digit — used to decide
// whether a sentinel needs a padding space so it does not fuse with
// surrounding alphanumerics into something the MT model reads as one token.
func isASCIIAlnum(r byte) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// FreezeInvariants replaces every invariant span in text with an `INV`
// sentinel and returns the frozen text plus the ordered mapping needed to
// restore it. IDs are assigned in left-to-right order of the final spans,
// matching invariants.py's enumerate(matches) assignment.
func FreezeInvariants(text string) (string, []Invariant) {
	spans := FindNonOverlappingMatches(text)
	if len(spans) == 0 {
		return text, nil
	}

	var b strings.Builder
	mapping := make([]Invariant, 0, len(spans))
	cursor := 0
	for i, s := range spans {
		b.WriteString(text[cursor:s.start])
		crc := makeCRC(s.text)
		inv := Invariant{ID: i, Type: s.typ, Raw: s.text, CRC: crc}
		mapping = append(mapping, inv)

		// Pad with a space on either side when the adjacent original
		// character is ASCII alphanumeric, so the sentinel doesn't glue to
		// surrounding word characters (e.g. "v{X}2" -> "v <|INV:0:..|> 2").
		if s.start > 0 && isASCIIAlnum(text[s.start-1]) {
			b.WriteByte(' ')
		}
		b.WriteString(sentinel("INV", i, crc))
		if s.end < len(text) && isASCIIAlnum(text[s.end]) {
			b.WriteByte(' ')
		}
		cursor = s.end
	}
	b.WriteString(text[cursor:])
	return b.String(), mapping
}

// FreezeKeepTerms appends additional keep_term invariants for any literal
// term in keepTerms that is still present verbatim in frozenText, replacing
// each occurrence with its own INV sentinel. It mirrors
// invariants.py's _freeze_keep_terms_into: keep-terms are frozen last, after
// the structural passes, so they never compete with HTML/URL/etc. spans for
// priority.
func FreezeKeepTerms(frozenText string, mapping []Invariant, keepTerms []string) (string, []Invariant) {
	nextID := len(mapping)
	text := frozenText
	for _, term := range keepTerms {
		if term == "" {
			continue
		}
		crc := makeCRC(term)
		var b strings.Builder
		rest := text
		for {
			idx := strings.Index(rest, term)
			if idx < 0 {
				break
			}
			mapping = append(mapping, Invariant{ID: nextID, Type: TypeKeepTerm, Raw: term, CRC: crc})
			b.WriteString(rest[:idx])
			b.WriteString(sentinel("INV", nextID, crc))
			rest = rest[idx+len(term):]
			nextID++
		}
		b.WriteString(rest)
		text = b.String()
	}
	return text, mapping
}
