// Package glossary freezes brand/terminology terms before they reach the MT
// worker and restores their canonical spelling afterward, independently of
// the invariants sentinel namespace so the two never collide.
//
// Grounded on the reference guard's glossary.py in full: load_terms,
// _build_matchers, freeze_glossary, to_safe_tokens/from_safe_tokens and
// unfreeze_glossary are each ported structurally below.
package glossary

import (
	"crypto/sha1" // #nosec G401 -- content fingerprint for sentinel matching, not a security boundary
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Term is one glossary entry: Term is matched in the source text (literally
// or, when Regex is set, as a pattern), and Canonical is restored in its
// place after translation. Langs restricts which engine codes the term
// applies to; "*" means all.
type Term struct {
	Term      string
	Canonical string
	Langs     []string
	Regex     bool
}

// Entry is one frozen occurrence: Ph is the sentinel placed in the text, Raw
// is the canonical spelling to restore in its place. Unlike invariants.Raw,
// this Raw is the replacement text, not the originally matched text — a
// brand term is restored to its canonical form, which may differ from
// whatever casing/spelling the source used.
type Entry struct {
	Ph  string
	Raw string
}

// UnfreezeStats summarizes glossary restoration outcome.
type UnfreezeStats struct {
	ReplacedTotal int
	Missing       int
}

const sentinelFmt = "<|GLO:%d:%s|>"

func sha6(s string) string {
	sum := sha1.Sum([]byte(s)) // #nosec G401
	return strings.ToUpper(fmt.Sprintf("%x", sum))[:6]
}

// tolerantRE tolerates fullwidth bracket/pipe variants and optional CRC
// suffix an MT model may introduce around a GLO sentinel, mirroring
// glossary.py's _TOL_RE.
var tolerantRE = regexp.MustCompile(`[<＜《【]?\s*[|｜︱∣]?\s*G\s*L\s*O\s*[:：| ]\s*(\d{1,4})\s*(?:[:：| ]\s*([0-9A-Fa-f]{4,8}))?\s*[|｜︱∣]?\s*[>＞》】]?`)

// termsDoc is the on-disk glossary file shape: {"terms": [...]}.
type termsDoc struct {
	Terms []struct {
		Term      string   `json:"term"`
		Canonical string   `json:"canonical"`
		Langs     []string `json:"langs"`
		Regex     bool     `json:"regex"`
	} `json:"terms"`
}

// LoadTerms reads glossary terms from a JSON file (if path is non-empty and
// exists) and/or a comma-separated env-style list, then deduplicates by
// (canonical, sorted langs). A load error on the file is treated as "no
// file" rather than fatal, since an operator-editable glossary file is
// expected to occasionally be mid-edit or briefly malformed.
func LoadTerms(path string, envTerms string) []Term {
	var terms []Term

	if path != "" {
		if data, err := os.ReadFile(path); err == nil {
			var doc termsDoc
			if jsonErr := json.Unmarshal(data, &doc); jsonErr == nil {
				for _, t := range doc.Terms {
					if t.Term == "" {
						continue
					}
					canon := t.Canonical
					if canon == "" {
						canon = t.Term
					}
					langs := t.Langs
					if len(langs) == 0 {
						langs = []string{"*"}
					}
					terms = append(terms, Term{Term: t.Term, Canonical: canon, Langs: langs, Regex: t.Regex})
				}
			}
		}
	}

	if envTerms != "" {
		for _, raw := range strings.Split(envTerms, ",") {
			w := strings.TrimSpace(raw)
			if w != "" {
				terms = append(terms, Term{Term: w, Canonical: w, Langs: []string{"*"}})
			}
		}
	}

	seen := make(map[string]bool)
	out := make([]Term, 0, len(terms))
	for _, t := range terms {
		langsKey := append([]string(nil), t.Langs...)
		sort.Strings(langsKey)
		key := t.Canonical + "\x00" + strings.Join(langsKey, ",")
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// matcher pairs a compiled pattern with the canonical replacement it yields.
type matcher struct {
	re     *regexp.Regexp
	canon  string
	length int // source pattern length, for longest-match-first ordering
}

var hasLatinLetter = regexp.MustCompile(`[A-Za-z]`)

// buildMatchers compiles the subset of terms applicable to langEngine into
// ordered matchers, longest pattern source first so a multi-word term is
// never partially shadowed by a shorter one it contains.
func buildMatchers(terms []Term, langEngine string) []matcher {
	ms := make([]matcher, 0, len(terms))
	for _, t := range terms {
		applies := false
		for _, l := range t.Langs {
			if l == "*" || l == langEngine {
				applies = true
				break
			}
		}
		if !applies {
			continue
		}

		var re *regexp.Regexp
		if t.Regex {
			re = regexp.MustCompile(t.Term)
		} else if hasLatinLetter.MatchString(t.Term) {
			re = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t.Term) + `\b`)
		} else {
			re = regexp.MustCompile(regexp.QuoteMeta(t.Term))
		}
		ms = append(ms, matcher{re: re, canon: t.Canonical, length: len(re.String())})
	}
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].length > ms[j].length })
	return ms
}

// FreezeGlossary replaces every matched term with a GLO sentinel, longest
// term first, and returns the frozen text plus the ordered entries needed to
// restore it.
func FreezeGlossary(text, langEngine string, terms []Term) (string, []Entry) {
	if len(terms) == 0 {
		return text, nil
	}
	var mapping []Entry
	idx := 0
	out := text
	for _, m := range buildMatchers(terms, langEngine) {
		out = m.re.ReplaceAllStringFunc(out, func(match string) string {
			ph := fmt.Sprintf(sentinelFmt, idx, sha6(match))
			mapping = append(mapping, Entry{Ph: ph, Raw: m.canon})
			idx++
			return ph
		})
	}
	return out, mapping
}

// ToSafeTokens rewrites every `<|GLO:id:crc|>` sentinel in text to the
// ASCII-only transport form `[#GLO:id#]`, so a model that treats pipes and
// angle brackets as meaningful markup doesn't mangle the sentinel itself.
func ToSafeTokens(text string, mapping []Entry) string {
	out := text
	for i, m := range mapping {
		if m.Ph == "" {
			continue
		}
		out = strings.ReplaceAll(out, m.Ph, fmt.Sprintf("[#GLO:%d#]", i))
	}
	return out
}

// FromSafeTokens reverses ToSafeTokens, restoring the `<|GLO:id:crc|>` form
// before UnfreezeGlossary runs.
func FromSafeTokens(text string, mapping []Entry) string {
	out := text
	for i, m := range mapping {
		if m.Ph == "" {
			continue
		}
		out = strings.ReplaceAll(out, fmt.Sprintf("[#GLO:%d#]", i), m.Ph)
	}
	return out
}

// UnfreezeGlossary restores every glossary entry in text, in three
// decreasing levels of strictness: an exact sentinel match, a tolerant regex
// match keyed by the entry's index, and finally — if the sentinel is gone
// entirely — a check for whether the canonical term already survived
// translation verbatim (brand names often do). An entry that fails all
// three is counted missing rather than forcibly reinserted, since doing so
// risks duplicating a term the model already translated faithfully.
func UnfreezeGlossary(text string, mapping []Entry) (string, UnfreezeStats) {
	if len(mapping) == 0 {
		return text, UnfreezeStats{}
	}
	out := text
	var stats UnfreezeStats

	for i, m := range mapping {
		if strings.Contains(out, m.Ph) {
			out = strings.ReplaceAll(out, m.Ph, m.Raw)
			stats.ReplacedTotal++
			continue
		}

		matchedAny := false
		wantID := strconv.Itoa(i)
		out2 := tolerantRE.ReplaceAllStringFunc(out, func(match string) string {
			sub := tolerantRE.FindStringSubmatch(match)
			if len(sub) > 1 && sub[1] == wantID {
				matchedAny = true
				return m.Raw
			}
			return match
		})
		if matchedAny {
			out = out2
			stats.ReplacedTotal++
			continue
		}

		if hasLatinLetter.MatchString(m.Raw) {
			survived := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(m.Raw) + `\b`)
			if survived.MatchString(out) {
				stats.ReplacedTotal++
				continue
			}
		} else if strings.Contains(out, m.Raw) {
			stats.ReplacedTotal++
			continue
		}

		stats.Missing++
	}
	return out, stats
}
