package invariants

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// UnfreezeStats summarizes how well a translated, sentinel-bearing text
// could be restored to its original invariants.
type UnfreezeStats struct {
	ReplacedTotal int // sentinels successfully substituted, across all three passes
	Missing       int // mapping entries whose Raw never made it into the output
	CRCMismatches int // sentinels whose embedded CRC didn't match the recorded one (tolerated, still substituted)
}

// strictSentinelRE matches a well-formed, unmangled sentinel exactly.
var strictSentinelRE = regexp.MustCompile(`<\|(INV|GLO):(\d+):([0-9A-Fa-f]{6})\|>`)

// simpleSentinelRE is deliberately looser than strict: it tolerates stray
// surrounding whitespace inside the delimiters, which MT models sometimes
// introduce ("< | INV : 3 : A1B2C3 | >").
var simpleSentinelRE = regexp.MustCompile(`<\s*\|\s*(INV|GLO)\s*:\s*(\d+)\s*:\s*([0-9A-Fa-f]{6})\s*\|\s*>`)

// looseSentinelRE matches the bare "INV:<id>:<crc>" core even when the
// model has dropped the angle-bracket/pipe delimiters entirely.
var looseSentinelRE = regexp.MustCompile(`(INV|GLO)\s*:\s*(\d+)\s*:\s*([0-9A-Fa-f]{6})`)

// UnfreezeInvariants restores sentinel tokens in text to their original raw
// spans using mapping, in three increasingly tolerant passes — STRICT on the
// raw text, then SIMPLE and LOOSE on a fullwidth-folded/NFKC-normalized copy
// with positions translated back via the index map. This mirrors
// invariants.py's unfreeze_invariants: neural MT output routinely survives
// the sentinel's digits and hex CRC while mangling the surrounding
// delimiters, so later passes exist specifically to recover those cases
// rather than to second-guess the first pass's work.
func UnfreezeInvariants(text string, mapping []Invariant) (string, UnfreezeStats) {
	byID := make(map[string]Invariant, len(mapping)) // key: "INV:<id>"; GLO matches find no entry and are left as they are
	for _, inv := range mapping {
		byID["INV:"+strconv.Itoa(inv.ID)] = inv
	}

	var stats UnfreezeStats
	out := substitutePass(text, strictSentinelRE, byID, &stats)
	normalized, idxMap := normalizeForMatching(out)
	out = substitutePassMapped(out, normalized, idxMap, simpleSentinelRE, byID, &stats)
	normalized, idxMap = normalizeForMatching(out)
	out = substitutePassMapped(out, normalized, idxMap, looseSentinelRE, byID, &stats)

	for _, inv := range mapping {
		if !strings.Contains(out, inv.Raw) {
			stats.Missing++
		}
	}
	return out, stats
}

// substitutePass runs one regex pass directly over text (used for the STRICT
// pass, where positions in text and the match are the same coordinate
// space).
func substitutePass(text string, re *regexp.Regexp, byID map[string]Invariant, stats *UnfreezeStats) string {
	return re.ReplaceAllStringFunc(text, func(m string) string {
		sub := re.FindStringSubmatch(m)
		return resolveSentinelMatch(sub, byID, stats)
	})
}

// substitutePassMapped runs a regex pass over normalized (a transformed copy
// of original) and splices the resolved replacement back into original using
// idxMap to translate normalized match boundaries to original byte offsets —
// since the replacement must land in the string being accumulated across
// passes, not in the throwaway normalized copy.
func substitutePassMapped(original, normalized string, idxMap []int, re *regexp.Regexp, byID map[string]Invariant, stats *UnfreezeStats) string {
	matches := re.FindAllStringSubmatchIndex(normalized, -1)
	if len(matches) == 0 {
		return original
	}
	var b strings.Builder
	cursor := 0
	for _, m := range matches {
		normStart, normEnd := m[0], m[1]
		if normStart >= len(idxMap) {
			continue
		}
		origStart := idxMap[normStart]
		origEnd := len(original)
		if normEnd-1 < len(idxMap) {
			last := idxMap[normEnd-1]
			_, w := utf8.DecodeRuneInString(original[last:])
			origEnd = last + w
		}
		if origStart < cursor {
			continue // overlaps a replacement already made by an earlier match
		}
		sub := make([]string, 0, len(m)/2)
		for i := 0; i < len(m); i += 2 {
			if m[i] < 0 {
				sub = append(sub, "")
				continue
			}
			sub = append(sub, normalized[m[i]:m[i+1]])
		}
		b.WriteString(original[cursor:origStart])
		b.WriteString(resolveSentinelMatch(sub, byID, stats))
		cursor = origEnd
	}
	b.WriteString(original[cursor:])
	return b.String()
}

// resolveSentinelMatch looks up the invariant named by a regex submatch
// (namespace, id, crc) and returns its raw text, counting a CRC mismatch
// when the embedded fingerprint doesn't match the recorded one. Unknown IDs
// (sentinel referencing a mapping entry that was never frozen, or already
// consumed) are left untouched, since stripping them would destroy
// information a later pass might still need.
func resolveSentinelMatch(sub []string, byID map[string]Invariant, stats *UnfreezeStats) string {
	if len(sub) < 4 {
		return sub[0]
	}
	key := sub[1] + ":" + sub[2]
	inv, ok := byID[key]
	if !ok {
		return sub[0]
	}
	if !strings.EqualFold(inv.CRC, sub[3]) {
		stats.CRCMismatches++
	}
	stats.ReplacedTotal++
	return inv.Raw
}
