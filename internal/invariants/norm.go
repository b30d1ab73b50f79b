package invariants

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// fullwidthFold maps the fullwidth forms an MT model sometimes substitutes
// for ASCII punctuation inside a mangled sentinel (fullwidth digits, colon,
// pipe, angle brackets) back to their ASCII originals, mirroring
// invariants.py's fold_fullwidth_to_ascii translation table. Zero-width
// characters it also strips are handled separately in normalizeForMatching,
// since removing them shifts positions and needs to flow through the index
// map rather than a 1:1 rune substitution.
var fullwidthFold = map[rune]rune{
	'0': '0', // placeholder entry documents intent; real digits below
}

func init() {
	// Fullwidth digits U+FF10-FF19 -> ASCII 0-9.
	for d := rune(0); d <= 9; d++ {
		fullwidthFold[0xFF10+d] = '0' + d
	}
	// Fullwidth uppercase hex letters A-F (used in CRCs) U+FF21-FF26.
	for i, r := range []rune("ABCDEF") {
		fullwidthFold[0xFF21+rune(i)] = r
	}
	fullwidthFold['：'] = ':' // fullwidth colon
	fullwidthFold['｜'] = '|' // fullwidth vertical line
	fullwidthFold['＜'] = '<' // fullwidth less-than
	fullwidthFold['＞'] = '>' // fullwidth greater-than
	fullwidthFold['＃'] = '#' // fullwidth number sign
}

// zeroWidth are the zero-width characters an MT model sometimes inserts
// mid-token (BOM, ZWSP, ZWNJ, ZWJ, soft hyphen) — these are dropped entirely
// rather than folded, since they have no ASCII equivalent.
var zeroWidth = map[rune]bool{
	0xFEFF: true, 0x200B: true, 0x200C: true, 0x200D: true, 0x00AD: true,
}

// normalizeForMatching produces a fullwidth-folded, NFKC-normalized copy of s
// for the SIMPLE/LOOSE matching passes, plus an index map from each byte
// offset in the normalized string back to the originating byte offset in s,
// so a match found in the normalized text can be translated back to a real
// position in the original for substitution. Folding runs rune-by-rune over
// s directly (rather than over an already-NFKC-composed copy) so the index
// map stays a simple one-pass correspondence; NFKC is applied per rune via
// norm.NFKC.String on single-rune strings, which is sufficient for the
// fullwidth/compatibility forms this is meant to catch and avoids the
// multi-rune composition shifts a whole-string NFKC pass would introduce.
// Mirrors invariants.py's normalize_for_inv_matching.
func normalizeForMatching(s string) (string, []int) {
	var b strings.Builder
	idx := make([]int, 0, len(s))
	byteOffset := 0
	for _, r := range s {
		w := len(string(r))
		if zeroWidth[r] {
			byteOffset += w
			continue
		}
		out := r
		if folded, ok := fullwidthFold[r]; ok {
			out = folded
		} else if composed := norm.NFKC.String(string(r)); composed != string(r) && len([]rune(composed)) == 1 {
			out = []rune(composed)[0]
		}
		outStr := string(out)
		for i := 0; i < len(outStr); i++ {
			idx = append(idx, byteOffset)
		}
		b.WriteString(outStr)
		byteOffset += w
	}
	return b.String(), idx
}
