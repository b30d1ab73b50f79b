package invariants

import (
	"strings"

	"golang.org/x/net/html"
)

// Segment is one piece of text split along HTML tag boundaries: either a
// literal tag (IsTag true, never translated) or a run of surrounding text
// (IsTag false, eligible for translation). Used by the orchestrator's
// spans-only and outer-HTML strategies to isolate visible text from markup.
type Segment struct {
	Text  string
	IsTag bool
}

// HasHTML reports whether text contains at least one HTML start/end tag or
// comment, tokenized with x/net/html's lower-level Tokenizer rather than
// html.Parse — a DOM build would normalize whitespace and attribute
// quoting, which would break the byte-exact round trip the spans-only and
// outer-HTML strategies depend on.
func HasHTML(text string) bool {
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		switch z.Next() {
		case html.ErrorToken:
			return false
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken, html.CommentToken:
			return true
		}
	}
}

// SplitHTML splits text into alternating tag/non-tag Segments in source
// order, by tokenizing with x/net/html. Runs of text/doctype tokens between
// two tag tokens are coalesced into a single non-tag Segment, matching the
// one-run-between-tags shape the old regex-based split produced.
func SplitHTML(text string) []Segment {
	z := html.NewTokenizer(strings.NewReader(text))
	var segs []Segment
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := string(z.Raw())
		if raw == "" {
			continue
		}
		isTag := tt == html.StartTagToken || tt == html.EndTagToken ||
			tt == html.SelfClosingTagToken || tt == html.CommentToken
		segs = append(segs, Segment{Text: raw, IsTag: isTag})
	}
	if len(segs) == 0 {
		return []Segment{{Text: text, IsTag: false}}
	}
	return mergeAdjacentText(segs)
}

func mergeAdjacentText(segs []Segment) []Segment {
	out := make([]Segment, 0, len(segs))
	for _, s := range segs {
		if n := len(out); n > 0 && !out[n-1].IsTag && !s.IsTag {
			out[n-1].Text += s.Text
			continue
		}
		out = append(out, s)
	}
	return out
}

// OuterTags returns the first opening tag and last closing tag recorded
// among mapping's html-type invariants, for outer-HTML re-wrapping after a
// v3b fallback strips all tags from the visible text. ok is false if
// mapping contains no html invariant.
func OuterTags(mapping []Invariant) (first, last string, ok bool) {
	for _, inv := range mapping {
		if inv.Type != TypeHTML {
			continue
		}
		if first == "" {
			first = inv.Raw
		}
		last = inv.Raw
		ok = true
	}
	return first, last, ok
}

// IsNoiseSegment reports whether a text segment is too insubstantial to
// bother sending to the worker: empty, pure whitespace, or any single
// character (a lone letter or digit counts as noise too). Mirrors the spans-only strategy's
// pass-through rule for noise segments.
func IsNoiseSegment(s string) bool {
	trimmed := trimSpaceASCII(s)
	if trimmed == "" {
		return true
	}
	if len([]rune(s)) <= 1 {
		return true
	}
	return false
}

func trimSpaceASCII(s string) string {
	i, j := 0, len(s)
	for i < j && isASCIISpace(s[i]) {
		i++
	}
	for j > i && isASCIISpace(s[j-1]) {
		j--
	}
	return s[i:j]
}

func isASCIISpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
