package api

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"unicode"
)

// detectCandidate is one ranked language guess.
type detectCandidate struct {
	Lang       string  `json:"lang"`
	Confidence float64 `json:"confidence"`
}

// scriptRange associates a Unicode range test with the engine language most
// strongly associated with it. This is a thin heuristic classifier, not a
// ported language-ID model: spec.md names /detect as an endpoint but places
// detection *engines* explicitly out of scope (§1), so counting which
// script each rune belongs to is the cheapest implementation that satisfies
// the endpoint contract without reaching for a model the spec forbids.
type scriptRange struct {
	lang  string
	in    func(r rune) bool
}

var scriptRanges = []scriptRange{
	{"ja", func(r rune) bool { return unicode.In(r, unicode.Hiragana, unicode.Katakana) }},
	{"ko", func(r rune) bool { return unicode.In(r, unicode.Hangul) }},
	{"zh", func(r rune) bool { return unicode.In(r, unicode.Han) }},
	{"ru", func(r rune) bool { return unicode.In(r, unicode.Cyrillic) }},
	{"ar", func(r rune) bool { return unicode.In(r, unicode.Arabic) }},
	{"he", func(r rune) bool { return unicode.In(r, unicode.Hebrew) }},
	{"th", func(r rune) bool { return unicode.In(r, unicode.Thai) }},
	{"el", func(r rune) bool { return unicode.In(r, unicode.Greek) }},
	{"hi", func(r rune) bool { return unicode.In(r, unicode.Devanagari) }},
	{"en", func(r rune) bool { return unicode.In(r, unicode.Latin) }},
}

// detectLanguage buckets every letter rune of text by script and returns
// the candidates ranked by the fraction of letters attributed to them,
// top-K first.
func detectLanguage(text string, topK int) []detectCandidate {
	counts := make(map[string]int, len(scriptRanges))
	total := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		total++
		for _, sr := range scriptRanges {
			if sr.in(r) {
				counts[sr.lang]++
				break // priority order above: first script match wins
			}
		}
	}
	if total == 0 {
		return []detectCandidate{{Lang: "en", Confidence: 0}}
	}

	out := make([]detectCandidate, 0, len(counts))
	for lang, n := range counts {
		out = append(out, detectCandidate{Lang: lang, Confidence: float64(n) / float64(total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Lang < out[j].Lang
	})
	if len(out) > topK {
		out = out[:topK]
	}
	return out
}

type detectRequestBody struct {
	Text string `json:"text"`
	TopK int    `json:"top_k,omitempty"`
}

// handleDetect implements both POST /detect (JSON body) and GET /detect
// (query-string form: ?text=...&top_k=...), per spec.md §6.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	var text string
	topK := 3

	switch r.Method {
	case http.MethodPost:
		var body detectRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		text = body.Text
		if body.TopK > 0 {
			topK = body.TopK
		}
	case http.MethodGet:
		text = r.URL.Query().Get("text")
		if n, err := strconv.Atoi(r.URL.Query().Get("top_k")); err == nil && n > 0 {
			topK = n
		}
	default:
		writeError(w, http.StatusMethodNotAllowed, "GET or POST only")
		return
	}

	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"candidates": detectLanguage(text, topK)})
}
