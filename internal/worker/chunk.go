package worker

import "strings"

const defaultMaxChunkChars = 600

// ChunkText splits text into pieces no longer than maxChars, breaking on
// sentence boundaries (., !, ?) where possible rather than mid-sentence, so
// a chunk sent to the worker never splits a sentence if it can be avoided.
// A single sentence longer than maxChars is kept whole as one chunk, so such
// a chunk exceeds maxChars. A maxChars <= 0 uses the reference guard's default of 600.
// Mirrors mt_guard.py's chunk_text.
func ChunkText(text string, maxChars int) []string {
	if maxChars <= 0 {
		maxChars = defaultMaxChunkChars
	}
	if len(text) <= maxChars {
		return []string{text}
	}

	sentences := splitKeepingTerminators(text)

	var chunks []string
	var current strings.Builder
	for _, s := range sentences {
		if current.Len()+len(s) <= maxChars {
			current.WriteString(s)
			continue
		}
		if current.Len() > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(s)
	}
	if current.Len() > 0 {
		chunks = append(chunks, strings.TrimSpace(current.String()))
	}
	return chunks
}

// splitKeepingTerminators splits text after each run of ./!/? followed by
// whitespace, keeping the terminator attached to the sentence it ends,
// mirroring chunk_text's re.split(r"([.!?]+)\s+", text) pairing-up of
// alternating sentence/punctuation groups.
func splitKeepingTerminators(text string) []string {
	var out []string
	start := 0
	i := 0
	for i < len(text) {
		if text[i] == '.' || text[i] == '!' || text[i] == '?' {
			j := i
			for j < len(text) && (text[j] == '.' || text[j] == '!' || text[j] == '?') {
				j++
			}
			k := j
			for k < len(text) && isSpace(text[k]) {
				k++
			}
			if k > j {
				out = append(out, text[start:k])
				start = k
				i = k
				continue
			}
			i = j
			continue
		}
		i++
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
