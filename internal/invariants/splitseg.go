package invariants

// SplitAtSentinels splits frozen text into alternating literal-text and
// sentinel Segments (IsTag reused here to mean "is a sentinel, not
// translatable text" — the orchestrator's spans-only and interleave
// strategies use this to isolate translatable T-segments from the
// sentinels threaded through them, translating each T-segment
// independently and reassembling in source order).
func SplitAtSentinels(frozenText string) []Segment {
	locs := strictSentinelRE.FindAllStringIndex(frozenText, -1)
	if locs == nil {
		return []Segment{{Text: frozenText, IsTag: false}}
	}
	var segs []Segment
	cursor := 0
	for _, loc := range locs {
		if loc[0] > cursor {
			segs = append(segs, Segment{Text: frozenText[cursor:loc[0]], IsTag: false})
		}
		segs = append(segs, Segment{Text: frozenText[loc[0]:loc[1]], IsTag: true})
		cursor = loc[1]
	}
	if cursor < len(frozenText) {
		segs = append(segs, Segment{Text: frozenText[cursor:], IsTag: false})
	}
	return segs
}
