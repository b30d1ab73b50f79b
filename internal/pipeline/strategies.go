package pipeline

import (
	"context"
	"strings"

	"github.com/askalator/trancelate-ANNI/internal/glossary"
	"github.com/askalator/trancelate-ANNI/internal/invariants"
	"github.com/askalator/trancelate-ANNI/internal/worker"
)

// spansOnlyStrategy implements both the Spans-only and Invariant-interleave
// strategies from spec.md §4.G — they differ only in whether the text is
// first split along HTML tag boundaries. Each resulting text run is frozen
// (glossary then invariants) independently, split at sentinel boundaries,
// and only the translatable T-segments between sentinels are ever sent to
// the worker — so a frozen sentinel can never reach the model at all in
// this path, unlike Direct, which has to round-trip sentinels through the
// model and therefore needs the ASCII-safe transport form.
func (o *Orchestrator) spansOnlyStrategy(ctx context.Context, text, srcEngine, tgtEngine string, terms []glossary.Term, splitHTML bool) (string, invariants.Checks, error) {
	var runs []invariants.Segment
	if splitHTML {
		runs = invariants.SplitHTML(text)
	} else {
		runs = []invariants.Segment{{Text: text, IsTag: false}}
	}

	type frozenRun struct {
		segs []invariants.Segment // sentinel split of this run's frozen text
		iMap []invariants.Invariant
		gMap []glossary.Entry
		tag  bool
	}

	frozenRuns := make([]frozenRun, len(runs))
	var allTexts []string
	var allIdx [][2]int // (runIndex, segIndex) for every translatable segment, in order

	for ri, run := range runs {
		if run.IsTag {
			frozenRuns[ri] = frozenRun{tag: true}
			continue
		}
		gFrozen, gMap := glossary.FreezeGlossary(run.Text, tgtEngine, terms)
		iFrozen, iMap := invariants.FreezeInvariants(gFrozen)
		segs := invariants.SplitAtSentinels(iFrozen)
		frozenRuns[ri] = frozenRun{segs: segs, iMap: iMap, gMap: gMap}
		for si, seg := range segs {
			if seg.IsTag || invariants.IsNoiseSegment(seg.Text) {
				continue
			}
			allTexts = append(allTexts, seg.Text)
			allIdx = append(allIdx, [2]int{ri, si})
		}
	}

	translated, err := o.translateSegments(ctx, allTexts, srcEngine, tgtEngine)
	if err != nil {
		return "", invariants.Checks{}, err
	}

	translatedBySeg := make(map[[2]int]string, len(allIdx))
	for i, idx := range allIdx {
		src := allTexts[i]
		out := translated[i]
		translatedBySeg[idx] = AntiLoopGuard(src, out)
	}

	var b strings.Builder
	var combinedInv []invariants.Invariant
	for ri, run := range runs {
		if run.IsTag {
			b.WriteString(run.Text)
			continue
		}
		fr := frozenRuns[ri]
		var rb strings.Builder
		for si, seg := range fr.segs {
			if seg.IsTag {
				rb.WriteString(seg.Text)
				continue
			}
			if invariants.IsNoiseSegment(seg.Text) {
				rb.WriteString(seg.Text)
				continue
			}
			rb.WriteString(translatedBySeg[[2]int{ri, si}])
		}
		restored := rb.String()
		restored, _ = invariants.UnfreezeInvariants(restored, fr.iMap)
		restored, _ = glossary.UnfreezeGlossary(restored, fr.gMap)
		restored = invariants.ScrubArtifacts(restored)
		restored = invariants.UnwrapSpuriousWrappers(restored, fr.iMap, run.Text)
		b.WriteString(restored)
		combinedInv = append(combinedInv, fr.iMap...)
	}

	out := b.String()
	checks := invariants.ValidateInvariants(text, out, combinedInv)
	return out, checks, nil
}

// translateSegments translates each distinct text in texts exactly once
// (deduplicating repeats so the worker is never asked to translate the same
// short span twice within one request) via the worker's batch-with-fallback
// call, then expands the results back out to align with texts' original
// order and duplicates.
func (o *Orchestrator) translateSegments(ctx context.Context, texts []string, srcEngine, tgtEngine string) ([]string, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	unique := make(map[string]*worker.Chunk, len(texts))
	var chunks []*worker.Chunk
	for _, t := range texts {
		if _, ok := unique[t]; ok {
			continue
		}
		ch := &worker.Chunk{Text: t}
		unique[t] = ch
		chunks = append(chunks, ch)
	}
	if _, err := o.worker.TranslateChunks(ctx, chunks, srcEngine, tgtEngine); err != nil {
		return nil, err
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = unique[t].Out
	}
	return out, nil
}

// interleaveFallback re-runs translation with the invariant-interleave
// strategy (spansOnlyStrategy with splitHTML=false) and reports whether its
// result is strictly better than the direct attempt's — i.e. it passes
// validation where direct didn't.
func (o *Orchestrator) interleaveFallback(ctx context.Context, text, srcEngine, tgtEngine string, terms []glossary.Term, directChecks invariants.Checks) (string, invariants.Checks, bool) {
	out, checks, err := o.spansOnlyStrategy(ctx, text, srcEngine, tgtEngine, terms, false)
	if err != nil {
		return "", invariants.Checks{}, false
	}
	return out, checks, checks.OK && !directChecks.OK
}

// outerHTMLStrategy implements the v3b fallback: strip all HTML tags,
// freeze only the non-HTML invariants left in the stripped visible text
// (freezing naturally finds no HTML spans once the tags are gone, so no
// separate "non-HTML" freeze entry point is needed), translate, restore,
// and re-wrap the result with the outermost opening/closing tag pair
// recorded in the original text's full invariant mapping.
func (o *Orchestrator) outerHTMLStrategy(ctx context.Context, text, srcEngine, tgtEngine string, terms []glossary.Term) (string, invariants.Checks, bool) {
	_, fullMapping := invariants.FreezeInvariants(text)
	firstTag, lastTag, hasTags := invariants.OuterTags(fullMapping)
	if !hasTags {
		return "", invariants.Checks{}, false
	}

	var visible strings.Builder
	for _, seg := range invariants.SplitHTML(text) {
		if !seg.IsTag {
			visible.WriteString(seg.Text)
		}
	}
	visibleText := visible.String()

	gFrozen, gMap := glossary.FreezeGlossary(visibleText, tgtEngine, terms)
	iFrozen, iMap := invariants.FreezeInvariants(gFrozen)
	safeText := glossary.ToSafeTokens(iFrozen, gMap)

	rawOut, err := o.worker.TranslateOne(ctx, safeText, srcEngine, tgtEngine)
	if err != nil {
		return "", invariants.Checks{}, false
	}

	restored := glossary.FromSafeTokens(rawOut, gMap)
	restored, _ = invariants.UnfreezeInvariants(restored, iMap)
	restored, _ = glossary.UnfreezeGlossary(restored, gMap)
	restored = invariants.ScrubArtifacts(restored)
	restored = invariants.UnwrapSpuriousWrappers(restored, iMap, visibleText)
	checks := invariants.ValidateInvariants(visibleText, restored, iMap)

	final := firstTag + restored + lastTag
	return final, checks, checks.OK
}
