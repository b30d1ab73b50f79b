package pipeline

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/askalator/trancelate-ANNI/internal/cache"
	"github.com/askalator/trancelate-ANNI/internal/config"
	"github.com/askalator/trancelate-ANNI/internal/glossary"
	"github.com/askalator/trancelate-ANNI/internal/worker"
)

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()
	return cache.New(100, time.Hour)
}

// fakeWorker is a scripted workerClient: translateFn decides the output for
// a single TranslateOne/TranslateChunks call, keyed on nothing but the
// input text, so tests can simulate a worker that behaves well, drops
// invariants, loops, or returns gibberish.
type fakeWorker struct {
	translateFn func(text, src, tgt string) (string, error)
	calls       int
}

func (f *fakeWorker) TranslateOne(_ context.Context, text, src, tgt string) (string, error) {
	f.calls++
	return f.translateFn(text, src, tgt)
}

func (f *fakeWorker) TranslateChunks(_ context.Context, chunks []*worker.Chunk, src, tgt string) (time.Duration, error) {
	for _, ch := range chunks {
		f.calls++
		out, err := f.translateFn(ch.Text, src, tgt)
		if err != nil {
			return 0, err
		}
		ch.Out = out
	}
	return 0, nil
}

func newTestOrchestrator(t *testing.T, w workerClient) *Orchestrator {
	t.Helper()
	cfg := &config.Config{
		MaxWorkersGuard:     2,
		EnableStyleFilter:   true,
		StyleLangs:          []string{"de"},
		StyleDefaultAddress: "auto",
		StyleDefaultGender:  "none",
		PivotLangs:          []string{"km", "lo", "my"},
		PivotMidLang:        "en",
		LeakLatinMax:        0.15,
	}
	return &Orchestrator{cfg: cfg, worker: w}
}

func echoTranslate(prefix string) func(string, string, string) (string, error) {
	return func(text, src, tgt string) (string, error) {
		return prefix + text, nil
	}
}

func TestTranslate_DirectSuccessPreservesInvariants(t *testing.T) {
	fw := &fakeWorker{translateFn: echoTranslate("DE:")}
	o := newTestOrchestrator(t, fw)

	res, err := o.Translate(context.Background(), Request{
		SourceBCP47: "en-US",
		TargetBCP47: "de-DE",
		Text:        "Visit https://example.com today",
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(res.TranslatedText, "https://example.com") {
		t.Errorf("translated = %q, want URL preserved", res.TranslatedText)
	}
	if !res.Checks.OK {
		t.Errorf("checks = %+v, want ok", res.Checks)
	}
	if res.Fallback != "" {
		t.Errorf("fallback = %q, want direct (empty)", res.Fallback)
	}
}

func TestTranslate_WorkerErrorPropagates(t *testing.T) {
	fw := &fakeWorker{translateFn: func(text, src, tgt string) (string, error) {
		return "", errWorker
	}}
	o := newTestOrchestrator(t, fw)

	_, err := o.Translate(context.Background(), Request{
		SourceBCP47: "en-US", TargetBCP47: "de-DE", Text: "hello",
	})
	if err == nil {
		t.Fatal("want error when worker is unreachable")
	}
}

func TestTranslate_DegradedOutputFallsBackToSpansOnly(t *testing.T) {
	calls := 0
	fw := &fakeWorker{translateFn: func(text, src, tgt string) (string, error) {
		calls++
		if calls == 1 {
			return "aaaaaaaaaaaaaaaaaaaaaa", nil // trips the gibberish breaker
		}
		return "ok:" + text, nil
	}}
	o := newTestOrchestrator(t, fw)

	res, err := o.Translate(context.Background(), Request{
		SourceBCP47: "en-US", TargetBCP47: "fr-FR", Text: "Plain short text",
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if res.Fallback != "spans_only" || !res.Degraded {
		t.Errorf("result = %+v, want spans_only degraded fallback", res)
	}
}

func TestTranslate_ForceSpansOnly(t *testing.T) {
	fw := &fakeWorker{translateFn: echoTranslate("T:")}
	o := newTestOrchestrator(t, fw)

	res, err := o.Translate(context.Background(), Request{
		SourceBCP47: "en-US", TargetBCP47: "ja-JP", Text: "hello world",
		ForceSpansOnly: true,
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if res.Fallback != "force_spans_only" {
		t.Errorf("fallback = %q, want force_spans_only", res.Fallback)
	}
}

func TestTranslate_CacheHitSkipsWorker(t *testing.T) {
	fw := &fakeWorker{translateFn: echoTranslate("DE:")}
	o := newTestOrchestrator(t, fw)
	o.cache = newTestCache(t)

	req := Request{SourceBCP47: "en-US", TargetBCP47: "de-DE", Text: "repeat me"}
	res1, err := o.Translate(context.Background(), req)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	callsAfterFirst := fw.calls

	res2, err := o.Translate(context.Background(), req)
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if res2.CacheStatus != "hit" {
		t.Errorf("cache status = %q, want hit", res2.CacheStatus)
	}
	if fw.calls != callsAfterFirst {
		t.Errorf("worker called again on cache hit: %d -> %d", callsAfterFirst, fw.calls)
	}
	if res1.TranslatedText != res2.TranslatedText {
		t.Errorf("cached text mismatch: %q vs %q", res1.TranslatedText, res2.TranslatedText)
	}
}

func TestTranslate_GlossaryTermRestoredCanonical(t *testing.T) {
	fw := &fakeWorker{translateFn: echoTranslate("X:")}
	o := newTestOrchestrator(t, fw)

	res, err := o.Translate(context.Background(), Request{
		SourceBCP47: "en-US", TargetBCP47: "fr-FR", Text: "Use TranceLate now",
		GlossaryTerms: []glossary.Term{{Term: "TranceLate", Canonical: "TranceLate®", Langs: []string{"*"}}},
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(res.TranslatedText, "TranceLate®") {
		t.Errorf("translated = %q, want canonical brand form", res.TranslatedText)
	}
}

func TestAntiLoopGuard_RejectsRepeatingUnit(t *testing.T) {
	src := "hello there"
	out := strings.Repeat("ab", 20)
	if got := AntiLoopGuard(src, out); got != src {
		t.Errorf("got %q, want source substituted back", got)
	}
}

func TestAntiLoopGuard_AcceptsNormalOutput(t *testing.T) {
	src := "hello there"
	out := "hallo dort"
	if got := AntiLoopGuard(src, out); got != out {
		t.Errorf("got %q, want out unchanged", got)
	}
}

func TestAntiLoopGuard_RejectsRunawayLength(t *testing.T) {
	src := "hi"
	out := strings.Repeat("word ", 40)
	if got := AntiLoopGuard(src, out); got != src {
		t.Errorf("got %q, want source substituted back for runaway length", got)
	}
}

type sentinelErr struct{ s string }

func (e *sentinelErr) Error() string { return e.s }

var errWorker = &sentinelErr{"worker unreachable"}
