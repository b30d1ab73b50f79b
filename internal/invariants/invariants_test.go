package invariants

import (
	"strings"
	"testing"
)

func TestFreezeInvariants_HTMLAndPlaceholder(t *testing.T) {
	text := `Click <a href="https://example.com">here</a> to use {code}.`
	frozen, mapping := FreezeInvariants(text)

	if len(mapping) != 3 {
		t.Fatalf("mapping len = %d, want 3 (open tag, close tag, placeholder); got %+v", len(mapping), mapping)
	}
	if strings.Contains(frozen, "https://example.com") {
		t.Error("URL inside the anchor tag should have been absorbed into the html span, not left bare")
	}
	if !strings.Contains(frozen, "<|INV:") {
		t.Error("frozen text should contain an INV sentinel")
	}
}

func TestFreezeInvariants_NoMatches(t *testing.T) {
	text := "plain sentence with nothing special"
	frozen, mapping := FreezeInvariants(text)
	if frozen != text {
		t.Errorf("frozen = %q, want unchanged %q", frozen, text)
	}
	if mapping != nil {
		t.Errorf("mapping = %v, want nil", mapping)
	}
}

func TestFreezeInvariants_Email(t *testing.T) {
	text := "Contact support@example.com for help."
	_, mapping := FreezeInvariants(text)
	if len(mapping) != 1 || mapping[0].Type != TypeEmail {
		t.Fatalf("mapping = %+v, want single email invariant", mapping)
	}
	if mapping[0].Raw != "support@example.com" {
		t.Errorf("Raw = %q", mapping[0].Raw)
	}
}

func TestFreezeInvariants_CurrencyBeatsNumber(t *testing.T) {
	text := "Total: $1,234.56 due."
	_, mapping := FreezeInvariants(text)
	if len(mapping) != 1 || mapping[0].Type != TypeCurrency {
		t.Fatalf("mapping = %+v, want single currency invariant", mapping)
	}
}

func TestFreezeInvariants_PlaceholderSpacingAvoidsGluing(t *testing.T) {
	text := "v{code}2"
	frozen, _ := FreezeInvariants(text)
	if strings.Contains(frozen, "v<|INV") || strings.Contains(frozen, "|>2") {
		t.Errorf("frozen = %q, expected spacing padding around sentinel adjacent to alnum chars", frozen)
	}
}

func TestUnfreezeInvariants_StrictPass(t *testing.T) {
	text := "Save {amount} now."
	frozen, mapping := FreezeInvariants(text)

	// Simulate an MT worker translating the surrounding text but passing
	// the sentinel through untouched.
	translated := strings.Replace(frozen, "Save", "Sauvegardez", 1)

	out, stats := UnfreezeInvariants(translated, mapping)
	if !strings.Contains(out, "{amount}") {
		t.Errorf("out = %q, want placeholder restored", out)
	}
	if stats.ReplacedTotal != 1 {
		t.Errorf("ReplacedTotal = %d, want 1", stats.ReplacedTotal)
	}
	if stats.Missing != 0 {
		t.Errorf("Missing = %d, want 0", stats.Missing)
	}
}

func TestUnfreezeInvariants_SimplePassToleratesStraySpacing(t *testing.T) {
	mapping := []Invariant{{ID: 0, Type: TypePlaceholder1, Raw: "{amount}", CRC: makeCRC("{amount}")}}
	mangled := "Pay < | INV : 0 : " + mapping[0].CRC + " | > now."

	out, stats := UnfreezeInvariants(mangled, mapping)
	if !strings.Contains(out, "{amount}") {
		t.Errorf("out = %q, want placeholder restored via SIMPLE pass", out)
	}
	if stats.ReplacedTotal != 1 {
		t.Errorf("ReplacedTotal = %d, want 1", stats.ReplacedTotal)
	}
}

func TestUnfreezeInvariants_LoosePassBareSentinel(t *testing.T) {
	mapping := []Invariant{{ID: 0, Type: TypeNumber, Raw: "42", CRC: makeCRC("42")}}
	mangled := "Count is INV:0:" + mapping[0].CRC + " items."

	out, stats := UnfreezeInvariants(mangled, mapping)
	if !strings.Contains(out, "42") {
		t.Errorf("out = %q, want number restored via LOOSE pass", out)
	}
	if stats.ReplacedTotal != 1 {
		t.Errorf("ReplacedTotal = %d, want 1", stats.ReplacedTotal)
	}
}

func TestUnfreezeInvariants_MissingWhenSentinelLost(t *testing.T) {
	mapping := []Invariant{{ID: 0, Type: TypeURL, Raw: "https://example.com", CRC: makeCRC("https://example.com")}}
	out, stats := UnfreezeInvariants("the link is gone", mapping)
	if stats.Missing != 1 {
		t.Errorf("Missing = %d, want 1", stats.Missing)
	}
	if strings.Contains(out, "https://") {
		t.Error("no URL should have been restored")
	}
}

func TestUnfreezeInvariants_CRCMismatchStillSubstitutesTolerantly(t *testing.T) {
	mapping := []Invariant{{ID: 0, Type: TypeNumber, Raw: "99", CRC: "ABCDEF"}}
	text := "<|INV:0:FFFFFF|> widgets" // wrong CRC, same ID
	out, stats := UnfreezeInvariants(text, mapping)
	if !strings.Contains(out, "99") {
		t.Errorf("out = %q, want substitution despite CRC mismatch", out)
	}
	if stats.CRCMismatches != 1 {
		t.Errorf("CRCMismatches = %d, want 1", stats.CRCMismatches)
	}
}

func TestFreezeKeepTerms_AppendsAndReplaces(t *testing.T) {
	frozen, mapping := FreezeInvariants("Our product is great.")
	frozen, mapping = FreezeKeepTerms(frozen, mapping, []string{"product"})
	if len(mapping) != 1 || mapping[0].Type != TypeKeepTerm {
		t.Fatalf("mapping = %+v, want single keep_term invariant", mapping)
	}
	if strings.Contains(frozen, "product") {
		t.Errorf("frozen = %q, keep term should have been replaced with a sentinel", frozen)
	}
}

func TestFreezeKeepTerms_TermNotPresentIsNoOp(t *testing.T) {
	frozen, mapping := FreezeInvariants("hello world")
	frozen2, mapping2 := FreezeKeepTerms(frozen, mapping, []string{"absent"})
	if frozen2 != frozen || len(mapping2) != len(mapping) {
		t.Error("FreezeKeepTerms should be a no-op when the term isn't present")
	}
}

func TestScrubArtifacts_RemovesRTLIsolatesAndRareSymbol(t *testing.T) {
	text := "hello ⁦world⁩ ♰ done"
	out := ScrubArtifacts(text)
	if strings.ContainsAny(out, "⁦⁧⁨⁩♰") {
		t.Errorf("out = %q, artifacts should be removed", out)
	}
}

func TestScrubArtifacts_RemovesLeakedSentinelFragment(t *testing.T) {
	text := "value is |INV:3:ABCDEF| leftover"
	out := ScrubArtifacts(text)
	if strings.Contains(out, "INV:3:ABCDEF") {
		t.Errorf("out = %q, leaked sentinel fragment should be scrubbed", out)
	}
}

func TestScrubArtifacts_RemovesStrayAngleBracket(t *testing.T) {
	text := "5 < 10 but <b>bold</b> stays"
	out := ScrubArtifacts(text)
	if strings.Contains(out, "5 <") {
		t.Errorf("out = %q, stray less-than should be removed", out)
	}
	if !strings.Contains(out, "<b>bold</b>") {
		t.Errorf("out = %q, real tag should survive", out)
	}
}

func TestIsArtifactFree(t *testing.T) {
	if !IsArtifactFree("clean text <b>bold</b>") {
		t.Error("expected clean text to be artifact-free")
	}
	if IsArtifactFree("broken > bracket") {
		t.Error("unbalanced angle bracket should not be artifact-free")
	}
}

func TestUnwrapSpuriousWrappers_StripsModelAddedParens(t *testing.T) {
	mapping := []Invariant{{ID: 0, Type: TypeNumber, Raw: "42"}}
	text := "the count is (42) exactly"
	out := UnwrapSpuriousWrappers(text, mapping, "the count is 42 exactly")
	if out != "the count is 42 exactly" {
		t.Errorf("out = %q, want wrapper stripped", out)
	}
}

func TestUnwrapSpuriousWrappers_PreservesAuthorsOwnWrapping(t *testing.T) {
	mapping := []Invariant{{ID: 0, Type: TypeNumber, Raw: "42"}}
	text := "the count is (42) exactly"
	out := UnwrapSpuriousWrappers(text, mapping, "the count is (42) exactly")
	if out != text {
		t.Errorf("out = %q, want unchanged since author wrote the parens", out)
	}
}

func TestValidateInvariants_OKWhenEverythingSurvives(t *testing.T) {
	original := `See <a href="https://x.com">link</a> and email a@b.com`
	frozen, mapping := FreezeInvariants(original)
	out, _ := UnfreezeInvariants(frozen, mapping)

	checks := ValidateInvariants(original, out, mapping)
	if !checks.OK {
		t.Errorf("checks = %+v, want OK", checks)
	}
	if checks.CountsByType[TypeHTML] != 2 {
		t.Errorf("CountsByType[html] = %d, want 2", checks.CountsByType[TypeHTML])
	}
}

func TestValidateInvariants_FailsWhenInvariantDropped(t *testing.T) {
	mapping := []Invariant{{ID: 0, Type: TypeEmail, Raw: "a@b.com"}}
	checks := ValidateInvariants("email a@b.com", "email is gone", mapping)
	if checks.OK {
		t.Error("checks.OK should be false when the email didn't survive")
	}
	if checks.EmailOK {
		t.Error("EmailOK should be false")
	}
}

func TestFindNonOverlappingMatches_PriorityOrdering(t *testing.T) {
	// The html pattern only matches the tags themselves, not their content,
	// so the email in between is still claimed as its own span; this checks
	// that both claims coexist in left-to-right order without overlapping.
	text := `<span>x@y.com</span>`
	spans := FindNonOverlappingMatches(text)
	if len(spans) != 3 {
		t.Fatalf("spans = %+v, want 3 (open tag, email, close tag)", spans)
	}
	wantTypes := []string{TypeHTML, TypeEmail, TypeHTML}
	for i, typ := range wantTypes {
		if spans[i].typ != typ {
			t.Errorf("spans[%d].typ = %q, want %q", i, spans[i].typ, typ)
		}
	}
}

func TestBracketsBalanced(t *testing.T) {
	cases := map[string]bool{
		"(a[b]{c})": true,
		"(a[b)":     false,
		"":          true,
		"<a>":       true,
		"<a":        false,
	}
	for in, want := range cases {
		if got := bracketsBalanced(in); got != want {
			t.Errorf("bracketsBalanced(%q) = %v, want %v", in, got, want)
		}
	}
}
