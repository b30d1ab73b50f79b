package langnorm

import "testing"

func TestCanonicalize_Empty(t *testing.T) {
	tag := Canonicalize("")
	if tag.BCP47 != "en" {
		t.Errorf("BCP47 = %q, want en", tag.BCP47)
	}
}

func TestCanonicalize_SimpleMapUnderscore(t *testing.T) {
	tag := Canonicalize("en_GB")
	if tag.BCP47 != "en-GB" {
		t.Errorf("BCP47 = %q, want en-GB", tag.BCP47)
	}
	if !tag.AliasApplied {
		t.Error("AliasApplied should be true")
	}
}

func TestCanonicalize_Aliases(t *testing.T) {
	cases := map[string]string{
		"iw": "he",
		"in": "id",
	}
	for in, want := range cases {
		got := Canonicalize(in).BCP47
		if got != want {
			t.Errorf("Canonicalize(%q).BCP47 = %q, want %q", in, got, want)
		}
	}
}

func TestCanonicalize_ZhCNToHans(t *testing.T) {
	tag := Canonicalize("zh-CN")
	if tag.BCP47 != "zh-Hans" {
		t.Errorf("BCP47 = %q, want zh-Hans", tag.BCP47)
	}
}

func TestCanonicalize_ScriptRegionOrder(t *testing.T) {
	tag := Canonicalize("sr-Latn-RS")
	if tag.Script != "Latn" {
		t.Errorf("Script = %q, want Latn", tag.Script)
	}
	if tag.Region != "RS" {
		t.Errorf("Region = %q, want RS", tag.Region)
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	once := Canonicalize("de-AT").BCP47
	twice := Canonicalize(once).BCP47
	if once != twice {
		t.Errorf("canonicalize not idempotent: %q != %q", once, twice)
	}
}

func TestEngineCode_MacrolanguageFold(t *testing.T) {
	cases := map[string]string{
		"yue-HK": "zh",
		"cmn-CN": "zh",
		"de-AT":  "de",
		"":       "en",
	}
	for in, want := range cases {
		got := EngineCode(in)
		if got != want {
			t.Errorf("EngineCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeInput(t *testing.T) {
	bcp47, engine := NormalizeInput("zh-TW")
	if engine != "zh" {
		t.Errorf("engine = %q, want zh", engine)
	}
	if bcp47 == "" {
		t.Error("bcp47 should not be empty")
	}
}

func TestNormalizeInput_Empty(t *testing.T) {
	bcp47, engine := NormalizeInput("")
	if bcp47 != "en" || engine != "en" {
		t.Errorf("got (%q, %q), want (en, en)", bcp47, engine)
	}
}

func TestParseAcceptLanguage_SortsByQuality(t *testing.T) {
	got := ParseAcceptLanguage("en-GB,en;q=0.8,de;q=0.9")
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Code != "en-GB" || got[0].Q != 1.0 {
		t.Errorf("first = %+v, want en-GB q=1.0", got[0])
	}
	if got[1].Code != "de" || got[1].Q != 0.9 {
		t.Errorf("second = %+v, want de q=0.9", got[1])
	}
}

func TestParseAcceptLanguage_Empty(t *testing.T) {
	if got := ParseAcceptLanguage(""); got != nil {
		t.Errorf("got %v, want nil", got)
	}
}
