package breaker

import "testing"

func TestShouldDegrade_EmptyOutput(t *testing.T) {
	degrade, reason := ShouldDegrade("   ", Checks{}, "fr")
	if !degrade || reason != "empty_output" {
		t.Errorf("got (%v, %q), want (true, empty_output)", degrade, reason)
	}
}

func TestShouldDegrade_RepeatedCharGibberish(t *testing.T) {
	degrade, reason := ShouldDegrade("aaaaaaaaaaaaaa bonjour", Checks{}, "fr")
	if !degrade || reason != "gibberish" {
		t.Errorf("got (%v, %q), want (true, gibberish)", degrade, reason)
	}
}

func TestShouldDegrade_AngleBracketRun(t *testing.T) {
	degrade, reason := ShouldDegrade("<<<<<<<<<< broken", Checks{}, "fr")
	if !degrade || reason != "gibberish" {
		t.Errorf("got (%v, %q), want (true, gibberish)", degrade, reason)
	}
}

func TestShouldDegrade_LowVarietyDominantToken(t *testing.T) {
	out := "le le le le le le le le le le chat"
	degrade, reason := ShouldDegrade(out, Checks{}, "fr")
	if !degrade || reason != "gibberish" {
		t.Errorf("got (%v, %q), want (true, gibberish)", degrade, reason)
	}
}

func TestShouldDegrade_MissingPlaceholders(t *testing.T) {
	degrade, reason := ShouldDegrade("Bonjour le monde", Checks{FreezeMissing: 2}, "fr")
	if !degrade || reason != "missing_placeholders:2" {
		t.Errorf("got (%v, %q), want (true, missing_placeholders:2)", degrade, reason)
	}
}

func TestShouldDegrade_CyrillicStricterOnPHFail(t *testing.T) {
	degrade, reason := ShouldDegrade("Привет мир", Checks{PHOK: false}, "ru")
	if !degrade || reason != "cyr_ph_fail" {
		t.Errorf("got (%v, %q), want (true, cyr_ph_fail)", degrade, reason)
	}
}

func TestShouldDegrade_CyrillicStricterOnAnyMissing(t *testing.T) {
	degrade, reason := ShouldDegrade("Привет мир", Checks{PHOK: true, FreezeMissing: 1}, "ru")
	if !degrade || reason != "cyr_missing:1" {
		t.Errorf("got (%v, %q), want (true, cyr_missing:1)", degrade, reason)
	}
}

func TestShouldDegrade_NonCyrillicSingleMissingDoesNotDegrade(t *testing.T) {
	degrade, _ := ShouldDegrade("Bonjour le monde, ça va bien aujourd'hui", Checks{PHOK: true, FreezeMissing: 1}, "fr")
	if degrade {
		t.Error("want no degrade for a single missing placeholder on a non-Cyrillic target")
	}
}

func TestShouldDegrade_CleanOutputNoDegrade(t *testing.T) {
	degrade, reason := ShouldDegrade("Bonjour, comment allez-vous aujourd'hui mon ami", Checks{PHOK: true}, "fr")
	if degrade {
		t.Errorf("got (%v, %q), want no degrade", degrade, reason)
	}
}
