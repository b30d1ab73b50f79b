package invariants

import "testing"

func TestHasHTML(t *testing.T) {
	if !HasHTML("<b>hi</b>") {
		t.Error("want true for tagged text")
	}
	if HasHTML("plain text") {
		t.Error("want false for plain text")
	}
}

func TestSplitHTML_AlternatesTagAndText(t *testing.T) {
	segs := SplitHTML("<b>hello</b> world")
	if len(segs) != 4 {
		t.Fatalf("segs = %+v, want 4", segs)
	}
	if !segs[0].IsTag || segs[0].Text != "<b>" {
		t.Errorf("segs[0] = %+v", segs[0])
	}
	if segs[1].IsTag || segs[1].Text != "hello" {
		t.Errorf("segs[1] = %+v", segs[1])
	}
	if !segs[2].IsTag {
		t.Errorf("segs[2] = %+v", segs[2])
	}
}

func TestOuterTags(t *testing.T) {
	mapping := []Invariant{
		{ID: 0, Type: TypeHTML, Raw: "<div>"},
		{ID: 1, Type: TypeEmail, Raw: "a@b.com"},
		{ID: 2, Type: TypeHTML, Raw: "</div>"},
	}
	first, last, ok := OuterTags(mapping)
	if !ok || first != "<div>" || last != "</div>" {
		t.Errorf("got (%q, %q, %v)", first, last, ok)
	}
}

func TestOuterTags_NoHTML(t *testing.T) {
	_, _, ok := OuterTags([]Invariant{{Type: TypeEmail, Raw: "a@b.com"}})
	if ok {
		t.Error("want ok = false with no html invariant")
	}
}

func TestIsNoiseSegment(t *testing.T) {
	cases := map[string]bool{
		"":    true,
		"   ": true,
		".":   true,
		"hi":  false,
		"a b": false,
	}
	for in, want := range cases {
		if got := IsNoiseSegment(in); got != want {
			t.Errorf("IsNoiseSegment(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestSplitAtSentinels(t *testing.T) {
	frozen, mapping := FreezeInvariants("Visit https://a.com today")
	segs := SplitAtSentinels(frozen)
	var hasSentinel, hasText bool
	for _, s := range segs {
		if s.IsTag {
			hasSentinel = true
		} else if s.Text != "" {
			hasText = true
		}
	}
	if !hasSentinel || !hasText {
		t.Fatalf("segs = %+v, mapping = %+v", segs, mapping)
	}
}
