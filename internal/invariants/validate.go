package invariants

import "strings"

// Checks is the pass/fail report produced after unfreezing a translation,
// matching the data model's Checks shape. OK is the conjunction of every
// other boolean field.
type Checks struct {
	OK           bool
	HTMLOK       bool
	NumOK        bool
	PHOK         bool
	ParenOK      bool
	ArtifactOK   bool
	EmailOK      bool
	URLOK        bool
	CountsByType map[string]int
}

// ValidateInvariants checks that every invariant type survived restoration
// into out, and that out is free of bracket-balance problems and sentinel
// artifacts. original is accepted for symmetry with invariants.py's
// validate_invariants signature (a future per-type count comparison against
// the source could use it) but the current checks only need out and
// mapping.
func ValidateInvariants(original, out string, mapping []Invariant) Checks {
	counts := make(map[string]int)
	for _, inv := range mapping {
		counts[inv.Type]++
	}

	c := Checks{
		HTMLOK:     typePresent(out, mapping, TypeHTML),
		NumOK:      typePresent(out, mapping, TypeNumber),
		PHOK:       typePresent(out, mapping, TypePlaceholder1) && typePresent(out, mapping, TypePlaceholder2),
		EmailOK:    typePresent(out, mapping, TypeEmail),
		URLOK:      typePresent(out, mapping, TypeURL),
		ParenOK:    bracketsBalanced(out),
		ArtifactOK: IsArtifactFree(out),

		CountsByType: counts,
	}
	c.OK = c.HTMLOK && c.NumOK && c.PHOK && c.ParenOK && c.ArtifactOK && c.EmailOK && c.URLOK
	return c
}

// typePresent reports whether every raw span of the given invariant type
// made it into out. A type with no mapping entries trivially passes.
func typePresent(out string, mapping []Invariant, typ string) bool {
	for _, inv := range mapping {
		if inv.Type == typ && !strings.Contains(out, inv.Raw) {
			return false
		}
	}
	return true
}

// bracketsBalanced runs a stack-based check that every opening
// paren/bracket/angle-bracket in s has a matching close in the right order,
// mirroring invariants.py's paren_ok check. Braces are deliberately not
// balanced here: validate_invariants only tracks ()[]<>.
func bracketsBalanced(s string) bool {
	pairs := map[rune]rune{')': '(', ']': '[', '>': '<'}
	openers := map[rune]bool{'(': true, '[': true, '<': true}
	var stack []rune
	for _, r := range s {
		switch {
		case openers[r]:
			stack = append(stack, r)
		case pairs[r] != 0:
			if len(stack) == 0 || stack[len(stack)-1] != pairs[r] {
				return false
			}
			stack = stack[:len(stack)-1]
		}
	}
	return len(stack) == 0
}
