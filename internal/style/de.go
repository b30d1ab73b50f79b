package style

import (
	"regexp"
	"strings"

	"github.com/askalator/trancelate-ANNI/internal/invariants"
)

// genderStem pairs a noun's singular and plural stem, e.g. ("Kunde","Kunden").
type genderStem struct {
	singular, plural string
}

var genderStems = []genderStem{
	{"Kunde", "Kunden"},
	{"Nutzer", "Nutzer"},
	{"Benutzer", "Benutzer"},
	{"Teilnehmer", "Teilnehmer"},
	{"Abonnent", "Abonnenten"},
	{"Leser", "Leser"},
	{"Student", "Studenten"},
	{"Mitarbeiter", "Mitarbeiter"},
}

// pluralBase is the stem a gender-inclusive plural suffix attaches to,
// which for most nouns is the singular itself but diverges for "Kunde"
// ("Kund-" + "*innen", not "Kunde-" + "*innen").
var pluralBase = map[string]string{
	"Kunde": "Kund", "Nutzer": "Nutzer", "Benutzer": "Benutzer",
	"Teilnehmer": "Teilnehmer", "Abonnent": "Abonnent", "Leser": "Leser",
	"Student": "Student", "Mitarbeiter": "Mitarbeiter",
}

// deDu maps formal Sie-form pronouns/possessives to their informal du-form
// equivalents; deSie is the reverse mapping.
var deDu = []pairRE{
	{regexp.MustCompile(`\bSie\b`), "du"},
	{regexp.MustCompile(`\bIhnen\b`), "dir"},
	{regexp.MustCompile(`\bIhrer\b`), "deiner"},
	{regexp.MustCompile(`\bIhrem\b`), "deinem"},
	{regexp.MustCompile(`\bIhren\b`), "deinen"},
	{regexp.MustCompile(`\bIhre\b`), "deine"},
	{regexp.MustCompile(`\bIhr\b`), "dein"},
}

var deSie = []pairRE{
	{regexp.MustCompile(`\bdu\b`), "Sie"},
	{regexp.MustCompile(`\bdir\b`), "Ihnen"},
	{regexp.MustCompile(`\bdich\b`), "Sie"},
	{regexp.MustCompile(`\bdeiner\b`), "Ihrer"},
	{regexp.MustCompile(`\bdeinem\b`), "Ihrem"},
	{regexp.MustCompile(`\bdeinen\b`), "Ihren"},
	{regexp.MustCompile(`\bdeine\b`), "Ihre"},
	{regexp.MustCompile(`\bdein\b`), "Ihr"},
}

const detPluralGroup = `(unsere|alle|viele|neue|zahlreiche|mehrere|diese|jene|solche|manche)`

var deDiversRE = regexp.MustCompile(`\b(Sie|Ihnen|Ihrer|Ihrem|Ihren|Ihre|Ihr|du|dir|dich|deiner|deinem|deinen|deine|dein)\b`)
var multiSpaceRE = regexp.MustCompile(`\s{2,}`)

// wordRunRE splits text into alternating runs of word characters (Unicode
// letters/digits/underscore, so German umlauts count as word characters)
// and non-word separators, mirroring Python's re.split(r"(\W+)", text)
// under its default Unicode-aware \w.
var wordRunRE = regexp.MustCompile(`[\p{L}\p{N}_]+|[^\p{L}\p{N}_]+`)

func genderSuffix(mode string, plural bool) string {
	switch mode {
	case "colon":
		if plural {
			return ":innen"
		}
		return ":in"
	case "star":
		if plural {
			return "*innen"
		}
		return "*in"
	case "innen":
		if plural {
			return "Innen"
		}
		return "In"
	default:
		return ""
	}
}

// genderizeToken rewrites a single token into its gender-inclusive form if
// it exactly matches a known stem's singular or plural, preserving the
// token's original capitalization.
func genderizeToken(tok, mode string) string {
	if mode == "" || mode == "none" {
		return tok
	}
	cap := len(tok) > 0 && strings.ToUpper(tok[:1]) == tok[:1]
	t := tok
	for _, gs := range genderStems {
		if t == gs.singular {
			t = gs.singular + genderSuffix(mode, false)
			break
		}
		if t == gs.plural {
			base := pluralBase[gs.singular]
			if base == "" {
				base = gs.singular
			}
			t = base + genderSuffix(mode, true)
			break
		}
	}
	if cap && len(t) > 0 {
		t = strings.ToUpper(t[:1]) + t[1:]
	}
	return t
}

// ApplyGenderDE rewrites every word token matching a known noun stem into
// its gender-inclusive form, leaving keepTerms and non-word separators
// untouched.
func ApplyGenderDE(text, mode string, keepTerms map[string]bool) string {
	if mode == "" || mode == "none" {
		return text
	}
	tokens := wordRunRE.FindAllString(text, -1)
	var b strings.Builder
	for _, tok := range tokens {
		if keepTerms[tok] {
			b.WriteString(tok)
			continue
		}
		b.WriteString(genderizeToken(tok, mode))
	}
	return b.String()
}

type pairRE struct {
	re  *regexp.Regexp
	rep string
}

// ApplyAddressDE rewrites formal/informal address throughout text: "du"
// switches to informal (Sie -> du), "sie" to formal (du -> Sie), "divers"
// strips second-person address entirely, and "auto"/"" leave text
// untouched.
func ApplyAddressDE(text, address string) string {
	switch address {
	case "", "auto":
		return text
	case "divers":
		stripped := deDiversRE.ReplaceAllString(text, "")
		return strings.TrimSpace(multiSpaceRE.ReplaceAllString(stripped, " "))
	case "du":
		return applyPairs(text, deDu)
	case "sie":
		return applyPairs(text, deSie)
	default:
		return text
	}
}

func applyPairs(text string, pairs []pairRE) string {
	out := text
	for _, p := range pairs {
		out = p.re.ReplaceAllString(out, p.rep)
	}
	return out
}

// PluralHarmonizeDE fixes up gender-inclusive plural forms after a
// determiner like "unsere"/"alle" that should agree in number with the noun
// (e.g. "alle Kunde:in" -> "alle Kund:innen"), and normalizes a dangling
// singular suffix anywhere after such a determiner within the same
// sentence.
func PluralHarmonizeDE(text, mode string) string {
	if mode == "" || mode == "none" {
		return text
	}
	sing, plur := genderSuffix(mode, false), genderSuffix(mode, true)
	out := text
	for _, gs := range genderStems {
		base := pluralBase[gs.singular]
		if base == "" {
			base = gs.singular
		}
		singRE := regexp.MustCompile(`(?i)\b` + detPluralGroup + `\s+` + regexp.QuoteMeta(gs.singular) + regexp.QuoteMeta(sing) + `\b`)
		out = singRE.ReplaceAllString(out, "$1 "+base+plur)
		plRE := regexp.MustCompile(`(?i)\b` + detPluralGroup + `\s+` + regexp.QuoteMeta(gs.plural) + regexp.QuoteMeta(sing) + `\b`)
		out = plRE.ReplaceAllString(out, "$1 "+base+plur)
	}

	var danglingRE *regexp.Regexp
	switch mode {
	case "colon":
		danglingRE = regexp.MustCompile(`(?i)(` + detPluralGroup + `\b[^.!?]{0,120}?):in\b`)
		out = danglingRE.ReplaceAllString(out, "$1:innen")
	case "star":
		danglingRE = regexp.MustCompile(`(?i)(` + detPluralGroup + `\b[^.!?]{0,120}?)\*in\b`)
		out = danglingRE.ReplaceAllString(out, "$1*innen")
	case "innen":
		danglingRE = regexp.MustCompile(`(?i)(` + detPluralGroup + `\b[^.!?]{0,120}?)In\b`)
		out = danglingRE.ReplaceAllString(out, "$1Innen")
	}
	return out
}

// ArticleHarmonizeDE rewrites "Jeder/Jede/Jedes <Noun>:in"-style constructs
// into the gender-inclusive article form matching the noun's suffix style.
func ArticleHarmonizeDE(text, mode string) string {
	switch mode {
	case "colon":
		return regexp.MustCompile(`\b(Jeder|Jede|Jedes)\s+([A-Za-zÄÖÜäöüß\-]+):in\b`).ReplaceAllString(text, "Jede:r $2:in")
	case "star":
		return regexp.MustCompile(`\b(Jeder|Jede|Jedes)\s+([A-Za-zÄÖÜäöüß\-]+)\*in\b`).ReplaceAllString(text, "Jede*r $2*in")
	case "innen":
		return regexp.MustCompile(`\b(Jeder|Jede|Jedes)\s+([A-Za-zÄÖÜäöüß\-]+)In\b`).ReplaceAllString(text, "Jede/r $2In")
	default:
		return text
	}
}

var mailLabelRE = regexp.MustCompile(`(?i)\bMail\s*(zu|an)?\s*:`)
var budgetMailLabelRE = regexp.MustCompile(`(?i)\b(Budget|E-?Mail):\s*`)
var trailingPunctSpaceRE = regexp.MustCompile(`\s*([,.;!?])`)
var missingPunctSpaceRE = regexp.MustCompile(`([,;])(\S)`)

// LabelNormalizeDE standardizes a couple of common field-label spellings
// ("Mail:" -> "E-Mail: ") that MT output tends to render inconsistently.
func LabelNormalizeDE(text string) string {
	out := mailLabelRE.ReplaceAllString(text, "E-Mail: ")
	out = budgetMailLabelRE.ReplaceAllString(out, "$1: ")
	return out
}

// PunctWSNormalizeDE collapses runs of whitespace, removes space before
// terminal punctuation, and ensures a space follows a comma or semicolon.
func PunctWSNormalizeDE(text string) string {
	out := multiSpaceRE.ReplaceAllString(text, " ")
	out = trailingPunctSpaceRE.ReplaceAllString(out, "$1")
	out = missingPunctSpaceRE.ReplaceAllString(out, "$1 $2")
	return out
}

// ApplyStyleDESafe runs the full German post-style pipeline (address,
// gender, plural/article harmonization, label and punctuation normalization)
// on a frozen copy of text, validating invariants survived and falling back
// to the untouched translation otherwise.
func ApplyStyleDESafe(text, address, gender string, keepTerms map[string]bool) (string, invariants.Checks) {
	return freezeAndValidate(text, func(frozen string) string {
		seg := ApplyAddressDE(frozen, address)
		seg = ApplyGenderDE(seg, gender, keepTerms)
		seg = PluralHarmonizeDE(seg, gender)
		seg = ArticleHarmonizeDE(seg, gender)
		seg = LabelNormalizeDE(seg)
		seg = PunctWSNormalizeDE(seg)
		return seg
	})
}
