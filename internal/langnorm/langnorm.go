// Package langnorm canonicalizes arbitrary locale input to a BCP-47 triple
// and derives the simplified engine code the MT worker accepts.
//
// Grounded on the reference guard's lang.py: BCP47_ALIASES, SIMPLE_MAP,
// canonicalize/canonicalize_bcp47, and engine_lang_from_bcp47. golang.org/x/text/language
// supplies BCP-47 tag parsing primitives; the alias table and engine-code
// folding are specific to this service and are not expressed by that
// library, so they are reproduced directly.
package langnorm

import (
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// Tag is the canonicalized result of normalizing a locale code.
type Tag struct {
	Input        string
	Lang         string
	Script       string
	Region       string
	BCP47        string
	AliasApplied bool
}

// simpleMap normalizes underscore separators to hyphenated BCP-47 for a
// fixed set of commonly-seen inputs, mirroring lang.py's SIMPLE_MAP.
var simpleMap = map[string]string{
	"en_GB": "en-GB", "en_US": "en-US",
	"pt_BR": "pt-BR", "pt_PT": "pt-PT",
	"de_AT": "de-AT", "de_CH": "de-CH",
	"fr_CA": "fr-CA",
	"es_MX": "es-MX", "es_AR": "es-AR",
	"zh_CN": "zh-CN", "zh_TW": "zh-TW", "zh_HK": "zh-HK",
	"sr_Latn": "sr-Latn", "sr_Cyrl": "sr-Cyrl",
}

// bcp47Aliases maps legacy/ambiguous codes to their canonical BCP-47 form,
// mirroring lang.py's BCP47_ALIASES. Entries that map a code to itself are
// omitted here (a no-op alias is not an alias); the macrolanguage folding
// (cmn/cdo/... -> zh) lives in engineFromLang instead, since it only
// matters for the engine code, not the BCP-47 form.
var bcp47Aliases = map[string]string{
	"en-US":  "en",
	"zh-CN":  "zh-Hans",
	"zh-TW":  "zh-Hant",
	"zh-HK":  "zh-Hant-HK",
	"zh-SG":  "zh-Hans-SG",
	"zh-MO":  "zh-Hant-MO",
	"iw":     "he",
	"in":     "id",
	"ji":     "yi",
	"mo":     "ro",
}

var lowerZHVariants = map[string]bool{
	"zh-cn": true, "zh-tw": true, "zh-hk": true, "zh-sg": true, "zh-mo": true,
}

// engineFolds maps a language subtag to the simplified engine code the
// worker accepts, for the macrolanguage/variant cases where they diverge.
var engineFolds = map[string]string{
	"cmn": "zh", "cdo": "zh", "cjy": "zh", "hsn": "zh", "cpx": "zh",
	"czh": "zh", "czo": "zh", "gan": "zh", "hak": "zh", "nan": "zh",
	"wuu": "zh", "yue": "zh",
}

// Canonicalize maps arbitrary locale input to its canonical BCP-47 triple.
// Empty input returns the safe default "en"; unknown tags pass through
// largely unchanged (only separator/alias normalization is applied).
func Canonicalize(code string) Tag {
	if code == "" {
		return Tag{Input: code, BCP47: "en", Lang: "en"}
	}

	original := code
	aliasApplied := false

	if mapped, ok := simpleMap[code]; ok {
		code = mapped
		aliasApplied = true
	}
	if lowerZHVariants[strings.ToLower(code)] {
		code = strings.ToLower(code)
		aliasApplied = true
	}
	if mapped, ok := bcp47Aliases[code]; ok {
		code = mapped
		aliasApplied = true
	}

	lang, script, region := splitSubtags(code)

	bcp47 := lang
	if script != "" {
		bcp47 += "-" + script
	}
	if region != "" {
		bcp47 += "-" + region
	}

	return Tag{
		Input:        original,
		Lang:         lang,
		Script:       script,
		Region:       region,
		BCP47:        bcp47,
		AliasApplied: aliasApplied,
	}
}

// splitSubtags parses "lang[-script][-region]" by subtag shape: a 4-char
// Titlecase subtag is a script, a 2-3 char uppercased subtag is a region —
// the same heuristic lang.py's canonicalize() uses, rather than a full
// BCP-47 grammar (region can legitimately precede script in sloppy input).
func splitSubtags(code string) (lang, script, region string) {
	// Prefer x/text/language when the input parses as a well-formed tag;
	// fall back to the positional heuristic for malformed/legacy input
	// (x/text rejects things lang.py's regex-based parser tolerates).
	if tag, err := language.Parse(code); err == nil {
		base, _ := tag.Base()
		scr, scrConf := tag.Script()
		reg, regConf := tag.Region()
		lang = strings.ToLower(base.String())
		// Script() and Region() infer likely subtags when the input has
		// none; only subtags the input spells out are kept.
		if scrConf == language.Exact {
			script = scr.String()
		}
		if regConf == language.Exact {
			region = reg.String()
		}
		return lang, script, region
	}

	parts := strings.Split(code, "-")
	if len(parts) == 0 {
		return "", "", ""
	}
	lang = strings.ToLower(parts[0])
	if len(parts) == 1 {
		return lang, "", ""
	}
	second := parts[1]
	if len(second) == 4 && second[0] >= 'A' && second[0] <= 'Z' {
		script = second
		if len(parts) > 2 {
			region = strings.ToUpper(parts[2])
		}
	} else {
		region = strings.ToUpper(second)
		if len(parts) > 2 {
			script = parts[2]
		}
	}
	return lang, script, region
}

// EngineCode extracts the simplified language identifier the MT worker
// accepts from a canonical BCP-47 string, folding macrolanguage variants.
func EngineCode(bcp47 string) string {
	if bcp47 == "" {
		return "en"
	}
	lang := strings.ToLower(strings.SplitN(bcp47, "-", 2)[0])
	if folded, ok := engineFolds[lang]; ok {
		return folded
	}
	return lang
}

// NormalizeInput canonicalizes and derives the engine code in one step,
// mirroring lang.py's normalize_lang_input.
func NormalizeInput(code string) (bcp47, engine string) {
	if code == "" {
		return "en", "en"
	}
	tag := Canonicalize(code)
	return tag.BCP47, EngineCode(tag.BCP47)
}

// AcceptLanguage is one weighted entry of a parsed Accept-Language header.
type AcceptLanguage struct {
	Code string
	Q    float64
}

// ParseAcceptLanguage parses an RFC 7231 Accept-Language header value into
// a list sorted by quality descending (highest preference first). Entries
// without an explicit q value default to 1.0; malformed q values also
// default to 1.0 rather than being dropped.
func ParseAcceptLanguage(header string) []AcceptLanguage {
	if header == "" {
		return nil
	}
	var out []AcceptLanguage
	for _, part := range strings.Split(header, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		code := part
		q := 1.0
		if idx := strings.Index(part, ";"); idx >= 0 {
			code = strings.TrimSpace(part[:idx])
			qPart := part[idx+1:]
			if qi := strings.Index(qPart, "q="); qi >= 0 {
				rest := qPart[qi+2:]
				end := len(rest)
				for i, r := range rest {
					if !(r >= '0' && r <= '9' || r == '.') {
						end = i
						break
					}
				}
				if f, err := strconv.ParseFloat(rest[:end], 64); err == nil {
					q = f
				}
			}
		}
		if code == "" || q < 0 {
			continue
		}
		out = append(out, AcceptLanguage{Code: code, Q: q})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Q > out[j].Q })
	return out
}
