// Package locales builds and serves the guard's published locale list and
// engine/style capability descriptor: the set of BCP-47 codes operators
// have configured (defaults plus extras minus disables), each mapped to its
// MT engine code, and the style options available per engine.
//
// Grounded on the reference guard's locales.py and capabilities.py in full.
package locales

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/askalator/trancelate-ANNI/internal/langnorm"
)

// defaultList is the guard's built-in locale set, mirroring locales.py's
// _default_list.
var defaultList = []string{
	"en-US", "en-GB", "de-DE", "de-AT", "fr-FR", "it-IT", "es-ES", "pt-PT", "pt-BR",
	"nl-NL", "sv-SE", "da-DK", "nb-NO", "fi-FI", "pl-PL", "cs-CZ", "sk-SK", "sl-SI",
	"hr-HR", "ro-RO", "hu-HU", "tr-TR", "el-GR", "ru-RU", "uk-UA", "he-IL", "ar-SA",
	"fa-IR", "ur-PK", "ps-AF", "hi-IN", "bn-BD", "ta-IN", "te-IN", "mr-IN", "gu-IN",
	"pa-IN", "ja-JP", "ko-KR", "zh-CN", "zh-TW", "th-TH", "vi-VN", "id-ID", "ms-MY",
	"fil-PH", "km-KH", "lo-LA", "my-MM",
}

// spansOnlyLocales are the locales marketing calls out as benefiting most
// from the spans-only strategy (scripts without Latin word-boundary
// conventions), mirroring capabilities.py's _SPANS_ONLY.
var spansOnlyLocales = map[string]bool{}

func init() {
	for _, c := range []string{
		"zh-CN", "zh-TW", "ja-JP", "ko-KR", "th-TH", "vi-VN", "km-KH", "lo-LA",
		"my-MM", "he-IL", "ar-SA", "fa-IR", "ur-PK", "ps-AF",
	} {
		spansOnlyLocales[c] = true
	}
}

// Style describes the address/gender option set a style-filter engine
// supports, mirroring capabilities.py's _STYLE_DE / _STYLE_ROM.
type Style struct {
	Address []string `json:"address"`
	Gender  []string `json:"gender"`
}

var styleDE = Style{Address: []string{"auto", "du", "sie", "divers"}, Gender: []string{"none", "colon", "star", "innen"}}
var styleRomance = Style{Address: []string{"auto", "du", "sie"}, Gender: []string{"none"}}

// styleEngines maps an engine code to the Style it supports.
var styleEngines = map[string]Style{
	"de": styleDE,
	"fr": styleRomance,
	"it": styleRomance,
	"es": styleRomance,
	"pt": styleRomance,
}

// localesFile is the shape of an optional external locales JSON file,
// mirroring locales.py's two accepted shapes (a bare list, or
// {"locales": [...]})
type localesFile struct {
	Locales []string `json:"locales"`
}

// LoadList returns the deduplicated, canonicalized, sorted list of
// published BCP-47 codes: from path if given (falling back to the built-in
// default on any read/parse error, same as locales.py), plus a
// comma-separated extra list, minus a comma-separated disable list.
func LoadList(path, extraCSV, disableCSV string) []string {
	base := defaultList
	if path != "" {
		if loaded, ok := loadFile(path); ok {
			base = loaded
		}
	}

	disable := csvSet(disableCSV)
	disableSet := make(map[string]bool, len(disable))
	for _, d := range disable {
		disableSet[d] = true
	}

	all := append(append([]string{}, base...), csvSet(extraCSV)...)

	seen := make(map[string]bool, len(all))
	var out []string
	for _, code := range all {
		if disableSet[code] {
			continue
		}
		norm := langnorm.Canonicalize(code).BCP47
		if norm == "" || seen[norm] {
			continue
		}
		seen[norm] = true
		out = append(out, norm)
	}
	sort.Strings(out)
	return out
}

func loadFile(path string) ([]string, bool) {
	data, err := os.ReadFile(path) //nolint:gosec // operator-controlled config path
	if err != nil {
		return nil, false
	}
	var f localesFile
	if err := json.Unmarshal(data, &f); err == nil && len(f.Locales) > 0 {
		return trimAll(f.Locales), true
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil && len(list) > 0 {
		return trimAll(list), true
	}
	return nil, false
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func csvSet(v string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(v); i++ {
		if i == len(v) || v[i] == ',' {
			s := trim(v[start:i])
			if s != "" {
				out = append(out, s)
			}
			start = i + 1
		}
	}
	return out
}

func trim(s string) string {
	i, j := 0, len(s)
	for i < j && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	for j > i && (s[j-1] == ' ' || s[j-1] == '\t') {
		j--
	}
	return s[i:j]
}

// Locale pairs a published BCP-47 code with its MT engine code, mirroring
// locales.py's map_locales_with_engine entries.
type Locale struct {
	BCP47  string `json:"bcp47"`
	Engine string `json:"engine"`
}

// MapWithEngine derives the engine code for each BCP-47 code in codes.
func MapWithEngine(codes []string) []Locale {
	out := make([]Locale, 0, len(codes))
	for _, code := range codes {
		out = append(out, Locale{BCP47: code, Engine: langnorm.EngineCode(code)})
	}
	return out
}

// Capabilities is the guard's /capabilities response body, mirroring
// capabilities.py's compute_capabilities.
type Capabilities struct {
	Version  interface{} `json:"version"`
	Features CapFeatures `json:"features"`
	Locales  []Locale    `json:"locales"`
}

// CapFeatures is the "features" object within Capabilities.
type CapFeatures struct {
	Invariants       InvariantsInfo   `json:"invariants"`
	Styles           map[string]Style `json:"styles"`
	SpansOnlyLocales []string         `json:"spans_only_locales"`
	LocalesCount     int              `json:"locales_count"`
	Engines          []string         `json:"engines"`
}

// InvariantsInfo advertises the sentinel format and protected-span types,
// mirroring capabilities.py's hardcoded "invariants" sub-object.
type InvariantsInfo struct {
	SentinelFormat string   `json:"sentinel_format"`
	Protected      []string `json:"protected"`
	I18nHardening  bool     `json:"i18n_hardening"`
}

// Compute builds the full Capabilities payload from a published locale
// list, mirroring capabilities.py's compute_capabilities.
func Compute(version interface{}, localesPath, extraCSV, disableCSV string) Capabilities {
	codes := LoadList(localesPath, extraCSV, disableCSV)
	locs := MapWithEngine(codes)

	engineSet := map[string]bool{}
	for _, l := range locs {
		if l.Engine != "" {
			engineSet[l.Engine] = true
		}
	}
	engines := make([]string, 0, len(engineSet))
	for e := range engineSet {
		engines = append(engines, e)
	}
	sort.Strings(engines)

	var spansOnly []string
	for _, c := range codes {
		if spansOnlyLocales[c] {
			spansOnly = append(spansOnly, c)
		}
	}

	return Capabilities{
		Version: version,
		Features: CapFeatures{
			Invariants: InvariantsInfo{
				SentinelFormat: "<|INV:ID:CRC|>",
				Protected:      []string{"html", "email", "url", "currency", "number", "date", "time", "placeholder"},
				I18nHardening:  true,
			},
			Styles:           styleEngines,
			SpansOnlyLocales: spansOnly,
			LocalesCount:     len(locs),
			Engines:          engines,
		},
		Locales: locs,
	}
}
