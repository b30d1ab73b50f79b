// Package config loads and holds all guard configuration.
// Settings are layered: defaults → guard-config.json → environment variables
// (env vars win). This mirrors the layering used throughout the reference
// guard implementation's Settings class.
package config

import (
	"encoding/json"
	"log"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// Config holds the full guard configuration.
type Config struct {
	GuardPort      int    `json:"guardPort"`
	ManagementPort int    `json:"managementPort"`
	BindAddress    string `json:"bindAddress"`
	LogLevel       string `json:"logLevel"`

	ManagementToken string `json:"managementToken"`

	MTBackend         string  `json:"mtBackend"`
	MTTimeoutSeconds  int     `json:"mtTimeout"`
	MaxWorkersGuard   int     `json:"maxWorkersGuard"`
	WorkerTimeoutSecs float64 `json:"workerTimeoutS"`
	EnableWorkerBatch bool    `json:"enableWorkerBatch"`
	BatchConcurrency  int     `json:"batchConcurrency"`

	StrictInvariants        bool     `json:"strictInvariants"`
	StrictInvariantsExclude []string `json:"strictInvariantsExclude"`

	CacheEnable      bool   `json:"cacheEnable"`
	CacheMax         int    `json:"cacheMax"`
	CacheTTLSeconds  int    `json:"cacheTtl"`
	CachePersistPath string `json:"cachePersistPath"` // empty = in-memory only

	GlossaryEnable bool   `json:"glossaryEnable"`
	GlossaryPath   string `json:"glossaryPath"`
	GlossaryTerms  string `json:"glossaryTerms"` // CSV

	EnableStyleFilter   bool     `json:"enableStyleFilter"`
	StyleLangs          []string `json:"styleLangs"`
	StyleDefaultAddress string   `json:"styleDefaultAddress"`
	StyleDefaultGender  string   `json:"styleDefaultGender"`
	StyleKeepTerms      []string `json:"styleKeepTerms"`

	SpansOnlyForceBCP47  []string `json:"spansOnlyForce"`
	SpansOnlyForceEngine []string `json:"spansOnlyForceEngines"`

	PivotLangs    []string `json:"pivotLangs"`
	PivotMidLang  string   `json:"pivotMidLang"`
	LeakLatinMax  float64  `json:"leakLatinMax"`

	LocalesPublicPath string `json:"localesPublicPath"`
	LocalesExtra      string `json:"localesExtra"`
	LocalesDisable    string `json:"localesDisable"`
}

// Load returns config with defaults overridden by guard-config.json and env vars.
func Load() *Config {
	cfg := defaults()
	loadFile(cfg, "guard-config.json")
	loadEnv(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		GuardPort:      8090,
		ManagementPort: 8091,
		BindAddress:    "0.0.0.0",
		LogLevel:       "info",

		MTBackend:         "http://127.0.0.1:8093",
		MTTimeoutSeconds:  60,
		MaxWorkersGuard:   3,
		WorkerTimeoutSecs: 60,
		EnableWorkerBatch: true,
		BatchConcurrency:  8,

		CacheEnable:     true,
		CacheMax:        5000,
		CacheTTLSeconds: 86400,

		GlossaryTerms: "TranceLate",

		EnableStyleFilter:   true,
		StyleLangs:          []string{"de"},
		StyleDefaultAddress: "auto",
		StyleDefaultGender:  "none",
		StyleKeepTerms:      []string{"TranceLate"},

		PivotLangs:   []string{"km", "lo", "my"},
		PivotMidLang: "en",
		LeakLatinMax: 0.15,
	}
}

// WorkerBaseURL normalizes the configured backend URL by removing a trailing
// slash and a trailing "/translate" suffix, so operators who paste the
// translate endpoint URL directly don't end up double-appending it.
func (c *Config) WorkerBaseURL() string {
	u := strings.TrimSpace(c.MTBackend)
	if u == "" {
		return "http://127.0.0.1:8093"
	}
	u = strings.TrimRight(u, "/")
	u = translateSuffixRe.ReplaceAllString(u, "")
	return u
}

var translateSuffixRe = regexp.MustCompile(`(?i)/translate$`)

func loadFile(cfg *Config, path string) {
	data, err := os.ReadFile(path) //nolint:gosec // controlled config file path, not user input
	if err != nil {
		return // file is optional
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		log.Printf("[CONFIG] Warning: could not parse %s: %v", path, err)
	} else {
		log.Printf("[CONFIG] Loaded %s", path)
	}
}

func loadEnv(cfg *Config) {
	if v := os.Getenv("GUARD_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.GuardPort = n
		}
	}
	if v := os.Getenv("MANAGEMENT_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ManagementPort = n
		}
	}
	if v := os.Getenv("BIND_ADDRESS"); v != "" {
		cfg.BindAddress = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("MANAGEMENT_TOKEN"); v != "" {
		cfg.ManagementToken = v
	}
	if v := os.Getenv("MT_BACKEND"); v != "" {
		cfg.MTBackend = v
	}
	if v := os.Getenv("MT_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MTTimeoutSeconds = n
		}
	}
	if v := os.Getenv("MAX_WORKERS_GUARD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxWorkersGuard = n
		}
	}
	if v := os.Getenv("WORKER_TIMEOUT_S"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.WorkerTimeoutSecs = f
		}
	}
	if v := os.Getenv("ENABLE_WORKER_BATCH"); v != "" {
		cfg.EnableWorkerBatch = !boolFalse(v)
	}
	if v := os.Getenv("BATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BatchConcurrency = n
		}
	}
	if v := os.Getenv("STRICT_INVARIANTS"); v != "" {
		cfg.StrictInvariants = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("STRICT_INVARIANTS_EXCLUDE"); v != "" {
		cfg.StrictInvariantsExclude = csvSet(v)
	}
	if v := os.Getenv("CACHE_ENABLE"); v != "" {
		cfg.CacheEnable = !boolFalse(v)
	}
	if v := os.Getenv("CACHE_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CacheMax = n
		}
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.CacheTTLSeconds = n
		}
	}
	if v := os.Getenv("CACHE_PERSIST_PATH"); v != "" {
		cfg.CachePersistPath = v
	}
	if v := os.Getenv("GLOSSARY_ENABLE"); v != "" {
		cfg.GlossaryEnable = !boolFalse(v)
	}
	if v := os.Getenv("GLOSSARY_PATH"); v != "" {
		cfg.GlossaryPath = v
	}
	if v := os.Getenv("GLOSSARY_TERMS"); v != "" {
		cfg.GlossaryTerms = v
	}
	if v := os.Getenv("ENABLE_STYLE_FILTER"); v != "" {
		cfg.EnableStyleFilter = !boolFalse(v)
	}
	if v := os.Getenv("STYLE_LANGS"); v != "" {
		cfg.StyleLangs = csvSet(v)
	}
	if v := os.Getenv("STYLE_DEFAULT_ADDRESS"); v != "" {
		cfg.StyleDefaultAddress = strings.ToLower(v)
	}
	if v := os.Getenv("STYLE_DEFAULT_GENDER"); v != "" {
		cfg.StyleDefaultGender = strings.ToLower(v)
	}
	if v := os.Getenv("STYLE_KEEP_TERMS"); v != "" {
		cfg.StyleKeepTerms = csvSet(v)
	}
	if v := os.Getenv("SPANS_ONLY_FORCE"); v != "" {
		cfg.SpansOnlyForceBCP47 = csvSet(v)
	}
	if v := os.Getenv("SPANS_ONLY_FORCE_ENGINES"); v != "" {
		cfg.SpansOnlyForceEngine = csvSet(v)
	}
	if v := os.Getenv("PIVOT_LANGS"); v != "" {
		cfg.PivotLangs = csvSet(v)
	}
	if v := os.Getenv("PIVOT_MID_LANG"); v != "" {
		cfg.PivotMidLang = v
	}
	if v := os.Getenv("LEAK_LATIN_MAX"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.LeakLatinMax = f
		}
	}
	if v := os.Getenv("LOCALES_PUBLIC_PATH"); v != "" {
		cfg.LocalesPublicPath = v
	}
	if v := os.Getenv("LOCALES_EXTRA"); v != "" {
		cfg.LocalesExtra = v
	}
	if v := os.Getenv("LOCALES_DISABLE"); v != "" {
		cfg.LocalesDisable = v
	}
}

func boolFalse(v string) bool {
	switch v {
	case "0", "", "false", "False":
		return true
	default:
		return false
	}
}

func csvSet(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
