package config

import (
	"encoding/json"
	"os"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := defaults()

	if cfg.GuardPort != 8090 {
		t.Errorf("GuardPort: got %d, want 8090", cfg.GuardPort)
	}
	if cfg.ManagementPort != 8091 {
		t.Errorf("ManagementPort: got %d, want 8091", cfg.ManagementPort)
	}
	if cfg.MTBackend != "http://127.0.0.1:8093" {
		t.Errorf("MTBackend: got %s", cfg.MTBackend)
	}
	if cfg.MTTimeoutSeconds != 60 {
		t.Errorf("MTTimeoutSeconds: got %d, want 60", cfg.MTTimeoutSeconds)
	}
	if cfg.MaxWorkersGuard != 3 {
		t.Errorf("MaxWorkersGuard: got %d, want 3", cfg.MaxWorkersGuard)
	}
	if !cfg.EnableWorkerBatch {
		t.Error("EnableWorkerBatch should default to true")
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel: got %s", cfg.LogLevel)
	}
	if cfg.BindAddress != "0.0.0.0" {
		t.Errorf("BindAddress: got %s", cfg.BindAddress)
	}
	if !cfg.CacheEnable {
		t.Error("CacheEnable should default to true")
	}
	if cfg.CacheMax != 5000 {
		t.Errorf("CacheMax: got %d, want 5000", cfg.CacheMax)
	}
	if cfg.CacheTTLSeconds != 86400 {
		t.Errorf("CacheTTLSeconds: got %d, want 86400", cfg.CacheTTLSeconds)
	}
	if !cfg.EnableStyleFilter {
		t.Error("EnableStyleFilter should default to true")
	}
	if len(cfg.StyleLangs) != 1 || cfg.StyleLangs[0] != "de" {
		t.Errorf("StyleLangs: got %v, want [de]", cfg.StyleLangs)
	}
	if len(cfg.PivotLangs) == 0 {
		t.Error("PivotLangs should not be empty")
	}
	if cfg.PivotMidLang != "en" {
		t.Errorf("PivotMidLang: got %s, want en", cfg.PivotMidLang)
	}
}

func TestLoadEnv_GuardPort(t *testing.T) {
	t.Setenv("GUARD_PORT", "9190")
	cfg := defaults()
	loadEnv(cfg)
	if cfg.GuardPort != 9190 {
		t.Errorf("GuardPort: got %d, want 9190", cfg.GuardPort)
	}
}

func TestLoadEnv_MTBackend(t *testing.T) {
	t.Setenv("MT_BACKEND", "http://worker:8093")
	cfg := defaults()
	loadEnv(cfg)
	if cfg.MTBackend != "http://worker:8093" {
		t.Errorf("MTBackend: got %s", cfg.MTBackend)
	}
}

func TestLoadEnv_DisableWorkerBatch(t *testing.T) {
	t.Setenv("ENABLE_WORKER_BATCH", "0")
	cfg := defaults()
	loadEnv(cfg)
	if cfg.EnableWorkerBatch {
		t.Error("EnableWorkerBatch should be false")
	}
}

func TestLoadEnv_MaxWorkersGuard(t *testing.T) {
	t.Setenv("MAX_WORKERS_GUARD", "6")
	cfg := defaults()
	loadEnv(cfg)
	if cfg.MaxWorkersGuard != 6 {
		t.Errorf("MaxWorkersGuard: got %d, want 6", cfg.MaxWorkersGuard)
	}
}

func TestLoadEnv_MaxWorkersGuard_Zero_Ignored(t *testing.T) {
	t.Setenv("MAX_WORKERS_GUARD", "0")
	cfg := defaults()
	loadEnv(cfg)
	if cfg.MaxWorkersGuard != 3 {
		t.Errorf("MaxWorkersGuard: got %d, want 3 (zero should be ignored)", cfg.MaxWorkersGuard)
	}
}

func TestLoadEnv_StrictInvariants(t *testing.T) {
	t.Setenv("STRICT_INVARIANTS", "1")
	cfg := defaults()
	loadEnv(cfg)
	if !cfg.StrictInvariants {
		t.Error("StrictInvariants should be true")
	}
}

func TestLoadEnv_StrictInvariantsExclude(t *testing.T) {
	t.Setenv("STRICT_INVARIANTS_EXCLUDE", "my,ja-JP")
	cfg := defaults()
	loadEnv(cfg)
	if len(cfg.StrictInvariantsExclude) != 2 {
		t.Errorf("StrictInvariantsExclude: got %v", cfg.StrictInvariantsExclude)
	}
}

func TestLoadEnv_CacheTTL(t *testing.T) {
	t.Setenv("CACHE_TTL", "120")
	cfg := defaults()
	loadEnv(cfg)
	if cfg.CacheTTLSeconds != 120 {
		t.Errorf("CacheTTLSeconds: got %d, want 120", cfg.CacheTTLSeconds)
	}
}

func TestLoadEnv_GlossaryTerms(t *testing.T) {
	t.Setenv("GLOSSARY_TERMS", "TranceLate,OpenAI")
	cfg := defaults()
	loadEnv(cfg)
	if cfg.GlossaryTerms != "TranceLate,OpenAI" {
		t.Errorf("GlossaryTerms: got %s", cfg.GlossaryTerms)
	}
}

func TestLoadEnv_StyleDefaultAddress(t *testing.T) {
	t.Setenv("STYLE_DEFAULT_ADDRESS", "SIE")
	cfg := defaults()
	loadEnv(cfg)
	if cfg.StyleDefaultAddress != "sie" {
		t.Errorf("StyleDefaultAddress: got %s, want lowercased sie", cfg.StyleDefaultAddress)
	}
}

func TestLoadEnv_SpansOnlyForce(t *testing.T) {
	t.Setenv("SPANS_ONLY_FORCE", "zh-CN,ja-JP")
	cfg := defaults()
	loadEnv(cfg)
	if len(cfg.SpansOnlyForceBCP47) != 2 {
		t.Errorf("SpansOnlyForceBCP47: got %v", cfg.SpansOnlyForceBCP47)
	}
}

func TestLoadEnv_ManagementToken(t *testing.T) {
	t.Setenv("MANAGEMENT_TOKEN", "secret-token")
	cfg := defaults()
	loadEnv(cfg)
	if cfg.ManagementToken != "secret-token" {
		t.Errorf("ManagementToken: got %s", cfg.ManagementToken)
	}
}

func TestLoadEnv_InvalidPort_Ignored(t *testing.T) {
	t.Setenv("GUARD_PORT", "not-a-number")
	cfg := defaults()
	loadEnv(cfg)
	if cfg.GuardPort != 8090 {
		t.Errorf("GuardPort: got %d, want 8090 (invalid env should be ignored)", cfg.GuardPort)
	}
}

func TestLoadFile_ValidJSON(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "config-*.json")
	if err != nil {
		t.Fatal(err)
	}

	data, marshalErr := json.Marshal(map[string]any{
		"guardPort":      9999,
		"mtBackend":      "http://worker2:9000",
		"cacheEnable":    false,
	})
	if marshalErr != nil {
		t.Fatal(marshalErr)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	cfg := defaults()
	loadFile(cfg, f.Name())

	if cfg.GuardPort != 9999 {
		t.Errorf("GuardPort: got %d, want 9999", cfg.GuardPort)
	}
	if cfg.MTBackend != "http://worker2:9000" {
		t.Errorf("MTBackend: got %s", cfg.MTBackend)
	}
	if cfg.CacheEnable {
		t.Error("CacheEnable should be false after file load")
	}
}

func TestLoadFile_Missing_IsNoOp(t *testing.T) {
	cfg := defaults()
	loadFile(cfg, "/nonexistent/path/config.json")
	if cfg.GuardPort != 8090 {
		t.Errorf("GuardPort changed unexpectedly: %d", cfg.GuardPort)
	}
}

func TestLoadFile_InvalidJSON_PreservesDefaults(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "config-bad-*.json")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString("{this is not json}"); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	cfg := defaults()
	loadFile(cfg, f.Name())
	if cfg.GuardPort != 8090 {
		t.Errorf("GuardPort changed on bad JSON: %d", cfg.GuardPort)
	}
}

func TestLoad_ReturnsNonNil(t *testing.T) {
	cfg := Load()
	if cfg == nil {
		t.Fatal("Load() returned nil")
	}
	if cfg.GuardPort <= 0 {
		t.Errorf("GuardPort should be positive, got %d", cfg.GuardPort)
	}
}

func TestWorkerBaseURL_StripsTrailingSlashAndTranslateSuffix(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"http://127.0.0.1:8093", "http://127.0.0.1:8093"},
		{"http://127.0.0.1:8093/", "http://127.0.0.1:8093"},
		{"http://127.0.0.1:8093/translate", "http://127.0.0.1:8093"},
		{"http://127.0.0.1:8093/translate/", "http://127.0.0.1:8093"},
		{"", "http://127.0.0.1:8093"},
	}
	for _, c := range cases {
		cfg := &Config{MTBackend: c.in}
		if got := cfg.WorkerBaseURL(); got != c.want {
			t.Errorf("WorkerBaseURL(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
