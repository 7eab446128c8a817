package config_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/derickschaefer/bodacc/internal/config"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

// chdir moves the test into dir for its duration.
func chdir(t *testing.T, dir string) {
	t.Helper()
	orig, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

// writeRaw writes a config.json with the given body into dir and moves
// the test there.
func writeRaw(t *testing.T, dir, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, config.DefaultConfigFile), []byte(body), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	chdir(t, dir)
}

// clearEnv unsets every BODACC_* variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{config.EnvBaseURL, config.EnvDataset, config.EnvTimeout, config.EnvDBPath} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

// ─── Defaults ─────────────────────────────────────────────────────────────────

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeout != config.DefaultTimeout {
		t.Errorf("Timeout: expected %v, got %v", config.DefaultTimeout, cfg.Timeout)
	}
	if cfg.Concurrency != config.DefaultConcurrency {
		t.Errorf("Concurrency: expected %d, got %d", config.DefaultConcurrency, cfg.Concurrency)
	}
	if cfg.BaseURL != config.DefaultBaseURL || cfg.Dataset != config.DefaultDataset {
		t.Errorf("endpoint: got %q / %q", cfg.BaseURL, cfg.Dataset)
	}
	if cfg.PositiveThreshold != 10 || cfg.NegativeThreshold != -10 {
		t.Errorf("thresholds: got %g / %g", cfg.PositiveThreshold, cfg.NegativeThreshold)
	}
	if !cfg.CreationsOnly {
		t.Error("CreationsOnly should default to true")
	}
	if cfg.ConfigPath != "" {
		t.Errorf("ConfigPath should be empty without config.json, got %q", cfg.ConfigPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

// ─── File layer ───────────────────────────────────────────────────────────────

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	writeRaw(t, t.TempDir(), `{
  "dataset": "annonces-test",
  "timeout": "3s",
  "concurrency": 2,
  "cache_ttl": "1m",
  "weather_positive_threshold": 5,
  "weather_negative_threshold": -5,
  "weather_reference_month": "2024-02",
  "creations_only": false
}`)

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dataset != "annonces-test" {
		t.Errorf("Dataset: got %q", cfg.Dataset)
	}
	if cfg.Timeout != 3*time.Second {
		t.Errorf("Timeout: got %v", cfg.Timeout)
	}
	if cfg.Concurrency != 2 {
		t.Errorf("Concurrency: got %d", cfg.Concurrency)
	}
	if cfg.CacheTTL != time.Minute {
		t.Errorf("CacheTTL: got %v", cfg.CacheTTL)
	}
	if cfg.PositiveThreshold != 5 || cfg.NegativeThreshold != -5 {
		t.Errorf("thresholds: got %g / %g", cfg.PositiveThreshold, cfg.NegativeThreshold)
	}
	if cfg.ReferenceMonth != "2024-02" {
		t.Errorf("ReferenceMonth: got %q", cfg.ReferenceMonth)
	}
	if cfg.CreationsOnly {
		t.Error("creations_only=false in the file should be honoured")
	}
	if !strings.HasSuffix(cfg.ConfigPath, config.DefaultConfigFile) {
		t.Errorf("ConfigPath: got %q", cfg.ConfigPath)
	}
}

func TestLoadMalformedFile(t *testing.T) {
	clearEnv(t)
	writeRaw(t, t.TempDir(), `{"timeout": `)
	if _, err := config.Load(); err == nil {
		t.Error("expected an error for malformed config.json")
	}
}

func TestLoadBadDurationInFile(t *testing.T) {
	clearEnv(t)
	writeRaw(t, t.TempDir(), `{"timeout": "soon"}`)
	_, err := config.Load()
	if err == nil || !strings.Contains(err.Error(), "timeout") {
		t.Errorf("expected timeout error, got %v", err)
	}
}

// ─── Env layers ───────────────────────────────────────────────────────────────

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	writeRaw(t, t.TempDir(), `{"dataset": "from-file", "db_path": "/tmp/file.db"}`)
	t.Setenv(config.EnvDataset, "from-env")
	t.Setenv(config.EnvDBPath, "/tmp/env.db")
	t.Setenv(config.EnvTimeout, "7s")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dataset != "from-env" {
		t.Errorf("Dataset: got %q", cfg.Dataset)
	}
	if cfg.DBPath != "/tmp/env.db" {
		t.Errorf("DBPath: got %q", cfg.DBPath)
	}
	if cfg.Timeout != 7*time.Second {
		t.Errorf("Timeout: got %v", cfg.Timeout)
	}
}

func TestDotEnvFillsUnsetOnly(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	body := config.EnvDataset + "=from-dotenv\n" + config.EnvBaseURL + "=https://dotenv.example/api/\n"
	if err := os.WriteFile(filepath.Join(dir, config.DefaultEnvFile), []byte(body), 0600); err != nil {
		t.Fatal(err)
	}
	chdir(t, dir)
	t.Setenv(config.EnvBaseURL, "https://env.example/api/")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dataset != "from-dotenv" {
		t.Errorf("Dataset: got %q", cfg.Dataset)
	}
	if cfg.BaseURL != "https://env.example/api/" {
		t.Errorf(".env must not override the environment, got %q", cfg.BaseURL)
	}
}

func TestBadEnvTimeout(t *testing.T) {
	clearEnv(t)
	chdir(t, t.TempDir())
	t.Setenv(config.EnvTimeout, "fast")
	if _, err := config.Load(); err == nil {
		t.Error("expected an error for a bad BODACC_TIMEOUT")
	}
}

// ─── Validate ─────────────────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"zero timeout", func(c *config.Config) { c.Timeout = 0 }, "timeout"},
		{"inverted thresholds", func(c *config.Config) { c.PositiveThreshold, c.NegativeThreshold = -5, 5 }, "threshold"},
		{"equal thresholds", func(c *config.Config) { c.PositiveThreshold, c.NegativeThreshold = 0, 0 }, "threshold"},
		{"bad month", func(c *config.Config) { c.ReferenceMonth = "2024-13" }, "weather_reference_month"},
		{"bad url", func(c *config.Config) { c.BaseURL = "ftp://x" }, "base_url"},
		{"empty dataset", func(c *config.Config) { c.Dataset = " " }, "dataset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error mentioning %q, got %v", tt.want, err)
			}
		})
	}
}

// ─── Set / Template / WriteFile ───────────────────────────────────────────────

func TestFileSet(t *testing.T) {
	var f config.File
	for key, val := range map[string]string{
		"timeout":                    "20s",
		"concurrency":                "6",
		"rate":                       "2.5",
		"weather_positive_threshold": "15",
		"creations_only":             "false",
		"weather_reference_month":    "2023-11",
	} {
		if err := f.Set(key, val); err != nil {
			t.Fatalf("Set(%s): %v", key, err)
		}
	}
	if f.Timeout != "20s" || f.Concurrency != 6 || f.Rate != 2.5 {
		t.Errorf("unexpected file: %+v", f)
	}
	if f.PositiveThreshold == nil || *f.PositiveThreshold != 15 {
		t.Error("positive threshold not set")
	}
	if f.CreationsOnly == nil || *f.CreationsOnly {
		t.Error("creations_only not set to false")
	}

	for key, val := range map[string]string{
		"timeout":                 "later",
		"concurrency":             "many",
		"creations_only":          "maybe",
		"weather_reference_month": "Nov 2023",
		"api_key":                 "x",
	} {
		if err := f.Set(key, val); err == nil {
			t.Errorf("Set(%s, %s): expected error", key, val)
		}
	}
}

func TestKeysSorted(t *testing.T) {
	keys := config.Keys()
	if len(keys) == 0 {
		t.Fatal("no keys")
	}
	for i := 1; i < len(keys); i++ {
		if keys[i-1] > keys[i] {
			t.Errorf("keys not sorted at %d: %q > %q", i, keys[i-1], keys[i])
		}
	}
}

func TestWriteFileRoundTrip(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	chdir(t, dir)

	if err := config.WriteFile(config.DefaultConfigFile, config.Template()); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	info, err := os.Stat(config.DefaultConfigFile)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions: expected 0600, got %o", perm)
	}

	data, _ := os.ReadFile(config.DefaultConfigFile)
	if !json.Valid(data) {
		t.Error("written config is not valid JSON")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	def := config.Defaults()
	if cfg.Timeout != def.Timeout || cfg.CacheTTL != def.CacheTTL || cfg.CreationsOnly != def.CreationsOnly {
		t.Errorf("template should load back to the defaults, got %+v", cfg)
	}
}

func TestPairsCoverKeys(t *testing.T) {
	pairs := config.Defaults().Pairs()
	seen := map[string]bool{}
	for _, p := range pairs {
		seen[p[0]] = true
	}
	for _, k := range config.Keys() {
		if !seen[k] {
			t.Errorf("Pairs missing key %q", k)
		}
	}
}
