// Package config handles loading and resolving bodacc configuration.
// Resolution order, lowest priority first:
//  1. built-in defaults
//  2. config.json in the current working directory
//  3. .env in the current working directory (only fills unset variables)
//  4. BODACC_* environment variables
//  5. CLI flags, applied by the command layer after Load
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultConfigFile   = "config.json"
	DefaultEnvFile      = ".env"
	DefaultFormat       = "table"
	DefaultBaseURL      = "https://bodacc-datadila.opendatasoft.com/api/"
	DefaultDataset      = "annonces-commerciales"
	DefaultTimeout      = 15 * time.Second
	DefaultConcurrency  = 4
	DefaultRate         = 5.0
	DefaultCacheTTL     = 5 * time.Minute
	DefaultCacheMaxSize = 100
	DefaultPositive     = 10.0
	DefaultNegative     = -10.0

	EnvBaseURL = "BODACC_BASE_URL"
	EnvDataset = "BODACC_DATASET"
	EnvTimeout = "BODACC_TIMEOUT"
	EnvDBPath  = "BODACC_DB_PATH"
)

// File is the on-disk representation of config.json. Zero values mean
// "use the default"; CreationsOnly is a pointer so false can be stored.
type File struct {
	BaseURL           string   `json:"base_url,omitempty"`
	Dataset           string   `json:"dataset,omitempty"`
	DefaultFormat     string   `json:"default_format,omitempty"`
	Timeout           string   `json:"timeout,omitempty"`
	Concurrency       int      `json:"concurrency,omitempty"`
	Rate              float64  `json:"rate,omitempty"`
	CacheTTL          string   `json:"cache_ttl,omitempty"`
	CacheMaxSize      int      `json:"cache_max_size,omitempty"`
	DBPath            string   `json:"db_path,omitempty"`
	PositiveThreshold *float64 `json:"weather_positive_threshold,omitempty"`
	NegativeThreshold *float64 `json:"weather_negative_threshold,omitempty"`
	ReferenceMonth    string   `json:"weather_reference_month,omitempty"`
	CreationsOnly     *bool    `json:"creations_only,omitempty"`
}

// Config is the fully-resolved runtime configuration.
// All callers use this struct; the File is only read during loading.
type Config struct {
	BaseURL           string
	Dataset           string
	Format            string
	Timeout           time.Duration
	Concurrency       int
	Rate              float64
	CacheTTL          time.Duration
	CacheMaxSize      int
	DBPath            string
	PositiveThreshold float64
	NegativeThreshold float64
	ReferenceMonth    string
	CreationsOnly     bool
	ConfigPath        string // config.json that was loaded, empty if none

	// Runtime overrides set from CLI flags after Load()
	Quiet   bool
	Verbose bool
	Debug   bool
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	cfg := &Config{
		BaseURL:           DefaultBaseURL,
		Dataset:           DefaultDataset,
		Format:            DefaultFormat,
		Timeout:           DefaultTimeout,
		Concurrency:       DefaultConcurrency,
		Rate:              DefaultRate,
		CacheTTL:          DefaultCacheTTL,
		CacheMaxSize:      DefaultCacheMaxSize,
		PositiveThreshold: DefaultPositive,
		NegativeThreshold: DefaultNegative,
		CreationsOnly:     true,
	}
	if home, err := os.UserHomeDir(); err == nil {
		cfg.DBPath = filepath.Join(home, ".bodacc", "bodacc.db")
	}
	return cfg
}

// Load resolves configuration from every layer. A missing config.json or
// .env is not an error; a malformed one is.
func Load() (*Config, error) {
	cfg := Defaults()

	f, path, err := ReadFile(DefaultConfigFile)
	switch {
	case err == nil:
		if err := applyFile(cfg, f); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		cfg.ConfigPath = path
	case !errors.Is(err, os.ErrNotExist):
		return nil, err
	}

	if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", DefaultEnvFile, err)
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings that would make every request fail.
func (c *Config) Validate() error {
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.PositiveThreshold <= c.NegativeThreshold {
		return fmt.Errorf("weather_positive_threshold (%g) must be greater than weather_negative_threshold (%g)",
			c.PositiveThreshold, c.NegativeThreshold)
	}
	if c.ReferenceMonth != "" {
		if _, err := time.Parse("2006-01", c.ReferenceMonth); err != nil {
			return fmt.Errorf("weather_reference_month %q: expected YYYY-MM", c.ReferenceMonth)
		}
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("base_url %q: expected an http(s) URL", c.BaseURL)
	}
	if strings.TrimSpace(c.Dataset) == "" {
		return errors.New("dataset must not be empty")
	}
	return nil
}

// ReadFile parses a config file. The returned error wraps os.ErrNotExist
// when the file is absent.
func ReadFile(name string) (File, string, error) {
	path, err := filepath.Abs(name)
	if err != nil {
		return File{}, "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, path, err
	}
	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return File{}, path, fmt.Errorf("parsing %s: %w", path, err)
	}
	return f, path, nil
}

func applyFile(cfg *Config, f File) error {
	if f.BaseURL != "" {
		cfg.BaseURL = f.BaseURL
	}
	if f.Dataset != "" {
		cfg.Dataset = f.Dataset
	}
	if f.DefaultFormat != "" {
		cfg.Format = f.DefaultFormat
	}
	if f.Timeout != "" {
		d, err := time.ParseDuration(f.Timeout)
		if err != nil {
			return fmt.Errorf("timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if f.Concurrency > 0 {
		cfg.Concurrency = f.Concurrency
	}
	if f.Rate > 0 {
		cfg.Rate = f.Rate
	}
	if f.CacheTTL != "" {
		d, err := time.ParseDuration(f.CacheTTL)
		if err != nil {
			return fmt.Errorf("cache_ttl: %w", err)
		}
		cfg.CacheTTL = d
	}
	if f.CacheMaxSize > 0 {
		cfg.CacheMaxSize = f.CacheMaxSize
	}
	if f.DBPath != "" {
		cfg.DBPath = f.DBPath
	}
	if f.PositiveThreshold != nil {
		cfg.PositiveThreshold = *f.PositiveThreshold
	}
	if f.NegativeThreshold != nil {
		cfg.NegativeThreshold = *f.NegativeThreshold
	}
	if f.ReferenceMonth != "" {
		cfg.ReferenceMonth = f.ReferenceMonth
	}
	if f.CreationsOnly != nil {
		cfg.CreationsOnly = *f.CreationsOnly
	}
	return nil
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(EnvBaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv(EnvDataset); v != "" {
		cfg.Dataset = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvTimeout, err)
		}
		cfg.Timeout = d
	}
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	return nil
}

// ─── Key access for `config get|set` ─────────────────────────────────────────

var setters = map[string]func(f *File, v string) error{
	"base_url":       func(f *File, v string) error { f.BaseURL = v; return nil },
	"dataset":        func(f *File, v string) error { f.Dataset = v; return nil },
	"default_format": func(f *File, v string) error { f.DefaultFormat = v; return nil },
	"db_path":        func(f *File, v string) error { f.DBPath = v; return nil },
	"timeout": func(f *File, v string) error {
		if _, err := time.ParseDuration(v); err != nil {
			return err
		}
		f.Timeout = v
		return nil
	},
	"cache_ttl": func(f *File, v string) error {
		if _, err := time.ParseDuration(v); err != nil {
			return err
		}
		f.CacheTTL = v
		return nil
	},
	"concurrency":    intSetter(func(f *File, n int) { f.Concurrency = n }),
	"cache_max_size": intSetter(func(f *File, n int) { f.CacheMaxSize = n }),
	"rate": func(f *File, v string) error {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.New("must be a number")
		}
		f.Rate = r
		return nil
	},
	"weather_positive_threshold": floatPtrSetter(func(f *File) **float64 { return &f.PositiveThreshold }),
	"weather_negative_threshold": floatPtrSetter(func(f *File) **float64 { return &f.NegativeThreshold }),
	"weather_reference_month": func(f *File, v string) error {
		if v != "" {
			if _, err := time.Parse("2006-01", v); err != nil {
				return errors.New("expected YYYY-MM")
			}
		}
		f.ReferenceMonth = v
		return nil
	},
	"creations_only": func(f *File, v string) error {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.New("must be true or false")
		}
		f.CreationsOnly = &b
		return nil
	},
}

func intSetter(set func(*File, int)) func(*File, string) error {
	return func(f *File, v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("must be an integer")
		}
		set(f, n)
		return nil
	}
}

func floatPtrSetter(field func(*File) **float64) func(*File, string) error {
	return func(f *File, v string) error {
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return errors.New("must be a number")
		}
		*field(f) = &x
		return nil
	}
}

// Keys lists the settable configuration keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(setters))
	for k := range setters {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Set assigns a config.json key from its string form.
func (f *File) Set(key, value string) error {
	set, ok := setters[strings.ToLower(key)]
	if !ok {
		return fmt.Errorf("unknown config key %q\n\nValid keys: %s", key, strings.Join(Keys(), ", "))
	}
	if err := set(f, value); err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

// Pairs returns the resolved configuration as ordered key/value rows.
func (c *Config) Pairs() [][2]string {
	src := c.ConfigPath
	if src == "" {
		src = "(not found)"
	}
	ref := c.ReferenceMonth
	if ref == "" {
		ref = "(last complete month)"
	}
	return [][2]string{
		{"base_url", c.BaseURL},
		{"dataset", c.Dataset},
		{"default_format", c.Format},
		{"timeout", c.Timeout.String()},
		{"concurrency", strconv.Itoa(c.Concurrency)},
		{"rate", fmt.Sprintf("%.1f req/s", c.Rate)},
		{"cache_ttl", c.CacheTTL.String()},
		{"cache_max_size", strconv.Itoa(c.CacheMaxSize)},
		{"db_path", c.DBPath},
		{"weather_positive_threshold", strconv.FormatFloat(c.PositiveThreshold, 'g', -1, 64)},
		{"weather_negative_threshold", strconv.FormatFloat(c.NegativeThreshold, 'g', -1, 64)},
		{"weather_reference_month", ref},
		{"creations_only", strconv.FormatBool(c.CreationsOnly)},
		{"config_file", src},
	}
}

// Template returns a File populated with the defaults, suitable for
// writing an initial config.json via `bodacc config init`.
func Template() File {
	pos, neg, creations := DefaultPositive, DefaultNegative, true
	return File{
		BaseURL:           DefaultBaseURL,
		Dataset:           DefaultDataset,
		DefaultFormat:     DefaultFormat,
		Timeout:           DefaultTimeout.String(),
		Concurrency:       DefaultConcurrency,
		Rate:              DefaultRate,
		CacheTTL:          DefaultCacheTTL.String(),
		CacheMaxSize:      DefaultCacheMaxSize,
		PositiveThreshold: &pos,
		NegativeThreshold: &neg,
		CreationsOnly:     &creations,
	}
}

// WriteFile serialises a File to the given path.
func WriteFile(path string, f File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}
