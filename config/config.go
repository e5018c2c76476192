// Package config loads the .propdiff.yaml configuration file.
//
// Settings are resolved in this order, later sources overriding earlier
// ones: built-in defaults, .propdiff.yaml in the project root, environment
// variables (a .env file in the root is loaded first if present), and
// finally command-line flags applied by the caller.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/minios-linux/propdiff/charset"
	"github.com/minios-linux/propdiff/store"
)

// ---------------------------------------------------------------------------
// YAML schema
// ---------------------------------------------------------------------------

// Config is the top-level .propdiff.yaml structure.
type Config struct {
	// Baseline is the reference bundle (file path or http(s) URL).
	Baseline string `yaml:"baseline,omitempty"`
	// Target is the bundle being translated.
	Target string `yaml:"target,omitempty"`
	// BaselineLang is the baseline locale tag (default "en").
	BaselineLang string `yaml:"baseline_lang,omitempty"`
	// TargetLang is the target locale tag (default "fr").
	TargetLang string `yaml:"target_lang,omitempty"`
	// Store configures where edited translations are kept.
	Store StoreConfig `yaml:"store,omitempty"`
	// OutputDir is where exported bundles are written (default ".").
	OutputDir string `yaml:"output_dir,omitempty"`
	// Charset is the export encoding: "latin1" (default) or "utf-8".
	Charset string `yaml:"charset,omitempty"`
	// Lock enables propdiff.lock stale tracking (default true).
	Lock *bool `yaml:"lock,omitempty"`

	// root is the directory the file was loaded from.
	root string `yaml:"-"`
}

// StoreConfig selects the translation store backend.
type StoreConfig struct {
	// Backend is "file", "sqlite" or "memory" (default "file").
	Backend string `yaml:"backend,omitempty"`
	// Path overrides the backend's default location.
	Path string `yaml:"path,omitempty"`
}

// FileName is the default config file name.
const FileName = ".propdiff.yaml"

// Environment variables read by ApplyEnv.
const (
	EnvStoreBackend = "PROPDIFF_STORE_BACKEND"
	EnvStorePath    = "PROPDIFF_STORE_PATH"
	EnvOutputDir    = "PROPDIFF_OUTPUT_DIR"
	EnvCharset      = "PROPDIFF_CHARSET"
)

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Default returns the built-in configuration rooted at rootDir.
func Default(rootDir string) *Config {
	c := &Config{root: rootDir}
	c.applyDefaults()
	return c
}

// Load reads .propdiff.yaml from rootDir, applies defaults and validates
// the result. A missing file yields the defaults. Relative paths in the
// file are resolved against rootDir.
func Load(rootDir string) (*Config, error) {
	path := filepath.Join(rootDir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(rootDir), nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var c Config
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	c.root = rootDir
	c.applyDefaults()

	c.Baseline = c.resolve(c.Baseline)
	c.Target = c.resolve(c.Target)
	c.OutputDir = c.resolve(c.OutputDir)
	c.Store.Path = c.resolve(c.Store.Path)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.BaselineLang == "" {
		c.BaselineLang = "en"
	}
	if c.TargetLang == "" {
		c.TargetLang = "fr"
	}
	if c.Store.Backend == "" {
		c.Store.Backend = store.KindFile
	}
	if c.OutputDir == "" {
		c.OutputDir = "."
	}
	if c.Charset == "" {
		c.Charset = "latin1"
	}
	if c.Lock == nil {
		enabled := true
		c.Lock = &enabled
	}
}

// resolve makes a relative file path relative to the config root. URLs
// and absolute paths are returned unchanged.
func (c *Config) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || strings.Contains(p, "://") || c.root == "" {
		return p
	}
	return filepath.Join(c.root, p)
}

// ApplyEnv overlays environment variables. A .env file in the root is
// loaded into the environment first when it exists.
func (c *Config) ApplyEnv() error {
	envFile := filepath.Join(c.root, ".env")
	if err := godotenv.Load(envFile); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
		log.Debug().Str("path", envFile).Msg("no .env file, using environment variables")
	}

	c.Store.Backend = getEnv(EnvStoreBackend, c.Store.Backend)
	c.Store.Path = getEnv(EnvStorePath, c.Store.Path)
	c.OutputDir = getEnv(EnvOutputDir, c.OutputDir)
	c.Charset = getEnv(EnvCharset, c.Charset)
	if v, ok := os.LookupEnv("PROPDIFF_LOCK"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Lock = &b
		}
	}
	return c.Validate()
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ---------------------------------------------------------------------------
// Validation and accessors
// ---------------------------------------------------------------------------

// Validate checks backend, charset and locale tags.
func (c *Config) Validate() error {
	valid := false
	for _, k := range store.Kinds() {
		if strings.EqualFold(c.Store.Backend, k) {
			valid = true
		}
	}
	if !valid {
		return fmt.Errorf("%w: %q", store.ErrUnknownBackend, c.Store.Backend)
	}
	if _, err := charset.ParseCharset(c.Charset); err != nil {
		return err
	}
	if _, err := language.Parse(c.BaselineLang); err != nil {
		return fmt.Errorf("baseline_lang %q: %w", c.BaselineLang, err)
	}
	if _, err := language.Parse(c.TargetLang); err != nil {
		return fmt.Errorf("target_lang %q: %w", c.TargetLang, err)
	}
	return nil
}

// Root returns the directory the configuration belongs to.
func (c *Config) Root() string {
	return c.root
}

// OutputCharset returns the parsed export charset.
func (c *Config) OutputCharset() charset.Charset {
	cs, _ := charset.ParseCharset(c.Charset)
	return cs
}

// LockEnabled reports whether stale tracking is on.
func (c *Config) LockEnabled() bool {
	return c.Lock == nil || *c.Lock
}
