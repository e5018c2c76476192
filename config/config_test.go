package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/minios-linux/propdiff/charset"
	"github.com/minios-linux/propdiff/store"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvStoreBackend, EnvStorePath, EnvOutputDir, EnvCharset, "PROPDIFF_LOCK"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.BaselineLang != "en" || c.TargetLang != "fr" {
		t.Fatalf("langs = %q/%q, want en/fr", c.BaselineLang, c.TargetLang)
	}
	if c.Store.Backend != store.KindFile {
		t.Fatalf("Store.Backend = %q, want %q", c.Store.Backend, store.KindFile)
	}
	if c.OutputCharset() != charset.CharsetLatin1 {
		t.Fatalf("OutputCharset() = %v, want latin1", c.OutputCharset())
	}
	if !c.LockEnabled() {
		t.Fatal("LockEnabled() = false, want true")
	}
	if c.Root() != dir {
		t.Fatalf("Root() = %q, want %q", c.Root(), dir)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
baseline: i18n/Bundle.properties
target: https://example.com/Bundle_fr.properties
target_lang: fr-CA
store:
  backend: sqlite
  path: state/translations.db
output_dir: out
charset: utf-8
lock: false
`)

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if want := filepath.Join(dir, "i18n", "Bundle.properties"); c.Baseline != want {
		t.Errorf("Baseline = %q, want %q", c.Baseline, want)
	}
	if c.Target != "https://example.com/Bundle_fr.properties" {
		t.Errorf("Target = %q, URL should be kept as-is", c.Target)
	}
	if c.TargetLang != "fr-CA" {
		t.Errorf("TargetLang = %q", c.TargetLang)
	}
	if c.Store.Backend != store.KindSQLite {
		t.Errorf("Store.Backend = %q", c.Store.Backend)
	}
	if want := filepath.Join(dir, "state", "translations.db"); c.Store.Path != want {
		t.Errorf("Store.Path = %q, want %q", c.Store.Path, want)
	}
	if want := filepath.Join(dir, "out"); c.OutputDir != want {
		t.Errorf("OutputDir = %q, want %q", c.OutputDir, want)
	}
	if c.OutputCharset() != charset.CharsetUTF8 {
		t.Errorf("OutputCharset() = %v, want UTF-8", c.OutputCharset())
	}
	if c.LockEnabled() {
		t.Error("LockEnabled() = true, want false")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"unknown backend", "store:\n  backend: redis\n", "unknown store backend"},
		{"unknown charset", "charset: ebcdic\n", "unknown charset"},
		{"bad locale", "target_lang: not_a_tag!\n", "target_lang"},
		{"bad yaml", "store: [\n", "parsing"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tc.content)
			_, err := Load(dir)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error = %v, want it to mention %q", err, tc.want)
			}
		})
	}
}

func TestUnknownBackendIsSentinel(t *testing.T) {
	c := Default(t.TempDir())
	c.Store.Backend = "redis"
	if err := c.Validate(); !errors.Is(err, store.ErrUnknownBackend) {
		t.Fatalf("Validate() = %v, want ErrUnknownBackend", err)
	}
}

func TestApplyEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	c := Default(dir)

	t.Setenv(EnvStoreBackend, "memory")
	t.Setenv(EnvCharset, "utf8")
	t.Setenv("PROPDIFF_LOCK", "false")
	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if c.Store.Backend != "memory" {
		t.Errorf("Store.Backend = %q, want memory", c.Store.Backend)
	}
	if c.OutputCharset() != charset.CharsetUTF8 {
		t.Errorf("OutputCharset() = %v", c.OutputCharset())
	}
	if c.LockEnabled() {
		t.Error("LockEnabled() = true, want false")
	}
}

func TestApplyEnvReadsDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvOutputDir+"=exports\n"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	// godotenv does not override variables that are already set, and
	// t.Setenv("", ...) above counts as set, so unset it for this test.
	os.Unsetenv(EnvOutputDir)
	t.Cleanup(func() { os.Unsetenv(EnvOutputDir) })

	c := Default(dir)
	if err := c.ApplyEnv(); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if c.OutputDir != "exports" {
		t.Errorf("OutputDir = %q, want exports", c.OutputDir)
	}
}

func TestApplyEnvRejectsInvalid(t *testing.T) {
	clearEnv(t)
	c := Default(t.TempDir())
	t.Setenv(EnvCharset, "klingon")
	if err := c.ApplyEnv(); err == nil {
		t.Fatal("expected validation error")
	}
}
