package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileVersion is the translations file format version.
const fileVersion = 1

// document is the on-disk shape of a FileBackend.
type document struct {
	Version      int               `yaml:"version"`
	Translations map[string]string `yaml:"translations"`
}

// FileBackend stores the mapping as a YAML document. Every Set rewrites
// the whole file with 0600 permissions.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend writing to path. The file and its parent
// directory are created on the first Set.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the file location.
func (f *FileBackend) Path() string {
	return f.path
}

// GetAll implements Backend. A missing file is an empty mapping.
func (f *FileBackend) GetAll(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("reading %s: %w", f.path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.path, err)
	}
	if doc.Translations == nil {
		doc.Translations = make(map[string]string)
	}
	return doc.Translations, nil
}

// Set implements Backend.
func (f *FileBackend) Set(ctx context.Context, key, value string) error {
	values, err := f.GetAll(ctx)
	if err != nil {
		return err
	}
	values[key] = value

	data, err := yaml.Marshal(document{Version: fileVersion, Translations: values})
	if err != nil {
		return fmt.Errorf("marshaling translations: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0700); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", f.path, err)
	}
	return nil
}

// Close implements Backend.
func (f *FileBackend) Close() error { return nil }
