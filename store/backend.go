package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Backend kinds accepted by NewBackend.
const (
	KindFile   = "file"
	KindSQLite = "sqlite"
	KindMemory = "memory"
)

const dataDirName = "propdiff"

// Kinds lists the supported backend kinds.
func Kinds() []string {
	return []string{KindFile, KindSQLite, KindMemory}
}

// NewBackend builds a backend of the given kind. An empty path selects
// DefaultPath(kind).
func NewBackend(ctx context.Context, kind, path string) (Backend, error) {
	kind = strings.ToLower(strings.TrimSpace(kind))
	if kind == "" {
		kind = KindFile
	}
	if path == "" && kind != KindMemory {
		p, err := DefaultPath(kind)
		if err != nil {
			return nil, err
		}
		path = p
	}

	log.Debug().Str("backend", kind).Str("path", path).Msg("opening translation store")

	switch kind {
	case KindFile:
		return NewFileBackend(path), nil
	case KindSQLite:
		return OpenSQLite(ctx, path)
	case KindMemory:
		return NewMemoryBackend(nil), nil
	}
	return nil, fmt.Errorf("%w: %q (use %s)", ErrUnknownBackend, kind, strings.Join(Kinds(), ", "))
}

// DataDir returns the propdiff data directory.
// Respects $XDG_DATA_HOME (falls back to ~/.local/share).
func DataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, dataDirName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", dataDirName), nil
}

// DefaultPath returns the default storage location for a backend kind:
// translations.yaml for file, translations.db for sqlite.
func DefaultPath(kind string) (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	switch kind {
	case KindSQLite:
		return filepath.Join(dir, "translations.db"), nil
	case KindMemory:
		return "", nil
	}
	return filepath.Join(dir, "translations.yaml"), nil
}
