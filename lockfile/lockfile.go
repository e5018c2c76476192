// Package lockfile implements propdiff.lock, a lock file that tracks MD5
// checksums of baseline strings at the moment their translation was saved.
// When the baseline text later changes, the saved translation is stale and
// the key is reported for review.
//
// The lock file is stored in the project root as propdiff.lock.
package lockfile

import (
	"crypto/md5"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// LockFileName is the default lock file name.
const LockFileName = "propdiff.lock"

// Version is the lock file format version.
const Version = 1

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// LockFile represents the propdiff.lock file structure.
type LockFile struct {
	Version   int                          `yaml:"version"`
	Checksums map[string]map[string]string `yaml:"checksums"` // target locale -> key -> md5

	mu   sync.Mutex `yaml:"-"`
	path string     `yaml:"-"`
}

// New returns an empty lock file that will be saved to dir.
func New(dir string) *LockFile {
	return &LockFile{
		Version:   Version,
		Checksums: make(map[string]map[string]string),
		path:      filepath.Join(dir, LockFileName),
	}
}

// ---------------------------------------------------------------------------
// Loading and saving
// ---------------------------------------------------------------------------

// Load reads a lock file from the given directory.
// Returns an empty lock file if the file doesn't exist.
func Load(dir string) (*LockFile, error) {
	lf := New(dir)

	data, err := os.ReadFile(lf.path)
	if err != nil {
		if os.IsNotExist(err) {
			return lf, nil
		}
		return nil, fmt.Errorf("reading %s: %w", lf.path, err)
	}

	if err := yaml.Unmarshal(data, lf); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", lf.path, err)
	}

	if lf.Checksums == nil {
		lf.Checksums = make(map[string]map[string]string)
	}

	return lf, nil
}

// Save writes the lock file to disk.
func (lf *LockFile) Save() error {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.path == "" {
		return fmt.Errorf("lock file path not set")
	}

	data, err := yaml.Marshal(lf)
	if err != nil {
		return fmt.Errorf("marshaling lock file: %w", err)
	}

	if err := os.WriteFile(lf.path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", lf.path, err)
	}

	return nil
}

// Path returns the lock file path.
func (lf *LockFile) Path() string {
	return lf.path
}

// ---------------------------------------------------------------------------
// Checksum operations
// ---------------------------------------------------------------------------

// Hash computes the MD5 hex digest of a string.
func Hash(s string) string {
	return fmt.Sprintf("%x", md5.Sum([]byte(s)))
}

// EntryContent builds the hashed content for a key and its baseline value.
// The key is included so that renaming a key is also a change.
func EntryContent(key, baselineValue string) string {
	return key + "\x00" + baselineValue
}

// Has reports whether a checksum is recorded for key.
func (lf *LockFile) Has(target, key string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()
	_, ok := lf.Checksums[target][key]
	return ok
}

// IsChanged reports whether the baseline value of key differs from the
// one recorded. Keys without a record are reported as changed.
func (lf *LockFile) IsChanged(target, key, baselineValue string) bool {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	return lf.changed(target, key, baselineValue)
}

// changed is IsChanged without locking.
func (lf *LockFile) changed(target, key, baselineValue string) bool {
	old, ok := lf.Checksums[target][key]
	if !ok {
		return true
	}
	return old != Hash(EntryContent(key, baselineValue))
}

// Update records the baseline value a translation was made against.
func (lf *LockFile) Update(target, key, baselineValue string) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	if lf.Checksums[target] == nil {
		lf.Checksums[target] = make(map[string]string)
	}
	lf.Checksums[target][key] = Hash(EntryContent(key, baselineValue))
}

// Stale returns the recorded keys of target whose baseline value has
// changed. Keys missing from baseline are skipped; they show up as extra
// keys elsewhere. The result is sorted.
func (lf *LockFile) Stale(target string, baseline map[string]string) []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	var stale []string
	for key := range lf.Checksums[target] {
		value, ok := baseline[key]
		if !ok {
			continue
		}
		if lf.changed(target, key, value) {
			stale = append(stale, key)
		}
	}
	sort.Strings(stale)
	return stale
}

// Clean removes entries that are no longer present in the current set of
// keys and returns how many were removed. This prevents stale entries from
// accumulating.
func (lf *LockFile) Clean(target string, currentKeys []string) int {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	existing := lf.Checksums[target]
	if existing == nil {
		return 0
	}

	valid := make(map[string]bool, len(currentKeys))
	for _, k := range currentKeys {
		valid[k] = true
	}

	removed := 0
	for k := range existing {
		if !valid[k] {
			delete(existing, k)
			removed++
		}
	}
	return removed
}

// ---------------------------------------------------------------------------
// Stats
// ---------------------------------------------------------------------------

// Stats returns the number of targets and total keys in the lock file.
func (lf *LockFile) Stats() (targets, keys int) {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets = len(lf.Checksums)
	for _, m := range lf.Checksums {
		keys += len(m)
	}
	return
}

// Targets returns sorted list of target locales.
func (lf *LockFile) Targets() []string {
	lf.mu.Lock()
	defer lf.mu.Unlock()

	targets := make([]string, 0, len(lf.Checksums))
	for t := range lf.Checksums {
		targets = append(targets, t)
	}
	sort.Strings(targets)
	return targets
}

// Summary returns a human-readable summary string.
func (lf *LockFile) Summary() string {
	targets, keys := lf.Stats()
	if targets == 0 {
		return "empty"
	}

	var parts []string
	for _, t := range lf.Targets() {
		lf.mu.Lock()
		n := len(lf.Checksums[t])
		lf.mu.Unlock()
		parts = append(parts, fmt.Sprintf("%s: %d keys", t, n))
	}
	return fmt.Sprintf("%d targets, %d keys (%s)", targets, keys, strings.Join(parts, ", "))
}
