// Package session ties the parser, alignment, store and exporter together
// for one baseline/target pair.
//
// A Session owns everything that changes on reload (both parsed bundles,
// the baseline's raw lines, detected encodings). The translation store is
// shared and outlives loads. A Session is meant for a single editor and
// is not safe for concurrent use.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/minios-linux/propdiff/align"
	"github.com/minios-linux/propdiff/charset"
	"github.com/minios-linux/propdiff/export"
	"github.com/minios-linux/propdiff/lockfile"
	"github.com/minios-linux/propdiff/propfile"
	"github.com/minios-linux/propdiff/source"
	"github.com/minios-linux/propdiff/store"
	"github.com/minios-linux/propdiff/textnorm"
)

// Session holds the current comparison state.
type Session struct {
	store *store.Store
	lock  *lockfile.LockFile

	baseLang   string
	targetLang string

	baseline  *propfile.File
	target    *propfile.File
	baseEnc   charset.Encoding
	targetEnc charset.Encoding
}

// Option configures a Session.
type Option func(*Session)

// WithLock enables stale-translation tracking through lf.
func WithLock(lf *lockfile.LockFile) Option {
	return func(s *Session) { s.lock = lf }
}

// WithLocales sets the baseline and target locale tags (default en, fr).
func WithLocales(baseline, target string) Option {
	return func(s *Session) {
		if baseline != "" {
			s.baseLang = baseline
		}
		if target != "" {
			s.targetLang = target
		}
	}
}

// New creates an empty session backed by st. A nil st is replaced by an
// in-memory store, so edits last only as long as the session.
func New(st *store.Store, opts ...Option) *Session {
	if st == nil {
		// A memory backend never fails to read.
		st, _ = store.Open(context.Background(), store.NewMemoryBackend(nil))
	}
	s := &Session{store: st, baseLang: "en", targetLang: "fr"}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Locales returns the baseline and target locale tags.
func (s *Session) Locales() (baseline, target string) {
	return s.baseLang, s.targetLang
}

// Store returns the translation store.
func (s *Session) Store() *store.Store {
	return s.store
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads both sources concurrently and, only when both succeed,
// replaces the session's bundles. A nil source fails with ErrMissingInput
// before anything is read.
func (s *Session) Load(ctx context.Context, baseline, target source.Source) error {
	switch {
	case baseline == nil && target == nil:
		return fmt.Errorf("%w: neither was given", ErrMissingInput)
	case baseline == nil:
		return fmt.Errorf("%w: baseline is missing", ErrMissingInput)
	case target == nil:
		return fmt.Errorf("%w: target is missing", ErrMissingInput)
	}

	var baseData, targetData []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		data, err := baseline.Read(gctx)
		if err != nil {
			return fmt.Errorf("%w %s: %w", ErrRead, baseline.Name(), err)
		}
		baseData = data
		return nil
	})
	g.Go(func() error {
		data, err := target.Read(gctx)
		if err != nil {
			return fmt.Errorf("%w %s: %w", ErrRead, target.Name(), err)
		}
		targetData = data
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	base, baseEnc := propfile.ParseBytes(baseData)
	tgt, targetEnc := propfile.ParseBytes(targetData)

	log.Debug().
		Str("baseline", baseline.Name()).Stringer("encoding", baseEnc).
		Int("keys", base.Len()).Int("structural", base.StructuralLines()).
		Msg("baseline loaded")
	log.Debug().
		Str("target", target.Name()).Stringer("encoding", targetEnc).Int("keys", tgt.Len()).
		Msg("target loaded")
	if d := base.Duplicates(); len(d) > 0 {
		log.Warn().Strs("keys", d).Msg("duplicate keys in baseline, last value wins")
	}
	if d := tgt.Duplicates(); len(d) > 0 {
		log.Warn().Strs("keys", d).Msg("duplicate keys in target, last value wins")
	}

	s.baseline, s.baseEnc = base, baseEnc
	s.target, s.targetEnc = tgt, targetEnc
	s.pruneLock()
	return nil
}

// pruneLock drops lock entries for keys the baseline no longer defines.
func (s *Session) pruneLock() {
	if s.lock == nil {
		return
	}
	n := s.lock.Clean(s.targetLang, s.baseline.Keys())
	if n == 0 {
		return
	}
	log.Debug().Int("removed", n).Str("target", s.targetLang).Msg("pruned lock entries")
	if err := s.lock.Save(); err != nil {
		log.Warn().Err(err).Msg("could not update lock file")
	}
}

// Loaded reports whether a Load has succeeded.
func (s *Session) Loaded() bool {
	return s.baseline != nil && s.target != nil
}

// Baseline returns the parsed baseline bundle, or nil before Load.
func (s *Session) Baseline() *propfile.File { return s.baseline }

// Target returns the parsed target bundle, or nil before Load.
func (s *Session) Target() *propfile.File { return s.target }

// Encodings returns the encodings detected for the baseline and target.
func (s *Session) Encodings() (baseline, target charset.Encoding) {
	return s.baseEnc, s.targetEnc
}

// ---------------------------------------------------------------------------
// Queries
// ---------------------------------------------------------------------------

// Report computes the alignment report, including stale keys when a lock
// file is configured.
func (s *Session) Report() (align.Report, error) {
	if !s.Loaded() {
		return align.Report{}, ErrNotLoaded
	}
	r := align.Compute(s.baseline, s.target)
	if s.lock != nil {
		r = align.WithStale(r, s.lock, s.targetLang, s.baseline)
	}
	return r, nil
}

// Effective returns the value displayed and exported for key.
func (s *Session) Effective(key string) string {
	return export.Effective(key, s.store, s.target)
}

// Row is one baseline key as presented to an editor.
type Row struct {
	Key         string
	Baseline    string
	Value       string
	Missing     bool
	Saved       bool
	Stale       bool // baseline text changed after the value was saved
	Unsupported []rune
}

// RowFilter narrows Rows.
type RowFilter struct {
	// MissingOnly keeps rows whose effective value is empty.
	MissingOnly bool
	// Search keeps rows whose key, baseline or value contains it,
	// case-insensitively.
	Search string
}

// Rows lists baseline keys in file order with their effective values.
func (s *Session) Rows(f RowFilter) ([]Row, error) {
	if !s.Loaded() {
		return nil, ErrNotLoaded
	}
	needle := strings.ToLower(strings.TrimSpace(f.Search))

	var rows []Row
	for _, key := range s.baseline.Keys() {
		base, _ := s.baseline.Get(key)
		value := s.Effective(key)
		row := Row{
			Key:         key,
			Baseline:    base,
			Value:       value,
			Missing:     value == "",
			Saved:       s.store.Saved(key),
			Stale:       s.stale(key, base),
			Unsupported: charset.Unsupported(value),
		}
		if f.MissingOnly && !row.Missing {
			continue
		}
		if needle != "" && !matches(needle, key, base, value) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Session) stale(key, baseValue string) bool {
	if s.lock == nil || !s.lock.Has(s.targetLang, key) {
		return false
	}
	return s.lock.IsChanged(s.targetLang, key, baseValue)
}

func matches(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

// Progress returns the number of baseline keys and how many of them have a
// non-empty effective value.
func (s *Session) Progress() (total, translated int, err error) {
	if !s.Loaded() {
		return 0, 0, ErrNotLoaded
	}
	total, translated, _ = s.baseline.Stats(s.Effective)
	return total, translated, nil
}

// ---------------------------------------------------------------------------
// Editing and export
// ---------------------------------------------------------------------------

// EditResult describes a saved edit.
type EditResult struct {
	Key string
	// Value is the stored value after trimming and normalization.
	Value string
	// Unsupported lists characters that will not survive an ISO-8859-1 export.
	Unsupported []rune
}

// Edit trims and normalizes value, then saves it for key. When a lock file
// is configured and the baseline defines key, the baseline text is
// recorded so later changes to it mark the translation stale.
func (s *Session) Edit(ctx context.Context, key, value string) (EditResult, error) {
	// Normalize first: deleting a zero-width character can expose spaces.
	value = strings.TrimSpace(textnorm.String(value))
	if err := s.store.Set(ctx, key, value); err != nil {
		return EditResult{}, err
	}

	if s.lock != nil && s.baseline != nil {
		if base, ok := s.baseline.Get(key); ok {
			s.lock.Update(s.targetLang, key, base)
			if err := s.lock.Save(); err != nil {
				// The translation itself is already durable.
				log.Warn().Err(err).Str("key", key).Msg("could not update lock file")
			}
		}
	}

	return EditResult{Key: key, Value: value, Unsupported: charset.Unsupported(value)}, nil
}

// Lines returns the baseline's raw lines.
func (s *Session) Lines() []string {
	if s.baseline == nil {
		return nil
	}
	return s.baseline.Lines()
}

// Export renders the output bundle for mode.
func (s *Session) Export(mode export.Mode) (string, error) {
	if !s.Loaded() {
		return "", ErrNotLoaded
	}
	return export.Export(mode, s.baseline.Lines(), s.store, s.target), nil
}

// Preview renders the full output bundle.
func (s *Session) Preview() (string, error) {
	return s.Export(export.ModeAll)
}

// FileName returns the export file name for mode and the target locale.
func (s *Session) FileName(mode export.Mode) string {
	return export.FileNameFor(mode, s.targetLang)
}
