package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minios-linux/propdiff/charset"
	"github.com/minios-linux/propdiff/export"
	"github.com/minios-linux/propdiff/lockfile"
	"github.com/minios-linux/propdiff/source"
	"github.com/minios-linux/propdiff/store"
)

const (
	baselineText = "# Messages\n" +
		"\n" +
		"greeting=Hello\n" +
		"farewell=Goodbye\n" +
		"ellipsis=Loading...\n" +
		"greeting=Hello again\n"
	targetText = "greeting=Bonjour\n" +
		"farewell=\n" +
		"obsolete=Vieux\n"
)

type failingSource struct{ err error }

func (f failingSource) Name() string { return "broken" }
func (f failingSource) Read(context.Context) ([]byte, error) {
	return nil, f.err
}

func newSession(t *testing.T, opts ...Option) (*Session, *store.MemoryBackend) {
	t.Helper()
	backend := store.NewMemoryBackend(nil)
	st, err := store.Open(context.Background(), backend)
	require.NoError(t, err)
	return New(st, opts...), backend
}

func load(t *testing.T, s *Session) {
	t.Helper()
	err := s.Load(context.Background(),
		source.Bytes("en", []byte(baselineText)),
		source.Bytes("fr", []byte(targetText)),
	)
	require.NoError(t, err)
}

func TestLoadMissingInput(t *testing.T) {
	s, _ := newSession(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Load(ctx, nil, nil), ErrMissingInput)
	assert.ErrorIs(t, s.Load(ctx, source.Bytes("en", nil), nil), ErrMissingInput)
	assert.ErrorIs(t, s.Load(ctx, nil, source.Bytes("fr", nil)), ErrMissingInput)
	assert.False(t, s.Loaded())
}

func TestLoadReadFailureKeepsPreviousState(t *testing.T) {
	s, _ := newSession(t)
	load(t, s)
	before := s.Baseline()

	boom := errors.New("permission denied")
	err := s.Load(context.Background(), source.Bytes("en", []byte("other=1")), failingSource{err: boom})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRead)
	assert.ErrorIs(t, err, boom)

	assert.Same(t, before, s.Baseline())
	v, _ := s.Target().Get("greeting")
	assert.Equal(t, "Bonjour", v)
}

func TestLoadDetectsEncodings(t *testing.T) {
	s, _ := newSession(t)
	err := s.Load(context.Background(),
		source.Bytes("en", append([]byte{0xEF, 0xBB, 0xBF}, "k=v"...)),
		source.Bytes("fr", []byte{'k', '=', 'v', 0xE9}),
	)
	require.NoError(t, err)

	base, target := s.Encodings()
	assert.Equal(t, charset.UTF8BOM, base)
	assert.Equal(t, charset.Latin1, target)
	v, _ := s.Target().Get("k")
	assert.Equal(t, "vé", v)
}

func TestOperationsBeforeLoad(t *testing.T) {
	s, _ := newSession(t)

	_, err := s.Report()
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = s.Rows(RowFilter{})
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, err = s.Export(export.ModeAll)
	assert.ErrorIs(t, err, ErrNotLoaded)
	_, _, err = s.Progress()
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Nil(t, s.Lines())
}

func TestReport(t *testing.T) {
	s, _ := newSession(t)
	load(t, s)

	r, err := s.Report()
	require.NoError(t, err)
	assert.Equal(t, []string{"ellipsis"}, r.MissingInTarget)
	assert.Equal(t, []string{"obsolete"}, r.ExtraInTarget)
	assert.Equal(t, []string{"greeting"}, r.DuplicateBaseline)
	assert.Empty(t, r.DuplicateTarget)
}

func TestRows(t *testing.T) {
	s, _ := newSession(t)
	load(t, s)

	rows, err := s.Rows(RowFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Row{Key: "greeting", Baseline: "Hello again", Value: "Bonjour"}, rows[0])
	assert.Equal(t, "farewell", rows[1].Key)
	assert.True(t, rows[1].Missing)
	assert.True(t, rows[2].Missing)

	rows, err = s.Rows(RowFilter{MissingOnly: true})
	require.NoError(t, err)
	require.Len(t, rows, 2)

	rows, err = s.Rows(RowFilter{Search: "BONJ"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "greeting", rows[0].Key)

	rows, err = s.Rows(RowFilter{Search: "loading", MissingOnly: true})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ellipsis", rows[0].Key)
}

func TestEditNormalizesAndPersists(t *testing.T) {
	s, backend := newSession(t)
	load(t, s)
	ctx := context.Background()

	res, err := s.Edit(ctx, "ellipsis", "  Chargement…  ")
	require.NoError(t, err)
	assert.Equal(t, "Chargement...", res.Value)
	assert.Empty(t, res.Unsupported)

	persisted, err := backend.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Chargement...", persisted["ellipsis"])

	res, err = s.Edit(ctx, "farewell", "Au revoir 日")
	require.NoError(t, err)
	assert.Equal(t, []rune{'日'}, res.Unsupported)

	rows, err := s.Rows(RowFilter{Search: "farewell"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Saved)
	assert.Equal(t, []rune{'日'}, rows[0].Unsupported)
}

func TestExplicitEmptyEditOverridesTarget(t *testing.T) {
	s, _ := newSession(t)
	load(t, s)
	ctx := context.Background()

	_, err := s.Edit(ctx, "greeting", "")
	require.NoError(t, err)
	assert.Equal(t, "", s.Effective("greeting"))

	out, err := s.Export(export.ModeMissingOnly)
	require.NoError(t, err)
	assert.Contains(t, out, "greeting=")

	rows, err := s.Rows(RowFilter{MissingOnly: true})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestExport(t *testing.T) {
	s, _ := newSession(t)
	load(t, s)
	ctx := context.Background()

	out, err := s.Export(export.ModeAll)
	require.NoError(t, err)
	assert.Equal(t, "# Messages\n\ngreeting=Bonjour\nfarewell=\nellipsis=\ngreeting=Bonjour\n", out)

	_, err = s.Edit(ctx, "farewell", "Au revoir\tet merci")
	require.NoError(t, err)

	out, err = s.Export(export.ModeMissingOnly)
	require.NoError(t, err)
	assert.Equal(t, "# Messages\n\nellipsis=\n", out)

	preview, err := s.Preview()
	require.NoError(t, err)
	assert.Contains(t, preview, `farewell=Au revoir\tet merci`)

	assert.Equal(t, "Bundle_fr_missing_only.properties", s.FileName(export.ModeMissingOnly))
}

func TestStoreSurvivesReload(t *testing.T) {
	s, _ := newSession(t)
	load(t, s)
	ctx := context.Background()

	_, err := s.Edit(ctx, "ellipsis", "Chargement")
	require.NoError(t, err)

	err = s.Load(ctx,
		source.Bytes("en", []byte("ellipsis=Loading\n")),
		source.Bytes("fr", []byte("")),
	)
	require.NoError(t, err)

	out, err := s.Export(export.ModeAll)
	require.NoError(t, err)
	assert.Equal(t, "ellipsis=Chargement\n", out)
}

func TestProgress(t *testing.T) {
	s, _ := newSession(t)
	load(t, s)

	total, translated, err := s.Progress()
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Equal(t, 1, translated)
}

func TestStaleTracking(t *testing.T) {
	dir := t.TempDir()
	lf := lockfile.New(dir)
	s, _ := newSession(t, WithLock(lf), WithLocales("en", "fr"))
	load(t, s)
	ctx := context.Background()

	_, err := s.Edit(ctx, "farewell", "Au revoir")
	require.NoError(t, err)

	r, err := s.Report()
	require.NoError(t, err)
	assert.Empty(t, r.Stale)

	err = s.Load(ctx,
		source.Bytes("en", []byte("farewell=Goodbye and thanks\n")),
		source.Bytes("fr", []byte(targetText)),
	)
	require.NoError(t, err)

	r, err = s.Report()
	require.NoError(t, err)
	assert.Equal(t, []string{"farewell"}, r.Stale)

	reloaded, err := lockfile.Load(dir)
	require.NoError(t, err)
	assert.True(t, reloaded.Has("fr", "farewell"))
}

func TestWithLocales(t *testing.T) {
	s, _ := newSession(t, WithLocales("en-GB", ""))
	base, target := s.Locales()
	assert.Equal(t, "en-GB", base)
	assert.Equal(t, "fr", target)
}

func TestNewWithoutStoreUsesMemory(t *testing.T) {
	s := New(nil)
	require.NotNil(t, s.Store())
	load(t, s)

	_, err := s.Edit(context.Background(), "ellipsis", "Chargement")
	require.NoError(t, err)

	rows, err := s.Rows(RowFilter{Search: "ellipsis"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Chargement", rows[0].Value)
	assert.Equal(t, "Chargement", s.Effective("ellipsis"))
}

func TestEditTrimsAfterNormalizing(t *testing.T) {
	s, _ := newSession(t)
	load(t, s)

	res, err := s.Edit(context.Background(), "greeting", "foo \u200B")
	require.NoError(t, err)
	assert.Equal(t, "foo", res.Value)

	res, err = s.Edit(context.Background(), "greeting", " bar ")
	require.NoError(t, err)
	assert.Equal(t, "bar", res.Value)
}

func TestLoadPrunesLockEntries(t *testing.T) {
	dir := t.TempDir()
	lf := lockfile.New(dir)
	lf.Update("fr", "farewell", "Goodbye")
	lf.Update("fr", "removed", "Gone")
	lf.Update("de", "removed", "Gone")
	require.NoError(t, lf.Save())

	s, _ := newSession(t, WithLock(lf), WithLocales("en", "fr"))
	load(t, s)

	reloaded, err := lockfile.Load(dir)
	require.NoError(t, err)
	assert.True(t, reloaded.Has("fr", "farewell"))
	assert.False(t, reloaded.Has("fr", "removed"))
	assert.True(t, reloaded.Has("de", "removed"), "other targets are left alone")
}

func TestRowsMarkStale(t *testing.T) {
	lf := lockfile.New(t.TempDir())
	lf.Update("fr", "farewell", "Goodbye")
	lf.Update("fr", "greeting", "Hello")

	s, _ := newSession(t, WithLock(lf), WithLocales("en", "fr"))
	load(t, s)

	rows, err := s.Rows(RowFilter{})
	require.NoError(t, err)
	stale := map[string]bool{}
	for _, r := range rows {
		stale[r.Key] = r.Stale
	}
	// The baseline's last greeting value is "Hello again".
	assert.Equal(t, map[string]bool{"greeting": true, "farewell": false, "ellipsis": false}, stale)
}
