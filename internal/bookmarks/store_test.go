package bookmarks

import (
	"bytes"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jeanpaul/rulecraft/internal/kv"
)

var fixedNow = time.Date(2024, 5, 1, 10, 0, 0, 123_000_000, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestStore(t *testing.T, opts ...Option) (*Store, kv.Store) {
	t.Helper()
	backing := kv.NewFileStore(filepath.Join(t.TempDir(), "storage.json"), 0)
	opts = append([]Option{WithClock(func() time.Time { return fixedNow }), WithLogger(quietLogger())}, opts...)
	return New(backing, opts...), backing
}

func TestToggleTwiceRestoresMembership(t *testing.T) {
	s, _ := newTestStore(t)

	assert.False(t, s.IsMarked("grapple"))
	assert.True(t, s.Toggle("grapple", "Grapple"))
	assert.True(t, s.IsMarked("grapple"))
	assert.Equal(t, Bookmark{Title: "Grapple", AddedAt: fixedNow}, s.Load()["grapple"])

	assert.False(t, s.Toggle("grapple", "Grapple"))
	assert.False(t, s.IsMarked("grapple"))
	assert.Empty(t, s.Load())
}

func TestRemoveMissingIsNoError(t *testing.T) {
	s, _ := newTestStore(t)
	s.Toggle("a", "A")
	s.Remove("missing")
	s.Remove("a")
	assert.Empty(t, s.Load())
}

func TestExportImportRoundTrip(t *testing.T) {
	src, _ := newTestStore(t)
	src.Toggle("grapple", "Grapple")
	src.Toggle("opportunity-attack", "Opportunity Attack")

	data, err := src.Export()
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"grapple\": {")
	assert.Contains(t, string(data), `"addedAt": "2024-05-01T10:00:00.123Z"`)

	dst, _ := newTestStore(t)
	n, err := dst.Import(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, src.Load(), dst.Load())
}

func TestImportMalformedLeavesStoreUntouched(t *testing.T) {
	s, backing := newTestStore(t)
	s.Toggle("a", "A")
	before, err := backing.Get(DefaultKey)
	require.NoError(t, err)

	for _, doc := range []string{
		`{"b": {"title": "B"`,
		`[1, 2, 3]`,
		`{"b": {"name": "no title"}}`,
		`{"b": {"title": "B", "addedAt": "yesterday"}}`,
		"\xff\xfe",
	} {
		n, err := s.Import(strings.NewReader(doc))
		assert.ErrorIs(t, err, ErrInvalidImport, doc)
		assert.Zero(t, n)

		after, err := backing.Get(DefaultKey)
		require.NoError(t, err)
		assert.Equal(t, before, after, doc)
	}
}

func TestImportImportedEntriesWin(t *testing.T) {
	s, _ := newTestStore(t)
	s.Toggle("a", "one")

	doc := `{
		"a": {"title": "two", "addedAt": "2023-01-01T00:00:00.000Z"},
		"b": {"title": "three", "addedAt": "2023-01-02T00:00:00.000Z"}
	}`
	_, err := s.Import(strings.NewReader(doc))
	require.NoError(t, err)

	got := s.Load()
	assert.Len(t, got, 2)
	assert.Equal(t, "two", got["a"].Title)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), got["a"].AddedAt)
	assert.Equal(t, "three", got["b"].Title)
}

func TestImportFillsMissingTimestamp(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.Import(strings.NewReader(`{"a": {"title": "A"}}`))
	require.NoError(t, err)
	assert.Equal(t, fixedNow, s.Load()["a"].AddedAt)
}

func TestLoadFailsSoftOnCorruptBlob(t *testing.T) {
	s, backing := newTestStore(t)
	require.NoError(t, backing.Set(DefaultKey, "{oops"))
	assert.Empty(t, s.Load())
	assert.False(t, s.IsMarked("a"))

	// The next mutation overwrites the corrupt blob.
	assert.True(t, s.Toggle("a", "A"))
	assert.True(t, s.IsMarked("a"))
}

func TestLoadKeepsRecordWithUnreadableTimestamp(t *testing.T) {
	s, backing := newTestStore(t)
	require.NoError(t, backing.Set(DefaultKey,
		`{"a":{"title":"A","addedAt":"yesterday"},"b":{"title":"B","addedAt":"2023-01-02T00:00:00.000Z"}}`))

	set := s.Load()
	require.Len(t, set, 2)
	assert.True(t, set["a"].AddedAt.IsZero())
	assert.Equal(t, "yesterday", set["a"].UnparsedAddedAt())
	assert.Equal(t, time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC), set["b"].AddedAt)

	assert.True(t, s.Toggle("c", "C"))

	raw, err := backing.Get(DefaultKey)
	require.NoError(t, err)
	assert.Contains(t, raw, `"addedAt":"yesterday"`)
	assert.Len(t, s.Load(), 3)
}

func TestSaveFailureKeepsPreviousState(t *testing.T) {
	backing := kv.NewFileStore(filepath.Join(t.TempDir(), "storage.json"), 120)
	buttons := NewButtons()
	s := New(backing, WithClock(func() time.Time { return fixedNow }), WithLogger(quietLogger()), WithListener(buttons))
	btn := buttons.Bind("huge", false)

	require.True(t, s.Toggle("a", "A"))
	before, err := backing.Get(DefaultKey)
	require.NoError(t, err)

	assert.False(t, s.Toggle("huge", strings.Repeat("x", 200)))
	assert.False(t, btn.Marked())

	after, err := backing.Get(DefaultKey)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestUpdateIsAtomicTransform(t *testing.T) {
	s, _ := newTestStore(t)
	s.Toggle("a", "A")

	got, err := s.Update(func(set Set) Set {
		set["b"] = Bookmark{Title: "B", AddedAt: fixedNow}
		return set
	})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, got, s.Load())
}

func TestExportFileName(t *testing.T) {
	s, _ := newTestStore(t)
	assert.Equal(t, "rulecraft-bookmarks.json", s.ExportFileName())

	s, _ = newTestStore(t, WithProduct("grimoire"))
	assert.Equal(t, "grimoire-bookmarks.json", s.ExportFileName())
}

func TestEntriesSortedByTitle(t *testing.T) {
	set := Set{
		"z": {Title: "apple"},
		"a": {Title: "Cherry"},
		"m": {Title: "banana"},
	}
	var ids []string
	for _, e := range set.Entries() {
		ids = append(ids, e.ID)
	}
	assert.Equal(t, []string{"z", "m", "a"}, ids)
}

func TestPreviewImport(t *testing.T) {
	s, backing := newTestStore(t)
	s.Toggle("a", "one")
	before, _ := backing.Get(DefaultKey)

	diff, err := s.PreviewImport(strings.NewReader(`{"a": {"title": "two", "addedAt": "2024-05-01T10:00:00.123Z"}}`))
	require.NoError(t, err)
	assert.Contains(t, diff, `-    "title": "one"`)
	assert.Contains(t, diff, `+    "title": "two"`)

	after, _ := backing.Get(DefaultKey)
	assert.Equal(t, before, after)

	diff, err = s.PreviewImport(strings.NewReader(`{"a": {"title": "one", "addedAt": "2024-05-01T10:00:00.123Z"}}`))
	require.NoError(t, err)
	assert.Empty(t, diff)

	_, err = s.PreviewImport(strings.NewReader(`nope`))
	assert.ErrorIs(t, err, ErrInvalidImport)
}

func TestExportXLSX(t *testing.T) {
	s, _ := newTestStore(t)
	s.Toggle("grapple", "Grapple")

	var buf bytes.Buffer
	require.NoError(t, s.ExportXLSX(&buf, "http://localhost:3000"))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"ID", "Title", "Added", "Link"}, rows[0])
	assert.Equal(t, []string{"grapple", "Grapple", "2024-05-01T10:00:00.123Z", "http://localhost:3000/rules/grapple"}, rows[1])
}
