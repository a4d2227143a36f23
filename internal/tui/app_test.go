package tui

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeanpaul/rulecraft/internal/autocomplete"
	"github.com/jeanpaul/rulecraft/internal/bookmarks"
	"github.com/jeanpaul/rulecraft/internal/kv"
	"github.com/jeanpaul/rulecraft/internal/page"
	"github.com/jeanpaul/rulecraft/internal/suggest"
)

type fakePages struct {
	mu      sync.Mutex
	fetched []string
	fail    bool
}

func (f *fakePages) Fetch(_ context.Context, path string) (*page.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, path)
	if f.fail {
		return nil, errors.New("connection refused")
	}
	p := &page.Page{URL: f.URL(path), Title: "Dash", Markdown: "# Dash\n\nDouble your speed."}
	p.Rules = []page.Rule{{ID: "dash", Title: "Dash"}, {ID: "haste", Title: "Haste"}}
	if strings.HasPrefix(path, "/search") {
		p.Title = "Search"
	}
	return p, nil
}

func (f *fakePages) URL(path string) string { return "http://rules.test" + path }

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rules() []suggest.Suggestion {
	return []suggest.Suggestion{
		{ID: "dash", Title: "Dash", Category: "Actions", Excerpt: "Double your speed."},
		{ID: "dashing-strike", Title: "Dashing Strike", Category: "Feats", Excerpt: "Dash then attack."},
		{ID: "haste", Title: "Haste", Category: "Spells", Excerpt: "An extra dash each turn."},
	}
}

type harness struct {
	store    *bookmarks.Store
	pages    *fakePages
	dir      string
	requests atomic.Int32
}

func newTestModel(t *testing.T) (Model, *harness) {
	t.Helper()
	dir := t.TempDir()
	h := &harness{
		store: bookmarks.New(kv.NewFileStore(filepath.Join(dir, "storage.json"), 0), bookmarks.WithLogger(quietLogger())),
		pages: &fakePages{},
		dir:   dir,
	}
	src := suggest.SourceFunc(func(_ context.Context, q string) ([]suggest.Suggestion, error) {
		h.requests.Add(1)
		if strings.HasPrefix("dash", q) {
			return rules(), nil
		}
		return nil, nil
	})
	m := New(Options{
		Store:     h.store,
		Source:    src,
		Pages:     h.pages,
		Search:    autocomplete.Options{Debounce: 5 * time.Millisecond, BlurGrace: 5 * time.Millisecond, MinQueryLen: 2},
		Theme:     "mono",
		BaseURL:   "http://rules.test",
		ExportDir: dir,
		Logger:    quietLogger(),
		OpenURL:   func(string) error { return nil },
	})
	t.Cleanup(m.Close)
	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return m, h
}

// runCmd runs cmd, giving up on commands that block longer than a test
// should wait (cursor blink timers).
func runCmd(cmd tea.Cmd) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(50 * time.Millisecond):
		return nil, false
	}
}

// settle runs cmd and every command it leads to, feeding each message back
// into the model.
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0 && steps < 200; steps++ {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		msg, ok := runCmd(c)
		if !ok || msg == nil {
			continue
		}
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if _, ok := msg.(tea.QuitMsg); ok {
			continue
		}
		next, more := m.Update(msg)
		m = next.(Model)
		queue = append(queue, more)
	}
	return m
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	return settle(t, next.(Model), cmd)
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	return send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func press(t *testing.T, m Model, k tea.KeyType) Model {
	t.Helper()
	return send(t, m, tea.KeyMsg{Type: k})
}

func runes(t *testing.T, m Model, s string) Model {
	t.Helper()
	for _, r := range s {
		m = send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func click(t *testing.T, m Model, x, y int) Model {
	t.Helper()
	return send(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
}

func openPage(t *testing.T, m Model, path string) Model {
	t.Helper()
	return send(t, m, autocomplete.NavigateMsg{Path: path})
}

func TestTypingShowsSuggestionDropdown(t *testing.T) {
	m, _ := newTestModel(t)

	m = typeText(t, m, "da")

	require.Len(t, m.header.ac.Rows(), 3)
	view := m.View()
	assert.Contains(t, view, "Dashing Strike")
	assert.Contains(t, view, viewAllText)
}

func TestSingleCharacterKeepsDropdownClosed(t *testing.T) {
	m, _ := newTestModel(t)

	m = typeText(t, m, "d")

	assert.False(t, m.header.ac.Visible())
	assert.NotContains(t, m.View(), viewAllText)
}

func TestNoResultsNotice(t *testing.T) {
	m, _ := newTestModel(t)

	m = typeText(t, m, "zz")

	assert.True(t, m.header.ac.NoResults())
	view := m.View()
	assert.Contains(t, view, noResultsText)
	assert.NotContains(t, view, viewAllText)
}

func TestEnterOpensFocusedSuggestion(t *testing.T) {
	m, h := newTestModel(t)
	m = typeText(t, m, "da")

	m = press(t, m, tea.KeyDown)
	m = press(t, m, tea.KeyDown)
	m = press(t, m, tea.KeyEnter)

	require.NotNil(t, m.view)
	assert.Equal(t, "/rules/dashing-strike", m.view.page.Path)
	assert.Equal(t, []string{"/rules/dashing-strike"}, h.pages.fetched)
	assert.Equal(t, focusPage, m.focus)
	assert.False(t, m.header.ac.Visible())
}

func TestEnterWithoutSelectionSearches(t *testing.T) {
	m, _ := newTestModel(t)
	m = typeText(t, m, "da")

	m = press(t, m, tea.KeyEnter)

	require.NotNil(t, m.view)
	assert.Equal(t, "/search?q=da", m.view.page.Path)
	assert.True(t, m.showRefine())
	assert.Equal(t, "da", m.refine.input.Value())
}

func TestMouseHoverAndClickSuggestions(t *testing.T) {
	m, _ := newTestModel(t)
	m = typeText(t, m, "da")

	// The dropdown border sits under the input box; each row takes two lines.
	m = send(t, m, tea.MouseMsg{X: 5, Y: 8, Action: tea.MouseActionMotion})
	assert.Equal(t, 2, m.header.ac.Focus())

	m = click(t, m, 5, 6)

	require.NotNil(t, m.view)
	assert.Equal(t, "/rules/dashing-strike", m.view.page.Path)
}

func TestClickViewAll(t *testing.T) {
	m, _ := newTestModel(t)
	m = typeText(t, m, "da")

	m = click(t, m, 5, 10)

	require.NotNil(t, m.view)
	assert.Equal(t, "/search?q=da", m.view.page.Path)
}

func TestClickOutsideClosesDropdown(t *testing.T) {
	m, _ := newTestModel(t)
	m = typeText(t, m, "da")
	require.True(t, m.header.ac.Visible())

	m = click(t, m, 5, 30)

	assert.False(t, m.header.ac.Visible())
	assert.Nil(t, m.view)
}

func TestEscapeClosesDropdownThenLeavesInput(t *testing.T) {
	m, _ := newTestModel(t)
	m = typeText(t, m, "da")

	m = press(t, m, tea.KeyEsc)
	assert.False(t, m.header.ac.Visible())
	assert.Equal(t, focusHeader, m.focus)

	m = press(t, m, tea.KeyEsc)
	assert.Equal(t, focusPage, m.focus)
}

func TestEscapeCancelsPendingSearch(t *testing.T) {
	m, h := newTestModel(t)

	next, typed := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("da")})
	m = next.(Model)
	require.Equal(t, autocomplete.Pending, m.header.ac.State())

	m = press(t, m, tea.KeyEsc)
	assert.Equal(t, autocomplete.Idle, m.header.ac.State())
	assert.Equal(t, focusPage, m.focus)

	m = settle(t, m, typed)
	assert.Zero(t, h.requests.Load())
	assert.Equal(t, autocomplete.Idle, m.header.ac.State())
	assert.False(t, m.header.ac.Visible())
}

func TestToggleMarkOnPage(t *testing.T) {
	m, h := newTestModel(t)
	m = openPage(t, m, "/rules/dash")
	require.Len(t, m.view.buttons, 2)

	m = runes(t, m, "m")

	assert.True(t, h.store.IsMarked("dash"))
	assert.True(t, m.view.buttons[0].Marked())
	assert.Equal(t, `Marked "Dash"`, m.status)
	assert.Contains(t, m.View(), "★ Marked")

	m = runes(t, m, "nm")
	assert.True(t, h.store.IsMarked("haste"))

	m = runes(t, m, "pm")
	assert.False(t, h.store.IsMarked("dash"))
	assert.False(t, m.view.buttons[0].Marked())
	assert.Equal(t, `Unmarked "Dash"`, m.status)
}

func TestClickMarkButton(t *testing.T) {
	m, h := newTestModel(t)
	m = openPage(t, m, "/rules/dash")

	m = click(t, m, 2, m.bodyTop()+1)

	assert.True(t, h.store.IsMarked("haste"))
	assert.Equal(t, 1, m.view.sel)
}

func TestTypingInSearchDoesNotTriggerShortcuts(t *testing.T) {
	m, h := newTestModel(t)
	m = openPage(t, m, "/rules/dash")
	m = runes(t, m, "/")
	require.Equal(t, focusHeader, m.focus)

	m = runes(t, m, "mb")

	assert.False(t, h.store.IsMarked("dash"))
	assert.Empty(t, m.alert)
	assert.Equal(t, "mb", m.header.input.Value())
}

func TestPageLoadFailureKeepsCurrentPage(t *testing.T) {
	m, h := newTestModel(t)
	m = openPage(t, m, "/rules/dash")
	h.pages.mu.Lock()
	h.pages.fail = true
	h.pages.mu.Unlock()

	m = openPage(t, m, "/rules/haste")

	assert.Equal(t, "/rules/dash", m.view.page.Path)
	assert.Contains(t, m.status, "Could not load /rules/haste")
	assert.True(t, m.statusErr)
}

func TestStalePageLoadIgnored(t *testing.T) {
	m, _ := newTestModel(t)
	m = openPage(t, m, "/rules/dash")

	m = send(t, m, pageLoadedMsg{seq: 0, path: "/rules/haste", page: &page.Page{Title: "Haste"}})

	assert.Equal(t, "/rules/dash", m.view.page.Path)
}

func TestBackReturnsToPreviousPage(t *testing.T) {
	m, _ := newTestModel(t)
	m = openPage(t, m, "/rules/dash")
	m = openPage(t, m, "/rules/haste")

	m = runes(t, m, "h")

	assert.Equal(t, "/rules/dash", m.view.page.Path)
	assert.Empty(t, m.history)
}

func TestMarksWithNothingSavedShowsNotice(t *testing.T) {
	m, _ := newTestModel(t)
	m = press(t, m, tea.KeyEsc)

	m = runes(t, m, "b")

	assert.Nil(t, m.marks)
	assert.Equal(t, emptyMarksNotice, m.alert)
	assert.Contains(t, m.View(), emptyMarksNotice)

	m = runes(t, m, "x")
	assert.Empty(t, m.alert)
}

func TestMarksModalRemoveAndClear(t *testing.T) {
	m, h := newTestModel(t)
	m = openPage(t, m, "/rules/dash")
	m = runes(t, m, "mnm")
	require.Len(t, h.store.Entries(), 2)

	m = runes(t, m, "b")
	require.NotNil(t, m.marks)
	assert.Contains(t, m.View(), "Marks (2)")

	m = runes(t, m, "d")
	assert.Len(t, h.store.Entries(), 1)
	require.NotNil(t, m.marks)
	assert.Contains(t, m.View(), "Marks (1)")

	m = runes(t, m, "c")
	assert.Contains(t, m.View(), clearPrompt)
	m = runes(t, m, "n")
	assert.Len(t, h.store.Entries(), 1)

	m = runes(t, m, "cy")
	assert.Empty(t, h.store.Entries())
	assert.Nil(t, m.marks)
	for _, b := range m.view.buttons {
		assert.False(t, b.Marked())
	}
}

func TestMarksModalEnterOpensRule(t *testing.T) {
	m, h := newTestModel(t)
	h.store.Toggle("haste", "Haste")
	m = press(t, m, tea.KeyEsc)
	m = runes(t, m, "b")

	m = press(t, m, tea.KeyEnter)

	assert.Nil(t, m.marks)
	require.NotNil(t, m.view)
	assert.Equal(t, "/rules/haste", m.view.page.Path)
}

func TestMarksModalClickOutsideCloses(t *testing.T) {
	m, h := newTestModel(t)
	h.store.Toggle("dash", "Dash")
	m = press(t, m, tea.KeyEsc)
	m = runes(t, m, "b")
	require.NotNil(t, m.marks)

	x0, y0, _, _ := m.modalBounds()
	m = click(t, m, x0+2, y0+4)
	assert.NotNil(t, m.marks)

	m = click(t, m, 0, 0)
	assert.Nil(t, m.marks)
}

func TestMarksModalExport(t *testing.T) {
	m, h := newTestModel(t)
	h.store.Toggle("dash", "Dash")
	m = press(t, m, tea.KeyEsc)
	m = runes(t, m, "b")

	m = runes(t, m, "eE")

	json, err := filepath.Glob(filepath.Join(h.dir, "*-bookmarks.json"))
	require.NoError(t, err)
	assert.Len(t, json, 1)
	xlsx, err := filepath.Glob(filepath.Join(h.dir, "*.xlsx"))
	require.NoError(t, err)
	assert.Len(t, xlsx, 1)
	assert.Contains(t, m.status, "Exported 1 marks")
}

func TestMarksModalImport(t *testing.T) {
	m, h := newTestModel(t)
	h.store.Toggle("dash", "Dash")
	good := filepath.Join(h.dir, "friend-bookmarks.json")
	require.NoError(t, os.WriteFile(good, []byte(`{"haste":{"title":"Haste","addedAt":"2024-05-01T10:00:00.000Z"}}`), 0o644))
	m = press(t, m, tea.KeyEsc)
	m = runes(t, m, "b")

	m = runes(t, m, "i")
	require.Equal(t, modalImport, m.marks.mode)
	require.NotEmpty(t, m.marks.candidates)
	assert.Equal(t, good, m.marks.candidates[0])

	m = press(t, m, tea.KeyTab)
	assert.Equal(t, good, m.marks.path.Value())
	assert.Contains(t, m.marks.preview, "haste")

	m = press(t, m, tea.KeyEnter)
	assert.True(t, h.store.IsMarked("haste"))
	assert.True(t, h.store.IsMarked("dash"))
	assert.Equal(t, "Imported 1 marks", m.status)
}

func TestMarksModalImportInvalidFile(t *testing.T) {
	m, h := newTestModel(t)
	h.store.Toggle("dash", "Dash")
	bad := filepath.Join(h.dir, "broken.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"dash": `), 0o644))
	m = press(t, m, tea.KeyEsc)
	m = runes(t, m, "b")
	m = runes(t, m, "i")

	m.marks.path.SetValue(bad)
	m = press(t, m, tea.KeyEnter)

	assert.Equal(t, importErrorText, m.alert)
	assert.Len(t, h.store.Entries(), 1)
}

func TestSearchBoxesAreIndependent(t *testing.T) {
	m, _ := newTestModel(t)
	m = openPage(t, m, "/search?q=haste")
	require.True(t, m.showRefine())

	m = press(t, m, tea.KeyTab)
	m = press(t, m, tea.KeyTab)
	require.Equal(t, focusRefine, m.focus)
	m.refine.input.SetValue("")
	m = typeText(t, m, "da")

	assert.True(t, m.refine.ac.Visible())
	assert.False(t, m.header.ac.Visible())
	assert.NotEqual(t, m.header.ac.ID(), m.refine.ac.ID())
}

func TestOpenInBrowser(t *testing.T) {
	m, _ := newTestModel(t)
	var opened string
	m.openURL = func(u string) error { opened = u; return nil }
	m = openPage(t, m, "/rules/dash")

	m = runes(t, m, "o")

	assert.Equal(t, "http://rules.test/rules/dash", opened)
}

func TestImportCandidates(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"notes.json",
		"rulecraft-bookmarks-2024-05-01.json",
		"sub/deeper/also-bookmarks.json",
		"sub/deeper/too/deep/far.json",
		".git/config.json",
		"node_modules/pkg/package.json",
		"readme.txt",
	} {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("{}"), 0o644))
	}

	got := importCandidates(dir)

	assert.Equal(t, []string{
		filepath.Join(dir, "rulecraft-bookmarks-2024-05-01.json"),
		filepath.Join(dir, "sub", "deeper", "also-bookmarks.json"),
		filepath.Join(dir, "notes.json"),
	}, got)
}

func TestImportCandidatesStopsAtDepth(t *testing.T) {
	dir := t.TempDir()
	deep := dir
	for _, name := range []string{"a", "b", "c", "d", "e", "f"} {
		deep = filepath.Join(deep, name)
		require.NoError(t, os.MkdirAll(deep, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(deep, name+".json"), []byte("{}"), 0o644))
	}

	got := importCandidates(dir)

	assert.Equal(t, []string{
		filepath.Join(dir, "a", "a.json"),
		filepath.Join(dir, "a", "b", "b.json"),
	}, got)
	assert.Equal(t, []string{"*.json", "*/*.json", "*/*/*.json"}, candidatePatterns())
}

func TestImportCandidatesLoadInBackground(t *testing.T) {
	m, h := newTestModel(t)
	h.store.Toggle("dash", "Dash")
	m = press(t, m, tea.KeyEsc)
	m = runes(t, m, "b")

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("i")})
	m = next.(Model)
	require.Equal(t, modalImport, m.marks.mode)
	assert.Empty(t, m.marks.candidates)

	m = settle(t, m, cmd)
	assert.Contains(t, m.marks.candidates, filepath.Join(h.dir, "storage.json"))
}

func TestCloseDetachesButtonsFromStore(t *testing.T) {
	m, h := newTestModel(t)
	require.Equal(t, 1, h.store.Listeners())

	other := New(Options{Store: h.store, Source: suggest.SourceFunc(func(context.Context, string) ([]suggest.Suggestion, error) {
		return nil, nil
	}), Pages: h.pages, Logger: quietLogger()})
	assert.Equal(t, 2, h.store.Listeners())

	other.Close()
	other.Close()
	assert.Equal(t, 1, h.store.Listeners())

	m = openPage(t, m, "/rules/dash")
	h.store.Toggle("dash", "Dash")
	assert.True(t, m.view.buttons[0].Marked())
}
