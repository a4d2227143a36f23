package tui

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeanpaul/rulecraft/internal/autocomplete"
	"github.com/jeanpaul/rulecraft/internal/bookmarks"
	"github.com/jeanpaul/rulecraft/internal/routes"
)

const (
	emptyMarksNotice = "No marks yet. Click the mark button on any rule to save it."
	clearPrompt      = "Art thou certain thou wish to clear all marks?"
	importErrorText  = "Error importing bookmarks: Invalid JSON file"
	closeControl     = "×"
	previewLines     = 12
)

type modalMode int

const (
	modalList modalMode = iota
	modalConfirmClear
	modalImport
)

type entryItem struct {
	entry bookmarks.Entry
}

func (i entryItem) Title() string { return i.entry.Title }
func (i entryItem) Description() string {
	desc := routes.Rule(i.entry.ID)
	if !i.entry.AddedAt.IsZero() {
		desc += "  · " + i.entry.AddedAt.Local().Format("2006-01-02 15:04")
	}
	return desc
}
func (i entryItem) FilterValue() string { return i.entry.Title }

// marksModal lists the saved marks with their actions.
type marksModal struct {
	list       list.Model
	mode       modalMode
	path       textinput.Model
	candidates []string
	candIdx    int
	preview    string
}

func newMarksModal(entries []bookmarks.Entry, st Styles, width, height int) *marksModal {
	items := make([]list.Item, 0, len(entries))
	for _, e := range entries {
		items = append(items, entryItem{entry: e})
	}

	d := list.NewDefaultDelegate()
	d.Styles.SelectedTitle = lipgloss.NewStyle().Foreground(st.Palette.Accent).Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(st.Palette.Accent).PaddingLeft(1)
	d.Styles.SelectedDesc = d.Styles.SelectedTitle.Foreground(st.Palette.Dim)

	w, h := modalSize(width, height)
	l := list.New(items, d, w, h)
	l.Title = fmt.Sprintf("Marks (%d)", len(entries))
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)
	l.Styles.Title = st.ModalTitle

	pi := textinput.New()
	pi.Placeholder = "path/to/rulecraft-bookmarks.json"
	pi.Prompt = "file: "
	pi.Width = w - 8

	return &marksModal{list: l, path: pi}
}

func modalSize(width, height int) (int, int) {
	w := min(max(width-10, 30), 80)
	h := min(max(height-10, 8), 24)
	return w, h
}

func (mm *marksModal) selected() (bookmarks.Entry, bool) {
	it, ok := mm.list.SelectedItem().(entryItem)
	return it.entry, ok
}

func (mm *marksModal) view(st Styles) string {
	var body string
	switch mm.mode {
	case modalConfirmClear:
		body = lipgloss.JoinVertical(lipgloss.Left,
			mm.list.View(),
			"",
			st.Confirm.Render(clearPrompt+" [y/n]"),
		)
	case modalImport:
		lines := []string{st.ModalTitle.Render("Import marks"), "", mm.path.View(), ""}
		for i, c := range mm.candidates {
			prefix := "  "
			if i == mm.candIdx {
				prefix = "› "
			}
			lines = append(lines, st.Help.Render(prefix+c))
		}
		if mm.preview != "" {
			lines = append(lines, "", st.Help.Render(clipLines(mm.preview, previewLines)))
		}
		lines = append(lines, "", st.Help.Render("tab: next file  •  enter: import  •  esc: back"))
		body = strings.Join(lines, "\n")
	default:
		help := st.Help.Render("enter: open  •  d: remove  •  e: export  •  E: xlsx  •  i: import  •  c: clear all  •  esc: close")
		body = lipgloss.JoinVertical(lipgloss.Left, mm.list.View(), "", help)
	}

	top := lipgloss.PlaceHorizontal(mm.list.Width(), lipgloss.Right, st.Help.Render(closeControl))
	return st.Modal.Render(lipgloss.JoinVertical(lipgloss.Left, top, body))
}

func clipLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) <= n {
		return strings.Join(lines, "\n")
	}
	return strings.Join(lines[:n], "\n") + fmt.Sprintf("\n… %d more lines", len(lines)-n)
}

// openMarks shows the modal, or the empty notice when nothing is saved.
func (m *Model) openMarks() {
	entries := m.store.Entries()
	if len(entries) == 0 {
		m.marks = nil
		m.alert = emptyMarksNotice
		return
	}
	m.marks = newMarksModal(entries, m.styles, m.width, m.height)
}

// reopenMarks rebuilds the modal from the store after a mutation, keeping
// the cursor near where it was.
func (m *Model) reopenMarks() {
	idx := 0
	if m.marks != nil {
		idx = m.marks.list.Index()
	}
	m.closeMarks()
	m.openMarks()
	if m.marks != nil {
		m.marks.list.Select(min(idx, len(m.marks.list.Items())-1))
	}
}

func (m *Model) closeMarks() { m.marks = nil }

func (m *Model) updateMarks(msg tea.KeyMsg) tea.Cmd {
	mm := m.marks
	switch mm.mode {
	case modalConfirmClear:
		switch {
		case key.Matches(msg, keys.Confirm):
			m.store.Clear()
			m.closeMarks()
			m.note("All marks cleared")
		case key.Matches(msg, keys.Deny):
			mm.mode = modalList
		}
		return nil

	case modalImport:
		switch msg.Type {
		case tea.KeyEsc:
			mm.mode = modalList
			mm.path.Blur()
			return nil
		case tea.KeyTab:
			if len(mm.candidates) > 0 {
				mm.candIdx = (mm.candIdx + 1) % len(mm.candidates)
				mm.path.SetValue(mm.candidates[mm.candIdx])
				mm.path.CursorEnd()
				mm.preview = m.previewImport(mm.path.Value())
			}
			return nil
		case tea.KeyEnter:
			m.importFile(strings.TrimSpace(mm.path.Value()))
			return nil
		}
		var cmd tea.Cmd
		mm.path, cmd = mm.path.Update(msg)
		return cmd
	}

	switch {
	case key.Matches(msg, keys.CloseModal):
		m.closeMarks()
	case key.Matches(msg, keys.Remove):
		if e, ok := mm.selected(); ok {
			m.store.Remove(e.ID)
			m.note(fmt.Sprintf("Removed %q", e.Title))
			m.reopenMarks()
		}
	case key.Matches(msg, keys.Export):
		m.exportMarks(false)
	case key.Matches(msg, keys.ExportXLSX):
		m.exportMarks(true)
	case key.Matches(msg, keys.Import):
		mm.mode = modalImport
		mm.candidates = nil
		mm.candIdx = -1
		mm.preview = ""
		mm.path.SetValue("")
		return tea.Batch(mm.path.Focus(), findCandidates(m.exportDir))
	case key.Matches(msg, keys.ClearAll):
		mm.mode = modalConfirmClear
	case key.Matches(msg, keys.Enter):
		if e, ok := mm.selected(); ok {
			m.closeMarks()
			path := routes.Rule(e.ID)
			return func() tea.Msg { return autocomplete.NavigateMsg{Path: path} }
		}
	default:
		var cmd tea.Cmd
		mm.list, cmd = mm.list.Update(msg)
		return cmd
	}
	return nil
}

func (m *Model) exportMarks(xlsx bool) {
	name := m.store.ExportFileName()
	if xlsx {
		name = m.store.XLSXFileName()
	}
	path := filepath.Join(m.exportDir, name)

	err := func() error {
		if !xlsx {
			data, err := m.store.Export()
			if err != nil {
				return err
			}
			return os.WriteFile(path, data, 0o644)
		}
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		if err := m.store.ExportXLSX(f, m.baseURL); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	}()
	if err != nil {
		m.log.Error("export failed", "path", path, "err", err)
		m.fail("Export failed: " + err.Error())
		return
	}
	m.note(fmt.Sprintf("Exported %d marks to %s", len(m.store.Entries()), path))
}

func (m *Model) previewImport(path string) string {
	f, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer f.Close()
	diff, err := m.store.PreviewImport(f)
	if err != nil {
		return "not a bookmark file"
	}
	if diff == "" {
		return "no changes"
	}
	return diff
}

func (m *Model) importFile(path string) {
	if path == "" {
		return
	}
	f, err := os.Open(path)
	if err != nil {
		m.alert = "Error importing bookmarks: " + err.Error()
		return
	}
	defer f.Close()

	n, err := m.store.Import(f)
	if err != nil {
		m.log.Error("import failed", "path", path, "err", err)
		if errors.Is(err, bookmarks.ErrInvalidImport) {
			m.alert = importErrorText
		} else {
			m.alert = "Error importing bookmarks: " + err.Error()
		}
		return
	}
	m.note(fmt.Sprintf("Imported %d marks", n))
	m.reopenMarks()
}
