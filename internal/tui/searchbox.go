package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeanpaul/rulecraft/internal/autocomplete"
	"github.com/jeanpaul/rulecraft/internal/highlight"
	"github.com/jeanpaul/rulecraft/internal/suggest"
)

const (
	maxDropdownRows = 6
	inputBoxHeight  = 3
	viewAllText     = "View all results →"
	noResultsText   = "No rules found"
)

// searchBox is one search input with its suggestion dropdown.
type searchBox struct {
	input  textinput.Model
	ac     *autocomplete.Controller
	top    int
	offset int
}

func newSearchBox(src suggest.Source, opts autocomplete.Options, placeholder string) *searchBox {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Prompt = ""
	ti.CharLimit = 200
	return &searchBox{input: ti, ac: autocomplete.New(src, opts)}
}

// SetValue replaces the input text and restarts the lookup.
func (b *searchBox) SetValue(v string) tea.Cmd {
	b.input.SetValue(v)
	b.input.CursorEnd()
	return b.ac.Input(v)
}

func (b *searchBox) focus() tea.Cmd {
	b.ac.Refocus()
	return b.input.Focus()
}

func (b *searchBox) blur() tea.Cmd {
	b.input.Blur()
	return b.ac.Blur()
}

// handleKey applies a key press while the input has focus. The second
// result reports whether the key was consumed.
func (b *searchBox) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.Type {
	case tea.KeyDown, tea.KeyCtrlN:
		b.ac.KeyDown()
		return nil, true
	case tea.KeyUp, tea.KeyCtrlP:
		b.ac.KeyUp()
		return nil, true
	case tea.KeyEnter:
		return b.ac.Enter(), true
	case tea.KeyEsc:
		visible := b.ac.Visible()
		if b.ac.State() != autocomplete.Idle {
			b.ac.Escape()
		}
		return nil, visible
	case tea.KeyTab, tea.KeyCtrlC:
		return nil, false
	}

	before := b.input.Value()
	var cmd tea.Cmd
	b.input, cmd = b.input.Update(msg)
	if b.input.Value() != before {
		return tea.Batch(cmd, b.ac.Input(b.input.Value())), true
	}
	return cmd, true
}

func (b *searchBox) view(st Styles, width int) string {
	box := st.InputBox
	if b.input.Focused() {
		box = st.InputBoxActive
	}
	b.input.Width = max(width-8, 10)
	return box.Width(max(width-2, 10)).Render(st.Prompt.Render("⌕ ") + b.input.View())
}

// syncWindow scrolls the dropdown so the focused row stays visible.
func (b *searchBox) syncWindow() {
	n, focus := len(b.ac.Rows()), b.ac.Focus()
	switch {
	case n <= maxDropdownRows || focus < 0:
		b.offset = 0
	case focus < b.offset:
		b.offset = focus
	case focus >= b.offset+maxDropdownRows:
		b.offset = focus - maxDropdownRows + 1
	}
	b.offset = min(b.offset, max(n-maxDropdownRows, 0))
}

func (b *searchBox) window() (start, end int) {
	n := len(b.ac.Rows())
	return b.offset, min(b.offset+maxDropdownRows, n)
}

func (b *searchBox) dropdownTop() int { return b.top + inputBoxHeight }

// dropdownLines is the content height of the dropdown, borders excluded.
func (b *searchBox) dropdownLines() int {
	if b.ac.NoResults() {
		return 1
	}
	start, end := b.window()
	return (end-start)*2 + 1
}

func (b *searchBox) renderDropdown(st Styles, width int) string {
	if !b.ac.Visible() {
		return ""
	}
	inner := max(width-4, 10)
	clip := lipgloss.NewStyle().MaxWidth(inner)

	var lines []string
	if b.ac.NoResults() {
		lines = append(lines, st.NoResults.Render(noResultsText))
	} else {
		rows := b.ac.Rows()
		start, end := b.window()
		mark := func(s string) string { return st.Highlight.Render(s) }
		for i := start; i < end; i++ {
			r := rows[i]
			title := highlight.Render(r.Title, mark) + "  " + st.Category.Render(r.Suggestion.Category)
			style := st.Row
			if i == b.ac.Focus() {
				style = st.RowActive
			}
			lines = append(lines,
				clip.Render(style.Render(title)),
				clip.Render(st.Excerpt.Render(highlight.Render(r.Excerpt, mark))),
			)
		}
		lines = append(lines, st.ViewAll.Render(viewAllText))
	}
	return st.Dropdown.Width(max(width-2, 10)).Render(strings.Join(lines, "\n"))
}

// hit maps screen line y onto the dropdown: the suggestion index under it
// (or -1), whether it is the view-all link, and whether y is inside the
// dropdown at all.
func (b *searchBox) hit(y int) (row int, viewAll, inside bool) {
	if !b.ac.Visible() {
		return -1, false, false
	}
	top := b.dropdownTop()
	lines := b.dropdownLines()
	if y < top || y > top+lines+1 {
		return -1, false, false
	}
	off := y - top - 1
	if b.ac.NoResults() || off < 0 || off >= lines {
		return -1, false, true
	}
	start, end := b.window()
	if off == (end-start)*2 {
		return -1, true, true
	}
	return start + off/2, false, true
}

// onInput reports whether y falls on the input box.
func (b *searchBox) onInput(y int) bool {
	return y >= b.top && y < b.top+inputBoxHeight
}
