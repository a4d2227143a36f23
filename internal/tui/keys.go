package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit       key.Binding
	Search     key.Binding
	NextFocus  key.Binding
	Marks      key.Binding
	ToggleMark key.Binding
	NextRule   key.Binding
	PrevRule   key.Binding
	OpenRule   key.Binding
	Browser    key.Binding
	Reload     key.Binding
	Back       key.Binding
	Up         key.Binding
	Down       key.Binding
	Enter      key.Binding
	Escape     key.Binding

	Remove     key.Binding
	Export     key.Binding
	ExportXLSX key.Binding
	Import     key.Binding
	ClearAll   key.Binding
	CloseModal key.Binding
	Confirm    key.Binding
	Deny       key.Binding
	Complete   key.Binding
}

var keys = keyMap{
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Search:     key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	NextFocus:  key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "focus")),
	Marks:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "marks")),
	ToggleMark: key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "mark")),
	NextRule:   key.NewBinding(key.WithKeys("n"), key.WithHelp("n/p", "select rule")),
	PrevRule:   key.NewBinding(key.WithKeys("p")),
	OpenRule:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Browser:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "browser")),
	Reload:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Back:       key.NewBinding(key.WithKeys("backspace", "h"), key.WithHelp("h", "back")),
	Up:         key.NewBinding(key.WithKeys("up", "ctrl+p")),
	Down:       key.NewBinding(key.WithKeys("down", "ctrl+n")),
	Enter:      key.NewBinding(key.WithKeys("enter")),
	Escape:     key.NewBinding(key.WithKeys("esc")),

	Remove:     key.NewBinding(key.WithKeys("d", "x", "delete"), key.WithHelp("d", "remove")),
	Export:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
	ExportXLSX: key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "xlsx")),
	Import:     key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "import")),
	ClearAll:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear all")),
	CloseModal: key.NewBinding(key.WithKeys("esc", "q"), key.WithHelp("esc", "close")),
	Confirm:    key.NewBinding(key.WithKeys("y", "Y")),
	Deny:       key.NewBinding(key.WithKeys("n", "N", "esc")),
	Complete:   key.NewBinding(key.WithKeys("tab")),
}
