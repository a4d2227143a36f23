package tui

import "github.com/charmbracelet/lipgloss"

// Palette is one colour scheme selectable with the theme setting.
type Palette struct {
	Accent  lipgloss.Color
	Bright  lipgloss.Color
	Dim     lipgloss.Color
	Muted   lipgloss.Color
	Text    lipgloss.Color
	Mark    lipgloss.Color
	Warning lipgloss.Color
	Error   lipgloss.Color
}

var palettes = map[string]Palette{
	"green": {
		Accent:  lipgloss.Color("#00FF41"),
		Bright:  lipgloss.Color("#39FF14"),
		Dim:     lipgloss.Color("#008F11"),
		Muted:   lipgloss.Color("#3a3a4e"),
		Text:    lipgloss.Color("#e0e0e0"),
		Mark:    lipgloss.Color("#FFD700"),
		Warning: lipgloss.Color("#FFD700"),
		Error:   lipgloss.Color("#FF4136"),
	},
	"amber": {
		Accent:  lipgloss.Color("#FFB000"),
		Bright:  lipgloss.Color("#FFCC00"),
		Dim:     lipgloss.Color("#A06800"),
		Muted:   lipgloss.Color("#4e3a2a"),
		Text:    lipgloss.Color("#f0e0c0"),
		Mark:    lipgloss.Color("#FFF2A8"),
		Warning: lipgloss.Color("#FF8C00"),
		Error:   lipgloss.Color("#FF4136"),
	},
	"mono": {
		Accent:  lipgloss.Color("15"),
		Bright:  lipgloss.Color("15"),
		Dim:     lipgloss.Color("8"),
		Muted:   lipgloss.Color("8"),
		Text:    lipgloss.Color("7"),
		Mark:    lipgloss.Color("15"),
		Warning: lipgloss.Color("15"),
		Error:   lipgloss.Color("15"),
	},
}

// Styles are the lipgloss styles derived from a palette.
type Styles struct {
	Palette Palette

	InputBox       lipgloss.Style
	InputBoxActive lipgloss.Style
	Prompt         lipgloss.Style

	Dropdown     lipgloss.Style
	Row          lipgloss.Style
	RowActive    lipgloss.Style
	Category     lipgloss.Style
	Excerpt      lipgloss.Style
	Highlight    lipgloss.Style
	ViewAll      lipgloss.Style
	NoResults    lipgloss.Style
	MarkOn       lipgloss.Style
	MarkOff      lipgloss.Style
	MarkSelected lipgloss.Style

	Modal      lipgloss.Style
	ModalTitle lipgloss.Style
	Confirm    lipgloss.Style
	Alert      lipgloss.Style

	Status lipgloss.Style
	Help   lipgloss.Style
	Error  lipgloss.Style
	Title  lipgloss.Style
}

// NewStyles builds the styles for the named theme, falling back to green.
func NewStyles(theme string) Styles {
	p, ok := palettes[theme]
	if !ok {
		p = palettes["green"]
	}
	return Styles{
		Palette: p,

		InputBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Dim).
			Padding(0, 1),
		InputBoxActive: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Accent).
			Padding(0, 1),
		Prompt: lipgloss.NewStyle().Foreground(p.Accent).Bold(true),

		Dropdown: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(p.Dim),
		Row:       lipgloss.NewStyle().Foreground(p.Text).PaddingLeft(1),
		RowActive: lipgloss.NewStyle().Foreground(p.Bright).Bold(true).Reverse(true).PaddingLeft(1),
		Category:  lipgloss.NewStyle().Foreground(p.Dim).Italic(true),
		Excerpt:   lipgloss.NewStyle().Foreground(p.Muted).PaddingLeft(3),
		Highlight: lipgloss.NewStyle().Foreground(p.Mark).Bold(true).Underline(true),
		ViewAll:   lipgloss.NewStyle().Foreground(p.Accent).PaddingLeft(1),
		NoResults: lipgloss.NewStyle().Foreground(p.Muted).Italic(true).PaddingLeft(1),

		MarkOn:       lipgloss.NewStyle().Foreground(p.Mark).Bold(true),
		MarkOff:      lipgloss.NewStyle().Foreground(p.Dim),
		MarkSelected: lipgloss.NewStyle().Reverse(true),

		Modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.Accent).
			Padding(1, 2),
		ModalTitle: lipgloss.NewStyle().Foreground(p.Accent).Bold(true),
		Confirm:    lipgloss.NewStyle().Foreground(p.Warning).Bold(true),
		Alert: lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(p.Error).
			Padding(1, 2),

		Status: lipgloss.NewStyle().Foreground(p.Text),
		Help:   lipgloss.NewStyle().Foreground(p.Dim),
		Error:  lipgloss.NewStyle().Foreground(p.Error).Bold(true),
		Title:  lipgloss.NewStyle().Foreground(p.Accent).Bold(true),
	}
}
