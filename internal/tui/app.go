// Package tui is the interactive terminal client: a header search with a
// suggestion dropdown, a page view with mark buttons, and the marks modal.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeanpaul/rulecraft/internal/autocomplete"
	"github.com/jeanpaul/rulecraft/internal/bookmarks"
	"github.com/jeanpaul/rulecraft/internal/page"
	"github.com/jeanpaul/rulecraft/internal/routes"
	"github.com/jeanpaul/rulecraft/internal/suggest"
)

// PageSource loads site pages.
type PageSource interface {
	Fetch(ctx context.Context, path string) (*page.Page, error)
	URL(path string) string
}

type Options struct {
	Store     *bookmarks.Store
	Source    suggest.Source
	Pages     PageSource
	Search    autocomplete.Options
	Theme     string
	BaseURL   string
	ExportDir string
	Logger    *slog.Logger
	OpenURL   func(string) error

	// Query prefills the header search; Path opens a page on start.
	Query string
	Path  string
}

type focusArea int

const (
	focusHeader focusArea = iota
	focusRefine
	focusPage
)

type pageLoadedMsg struct {
	seq  uint64
	path string
	page *page.Page
	err  error
}

type Model struct {
	width, height int
	styles        Styles
	glamourStyle  string

	store   *bookmarks.Store
	buttons *bookmarks.Buttons
	pages   PageSource
	header  *searchBox
	refine  *searchBox
	focus   focusArea

	view    *pageView
	history []string
	loading string
	pageSeq uint64
	ctx     context.Context
	cancel  context.CancelFunc
	detach  func()

	marks     *marksModal
	alert     string
	status    string
	statusErr bool

	baseURL   string
	exportDir string
	log       *slog.Logger
	openURL   func(string) error
	initCmds  []tea.Cmd
}

func New(opts Options) Model {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	if opts.Search.Logger == nil {
		opts.Search.Logger = log
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}
	if opts.OpenURL == nil {
		opts.OpenURL = page.OpenInBrowser
	}

	buttons := bookmarks.NewButtons()
	unsubscribe := opts.Store.Subscribe(buttons)

	glamourStyle := "dark"
	if opts.Theme == "mono" {
		glamourStyle = "notty"
	}

	ctx, cancel := context.WithCancel(context.Background())
	m := Model{
		width:        80,
		height:       24,
		styles:       NewStyles(opts.Theme),
		glamourStyle: glamourStyle,
		store:        opts.Store,
		buttons:      buttons,
		pages:        opts.Pages,
		header:       newSearchBox(opts.Source, opts.Search, "Search rules..."),
		refine:       newSearchBox(opts.Source, opts.Search, "Refine search..."),
		ctx:          ctx,
		cancel:       cancel,
		detach:       unsubscribe,
		baseURL:      opts.BaseURL,
		exportDir:    opts.ExportDir,
		log:          log,
		openURL:      opts.OpenURL,
	}
	m.refine.top = inputBoxHeight
	m.initCmds = append(m.initCmds, m.header.focus())
	if opts.Query != "" {
		m.initCmds = append(m.initCmds, m.header.SetValue(opts.Query))
	}
	if opts.Path != "" {
		m.initCmds = append(m.initCmds, m.navigate(opts.Path))
	}
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := append([]tea.Cmd{textinput.Blink, tea.EnableMouseAllMotion}, m.initCmds...)
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmd := m.update(msg)
	m.header.syncWindow()
	m.refine.syncWindow()
	return m, cmd
}

func (m *Model) update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return nil

	case autocomplete.NavigateMsg:
		m.header.ac.Escape()
		m.refine.ac.Escape()
		return tea.Batch(m.setFocus(focusPage), m.navigate(msg.Path))

	case pageLoadedMsg:
		return m.pageLoaded(msg)

	case candidatesMsg:
		if m.marks != nil && m.marks.mode == modalImport && msg.dir == m.exportDir {
			m.marks.candidates = msg.paths
		}
		return nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)
	}

	// Timer and response messages carry their controller id; each
	// controller ignores the other's.
	return tea.Batch(m.header.ac.Update(msg), m.refine.ac.Update(msg), m.forwardToInputs(msg))
}

func (m *Model) forwardToInputs(msg tea.Msg) tea.Cmd {
	var c1, c2 tea.Cmd
	m.header.input, c1 = m.header.input.Update(msg)
	m.refine.input, c2 = m.refine.input.Update(msg)
	return tea.Batch(c1, c2)
}

func (m *Model) quit() tea.Cmd {
	m.Close()
	return tea.Quit
}

// Close stops pending work and detaches the model's mark buttons from the
// store. It is safe to call more than once.
func (m Model) Close() {
	m.header.ac.Shutdown()
	m.refine.ac.Shutdown()
	m.cancel()
	m.detach()
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Type == tea.KeyCtrlC {
		return m.quit()
	}
	if m.alert != "" {
		m.alert = ""
		return nil
	}
	if m.marks != nil {
		return m.updateMarks(msg)
	}

	if box := m.activeBox(); box != nil {
		cmd, handled := box.handleKey(msg)
		if handled {
			return cmd
		}
		switch msg.Type {
		case tea.KeyTab:
			return m.cycleFocus()
		case tea.KeyEsc:
			return m.setFocus(focusPage)
		}
		return nil
	}

	switch {
	case key.Matches(msg, keys.Quit):
		return m.quit()
	case key.Matches(msg, keys.Search):
		return m.setFocus(focusHeader)
	case key.Matches(msg, keys.NextFocus):
		return m.cycleFocus()
	case key.Matches(msg, keys.Marks):
		m.openMarks()
	case key.Matches(msg, keys.ToggleMark):
		m.toggleSelected()
	case key.Matches(msg, keys.NextRule):
		if m.view != nil {
			m.view.selectRule(1)
		}
	case key.Matches(msg, keys.PrevRule):
		if m.view != nil {
			m.view.selectRule(-1)
		}
	case key.Matches(msg, keys.OpenRule):
		if m.view != nil {
			if r, ok := m.view.selected(); ok && routes.Rule(r.ID) != m.view.page.Path {
				return m.navigate(routes.Rule(r.ID))
			}
		}
	case key.Matches(msg, keys.Browser):
		m.openInBrowser()
	case key.Matches(msg, keys.Reload):
		if m.view != nil {
			return m.load(m.view.page.Path)
		}
	case key.Matches(msg, keys.Back):
		return m.back()
	default:
		if m.view != nil {
			var cmd tea.Cmd
			m.view.vp, cmd = m.view.vp.Update(msg)
			return cmd
		}
	}
	return nil
}

func (m *Model) activeBox() *searchBox {
	switch m.focus {
	case focusHeader:
		return m.header
	case focusRefine:
		if m.showRefine() {
			return m.refine
		}
	}
	return nil
}

func (m *Model) setFocus(f focusArea) tea.Cmd {
	if f == m.focus {
		return nil
	}
	var cmds []tea.Cmd
	if box := m.activeBox(); box != nil {
		cmds = append(cmds, box.blur())
	}
	m.focus = f
	if box := m.activeBox(); box != nil {
		cmds = append(cmds, box.focus())
	}
	return tea.Batch(cmds...)
}

func (m *Model) cycleFocus() tea.Cmd {
	switch m.focus {
	case focusHeader:
		if m.showRefine() {
			return m.setFocus(focusRefine)
		}
		return m.setFocus(focusPage)
	case focusRefine:
		return m.setFocus(focusPage)
	}
	return m.setFocus(focusHeader)
}

func (m *Model) showRefine() bool { return m.view != nil && m.view.isSearch() }

// bodyTop is the first screen line below the search inputs.
func (m *Model) bodyTop() int {
	if m.showRefine() {
		return m.refine.top + inputBoxHeight
	}
	return inputBoxHeight
}

func (m *Model) layout() {
	m.refine.top = inputBoxHeight
	if m.view == nil {
		return
	}
	h := m.height - m.bodyTop() - m.view.buttonLines() - 1
	m.view.resize(m.width, h, m.glamourStyle)
}

func (m *Model) navigate(path string) tea.Cmd {
	if m.view != nil && m.view.page.Path != path {
		m.history = append(m.history, m.view.page.Path)
	}
	return m.load(path)
}

func (m *Model) back() tea.Cmd {
	if len(m.history) == 0 {
		return nil
	}
	path := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	return m.load(path)
}

func (m *Model) load(path string) tea.Cmd {
	m.pageSeq++
	m.loading = path
	seq, pages, ctx := m.pageSeq, m.pages, m.ctx
	return func() tea.Msg {
		p, err := pages.Fetch(ctx, path)
		return pageLoadedMsg{seq: seq, path: path, page: p, err: err}
	}
}

func (m *Model) pageLoaded(msg pageLoadedMsg) tea.Cmd {
	if msg.seq != m.pageSeq {
		return nil
	}
	m.loading = ""
	if msg.err != nil {
		m.log.Error("page load failed", "path", msg.path, "err", msg.err)
		m.fail(fmt.Sprintf("Could not load %s: %s", msg.path, suggest.Friendly(msg.err)))
		return nil
	}
	msg.page.Path = msg.path
	m.view = newPageView(msg.page, m.buttons, m.store)
	m.note("")
	if m.view.isSearch() {
		if u, err := url.Parse(msg.path); err == nil {
			m.refine.input.SetValue(u.Query().Get("q"))
		}
	}
	m.layout()
	return nil
}

// note sets the footer status line.
func (m *Model) note(s string) {
	m.status = s
	m.statusErr = false
}

func (m *Model) fail(s string) {
	m.status = s
	m.statusErr = true
}

func (m *Model) toggleSelected() {
	if m.view == nil {
		return
	}
	r, ok := m.view.selected()
	if !ok {
		return
	}
	was := m.store.IsMarked(r.ID)
	switch now := m.store.Toggle(r.ID, r.Title); {
	case now == was:
		m.fail("Could not save marks")
	case now:
		m.note(fmt.Sprintf("Marked %q", r.Title))
	default:
		m.note(fmt.Sprintf("Unmarked %q", r.Title))
	}
}

func (m *Model) openInBrowser() {
	path := "/"
	if m.view != nil {
		path = m.view.page.Path
	}
	target := m.pages.URL(path)
	if err := m.openURL(target); err != nil {
		m.fail("Could not open browser: " + err.Error())
		return
	}
	m.note("Opened " + target)
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	press := msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft

	if m.alert != "" {
		if press {
			m.alert = ""
		}
		return nil
	}
	if m.marks != nil {
		if press {
			x0, y0, w, h := m.modalBounds()
			outside := msg.X < x0 || msg.X >= x0+w || msg.Y < y0 || msg.Y >= y0+h
			onClose := msg.Y == y0+2 && msg.X >= x0+w-6 && msg.X < x0+w
			if outside || onClose {
				m.closeMarks()
			}
		}
		return nil
	}

	switch {
	case msg.Button == tea.MouseButtonWheelUp || msg.Button == tea.MouseButtonWheelDown:
		if m.view != nil {
			var cmd tea.Cmd
			m.view.vp, cmd = m.view.vp.Update(msg)
			return cmd
		}
		return nil
	case msg.Action == tea.MouseActionMotion:
		for _, box := range m.dropdownOrder() {
			if row, _, inside := box.hit(msg.Y); inside {
				box.ac.Hover(row)
				return nil
			}
		}
		return nil
	case !press:
		return nil
	}

	for _, box := range m.dropdownOrder() {
		row, viewAll, inside := box.hit(msg.Y)
		if !inside {
			continue
		}
		switch {
		case viewAll:
			return box.ac.ClickViewAll()
		case row >= 0:
			return box.ac.Click(row)
		}
		return nil
	}

	m.header.ac.ClickOutside()
	m.refine.ac.ClickOutside()

	switch {
	case m.header.onInput(msg.Y):
		return m.setFocus(focusHeader)
	case m.showRefine() && m.refine.onInput(msg.Y):
		return m.setFocus(focusRefine)
	}
	if m.view != nil {
		if i, ok := m.view.buttonAt(msg.Y - m.bodyTop()); ok {
			m.view.sel = i
			m.toggleSelected()
		}
	}
	return m.setFocus(focusPage)
}

// dropdownOrder lists the open dropdowns, topmost first.
func (m *Model) dropdownOrder() []*searchBox {
	var out []*searchBox
	if m.header.ac.Visible() {
		out = append(out, m.header)
	}
	if m.showRefine() && m.refine.ac.Visible() {
		out = append(out, m.refine)
	}
	return out
}

func (m *Model) modalBounds() (x0, y0, w, h int) {
	panel := m.marks.view(m.styles)
	w, h = lipgloss.Width(panel), lipgloss.Height(panel)
	x0, y0 = centerGap(m.width-w), centerGap(m.height-h)
	return x0, y0, w, h
}

// centerGap is the leading gap lipgloss.Place leaves when centering.
func centerGap(gap int) int {
	if gap <= 0 {
		return 0
	}
	return gap - int(math.Round(float64(gap)*0.5))
}

func (m Model) View() string {
	st := m.styles

	if m.alert != "" {
		panel := st.Alert.Render(m.alert + "\n\n" + st.Help.Render("press any key"))
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, panel)
	}
	if m.marks != nil {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.marks.view(st))
	}

	var sections []string
	sections = append(sections, m.header.view(st, m.width))
	if m.showRefine() {
		sections = append(sections, m.refine.view(st, m.width))
	}

	bodyH := m.height - m.bodyTop() - 1
	if m.view != nil {
		sections = append(sections, m.view.renderButtons(st)...)
		sections = append(sections, m.view.vp.View())
	} else {
		sections = append(sections, lipgloss.NewStyle().Height(max(bodyH, 1)).Render(m.homeView()))
	}
	sections = append(sections, m.footer())

	lines := strings.Split(lipgloss.JoinVertical(lipgloss.Left, sections...), "\n")
	if m.showRefine() {
		lines = overlay(lines, m.refine.dropdownTop(), m.refine.renderDropdown(st, m.width))
	}
	lines = overlay(lines, m.header.dropdownTop(), m.header.renderDropdown(st, m.width))
	return strings.Join(lines, "\n")
}

// overlay replaces lines from y on with the lines of block.
func overlay(lines []string, y int, block string) []string {
	if block == "" {
		return lines
	}
	for i, l := range strings.Split(block, "\n") {
		if y+i >= len(lines) {
			lines = append(lines, l)
			continue
		}
		lines[y+i] = l
	}
	return lines
}

func (m *Model) homeView() string {
	st := m.styles
	n := len(m.store.Entries())
	return lipgloss.JoinVertical(lipgloss.Left,
		"",
		st.Title.Render("  Rulecraft"),
		"",
		st.Status.Render("  Type to search the rules. ↑/↓ pick a suggestion, enter opens it."),
		st.Status.Render(fmt.Sprintf("  %d saved marks. Press b (outside the search box) to manage them.", n)),
	)
}

func (m *Model) footer() string {
	st := m.styles
	var left string
	switch {
	case m.loading != "":
		left = st.Status.Render("Loading " + m.loading + "...")
	case m.status != "" && m.statusErr:
		left = st.Error.Render(m.status)
	case m.status != "":
		left = st.Status.Render(m.status)
	case m.view != nil:
		left = st.Title.Render(m.view.page.Title)
	}
	help := st.Help.Render("/ search • tab focus • m mark • b marks • o browser • q quit")
	gap := max(m.width-lipgloss.Width(left)-lipgloss.Width(help), 1)
	return left + strings.Repeat(" ", gap) + help
}
