package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/glamour"

	"github.com/jeanpaul/rulecraft/internal/bookmarks"
	"github.com/jeanpaul/rulecraft/internal/page"
)

const maxButtonLines = 5

// pageView is a fetched page: its mark buttons above the rendered body.
type pageView struct {
	page     *page.Page
	buttons  []*bookmarks.Button
	sel      int
	offset   int
	vp       viewport.Model
	wrap     int
	renderer *glamour.TermRenderer
}

func newPageView(p *page.Page, reg *bookmarks.Buttons, store *bookmarks.Store) *pageView {
	reg.Unbind()
	pv := &pageView{page: p, vp: viewport.New(80, 10)}
	pv.vp.MouseWheelEnabled = true
	for _, r := range p.Rules {
		pv.buttons = append(pv.buttons, reg.Bind(r.ID, false))
	}
	reg.Sync(store)
	return pv
}

func (pv *pageView) isSearch() bool { return strings.HasPrefix(pv.page.Path, "/search") }

func (pv *pageView) buttonLines() int { return min(len(pv.buttons), maxButtonLines) }

// selectRule moves the button selection by delta, clamped.
func (pv *pageView) selectRule(delta int) {
	if len(pv.buttons) == 0 {
		return
	}
	pv.sel = min(max(pv.sel+delta, 0), len(pv.buttons)-1)
	if pv.sel < pv.offset {
		pv.offset = pv.sel
	}
	if pv.sel >= pv.offset+maxButtonLines {
		pv.offset = pv.sel - maxButtonLines + 1
	}
}

func (pv *pageView) selected() (page.Rule, bool) {
	if pv.sel < 0 || pv.sel >= len(pv.page.Rules) {
		return page.Rule{}, false
	}
	return pv.page.Rules[pv.sel], true
}

// buttonAt maps a line offset within the button block to a rule index.
func (pv *pageView) buttonAt(line int) (int, bool) {
	if line < 0 || line >= pv.buttonLines() {
		return 0, false
	}
	return pv.offset + line, true
}

// resize sets the viewport and re-renders the Markdown when the wrap width
// changes.
func (pv *pageView) resize(width, height int, glamourStyle string) {
	pv.vp.Width = width
	pv.vp.Height = max(height, 3)
	wrap := max(width-4, 20)
	if wrap == pv.wrap && pv.renderer != nil {
		return
	}
	pv.wrap = wrap
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(glamourStyle),
		glamour.WithWordWrap(wrap),
	)
	if err != nil {
		pv.vp.SetContent(pv.page.Markdown)
		return
	}
	pv.renderer = r
	out, err := r.Render(pv.page.Markdown)
	if err != nil {
		out = pv.page.Markdown
	}
	pv.vp.SetContent(strings.TrimRight(out, "\n"))
}

func (pv *pageView) renderButtons(st Styles) []string {
	var lines []string
	for i := pv.offset; i < pv.offset+pv.buttonLines(); i++ {
		b := pv.buttons[i]
		label := "[" + b.String() + "]"
		if b.Marked() {
			label = st.MarkOn.Render(label)
		} else {
			label = st.MarkOff.Render(label)
		}
		line := label + " " + pv.page.Rules[i].Title
		if i == pv.sel {
			line = st.MarkSelected.Render(line)
		}
		lines = append(lines, " "+line)
	}
	return lines
}
