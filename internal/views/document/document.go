// Package document renders the summary of the document being shown.
package document

import (
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/partdoc/kiosk/internal/theme"
	"github.com/partdoc/kiosk/internal/viewer"
)

const defaultStyle = "dark"

// Model renders a viewer snapshot as markdown.
type Model struct {
	// Style is a glamour standard style name.
	Style string

	width    int
	snap     viewer.Snapshot
	renderer *glamour.TermRenderer
	wrap     int
	rendered string
}

// New creates a document pane.
func New() Model {
	return Model{Style: defaultStyle}
}

// Set replaces the snapshot shown.
func (m *Model) Set(snap viewer.Snapshot) {
	if snap == m.snap {
		return
	}
	m.snap = snap
	m.render()
}

// SetWidth sets the terminal width the summary wraps to.
func (m *Model) SetWidth(w int) {
	if w == m.width {
		return
	}
	m.width = w
	m.render()
}

// Markdown returns the markdown summary of snap.
func Markdown(snap viewer.Snapshot) string {
	var b strings.Builder
	b.WriteString("# " + snap.Part + "\n\n")
	if snap.Filename != "" {
		b.WriteString("- **File:** `" + snap.Filename + "`\n")
	}
	if snap.DocumentURL != "" {
		b.WriteString("- **Open:** " + snap.DocumentURL + "\n")
	}
	b.WriteString("\nPress **esc** to return to the scanner.\n")
	return b.String()
}

func (m *Model) render() {
	m.rendered = ""
	if m.snap.State != viewer.StateViewer {
		return
	}
	md := Markdown(m.snap)
	wrap := max(m.width-4, 20)
	if m.renderer == nil || m.wrap != wrap {
		style := m.Style
		if style == "" {
			style = defaultStyle
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(wrap),
		)
		if err != nil {
			m.rendered = theme.StyleBorder.Render(md)
			return
		}
		m.renderer = r
		m.wrap = wrap
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		m.rendered = theme.StyleBorder.Render(md)
		return
	}
	m.rendered = strings.TrimRight(out, "\n")
}

// View returns the rendered summary, empty unless a document is shown.
func (m Model) View() string {
	return m.rendered
}
