// Package status renders the kiosk's top bar: event channel status,
// directory size and the last channel event.
package status

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/partdoc/kiosk/internal/session"
	"github.com/partdoc/kiosk/internal/theme"
)

// Model holds the status bar state.
type Model struct {
	Status    string
	Detail    string
	State     string
	Records   int
	LastEvent *session.EventInfo
	Width     int
}

// New creates a status bar model.
func New() Model {
	return Model{Status: "disabled", State: "idle"}
}

// Apply copies the fields the bar shows from u.
func (m *Model) Apply(u session.Update) {
	m.Status = string(u.Status)
	m.Detail = u.StatusDetail
	m.State = string(u.Viewer.State)
	m.Records = len(u.Records)
	m.LastEvent = u.LastEvent
}

// View renders the status bar.
func (m Model) View() string {
	width := m.Width
	if width < 40 {
		width = 40
	}

	color := theme.StatusColor(m.Status)
	conn := lipgloss.NewStyle().Foreground(color).Render(theme.StatusGlyph(m.Status) + " " + m.Status)
	if m.Detail != "" {
		conn += theme.StyleDimmed.Render(" (" + m.Detail + ")")
	}

	state := lipgloss.NewStyle().Foreground(theme.StateColor(m.State)).Bold(true).Render(m.State)
	records := fmt.Sprintf("%d locations", m.Records)

	sep := lipgloss.NewStyle().Foreground(theme.ColorBorder).Render(" | ")
	content := conn + sep + state + sep + records
	if ev := m.LastEvent; ev != nil {
		last := fmt.Sprintf("last %s %s", ev.Channel, ev.Part)
		if ev.Reason != "" {
			last += " [" + string(ev.Reason) + "]"
		}
		content += sep + theme.StyleDimmed.Render(last)
	}

	return lipgloss.NewStyle().
		Width(width).
		Padding(0, 1).
		BorderStyle(lipgloss.DoubleBorder()).
		BorderForeground(theme.ColorBorder).
		Render(content)
}
