// Package errorpane renders a failed lookup with a spring-eased bar that
// drains as the auto-reset countdown runs.
package errorpane

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"

	"github.com/partdoc/kiosk/internal/theme"
	"github.com/partdoc/kiosk/internal/viewer"
)

const (
	fps        = 60
	barWidth   = 40
	settleDist = 0.001
)

// FrameMsg advances the bar animation by one frame.
type FrameMsg struct{}

// Animate schedules the next animation frame.
func Animate() tea.Cmd {
	return tea.Tick(time.Second/fps, func(time.Time) tea.Msg { return FrameMsg{} })
}

// Model holds the error pane state.
type Model struct {
	Width int

	part      string
	message   string
	remaining int
	total     int

	spring harmonica.Spring
	pos    float64
	vel    float64
	target float64
}

// New creates an error pane for a countdown of total seconds.
func New(total int) Model {
	if total <= 0 {
		total = 1
	}
	return Model{
		total:  total,
		spring: harmonica.NewSpring(harmonica.FPS(fps), 6.0, 1.0),
	}
}

// Set updates the pane from snap and reports whether the bar needs to
// animate towards a new position.
func (m *Model) Set(snap viewer.Snapshot) bool {
	if snap.State != viewer.StateError {
		m.part, m.message, m.remaining = "", "", 0
		m.pos, m.vel, m.target = 0, 0, 0
		return false
	}
	fresh := m.part != snap.Part || m.message != snap.Message || snap.Remaining > m.remaining
	m.part = snap.Part
	m.message = snap.Message
	m.remaining = snap.Remaining
	if fresh {
		m.pos, m.vel = 1, 0
	}
	m.target = float64(snap.Remaining-1) / float64(m.total)
	m.target = math.Max(0, math.Min(1, m.target))
	return !m.settled()
}

// Step advances the spring one frame and reports whether it is still
// moving.
func (m *Model) Step() bool {
	if m.settled() {
		return false
	}
	m.pos, m.vel = m.spring.Update(m.pos, m.vel, m.target)
	if m.settled() {
		m.pos, m.vel = m.target, 0
		return false
	}
	return true
}

// Progress returns the bar fill between 0 and 1.
func (m Model) Progress() float64 {
	return math.Max(0, math.Min(1, m.pos))
}

func (m Model) settled() bool {
	return math.Abs(m.pos-m.target) < settleDist && math.Abs(m.vel) < settleDist
}

// View renders the pane. It is empty unless a lookup failed.
func (m Model) View() string {
	if m.message == "" {
		return ""
	}
	filled := int(math.Round(m.Progress() * barWidth))
	bar := lipgloss.NewStyle().Foreground(theme.ColorDanger).Render(strings.Repeat("█", filled)) +
		theme.StyleDimmed.Render(strings.Repeat("░", barWidth-filled))

	lines := []string{
		theme.StyleError.Bold(true).Render(m.message),
		"",
		bar + theme.StyleDimmed.Render(fmt.Sprintf("  back to scanner in %ds", m.remaining)),
		theme.StyleDimmed.Render("esc: dismiss"),
	}
	width := max(m.Width-4, barWidth+24)
	return theme.StyleBorder.Width(width).Padding(0, 1).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
