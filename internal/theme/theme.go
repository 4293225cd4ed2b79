// Package theme provides the Lip Gloss color palette and reusable styles
// for the kiosk TUI. It is a leaf package with no internal imports to
// avoid import cycles.
package theme

import "github.com/charmbracelet/lipgloss"

// Transport status colors.
var (
	ColorLive       = lipgloss.Color("#22c55e")
	ColorConnecting = lipgloss.Color("#d97706")
	ColorOffline    = lipgloss.Color("#6b7280")
	ColorError      = lipgloss.Color("#dc2626")
	ColorDisabled   = lipgloss.Color("#374151")
)

// Viewer state colors.
var (
	ColorIdle      = lipgloss.Color("#4b5563")
	ColorSearching = lipgloss.Color("#2563eb")
	ColorViewer    = lipgloss.Color("#16a34a")
	ColorFailed    = lipgloss.Color("#dc2626")
)

// UI chrome colors.
var (
	ColorBorder  = lipgloss.Color("#4b5563")
	ColorDimmed  = lipgloss.Color("#6b7280")
	ColorBright  = lipgloss.Color("#f9fafb")
	ColorAccent  = lipgloss.Color("#06b6d4")
	ColorWarning = lipgloss.Color("#d97706")
	ColorDanger  = lipgloss.Color("#dc2626")
	ColorDefault = lipgloss.Color("#9ca3af")
)

// StatusColor returns the color for a transport status string.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "live":
		return ColorLive
	case "connecting":
		return ColorConnecting
	case "offline":
		return ColorOffline
	case "error":
		return ColorError
	case "disabled":
		return ColorDisabled
	default:
		return ColorDefault
	}
}

// StatusGlyph returns a glyph for a transport status string.
func StatusGlyph(status string) string {
	switch status {
	case "live":
		return "●"
	case "connecting":
		return "◌"
	case "error":
		return "✗"
	case "disabled":
		return "–"
	default:
		return "○"
	}
}

// StateColor returns the color for a viewer state string.
func StateColor(state string) lipgloss.Color {
	switch state {
	case "idle":
		return ColorIdle
	case "searching":
		return ColorSearching
	case "viewer":
		return ColorViewer
	case "error":
		return ColorFailed
	default:
		return ColorDefault
	}
}

// Reusable styles.
var (
	StyleBorder = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(ColorBorder)

	StyleHeader = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleDimmed = lipgloss.NewStyle().
		Foreground(ColorDimmed)

	StyleSelected = lipgloss.NewStyle().
		Bold(true).
		Foreground(ColorBright)

	StyleError = lipgloss.NewStyle().
		Foreground(ColorDanger)
)
