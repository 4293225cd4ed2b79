// Package locations renders the kiosk's part-location directory as a
// scrollable table.
package locations

import (
	"sort"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/partdoc/kiosk/internal/directory"
	"github.com/partdoc/kiosk/internal/theme"
)

const timeLayout = "01-02 15:04:05"

// Model wraps a bubbles table of location records.
type Model struct {
	table table.Model
	count int
}

// New creates an empty locations table.
func New() Model {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Order", Width: 18},
			{Title: "Location", Width: 14},
			{Title: "Device", Width: 10},
			{Title: "Updated", Width: 15},
		}),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(theme.ColorBright).
		Background(theme.ColorSearching)
	t.SetStyles(styles)
	return Model{table: t}
}

// SetRecords replaces the table rows, newest first.
func (m *Model) SetRecords(records []directory.LocationRecord) {
	sorted := make([]directory.LocationRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].UpdatedAt.After(sorted[j].UpdatedAt)
	})

	rows := make([]table.Row, 0, len(sorted))
	for _, r := range sorted {
		updated := ""
		if !r.UpdatedAt.IsZero() {
			updated = r.UpdatedAt.Local().Format(timeLayout)
		}
		device := r.Device()
		if device == "" {
			device = "-"
		}
		rows = append(rows, table.Row{r.OrderCode, r.LocationCode, device, updated})
	}
	m.table.SetRows(rows)
	m.count = len(rows)
}

// SetHeight sets the number of visible rows.
func (m *Model) SetHeight(h int) {
	m.table.SetHeight(max(h, 3))
}

// Len returns the number of rows.
func (m Model) Len() int { return m.count }

// Update forwards navigation keys to the table.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the table as an overlay panel.
func (m Model) View() string {
	title := theme.StyleHeader.Render(" PART LOCATIONS ")
	if m.count == 0 {
		body := theme.StyleDimmed.Render("  No locations known yet.")
		return theme.StyleBorder.Padding(0, 1).Render(lipgloss.JoinVertical(lipgloss.Left, title, "", body))
	}
	help := theme.StyleDimmed.Render("↑/↓:scroll  tab/esc:close")
	return theme.StyleBorder.Padding(0, 1).Render(lipgloss.JoinVertical(lipgloss.Left, title, m.table.View(), help))
}
