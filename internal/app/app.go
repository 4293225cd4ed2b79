package app

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/partdoc/kiosk/internal/session"
	"github.com/partdoc/kiosk/internal/theme"
	"github.com/partdoc/kiosk/internal/transport"
	"github.com/partdoc/kiosk/internal/viewer"
	"github.com/partdoc/kiosk/internal/views/debug"
	"github.com/partdoc/kiosk/internal/views/document"
	"github.com/partdoc/kiosk/internal/views/errorpane"
	"github.com/partdoc/kiosk/internal/views/locations"
	"github.com/partdoc/kiosk/internal/views/status"
)

// Overlay identifies which panel replaces the main pane.
type Overlay int

const (
	OverlayNone Overlay = iota
	OverlayLocations
	OverlayDebug
)

// Kiosk is the session as the TUI drives it.
type Kiosk interface {
	Updates() <-chan session.Update
	Submit(part string)
	Return()
	Dismiss()
	Reset()
}

// Options configures the root model.
type Options struct {
	// ErrorTimeout is the auto-reset countdown in seconds, used to scale
	// the error bar.
	ErrorTimeout int
	// DocumentStyle is a glamour standard style name.
	DocumentStyle string
	Now           func() time.Time
}

type updateMsg session.Update

type updatesClosedMsg struct{}

// Model is the root Bubble Tea model.
type Model struct {
	kiosk Kiosk
	keys  KeyMap
	now   func() time.Time

	width  int
	height int

	input   textinput.Model
	spinner spinner.Model
	overlay Overlay

	// Sub-views.
	statusBar status.Model
	document  document.Model
	errPane   errorpane.Model
	locations locations.Model
	debug     debug.Model

	snap       viewer.Snapshot
	focusSeq   uint64
	lastEvent  session.EventInfo
	lastStatus transport.Status
	animating  bool
}

// New creates the root model.
func New(k Kiosk, opts Options) Model {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	input := textinput.New()
	input.Placeholder = "scan or type a part number"
	input.Prompt = "▌ "
	input.CharLimit = 128
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.ColorSearching)

	doc := document.New()
	if opts.DocumentStyle != "" {
		doc.Style = opts.DocumentStyle
	}

	return Model{
		kiosk:     k,
		keys:      DefaultKeyMap(),
		now:       opts.Now,
		input:     input,
		spinner:   sp,
		statusBar: status.New(),
		document:  doc,
		errPane:   errorpane.New(opts.ErrorTimeout),
		locations: locations.New(),
		debug:     debug.New(),
		snap:      viewer.Snapshot{State: viewer.StateIdle},
	}
}

// Init starts listening for session updates.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForUpdate(), textinput.Blink, m.spinner.Tick)
}

func (m Model) waitForUpdate() tea.Cmd {
	if m.kiosk == nil {
		return nil
	}
	ch := m.kiosk.Updates()
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return updatesClosedMsg{}
		}
		return updateMsg(u)
	}
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.statusBar.Width = msg.Width
		m.errPane.Width = msg.Width
		m.document.SetWidth(msg.Width)
		m.locations.SetHeight(msg.Height - 10)
		m.input.Width = max(msg.Width-10, 20)
		return m, nil

	case updateMsg:
		return m.applyUpdate(session.Update(msg))

	case updatesClosedMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case errorpane.FrameMsg:
		if m.errPane.Step() {
			return m, errorpane.Animate()
		}
		m.animating = false
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) applyUpdate(u session.Update) (tea.Model, tea.Cmd) {
	now := m.now()
	prev := m.snap
	m.snap = u.Viewer

	m.statusBar.Apply(u)
	m.document.Set(u.Viewer)
	m.locations.SetRecords(u.Records)

	cmds := []tea.Cmd{m.waitForUpdate()}
	if m.errPane.Set(u.Viewer) && !m.animating {
		m.animating = true
		cmds = append(cmds, errorpane.Animate())
	}

	if u.Status != m.lastStatus {
		line := string(u.Status)
		if u.StatusDetail != "" {
			line += ": " + u.StatusDetail
		}
		m.debug.Add(now, debug.KindNet, line)
		m.lastStatus = u.Status
	}
	if ev := u.LastEvent; ev != nil && *ev != m.lastEvent {
		m.lastEvent = *ev
		kind, line := debug.KindScan, ev.Part+" from "+ev.Channel
		if ev.Reason != "" {
			kind = debug.KindSkip
			line += " (" + string(ev.Reason) + ")"
		}
		m.debug.Add(now, kind, line)
	}
	if prev.State != u.Viewer.State {
		m.debug.Add(now, debug.KindView, describe(u.Viewer))
	}

	if u.FocusSeq > m.focusSeq {
		m.focusSeq = u.FocusSeq
		m.overlay = OverlayNone
		cmds = append(cmds, m.input.Focus())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.overlay != OverlayNone {
		return m.handleOverlayKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		part := strings.TrimSpace(m.input.Value())
		m.input.Reset()
		if part != "" && m.kiosk != nil {
			m.kiosk.Submit(part)
		}
		return m, nil

	case key.Matches(msg, m.keys.Back):
		if m.input.Value() != "" {
			m.input.Reset()
			return m, nil
		}
		if m.kiosk != nil {
			switch m.snap.State {
			case viewer.StateViewer:
				m.kiosk.Return()
			case viewer.StateError:
				m.kiosk.Dismiss()
			case viewer.StateSearching:
				m.kiosk.Reset()
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Locations):
		m.overlay = OverlayLocations
		m.input.Blur()
		return m, nil

	case key.Matches(msg, m.keys.Debug):
		m.overlay = OverlayDebug
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleOverlayKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	closeKey := key.Matches(msg, m.keys.Back) ||
		(m.overlay == OverlayLocations && key.Matches(msg, m.keys.Locations)) ||
		(m.overlay == OverlayDebug && key.Matches(msg, m.keys.Debug))
	if closeKey {
		m.overlay = OverlayNone
		return m, m.input.Focus()
	}

	switch m.overlay {
	case OverlayLocations:
		var cmd tea.Cmd
		m.locations, cmd = m.locations.Update(msg)
		return m, cmd
	case OverlayDebug:
		switch {
		case key.Matches(msg, m.keys.Up):
			m.debug.ScrollUp(1)
		case key.Matches(msg, m.keys.Down):
			m.debug.ScrollDown(1)
		}
	}
	return m, nil
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	sections := []string{m.statusBar.View()}
	switch m.overlay {
	case OverlayLocations:
		sections = append(sections, m.locations.View())
	case OverlayDebug:
		sections = append(sections, m.debug.View(m.width, m.height-6))
	default:
		sections = append(sections, "", m.mainPane(), "", m.input.View())
	}
	sections = append(sections, theme.StyleDimmed.Render("  enter:look up  esc:back  tab:locations  ctrl+d:event log  ctrl+c:quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) mainPane() string {
	switch m.snap.State {
	case viewer.StateSearching:
		return "  " + m.spinner.View() + " Looking up " + theme.StyleHeader.Render(m.snap.Part) + "..."
	case viewer.StateViewer:
		return m.document.View()
	case viewer.StateError:
		return m.errPane.View()
	default:
		return theme.StyleDimmed.Render("  Scan a barcode or type a part number.")
	}
}

func describe(s viewer.Snapshot) string {
	switch s.State {
	case viewer.StateSearching:
		return "searching " + s.Part
	case viewer.StateViewer:
		return "showing " + s.Filename
	case viewer.StateError:
		return s.Message
	default:
		return "idle"
	}
}
