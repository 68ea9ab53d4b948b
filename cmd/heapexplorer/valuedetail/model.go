package valuedetail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/joshuapare/relheap/cmd/heapexplorer/entrylist"
)

// DetailDisplayMode determines how the detail view is shown
type DetailDisplayMode int

const (
	DetailModeModal DetailDisplayMode = iota // Popup overlay
	DetailModePane                           // Bottom pane
)

// ParseMode maps "modal" or "pane" to a display mode. Anything else is modal.
func ParseMode(s string) DetailDisplayMode {
	if strings.EqualFold(strings.TrimSpace(s), "pane") {
		return DetailModePane
	}
	return DetailModeModal
}

// Model shows one entry's value in full
type Model struct {
	entry       *entrylist.Entry
	displayMode DetailDisplayMode
	viewport    viewport.Model
	width       int
	height      int
	visible     bool
}

// NewModel creates a new value detail model
func NewModel(mode DetailDisplayMode) Model {
	return Model{
		displayMode: mode,
		viewport:    viewport.New(0, 0),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return nil
}

// Show displays details for an entry
func (m *Model) Show(e entrylist.Entry) {
	m.entry = &e
	m.visible = true
	m.viewport.GotoTop()
	m.updateContent()
}

// Hide closes the detail view
func (m *Model) Hide() {
	m.visible = false
	m.entry = nil
}

// IsVisible returns whether the detail view is currently shown
func (m *Model) IsVisible() bool {
	return m.visible
}

// DisplayMode returns the current display mode
func (m *Model) DisplayMode() DetailDisplayMode {
	return m.displayMode
}

// Key returns the key being shown, or "".
func (m *Model) Key() string {
	if m.entry == nil {
		return ""
	}
	return m.entry.Key
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	if msg, ok := msg.(tea.WindowSizeMsg); ok {
		m.width = msg.Width
		m.height = msg.Height
		m.updateViewportSize()
		m.updateContent()
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// updateViewportSize adjusts viewport dimensions based on display mode
func (m *Model) updateViewportSize() {
	switch m.displayMode {
	case DetailModeModal:
		// 80% of the screen, less border (2) and padding (2 rows, 4 cols)
		m.viewport.Width = int(float64(m.width)*0.8) - 6
		m.viewport.Height = int(float64(m.height)*0.8) - 4
	case DetailModePane:
		m.viewport.Width = m.width - 4
		m.viewport.Height = m.height/3 - 4
	}
}

// updateContent generates the detailed view content
func (m *Model) updateContent() {
	if m.entry == nil {
		m.viewport.SetContent("")
		return
	}
	rule := strings.Repeat("─", max(m.viewport.Width-2, 1))

	var b strings.Builder
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	b.WriteString(titleStyle.Render("Key: " + m.entry.Key))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Size:  %s (%d bytes)\n\n", humanize.IBytes(uint64(len(m.entry.Value))), len(m.entry.Value))

	if len(m.entry.Value) == 0 {
		b.WriteString("(No data)\n")
		m.viewport.SetContent(b.String())
		return
	}

	if entrylist.IsText(m.entry.Value) {
		b.WriteString("Text:\n")
		b.WriteString(rule)
		b.WriteString("\n")
		b.WriteString(string(m.entry.Value))
		b.WriteString("\n\n")
	}

	b.WriteString("Data (Hex):\n")
	b.WriteString(rule)
	b.WriteString("\n")
	b.WriteString(FormatHexDump(m.entry.Value))

	m.viewport.SetContent(b.String())
}

// FormatHexDump creates a hex dump with an ASCII sidebar
func FormatHexDump(data []byte) string {
	if len(data) == 0 {
		return "(empty)"
	}

	var b strings.Builder
	const bytesPerLine = 16

	for offset := 0; offset < len(data); offset += bytesPerLine {
		fmt.Fprintf(&b, "%08x  ", offset)

		lineEnd := min(offset+bytesPerLine, len(data))
		for i := offset; i < lineEnd; i++ {
			fmt.Fprintf(&b, "%02x ", data[i])
			if i == offset+7 {
				b.WriteString(" ")
			}
		}

		// Pad short last lines so the sidebar lines up
		remaining := bytesPerLine - (lineEnd - offset)
		b.WriteString(strings.Repeat("   ", remaining))
		if remaining > 8 {
			b.WriteString(" ")
		}

		b.WriteString(" |")
		for i := offset; i < lineEnd; i++ {
			if data[i] >= 32 && data[i] <= 126 {
				b.WriteByte(data[i])
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteString("|")

		if lineEnd < len(data) {
			b.WriteString("\n")
		}
	}

	return b.String()
}

// View renders the detail view
func (m Model) View() string {
	if !m.visible || m.entry == nil {
		return ""
	}

	switch m.displayMode {
	case DetailModeModal:
		return m.viewModal()
	case DetailModePane:
		return m.viewPane()
	default:
		return ""
	}
}

// viewModal renders the box; the overlay package centres it
func (m Model) viewModal() string {
	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Padding(1, 2)

	return borderStyle.Render(m.viewport.View())
}

// viewPane renders as a bottom pane
func (m Model) viewPane() string {
	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), true, false, false, false).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	return borderStyle.Render(m.viewport.View())
}
