// Package entrylist is the scrolling list of catalog entries in the
// explorer's main pane.
package entrylist

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// headerHeight is the column header plus its separator.
const headerHeight = 2

// previewBytes is how much of a binary value the list shows as hex.
const previewBytes = 16

var (
	defaultClipboard = clipboard.WriteAll
	writeClipboard   = defaultClipboard
)

// ErrNoSelection is returned by copy operations on an empty list.
var ErrNoSelection = errors.New("no entry selected")

// Entry is one catalog record copied out of the heap.
type Entry struct {
	Key   string
	Value []byte
}

// Preview renders the value for a single table cell: the text itself when
// it is printable UTF-8, else a hex prefix.
func (e Entry) Preview() string {
	if len(e.Value) == 0 {
		return "(empty)"
	}
	if IsText(e.Value) {
		return strings.ReplaceAll(string(e.Value), "\n", "⏎")
	}
	if len(e.Value) > previewBytes {
		return hex.EncodeToString(e.Value[:previewBytes]) + "..."
	}
	return hex.EncodeToString(e.Value)
}

// IsText reports whether b is valid UTF-8 without control characters other
// than tab and newline.
func IsText(b []byte) bool {
	if !utf8.Valid(b) {
		return false
	}
	for _, r := range string(b) {
		if (r < 0x20 && r != '\t' && r != '\n') || r == 0x7f {
			return false
		}
	}
	return true
}

// EntrySelectedMsg asks the main model to show an entry in detail.
type EntrySelectedMsg struct {
	Entry Entry
}

// CopyRequestedMsg reports the outcome of a clipboard copy.
type CopyRequestedMsg struct {
	What string // "key" or "value"
	Key  string
	Err  error
}

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	rowAltStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#0A0A0A"))
	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#7D56F4")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Bold(true)
	matchStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#FFA500")).
			Foreground(lipgloss.Color("#000000"))
)

// Model manages the entry list
type Model struct {
	entries  []Entry
	items    []int // indices into entries that pass the filter
	filter   string
	cursor   int
	scroll   int // first visible row
	viewport viewport.Model
	width    int
	height   int

	keys Keys
}

// NewModel creates an empty entry list
func NewModel() Model {
	return Model{viewport: viewport.New(0, 0)}
}

// SetKeys configures the key bindings
func (m *Model) SetKeys(keys Keys) {
	m.keys = keys
}

// SetEntries replaces the list contents. The cursor stays on the same key
// when it is still present.
func (m *Model) SetEntries(entries []Entry) {
	var current string
	if e := m.CurrentItem(); e != nil {
		current = e.Key
	}
	m.entries = entries
	m.applyFilter()
	if current != "" {
		m.SelectKey(current)
	}
	m.clampCursor()
	m.scroll = min(m.scroll, m.cursor)
	m.ensureCursorVisible()
}

// SetFilter shows only entries whose key contains s, case-insensitively.
func (m *Model) SetFilter(s string) {
	m.filter = s
	m.applyFilter()
	m.cursor = 0
	m.scroll = 0
	m.updateViewport()
}

// Filter returns the active filter.
func (m *Model) Filter() string { return m.filter }

func (m *Model) applyFilter() {
	m.items = make([]int, 0, len(m.entries))
	needle := strings.ToLower(m.filter)
	for i, e := range m.entries {
		if needle == "" || strings.Contains(strings.ToLower(e.Key), needle) {
			m.items = append(m.items, i)
		}
	}
}

// SetSize sets the pane dimensions
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.ensureCursorVisible()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
	}
	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (Model, tea.Cmd) {
	page := max(m.viewport.Height-headerHeight, 1)

	switch {
	case key.Matches(msg, m.keys.Up):
		m.moveTo(m.cursor - 1)
	case key.Matches(msg, m.keys.Down):
		m.moveTo(m.cursor + 1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveTo(m.cursor - page)
	case key.Matches(msg, m.keys.PageDown):
		m.moveTo(m.cursor + page)
	case key.Matches(msg, m.keys.Home):
		m.moveTo(0)
	case key.Matches(msg, m.keys.End):
		m.moveTo(len(m.items) - 1)

	case key.Matches(msg, m.keys.Enter):
		if e := m.CurrentItem(); e != nil {
			entry := *e
			return m, func() tea.Msg { return EntrySelectedMsg{Entry: entry} }
		}

	case key.Matches(msg, m.keys.CopyKey):
		return m, m.copyCmd("key")
	case key.Matches(msg, m.keys.CopyValue):
		return m, m.copyCmd("value")
	}
	return m, nil
}

func (m *Model) copyCmd(what string) tea.Cmd {
	e := m.CurrentItem()
	if e == nil {
		return func() tea.Msg { return CopyRequestedMsg{What: what, Err: ErrNoSelection} }
	}
	text := e.Key
	if what == "value" {
		text = string(e.Value)
		if !IsText(e.Value) {
			text = hex.EncodeToString(e.Value)
		}
	}
	err := writeClipboard(text)
	k := e.Key
	return func() tea.Msg { return CopyRequestedMsg{What: what, Key: k, Err: err} }
}

func (m *Model) moveTo(i int) {
	if len(m.items) == 0 {
		return
	}
	m.cursor = min(max(i, 0), len(m.items)-1)
	m.ensureCursorVisible()
}

func (m *Model) clampCursor() {
	m.cursor = min(max(m.cursor, 0), max(len(m.items)-1, 0))
}

// ensureCursorVisible scrolls the viewport so the cursor row is shown
func (m *Model) ensureCursorVisible() {
	visible := m.viewport.Height - headerHeight
	if visible > 0 {
		if m.cursor < m.scroll {
			m.scroll = m.cursor
		} else if m.cursor >= m.scroll+visible {
			m.scroll = m.cursor - visible + 1
		}
	}
	m.updateViewport()
}

// View renders the entry list
func (m Model) View() string {
	if len(m.items) == 0 {
		if m.filter != "" {
			return fmt.Sprintf("No keys match %q", m.filter)
		}
		return "No entries"
	}
	return m.viewport.View()
}

// updateViewport renders the visible rows into the viewport. Only the rows
// in the scroll window are rendered; the header is always shown.
func (m *Model) updateViewport() {
	width := m.viewport.Width
	if width <= 0 {
		width = m.width
	}
	keyWidth := max(width/3, 12)
	sizeWidth := 10
	previewWidth := max(width-keyWidth-sizeWidth-4, 10)

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s  %*s  %s", keyWidth, "KEY", sizeWidth, "SIZE", "VALUE")))
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", max(width, 1)))

	visible := m.viewport.Height - headerHeight
	if visible <= 0 {
		visible = len(m.items)
	}
	start := min(m.scroll, len(m.items))
	end := min(start+visible, len(m.items))
	for row := start; row < end; row++ {
		e := m.entries[m.items[row]]
		line := fmt.Sprintf("%-*s  %*s  %s",
			keyWidth, truncate(e.Key, keyWidth),
			sizeWidth, humanize.IBytes(uint64(len(e.Value))),
			truncate(e.Preview(), previewWidth))

		b.WriteString("\n")
		switch {
		case row == m.cursor:
			b.WriteString(selectedStyle.Render(line))
		case m.filter != "":
			b.WriteString(highlight(line, m.filter))
		case row%2 == 1:
			b.WriteString(rowAltStyle.Render(line))
		default:
			b.WriteString(line)
		}
	}

	m.viewport.SetContent(b.String())
	m.viewport.SetYOffset(0)
}

// highlight marks the first case-insensitive occurrence of needle.
func highlight(line, needle string) string {
	i := strings.Index(strings.ToLower(line), strings.ToLower(needle))
	if i < 0 {
		return line
	}
	j := i + len(needle)
	return line[:i] + matchStyle.Render(line[i:j]) + line[j:]
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	if n <= 3 {
		return string([]rune(s)[:n])
	}
	return string([]rune(s)[:n-3]) + "..."
}

// CurrentItem returns the selected entry, or nil when the list is empty
func (m *Model) CurrentItem() *Entry {
	if m.cursor >= 0 && m.cursor < len(m.items) {
		return &m.entries[m.items[m.cursor]]
	}
	return nil
}

// SelectKey moves the cursor to key if it is shown.
func (m *Model) SelectKey(k string) bool {
	for row, i := range m.items {
		if m.entries[i].Key == k {
			m.cursor = row
			m.ensureCursorVisible()
			return true
		}
	}
	return false
}

// GetItems returns the entries that pass the filter, in display order
func (m *Model) GetItems() []Entry {
	out := make([]Entry, len(m.items))
	for row, i := range m.items {
		out[row] = m.entries[i]
	}
	return out
}

// GetCursor returns the current cursor position
func (m *Model) GetCursor() int {
	return m.cursor
}

// Offset returns the first visible row.
func (m *Model) Offset() int {
	return m.scroll
}
