package valuedetail

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/relheap/cmd/heapexplorer/entrylist"
)

func TestNewModel(t *testing.T) {
	tests := []struct {
		name string
		mode DetailDisplayMode
	}{
		{"Modal mode", DetailModeModal},
		{"Pane mode", DetailModePane},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(tt.mode)
			assert.Equal(t, tt.mode, m.DisplayMode())
			assert.False(t, m.IsVisible())
			assert.Empty(t, m.View())
		})
	}
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, DetailModePane, ParseMode("pane"))
	assert.Equal(t, DetailModePane, ParseMode(" Pane "))
	assert.Equal(t, DetailModeModal, ParseMode("modal"))
	assert.Equal(t, DetailModeModal, ParseMode(""))
}

func TestShowAndHide(t *testing.T) {
	m := NewModel(DetailModeModal)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	m.Show(entrylist.Entry{Key: "greeting", Value: []byte("hello there")})
	require.True(t, m.IsVisible())
	assert.Equal(t, "greeting", m.Key())

	view := m.View()
	assert.Contains(t, view, "Key: greeting")
	assert.Contains(t, view, "Text:")
	assert.Contains(t, view, "hello there")
	assert.Contains(t, view, "|hello there|")

	m.Hide()
	assert.False(t, m.IsVisible())
	assert.Empty(t, m.Key())
	assert.Empty(t, m.View())
}

func TestShow_Binary(t *testing.T) {
	m := NewModel(DetailModePane)
	m.Update(tea.WindowSizeMsg{Width: 120, Height: 60})

	m.Show(entrylist.Entry{Key: "blob", Value: []byte{0, 1, 2, 0xff}})
	view := m.View()
	assert.NotContains(t, view, "Text:")
	assert.Contains(t, view, "00 01 02 ff")

	m.Show(entrylist.Entry{Key: "nothing"})
	assert.Contains(t, m.View(), "(No data)")
}

func TestFormatHexDump(t *testing.T) {
	assert.Equal(t, "(empty)", FormatHexDump(nil))

	data := []byte("0123456789abcdefXY")
	lines := strings.Split(FormatHexDump(data), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t,
		"00000000  30 31 32 33 34 35 36 37  38 39 61 62 63 64 65 66  |0123456789abcdef|",
		lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "00000010  58 59 "))
	assert.True(t, strings.HasSuffix(lines[1], " |XY|"))
	assert.Len(t, lines[1], len(lines[0])-14, "short line padded so the sidebar lines up")
}
