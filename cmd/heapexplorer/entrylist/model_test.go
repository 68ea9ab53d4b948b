package entrylist

import (
	"errors"
	"fmt"
	"testing"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKeys() Keys {
	return Keys{
		Up:        key.NewBinding(key.WithKeys("up", "k")),
		Down:      key.NewBinding(key.WithKeys("down", "j")),
		PageUp:    key.NewBinding(key.WithKeys("pgup")),
		PageDown:  key.NewBinding(key.WithKeys("pgdown")),
		Home:      key.NewBinding(key.WithKeys("home", "g")),
		End:       key.NewBinding(key.WithKeys("end", "G")),
		Enter:     key.NewBinding(key.WithKeys("enter")),
		CopyKey:   key.NewBinding(key.WithKeys("c")),
		CopyValue: key.NewBinding(key.WithKeys("y")),
	}
}

func newList(n int) Model {
	m := NewModel()
	m.SetKeys(testKeys())
	m.SetSize(80, 7) // header + 5 rows
	entries := make([]Entry, n)
	for i := range entries {
		entries[i] = Entry{Key: fmt.Sprintf("key%02d", i), Value: []byte(fmt.Sprintf("value %d", i))}
	}
	m.SetEntries(entries)
	return m
}

func press(m Model, k string) (Model, tea.Cmd) {
	var msg tea.KeyMsg
	switch k {
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "pgdown":
		msg = tea.KeyMsg{Type: tea.KeyPgDown}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}
	return m.Update(msg)
}

func TestNavigation(t *testing.T) {
	m := newList(20)
	assert.Equal(t, 0, m.GetCursor())

	m, _ = press(m, "up")
	assert.Equal(t, 0, m.GetCursor(), "cursor stops at the top")

	for range 7 {
		m, _ = press(m, "down")
	}
	assert.Equal(t, 7, m.GetCursor())
	assert.Equal(t, 3, m.Offset(), "cursor row scrolled into view")

	m, _ = press(m, "G")
	assert.Equal(t, 19, m.GetCursor())
	assert.Equal(t, 15, m.Offset())

	m, _ = press(m, "down")
	assert.Equal(t, 19, m.GetCursor(), "cursor stops at the bottom")

	m, _ = press(m, "g")
	assert.Equal(t, 0, m.GetCursor())
	assert.Equal(t, 0, m.Offset())

	m, _ = press(m, "pgdown")
	assert.Equal(t, 5, m.GetCursor())
}

func TestView(t *testing.T) {
	m := newList(20)
	view := m.View()
	assert.Contains(t, view, "KEY")
	assert.Contains(t, view, "key00")
	assert.Contains(t, view, "key04")
	assert.NotContains(t, view, "key05", "only the visible window is rendered")

	empty := NewModel()
	assert.Equal(t, "No entries", empty.View())
}

func TestFilter(t *testing.T) {
	m := newList(20)
	m, _ = press(m, "G")

	m.SetFilter("KEY1")
	assert.Equal(t, 0, m.GetCursor())
	items := m.GetItems()
	require.Len(t, items, 10)
	assert.Equal(t, "key10", items[0].Key)

	m.SetFilter("nothing")
	assert.Nil(t, m.CurrentItem())
	assert.Contains(t, m.View(), `No keys match "nothing"`)

	m.SetFilter("")
	assert.Len(t, m.GetItems(), 20)
}

func TestSetEntries_KeepsSelection(t *testing.T) {
	m := newList(10)
	require.True(t, m.SelectKey("key06"))

	m.SetEntries([]Entry{{Key: "a"}, {Key: "key06"}, {Key: "z"}})
	require.NotNil(t, m.CurrentItem())
	assert.Equal(t, "key06", m.CurrentItem().Key)

	m.SetEntries([]Entry{{Key: "a"}})
	require.NotNil(t, m.CurrentItem())
	assert.Equal(t, "a", m.CurrentItem().Key, "cursor clamped when the key is gone")

	assert.False(t, m.SelectKey("missing"))
}

func TestEnter_SelectsEntry(t *testing.T) {
	m := newList(3)
	m, _ = press(m, "down")
	_, cmd := press(m, "enter")
	require.NotNil(t, cmd)

	msg, ok := cmd().(EntrySelectedMsg)
	require.True(t, ok)
	assert.Equal(t, "key01", msg.Entry.Key)
	assert.Equal(t, []byte("value 1"), msg.Entry.Value)
}

func TestCopy(t *testing.T) {
	var copied []string
	writeClipboard = func(s string) error {
		copied = append(copied, s)
		return nil
	}
	t.Cleanup(func() { writeClipboard = defaultClipboard })

	m := newList(3)
	m.SetEntries([]Entry{{Key: "text", Value: []byte("hello")}, {Key: "bin", Value: []byte{0, 1, 0xff}}})

	_, cmd := press(m, "c")
	msg := cmd().(CopyRequestedMsg)
	require.NoError(t, msg.Err)
	assert.Equal(t, "key", msg.What)

	_, cmd = press(m, "y")
	require.NoError(t, cmd().(CopyRequestedMsg).Err)

	m.SelectKey("bin")
	_, cmd = press(m, "y")
	require.NoError(t, cmd().(CopyRequestedMsg).Err)

	assert.Equal(t, []string{"text", "hello", "0001ff"}, copied)

	writeClipboard = func(string) error { return errors.New("no clipboard") }
	_, cmd = press(m, "c")
	assert.EqualError(t, cmd().(CopyRequestedMsg).Err, "no clipboard")

	empty := NewModel()
	empty.SetKeys(testKeys())
	_, cmd = press(empty, "c")
	assert.ErrorIs(t, cmd().(CopyRequestedMsg).Err, ErrNoSelection)
}

func TestPreview(t *testing.T) {
	tests := []struct {
		name  string
		value []byte
		want  string
	}{
		{"empty", nil, "(empty)"},
		{"text", []byte("hello world"), "hello world"},
		{"newline", []byte("a\nb"), "a⏎b"},
		{"binary", []byte{0xde, 0xad, 0xbe, 0xef}, "deadbeef"},
		{"long binary", make([]byte, 20), "00000000000000000000000000000000..."},
		{"invalid utf8", []byte{'a', 0xc3}, "61c3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Entry{Value: tt.value}.Preview())
		})
	}
}
