package main

import (
	"context"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/relheap/cmd/heapexplorer/displays"
	"github.com/joshuapare/relheap/cmd/heapexplorer/entrylist"
	"github.com/joshuapare/relheap/cmd/heapexplorer/valuedetail"
)

// Layout constants
const (
	InfoPanelWidth = 34 // Width of the heap info panel on the right
	HeaderHeight   = 2  // Title line and segment line
	StatusHeight   = 2  // Status bar plus its top margin
)

// lockTimeout bounds how long a UI action waits for the segment lock.
const lockTimeout = 2 * time.Second

// EnvDetailMode selects "modal" (default) or "pane" detail display.
const EnvDetailMode = "HEAPEXPLORER_DETAIL_MODE"

// InputMode represents different input modes
type InputMode int

const (
	NormalMode InputMode = iota
	SearchMode
	ConfirmDeleteMode
)

// Model is the main application model
type Model struct {
	store  *Store
	list   entrylist.Model
	detail valuedetail.Model
	info   *displays.HeapInfoDisplay
	keys   KeyMap

	order        Order
	refreshEvery time.Duration

	width  int
	height int

	inputMode     InputMode
	search        textinput.Model
	pendingDelete string

	showHelp      bool
	statusMessage string
}

// NewModel creates a new TUI model over an attached store. A positive
// refresh interval re-reads the heap periodically so edits by other
// processes show up.
func NewModel(store *Store, refresh time.Duration) Model {
	keys := DefaultKeyMap()

	list := entrylist.NewModel()
	list.SetKeys(entrylist.Keys{
		Up:        keys.Up,
		Down:      keys.Down,
		PageUp:    keys.PageUp,
		PageDown:  keys.PageDown,
		Home:      keys.Home,
		End:       keys.End,
		Enter:     keys.Enter,
		CopyKey:   keys.Copy,
		CopyValue: keys.CopyValue,
	})

	search := textinput.New()
	search.Prompt = "Filter: "
	search.PromptStyle = searchPromptStyle
	search.CharLimit = 256

	return Model{
		store:        store,
		list:         list,
		detail:       valuedetail.NewModel(valuedetail.ParseMode(os.Getenv(EnvDetailMode))),
		info:         displays.NewHeapInfoDisplay(displays.HeapInfo{Name: store.Name()}),
		keys:         keys,
		refreshEvery: refresh,
		search:       search,
	}
}

// Init loads the first snapshot and starts the refresh timer
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadSnapshot(), m.scheduleRefresh())
}

// Close releases the store
func (m *Model) Close() error {
	if m.store == nil {
		return nil
	}
	err := m.store.Close()
	m.store = nil
	return err
}

// Messages

// snapshotLoadedMsg carries a fresh copy of the heap contents.
type snapshotLoadedMsg struct {
	info    displays.HeapInfo
	entries []entrylist.Entry
	order   Order
	err     error
}

// editDoneMsg reports a finished delete or promote.
type editDoneMsg struct {
	op  string
	key string
	err error
}

// verifyDoneMsg reports the result of a heap check.
type verifyDoneMsg struct{ err error }

type refreshTickMsg struct{}

type clearStatusMsg struct{}

func (m Model) loadSnapshot() tea.Cmd {
	store, order := m.store, m.order
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
		defer cancel()
		info, entries, err := store.Snapshot(ctx, order)
		return snapshotLoadedMsg{info: info, entries: entries, order: order, err: err}
	}
}

func (m Model) scheduleRefresh() tea.Cmd {
	if m.refreshEvery <= 0 {
		return nil
	}
	return tea.Tick(m.refreshEvery, func(time.Time) tea.Msg { return refreshTickMsg{} })
}

func (m Model) deleteEntry(key string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
		defer cancel()
		return editDoneMsg{op: "Deleted", key: key, err: store.Delete(ctx, key)}
	}
}

func (m Model) promoteEntry(key string) tea.Cmd {
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
		defer cancel()
		return editDoneMsg{op: "Promoted", key: key, err: store.Promote(ctx, key)}
	}
}

func (m Model) verify() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), lockTimeout)
		defer cancel()
		return verifyDoneMsg{err: store.Check(ctx)}
	}
}

func clearStatusAfter(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return clearStatusMsg{} })
}
