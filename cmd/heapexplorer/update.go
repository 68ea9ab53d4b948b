package main

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joshuapare/relheap/cmd/heapexplorer/entrylist"
	"github.com/joshuapare/relheap/cmd/heapexplorer/valuedetail"
	"github.com/joshuapare/relheap/internal/logger"
)

// Update handles all messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		_, cmd := m.detail.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)

	case snapshotLoadedMsg:
		if msg.err != nil {
			logger.L.Warn("snapshot failed", "segment", m.store.Name(), "error", msg.err)
			m.statusMessage = fmt.Sprintf("Refresh failed: %v", msg.err)
			return m, clearStatusAfter(3 * time.Second)
		}
		if msg.order != m.order {
			// A toggle raced this load; a fresh one is already on its way.
			return m, nil
		}
		m.info.Info = msg.info
		m.list.SetEntries(msg.entries)
		return m, nil

	case refreshTickMsg:
		return m, tea.Batch(m.loadSnapshot(), m.scheduleRefresh())

	case editDoneMsg:
		if msg.err != nil {
			logger.L.Warn("edit failed", "op", msg.op, "key", msg.key, "error", msg.err)
			m.statusMessage = fmt.Sprintf("%s %q failed: %v", msg.op, msg.key, msg.err)
		} else {
			logger.L.Info("edit", "op", msg.op, "key", msg.key)
			m.statusMessage = fmt.Sprintf("%s %q", msg.op, msg.key)
		}
		return m, tea.Batch(m.loadSnapshot(), clearStatusAfter(2*time.Second))

	case verifyDoneMsg:
		if msg.err != nil {
			logger.L.Error("verify failed", "segment", m.store.Name(), "error", msg.err)
			m.statusMessage = fmt.Sprintf("Heap check failed: %v", msg.err)
		} else {
			m.statusMessage = "Heap check passed"
		}
		return m, clearStatusAfter(3 * time.Second)

	case entrylist.EntrySelectedMsg:
		m.detail.Show(msg.Entry)
		m.layout()
		return m, nil

	case entrylist.CopyRequestedMsg:
		if msg.Err != nil {
			m.statusMessage = fmt.Sprintf("Copy failed: %v", msg.Err)
		} else {
			m.statusMessage = fmt.Sprintf("Copied %s of %q", msg.What, msg.Key)
		}
		return m, clearStatusAfter(2 * time.Second)

	case clearStatusMsg:
		m.statusMessage = ""
		return m, nil
	}

	// Cursor blink and other input housekeeping
	if m.inputMode == SearchMode {
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Help screen swallows everything but its close keys
	if m.showHelp {
		if key.Matches(msg, m.keys.Esc) || key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Quit) {
			m.showHelp = false
		}
		return m, nil
	}

	// Detail view: scroll, close, or quit
	if m.detail.IsVisible() {
		switch {
		case key.Matches(msg, m.keys.Esc), key.Matches(msg, m.keys.Enter):
			m.detail.Hide()
			m.layout()
			return m, nil
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down),
			key.Matches(msg, m.keys.PageUp), key.Matches(msg, m.keys.PageDown):
			_, cmd := m.detail.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	switch m.inputMode {
	case SearchMode:
		return m.handleSearchKey(msg)
	case ConfirmDeleteMode:
		return m.handleConfirmKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		return m, nil

	case key.Matches(msg, m.keys.Esc):
		if m.list.Filter() != "" {
			m.list.SetFilter("")
			m.search.Reset()
			m.statusMessage = "Filter cleared"
			return m, clearStatusAfter(2 * time.Second)
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.inputMode = SearchMode
		m.search.SetValue(m.list.Filter())
		m.search.CursorEnd()
		return m, m.search.Focus()

	case key.Matches(msg, m.keys.Order):
		if m.order == KeyOrder {
			m.order = InsertionOrder
		} else {
			m.order = KeyOrder
		}
		m.statusMessage = fmt.Sprintf("Listing in %s order", m.order)
		return m, tea.Batch(m.loadSnapshot(), clearStatusAfter(2*time.Second))

	case key.Matches(msg, m.keys.Refresh):
		return m, m.loadSnapshot()

	case key.Matches(msg, m.keys.Verify):
		m.statusMessage = "Checking heap..."
		return m, m.verify()

	case key.Matches(msg, m.keys.Delete):
		if e := m.list.CurrentItem(); e != nil {
			m.pendingDelete = e.Key
			m.inputMode = ConfirmDeleteMode
		}
		return m, nil

	case key.Matches(msg, m.keys.Promote):
		if e := m.list.CurrentItem(); e != nil {
			return m, m.promoteEntry(e.Key)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKey edits the filter; the list narrows as the user types.
func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEnter:
		m.inputMode = NormalMode
		m.search.Blur()
		return m, nil
	case tea.KeyEsc:
		m.inputMode = NormalMode
		m.search.Blur()
		m.search.Reset()
		m.list.SetFilter("")
		return m, nil
	}

	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if v := m.search.Value(); v != m.list.Filter() {
		m.list.SetFilter(v)
	}
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Yes):
		k := m.pendingDelete
		m.inputMode = NormalMode
		m.pendingDelete = ""
		return m, m.deleteEntry(k)
	case key.Matches(msg, m.keys.No), key.Matches(msg, m.keys.Quit):
		m.inputMode = NormalMode
		m.pendingDelete = ""
	}
	return m, nil
}

// layout sizes the panes for the current window.
func (m *Model) layout() {
	contentHeight := max(m.height-HeaderHeight-StatusHeight, 3)
	listHeight := contentHeight
	if m.detail.IsVisible() && m.detail.DisplayMode() == valuedetail.DetailModePane {
		listHeight -= m.height / 3
	}
	listWidth := max(m.width-InfoPanelWidth, 20)

	// Pane border and padding take 4 columns and 2 rows
	m.list.SetSize(listWidth-4, max(listHeight-2, 1))
	m.info.SetSize(InfoPanelWidth, contentHeight)
}
