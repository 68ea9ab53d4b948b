package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	overlay "github.com/rmhubbert/bubbletea-overlay"

	"github.com/joshuapare/relheap/cmd/heapexplorer/valuedetail"
)

// View renders the entire UI
func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}

	// The modal is drawn over the main view. The overlay is rebuilt every
	// render because Update hands back copies of the model.
	if m.detail.IsVisible() && m.detail.DisplayMode() == valuedetail.DetailModeModal {
		detailOverlay := overlay.New(
			&m.detail,
			NewMainViewModel(&m),
			overlay.Center,
			overlay.Center,
			0,
			0,
		)
		return detailOverlay.View()
	}

	return m.renderMain()
}

func (m Model) renderMain() string {
	parts := []string{m.renderHeader(), m.renderContent()}
	if m.detail.IsVisible() && m.detail.DisplayMode() == valuedetail.DetailModePane {
		parts = append(parts, m.detail.View())
	}
	parts = append(parts, m.renderStatus())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// renderHeader renders the title and the segment being browsed
func (m Model) renderHeader() string {
	title := headerStyle.Render("Relocatable Heap Explorer")
	segment := pathStyle.Render(fmt.Sprintf("Segment: %s", m.store.Name()))

	line2 := fmt.Sprintf("Order: %s", m.order)
	if f := m.list.Filter(); f != "" {
		line2 += fmt.Sprintf("  Filter: %q", f)
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, title, "  ", segment),
		pathStyle.Render(line2),
	)
}

// renderContent renders the entry list beside the info panel
func (m Model) renderContent() string {
	listWidth := max(m.width-InfoPanelWidth, 20)
	listPane := paneStyle.Width(listWidth - 2).Render(m.list.View())
	return lipgloss.JoinHorizontal(lipgloss.Top, listPane, m.info.View())
}

func (m Model) renderStatus() string {
	switch m.inputMode {
	case SearchMode:
		return statusStyle.Width(m.width).Render(m.search.View())
	case ConfirmDeleteMode:
		prompt := searchPromptStyle.Render(fmt.Sprintf("Delete %q? ", m.pendingDelete)) + "(y/n)"
		return statusStyle.Width(m.width).Render(prompt)
	}

	if m.statusMessage != "" {
		return statusStyle.Width(m.width).Render(searchPromptStyle.Render(m.statusMessage))
	}

	var hints []string
	if m.detail.IsVisible() {
		hints = []string{"ESC: Close", "↑/↓: Scroll", "q: Quit"}
	} else {
		hints = []string{"↑/↓: Navigate", "Enter: Value", "/: Filter", "o: Order", "d: Delete", "?: Help", "q: Quit"}
		if m.list.Filter() != "" {
			hints = append([]string{"Esc: Clear filter"}, hints...)
		}
	}
	rendered := make([]string, len(hints))
	for i, h := range hints {
		rendered[i] = helpStyle.Render(h)
	}
	count := successStyle.Render(fmt.Sprintf("%d entries", len(m.list.GetItems())))
	return statusStyle.Width(m.width).Render(count + " │ " + strings.Join(rendered, " │ "))
}

// renderHelp renders the full-screen key reference
func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(helpTitleStyle.Render("Keyboard Shortcuts"))
	b.WriteString("\n\n")

	sections := []string{"Navigation", "Viewing", "Editing", "General"}
	for i, group := range m.keys.FullHelp() {
		b.WriteString(sectionTitleStyle.Render(sections[i]))
		b.WriteString("\n")
		for _, kb := range group {
			h := kb.Help()
			b.WriteString(helpKeyStyle.Width(14).Render(h.Key))
			b.WriteString("  ")
			b.WriteString(helpDescStyle.Render(h.Desc))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("Press ? or Esc to close"))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, b.String())
}
