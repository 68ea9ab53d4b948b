package displays

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// HeapInfo is the header state shown in the info panel.
type HeapInfo struct {
	Name         string
	Shared       bool
	Size         int
	Capacity     int
	Used         int
	Free         int
	Utilization  float64
	Entries      int
	PrimarySeq   uint32
	SecondarySeq uint32
	Consistent   bool
	Locked       bool
}

// HeapInfoDisplay displays pool header information
type HeapInfoDisplay struct {
	Info   HeapInfo
	width  int
	height int
}

// NewHeapInfoDisplay creates a new heap info display
func NewHeapInfoDisplay(info HeapInfo) *HeapInfoDisplay {
	return &HeapInfoDisplay{
		Info: info,
	}
}

// SetSize sets the display dimensions
func (h *HeapInfoDisplay) SetSize(width, height int) {
	h.width = width
	h.height = height
}

// View renders the heap info panel
func (h *HeapInfoDisplay) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7D56F4")).
		Bold(true)

	labelStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7D56F4")).
		Width(12)

	valueStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FAFAFA"))

	warnStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFA500")).
		Bold(true)

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#383838")).
		Padding(0, 1)

	kind := "private"
	if h.Info.Shared {
		kind = "shared"
	}

	row := func(label, value string) string {
		return labelStyle.Render(label) + " " + valueStyle.Render(value) + "\n"
	}

	content := titleStyle.Render("HEAP INFO") + "\n\n"
	content += row("Memory:", kind)
	content += row("Size:", humanize.IBytes(uint64(h.Info.Size)))
	content += row("Capacity:", humanize.IBytes(uint64(h.Info.Capacity)))
	content += row("Used:", fmt.Sprintf("%s (%.1f%%)",
		humanize.IBytes(uint64(h.Info.Used)), h.Info.Utilization*100))
	content += row("Free:", humanize.IBytes(uint64(h.Info.Free)))
	content += row("Entries:", humanize.Comma(int64(h.Info.Entries)))
	content += row("Seq:", fmt.Sprintf("%d/%d", h.Info.PrimarySeq, h.Info.SecondarySeq))

	if !h.Info.Consistent {
		content += warnStyle.Render("interrupted transaction") + "\n"
	}
	if h.Info.Locked {
		content += warnStyle.Render("locked by a writer") + "\n"
	}

	// lipgloss Width/Height are the total size including border and padding
	return borderStyle.
		Width(h.width).
		Height(h.height).
		Render(content)
}
