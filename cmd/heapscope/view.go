package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/YangchenYe323/kheap/heap/alloc"
)

// View renders the entire UI
func (m Model) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.width == 0 {
		return "Starting heapscope..."
	}

	// If help overlay is showing, render it
	if m.showHelp {
		return m.renderHelpOverlay()
	}

	header := m.renderHeader()
	gauge := m.renderGauge()
	content := lipgloss.JoinHorizontal(
		lipgloss.Top,
		m.renderWorkloadPanel(),
		m.renderInternalsPanel(),
	)
	status := m.renderStatus()

	return lipgloss.JoinVertical(
		lipgloss.Left,
		header,
		gauge,
		content,
		status,
	)
}

// renderHeader renders the title row with the run parameters
func (m Model) renderHeader() string {
	title := headerStyle.Render("Heap Scope")

	state := runningStyle.Render("RUNNING")
	if m.paused {
		state = pausedStyle.Render("PAUSED")
	}

	info := infoStyle.Render(fmt.Sprintf("  strategy: %s   heap: %s   seed: %d   ",
		m.strategy, formatBytes(int64(m.region.Size())), m.opts.Seed))

	return lipgloss.JoinHorizontal(lipgloss.Center, title, info, state) + "\n"
}

// renderGauge renders the heap occupancy bar
func (m Model) renderGauge() string {
	width := m.width - 24
	if width < 10 {
		width = 10
	}

	heapSize := m.region.Size()
	used := 0
	pct := 0
	if heapSize > 0 {
		used = int(m.liveBytes * uint64(width) / heapSize)
		pct = int(m.liveBytes * 100 / heapSize)
	}
	if used > width {
		used = width
	}

	style := gaugeLowStyle
	switch {
	case pct >= 85:
		style = gaugeHighStyle
	case pct >= 60:
		style = gaugeMidStyle
	}

	bar := style.Render(strings.Repeat("█", used)) +
		gaugeEmptyStyle.Render(strings.Repeat("░", width-used))
	label := fmt.Sprintf(" %s (%d%%)", formatBytes(int64(m.liveBytes)), pct)

	return " " + bar + infoStyle.Render(label) + "\n"
}

// renderWorkloadPanel renders the live-set counters on the left
func (m Model) renderWorkloadPanel() string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Workload"))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Live blocks   %s\n", formatNumber(int64(len(m.live))))
	fmt.Fprintf(&b, "Live bytes    %s\n", formatBytes(int64(m.liveBytes)))
	fmt.Fprintf(&b, "Peak blocks   %s\n", formatNumber(int64(m.peakLive)))
	fmt.Fprintf(&b, "Operations    %s\n", formatNumber(int64(m.totalOps)))
	fmt.Fprintf(&b, "Exhaustions   %s\n", formatNumber(int64(m.exhaustions)))
	fmt.Fprintf(&b, "Batch         %d ops/tick\n", m.batchOps)

	return paneStyle.Width(leftPanelWidth).Render(b.String())
}

// renderInternalsPanel renders the strategy internals on the right
func (m Model) renderInternalsPanel() string {
	title := panelTitleStyle.Render(m.internalsTitle())
	body := lipgloss.JoinVertical(lipgloss.Left, title, "", m.internals.View())
	return paneStyle.Render(body)
}

func (m Model) internalsTitle() string {
	switch m.allocator.(type) {
	case *alloc.FreeList:
		return "Free regions"
	case *alloc.FixedSize:
		return "Class pools"
	case *alloc.Bump:
		return "Cursor"
	default:
		return "Internals"
	}
}

// internalsContent builds the scrollable dump of the allocator's internals.
func (m Model) internalsContent() string {
	var b strings.Builder
	switch a := m.allocator.(type) {
	case *alloc.FreeList:
		spans := a.FreeSpans()
		fmt.Fprintf(&b, "%-5s %-18s %10s\n", "#", "address", "size")
		for i, sp := range spans {
			fmt.Fprintf(&b, "%-5d %-18s %10s\n", i, sp.Addr, formatBytes(int64(sp.Size)))
		}
		fmt.Fprintf(&b, "\n%s free in %d regions\n",
			formatBytes(int64(a.FreeBytes())), len(spans))

	case *alloc.FixedSize:
		classes := a.Classes()
		depths := a.PoolDepths()
		fmt.Fprintf(&b, "%-10s %8s  %s\n", "class", "pooled", "")
		for i, size := range classes {
			depth := depths[i]
			bar := strings.Repeat("■", int(min(depth, 32)))
			fmt.Fprintf(&b, "%-10s %8s  %s\n",
				formatBytes(int64(size)), formatNumber(int64(depth)), bar)
		}
		if fb := a.Fallback(); fb != nil {
			fmt.Fprintf(&b, "\nfallback: %s free in %d regions\n",
				formatBytes(int64(fb.FreeBytes())), len(fb.FreeSpans()))
		}

	case *alloc.Bump:
		fmt.Fprintf(&b, "cursor        %s\n", a.Cursor())
		fmt.Fprintf(&b, "remaining     %s\n", formatBytes(int64(a.Remaining())))
		fmt.Fprintf(&b, "outstanding   %s\n", formatNumber(int64(a.Outstanding())))
		fmt.Fprintf(&b, "resets        %s\n", formatNumber(int64(a.Stats().CursorResets)))
		b.WriteString("\nThe cursor only moves back when every block is freed.\n")

	default:
		b.WriteString("no internals for this strategy\n")
	}
	return b.String()
}

// renderStatus renders the bottom status bar
func (m Model) renderStatus() string {
	var hints []string
	for _, binding := range m.keys.ShortHelp() {
		hints = append(hints, fmt.Sprintf("%s %s", binding.Help().Key, binding.Help().Desc))
	}
	left := helpStyle.Render(strings.Join(hints, " · "))

	middle := ""
	if m.statusMessage != "" {
		middle = "  " + m.statusMessage
	}

	stats := "  " + m.stats().String()
	line := left + middle + stats
	return statusStyle.Width(m.width).Render(truncate(line, m.width-2))
}

// renderHelpOverlay renders the fullscreen help
func (m Model) renderHelpOverlay() string {
	title := helpTitleStyle.Render("Keyboard Shortcuts")

	var b strings.Builder
	for _, row := range m.keys.FullHelp() {
		for _, binding := range row {
			b.WriteString(helpKeyStyle.Render(binding.Help().Key))
			b.WriteString(helpDescStyle.Render(binding.Help().Desc))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("Press ? or esc to close"))

	box := modalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, b.String()))
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

func formatNumber(n int64) string {
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}

	// Add commas
	var result strings.Builder
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteRune(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}
