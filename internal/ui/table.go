package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/retools/internal/discovery"
	"github.com/muurk/retools/internal/retools"
)

// Column widths for the statistics table
const (
	minKeyWidth   = 20
	countWidth    = 10
	intervalWidth = 6
)

// RenderReport renders a statistics listing as a styled table. At most
// maxRows entries are shown (0 means all); the rest are summarized.
func RenderReport(r retools.Report, width, maxRows int) string {
	keyWidth := minKeyWidth
	for _, e := range r.Entries {
		if n := lipgloss.Width(e.Key); n > keyWidth {
			keyWidth = n
		}
	}
	if limit := width - countWidth - intervalWidth - 6; limit >= minKeyWidth && keyWidth > limit {
		keyWidth = limit
	}

	keyCol := lipgloss.NewStyle().Width(keyWidth).MaxWidth(keyWidth)
	countCol := lipgloss.NewStyle().Width(countWidth).Align(lipgloss.Right)
	intervalCol := lipgloss.NewStyle().Width(intervalWidth).Align(lipgloss.Right)

	var b strings.Builder
	b.WriteString(TableHeaderStyle.Render(
		keyCol.Render("key") + " " + countCol.Render("records") + " " + intervalCol.Render("ms") + " last"))
	b.WriteString("\n")

	shown := r.Entries
	if maxRows > 0 && len(shown) > maxRows {
		shown = shown[:maxRows]
	}
	for _, e := range shown {
		b.WriteString(KeyCellStyle.Render(keyCol.Render(e.Key)))
		b.WriteString(" ")
		b.WriteString(NumberCellStyle.Render(countCol.Render(fmt.Sprint(e.Count))))
		b.WriteString(" ")
		b.WriteString(NumberCellStyle.Render(intervalCol.Render(fmt.Sprint(e.PerOccurrenceMS))))
		b.WriteString(" ")
		b.WriteString(PayloadCellStyle.Render(e.LastPayload()))
		b.WriteString("\n")
	}
	if hidden := len(r.Entries) - len(shown); hidden > 0 {
		b.WriteString(SummaryStyle.Render(fmt.Sprintf("… %d more", hidden)))
		b.WriteString("\n")
	}

	summary := r.Summary()
	if r.QueueSize > 0 {
		summary += fmt.Sprintf(", queue %d/%d", r.Backlog, r.QueueSize)
	}
	if r.Filter != "" {
		summary += fmt.Sprintf(", filter %q", r.Filter)
	}
	if r.Dropped > 0 {
		b.WriteString(lipgloss.NewStyle().Foreground(WarningColor).Render(summary))
	} else {
		b.WriteString(SummaryStyle.Render(summary))
	}
	b.WriteString("\n")
	return b.String()
}

// WriteReport writes a styled listing sized to the terminal
func WriteReport(w io.Writer, r retools.Report) error {
	_, err := io.WriteString(w, RenderReport(r, GetTerminalWidth(), 0))
	return err
}

// RenderGateways renders discovered gateways, one per line
func RenderGateways(gateways []*discovery.Gateway) string {
	if len(gateways) == 0 {
		return SummaryStyle.Render("No CAN gateways found") + "\n"
	}
	var b strings.Builder
	for _, gw := range gateways {
		b.WriteString(KeyCellStyle.Render(gw.Instance))
		b.WriteString("  ")
		b.WriteString(NumberCellStyle.Render(gw.URL()))
		b.WriteString("  ")
		b.WriteString(PayloadCellStyle.Render("bus " + gw.Bus()))
		b.WriteString("\n")
	}
	return b.String()
}
