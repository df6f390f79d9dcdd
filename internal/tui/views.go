package tui

import (
	"fmt"
	"strings"

	"github.com/Veraticus/spice-sms/internal/cli"
	"github.com/Veraticus/spice-sms/internal/model"
	"github.com/charmbracelet/lipgloss"
)

var (
	cursorStyle   = lipgloss.NewStyle().Foreground(cli.PrimaryColor).Bold(true)
	selectedStyle = lipgloss.NewStyle().Bold(true)
	detailStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cli.SubtleColor).
			Padding(0, 1)
)

// View renders the review screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.loaded {
		return cli.SubtleStyle.Render("Loading suggestions...") + "\n"
	}

	var b strings.Builder
	b.WriteString(cli.FormatTitle(fmt.Sprintf("Review recurring patterns (%d pending)", len(m.pending))))
	b.WriteString("\n\n")

	for i, s := range m.pending {
		b.WriteString(m.renderRow(i, s))
		b.WriteString("\n")
	}

	if m.cursor < len(m.pending) {
		b.WriteString("\n")
		b.WriteString(detailStyle.Render(renderDetail(m.pending[m.cursor])))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	switch {
	case m.busy:
		b.WriteString(cli.SubtleStyle.Render("Saving..."))
	case m.lastError != nil:
		b.WriteString(cli.FormatError(m.lastError.Error()))
	case m.status != "":
		b.WriteString(cli.FormatSuccess(m.status))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keymap))

	return b.String()
}

func (m Model) renderRow(i int, s model.Suggestion) string {
	row := fmt.Sprintf("%-24s %-8s %12s  %s",
		truncate(s.DisplayName, 24),
		s.Frequency,
		cli.FormatAmount(s.AverageAmount),
		cli.FormatConfidence(s.Confidence))

	if i == m.cursor {
		return cursorStyle.Render("› ") + selectedStyle.Render(row)
	}
	return "  " + row
}

func renderDetail(s model.Suggestion) string {
	lines := []string{
		selectedStyle.Render(s.DisplayName),
		fmt.Sprintf("Merchant:    %s", s.MerchantPattern),
		fmt.Sprintf("Frequency:   %s, usually on day %d", s.Frequency, s.DayOfPeriod),
		fmt.Sprintf("Amount:      %s on average over %d payments", cli.FormatAmount(s.AverageAmount), s.Occurrences),
		fmt.Sprintf("Next due:    %s", s.NextDate.Format("2006-01-02")),
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
