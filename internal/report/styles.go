package report

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/scry-dev/scry/internal/schema"
)

// Styles defines the visual theme for terminal report output.
// Lipgloss automatically degrades to no-color when output is not a TTY.
type Styles struct {
	// Header is used for section headers (e.g. "=== FuncName ===").
	Header lipgloss.Style

	// SubHeader is used for secondary information lines.
	SubHeader lipgloss.Style

	// High through None color-code confidence tiers.
	High    lipgloss.Style
	Medium  lipgloss.Style
	Low     lipgloss.Style
	VeryLow lipgloss.Style
	None    lipgloss.Style

	// TableHeader styles the header row of tables.
	TableHeader lipgloss.Style

	// TableCell styles regular table cells.
	TableCell lipgloss.Style

	// SummaryLabel styles summary line labels.
	SummaryLabel lipgloss.Style

	// SummaryValue styles summary line values.
	SummaryValue lipgloss.Style

	// Killed styles killed-mutant indicators.
	Killed lipgloss.Style

	// Survived styles survived-mutant indicators.
	Survived lipgloss.Style

	// Border is used for table borders.
	Border lipgloss.Style

	// Muted is used for de-emphasized text.
	Muted lipgloss.Style
}

// DefaultStyles returns the default color scheme for terminal reports.
func DefaultStyles() Styles {
	return Styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		SubHeader: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),

		High:    lipgloss.NewStyle().Foreground(lipgloss.Color("40")),
		Medium:  lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		Low:     lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		VeryLow: lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		None:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),

		TableHeader: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63")),
		TableCell:   lipgloss.NewStyle().PaddingRight(1),

		SummaryLabel: lipgloss.NewStyle().Bold(true).Width(20),
		SummaryValue: lipgloss.NewStyle(),

		Killed:   lipgloss.NewStyle().Foreground(lipgloss.Color("40")).Bold(true),
		Survived: lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),

		Border: lipgloss.NewStyle().Foreground(lipgloss.Color("63")),

		Muted: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// ConfidenceStyle returns the appropriate style for a confidence tier.
func (s Styles) ConfidenceStyle(c schema.Confidence) lipgloss.Style {
	switch c {
	case schema.ConfidenceHigh:
		return s.High
	case schema.ConfidenceMedium:
		return s.Medium
	case schema.ConfidenceLow:
		return s.Low
	case schema.ConfidenceVeryLow:
		return s.VeryLow
	default:
		return s.None
	}
}
