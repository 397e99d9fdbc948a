// Package ui holds terminal rendering shared by the CLI and the TUI.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/CK6170/calunc-go/models"
)

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	HelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	ErrStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	OKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	WarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
)

func verdict(v models.Verdict) string {
	if v == models.Pass {
		return OKStyle.Render(string(v))
	}
	return ErrStyle.Render(string(v))
}

// FormatReport renders one block per row: the components, then U and the
// verdict, followed by the report warnings.
func FormatReport(r *models.Report) string {
	if r == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s report", r.Kind)) + "\n")
	for _, row := range r.Rows {
		label := row.Label
		if row.Channel != "" {
			label = row.Channel + " " + label
		}
		b.WriteString(fmt.Sprintf("\n%s  error %+.6g %s  %s\n", label, row.Error, unitOf(r, row), verdict(row.Verdict)))
		for _, c := range row.Budget.Components {
			line := fmt.Sprintf("  %-10s %12.6g %s", c.Name, c.Value, c.Unit)
			if c.Gap {
				line = HelpStyle.Render(line + "  (not modelled)")
			}
			b.WriteString(line + "\n")
		}
		b.WriteString(fmt.Sprintf("  %-10s %12.6g\n", "uc", row.Budget.Combined))
		b.WriteString(fmt.Sprintf("  %-10s %12.6g  (k=%g)\n", "U", row.Budget.Expanded, row.Budget.CoverageFactor))
		if row.Budget.EffectiveDoF != 0 {
			veff := "inf"
			if !row.Budget.EffectiveDoF.IsInfinite() {
				veff = fmt.Sprintf("%.1f", float64(row.Budget.EffectiveDoF))
			}
			b.WriteString(fmt.Sprintf("  %-10s %12s\n", "veff", veff))
		}
		b.WriteString(fmt.Sprintf("  %-10s %12.6g\n", "tolerance", row.Check.Tolerance))
	}
	if len(r.Warnings) > 0 {
		b.WriteString("\n")
		for _, w := range r.Warnings {
			b.WriteString(WarnStyle.Render("warning: "+w) + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func unitOf(r *models.Report, row models.Row) models.Unit {
	if r.Unit != "" {
		return r.Unit
	}
	if len(row.Budget.Components) > 0 {
		return row.Budget.Components[0].Unit
	}
	return ""
}
