// Package render prints the report views to a terminal.
package render

import "github.com/charmbracelet/lipgloss"

var (
	Destructive = lipgloss.Color("#e53935")
	Success     = lipgloss.Color("#15803d")
	Muted       = lipgloss.Color("#6b7280")
	Heading     = lipgloss.Color("#2563eb")
)

// Styles holds the lipgloss styles used by Printer.
type Styles struct {
	Title    lipgloss.Style
	Heading  lipgloss.Style
	Error    lipgloss.Style
	Normal   lipgloss.Style
	Abnormal lipgloss.Style
	Header   lipgloss.Style
	Cell     lipgloss.Style
	Message  lipgloss.Style
	Sep      lipgloss.Style

	Affirmative lipgloss.Style
	Warning     lipgloss.Style
	Neutral     lipgloss.Style
}

// DefaultStyles builds the palette on r.
func DefaultStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Title:    r.NewStyle().Bold(true).MarginBottom(1),
		Heading:  r.NewStyle().Bold(true).Foreground(Heading),
		Error:    r.NewStyle().Foreground(Destructive).Bold(true),
		Normal:   r.NewStyle().Foreground(Success),
		Abnormal: r.NewStyle().Foreground(Destructive),
		Header:   r.NewStyle().Bold(true).Padding(0, 1),
		Cell:     r.NewStyle().Padding(0, 1),
		Message:  r.NewStyle().Foreground(Destructive).Padding(0, 1),
		Sep:      r.NewStyle().Foreground(Muted),

		Affirmative: r.NewStyle().Foreground(Success).Bold(true).Padding(0, 1),
		Warning:     r.NewStyle().Foreground(Destructive).Bold(true).Padding(0, 1),
		Neutral:     r.NewStyle().Foreground(Muted).Padding(0, 1),
	}
}
