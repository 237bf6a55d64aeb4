package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/medreport/viewer/internal/models"
	"github.com/medreport/viewer/internal/summary"
)

const (
	title          = "🧪 Medical Report Summarizer"
	patientHeading = "👩‍⚕️ Patient View"
	doctorHeading  = "🩺 Doctor View"
)

var labHeaders = []string{"Test", "Value", "Unit", "Status"}

// Printer writes an UploadState as text.
type Printer struct {
	out    io.Writer
	styles Styles
}

// NewPrinter returns a Printer whose color profile follows out.
func NewPrinter(out io.Writer) *Printer {
	return &Printer{
		out:    out,
		styles: DefaultStyles(lipgloss.NewRenderer(out)),
	}
}

// Print writes the report for state.
func (p *Printer) Print(state models.UploadState) error {
	_, err := io.WriteString(p.out, p.Report(state))
	return err
}

// Report renders the error banner and both views.
func (p *Printer) Report(state models.UploadState) string {
	var sb strings.Builder

	sb.WriteString(p.styles.Title.Render(title))
	sb.WriteString("\n")

	if state.Error != "" {
		sb.WriteString(p.styles.Error.Render(state.Error))
		sb.WriteString("\n\n")
	}

	if lines := summary.PatientLines(state.PatientView); lines != nil {
		sb.WriteString(p.patient(lines))
		sb.WriteString("\n")
	}

	if doctor := summary.DoctorLabs(state.DoctorView); doctor.Visible() {
		sb.WriteString(p.doctor(doctor))
	}

	return sb.String()
}

func (p *Printer) patient(lines []summary.PatientLine) string {
	var sb strings.Builder
	sb.WriteString(p.styles.Heading.Render(patientHeading))
	sb.WriteString("\n")
	for _, line := range lines {
		style := p.styles.Normal
		if line.Abnormal() {
			style = p.styles.Abnormal
		}
		sb.WriteString(style.Render(line.Text))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (p *Printer) doctor(d summary.DoctorSummary) string {
	var sb strings.Builder
	sb.WriteString(p.styles.Heading.Render(doctorHeading))
	sb.WriteString("\n")

	widths := make([]int, len(labHeaders))
	for i, h := range labHeaders {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range d.Rows {
		for i, cell := range cells(row) {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}
	// Padding(0, 1) is counted by Width.
	for i := range widths {
		widths[i] += 2
	}

	total := len(widths) - 1
	for _, w := range widths {
		total += w
	}
	if w := lipgloss.Width(d.Message) + 2; w > total {
		widths[len(widths)-1] += w - total
		total = w
	}

	sep := p.styles.Sep.Render("|")
	for i, h := range labHeaders {
		sb.WriteString(p.styles.Header.Width(widths[i]).Render(h))
		if i < len(labHeaders)-1 {
			sb.WriteString(sep)
		}
	}
	sb.WriteString("\n")
	sb.WriteString(p.styles.Sep.Render(strings.Repeat("-", total)))
	sb.WriteString("\n")

	if d.Message != "" {
		sb.WriteString(p.styles.Message.Width(total).Align(lipgloss.Center).Render(d.Message))
		sb.WriteString("\n")
	}

	for _, row := range d.Rows {
		for i, cell := range cells(row) {
			style := p.styles.Cell
			if i == len(labHeaders)-1 {
				style = p.statusStyle(row.StatusClass)
			}
			sb.WriteString(style.Width(widths[i]).Render(cell))
			if i < len(labHeaders)-1 {
				sb.WriteString(sep)
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func (p *Printer) statusStyle(class summary.StatusClass) lipgloss.Style {
	switch class {
	case summary.StatusAffirmative:
		return p.styles.Affirmative
	case summary.StatusWarning:
		return p.styles.Warning
	default:
		return p.styles.Neutral
	}
}

func cells(row summary.LabRow) []string {
	return []string{row.Test, row.Value, row.Unit, row.Status}
}

// Fprint renders state to w with a fresh Printer.
func Fprint(w io.Writer, state models.UploadState) error {
	if err := NewPrinter(w).Print(state); err != nil {
		return fmt.Errorf("writing report: %w", err)
	}
	return nil
}
