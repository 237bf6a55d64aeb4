// Package summary derives the two report views from session state.
// Everything here is a pure function of its input and is recomputed on
// every render.
package summary

import "strings"

// WarningGlyph marks an abnormal entry inside patient_view.
const WarningGlyph = "⚠️"

// RecordSeparator splits patient_view into entries.
const RecordSeparator = "|"

// LineClass is the display class of one patient summary line.
type LineClass string

const (
	LineNormal   LineClass = "normal"
	LineAbnormal LineClass = "abnormal"
)

// PatientLine is one rendered entry of the patient summary.
type PatientLine struct {
	Text  string    `json:"text" msgpack:"text"`
	Class LineClass `json:"class" msgpack:"class"`
}

// Abnormal reports whether the line carries the warning glyph.
func (l PatientLine) Abnormal() bool {
	return l.Class == LineAbnormal
}

// PatientLines splits view on RecordSeparator. Empty segments are kept so the
// line count always equals the segment count. A nil slice means nothing is
// rendered.
func PatientLines(view string) []PatientLine {
	if view == "" {
		return nil
	}

	parts := strings.Split(view, RecordSeparator)
	lines := make([]PatientLine, 0, len(parts))
	for _, part := range parts {
		class := LineNormal
		if strings.Contains(part, WarningGlyph) {
			class = LineAbnormal
		}
		lines = append(lines, PatientLine{
			Text:  strings.TrimSpace(part),
			Class: class,
		})
	}
	return lines
}
