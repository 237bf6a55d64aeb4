package summary

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"

	"github.com/medreport/viewer/internal/models"
)

// MsgMalformedLabs is the single full-width table row shown when the lab
// block cannot be turned into rows.
const MsgMalformedLabs = "Could not parse lab results."

// StatusMissing replaces an absent or empty lab status.
const StatusMissing = "N/A"

// labBlockPattern spans from the first '{' to the last '}' across newlines.
// Prose containing stray braces, or a response with several JSON objects,
// produces a span that does not parse; that case surfaces as LabsMalformed.
var labBlockPattern = regexp.MustCompile(`(?s)\{.*\}`)

// LabsOutcome tags the result of extracting lab rows from a doctor view.
type LabsOutcome string

const (
	// LabsAbsent: no doctor view or no response text. The panel is hidden.
	LabsAbsent LabsOutcome = "absent"
	// LabsNotFound: response text has no brace span. The table has no rows.
	LabsNotFound LabsOutcome = "not_found"
	// LabsMalformed: the brace span is not valid JSON.
	LabsMalformed LabsOutcome = "malformed"
	// LabsMissing: valid JSON without a "labs" array. Shown like LabsMalformed;
	// the separate tag only sharpens the logged cause.
	LabsMissing LabsOutcome = "missing_labs"
	// LabsFound: one row per labs entry.
	LabsFound LabsOutcome = "found"
)

// StatusClass is the display class of a lab status cell.
type StatusClass string

const (
	StatusAffirmative StatusClass = "affirmative"
	StatusWarning     StatusClass = "warning"
	StatusNeutral     StatusClass = "neutral"
)

// ClassifyStatus maps a displayed status to its class. Only the exact strings
// "Normal" and "Abnormal" are recognised.
func ClassifyStatus(status string) StatusClass {
	switch status {
	case "Normal":
		return StatusAffirmative
	case "Abnormal":
		return StatusWarning
	default:
		return StatusNeutral
	}
}

// LabRow is one row of the doctor table.
type LabRow struct {
	models.LabResult
	StatusClass StatusClass `json:"statusClass" msgpack:"statusClass"`
}

// DoctorSummary is the tagged result of DoctorLabs.
type DoctorSummary struct {
	Outcome LabsOutcome `json:"outcome" msgpack:"outcome"`
	Rows    []LabRow    `json:"rows,omitempty" msgpack:"rows,omitempty"`
	// Message is the full-width row text for LabsMalformed and LabsMissing.
	Message string `json:"message,omitempty" msgpack:"message,omitempty"`
	// Err is the underlying cause for LabsMalformed and LabsMissing, for logging only.
	Err error `json:"-" msgpack:"-"`
}

// Visible reports whether the doctor panel is rendered at all.
func (d DoctorSummary) Visible() bool {
	return d.Outcome != LabsAbsent
}

// ExtractLabBlock returns the greedy brace span of text.
func ExtractLabBlock(text string) (string, bool) {
	block := labBlockPattern.FindString(text)
	return block, block != ""
}

// DoctorLabs derives the lab table from a doctor view.
func DoctorLabs(view models.DoctorView) DoctorSummary {
	text, ok := view.Response()
	if !ok {
		return DoctorSummary{Outcome: LabsAbsent}
	}

	block, ok := ExtractLabBlock(text)
	if !ok {
		return DoctorSummary{Outcome: LabsNotFound}
	}

	var parsed any
	if err := json.Unmarshal([]byte(block), &parsed); err != nil {
		return DoctorSummary{
			Outcome: LabsMalformed,
			Message: MsgMalformedLabs,
			Err:     fmt.Errorf("parsing lab block: %w", err),
		}
	}

	obj, _ := parsed.(map[string]any)
	entries, ok := obj["labs"].([]any)
	if !ok {
		return DoctorSummary{
			Outcome: LabsMissing,
			Message: MsgMalformedLabs,
			Err:     errors.New("lab block has no labs array"),
		}
	}

	rows := make([]LabRow, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, labRow(entry))
	}
	return DoctorSummary{Outcome: LabsFound, Rows: rows}
}

func labRow(entry any) LabRow {
	fields, _ := entry.(map[string]any)

	status := StatusMissing
	if truthy(fields["status"]) {
		status = formatCell(fields["status"])
	}

	return LabRow{
		LabResult: models.LabResult{
			Test:   formatCell(fields["test"]),
			Value:  formatCell(fields["value"]),
			Unit:   formatCell(fields["unit"]),
			Status: status,
		},
		StatusClass: ClassifyStatus(status),
	}
}

// truthy follows the falsy set of the response producer: null, "", 0, false.
func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case string:
		return t != ""
	case float64:
		return t != 0
	case bool:
		return t
	default:
		return true
	}
}

func formatCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(b)
	}
}
