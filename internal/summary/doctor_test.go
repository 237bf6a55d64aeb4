package summary

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/medreport/viewer/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(test, value, unit, status string, class StatusClass) LabRow {
	return LabRow{
		LabResult:   models.LabResult{Test: test, Value: value, Unit: unit, Status: status},
		StatusClass: class,
	}
}

func TestDoctorLabs(t *testing.T) {
	tests := []struct {
		name string
		view models.DoctorView
		want DoctorSummary
	}{
		{
			name: "nil view",
			view: nil,
			want: DoctorSummary{Outcome: LabsAbsent},
		},
		{
			name: "empty object",
			view: models.DoctorView{},
			want: DoctorSummary{Outcome: LabsAbsent},
		},
		{
			name: "empty response",
			view: models.DoctorView{"response": ""},
			want: DoctorSummary{Outcome: LabsAbsent},
		},
		{
			name: "non-string response",
			view: models.DoctorView{"response": 42.0},
			want: DoctorSummary{Outcome: LabsAbsent},
		},
		{
			name: "no braces",
			view: models.DoctorView{"response": "The patient looks fine."},
			want: DoctorSummary{Outcome: LabsNotFound},
		},
		{
			name: "single lab",
			view: models.DoctorView{"response": `Results: {"labs":[{"test":"Cholesterol","value":250,"unit":"mg/dL","status":"Abnormal"}]}`},
			want: DoctorSummary{
				Outcome: LabsFound,
				Rows:    []LabRow{row("Cholesterol", "250", "mg/dL", "Abnormal", StatusWarning)},
			},
		},
		{
			name: "fenced multiline block",
			view: models.DoctorView{"response": "```json\n{\n  \"labs\": [\n    {\"test\": \"Glucose\", \"value\": 5.5, \"unit\": \"mmol/L\", \"status\": \"Normal\"},\n    {\"test\": \"Hemoglobin\", \"value\": \"13\", \"unit\": \"g/dL\"}\n  ]\n}\n```"},
			want: DoctorSummary{
				Outcome: LabsFound,
				Rows: []LabRow{
					row("Glucose", "5.5", "mmol/L", "Normal", StatusAffirmative),
					row("Hemoglobin", "13", "g/dL", "N/A", StatusNeutral),
				},
			},
		},
		{
			name: "empty and unknown statuses",
			view: models.DoctorView{"response": `{"labs":[{"test":"A","status":""},{"test":"B","status":"borderline"},{"test":"C","status":"normal"}]}`},
			want: DoctorSummary{
				Outcome: LabsFound,
				Rows: []LabRow{
					row("A", "", "", "N/A", StatusNeutral),
					row("B", "", "", "borderline", StatusNeutral),
					row("C", "", "", "normal", StatusNeutral),
				},
			},
		},
		{
			name: "empty labs array",
			view: models.DoctorView{"response": `{"labs":[]}`},
			want: DoctorSummary{Outcome: LabsFound, Rows: []LabRow{}},
		},
		{
			name: "labs missing",
			view: models.DoctorView{"response": `{"patient":"Jane Doe"}`},
			want: DoctorSummary{Outcome: LabsMissing, Message: MsgMalformedLabs},
		},
		{
			name: "labs not an array",
			view: models.DoctorView{"response": `{"labs":{"test":"Glucose"}}`},
			want: DoctorSummary{Outcome: LabsMissing, Message: MsgMalformedLabs},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DoctorLabs(tt.view)
			if diff := cmp.Diff(tt.want, got, cmpopts.IgnoreFields(DoctorSummary{}, "Err")); diff != "" {
				t.Errorf("DoctorLabs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDoctorLabs_Malformed(t *testing.T) {
	responses := []string{
		`Results: {"labs": [ {"test": "Glucose", }`,
		// Two objects: the greedy span covers both and the prose between them.
		`First {"labs":[]} and then {"labs":[]}`,
		`Note {see attached} and {"labs":[]}`,
	}

	for _, response := range responses {
		got := DoctorLabs(models.DoctorView{"response": response})
		assert.Equal(t, LabsMalformed, got.Outcome, response)
		assert.Equal(t, MsgMalformedLabs, got.Message)
		assert.Empty(t, got.Rows)
		assert.Error(t, got.Err)
		assert.True(t, got.Visible())
	}
}

func TestDoctorLabs_MissingLabsShownAsUnparseable(t *testing.T) {
	got := DoctorLabs(models.DoctorView{"response": `Summary: {"notes":"fasting"}`})

	assert.Equal(t, LabsMissing, got.Outcome)
	assert.Equal(t, "Could not parse lab results.", got.Message)
	assert.Empty(t, got.Rows)
	assert.Error(t, got.Err)
	assert.True(t, got.Visible())
}

func TestExtractLabBlock_Greedy(t *testing.T) {
	block, ok := ExtractLabBlock("pre {a} mid\n{b} post")
	require.True(t, ok)
	assert.Equal(t, "{a} mid\n{b}", block)

	_, ok = ExtractLabBlock("} reversed {")
	assert.False(t, ok)
}

func TestDoctorLabs_RowCountMatchesLabs(t *testing.T) {
	view := models.DoctorView{"response": `{"labs":[{"test":"a"},{"test":"b","status":"Normal"},{"test":"c"}, "junk", null]}`}

	got := DoctorLabs(view)

	require.Equal(t, LabsFound, got.Outcome)
	require.Len(t, got.Rows, 5)
	assert.Equal(t, "N/A", got.Rows[0].Status)
	assert.Equal(t, "Normal", got.Rows[1].Status)
	assert.Equal(t, row("", "", "", "N/A", StatusNeutral), got.Rows[3])
	assert.Equal(t, row("", "", "", "N/A", StatusNeutral), got.Rows[4])
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, StatusAffirmative, ClassifyStatus("Normal"))
	assert.Equal(t, StatusWarning, ClassifyStatus("Abnormal"))
	assert.Equal(t, StatusNeutral, ClassifyStatus("N/A"))
	assert.Equal(t, StatusNeutral, ClassifyStatus("ABNORMAL"))
}

func TestFormatCell(t *testing.T) {
	assert.Equal(t, "", formatCell(nil))
	assert.Equal(t, "250", formatCell(250.0))
	assert.Equal(t, "0.75", formatCell(0.75))
	assert.Equal(t, "true", formatCell(true))
	assert.Equal(t, `[1,2]`, formatCell([]any{1.0, 2.0}))
}
