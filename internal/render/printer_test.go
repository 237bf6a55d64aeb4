package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medreport/viewer/internal/models"
	"github.com/medreport/viewer/internal/summary"
)

func TestReport_ErrorOnly(t *testing.T) {
	out := NewPrinter(&bytes.Buffer{}).Report(models.UploadState{Error: "Failed to connect to backend."})

	assert.Contains(t, out, title)
	assert.Contains(t, out, "Failed to connect to backend.")
	assert.NotContains(t, out, patientHeading)
	assert.NotContains(t, out, doctorHeading)
}

func TestReport_PatientLines(t *testing.T) {
	out := NewPrinter(&bytes.Buffer{}).Report(models.UploadState{
		PatientView: "Cholesterol fine | Sugar high ⚠️",
	})

	assert.Contains(t, out, patientHeading)
	assert.Contains(t, out, "Cholesterol fine")
	assert.Contains(t, out, "Sugar high ⚠️")
	assert.Less(t, strings.Index(out, "Cholesterol fine"), strings.Index(out, "Sugar high"))
}

func TestReport_LabTable(t *testing.T) {
	out := NewPrinter(&bytes.Buffer{}).Report(models.UploadState{
		DoctorView: models.DoctorView{
			"response": `{"labs":[{"test":"Hemoglobin","value":13.5,"unit":"g/dL","status":"Normal"},{"test":"LDL","value":190,"unit":"mg/dL"}]}`,
		},
	})

	assert.Contains(t, out, doctorHeading)
	for _, h := range labHeaders {
		assert.Contains(t, out, h)
	}
	assert.Contains(t, out, "Hemoglobin")
	assert.Contains(t, out, "13.5")
	assert.Contains(t, out, "LDL")
	assert.Contains(t, out, summary.StatusMissing)
}

func TestReport_MissingLabsMessage(t *testing.T) {
	out := NewPrinter(&bytes.Buffer{}).Report(models.UploadState{
		DoctorView: models.DoctorView{"response": `{"notes":"none"}`},
	})

	assert.Contains(t, out, summary.MsgMalformedLabs)
}

func TestFprint(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Fprint(&buf, models.UploadState{PatientView: "ok"}))
	assert.Contains(t, buf.String(), "ok")
}
