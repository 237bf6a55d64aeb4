package session

import (
	"testing"

	"github.com/medreport/viewer/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestReduce(t *testing.T) {
	file := &models.FileHandle{ID: "f1", Name: "labs.pdf"}
	other := &models.FileHandle{ID: "f2", Name: "labs-v2.pdf"}
	withResults := models.UploadState{
		File:        file,
		PatientView: "Glucose: 90",
		DoctorView:  models.DoctorView{"response": "{}"},
	}

	tests := []struct {
		name   string
		state  models.UploadState
		action Action
		want   models.UploadState
	}{
		{
			name:   "select file on empty state",
			state:  models.UploadState{},
			action: FileSelected(file),
			want:   models.UploadState{File: file},
		},
		{
			name:   "reselect keeps prior results and banner",
			state:  models.UploadState{File: file, PatientView: "x", Error: "Server error: boom"},
			action: FileSelected(other),
			want:   models.UploadState{File: other, PatientView: "x", Error: "Server error: boom"},
		},
		{
			name:   "validation error",
			state:  models.UploadState{},
			action: SubmitRejected(MsgNoFile),
			want:   models.UploadState{Error: MsgNoFile},
		},
		{
			name:   "server error leaves views untouched",
			state:  withResults,
			action: SubmitFailed(1, MsgServerErrorPrefix+"bad input"),
			want: models.UploadState{
				File:        file,
				PatientView: "Glucose: 90",
				DoctorView:  models.DoctorView{"response": "{}"},
				Error:       "Server error: bad input",
			},
		},
		{
			name:  "success stores views and clears error",
			state: models.UploadState{File: file, Error: MsgBackendFailure},
			action: SubmitSucceeded(1, &models.UploadResponse{
				PatientView: "Cholesterol: 250 ⚠️|Glucose: 90",
				DoctorView:  map[string]any{"response": "Results: {}"},
			}),
			want: models.UploadState{
				File:        file,
				PatientView: "Cholesterol: 250 ⚠️|Glucose: 90",
				DoctorView:  models.DoctorView{"response": "Results: {}"},
			},
		},
		{
			name:   "success with missing fields uses fallbacks",
			state:  withResults,
			action: SubmitSucceeded(1, &models.UploadResponse{}),
			want: models.UploadState{
				File:        file,
				PatientView: models.NoPatientSummary,
				DoctorView:  models.DoctorView{},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reduce(tt.state, tt.action))
		})
	}
}

func TestReduce_DoesNotMutateInput(t *testing.T) {
	state := models.UploadState{PatientView: "before"}
	_ = Reduce(state, SubmitSucceeded(1, &models.UploadResponse{PatientView: "after"}))
	assert.Equal(t, "before", state.PatientView)
}
