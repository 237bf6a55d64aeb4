package session

import "github.com/medreport/viewer/internal/models"

// User-facing banner messages.
const (
	MsgNoFile            = "Please select a file first."
	MsgBackendFailure    = "Failed to connect to backend."
	MsgServerErrorPrefix = "Server error: "
)

// ActionKind identifies a state transition.
type ActionKind string

const (
	ActionFileSelected    ActionKind = "file_selected"
	ActionSubmitRejected  ActionKind = "submit_rejected"
	ActionSubmitSucceeded ActionKind = "submit_succeeded"
	ActionSubmitFailed    ActionKind = "submit_failed"
)

// Action is one input to Reduce. Generation is only meaningful for submit
// outcomes; zero means the outcome is not tied to a submit generation.
type Action struct {
	Kind       ActionKind
	File       *models.FileHandle
	Response   *models.UploadResponse
	Message    string
	Generation uint64
}

// FileSelected replaces the current selection.
func FileSelected(file *models.FileHandle) Action {
	return Action{Kind: ActionFileSelected, File: file}
}

// SubmitRejected records a submit that failed validation before any I/O.
func SubmitRejected(message string) Action {
	return Action{Kind: ActionSubmitRejected, Message: message}
}

// SubmitSucceeded stores a backend response.
func SubmitSucceeded(gen uint64, resp *models.UploadResponse) Action {
	return Action{Kind: ActionSubmitSucceeded, Response: resp, Generation: gen}
}

// SubmitFailed records a server or transport failure.
func SubmitFailed(gen uint64, message string) Action {
	return Action{Kind: ActionSubmitFailed, Message: message, Generation: gen}
}

// Reduce returns the state after applying a. It never mutates s.
//
// Failures only touch Error: previously rendered views stay as they were.
// Selecting a file keeps prior results and the current banner.
func Reduce(s models.UploadState, a Action) models.UploadState {
	switch a.Kind {
	case ActionFileSelected:
		s.File = a.File
	case ActionSubmitRejected, ActionSubmitFailed:
		s.Error = a.Message
	case ActionSubmitSucceeded:
		if a.Response == nil {
			return s
		}
		s.PatientView = a.Response.PatientSummary()
		s.DoctorView = a.Response.DoctorSummary()
		s.Error = ""
	}
	return s
}
