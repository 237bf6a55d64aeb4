// Package models contains domain types for the medical report viewer.
package models

// NoPatientSummary replaces a missing or empty patient_view in a successful response.
const NoPatientSummary = "No patient summary found"

// UploadResponse is the JSON body the summarization backend returns from POST /upload.
// Both fields are decoded loosely; PatientSummary and DoctorSummary apply the
// fallbacks used when storing them in the session.
type UploadResponse struct {
	PatientView any `json:"patient_view"`
	DoctorView  any `json:"doctor_view"`
}

// PatientSummary returns patient_view when it is a non-empty string, otherwise
// NoPatientSummary.
func (r *UploadResponse) PatientSummary() string {
	if s, ok := r.PatientView.(string); ok && s != "" {
		return s
	}
	return NoPatientSummary
}

// DoctorSummary returns doctor_view when it is a JSON object, otherwise an
// empty (non-nil) DoctorView.
func (r *UploadResponse) DoctorSummary() DoctorView {
	if m, ok := r.DoctorView.(map[string]any); ok {
		return DoctorView(m)
	}
	return DoctorView{}
}

// DoctorView is the doctor-facing part of the backend response. Only the
// "response" field is interpreted; the rest is carried through untouched.
type DoctorView map[string]any

// Response returns the free-text response field. ok is false when the field
// is absent, not a string, or empty.
func (d DoctorView) Response() (string, bool) {
	if d == nil {
		return "", false
	}
	s, ok := d["response"].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// LabResult is one lab entry of the doctor view, with every column already
// formatted for display.
type LabResult struct {
	Test   string `json:"test" msgpack:"test"`
	Value  string `json:"value" msgpack:"value"`
	Unit   string `json:"unit" msgpack:"unit"`
	Status string `json:"status" msgpack:"status"`
}
