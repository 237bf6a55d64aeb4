package models

// UploadState is the UI state of one browser session.
type UploadState struct {
	File        *FileHandle `json:"file" msgpack:"file"`
	PatientView string      `json:"patientView" msgpack:"patientView"`
	DoctorView  DoctorView  `json:"doctorView" msgpack:"doctorView"`
	Error       string      `json:"error" msgpack:"error"`
}

// HasFile reports whether a file is selected.
func (s UploadState) HasFile() bool {
	return s.File != nil
}
