package models

import "time"

// FileHandle represents the report file currently selected in a session.
// The bytes are held by the storage layer under ID.
type FileHandle struct {
	ID          string    `json:"id" msgpack:"id"`
	Name        string    `json:"name" msgpack:"name"`
	Size        int64     `json:"size" msgpack:"size"`
	ContentType string    `json:"contentType,omitempty" msgpack:"contentType,omitempty"`
	SelectedAt  time.Time `json:"selectedAt" msgpack:"selectedAt"`
}
