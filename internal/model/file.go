package model

import "time"

// File is a stored object's metadata row. The row and the storage object are
// intended to co-exist 1:1 but are not transactionally linked.
type File struct {
	ID         string    `json:"id"`
	CompanyID  string    `json:"company_id"`
	Filename   string    `json:"filename"`
	Path       string    `json:"path"`
	Mime       string    `json:"mime"`
	Size       int64     `json:"size"`
	UploadedBy string    `json:"uploaded_by,omitempty"`
	UploadedAt time.Time `json:"uploaded_at"`
}
