package models

import "time"

// FileInfo describes a document staged for a job.
type FileInfo struct {
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	MIMEType   string    `json:"mime"`
	Exhibit    string    `json:"exhibit"`
	UploadedAt time.Time `json:"uploadedAt"`
}
