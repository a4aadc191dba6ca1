package models

import "time"

// JobMode selects which pipeline a committed batch runs through.
type JobMode string

const (
	ModeSummaries JobMode = "summaries"
	ModeSummary   JobMode = "summary"
	ModeConvert   JobMode = "convert"
)

// ParseJobMode validates a mode name. An empty name means ModeSummaries.
func ParseJobMode(s string) (JobMode, bool) {
	switch JobMode(s) {
	case "", ModeSummaries:
		return ModeSummaries, true
	case ModeSummary, ModeConvert:
		return JobMode(s), true
	}
	return "", false
}

// SingleDocument reports whether the mode requires exactly one document.
func (m JobMode) SingleDocument() bool {
	return m == ModeSummary || m == ModeConvert
}

// JobStatus represents the lifecycle state of a job.
type JobStatus string

const (
	JobStatusPending  JobStatus = "pending"
	JobStatusRunning  JobStatus = "running"
	JobStatusComplete JobStatus = "complete"
	JobStatusError    JobStatus = "error"
)

// JobInfo is the externally visible state of a job.
type JobInfo struct {
	ID          string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	Mode        JobMode    `json:"mode,omitempty"`
	Events      int        `json:"events"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}
