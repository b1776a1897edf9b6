package model

// JobStatus is the lifecycle state of a long-running operation.
type JobStatus string

const (
	JobProcessing JobStatus = "processing"
	JobComplete   JobStatus = "complete"
	JobError      JobStatus = "error"
)

// IsTerminal reports whether no further transition is expected.
func (s JobStatus) IsTerminal() bool {
	return s == JobComplete || s == JobError
}

// Job is the pollable record of a long-running operation.
type Job struct {
	ID       string    `json:"id"`
	Status   JobStatus `json:"status"`
	OutputID string    `json:"outputId,omitempty"`
	Error    string    `json:"error,omitempty"`
}
