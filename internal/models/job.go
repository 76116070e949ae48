package models

import "time"

type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusError      JobStatus = "error"
)

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusError
}

type Job struct {
	ID         string    `json:"id"`
	Status     JobStatus `json:"status"`
	Progress   int       `json:"progress"`
	Stage      string    `json:"stage"`
	Topic      string    `json:"topic"`
	Audio      []byte    `json:"-"`
	Error      string    `json:"error,omitempty"`
	FailedURLs []string  `json:"failed_urls,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// JobUpdate carries the fields to merge into a job. Nil fields are left untouched.
type JobUpdate struct {
	Status     *JobStatus
	Progress   *int
	Stage      *string
	Audio      []byte
	Error      *string
	FailedURLs []string
}

// JobStatusView is the client-facing shape returned by the status endpoint.
type JobStatusView struct {
	Status     JobStatus `json:"status"`
	Progress   int       `json:"progress"`
	Stage      string    `json:"stage"`
	Error      string    `json:"error,omitempty"`
	FailedURLs []string  `json:"failedUrls,omitempty"`
}

func (j Job) View() JobStatusView {
	return JobStatusView{
		Status:     j.Status,
		Progress:   j.Progress,
		Stage:      j.Stage,
		Error:      j.Error,
		FailedURLs: j.FailedURLs,
	}
}
