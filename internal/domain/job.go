package domain

import "time"

// JobState is the lifecycle of an asynchronous generation request.
type JobState string

const (
	JobQueued  JobState = "queued"
	JobRunning JobState = "running"
	JobDone    JobState = "done"
	JobFailed  JobState = "failed"
)

// Job is one queued asynchronous generation request.
type Job struct {
	ID      string            `json:"id"`
	Request EventImageRequest `json:"request"`
	// RawID is the broker-specific delivery id used for acknowledgement.
	RawID string `json:"-"`
}

// JobStatus is the externally visible state of a job.
type JobStatus struct {
	ID        string    `json:"jobId"`
	State     JobState  `json:"state"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	ImageKey  string    `json:"imageKey,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}
