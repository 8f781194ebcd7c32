package model

import (
	"errors"
	"strings"
	"time"
)

// Session is the unit of ownership for extracted elements.
type Session struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	Transcript string    `json:"transcript,omitempty"`
}

// NewSession is the createSession payload.
type NewSession struct {
	Title      string    `json:"title"`
	Transcript string    `json:"transcript"`
	Date       time.Time `json:"date"`
	Language   string    `json:"language,omitempty"`
}

// Audio is an audio payload headed for transcription intake.
type Audio struct {
	Filename    string
	ContentType string
	Data        []byte
}

// JobStatus is the lifecycle of a remote asynchronous job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
	JobTimedOut  JobStatus = "timed_out"
)

// Terminal reports whether no further transitions are expected.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobTimedOut
}

// ParseJobStatus maps the various spellings upstream services use. Unknown
// values are treated as pending so a poller simply checks again.
func ParseJobStatus(s string) JobStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "completed", "complete", "done", "succeeded", "success":
		return JobCompleted
	case "failed", "failure", "error", "errored", "cancelled", "canceled":
		return JobFailed
	case "running", "processing", "in_progress", "transcribing", "analyzing", "started":
		return JobRunning
	case "timed_out", "timeout":
		return JobTimedOut
	}
	return JobPending
}

// JobState is one observation of a job.
type JobState struct {
	Status   JobStatus `json:"status"`
	Progress int       `json:"progress"`
	Error    string    `json:"error,omitempty"`
}

// AnalysisOutcome is what the analysis trigger returns: either the raw
// elements directly or a job handle to poll.
type AnalysisOutcome struct {
	Elements *RawElements
	JobID    string
}

var (
	// ErrMissingTranscript is returned by the analysis capability when the
	// session has no transcript to analyze.
	ErrMissingTranscript = errors.New("session has no transcript")
	// ErrTranscriptRequired is returned by session creation without a transcript.
	ErrTranscriptRequired = errors.New("transcript is required")
	ErrNotFound           = errors.New("not found")
)
