package pipeline

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed run.
type ErrorKind string

const (
	// KindValidation means required input was missing; fix the input, do not retry.
	KindValidation ErrorKind = "validation"
	// KindUpstream is a non-2xx or malformed response from a remote operation.
	KindUpstream ErrorKind = "upstream"
	// KindTimeout means a job did not finish within the polling budget.
	KindTimeout ErrorKind = "timeout"
	// KindMissingTranscript is the analysis trigger rejecting a session without a transcript.
	KindMissingTranscript ErrorKind = "missing_transcript"
	// KindCanceled means the caller abandoned the run.
	KindCanceled ErrorKind = "canceled"
)

// ErrAnalysisInProgress is returned when an analysis for the same session is
// already running.
var ErrAnalysisInProgress = errors.New("analysis already in progress for session")

// Error is the typed failure of a pipeline run.
type Error struct {
	Kind ErrorKind
	// State is the stage that failed.
	State   State
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s during %s: %s: %v", e.Kind, e.State, e.Message, e.Err)
	}
	return fmt.Sprintf("%s during %s: %s", e.Kind, e.State, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Retryable reports whether re-running the pipeline unchanged may succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindUpstream, KindTimeout:
		return true
	}
	return false
}

// UserMessage is the text shown to a person. It separates "try again"
// failures from "fix your input" ones.
func (e *Error) UserMessage() string {
	switch e.Kind {
	case KindValidation:
		if e.Message != "" {
			return e.Message
		}
		return "Please check your input and try again."
	case KindMissingTranscript:
		return "This session has no transcript to analyze. Add text or record audio, then run the analysis again."
	case KindTimeout:
		if e.Message != "" {
			return e.Message + " - please try again"
		}
		return "The job took too long - please try again"
	case KindCanceled:
		return "Analysis was canceled."
	}
	if e.Message != "" {
		return e.Message + ". Please try again."
	}
	return "Analysis failed. Please try again."
}

// KindOf returns the kind of a pipeline error, or "" for any other error.
func KindOf(err error) ErrorKind {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Kind
	}
	return ""
}
