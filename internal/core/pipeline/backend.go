package pipeline

import (
	"context"

	"github.com/agenthands/insightflow/internal/core/model"
)

// Transcriber is the transcription intake of the upstream API.
type Transcriber interface {
	SubmitAudio(ctx context.Context, audio model.Audio) (string, error)
	TranscriptionStatus(ctx context.Context, jobID string) (model.JobState, error)
	TranscriptionResult(ctx context.Context, jobID string) (string, error)
}

// SessionCreator persists a new session and returns its id.
type SessionCreator interface {
	CreateSession(ctx context.Context, s model.NewSession) (string, error)
}

// Analyzer triggers analysis of a session. Implementations return
// model.ErrMissingTranscript (possibly wrapped) when the session has no
// transcript.
type Analyzer interface {
	Analyze(ctx context.Context, sessionID string) (model.AnalysisOutcome, error)
	AnalysisStatus(ctx context.Context, jobID string) (model.JobState, error)
}

// ElementReader loads the raw elements stored for a session.
type ElementReader interface {
	SessionElements(ctx context.Context, sessionID string) (model.RawElements, error)
}

// Backend is everything a pipeline run needs from the upstream API.
type Backend interface {
	Transcriber
	SessionCreator
	Analyzer
	ElementReader
}
