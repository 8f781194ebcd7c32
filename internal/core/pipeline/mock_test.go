package pipeline

import (
	"context"
	"sync"

	"github.com/agenthands/insightflow/internal/core/model"
)

// fakeBackend scripts every upstream operation and records calls.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string

	jobID     string
	submitErr error
	submitted []model.Audio

	statuses    []model.JobState
	statusCalls int

	transcript string
	resultErr  error

	sessionID string
	createErr error
	created   []model.NewSession

	outcome    model.AnalysisOutcome
	analyzeErr error
	// analyzeHook runs inside Analyze before it returns.
	analyzeHook func(ctx context.Context)

	analysisStatuses    []model.JobState
	analysisStatusCalls int

	elements    model.RawElements
	elementsErr error
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBackend) called(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func scriptedState(states []model.JobState, i int) model.JobState {
	if len(states) == 0 {
		return model.JobState{Status: model.JobCompleted, Progress: 100}
	}
	if i >= len(states) {
		return states[len(states)-1]
	}
	return states[i]
}

func (f *fakeBackend) SubmitAudio(ctx context.Context, audio model.Audio) (string, error) {
	f.record("SubmitAudio")
	f.mu.Lock()
	f.submitted = append(f.submitted, audio)
	f.mu.Unlock()
	return f.jobID, f.submitErr
}

func (f *fakeBackend) TranscriptionStatus(ctx context.Context, jobID string) (model.JobState, error) {
	f.record("TranscriptionStatus")
	f.mu.Lock()
	defer f.mu.Unlock()
	s := scriptedState(f.statuses, f.statusCalls)
	f.statusCalls++
	return s, nil
}

func (f *fakeBackend) TranscriptionResult(ctx context.Context, jobID string) (string, error) {
	f.record("TranscriptionResult")
	return f.transcript, f.resultErr
}

func (f *fakeBackend) CreateSession(ctx context.Context, s model.NewSession) (string, error) {
	f.record("CreateSession")
	f.mu.Lock()
	f.created = append(f.created, s)
	f.mu.Unlock()
	return f.sessionID, f.createErr
}

func (f *fakeBackend) Analyze(ctx context.Context, sessionID string) (model.AnalysisOutcome, error) {
	f.record("Analyze")
	if f.analyzeHook != nil {
		f.analyzeHook(ctx)
	}
	return f.outcome, f.analyzeErr
}

func (f *fakeBackend) AnalysisStatus(ctx context.Context, jobID string) (model.JobState, error) {
	f.record("AnalysisStatus")
	f.mu.Lock()
	defer f.mu.Unlock()
	s := scriptedState(f.analysisStatuses, f.analysisStatusCalls)
	f.analysisStatusCalls++
	return s, nil
}

func (f *fakeBackend) SessionElements(ctx context.Context, sessionID string) (model.RawElements, error) {
	f.record("SessionElements")
	return f.elements, f.elementsErr
}

func rawWith(kind model.Kind, records ...any) *model.RawElements {
	raw := &model.RawElements{}
	raw.Set(kind, records)
	return raw
}
