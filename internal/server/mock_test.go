package server

import (
	"context"
	"errors"
	"sync"

	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/agenthands/insightflow/internal/core/persist"
)

// fakeService is an in-memory backend: text sessions analyze to Elements.
type fakeService struct {
	mu         sync.Mutex
	Elements   model.RawElements
	stored     map[string]model.RawElements
	saved      []persist.UpdateRequest
	Audio      []model.Audio
	AnalyzeErr error
	PutErr     error
	LoadErr    error
	next       int
}

func newFakeService(raw model.RawElements) *fakeService {
	return &fakeService{Elements: raw, stored: make(map[string]model.RawElements)}
}

func (f *fakeService) SubmitAudio(ctx context.Context, audio model.Audio) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Audio = append(f.Audio, audio)
	return "job-1", nil
}

func (f *fakeService) TranscriptionStatus(ctx context.Context, jobID string) (model.JobState, error) {
	return model.JobState{Status: model.JobCompleted, Progress: 100}, nil
}

func (f *fakeService) TranscriptionResult(ctx context.Context, jobID string) (string, error) {
	return "spoken words", nil
}

func (f *fakeService) CreateSession(ctx context.Context, s model.NewSession) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	id := "s" + string(rune('0'+f.next))
	f.stored[id] = model.RawElements{}
	return id, nil
}

func (f *fakeService) Analyze(ctx context.Context, sessionID string) (model.AnalysisOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.AnalyzeErr != nil {
		return model.AnalysisOutcome{}, f.AnalyzeErr
	}
	if _, ok := f.stored[sessionID]; !ok {
		return model.AnalysisOutcome{}, model.ErrNotFound
	}
	raw := f.Elements
	f.stored[sessionID] = raw
	return model.AnalysisOutcome{Elements: &raw}, nil
}

func (f *fakeService) AnalysisStatus(ctx context.Context, jobID string) (model.JobState, error) {
	return model.JobState{}, model.ErrNotFound
}

func (f *fakeService) SessionElements(ctx context.Context, sessionID string) (model.RawElements, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.LoadErr != nil {
		return model.RawElements{}, f.LoadErr
	}
	raw, ok := f.stored[sessionID]
	if !ok {
		return model.RawElements{}, model.ErrNotFound
	}
	return raw, nil
}

func (f *fakeService) PutSessionElements(ctx context.Context, sessionID string, req persist.UpdateRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PutErr != nil {
		return f.PutErr
	}
	if _, ok := f.stored[sessionID]; !ok {
		return errors.New("unknown session")
	}
	f.saved = append(f.saved, req)
	f.stored[sessionID] = req.Elements.Raw()
	return nil
}
