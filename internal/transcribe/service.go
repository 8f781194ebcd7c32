// Package transcribe runs transcription jobs in the background and tracks
// their status in a Store.
package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agenthands/insightflow/internal/core/model"
)

var ErrNotReady = errors.New("transcription not completed")

type Service struct {
	stt      STT
	store    Store
	language string
	logger   *slog.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewService(stt STT, store Store, language string, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Service{
		stt:      stt,
		store:    store,
		language: language,
		logger:   logger.With("component", "transcribe"),
		now:      func() time.Time { return time.Now().UTC() },
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Submit records a pending job and starts transcribing in the background.
// The job outlives ctx; only Close stops it.
func (s *Service) Submit(ctx context.Context, audio model.Audio) (string, error) {
	if len(audio.Data) == 0 {
		return "", errors.New("audio payload is empty")
	}
	now := s.now()
	job := Job{
		ID:        uuid.NewString(),
		Status:    model.JobPending,
		Filename:  audio.Filename,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(ctx, job); err != nil {
		return "", fmt.Errorf("record job: %w", err)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(job, audio)
	}()
	s.logger.Info("transcription submitted", "job_id", job.ID, "bytes", len(audio.Data))
	return job.ID, nil
}

func (s *Service) run(job Job, audio model.Audio) {
	job.Status, job.Progress = model.JobRunning, 10
	s.save(job)

	text, err := s.stt.Transcribe(s.ctx, audio, s.language)
	switch {
	case err != nil:
		job.Status, job.Error = model.JobFailed, err.Error()
		s.logger.Warn("transcription failed", "job_id", job.ID, "error", err)
	case text == "":
		job.Status, job.Error = model.JobFailed, "no speech detected"
	default:
		job.Status, job.Progress, job.Transcript = model.JobCompleted, 100, text
		s.logger.Info("transcription completed", "job_id", job.ID, "chars", len(text))
	}
	s.save(job)
}

func (s *Service) save(job Job) {
	job.UpdatedAt = s.now()
	// Detached from the submitting request.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Put(ctx, job); err != nil {
		s.logger.Error("failed to record job state", "job_id", job.ID, "status", job.Status, "error", err)
	}
}

func (s *Service) Status(ctx context.Context, id string) (model.JobState, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return model.JobState{}, err
	}
	return job.State(), nil
}

// Result returns the transcript of a completed job.
func (s *Service) Result(ctx context.Context, id string) (string, error) {
	job, err := s.store.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if job.Status != model.JobCompleted {
		return "", fmt.Errorf("job %s is %s: %w", id, job.Status, ErrNotReady)
	}
	return job.Transcript, nil
}

// Wait blocks until every submitted job has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// Close aborts running jobs and waits for them to record their state.
func (s *Service) Close() {
	s.cancel()
	s.wg.Wait()
}
