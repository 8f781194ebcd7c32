// Package persist saves an editing context's working copy upstream.
package persist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/agenthands/insightflow/internal/core/editing"
)

var (
	ErrSaveInProgress = errors.New("save already in progress for session")
	ErrNoChanges      = errors.New("no changes to save")
	// ErrNotLoaded refuses to overwrite upstream elements from a context
	// opened empty after a failed load.
	ErrNotLoaded = errors.New("session elements were never loaded")
)

// Writer is the upstream "replace elements" operation.
type Writer interface {
	PutSessionElements(ctx context.Context, sessionID string, req UpdateRequest) error
}

type Options struct {
	// Force saves even when nothing changed or the context was opened
	// empty after a failed load.
	Force bool
}

// Adapter issues saves, at most one in flight per session.
type Adapter struct {
	writer Writer
	logger *slog.Logger
	newID  func() string

	mu       sync.Mutex
	inflight map[string]*semaphore.Weighted
}

func NewAdapter(w Writer, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		writer:   w,
		logger:   logger.With("component", "persist"),
		newID:    editing.TempID,
		inflight: make(map[string]*semaphore.Weighted),
	}
}

// Save sends the working copy of ec. On success the snapshot becomes the
// copy that was sent and edit markers are cleared; on failure ec is left
// untouched.
func (a *Adapter) Save(ctx context.Context, ec *editing.Context, opts Options) (UpdateRequest, error) {
	release, ok := a.acquire(ec.SessionID)
	if !ok {
		return UpdateRequest{}, ErrSaveInProgress
	}
	defer release()

	if loadErr := ec.LoadErr(); loadErr != nil && !opts.Force {
		return UpdateRequest{}, fmt.Errorf("%w for session %s: %w", ErrNotLoaded, ec.SessionID, loadErr)
	}
	if !opts.Force && !ec.HasChanges() {
		return UpdateRequest{}, ErrNoChanges
	}

	working := ec.Working()
	req := Encode(working, a.newID)
	if err := a.writer.PutSessionElements(ctx, ec.SessionID, req); err != nil {
		a.logger.Warn("save failed", "session_id", ec.SessionID, "error", err)
		return UpdateRequest{}, fmt.Errorf("save elements for session %s: %w", ec.SessionID, err)
	}

	ec.Commit(working)
	a.logger.Info("saved elements", "session_id", ec.SessionID, "elements", working.Total(), "forced", opts.Force)
	return req, nil
}

// Saving reports whether a save for sessionID is in flight.
func (a *Adapter) Saving(sessionID string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.inflight[sessionID]
	return ok
}

func (a *Adapter) acquire(sessionID string) (func(), bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	sem, ok := a.inflight[sessionID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		a.inflight[sessionID] = sem
	}
	if !sem.TryAcquire(1) {
		return nil, false
	}
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		sem.Release(1)
		delete(a.inflight, sessionID)
	}, true
}
