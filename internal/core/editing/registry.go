package editing

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/agenthands/insightflow/internal/core/normalize"
)

// Registry holds at most one open Context per session. Concurrent opens of
// the same session share one load.
type Registry struct {
	loader     Loader
	normalizer *normalize.Normalizer
	logger     *slog.Logger

	mu    sync.Mutex
	open  map[string]*Context
	loads singleflight.Group
}

func NewRegistry(loader Loader, n *normalize.Normalizer, logger *slog.Logger) *Registry {
	if n == nil {
		n = normalize.NewNormalizer()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		loader:     loader,
		normalizer: n,
		logger:     logger.With("component", "editing"),
		open:       make(map[string]*Context),
	}
}

// Get returns the open context of a session.
func (r *Registry) Get(sessionID string) (*Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.open[sessionID]
	return c, ok
}

// Open returns the open context of a session, loading it first if needed.
// With allowEmpty a failed load yields an empty context that carries the
// load error instead of failing. Such a context is replaced by the next
// successful load.
//
// The load runs detached from ctx's cancellation since callers joining the
// same in-flight load must not fail because the first caller went away.
func (r *Registry) Open(ctx context.Context, sessionID string, allowEmpty bool) (*Context, error) {
	if c, ok := r.loaded(sessionID); ok {
		return c, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	v, err, shared := r.loads.Do(sessionID, func() (any, error) {
		if c, ok := r.loaded(sessionID); ok {
			return c, nil
		}
		c, err := Open(loadCtx, r.loader, sessionID, r.normalizer)
		if err != nil {
			return nil, err
		}
		r.logger.Info("opened editing context", "session_id", sessionID, "elements", c.working.Total())
		return r.store(c), nil
	})
	if shared {
		r.logger.Debug("joined in-flight load", "session_id", sessionID)
	}
	if err != nil {
		if !allowEmpty {
			return nil, err
		}
		r.logger.Warn("load failed, opening empty context", "session_id", sessionID, "error", err)
		return r.store(OpenEmpty(sessionID, err)), nil
	}
	return v.(*Context), nil
}

// loaded returns the open context of a session unless it is an empty
// fallback from a failed load.
func (r *Registry) loaded(sessionID string) (*Context, bool) {
	c, ok := r.Get(sessionID)
	if !ok || c.LoadErr() != nil {
		return nil, false
	}
	return c, true
}

// Put registers a context built from a fresh analysis, replacing any open one.
func (r *Registry) Put(sessionID string, ws model.WorkingSet) *Context {
	c := NewContext(sessionID, ws)
	r.mu.Lock()
	r.open[sessionID] = c
	r.mu.Unlock()
	return c
}

// store keeps the first context registered for a session. A loaded context
// replaces an empty fallback.
func (r *Registry) store(c *Context) *Context {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.open[c.SessionID]; ok && (existing.LoadErr() == nil || c.LoadErr() != nil) {
		return existing
	}
	r.open[c.SessionID] = c
	return c
}

// Close discards the working copy and snapshot of a session.
func (r *Registry) Close(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.open[sessionID]
	delete(r.open, sessionID)
	return ok
}

// Len is the number of open contexts.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.open)
}
