// Package pipeline sequences a capture through upload, transcription,
// session creation and analysis, and reduces every failure to a typed
// *Error on the returned Result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/agenthands/insightflow/internal/core/dedupe"
	"github.com/agenthands/insightflow/internal/core/model"
	"github.com/agenthands/insightflow/internal/core/normalize"
	"github.com/agenthands/insightflow/internal/core/poll"
)

// Event is delivered to an Observer on every state change and progress update.
type Event struct {
	State    State
	Progress string
}

type Observer func(Event)

// Config tunes an Orchestrator. Zero values fall back to defaults.
type Config struct {
	PollInterval    time.Duration
	PollMaxAttempts int
	Titles          Titles
	Language        string
	Logger          *slog.Logger
	Normalizer      *normalize.Normalizer
	Clock           func() time.Time
}

type Orchestrator struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger

	mu        sync.Mutex
	analyzing map[string]struct{}
}

func New(backend Backend, cfg Config) *Orchestrator {
	if cfg.Titles.Audio == "" {
		cfg.Titles.Audio = DefaultTitles.Audio
	}
	if cfg.Titles.Text == "" {
		cfg.Titles.Text = DefaultTitles.Text
	}
	if cfg.Normalizer == nil {
		cfg.Normalizer = normalize.NewNormalizer()
	}
	if cfg.Clock == nil {
		cfg.Clock = func() time.Time { return time.Now().UTC() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		backend:   backend,
		cfg:       cfg,
		logger:    logger.With("component", "pipeline"),
		analyzing: make(map[string]struct{}),
	}
}

// Result is the structured outcome of a run. Err is nil exactly when State
// is StateComplete.
type Result struct {
	State      State
	SessionID  string
	Transcript string
	// Raw is the analysis result as returned by the backend.
	Raw model.RawElements
	// Elements is Raw normalized and deduplicated.
	Elements model.WorkingSet
	// Skipped counts raw records that were not objects.
	Skipped int
	// Duplicates counts removed duplicates per kind.
	Duplicates map[model.Kind]int
	Err        *Error
	Progress   []string
	Visited    []State
}

func (r *Result) OK() bool {
	return r.Err == nil && r.State == StateComplete
}

// run carries the mutable state of one pipeline invocation.
type run struct {
	o      *Orchestrator
	res    *Result
	obs    Observer
	logger *slog.Logger
}

func (o *Orchestrator) newRun(obs Observer) *run {
	return &run{
		o:      o,
		res:    &Result{State: StateInput, Visited: []State{StateInput}},
		obs:    obs,
		logger: o.logger,
	}
}

func (r *run) enter(next State) bool {
	if !r.res.State.CanTransition(next) {
		r.fail(&Error{Kind: KindUpstream, State: r.res.State, Message: fmt.Sprintf("invalid transition to %s", next)})
		return false
	}
	r.logger.Info("pipeline state", "from", r.res.State, "state", next)
	r.res.State = next
	r.res.Visited = append(r.res.Visited, next)
	r.emit("")
	return true
}

func (r *run) progress(label string) {
	r.res.Progress = append(r.res.Progress, label)
	r.emit(label)
}

func (r *run) emit(label string) {
	if r.obs != nil {
		r.obs(Event{State: r.res.State, Progress: label})
	}
}

// fail moves the run into StateError. It is the only way a run ends badly.
func (r *run) fail(e *Error) *Result {
	if e.State == "" {
		e.State = r.res.State
	}
	r.logger.Warn("pipeline failed", "state", e.State, "kind", e.Kind, "error", e)
	r.res.Err = e
	r.res.State = StateError
	r.res.Visited = append(r.res.Visited, StateError)
	r.emit("")
	return r.res
}

// failWith classifies err for the current stage. Cancellation wins over
// whatever the stage reported.
func (r *run) failWith(ctx context.Context, kind ErrorKind, msg string, err error) *Result {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		return r.fail(&Error{Kind: KindCanceled, Message: "run canceled", Err: errOr(err, ctx.Err())})
	}
	return r.fail(&Error{Kind: kind, Message: msg, Err: err})
}

func errOr(err, fallback error) error {
	if err != nil {
		return err
	}
	return fallback
}

// Run executes the whole pipeline for in. It never returns a nil Result and
// never panics on backend failures; the outcome is always on the Result.
func (o *Orchestrator) Run(ctx context.Context, in Input, obs Observer) *Result {
	r := o.newRun(obs)
	r.progress(labelPreparing)

	c, verr := in.resolve(o.cfg.Titles)
	if verr != nil {
		return r.fail(verr)
	}

	transcript := c.text
	if c.audio != nil {
		var res *Result
		transcript, res = r.transcribe(ctx, *c.audio)
		if res != nil {
			return res
		}
	}
	r.res.Transcript = transcript

	if !r.enter(StateCreatingSession) {
		return r.res
	}
	r.progress(labelCreating)
	sessionID, err := o.backend.CreateSession(ctx, model.NewSession{
		Title:      c.title,
		Transcript: transcript,
		Date:       o.cfg.Clock(),
		Language:   o.cfg.Language,
	})
	if err != nil {
		return r.failWith(ctx, KindValidation, "Failed to create session", err)
	}
	if strings.TrimSpace(sessionID) == "" {
		return r.fail(&Error{Kind: KindValidation, Message: "Failed to create session"})
	}
	r.res.SessionID = sessionID
	r.logger = r.logger.With("session_id", sessionID)

	return r.analyze(ctx, sessionID)
}

// Reanalyze runs only the analysis stage for an existing session.
func (o *Orchestrator) Reanalyze(ctx context.Context, sessionID string, obs Observer) *Result {
	r := o.newRun(obs)
	r.res.SessionID = sessionID
	r.logger = r.logger.With("session_id", sessionID)
	if strings.TrimSpace(sessionID) == "" {
		return r.fail(&Error{Kind: KindValidation, Message: "session id is required"})
	}
	return r.analyze(ctx, sessionID)
}

// transcribe covers Uploading and Transcribing. A non-nil Result means the
// run has already failed.
func (r *run) transcribe(ctx context.Context, audio model.Audio) (string, *Result) {
	o := r.o
	if !r.enter(StateUploading) {
		return "", r.res
	}
	r.progress(labelUploading)
	jobID, err := o.backend.SubmitAudio(ctx, audio)
	if err != nil {
		return "", r.failWith(ctx, KindUpstream, "Failed to start transcription", err)
	}
	if strings.TrimSpace(jobID) == "" {
		return "", r.fail(&Error{Kind: KindUpstream, Message: "Failed to start transcription"})
	}
	r.logger = r.logger.With("job_id", jobID)

	if !r.enter(StateTranscribing) {
		return "", r.res
	}
	r.progress(labelTranscribing)
	p := r.poller(func(state model.JobState) string {
		return fmt.Sprintf("%s %d%%", labelTranscribing, state.Progress)
	})
	_, err = p.Poll(ctx, func(ctx context.Context) (model.JobState, error) {
		return o.backend.TranscriptionStatus(ctx, jobID)
	})
	if err != nil {
		return "", r.pollFailure(ctx, "Transcription", err)
	}

	r.progress(labelFetching)
	transcript, err := o.backend.TranscriptionResult(ctx, jobID)
	if err != nil {
		return "", r.failWith(ctx, KindUpstream, "Failed to get transcription result", err)
	}
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return "", r.fail(&Error{Kind: KindUpstream, Message: "No transcript received"})
	}
	return transcript, nil
}

func (r *run) poller(label func(model.JobState) string) *poll.Poller {
	p := poll.New(r.o.cfg.PollInterval, r.o.cfg.PollMaxAttempts)
	p.Logger = r.logger
	p.OnTick = func(attempt int, state model.JobState) {
		r.logger.Debug("poll tick", "attempt", attempt, "status", state.Status, "progress", state.Progress)
		r.progress(label(state))
	}
	return p
}

func (r *run) pollFailure(ctx context.Context, what string, err error) *Result {
	switch {
	case errors.Is(err, poll.ErrTimedOut):
		return r.fail(&Error{Kind: KindTimeout, Message: what + " timeout", Err: err})
	case errors.Is(err, poll.ErrJobFailed):
		return r.fail(&Error{Kind: KindUpstream, Message: what + " failed", Err: err})
	}
	return r.failWith(ctx, KindUpstream, what+" failed", err)
}

func (r *run) analyze(ctx context.Context, sessionID string) *Result {
	o := r.o
	release, ok := o.acquire(sessionID)
	if !ok {
		return r.fail(&Error{Kind: KindValidation, Message: "Analysis is already running for this session", Err: ErrAnalysisInProgress})
	}
	defer release()

	if !r.enter(StateAnalyzing) {
		return r.res
	}
	r.progress(labelAnalyzing)
	outcome, err := o.backend.Analyze(ctx, sessionID)
	if err != nil {
		if errors.Is(err, model.ErrMissingTranscript) {
			return r.fail(&Error{Kind: KindMissingTranscript, Message: "session has no transcript", Err: err})
		}
		return r.failWith(ctx, KindUpstream, "Analysis failed", err)
	}

	raw, res := r.resolveOutcome(ctx, sessionID, outcome)
	if res != nil {
		return res
	}

	ws, skipped := o.cfg.Normalizer.Set(raw)
	deduped := dedupe.WorkingSet(ws)
	r.res.Raw = raw
	r.res.Elements = deduped
	r.res.Skipped = skipped
	r.res.Duplicates = dedupe.Removed(ws, deduped)
	if skipped > 0 {
		r.logger.Warn("skipped non-object records", "count", skipped)
	}

	if !r.enter(StateComplete) {
		return r.res
	}
	r.progress(labelComplete)
	r.logger.Info("analysis complete", "elements", deduped.Total())
	return r.res
}

// resolveOutcome returns the raw elements, polling the analysis job first
// when the trigger returned a handle instead of a result.
func (r *run) resolveOutcome(ctx context.Context, sessionID string, outcome model.AnalysisOutcome) (model.RawElements, *Result) {
	o := r.o
	if outcome.Elements != nil {
		return *outcome.Elements, nil
	}
	if outcome.JobID == "" {
		return model.RawElements{}, r.fail(&Error{Kind: KindUpstream, Message: "Analysis returned no result"})
	}

	r.logger.Info("analysis running as job", "analysis_job_id", outcome.JobID)
	p := r.poller(func(state model.JobState) string {
		return fmt.Sprintf("Analyzing session... %d%%", state.Progress)
	})
	_, err := p.Poll(ctx, func(ctx context.Context) (model.JobState, error) {
		return o.backend.AnalysisStatus(ctx, outcome.JobID)
	})
	if err != nil {
		return model.RawElements{}, r.pollFailure(ctx, "Analysis", err)
	}

	raw, err := o.backend.SessionElements(ctx, sessionID)
	if err != nil {
		return model.RawElements{}, r.failWith(ctx, KindUpstream, "Failed to load analysis result", err)
	}
	return raw, nil
}

// acquire marks sessionID as being analyzed. The second caller for the same
// session gets ok == false until release runs.
func (o *Orchestrator) acquire(sessionID string) (release func(), ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, busy := o.analyzing[sessionID]; busy {
		return nil, false
	}
	o.analyzing[sessionID] = struct{}{}
	return func() {
		o.mu.Lock()
		delete(o.analyzing, sessionID)
		o.mu.Unlock()
	}, true
}

// Analyzing reports whether an analysis for sessionID is in flight.
func (o *Orchestrator) Analyzing(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, busy := o.analyzing[sessionID]
	return busy
}
