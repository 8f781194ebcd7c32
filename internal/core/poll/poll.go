// Package poll drives a remote job to a terminal status with a fixed tick
// interval and a bounded attempt budget.
package poll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/agenthands/insightflow/internal/core/model"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultMaxAttempts = 60
)

var (
	ErrJobFailed = errors.New("job failed")
	ErrTimedOut  = errors.New("job did not finish within the attempt budget")
)

// CheckFunc performs one status check.
type CheckFunc func(ctx context.Context) (model.JobState, error)

// Poller checks a job once per tick until it completes, fails, times out
// upstream or the attempt budget runs out.
type Poller struct {
	Interval    time.Duration
	MaxAttempts int
	// OnTick, when set, observes every check (attempt is 1-based).
	OnTick func(attempt int, state model.JobState)
	Logger *slog.Logger
}

// New returns a Poller with the given interval and budget; non-positive
// values fall back to the defaults (5s, 60 attempts).
func New(interval time.Duration, maxAttempts int) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	return &Poller{Interval: interval, MaxAttempts: maxAttempts}
}

// Result summarizes a polling run.
type Result struct {
	Status   model.JobStatus
	Attempts int
	Progress int
	// LastCheckErr is the most recent transient check error, if any.
	LastCheckErr error
}

// Poll checks the job, then sleeps Interval between non-terminal checks.
// It performs at most MaxAttempts checks. The returned error is
// ErrJobFailed, ErrTimedOut or the context's error; Result.Status is set in
// every case. A failed check is treated as Pending and retried on the next
// tick only.
func (p *Poller) Poll(ctx context.Context, check CheckFunc) (Result, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	var res Result
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			res.Status = model.JobPending
			return res, err
		}

		state, err := check(ctx)
		res.Attempts = attempt
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				res.Status = model.JobPending
				return res, ctxErr
			}
			logger.Debug("status check failed, treating as pending", "attempt", attempt, "error", err)
			res.LastCheckErr = err
			state = model.JobState{Status: model.JobPending, Progress: res.Progress}
		}
		if state.Progress > res.Progress {
			res.Progress = state.Progress
		}
		res.Status = state.Status
		if p.OnTick != nil {
			p.OnTick(attempt, state)
		}

		switch state.Status {
		case model.JobCompleted:
			return res, nil
		case model.JobFailed:
			if state.Error != "" {
				return res, fmt.Errorf("%w: %s", ErrJobFailed, state.Error)
			}
			return res, ErrJobFailed
		case model.JobTimedOut:
			if state.Error != "" {
				return res, fmt.Errorf("%w: upstream reported timeout: %s", ErrTimedOut, state.Error)
			}
			return res, fmt.Errorf("%w: upstream reported timeout", ErrTimedOut)
		}

		if attempt == p.MaxAttempts {
			break
		}
		if err := sleep(ctx, p.Interval); err != nil {
			return res, err
		}
	}
	res.Status = model.JobTimedOut
	return res, fmt.Errorf("%w (%d attempts)", ErrTimedOut, res.Attempts)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
