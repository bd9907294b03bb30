package genclient

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// State is a node of the polling state machine.
type State int

const (
	// StateQueued is the implicit initial state on receiving a TaskHandle.
	StateQueued State = iota
	StateProcessing
	StateCompleted
	StateFailed
	StateTimeout
	StateAbortedError
)

func (s State) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateProcessing:
		return "processing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimeout:
		return "timeout"
	case StateAbortedError:
		return "aborted_error"
	default:
		return "invalid"
	}
}

// EscalatesToFallback reports whether this terminal state hands control back
// to the submitter's one-shot synchronous fallback.
func (s State) EscalatesToFallback() bool {
	return s == StateTimeout || s == StateAbortedError
}

// TerminalOutcome is the final result of one polling session.
type TerminalOutcome struct {
	State State
	// Result is set for StateCompleted.
	Result *Result
	// ErrorMessage carries the server-reported error for StateFailed,
	// surfaced to the user verbatim.
	ErrorMessage string
	PollCount    int
	Elapsed      time.Duration
}

// StatusFetcher fetches one status snapshot for a task.
type StatusFetcher interface {
	TaskStatus(ctx context.Context, taskID string) (*StatusSnapshot, error)
}

// PollerOptions carries the timing policy of a polling session.
type PollerOptions struct {
	// Interval between polls.
	Interval time.Duration
	// MaxDuration bounds the whole session.
	MaxDuration time.Duration
	// RetryBudget is the number of consecutive transient errors tolerated
	// before the session aborts.
	RetryBudget int
	// Progress receives display messages for non-terminal statuses.
	Progress func(message string)
}

// DefaultPollerOptions returns the shipped polling policy: 2 s interval,
// 180 s session cap, 3 consecutive transient errors.
func DefaultPollerOptions() PollerOptions {
	return PollerOptions{
		Interval:    2 * time.Second,
		MaxDuration: 180 * time.Second,
		RetryBudget: 3,
	}
}

// Poller drives a polling session from task acceptance to a terminal state.
// Polls for one task are strictly sequential; a session never issues
// overlapping requests.
type Poller struct {
	fetcher   StatusFetcher
	analytics Analytics
	logger    *zap.Logger
	opts      PollerOptions

	// test seams
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewPoller(fetcher StatusFetcher, analytics Analytics, logger *zap.Logger, opts PollerOptions) *Poller {
	if analytics == nil {
		analytics = NopAnalytics{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollerOptions().Interval
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultPollerOptions().MaxDuration
	}
	if opts.RetryBudget <= 0 {
		opts.RetryBudget = DefaultPollerOptions().RetryBudget
	}
	if opts.Progress == nil {
		opts.Progress = func(string) {}
	}

	return &Poller{
		fetcher:   fetcher,
		analytics: analytics,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
		sleep:     sleepCtx,
	}
}

// pollSession is the state of one polling loop. It lives for exactly one
// Poll call and is discarded on its terminal outcome.
type pollSession struct {
	taskID          string
	start           time.Time
	state           State
	pollCount       int
	consecutiveErrs int
}

// advance is the pure transition function for non-terminal snapshots:
// queued and processing collapse into PROCESSING, unrecognized statuses are
// polled like processing.
func advance(state State, status StatusValue) State {
	switch status {
	case StatusCompleted:
		return StateCompleted
	case StatusFailed:
		return StateFailed
	default:
		if state == StateQueued && status == StatusQueued {
			return StateQueued
		}
		return StateProcessing
	}
}

// Poll runs the session loop for taskID until a terminal state. Timeout and
// exhausted retry budget produce outcomes that escalate to the submitter's
// fallback; Completed and Failed are final.
func (p *Poller) Poll(ctx context.Context, taskID string) TerminalOutcome {
	sess := &pollSession{
		taskID: taskID,
		start:  p.now(),
		state:  StateQueued,
	}

	for {
		// Timeout check comes before the network call so a stalled server
		// cannot extend the session.
		if elapsed := p.now().Sub(sess.start); elapsed > p.opts.MaxDuration {
			p.logger.Warn("polling session timed out",
				zap.String("task_id", sess.taskID),
				zap.Duration("elapsed", elapsed),
				zap.Int("poll_count", sess.pollCount),
			)
			return p.terminal(sess, StateTimeout, nil, "")
		}

		snapshot, err := p.fetcher.TaskStatus(ctx, sess.taskID)
		sess.pollCount++

		if err != nil {
			if ctx.Err() != nil {
				return p.terminal(sess, StateAbortedError, nil, "")
			}

			sess.consecutiveErrs++
			p.logger.Warn("transient poll error",
				zap.String("task_id", sess.taskID),
				zap.Int("consecutive", sess.consecutiveErrs),
				zap.Error(err),
			)

			if sess.consecutiveErrs >= p.opts.RetryBudget {
				p.analytics.Record("polling_error", map[string]interface{}{
					"task_id":            sess.taskID,
					"consecutive_errors": sess.consecutiveErrs,
					"poll_count":         sess.pollCount,
				})
				return p.terminal(sess, StateAbortedError, nil, "")
			}

			if err := p.sleep(ctx, p.opts.Interval); err != nil {
				return p.terminal(sess, StateAbortedError, nil, "")
			}
			continue
		}

		sess.consecutiveErrs = 0
		next := advance(sess.state, snapshot.Status)

		switch next {
		case StateCompleted:
			p.analytics.Record("generation_succeeded", map[string]interface{}{
				"task_id":         sess.taskID,
				"elapsed_seconds": p.now().Sub(sess.start).Seconds(),
				"poll_count":      sess.pollCount,
				"async":           true,
			})
			return p.terminal(sess, StateCompleted, snapshot.Result, "")

		case StateFailed:
			p.analytics.Record("generation_failed", map[string]interface{}{
				"task_id": sess.taskID,
				"error":   snapshot.Error,
				"stage":   "polling",
			})
			return p.terminal(sess, StateFailed, nil, snapshot.Error)

		default:
			if snapshot.Status == StatusUnknown {
				p.logger.Warn("unrecognized task status, polling on",
					zap.String("task_id", sess.taskID),
				)
			}
			p.opts.Progress(progressMessage(snapshot))
			sess.state = next

			if err := p.sleep(ctx, p.opts.Interval); err != nil {
				return p.terminal(sess, StateAbortedError, nil, "")
			}
		}
	}
}

func (p *Poller) terminal(sess *pollSession, state State, result *Result, errMsg string) TerminalOutcome {
	sess.state = state
	return TerminalOutcome{
		State:        state,
		Result:       result,
		ErrorMessage: errMsg,
		PollCount:    sess.pollCount,
		Elapsed:      p.now().Sub(sess.start),
	}
}

// progressMessage passes a server-supplied message through verbatim and falls
// back to a fixed default per status.
func progressMessage(snapshot *StatusSnapshot) string {
	if snapshot.ProgressMessage != "" {
		return snapshot.ProgressMessage
	}
	if snapshot.Status == StatusQueued {
		return "Waiting in queue..."
	}
	return "Processing your recipe..."
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
