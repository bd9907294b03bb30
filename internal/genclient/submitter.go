package genclient

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrEmptyRequest is returned before any network traffic when the request
// text is blank.
var ErrEmptyRequest = errors.New("recipe request must not be empty")

const genericFailureMessage = "Recipe generation failed. Please try again."

// GenerateAPI is the generation endpoint as the submitter sees it.
type GenerateAPI interface {
	Generate(ctx context.Context, req GenerationRequest, useQueue bool) (*GenerateResponse, error)
}

// Submitter converts a GenerationRequest into either an immediate result or a
// polled task, and owns the top-level fallback policy: exactly one
// synchronous re-submission when the async path cannot reach a terminal
// success state, and no retry of the fallback itself.
type Submitter struct {
	api       GenerateAPI
	poller    *Poller
	analytics Analytics
	logger    *zap.Logger
	now       func() time.Time
}

func NewSubmitter(api GenerateAPI, poller *Poller, analytics Analytics, logger *zap.Logger) *Submitter {
	if analytics == nil {
		analytics = NopAnalytics{}
	}
	return &Submitter{
		api:       api,
		poller:    poller,
		analytics: analytics,
		logger:    logger,
		now:       time.Now,
	}
}

// Submit performs one asynchronous submission attempt and classifies the
// response by payload shape.
func (s *Submitter) Submit(ctx context.Context, req GenerationRequest) Outcome {
	resp, err := s.api.Generate(ctx, req, true)
	return classify(resp, err)
}

// classify maps a generation response onto the Outcome variants. The
// endpoint signals rejection through the payload, so HTTP-level concerns
// never reach this function.
func classify(resp *GenerateResponse, err error) Outcome {
	switch {
	case err != nil:
		return Outcome{Kind: OutcomeTransportError, Err: err}
	case !resp.Success:
		return Outcome{Kind: OutcomeRejected, Reason: resp.Error}
	case resp.TaskID != "":
		return Outcome{Kind: OutcomeAccepted, Handle: TaskHandle{TaskID: resp.TaskID}}
	case resp.Recipe != nil:
		// The endpoint chose the synchronous path, e.g. queue unavailable.
		return Outcome{Kind: OutcomeDone, Result: resp.ToResult()}
	default:
		return Outcome{Kind: OutcomeTransportError, Err: errors.New("response carried neither task_id nor recipe")}
	}
}

// Run drives the full generation flow: submit, poll if accepted, fall back
// synchronously once if the async path breaks down. The returned error is a
// *FlowError for all terminal failures.
func (s *Submitter) Run(ctx context.Context, req GenerationRequest) (*Result, error) {
	if req.RecipeRequest == "" {
		return nil, ErrEmptyRequest
	}

	start := s.now()
	s.analytics.Record("generation_started", map[string]interface{}{
		"complexity": string(req.Complexity),
		"use_queue":  true,
	})

	outcome := s.Submit(ctx, req)
	switch outcome.Kind {
	case OutcomeDone:
		s.recordSuccess(start, false)
		return outcome.Result, nil

	case OutcomeRejected:
		s.analytics.Record("generation_failed", map[string]interface{}{
			"error": outcome.Reason,
			"stage": "submission",
		})
		return nil, &FlowError{Kind: RejectedByServer, Message: outcome.Reason}

	case OutcomeTransportError:
		s.logger.Warn("async submission failed, falling back", zap.Error(outcome.Err))
		return s.fallback(ctx, req, start, TransportError)
	}

	// OutcomeAccepted: the handle is owned by exactly one polling session.
	terminal := s.poller.Poll(ctx, outcome.Handle.TaskID)
	switch terminal.State {
	case StateCompleted:
		// Success telemetry was emitted by the poller with poll stats.
		return terminal.Result, nil

	case StateFailed:
		// The server explicitly reported failure; no fallback, the error
		// reaches the user verbatim.
		return nil, &FlowError{Kind: RejectedByServer, Message: terminal.ErrorMessage}

	default:
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		cause := Timeout
		if terminal.State == StateAbortedError {
			cause = ExhaustedRetryBudget
		}
		s.logger.Warn("polling session aborted, falling back",
			zap.String("task_id", outcome.Handle.TaskID),
			zap.String("state", terminal.State.String()),
			zap.Int("poll_count", terminal.PollCount),
		)
		return s.fallback(ctx, req, start, cause)
	}
}

// fallback resends the same request in forced-synchronous mode. Its outcome
// is final: no further fallback, no retry.
func (s *Submitter) fallback(ctx context.Context, req GenerationRequest, start time.Time, cause FailureKind) (*Result, error) {
	s.analytics.Record("generation_fallback", map[string]interface{}{
		"cause": cause.String(),
	})

	resp, err := s.api.Generate(ctx, req, false)
	outcome := classify(resp, err)

	switch outcome.Kind {
	case OutcomeDone:
		s.recordSuccess(start, true)
		return outcome.Result, nil

	case OutcomeRejected:
		s.analytics.Record("generation_failed", map[string]interface{}{
			"error": outcome.Reason,
			"stage": "fallback",
		})
		message := outcome.Reason
		if message == "" {
			message = genericFailureMessage
		}
		return nil, &FlowError{Kind: FallbackFailed, Message: message}

	default:
		s.analytics.Record("generation_failed", map[string]interface{}{
			"stage": "fallback",
		})
		return nil, &FlowError{Kind: FallbackFailed, Message: genericFailureMessage}
	}
}

func (s *Submitter) recordSuccess(start time.Time, viaFallback bool) {
	s.analytics.Record("generation_succeeded", map[string]interface{}{
		"elapsed_seconds": s.now().Sub(start).Seconds(),
		"async":           false,
		"fallback":        viaFallback,
	})
}
