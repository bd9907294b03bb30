package genclient

import (
	"encoding/json"
	"fmt"
)

// Complexity is the requested effort level for a generated recipe.
type Complexity string

const (
	ComplexitySimple  Complexity = "Simple"
	ComplexityMedium  Complexity = "Medium"
	ComplexityGourmet Complexity = "Gourmet"
)

// GenerationRequest is one recipe generation request. It is immutable once
// submitted; the same value is reused verbatim for the fallback attempt.
type GenerationRequest struct {
	RecipeRequest string
	Complexity    Complexity
}

// TaskHandle identifies an accepted asynchronous generation task. It is owned
// by a single polling session and discarded on its terminal outcome.
type TaskHandle struct {
	TaskID string
}

// Result is the payload handed to the presentation collaborator, identical
// for the synchronous path and a completed async task. The recipe contents
// are opaque to the protocol layer.
type Result struct {
	Recipe         json.RawMessage `json:"recipe"`
	Enhancements   []string        `json:"enhancements,omitempty"`
	Nutrition      json.RawMessage `json:"nutrition,omitempty"`
	Quality        json.RawMessage `json:"quality,omitempty"`
	GenerationTime float64         `json:"generation_time"`
	Iterations     int             `json:"iterations"`
}

// OutcomeKind discriminates the submission outcome variants.
type OutcomeKind int

const (
	// OutcomeAccepted means the server issued a task id for async completion.
	OutcomeAccepted OutcomeKind = iota
	// OutcomeDone means the server answered synchronously with a result.
	OutcomeDone
	// OutcomeRejected means the server explicitly reported failure.
	OutcomeRejected
	// OutcomeTransportError means the submission never got a usable response.
	OutcomeTransportError
)

// Outcome is the tagged result of one submission attempt. Exactly one of the
// payload fields is meaningful, selected by Kind.
type Outcome struct {
	Kind   OutcomeKind
	Handle TaskHandle // OutcomeAccepted
	Result *Result    // OutcomeDone
	Reason string     // OutcomeRejected
	Err    error      // OutcomeTransportError
}

// FailureKind classifies terminal and recoverable failures of the generation
// flow.
type FailureKind int

const (
	// RejectedByServer: generation endpoint explicitly returned failure.
	RejectedByServer FailureKind = iota
	// TransportError: network failure on initial submission.
	TransportError
	// PollTransportError: transient poll failure, recoverable within budget.
	PollTransportError
	// Timeout: polling session exceeded its max duration.
	Timeout
	// ExhaustedRetryBudget: too many consecutive transient poll errors.
	ExhaustedRetryBudget
	// FallbackFailed: the single synchronous fallback also failed.
	FallbackFailed
)

func (k FailureKind) String() string {
	switch k {
	case RejectedByServer:
		return "rejected_by_server"
	case TransportError:
		return "transport_error"
	case PollTransportError:
		return "poll_transport_error"
	case Timeout:
		return "timeout"
	case ExhaustedRetryBudget:
		return "exhausted_retry_budget"
	case FallbackFailed:
		return "fallback_failed"
	default:
		return "unknown"
	}
}

// FlowError is a classified failure of the generation flow. Only
// RejectedByServer and FallbackFailed carry text meant for the user; all
// other kinds are absorbed internally.
type FlowError struct {
	Kind    FailureKind
	Message string
}

func (e *FlowError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// UserVisible reports whether the error text should be surfaced verbatim.
func (e *FlowError) UserVisible() bool {
	return e.Kind == RejectedByServer || e.Kind == FallbackFailed
}
