package genclient

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// scriptedAPI replays generation responses and records the use_queue flag of
// every call.
type scriptedAPI struct {
	mu        sync.Mutex
	responses []apiStep
	calls     []bool
}

type apiStep struct {
	resp *GenerateResponse
	err  error
}

func (a *scriptedAPI) Generate(_ context.Context, _ GenerationRequest, useQueue bool) (*GenerateResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, useQueue)
	idx := len(a.calls) - 1
	if idx >= len(a.responses) {
		idx = len(a.responses) - 1
	}
	step := a.responses[idx]
	return step.resp, step.err
}

func (a *scriptedAPI) queueFlags() []bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]bool(nil), a.calls...)
}

func tacoRequest() GenerationRequest {
	return GenerationRequest{RecipeRequest: "spicy chicken tacos", Complexity: ComplexityMedium}
}

func recipePayload() json.RawMessage {
	return json.RawMessage(`{"title":"Spicy Chicken Tacos"}`)
}

func newTestSubmitter(t *testing.T, api GenerateAPI, fetcher StatusFetcher, analytics Analytics) *Submitter {
	t.Helper()
	if analytics == nil {
		analytics = &recordingAnalytics{}
	}
	poller := newTestPoller(t, fetcher, analytics, PollerOptions{})
	return NewSubmitter(api, poller, analytics, zaptest.NewLogger(t))
}

func TestRunAsyncHappyPath(t *testing.T) {
	api := &scriptedAPI{responses: []apiStep{
		{resp: &GenerateResponse{Success: true, TaskID: "abc123"}},
	}}
	fetcher := &scriptedFetcher{script: []fetchStep{
		processingStep(""),
		processingStep(""),
		processingStep(""),
		completedStep(),
	}}
	analytics := &recordingAnalytics{}
	s := newTestSubmitter(t, api, fetcher, analytics)

	result, err := s.Run(context.Background(), tacoRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	// One async submission, four polls, no fallback.
	assert.Equal(t, []bool{true}, api.queueFlags())
	assert.Equal(t, 4, fetcher.count())
	assert.Len(t, analytics.named("generation_started"), 1)
	assert.Len(t, analytics.named("generation_succeeded"), 1)
}

func TestRunSynchronousResponse(t *testing.T) {
	// The endpoint may answer the async submit synchronously, e.g. when its
	// queue is unavailable.
	api := &scriptedAPI{responses: []apiStep{
		{resp: &GenerateResponse{Success: true, Recipe: recipePayload(), GenerationTime: 20, Iterations: 1}},
	}}
	fetcher := &scriptedFetcher{script: []fetchStep{completedStep()}}
	s := newTestSubmitter(t, api, fetcher, nil)

	result, err := s.Run(context.Background(), tacoRequest())
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.JSONEq(t, string(recipePayload()), string(result.Recipe))

	assert.Equal(t, []bool{true}, api.queueFlags())
	assert.Equal(t, 0, fetcher.count())
}

func TestRunRejectedByServer(t *testing.T) {
	api := &scriptedAPI{responses: []apiStep{
		{resp: &GenerateResponse{Success: false, Error: "Recipe request is required"}},
	}}
	s := newTestSubmitter(t, api, &scriptedFetcher{script: []fetchStep{completedStep()}}, nil)

	_, err := s.Run(context.Background(), tacoRequest())
	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, RejectedByServer, flowErr.Kind)
	assert.Equal(t, "Recipe request is required", flowErr.Message)
	assert.True(t, flowErr.UserVisible())

	// Explicit rejection never triggers the fallback.
	assert.Equal(t, []bool{true}, api.queueFlags())
}

func TestRunTransportErrorFallsBackOnce(t *testing.T) {
	api := &scriptedAPI{responses: []apiStep{
		{err: errors.New("connection refused")},
		{resp: &GenerateResponse{Success: true, Recipe: recipePayload(), GenerationTime: 25, Iterations: 1}},
	}}
	fetcher := &scriptedFetcher{script: []fetchStep{completedStep()}}
	s := newTestSubmitter(t, api, fetcher, nil)

	result, err := s.Run(context.Background(), tacoRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	// Exactly one fallback call with use_queue=false; no task was created.
	assert.Equal(t, []bool{true, false}, api.queueFlags())
	assert.Equal(t, 0, fetcher.count())
}

func TestRunFallbackFailureIsTerminal(t *testing.T) {
	api := &scriptedAPI{responses: []apiStep{
		{err: errors.New("connection refused")},
		{err: errors.New("connection refused")},
	}}
	s := newTestSubmitter(t, api, &scriptedFetcher{script: []fetchStep{completedStep()}}, nil)

	_, err := s.Run(context.Background(), tacoRequest())
	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, FallbackFailed, flowErr.Kind)
	assert.Equal(t, genericFailureMessage, flowErr.Message)

	// The fallback itself is never retried.
	assert.Equal(t, []bool{true, false}, api.queueFlags())
}

func TestRunServerReportedFailureSkipsFallback(t *testing.T) {
	api := &scriptedAPI{responses: []apiStep{
		{resp: &GenerateResponse{Success: true, TaskID: "abc123"}},
	}}
	fetcher := &scriptedFetcher{script: []fetchStep{
		{snapshot: &StatusSnapshot{Status: StatusFailed, Error: "LLM error"}},
	}}
	s := newTestSubmitter(t, api, fetcher, nil)

	_, err := s.Run(context.Background(), tacoRequest())
	var flowErr *FlowError
	require.ErrorAs(t, err, &flowErr)
	assert.Equal(t, RejectedByServer, flowErr.Kind)
	assert.Equal(t, "LLM error", flowErr.Message)

	assert.Equal(t, []bool{true}, api.queueFlags())
	assert.Equal(t, 1, fetcher.count())
}

func TestRunExhaustedPollBudgetFallsBack(t *testing.T) {
	api := &scriptedAPI{responses: []apiStep{
		{resp: &GenerateResponse{Success: true, TaskID: "abc123"}},
		{resp: &GenerateResponse{Success: true, Recipe: recipePayload(), GenerationTime: 30, Iterations: 1}},
	}}
	fetcher := &scriptedFetcher{script: []fetchStep{
		{err: errors.New("bad gateway")},
	}}
	analytics := &recordingAnalytics{}
	s := newTestSubmitter(t, api, fetcher, analytics)

	result, err := s.Run(context.Background(), tacoRequest())
	require.NoError(t, err)
	require.NotNil(t, result)

	// Escalation after the 3rd consecutive poll error, then one fallback.
	assert.Equal(t, 3, fetcher.count())
	assert.Equal(t, []bool{true, false}, api.queueFlags())
	assert.Len(t, analytics.named("polling_error"), 1)
}

func TestRunEmptyRequest(t *testing.T) {
	api := &scriptedAPI{responses: []apiStep{{err: errors.New("must not be called")}}}
	s := newTestSubmitter(t, api, &scriptedFetcher{script: []fetchStep{completedStep()}}, nil)

	_, err := s.Run(context.Background(), GenerationRequest{Complexity: ComplexitySimple})
	assert.ErrorIs(t, err, ErrEmptyRequest)
	assert.Empty(t, api.queueFlags())
}

func TestClassifyResponseShapes(t *testing.T) {
	accepted := classify(&GenerateResponse{Success: true, TaskID: "t1"}, nil)
	assert.Equal(t, OutcomeAccepted, accepted.Kind)
	assert.Equal(t, "t1", accepted.Handle.TaskID)

	done := classify(&GenerateResponse{Success: true, Recipe: recipePayload()}, nil)
	assert.Equal(t, OutcomeDone, done.Kind)
	require.NotNil(t, done.Result)

	rejected := classify(&GenerateResponse{Success: false, Error: "nope"}, nil)
	assert.Equal(t, OutcomeRejected, rejected.Kind)
	assert.Equal(t, "nope", rejected.Reason)

	transport := classify(nil, errors.New("dial tcp"))
	assert.Equal(t, OutcomeTransportError, transport.Kind)

	malformed := classify(&GenerateResponse{Success: true}, nil)
	assert.Equal(t, OutcomeTransportError, malformed.Kind)
}
