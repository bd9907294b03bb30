package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// GenerateResponse mirrors the generation endpoint's response body. Which
// fields are populated depends on whether the server answered synchronously
// or queued a task.
type GenerateResponse struct {
	Success        bool            `json:"success"`
	TaskID         string          `json:"task_id,omitempty"`
	Recipe         json.RawMessage `json:"recipe,omitempty"`
	Enhancements   []string        `json:"enhancements,omitempty"`
	Nutrition      json.RawMessage `json:"nutrition,omitempty"`
	Quality        json.RawMessage `json:"quality,omitempty"`
	GenerationTime float64         `json:"generation_time,omitempty"`
	Iterations     int             `json:"iterations,omitempty"`
	Error          string          `json:"error,omitempty"`
}

// Result assembles the presentation payload from a synchronous response.
func (r *GenerateResponse) ToResult() *Result {
	return &Result{
		Recipe:         r.Recipe,
		Enhancements:   r.Enhancements,
		Nutrition:      r.Nutrition,
		Quality:        r.Quality,
		GenerationTime: r.GenerationTime,
		Iterations:     r.Iterations,
	}
}

type statusResponse struct {
	Status   string `json:"status"`
	Progress *struct {
		Step    string `json:"step"`
		Message string `json:"message"`
	} `json:"progress,omitempty"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Client talks to the MealForge generation and status endpoints.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// Generate submits a generation request. A non-nil error means transport
// failure; server-level rejection is reported through the response body.
func (c *Client) Generate(ctx context.Context, req GenerationRequest, useQueue bool) (*GenerateResponse, error) {
	body, err := json.Marshal(map[string]interface{}{
		"recipe_request": req.RecipeRequest,
		"complexity":     string(req.Complexity),
		"use_queue":      useQueue,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	// The endpoint reports rejection through the payload, not the HTTP
	// status, so any decodable body is classified by shape.
	var out GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// TaskStatus fetches one StatusSnapshot for a task id. Non-2xx responses and
// malformed payloads are transport errors; the poller treats them as
// transient.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*StatusSnapshot, error) {
	url := fmt.Sprintf("%s/api/v1/generate/status/%s", c.baseURL, taskID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("status endpoint returned %d", resp.StatusCode)
	}

	var out statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode status: %w", err)
	}

	snapshot := &StatusSnapshot{
		Status: ParseStatus(out.Status),
		Result: out.Result,
		Error:  out.Error,
	}
	if out.Progress != nil {
		snapshot.ProgressMessage = out.Progress.Message
	}
	return snapshot, nil
}
