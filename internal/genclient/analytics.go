package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Analytics records lifecycle telemetry events. Implementations must never
// block the generation flow; absence or failure of the collector must not
// affect outcomes.
type Analytics interface {
	Record(event string, props map[string]interface{})
}

// NopAnalytics is the default collaborator when no collector is configured.
type NopAnalytics struct{}

func (NopAnalytics) Record(string, map[string]interface{}) {}

// HTTPAnalytics posts events to a collector endpoint, fire-and-forget.
type HTTPAnalytics struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewHTTPAnalytics(url string, logger *zap.Logger) *HTTPAnalytics {
	return &HTTPAnalytics{
		url:    url,
		client: &http.Client{Timeout: 5 * time.Second},
		logger: logger,
	}
}

// Record sends the event in a background goroutine and swallows all errors.
func (a *HTTPAnalytics) Record(event string, props map[string]interface{}) {
	payload := map[string]interface{}{
		"event":      event,
		"properties": props,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	}

	go func() {
		body, err := json.Marshal(payload)
		if err != nil {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
		if err != nil {
			return
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			a.logger.Debug("analytics event dropped", zap.String("event", event), zap.Error(err))
			return
		}
		resp.Body.Close()
	}()
}
