package taskqueue

import (
	"errors"
	"time"

	"github.com/crumbworks/mealforge/internal/service"
)

// ErrTaskNotFound is returned when a task id has no stored state.
var ErrTaskNotFound = errors.New("task not found")

// ErrQueueFull is returned when the generation queue cannot accept more work.
// Callers are expected to fall back to synchronous generation.
var ErrQueueFull = errors.New("generation queue is full")

// Status is the lifecycle state of a generation task.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Progress describes the step a task is currently in.
type Progress struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// Task is one queued recipe generation request and its evolving state.
type Task struct {
	ID         string                    `json:"task_id"`
	Request    string                    `json:"request"`
	Complexity string                    `json:"complexity"`
	Status     Status                    `json:"status"`
	Progress   Progress                  `json:"progress"`
	Result     *service.GenerationResult `json:"result,omitempty"`
	Error      string                    `json:"error,omitempty"`
	CreatedAt  time.Time                 `json:"created_at"`
}
