package api

import "github.com/crumbworks/mealforge/internal/service"

// GenerateRequest is the body of POST /api/v1/generate.
type GenerateRequest struct {
	RecipeRequest string `json:"recipe_request"`
	Complexity    string `json:"complexity"`
	UseQueue      bool   `json:"use_queue"`
}

// GenerateResponse is the body of POST /api/v1/generate. Exactly one of
// TaskID and Recipe is set on success: TaskID when the request was queued,
// Recipe when it was answered synchronously.
type GenerateResponse struct {
	Success        bool                `json:"success"`
	TaskID         string              `json:"task_id,omitempty"`
	RecipeID       string              `json:"recipe_id,omitempty"`
	Recipe         *service.RecipeData `json:"recipe,omitempty"`
	Enhancements   []string            `json:"enhancements,omitempty"`
	Nutrition      *service.Nutrition  `json:"nutrition,omitempty"`
	Quality        *service.Quality    `json:"quality,omitempty"`
	GenerationTime int                 `json:"generation_time,omitempty"`
	Iterations     int                 `json:"iterations,omitempty"`
	Error          string              `json:"error,omitempty"`
}

// StatusResponse is the body of GET /api/v1/generate/status/:task_id.
type StatusResponse struct {
	TaskID   string                    `json:"task_id"`
	Status   string                    `json:"status"`
	Progress *ProgressInfo             `json:"progress,omitempty"`
	Result   *service.GenerationResult `json:"result,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

type ProgressInfo struct {
	Step    string `json:"step"`
	Message string `json:"message"`
}

// RateRequest is the body of POST /api/v1/recipes/:id/rate.
type RateRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}
