package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crumbworks/mealforge/internal/service"
	"github.com/crumbworks/mealforge/internal/taskqueue"
)

// GenerateHandler handles recipe generation requests and task status polls.
type GenerateHandler struct {
	queue     *taskqueue.Queue
	generator taskqueue.Generator
	recipes   *service.RecipeService
	logger    *zap.Logger
}

func NewGenerateHandler(queue *taskqueue.Queue, generator taskqueue.Generator, recipes *service.RecipeService, logger *zap.Logger) *GenerateHandler {
	return &GenerateHandler{
		queue:     queue,
		generator: generator,
		recipes:   recipes,
		logger:    logger,
	}
}

// RegisterRoutes registers the generation routes. Middleware passed here
// applies only to submissions; status polls stay cheap and unthrottled.
func (h *GenerateHandler) RegisterRoutes(router *gin.RouterGroup, submitMiddleware ...gin.HandlerFunc) {
	router.POST("/generate", append(submitMiddleware, h.Generate)...)
	router.GET("/generate/status/:task_id", h.Status)
}

// Generate accepts a generation request. With use_queue it enqueues a task
// and returns its id; without it, or when the queue is full, it generates
// synchronously. Outcomes are reported through the payload shape, not the
// HTTP status, so clients classify by fields.
func (h *GenerateHandler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, GenerateResponse{Success: false, Error: "invalid request body"})
		return
	}

	req.RecipeRequest = strings.TrimSpace(req.RecipeRequest)
	if req.RecipeRequest == "" {
		c.JSON(http.StatusBadRequest, GenerateResponse{Success: false, Error: "Recipe request is required"})
		return
	}

	complexity := normalizeComplexity(req.Complexity)

	if req.UseQueue {
		taskID, err := h.queue.Enqueue(c.Request.Context(), req.RecipeRequest, complexity)
		switch {
		case err == nil:
			c.JSON(http.StatusOK, GenerateResponse{Success: true, TaskID: taskID})
			return
		case errors.Is(err, taskqueue.ErrQueueFull):
			// Queue saturated: answer the async submit synchronously. The
			// client already treats a recipe payload without task_id as Done.
			h.logger.Warn("generation queue full, handling synchronously")
		default:
			h.logger.Error("failed to enqueue generation", zap.Error(err))
			c.JSON(http.StatusInternalServerError, GenerateResponse{Success: false, Error: "failed to queue request"})
			return
		}
	}

	h.generateSync(c, req.RecipeRequest, complexity)
}

func (h *GenerateHandler) generateSync(c *gin.Context, request, complexity string) {
	result, err := h.generator.Generate(c.Request.Context(), request, complexity, nil)
	if err != nil {
		h.logger.Error("synchronous generation failed",
			zap.String("request", request),
			zap.Error(err),
		)
		if logErr := h.recipes.LogFailure(c.Request.Context(), request, err.Error(), 0); logErr != nil {
			h.logger.Warn("failed to record generation failure", zap.Error(logErr))
		}
		c.JSON(http.StatusInternalServerError, GenerateResponse{Success: false, Error: "Recipe generation failed"})
		return
	}

	resp := GenerateResponse{
		Success:        true,
		Recipe:         result.Recipe,
		Enhancements:   result.Enhancements,
		Nutrition:      result.Nutrition,
		Quality:        result.Quality,
		GenerationTime: result.GenerationTime,
		Iterations:     result.Iterations,
	}

	recipe, err := h.recipes.SaveResult(c.Request.Context(), request, complexity, result)
	if err != nil {
		// The caller still gets their recipe; persistence is logged and moved
		// past.
		h.logger.Error("failed to persist generated recipe", zap.Error(err))
	} else {
		resp.RecipeID = recipe.ID.String()
	}

	c.JSON(http.StatusOK, resp)
}

// Status reports the current state of a queued generation task.
func (h *GenerateHandler) Status(c *gin.Context) {
	taskID := c.Param("task_id")

	task, err := h.queue.Status(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, taskqueue.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		h.logger.Error("failed to fetch task status",
			zap.String("task_id", taskID),
			zap.Error(err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch task status"})
		return
	}

	c.JSON(http.StatusOK, StatusResponse{
		TaskID: task.ID,
		Status: string(task.Status),
		Progress: &ProgressInfo{
			Step:    task.Progress.Step,
			Message: task.Progress.Message,
		},
		Result: task.Result,
		Error:  task.Error,
	})
}

func normalizeComplexity(complexity string) string {
	switch complexity {
	case "Simple", "Medium", "Gourmet":
		return complexity
	default:
		return "Medium"
	}
}
