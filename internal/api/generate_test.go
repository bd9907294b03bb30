package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/crumbworks/mealforge/internal/service"
	"github.com/crumbworks/mealforge/internal/taskqueue"
	"github.com/crumbworks/mealforge/internal/testhelpers"
)

// mapStore is an in-memory Store for handler tests.
type mapStore struct {
	mu    sync.Mutex
	tasks map[string]*taskqueue.Task
}

func newMapStore() *mapStore {
	return &mapStore{tasks: make(map[string]*taskqueue.Task)}
}

func (s *mapStore) Save(_ context.Context, task *taskqueue.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *task
	s.tasks[task.ID] = &copied
	return nil
}

func (s *mapStore) Get(_ context.Context, taskID string) (*taskqueue.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	task, ok := s.tasks[taskID]
	if !ok {
		return nil, taskqueue.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

// stubGenerator returns a canned result or error and records the requests it
// saw.
type stubGenerator struct {
	mu       sync.Mutex
	result   *service.GenerationResult
	err      error
	requests []string
}

func (g *stubGenerator) Generate(_ context.Context, request, _ string, progress service.ProgressFunc) (*service.GenerationResult, error) {
	g.mu.Lock()
	g.requests = append(g.requests, request)
	g.mu.Unlock()
	if progress != nil {
		progress("generating", "Creating base recipe...")
	}
	if g.err != nil {
		return nil, g.err
	}
	return g.result, nil
}

func stubResult(title string) *service.GenerationResult {
	return &service.GenerationResult{
		Recipe: &service.RecipeData{
			Title:        title,
			Description:  "a test recipe",
			Servings:     service.ServingsType{Value: "2"},
			Difficulty:   "Easy",
			Ingredients:  []string{"one"},
			Instructions: []string{"cook"},
			Tags:         []string{},
			MealType:     "dinner",
		},
		GenerationTime: 3,
		Iterations:     1,
	}
}

type testEnv struct {
	engine *gin.Engine
	queue  *taskqueue.Queue
	store  *mapStore
	gen    *stubGenerator
}

func setupHandler(t *testing.T, gen *stubGenerator, queueSize int) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testhelpers.SetupTestDatabase(t)
	recipes := service.NewRecipeService(db)
	store := newMapStore()
	logger := zaptest.NewLogger(t)

	queue := taskqueue.New(store, gen, taskqueue.Config{
		QueueSize:         queueSize,
		MaxConcurrent:     1,
		GenerationTimeout: 5 * time.Second,
	}, logger)
	t.Cleanup(queue.Stop)

	handler := NewGenerateHandler(queue, gen, recipes, logger)
	engine := gin.New()
	handler.RegisterRoutes(engine.Group("/api/v1"))

	return &testEnv{engine: engine, queue: queue, store: store, gen: gen}
}

func postGenerate(t *testing.T, engine *gin.Engine, body string) (*httptest.ResponseRecorder, GenerateResponse) {
	t.Helper()
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/generate", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return w, resp
}

func TestGenerateSynchronous(t *testing.T) {
	env := setupHandler(t, &stubGenerator{result: stubResult("Stub Pasta")}, 10)

	w, resp := postGenerate(t, env.engine, `{"recipe_request":"pasta","complexity":"Simple"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.Empty(t, resp.TaskID)
	require.NotNil(t, resp.Recipe)
	assert.Equal(t, "Stub Pasta", resp.Recipe.Title)
	assert.NotEmpty(t, resp.RecipeID)
}

func TestGenerateQueued(t *testing.T) {
	// Queue is never started, so the task stays queued and visible via the
	// status endpoint.
	env := setupHandler(t, &stubGenerator{result: stubResult("Stub Pasta")}, 10)

	w, resp := postGenerate(t, env.engine, `{"recipe_request":"pasta","use_queue":true}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
	assert.NotEmpty(t, resp.TaskID)
	assert.Nil(t, resp.Recipe)

	sw := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/generate/status/"+resp.TaskID, nil)
	env.engine.ServeHTTP(sw, req)

	assert.Equal(t, http.StatusOK, sw.Code)
	var status StatusResponse
	require.NoError(t, json.Unmarshal(sw.Body.Bytes(), &status))
	assert.Equal(t, "queued", status.Status)
	require.NotNil(t, status.Progress)
	assert.Equal(t, "queued", status.Progress.Step)
}

func TestGenerateQueuedCompletes(t *testing.T) {
	env := setupHandler(t, &stubGenerator{result: stubResult("Stub Pasta")}, 10)
	env.queue.Start()

	_, resp := postGenerate(t, env.engine, `{"recipe_request":"pasta","use_queue":true}`)
	require.NotEmpty(t, resp.TaskID)

	deadline := time.Now().Add(2 * time.Second)
	var status StatusResponse
	for {
		sw := httptest.NewRecorder()
		req, _ := http.NewRequest(http.MethodGet, "/api/v1/generate/status/"+resp.TaskID, nil)
		env.engine.ServeHTTP(sw, req)
		require.Equal(t, http.StatusOK, sw.Code)
		require.NoError(t, json.Unmarshal(sw.Body.Bytes(), &status))
		if status.Status == "completed" || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.Equal(t, "completed", status.Status)
	require.NotNil(t, status.Result)
	assert.Equal(t, "Stub Pasta", status.Result.Recipe.Title)
}

func TestGenerateQueueFullFallsBackToSync(t *testing.T) {
	// Size-1 queue with no workers running: the second submit finds the
	// queue full and is answered synchronously.
	env := setupHandler(t, &stubGenerator{result: stubResult("Stub Pasta")}, 1)

	_, first := postGenerate(t, env.engine, `{"recipe_request":"pasta","use_queue":true}`)
	assert.NotEmpty(t, first.TaskID)

	w, second := postGenerate(t, env.engine, `{"recipe_request":"soup","use_queue":true}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, second.Success)
	assert.Empty(t, second.TaskID)
	require.NotNil(t, second.Recipe)
}

func TestGenerateEmptyRequest(t *testing.T) {
	env := setupHandler(t, &stubGenerator{result: stubResult("Stub Pasta")}, 10)

	w, resp := postGenerate(t, env.engine, `{"recipe_request":"   "}`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Recipe request is required", resp.Error)
	assert.Empty(t, env.gen.requests)
}

func TestGenerateInvalidBody(t *testing.T) {
	env := setupHandler(t, &stubGenerator{result: stubResult("Stub Pasta")}, 10)

	w, resp := postGenerate(t, env.engine, `{"recipe_request":`)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
}

func TestGenerateSyncFailure(t *testing.T) {
	env := setupHandler(t, &stubGenerator{err: errors.New("model unavailable")}, 10)

	w, resp := postGenerate(t, env.engine, `{"recipe_request":"pasta"}`)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.False(t, resp.Success)
	assert.Equal(t, "Recipe generation failed", resp.Error)
}

func TestStatusNotFound(t *testing.T) {
	env := setupHandler(t, &stubGenerator{result: stubResult("Stub Pasta")}, 10)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/generate/status/no-such-task", nil)
	env.engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Task not found")
}

func TestNormalizeComplexity(t *testing.T) {
	for in, want := range map[string]string{
		"Simple":  "Simple",
		"Medium":  "Medium",
		"Gourmet": "Gourmet",
		"":        "Medium",
		"extreme": "Medium",
	} {
		t.Run(fmt.Sprintf("%q", in), func(t *testing.T) {
			assert.Equal(t, want, normalizeComplexity(in))
		})
	}
}
