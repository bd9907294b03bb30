package taskqueue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/crumbworks/mealforge/internal/service"
)

// Generator runs the generation pipeline for a task.
type Generator interface {
	Generate(ctx context.Context, request, complexity string, progress service.ProgressFunc) (*service.GenerationResult, error)
}

// ResultHandler is invoked after a task reaches a terminal state. A nil
// result means the task failed with task.Error set.
type ResultHandler func(ctx context.Context, task *Task)

// Config sizes the queue and its worker pool.
type Config struct {
	// QueueSize bounds how many tasks may wait for a worker.
	QueueSize int
	// MaxConcurrent limits simultaneous recipe generations.
	MaxConcurrent int
	// GenerationTimeout caps how long a single pipeline run may take.
	GenerationTimeout time.Duration
}

// DefaultConfig returns the queue sizing the service ships with.
func DefaultConfig() Config {
	return Config{
		QueueSize:         50,
		MaxConcurrent:     3,
		GenerationTimeout: 3 * time.Minute,
	}
}

// Queue accepts generation tasks, runs them through a bounded worker pool and
// records task state in the Store for the status endpoint to serve.
type Queue struct {
	store   Store
	gen     Generator
	cfg     Config
	logger  *zap.Logger
	onDone  ResultHandler
	tasks   chan *Task
	quit    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
}

func New(store Store, gen Generator, cfg Config, logger *zap.Logger) *Queue {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultConfig().QueueSize
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = DefaultConfig().GenerationTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		store:  store,
		gen:    gen,
		cfg:    cfg,
		logger: logger,
		tasks:  make(chan *Task, cfg.QueueSize),
		quit:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

// SetResultHandler registers a callback for terminal tasks, used to persist
// completed recipes and failure logs.
func (q *Queue) SetResultHandler(handler ResultHandler) {
	q.onDone = handler
}

// Start launches the worker pool.
func (q *Queue) Start() {
	if q.started {
		return
	}
	q.started = true

	for i := 0; i < q.cfg.MaxConcurrent; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
}

// Stop waits for in-flight generations to finish, then releases the workers.
// Queued tasks that no worker has picked up yet are abandoned.
func (q *Queue) Stop() {
	close(q.quit)
	q.wg.Wait()
	q.cancel()
}

// Enqueue registers a new task and returns its id. ErrQueueFull is returned
// when no worker slot will be available soon; callers then generate
// synchronously instead.
func (q *Queue) Enqueue(ctx context.Context, request, complexity string) (string, error) {
	task := &Task{
		ID:         uuid.New().String(),
		Request:    request,
		Complexity: complexity,
		Status:     StatusQueued,
		Progress:   Progress{Step: "queued", Message: "Request queued for processing"},
		CreatedAt:  time.Now(),
	}

	if err := q.store.Save(ctx, task); err != nil {
		return "", err
	}

	select {
	case q.tasks <- task:
	default:
		return "", ErrQueueFull
	}

	q.logger.Info("recipe generation queued",
		zap.String("task_id", task.ID),
		zap.String("complexity", complexity),
	)
	return task.ID, nil
}

// Status returns the stored state for a task id.
func (q *Queue) Status(ctx context.Context, taskID string) (*Task, error) {
	return q.store.Get(ctx, taskID)
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()

	for {
		select {
		case <-q.quit:
			return
		case task := <-q.tasks:
			q.process(task)
		}
	}
}

func (q *Queue) process(task *Task) {
	ctx, cancel := context.WithTimeout(q.ctx, q.cfg.GenerationTimeout)
	defer cancel()

	task.Status = StatusProcessing
	task.Progress = Progress{Step: "processing", Message: "Starting recipe generation..."}
	q.saveState(ctx, task)

	result, err := q.gen.Generate(ctx, task.Request, task.Complexity, func(step, message string) {
		task.Progress = Progress{Step: step, Message: message}
		q.saveState(ctx, task)
	})

	if err != nil {
		task.Status = StatusFailed
		task.Error = err.Error()
		task.Progress = Progress{Step: "failed", Message: "Generation failed: " + err.Error()}
		q.logger.Error("recipe generation failed",
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
	} else {
		task.Status = StatusCompleted
		task.Result = result
		task.Progress = Progress{Step: "completed", Message: "Recipe generation complete!"}
		q.logger.Info("recipe generation completed",
			zap.String("task_id", task.ID),
			zap.Int("generation_time", result.GenerationTime),
		)
	}

	// Terminal state must be visible to pollers even if the worker context
	// has expired.
	q.saveState(context.Background(), task)

	if q.onDone != nil {
		q.onDone(context.Background(), task)
	}
}

func (q *Queue) saveState(ctx context.Context, task *Task) {
	if err := q.store.Save(ctx, task); err != nil {
		q.logger.Warn("failed to save task state",
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
	}
}
