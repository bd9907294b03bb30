package main

import (
	"context"
	"log"
	"net"

	"go.uber.org/zap"

	"github.com/crumbworks/mealforge/config"
	"github.com/crumbworks/mealforge/internal/api"
	"github.com/crumbworks/mealforge/internal/database"
	"github.com/crumbworks/mealforge/internal/middleware"
	"github.com/crumbworks/mealforge/internal/router"
	"github.com/crumbworks/mealforge/internal/server"
	"github.com/crumbworks/mealforge/internal/service"
	"github.com/crumbworks/mealforge/internal/taskqueue"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	db, err := database.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	redisClient, err := database.NewRedisClient(cfg, logger)
	if err != nil {
		logger.Fatal("failed to connect to redis", zap.Error(err))
	}

	llm, err := service.NewLLMService(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize LLM service", zap.Error(err))
	}

	generator := service.NewRecipeGenerator(llm, logger)
	recipes := service.NewRecipeService(db)

	store := taskqueue.NewRedisStore(redisClient, cfg.TaskTTL)
	queue := taskqueue.New(store, generator, taskqueue.Config{
		QueueSize:         cfg.QueueSize,
		MaxConcurrent:     cfg.MaxConcurrent,
		GenerationTimeout: cfg.GenerationTimeout,
	}, logger)

	// Async results land in Postgres the same way synchronous ones do.
	queue.SetResultHandler(func(ctx context.Context, task *taskqueue.Task) {
		switch task.Status {
		case taskqueue.StatusCompleted:
			if _, err := recipes.SaveResult(ctx, task.Request, task.Complexity, task.Result); err != nil {
				logger.Error("failed to persist generated recipe",
					zap.String("task_id", task.ID), zap.Error(err))
			}
		case taskqueue.StatusFailed:
			genTime := 0
			if task.Result != nil {
				genTime = int(task.Result.GenerationTime)
			}
			if err := recipes.LogFailure(ctx, task.Request, task.Error, genTime); err != nil {
				logger.Error("failed to record generation failure",
					zap.String("task_id", task.ID), zap.Error(err))
			}
		}
	})

	limiter := middleware.NewRateLimiter(redisClient, middleware.RateLimitConfig{
		Window:    cfg.RateLimitWindow,
		Limit:     cfg.RateLimitMax,
		KeyPrefix: "recipe:ratelimit",
	}, logger)

	engine := router.Setup(router.Options{
		Generate:    api.NewGenerateHandler(queue, generator, recipes, logger),
		Recipes:     api.NewRecipeHandler(recipes, logger),
		Logger:      logger,
		CORSOrigins: cfg.CORSOrigins,
		RateLimiter: limiter,
	})

	srv := server.New(engine, queue, logger)
	addr := net.JoinHostPort(cfg.ServerHost, cfg.ServerPort)
	if err := srv.Run(addr); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}
