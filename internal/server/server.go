package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/crumbworks/mealforge/internal/taskqueue"
)

// Server owns the HTTP listener and the generation queue; both start and
// stop together so in-flight generations finish before shutdown.
type Server struct {
	router *gin.Engine
	queue  *taskqueue.Queue
	logger *zap.Logger
}

// New creates a new server instance
func New(router *gin.Engine, queue *taskqueue.Queue, logger *zap.Logger) *Server {
	return &Server{
		router: router,
		queue:  queue,
		logger: logger,
	}
}

// Run starts the queue workers and the HTTP server, then blocks until an
// interrupt arrives and shutdown completes.
func (s *Server) Run(addr string) error {
	s.queue.Start()

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	s.logger.Info("server listening", zap.String("addr", addr))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		s.queue.Stop()
		return err
	case sig := <-quit:
		s.logger.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		s.logger.Error("http shutdown failed", zap.Error(err))
	}

	// Workers drain after the listener closes so no new tasks arrive
	// while generations finish.
	s.queue.Stop()
	return nil
}
