// Package worker hosts the drain loop and the job processor. The worker has
// no resident scheduler: it runs when something wakes it, either the trigger
// gateway hitting the drain endpoint or a message on the wake queue, and it
// stops when the queue is empty.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/fieldscope/reportq/shared/rabbitmq"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Worker wires the drain loop, the processor, and the wake transports.
type Worker struct {
	logger       *slog.Logger
	processor    *Processor
	drain        *DrainLoop
	rabbitClient *rabbitmq.Client
	workerID     string
}

// Config holds worker construction parameters.
type Config struct {
	Logger *slog.Logger
	Store  JobStore
	Queue  Queue
	// Registry binds job types to handlers.
	Registry *Registry
	// JobTimeout caps a single handler invocation. Zero disables the cap.
	JobTimeout time.Duration
	// RabbitClient enables the AMQP wake consumer when non-nil.
	RabbitClient *rabbitmq.Client
}

// WorkerID derives a unique identifier for this worker process. It is
// recorded as claimed_by on every job this process claims.
func WorkerID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("worker-%s-%s", host, uuid.New().String()[:8])
}

// NewWorker creates a worker instance.
func NewWorker(cfg *Config) *Worker {
	workerID := WorkerID()
	processor := NewProcessor(cfg.Store, cfg.Registry, workerID, cfg.JobTimeout, cfg.Logger)

	return &Worker{
		logger:       cfg.Logger,
		processor:    processor,
		drain:        NewDrainLoop(cfg.Queue, processor, workerID, cfg.Logger),
		rabbitClient: cfg.RabbitClient,
		workerID:     workerID,
	}
}

// ID returns the worker identifier used for claims.
func (w *Worker) ID() string {
	return w.workerID
}

// Drain runs one drain pass. Exposed for the wake transports and tests.
func (w *Worker) Drain(ctx context.Context) (*DrainResult, error) {
	return w.drain.DrainAll(ctx)
}

// Router builds the worker's HTTP surface: the drain entry point the trigger
// gateway wakes, plus a health check.
func (w *Worker) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"service":   "report-worker-service",
			"worker_id": w.workerID,
		})
	})

	r.POST("/internal/v1/drain", w.handleDrain)

	return r
}

// handleDrain drains the queue synchronously. The trigger gateway does not
// wait for this response; it exists for operators and tests.
func (w *Worker) handleDrain(c *gin.Context) {
	w.logger.Info("Drain requested",
		slog.String("worker_id", w.workerID),
		slog.String("ip", c.ClientIP()),
	)

	// The waker fires and forgets: it may disconnect long before the drain
	// finishes. The drain must not die with its request.
	result, err := w.drain.DrainAll(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"processed": result.Processed,
			"errors":    result.ErrorMessages(),
			"error":     err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"processed": result.Processed,
		"errors":    result.ErrorMessages(),
	})
}
