package worker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/fieldscope/reportq/internal/domain"
)

// Queue is the consumer side of the job queue: an atomic claim of the oldest
// queued job, or nil when empty.
type Queue interface {
	Next(ctx context.Context, claimedBy string) (*domain.Job, error)
}

// DrainResult aggregates one drain run. Processed counts every job this loop
// claimed and drove to a terminal state, success or failure alike; Errors
// holds only the errors that escaped individual jobs.
type DrainResult struct {
	Processed int
	Errors    []error
}

// ErrorMessages returns the per-job errors as strings, for HTTP responses.
func (r *DrainResult) ErrorMessages() []string {
	msgs := make([]string, len(r.Errors))
	for i, err := range r.Errors {
		msgs[i] = err.Error()
	}
	return msgs
}

// DrainLoop repeatedly claims and processes jobs until the queue is empty.
// Multiple drain loops may run concurrently across processes; the store's
// atomic claim is the only thing keeping them from double-processing, and it
// is sufficient.
type DrainLoop struct {
	queue     Queue
	processor *Processor
	claimedBy string
	logger    *slog.Logger
}

// NewDrainLoop creates a drain loop claiming under the given worker identifier.
func NewDrainLoop(queue Queue, processor *Processor, claimedBy string, logger *slog.Logger) *DrainLoop {
	return &DrainLoop{
		queue:     queue,
		processor: processor,
		claimedBy: claimedBy,
		logger:    logger,
	}
}

// DrainAll processes jobs until the queue is empty. A per-job failure is
// recorded and the loop continues; only a store-access error while fetching
// the next job aborts the run, returned alongside the partial result.
func (d *DrainLoop) DrainAll(ctx context.Context) (*DrainResult, error) {
	result := &DrainResult{}

	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		job, err := d.queue.Next(ctx, d.claimedBy)
		if err != nil {
			return result, fmt.Errorf("failed to fetch next job: %w", err)
		}
		if job == nil {
			break
		}

		_, jobErr := d.processor.Run(ctx, job)
		result.Processed++
		if jobErr != nil {
			result.Errors = append(result.Errors, fmt.Errorf("job %s: %w", job.JobID, jobErr))
		}
	}

	d.logger.Info("Drain run finished",
		slog.Int("processed", result.Processed),
		slog.Int("errors", len(result.Errors)),
	)

	return result, nil
}
