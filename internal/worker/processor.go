package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldscope/reportq/internal/domain"
)

// JobStore is the slice of the job store the processor needs.
type JobStore interface {
	ClaimJob(ctx context.Context, jobID, claimedBy string) (*domain.Job, error)
	MarkCompleted(ctx context.Context, jobID string, result []byte) error
	MarkFailed(ctx context.Context, jobID, errMsg string) error
}

// Outcome is the result of a single Process/Run invocation.
type Outcome int

const (
	// OutcomeSkipped means another worker already owned the job. Not an error.
	OutcomeSkipped Outcome = iota
	// OutcomeCompleted means the handler succeeded and the result was stored.
	OutcomeCompleted
	// OutcomeFailed means the job reached the failed state. The triggering
	// error is also returned so the drain loop can record it.
	OutcomeFailed
)

// Processor drives one job from queued to a terminal state.
type Processor struct {
	store      JobStore
	registry   *Registry
	claimedBy  string
	jobTimeout time.Duration
	logger     *slog.Logger
}

// NewProcessor creates a processor claiming jobs under the given worker
// identifier. A jobTimeout of zero disables the per-job deadline.
func NewProcessor(store JobStore, registry *Registry, claimedBy string, jobTimeout time.Duration, logger *slog.Logger) *Processor {
	return &Processor{
		store:      store,
		registry:   registry,
		claimedBy:  claimedBy,
		jobTimeout: jobTimeout,
		logger:     logger,
	}
}

// Process claims the job by ID and runs it. A claim conflict is an idempotent
// no-op: concurrent drain loops racing for the same job must not fail, so the
// loser returns OutcomeSkipped with no error.
func (p *Processor) Process(ctx context.Context, jobID string) (Outcome, error) {
	job, err := p.store.ClaimJob(ctx, jobID, p.claimedBy)
	if err != nil {
		if errors.Is(err, domain.ErrJobAlreadyClaimed) {
			p.logger.Info("Job already claimed, skipping",
				slog.String("job_id", jobID),
			)
			return OutcomeSkipped, nil
		}
		return OutcomeSkipped, fmt.Errorf("failed to claim job: %w", err)
	}

	return p.Run(ctx, job)
}

// Run dispatches an already-claimed job to its handler and records the
// terminal state. The handler error is re-raised to the caller after it has
// been captured into the job record, so per-job failures stay inspectable
// and the drain loop can keep going.
func (p *Processor) Run(ctx context.Context, job *domain.Job) (Outcome, error) {
	// Terminal writes use a non-cancelable context: once a job is claimed it
	// must reach completed or failed even if the caller goes away mid-run,
	// or it is stranded in processing with no reclaim path.
	recordCtx := context.WithoutCancel(ctx)

	handler, ok := p.registry.Get(job.JobType)
	if !ok {
		// Unknown type is a failed outcome, not a crash: the job is marked
		// failed with a descriptive message rather than silently dropped.
		dispatchErr := fmt.Errorf("unknown job type %q", job.JobType)
		if err := p.store.MarkFailed(recordCtx, job.JobID, dispatchErr.Error()); err != nil {
			return OutcomeFailed, fmt.Errorf("failed to record dispatch failure: %w", err)
		}
		return OutcomeFailed, dispatchErr
	}

	handlerCtx := ctx
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		handlerCtx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}

	result, handlerErr := handler(handlerCtx, json.RawMessage(job.Payload))
	if handlerErr != nil {
		p.logger.Error("Job handler failed",
			slog.String("job_id", job.JobID),
			slog.String("job_type", job.JobType),
			slog.String("error", handlerErr.Error()),
		)

		if err := p.store.MarkFailed(recordCtx, job.JobID, handlerErr.Error()); err != nil {
			return OutcomeFailed, fmt.Errorf("failed to record handler failure: %w", err)
		}
		return OutcomeFailed, handlerErr
	}

	if err := p.store.MarkCompleted(recordCtx, job.JobID, result); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to record job result: %w", err)
	}

	p.logger.Info("Job completed",
		slog.String("job_id", job.JobID),
		slog.String("job_type", job.JobType),
	)

	return OutcomeCompleted, nil
}
