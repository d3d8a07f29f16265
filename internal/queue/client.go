// Package queue is the thin producer/consumer contract over the job store.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldscope/reportq/internal/domain"
	"github.com/fieldscope/reportq/internal/notify"
	"github.com/google/uuid"
)

// Store is the slice of the job store the queue client needs.
type Store interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	ClaimNext(ctx context.Context, claimedBy string) (*domain.Job, error)
}

// Client enqueues jobs for producers and claims them for consumers.
type Client struct {
	store       Store
	notifier    notify.Notifier
	logger      *slog.Logger
	wakeTimeout time.Duration
}

// NewClient creates a queue client. The notifier is invoked asynchronously
// after every successful enqueue; pass a NopNotifier for consumers that
// never enqueue.
func NewClient(store Store, notifier notify.Notifier, logger *slog.Logger) *Client {
	return &Client{
		store:       store,
		notifier:    notifier,
		logger:      logger,
		wakeTimeout: 10 * time.Second,
	}
}

// Enqueue validates the job type and payload, persists a new queued job and
// returns it immediately. The wake signal to the worker is fired in the
// background: enqueue success is independent of trigger delivery, and the
// caller is expected to poll the job record for the outcome.
func (c *Client) Enqueue(ctx context.Context, jobType string, payload json.RawMessage) (*domain.Job, error) {
	if !domain.IsKnownJobType(jobType) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidJobType, jobType)
	}

	if !json.Valid(payload) {
		return nil, domain.ErrInvalidPayload
	}

	job := &domain.Job{
		JobID:     uuid.New().String(),
		JobType:   jobType,
		Payload:   string(payload),
		Status:    domain.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}

	if err := c.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	c.logger.Info("Job enqueued",
		slog.String("job_id", job.JobID),
		slog.String("job_type", job.JobType),
	)

	// Fire-and-forget: a delivery failure is logged, never surfaced, so the
	// enqueue response does not depend on the worker being reachable.
	go c.wake(job.JobID)

	return job, nil
}

// Next atomically claims the oldest queued job for the given worker, or
// returns nil when the queue is empty.
func (c *Client) Next(ctx context.Context, claimedBy string) (*domain.Job, error) {
	return c.store.ClaimNext(ctx, claimedBy)
}

func (c *Client) wake(jobID string) {
	ctx, cancel := context.WithTimeout(context.Background(), c.wakeTimeout)
	defer cancel()

	if err := c.notifier.Wake(ctx, jobID); err != nil {
		c.logger.Warn("Wake signal delivery failed",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
	}
}
