package handler

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/fieldscope/reportq/internal/domain"
	"github.com/fieldscope/reportq/internal/storage"
)

// Enqueuer is the producer side of the queue client.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType string, payload json.RawMessage) (*domain.Job, error)
}

// JobReader is the inspection slice of the job store.
type JobReader interface {
	GetJobByID(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]domain.Job, error)
}

// Dependencies holds everything the API handlers need.
type Dependencies struct {
	Logger  *slog.Logger
	Queue   Enqueuer
	Storage JobReader
}

// JobHandler handles job-related HTTP requests.
type JobHandler struct {
	logger  *slog.Logger
	queue   Enqueuer
	storage JobReader
}

// NewJobHandler creates a new JobHandler instance.
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:  deps.Logger,
		queue:   deps.Queue,
		storage: deps.Storage,
	}
}
