package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldscope/reportq/internal/domain"
	"github.com/fieldscope/reportq/shared/postgresql"
	"github.com/jmoiron/sqlx"
)

const jobColumns = `
	job_id, job_type, payload, status, claimed_by,
	result, error_message, created_at, started_at, finished_at
`

// Storage is the durable job store shared by the API and worker services.
// All cross-process coordination goes through this table; the conditional
// claim updates are the only mutual-exclusion mechanism in the system.
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a Storage backed by the given PostgreSQL client.
func NewStorage(pg *postgresql.Client, logger *slog.Logger) *Storage {
	return &Storage{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// CreateJob inserts a new job row in queued status.
func (s *Storage) CreateJob(ctx context.Context, job *domain.Job) error {
	query := `
		INSERT INTO jobs (
			job_id, job_type, payload, status, created_at
		) VALUES (
			$1, $2, $3, $4, $5
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		job.JobID,
		job.JobType,
		job.Payload,
		job.Status,
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}

	return nil
}

// GetJobByID retrieves a single job by its ID.
func (s *Storage) GetJobByID(ctx context.Context, jobID string) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1`

	var job domain.Job
	if err := s.db.GetContext(ctx, &job, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// JobFilter narrows ListJobs results. Zero values mean "no filter".
type JobFilter struct {
	JobType  string
	Status   string
	PageSize int
	Cursor   *JobCursor
}

// JobCursor is a (created_at, job_id) keyset cursor for stable pagination.
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// ListJobs returns jobs ordered by created_at DESC, job_id DESC, fetching
// one row beyond PageSize so the caller can detect whether more exist.
func (s *Storage) ListJobs(ctx context.Context, filter JobFilter) ([]domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.JobType != "" {
		query += fmt.Sprintf(" AND job_type = $%d", argIdx)
		args = append(args, filter.JobType)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	query += " ORDER BY created_at DESC, job_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	var jobs []domain.Job
	if err := s.db.SelectContext(ctx, &jobs, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}

	return jobs, nil
}

// NextQueued returns the oldest queued job without mutating it, or nil when
// the queue is empty. Claiming is a separate step: use ClaimNext when the
// caller intends to process the job, otherwise two readers can race between
// the read and the claim.
func (s *Storage) NextQueued(ctx context.Context) (*domain.Job, error) {
	query := `SELECT ` + jobColumns + `
		FROM jobs
		WHERE status = $1
		ORDER BY created_at ASC, job_id ASC
		LIMIT 1
	`

	var job domain.Job
	if err := s.db.GetContext(ctx, &job, query, domain.JobStatusQueued); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch next queued job: %w", err)
	}

	return &job, nil
}

// ClaimNext atomically claims the oldest queued job: it selects the row with
// the smallest created_at, sets status=processing, claimed_by and started_at
// in one statement, and returns the claimed job. Returns nil when the queue
// is empty. FOR UPDATE SKIP LOCKED keeps concurrent drain loops from ever
// selecting the same row.
func (s *Storage) ClaimNext(ctx context.Context, claimedBy string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    claimed_by = $2,
		    started_at = NOW()
		WHERE job_id = (
			SELECT job_id FROM jobs
			WHERE status = $3
			ORDER BY created_at ASC, job_id ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	var job domain.Job
	err := s.db.GetContext(ctx, &job, query, domain.JobStatusProcessing, claimedBy, domain.JobStatusQueued)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim next job: %w", err)
	}

	s.logger.Info("Job claimed",
		slog.String("job_id", job.JobID),
		slog.String("job_type", job.JobType),
		slog.String("claimed_by", claimedBy),
	)

	return &job, nil
}

// ClaimJob attempts to claim a specific job. The update only applies while
// the row is still queued; at most one concurrent caller ever succeeds.
// Losers get domain.ErrJobAlreadyClaimed, which is a skip signal, not a failure.
func (s *Storage) ClaimJob(ctx context.Context, jobID, claimedBy string) (*domain.Job, error) {
	query := `
		UPDATE jobs
		SET status = $1,
		    claimed_by = $2,
		    started_at = NOW()
		WHERE job_id = $3
		  AND status = $4
		RETURNING ` + jobColumns

	var job domain.Job
	err := s.db.GetContext(ctx, &job, query, domain.JobStatusProcessing, claimedBy, jobID, domain.JobStatusQueued)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("Failed to claim job - already claimed or not found",
				slog.String("job_id", jobID),
				slog.String("claimed_by", claimedBy),
			)
			return nil, domain.ErrJobAlreadyClaimed
		}
		return nil, fmt.Errorf("failed to claim job: %w", err)
	}

	s.logger.Info("Job claimed",
		slog.String("job_id", job.JobID),
		slog.String("job_type", job.JobType),
		slog.String("claimed_by", claimedBy),
	)

	return &job, nil
}

// MarkCompleted moves a job to completed and records its result. Valid only
// from processing; a completion against any other state is an invariant
// violation that is logged before the row is overwritten.
func (s *Storage) MarkCompleted(ctx context.Context, jobID string, result []byte) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    result = $2,
		    error_message = NULL,
		    finished_at = NOW()
		WHERE job_id = $3
		  AND status = $4
	`

	res, err := s.db.ExecContext(ctx, query, domain.JobStatusCompleted, jsonArg(result), jobID, domain.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark job completed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		s.logger.Warn("Completing job that is not in processing status",
			slog.String("job_id", jobID),
		)
		return s.overwriteTerminal(ctx, jobID, domain.JobStatusCompleted, result, "")
	}

	return nil
}

// MarkFailed moves a job to failed and records the error message. Valid from
// queued (a job may fail before claim, e.g. at dispatch time) or processing.
func (s *Storage) MarkFailed(ctx context.Context, jobID, errMsg string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    result = NULL,
		    error_message = $2,
		    finished_at = NOW()
		WHERE job_id = $3
		  AND status IN ($4, $5)
	`

	res, err := s.db.ExecContext(ctx, query, domain.JobStatusFailed, errMsg, jobID,
		domain.JobStatusQueued, domain.JobStatusProcessing)
	if err != nil {
		return fmt.Errorf("failed to mark job failed: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		s.logger.Warn("Failing job that is already terminal",
			slog.String("job_id", jobID),
		)
		return s.overwriteTerminal(ctx, jobID, domain.JobStatusFailed, nil, errMsg)
	}

	return nil
}

// overwriteTerminal applies a terminal state unconditionally. Only reached
// after the conditional update matched no row, which the caller has logged.
func (s *Storage) overwriteTerminal(ctx context.Context, jobID, status string, result []byte, errMsg string) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    result = $2,
		    error_message = NULLIF($3, ''),
		    finished_at = NOW()
		WHERE job_id = $4
	`

	if _, err := s.db.ExecContext(ctx, query, status, jsonArg(result), errMsg, jobID); err != nil {
		return fmt.Errorf("failed to overwrite job state: %w", err)
	}

	return nil
}

// jsonArg converts a raw JSON document to a driver-friendly argument for a
// jsonb column. lib/pq encodes []byte as bytea, so JSON goes over as text.
func jsonArg(doc []byte) interface{} {
	if len(doc) == 0 {
		return nil
	}
	return string(doc)
}
