package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/fieldscope/reportq/internal/api/dto"
	"github.com/fieldscope/reportq/internal/domain"
	"github.com/fieldscope/reportq/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CreateJob handles POST /api/v1/jobs.
// It validates the request, enqueues the job, and returns 202 as soon as the
// record is persisted. Whether the trigger or the handler later succeeds is
// irrelevant here: callers poll the job resource for the outcome.
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid request body",
		})
		return
	}

	job, err := h.queue.Enqueue(c.Request.Context(), req.JobType, req.Payload)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidJobType):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   err.Error(),
				"allowed": domain.KnownJobTypes(),
			})
		case errors.Is(err, domain.ErrInvalidPayload):
			c.JSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
		default:
			h.logger.Error("Failed to enqueue job", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "failed to enqueue job",
			})
		}
		return
	}

	c.JSON(http.StatusAccepted, dto.CreateJobResponse{
		JobID:     job.JobID,
		JobType:   job.JobType,
		Status:    job.Status,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
	})
}

// GetJob handles GET /api/v1/jobs/:job_id.
func (h *JobHandler) GetJob(c *gin.Context) {
	jobID := c.Param("job_id")

	if _, err := uuid.Parse(jobID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "job_id must be a valid UUID",
		})
		return
	}

	job, err := h.storage.GetJobByID(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, domain.ErrJobNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "job not found",
			})
			return
		}
		h.logger.Error("Failed to get job",
			slog.String("job_id", jobID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to get job",
		})
		return
	}

	c.JSON(http.StatusOK, toJobDTO(job))
}

// ListJobs handles GET /api/v1/jobs with status/type filters and
// cursor-based pagination.
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid query parameters",
		})
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = 20
	}
	if req.PageSize > 100 {
		req.PageSize = 100
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid cursor",
		})
		return
	}

	jobs, err := h.storage.ListJobs(c.Request.Context(), storage.JobFilter{
		JobType:  req.JobType,
		Status:   req.Status,
		PageSize: req.PageSize,
		Cursor:   cursor,
	})
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to list jobs",
		})
		return
	}

	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	out := make([]dto.JobDTO, len(jobs))
	for i := range jobs {
		out[i] = toJobDTO(&jobs[i])
	}

	var nextCursor string
	if hasMore {
		last := jobs[len(jobs)-1]
		nextCursor = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: last.CreatedAt,
			JobID:     last.JobID,
		})
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       out,
		NextCursor: nextCursor,
	})
}

func toJobDTO(job *domain.Job) dto.JobDTO {
	d := dto.JobDTO{
		JobID:     job.JobID,
		JobType:   job.JobType,
		Payload:   json.RawMessage(job.Payload),
		Status:    job.Status,
		CreatedAt: job.CreatedAt.Format(time.RFC3339),
	}
	if job.Result.Valid {
		d.Result = json.RawMessage(job.Result.String)
	}
	if job.Error.Valid {
		d.Error = job.Error.String
	}
	if job.StartedAt.Valid {
		d.StartedAt = job.StartedAt.Time.Format(time.RFC3339)
	}
	if job.FinishedAt.Valid {
		d.FinishedAt = job.FinishedAt.Time.Format(time.RFC3339)
	}
	return d
}
