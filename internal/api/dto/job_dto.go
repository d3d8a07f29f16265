package dto

import "encoding/json"

// CreateJobRequest is the enqueue boundary's input. Payload is opaque to the
// queue; only the named handler interprets it.
type CreateJobRequest struct {
	JobType string          `json:"job_type" binding:"required"`
	Payload json.RawMessage `json:"payload" binding:"required"`
}

// CreateJobResponse acknowledges a persisted job. It says nothing about
// execution: callers poll the job resource for status and result.
type CreateJobResponse struct {
	JobID     string `json:"job_id"`
	JobType   string `json:"job_type"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
}

// JobDTO is the full job representation returned by the inspection endpoints.
type JobDTO struct {
	JobID      string          `json:"job_id"`
	JobType    string          `json:"job_type"`
	Payload    json.RawMessage `json:"payload"`
	Status     string          `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Error      string          `json:"error,omitempty"`
	CreatedAt  string          `json:"created_at"`
	StartedAt  string          `json:"started_at,omitempty"`
	FinishedAt string          `json:"finished_at,omitempty"`
}

// ListJobsRequest carries the list filters and the pagination cursor.
type ListJobsRequest struct {
	JobType  string `form:"job_type"`
	Status   string `form:"status"`
	PageSize int    `form:"page_size"`
	Cursor   string `form:"cursor"`
}

// ListJobsResponse is one page of jobs plus the cursor for the next page.
type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}
