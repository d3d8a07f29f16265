package domain

import (
	"database/sql"
	"time"
)

// Job status constants. Transitions are monotonic:
// queued -> processing -> completed | failed. A job never re-enters
// queued from a later state; there is no automatic requeue.
const (
	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job type constants. generate_report is the only implemented type;
// the other two are accepted by the queue but their handlers are
// not implemented yet.
const (
	JobTypeGenerateReport      = "generate_report"
	JobTypeExtractPDFKnowledge = "extract_pdf_knowledge"
	JobTypeImportTrainingData  = "import_training_data"
)

var knownJobTypes = []string{
	JobTypeGenerateReport,
	JobTypeExtractPDFKnowledge,
	JobTypeImportTrainingData,
}

// KnownJobTypes returns the job types the queue accepts at enqueue time.
func KnownJobTypes() []string {
	types := make([]string, len(knownJobTypes))
	copy(types, knownJobTypes)
	return types
}

// IsKnownJobType reports whether jobType is accepted at enqueue time.
func IsKnownJobType(jobType string) bool {
	for _, t := range knownJobTypes {
		if t == jobType {
			return true
		}
	}
	return false
}

// Job is the durable record for one unit of asynchronous work.
// Payload and Result hold raw JSON. Exactly one of Result/Error is set
// once the job reaches a terminal state.
type Job struct {
	JobID      string         `db:"job_id" json:"job_id"`
	JobType    string         `db:"job_type" json:"job_type"`
	Payload    string         `db:"payload" json:"payload"`
	Status     string         `db:"status" json:"status"`
	ClaimedBy  sql.NullString `db:"claimed_by" json:"-"`
	Result     sql.NullString `db:"result" json:"-"`
	Error      sql.NullString `db:"error_message" json:"-"`
	CreatedAt  time.Time      `db:"created_at" json:"created_at"`
	StartedAt  sql.NullTime   `db:"started_at" json:"-"`
	FinishedAt sql.NullTime   `db:"finished_at" json:"-"`
}

// Terminal reports whether the job has reached a terminal state.
func (j *Job) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}
