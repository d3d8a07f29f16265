package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the database.
	ErrJobNotFound = errors.New("job not found")

	// ErrInvalidJobType is returned at enqueue time for an unknown job type.
	// The job is rejected before anything is persisted.
	ErrInvalidJobType = errors.New("invalid job type")

	// ErrInvalidPayload is returned at enqueue time when the payload is not valid JSON.
	ErrInvalidPayload = errors.New("payload must be valid JSON")

	// ErrJobAlreadyClaimed signals that another worker already moved the job
	// out of the queued state. It is a skip signal, not a failure: callers
	// must treat it as "someone else owns this job" and move on.
	ErrJobAlreadyClaimed = errors.New("job already claimed or not in queued status")

	// ErrNotImplemented is returned by handlers for job types that are
	// registered but have no implementation yet.
	ErrNotImplemented = errors.New("job type not implemented")
)
