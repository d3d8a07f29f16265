package worker

import (
	"context"
	"encoding/json"
	"sync"
)

// HandlerFunc executes one job. It receives the raw payload and returns the
// result document to store on success. Handlers never touch the job store:
// recording the outcome belongs to the processor.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (json.RawMessage, error)

// Registry maps job types to handlers. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]HandlerFunc
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]HandlerFunc)}
}

// Register binds a handler to a job type, replacing any previous binding.
func (r *Registry) Register(jobType string, handler HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[jobType] = handler
}

// Get returns the handler for the given job type, or false if none is registered.
func (r *Registry) Get(jobType string) (HandlerFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[jobType]
	return h, ok
}
