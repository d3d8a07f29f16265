package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldscope/reportq/internal/domain"
)

// memQueue adapts memStore's ClaimNext to the Queue interface, optionally
// failing after a set number of fetches.
type memQueue struct {
	store     *memStore
	failAfter int
	fetches   int
	mu        sync.Mutex
}

func (q *memQueue) Next(ctx context.Context, claimedBy string) (*domain.Job, error) {
	q.mu.Lock()
	q.fetches++
	fail := q.failAfter > 0 && q.fetches > q.failAfter
	q.mu.Unlock()

	if fail {
		return nil, errors.New("store unreachable")
	}
	return q.store.ClaimNext(ctx, claimedBy)
}

func newDrainLoop(store *memStore, queue Queue, registry *Registry) *DrainLoop {
	p := NewProcessor(store, registry, "worker-1", 0, testLogger())
	return NewDrainLoop(queue, p, "worker-1", testLogger())
}

func TestDrainLoop_DrainAll(t *testing.T) {
	t.Run("processes every queued job in FIFO order", func(t *testing.T) {
		store := newMemStore()
		for i := 0; i < 5; i++ {
			store.add(queuedJob(fmt.Sprintf("j%d", i), domain.JobTypeGenerateReport, `{}`))
		}

		var processed []string
		var mu sync.Mutex
		registry := NewRegistry()
		registry.Register(domain.JobTypeGenerateReport, okHandler(`{}`))
		// Track order via a wrapping queue.
		queue := &orderTrackingQueue{inner: &memQueue{store: store}, seen: &processed, mu: &mu}

		loop := newDrainLoop(store, queue, registry)
		result, err := loop.DrainAll(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 5, result.Processed)
		assert.Empty(t, result.Errors)
		assert.Equal(t, []string{"j0", "j1", "j2", "j3", "j4"}, processed)

		for i := 0; i < 5; i++ {
			assert.Equal(t, domain.JobStatusCompleted, store.get(fmt.Sprintf("j%d", i)).Status)
		}
	})

	t.Run("empty queue drains immediately", func(t *testing.T) {
		store := newMemStore()
		loop := newDrainLoop(store, &memQueue{store: store}, NewRegistry())

		result, err := loop.DrainAll(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 0, result.Processed)
		assert.Empty(t, result.Errors)
	})

	t.Run("a failing job does not stop the drain", func(t *testing.T) {
		store := newMemStore()
		store.add(queuedJob("good-1", domain.JobTypeGenerateReport, `{}`))
		store.add(queuedJob("bad", "telepathy", `{}`))
		store.add(queuedJob("good-2", domain.JobTypeGenerateReport, `{}`))

		registry := NewRegistry()
		registry.Register(domain.JobTypeGenerateReport, okHandler(`{}`))

		loop := newDrainLoop(store, &memQueue{store: store}, registry)
		result, err := loop.DrainAll(context.Background())
		require.NoError(t, err)

		assert.Equal(t, 3, result.Processed)
		require.Len(t, result.Errors, 1)
		assert.Contains(t, result.Errors[0].Error(), "bad")

		assert.Equal(t, domain.JobStatusCompleted, store.get("good-1").Status)
		assert.Equal(t, domain.JobStatusFailed, store.get("bad").Status)
		assert.Equal(t, domain.JobStatusCompleted, store.get("good-2").Status)
	})

	t.Run("a fetch failure aborts with the partial result", func(t *testing.T) {
		store := newMemStore()
		store.add(queuedJob("j0", domain.JobTypeGenerateReport, `{}`))
		store.add(queuedJob("j1", domain.JobTypeGenerateReport, `{}`))

		registry := NewRegistry()
		registry.Register(domain.JobTypeGenerateReport, okHandler(`{}`))

		loop := newDrainLoop(store, &memQueue{store: store, failAfter: 1}, registry)
		result, err := loop.DrainAll(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to fetch next job")

		assert.Equal(t, 1, result.Processed)
		assert.Equal(t, domain.JobStatusQueued, store.get("j1").Status)
	})

	t.Run("cancellation stops the loop between jobs", func(t *testing.T) {
		store := newMemStore()
		store.add(queuedJob("j0", domain.JobTypeGenerateReport, `{}`))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		loop := newDrainLoop(store, &memQueue{store: store}, NewRegistry())
		result, err := loop.DrainAll(ctx)
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 0, result.Processed)
		assert.Equal(t, domain.JobStatusQueued, store.get("j0").Status)
	})
}

func TestDrainLoop_ConcurrentLoops(t *testing.T) {
	// Two drain loops over the same store must process every job exactly
	// once between them. The atomic claim is the only coordination.
	store := newMemStore()
	const jobs = 50
	for i := 0; i < jobs; i++ {
		store.add(queuedJob(fmt.Sprintf("j%02d", i), domain.JobTypeGenerateReport, `{}`))
	}

	var completions int64
	var mu sync.Mutex
	registry := NewRegistry()
	registry.Register(domain.JobTypeGenerateReport, func(_ context.Context, _ json.RawMessage) (json.RawMessage, error) {
		mu.Lock()
		completions++
		mu.Unlock()
		return json.RawMessage(`{}`), nil
	})

	results := make([]*DrainResult, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := NewProcessor(store, registry, fmt.Sprintf("worker-%d", i), 0, testLogger())
			loop := NewDrainLoop(&memQueue{store: store}, p, fmt.Sprintf("worker-%d", i), testLogger())
			result, err := loop.DrainAll(context.Background())
			require.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(jobs), completions)
	assert.Equal(t, jobs, results[0].Processed+results[1].Processed)

	for i := 0; i < jobs; i++ {
		job := store.get(fmt.Sprintf("j%02d", i))
		assert.Equal(t, domain.JobStatusCompleted, job.Status)
		assert.True(t, job.ClaimedBy.Valid)
	}
}

type orderTrackingQueue struct {
	inner Queue
	seen  *[]string
	mu    *sync.Mutex
}

func (q *orderTrackingQueue) Next(ctx context.Context, claimedBy string) (*domain.Job, error) {
	job, err := q.inner.Next(ctx, claimedBy)
	if job != nil {
		q.mu.Lock()
		*q.seen = append(*q.seen, job.JobID)
		q.mu.Unlock()
	}
	return job, err
}
