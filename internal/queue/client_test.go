package queue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldscope/reportq/internal/domain"
)

type fakeStore struct {
	mu        sync.Mutex
	created   []*domain.Job
	createErr error
	nextJob   *domain.Job
	nextErr   error
	claimedBy string
}

func (f *fakeStore) CreateJob(_ context.Context, job *domain.Job) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, job)
	return nil
}

func (f *fakeStore) ClaimNext(_ context.Context, claimedBy string) (*domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimedBy = claimedBy
	return f.nextJob, f.nextErr
}

type fakeNotifier struct {
	woken chan string
	err   error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{woken: make(chan string, 8)}
}

func (f *fakeNotifier) Wake(_ context.Context, jobID string) error {
	f.woken <- jobID
	return f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Enqueue(t *testing.T) {
	t.Run("persists a queued job and fires the wake signal", func(t *testing.T) {
		store := &fakeStore{}
		notifier := newFakeNotifier()
		client := NewClient(store, notifier, testLogger())

		payload := json.RawMessage(`{"report_type":"inspection","project_id":"p1"}`)
		job, err := client.Enqueue(context.Background(), domain.JobTypeGenerateReport, payload)
		require.NoError(t, err)
		require.NotNil(t, job)

		assert.NotEmpty(t, job.JobID)
		assert.Equal(t, domain.JobTypeGenerateReport, job.JobType)
		assert.Equal(t, domain.JobStatusQueued, job.Status)
		assert.JSONEq(t, string(payload), job.Payload)
		assert.False(t, job.CreatedAt.IsZero())

		require.Len(t, store.created, 1)
		assert.Equal(t, job.JobID, store.created[0].JobID)

		select {
		case woken := <-notifier.woken:
			assert.Equal(t, job.JobID, woken)
		case <-time.After(2 * time.Second):
			t.Fatal("wake signal was never fired")
		}
	})

	t.Run("rejects unknown job types before persisting", func(t *testing.T) {
		store := &fakeStore{}
		client := NewClient(store, newFakeNotifier(), testLogger())

		job, err := client.Enqueue(context.Background(), "mine_bitcoin", json.RawMessage(`{}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidJobType)
		assert.Nil(t, job)
		assert.Empty(t, store.created)
	})

	t.Run("rejects malformed payloads before persisting", func(t *testing.T) {
		store := &fakeStore{}
		client := NewClient(store, newFakeNotifier(), testLogger())

		job, err := client.Enqueue(context.Background(), domain.JobTypeGenerateReport, json.RawMessage(`{not json`))
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidPayload)
		assert.Nil(t, job)
		assert.Empty(t, store.created)
	})

	t.Run("surfaces store failures", func(t *testing.T) {
		store := &fakeStore{createErr: errors.New("connection refused")}
		notifier := newFakeNotifier()
		client := NewClient(store, notifier, testLogger())

		job, err := client.Enqueue(context.Background(), domain.JobTypeGenerateReport, json.RawMessage(`{}`))
		require.Error(t, err)
		assert.Nil(t, job)

		select {
		case <-notifier.woken:
			t.Fatal("wake signal fired for a job that was never persisted")
		case <-time.After(100 * time.Millisecond):
		}
	})

	t.Run("enqueue succeeds even when the wake signal fails", func(t *testing.T) {
		store := &fakeStore{}
		notifier := newFakeNotifier()
		notifier.err = errors.New("worker unreachable")
		client := NewClient(store, notifier, testLogger())

		job, err := client.Enqueue(context.Background(), domain.JobTypeGenerateReport, json.RawMessage(`{}`))
		require.NoError(t, err)
		require.NotNil(t, job)

		select {
		case <-notifier.woken:
		case <-time.After(2 * time.Second):
			t.Fatal("wake signal was never attempted")
		}
	})
}

func TestClient_Next(t *testing.T) {
	t.Run("delegates the atomic claim to the store", func(t *testing.T) {
		want := &domain.Job{JobID: "j1", Status: domain.JobStatusProcessing}
		store := &fakeStore{nextJob: want}
		client := NewClient(store, newFakeNotifier(), testLogger())

		got, err := client.Next(context.Background(), "worker-1")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, "worker-1", store.claimedBy)
	})

	t.Run("empty queue yields nil without error", func(t *testing.T) {
		store := &fakeStore{}
		client := NewClient(store, newFakeNotifier(), testLogger())

		got, err := client.Next(context.Background(), "worker-1")
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
