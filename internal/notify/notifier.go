// Package notify carries the wake-up signal from producers to the worker.
// Delivery is fire-and-forget by design: a lost signal delays processing
// until the next wake, it never loses the job itself, because the job is
// already persisted before any notifier runs.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/fieldscope/reportq/shared/rabbitmq"
)

// Notifier signals the worker that new work exists. Implementations must be
// safe for concurrent use.
type Notifier interface {
	Wake(ctx context.Context, jobID string) error
}

// wakeMessage is the body sent on every wake, for both transports.
type wakeMessage struct {
	JobID string `json:"job_id"`
}

// HTTPNotifier wakes the worker by POSTing to the trigger gateway.
type HTTPNotifier struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

// NewHTTPNotifier creates a notifier targeting the given trigger URL.
func NewHTTPNotifier(url string, timeout time.Duration, logger *slog.Logger) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HTTPNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Wake POSTs {"job_id": ...} to the trigger gateway. The response body is
// discarded; any non-2xx status is reported as an error so the caller can
// log it.
func (n *HTTPNotifier) Wake(ctx context.Context, jobID string) error {
	body, err := json.Marshal(wakeMessage{JobID: jobID})
	if err != nil {
		return fmt.Errorf("failed to marshal wake message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build wake request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to deliver wake signal: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("wake signal rejected with status %d", resp.StatusCode)
	}

	return nil
}

// AMQPNotifier wakes the worker by publishing to the wake queue.
type AMQPNotifier struct {
	client *rabbitmq.Client
	logger *slog.Logger
}

// NewAMQPNotifier creates a notifier publishing through the given RabbitMQ client.
func NewAMQPNotifier(client *rabbitmq.Client, logger *slog.Logger) *AMQPNotifier {
	return &AMQPNotifier{client: client, logger: logger}
}

// Wake publishes {"job_id": ...} to the wake queue with retry.
func (n *AMQPNotifier) Wake(ctx context.Context, jobID string) error {
	body, err := json.Marshal(wakeMessage{JobID: jobID})
	if err != nil {
		return fmt.Errorf("failed to marshal wake message: %w", err)
	}

	if err := n.client.PublishWithRetry(ctx, body, "application/json"); err != nil {
		return fmt.Errorf("failed to publish wake message: %w", err)
	}

	return nil
}

// NopNotifier drops wake signals. Used when no trigger transport is
// configured; jobs then wait for the next externally invoked drain.
type NopNotifier struct {
	logger *slog.Logger
}

// NewNopNotifier creates a notifier that only logs.
func NewNopNotifier(logger *slog.Logger) *NopNotifier {
	return &NopNotifier{logger: logger}
}

// Wake logs the dropped signal and returns nil.
func (n *NopNotifier) Wake(_ context.Context, jobID string) error {
	n.logger.Debug("Wake signal dropped - no trigger transport configured",
		slog.String("job_id", jobID),
	)
	return nil
}
