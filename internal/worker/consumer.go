package worker

import (
	"context"
	"encoding/json"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartConsumer consumes wake messages from the queue and processes the job
// each one names, blocking until the context is canceled or the delivery
// channel closes. The wake queue is a signal channel only: a malformed or
// duplicate message never affects job-state correctness, which lives
// entirely in the store's conditional claim.
func (w *Worker) StartConsumer(ctx context.Context) error {
	deliveries, err := w.rabbitClient.Consume(w.workerID)
	if err != nil {
		return err
	}

	w.logger.Info("Wake consumer started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Wake consumer stopped - context canceled")
			return nil

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("Wake delivery channel closed")
				return nil
			}
			w.handleWake(ctx, delivery)
		}
	}
}

func (w *Worker) handleWake(ctx context.Context, delivery amqp.Delivery) {
	var msg struct {
		JobID string `json:"job_id"`
	}

	if err := json.Unmarshal(delivery.Body, &msg); err != nil || msg.JobID == "" {
		w.logger.Error("Malformed wake message",
			slog.String("body", string(delivery.Body)),
		)
		// Drop it: the job, if any, is still queued and the next drain picks it up.
		w.nack(delivery, false)
		return
	}

	outcome, err := w.processor.Process(ctx, msg.JobID)
	if err != nil && outcome == OutcomeSkipped {
		// Claim never happened (store unreachable); requeue so the signal
		// is not lost while the database is down.
		w.logger.Error("Failed to process wake message",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
		w.nack(delivery, true)
		return
	}

	// Terminal outcome or claim conflict: the job record holds the truth now.
	if ackErr := delivery.Ack(false); ackErr != nil {
		w.logger.Error("Failed to ACK wake message",
			slog.String("job_id", msg.JobID),
			slog.String("error", ackErr.Error()),
		)
	}
}

func (w *Worker) nack(delivery amqp.Delivery, requeue bool) {
	if err := delivery.Nack(false, requeue); err != nil {
		w.logger.Error("Failed to NACK wake message",
			slog.String("error", err.Error()),
		)
	}
}
