package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/cuongbtq/booking-core/internal/metrics"
)

// processMessage runs the deliverer under the job timeout and records the outcome
func (w *Worker) processMessage(ctx context.Context, t *task) error {
	deliverCtx := ctx
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		deliverCtx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	err := w.deliverer.Deliver(deliverCtx, t.msg)
	latency := time.Since(t.received)

	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	w.metrics.MessageDelivered(string(t.msg.Kind), outcome, latency)

	if err == nil {
		w.logger.Debug("Message processed",
			slog.String("message_id", t.msg.ID),
			slog.Duration("latency", latency),
		)
	}
	return err
}
