package worker

import (
	"context"
	"fmt"
	"log/slog"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop delivers messages and acks or nacks each one
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Debug("Worker goroutine started", slog.String("worker_name", workerName))

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return

		case t := <-w.jobsChan:
			err := w.processMessage(ctx, t)
			if err == nil {
				if ackErr := t.delivery.Ack(false); ackErr != nil {
					w.logger.Error("Failed to ACK message",
						slog.String("worker_name", workerName),
						slog.String("message_id", t.msg.ID),
						slog.Any("error", ackErr),
					)
				}
				continue
			}

			requeue := w.shouldRequeue(t, err)
			w.logger.Error("Message delivery failed",
				slog.String("worker_name", workerName),
				slog.String("message_id", t.msg.ID),
				slog.String("kind", string(t.msg.Kind)),
				slog.Bool("requeue", requeue),
				slog.Any("error", err),
			)
			if nackErr := t.delivery.Nack(false, requeue); nackErr != nil {
				w.logger.Error("Failed to NACK message",
					slog.String("worker_name", workerName),
					slog.String("message_id", t.msg.ID),
					slog.Any("error", nackErr),
				)
			}
		}
	}
}

// shouldRequeue retries a transient failure once; a redelivered message that
// fails again is dropped.
func (w *Worker) shouldRequeue(t *task, err error) bool {
	return IsRetryable(err) && !t.delivery.Redelivered
}
