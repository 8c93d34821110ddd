// Package worker consumes the notifications queue and delivers each message
// through a Deliverer using a fixed pool of goroutines.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cuongbtq/booking-core/internal/booking/transport"
	"github.com/cuongbtq/booking-core/internal/metrics"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Source yields deliveries for a consumer tag
type Source interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Config holds worker configuration
type Config struct {
	Logger      *slog.Logger
	Source      Source
	Deliverer   Deliverer
	Metrics     metrics.Recorder
	WorkerID    string
	QueueName   string
	Concurrency int
	JobTimeout  time.Duration
}

// task is one decoded delivery waiting for a worker goroutine
type task struct {
	delivery amqp.Delivery
	msg      *transport.Message
	received time.Time
}

// Worker represents the background delivery worker
type Worker struct {
	logger      *slog.Logger
	source      Source
	deliverer   Deliverer
	metrics     metrics.Recorder
	workerID    string
	queueName   string
	concurrency int
	jobTimeout  time.Duration
	jobsChan    chan *task
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	rec := cfg.Metrics
	if rec == nil {
		rec = metrics.Nop{}
	}
	deliverer := cfg.Deliverer
	if deliverer == nil {
		deliverer = LogDeliverer{Logger: cfg.Logger}
	}

	return &Worker{
		logger:      cfg.Logger,
		source:      cfg.Source,
		deliverer:   deliverer,
		metrics:     rec,
		workerID:    cfg.WorkerID,
		queueName:   cfg.QueueName,
		concurrency: concurrency,
		jobTimeout:  cfg.JobTimeout,
		jobsChan:    make(chan *task, concurrency),
		stopChan:    make(chan struct{}),
	}
}

// Start consumes until ctx is canceled or the delivery channel closes
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)
	w.startMessageDispatcher(ctx, deliveries)
	return nil
}

// Stop gracefully stops the worker and waits for in-flight messages
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() { close(w.stopChan) })
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
