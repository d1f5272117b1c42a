package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/custodia-labs/insurance-calc/internal/core/domain"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driven"
	"github.com/custodia-labs/insurance-calc/internal/core/ports/driving"
)

// Ensure Worker implements AuditDispatcher
var _ driven.AuditDispatcher = (*Worker)(nil)

const (
	defaultConcurrency    = 2
	defaultQueueSize      = 256
	defaultPublishTimeout = 10 * time.Second
)

// job is one queued audit batch and the request context it came from
type job struct {
	ctx   context.Context
	batch domain.AuditBatch
}

// Worker publishes audit batches off the request path.
// Dispatch never blocks: batches are queued for a fixed pool of goroutines
// and dropped with a log line when the queue is full or the worker is stopped.
type Worker struct {
	publisher driving.AuditPublisher
	logger    *slog.Logger

	// Configuration
	concurrency    int
	queueSize      int
	publishTimeout time.Duration

	// Internal state
	mu      sync.RWMutex
	running bool
	queue   chan job
	doneCh  chan struct{}
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	Publisher      driving.AuditPublisher
	Logger         *slog.Logger
	Concurrency    int           // Number of concurrent publishers
	QueueSize      int           // Batches buffered before Dispatch starts dropping
	PublishTimeout time.Duration // Upper bound for one publish
}

// NewWorker creates a new audit worker.
func NewWorker(cfg WorkerConfig) *Worker {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	publishTimeout := cfg.PublishTimeout
	if publishTimeout <= 0 {
		publishTimeout = defaultPublishTimeout
	}

	return &Worker{
		publisher:      cfg.Publisher,
		logger:         logger,
		concurrency:    concurrency,
		queueSize:      queueSize,
		publishTimeout: publishTimeout,
	}
}

// Start launches the publisher goroutines.
// Cancelling ctx stops the worker after the queue drains.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.queue = make(chan job, w.queueSize)
	w.doneCh = make(chan struct{})
	queue, doneCh := w.queue, w.doneCh
	w.mu.Unlock()

	w.logger.Info("audit worker starting",
		"concurrency", w.concurrency,
		"queue_size", w.queueSize,
		"publish_timeout", w.publishTimeout,
	)

	var wg sync.WaitGroup
	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			w.processLoop(queue, workerID)
		}(i)
	}

	go func() {
		wg.Wait()
		close(doneCh)
	}()

	go func() {
		select {
		case <-ctx.Done():
			w.Stop()
		case <-doneCh:
		}
	}()

	return nil
}

// Dispatch queues a batch for publishing and returns immediately.
func (w *Worker) Dispatch(ctx context.Context, batch domain.AuditBatch) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	if !w.running {
		w.logger.Warn("audit worker not running, dropping batch",
			"topic", batch.Topic,
			"records", len(batch.RecordIDs),
		)
		return
	}

	select {
	case w.queue <- job{ctx: ctx, batch: batch}:
	default:
		w.logger.Warn("audit queue full, dropping batch",
			"topic", batch.Topic,
			"records", len(batch.RecordIDs),
		)
	}
}

// Stop stops accepting batches and waits for queued ones to be published.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.queue)
	doneCh := w.doneCh
	w.mu.Unlock()

	<-doneCh
	w.logger.Info("audit worker stopped")
}

// Wait blocks until the worker stops.
func (w *Worker) Wait() {
	w.mu.RLock()
	doneCh := w.doneCh
	w.mu.RUnlock()
	if doneCh != nil {
		<-doneCh
	}
}

// processLoop publishes queued batches until the queue is closed.
func (w *Worker) processLoop(queue <-chan job, workerID int) {
	logger := w.logger.With("worker_id", workerID)
	logger.Debug("audit worker goroutine started")

	for j := range queue {
		w.publish(j)
	}
}

// publish detaches from the request so a finished or cancelled request
// does not cut the publish short.
func (w *Worker) publish(j job) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(j.ctx), w.publishTimeout)
	defer cancel()
	w.publisher.PublishBatch(ctx, j.batch)
}
