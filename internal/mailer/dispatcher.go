package mailer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Dispatcher drains the work queue with a pool of workers, sending one
// email per task. Delivery is at-least-once: a crash between a
// successful send and the ledger update leaves the row pending and it
// will be sent again.
type Dispatcher struct {
	logs      repository.EmailLogRepository
	queue     Queue
	transport Transport
	policy    RetryPolicy
	workers   int
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// NewDispatcher builds the dispatcher.
func NewDispatcher(logs repository.EmailLogRepository, queue Queue, transport Transport, policy RetryPolicy, workers int, logger *zap.Logger, metrics *observability.Metrics) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy()
	}
	return &Dispatcher{
		logs:      logs,
		queue:     queue,
		transport: transport,
		policy:    policy,
		workers:   workers,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run blocks until ctx is cancelled and every worker has drained.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < d.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.workLoop(ctx)
		}()
	}
	wg.Wait()
}

func (d *Dispatcher) workLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, err := d.queue.Dequeue(ctx)
		if err != nil {
			if errors.Is(err, ErrQueueEmpty) || errors.Is(err, context.Canceled) {
				continue
			}
			d.logger.Warn("mail dequeue failed", zap.Error(err))
			continue
		}

		if err := d.Process(ctx, task); err != nil {
			d.logger.Error("mail task processing failed",
				zap.String("email_log_id", task.LogID),
				zap.Int("attempt", task.Attempt),
				zap.Error(err))
		}
	}
}

// Process performs one delivery attempt for the task's ledger row. A
// missing row is a benign race (the ledger was deleted between enqueue
// and processing) and returns nil.
func (d *Dispatcher) Process(ctx context.Context, task Task) error {
	row, err := d.logs.GetByID(ctx, task.LogID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	sendErr := d.transport.Send(row.Recipient, row.Subject, row.BodyHTML)
	if sendErr == nil {
		d.metrics.RecordEmail("sent")
		return ignoreMissingRow(d.logs.MarkSent(ctx, row.ID, time.Now()))
	}

	if d.policy.Exhausted(task.Attempt) {
		d.metrics.RecordEmail("failed")
		d.logger.Warn("mail delivery permanently failed",
			zap.String("email_log_id", row.ID),
			zap.String("recipient", row.Recipient),
			zap.Int("attempts", task.Attempt),
			zap.Error(sendErr))
		return ignoreMissingRow(d.logs.MarkFailed(ctx, row.ID, sendErr.Error()))
	}

	// Row stays pending while attempts remain; record the error for
	// operator visibility and park the retry. A row deleted since the
	// read also makes the retry pointless.
	if err := d.logs.RecordError(ctx, row.ID, sendErr.Error()); err != nil {
		return ignoreMissingRow(err)
	}
	return d.queue.EnqueueAfter(ctx, Task{LogID: task.LogID, Attempt: task.Attempt + 1}, d.policy.Backoff)
}

// ignoreMissingRow treats a row deleted while its task was in flight
// as a completed task.
func ignoreMissingRow(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}
