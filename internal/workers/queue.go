// internal/workers/queue.go
package workers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// enqueuer is the part of *asynq.Client the queue needs.
type enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Queue hands ledger jobs to the worker process through asynq.
type Queue struct {
	client   enqueuer
	retryMax int
	logger   *slog.Logger
}

var _ ports.TaskQueue = (*Queue)(nil)

// NewQueue creates a task queue backed by an asynq client
func NewQueue(client *asynq.Client, retryMax int, logger *slog.Logger) *Queue {
	return newQueue(client, retryMax, logger)
}

func newQueue(client enqueuer, retryMax int, logger *slog.Logger) *Queue {
	return &Queue{
		client:   client,
		retryMax: retryMax,
		logger:   logger.With(slog.String("component", "task_queue")),
	}
}

// EnqueueReconcile queues a ledger audit. A duplicate of an audit that is
// still queued is a conflict.
func (q *Queue) EnqueueReconcile(ctx context.Context) (string, error) {
	task, err := NewReconcileTask(TriggerAPI, q.retryMax)
	if err != nil {
		return "", err
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if errors.Is(err, asynq.ErrDuplicateTask) {
		return "", domain.Conflict("queue.reconcile", "a ledger reconcile is already queued")
	}
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s: %w", TypeLedgerReconcile, err)
	}

	q.logger.InfoContext(ctx, "task enqueued",
		slog.String("task_id", info.ID),
		slog.String("type", info.Type),
		slog.String("queue", info.Queue))
	return info.ID, nil
}

// EnqueueExport queues a ledger export on behalf of requestedBy.
func (q *Queue) EnqueueExport(ctx context.Context, requestedBy string) (string, error) {
	task, err := NewExportTask(requestedBy, q.retryMax)
	if err != nil {
		return "", err
	}
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return "", fmt.Errorf("failed to enqueue %s: %w", TypeLedgerExport, err)
	}

	q.logger.InfoContext(ctx, "task enqueued",
		slog.String("task_id", info.ID),
		slog.String("type", info.Type),
		slog.String("queue", info.Queue),
		slog.String("requested_by", requestedBy))
	return info.ID, nil
}
