// internal/workers/tasks.go
package workers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypeLedgerReconcile = "ledger:reconcile"
	TypeLedgerExport    = "ledger:export"
	TypeCleanupExports  = "ledger:cleanup_exports"
)

// Queue names match the ASYNQ_QUEUES defaults.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Triggers recorded on reconcile payloads.
const (
	TriggerAPI      = "api"
	TriggerSchedule = "schedule"
)

// ReconcilePayload represents the payload for ledger audit jobs
type ReconcilePayload struct {
	Trigger     string    `json:"trigger"`
	RequestedAt time.Time `json:"requested_at"`
}

// ExportPayload represents the payload for ledger export jobs
type ExportPayload struct {
	RequestedBy string    `json:"requested_by,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// CleanupPayload carries the retention window for local exports.
type CleanupPayload struct {
	MaxAge time.Duration `json:"max_age"`
}

// NewReconcileTask builds a ledger audit task. Only one audit may be queued
// per uniqueness window.
func NewReconcileTask(trigger string, retryMax int) (*asynq.Task, error) {
	payload, err := json.Marshal(ReconcilePayload{Trigger: trigger, RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reconcile payload: %w", err)
	}
	return asynq.NewTask(TypeLedgerReconcile, payload,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(retryMax),
		asynq.Timeout(10*time.Minute),
		asynq.Unique(5*time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

// NewExportTask builds a ledger export task.
func NewExportTask(requestedBy string, retryMax int) (*asynq.Task, error) {
	payload, err := json.Marshal(ExportPayload{RequestedBy: requestedBy, RequestedAt: time.Now().UTC()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal export payload: %w", err)
	}
	return asynq.NewTask(TypeLedgerExport, payload,
		asynq.Queue(QueueDefault),
		asynq.MaxRetry(retryMax),
		asynq.Timeout(15*time.Minute),
		asynq.Retention(24*time.Hour),
	), nil
}

// NewCleanupExportsTask builds the local export retention task.
func NewCleanupExportsTask(maxAge time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(CleanupPayload{MaxAge: maxAge})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cleanup payload: %w", err)
	}
	return asynq.NewTask(TypeCleanupExports, payload,
		asynq.Queue(QueueLow),
		asynq.MaxRetry(1),
	), nil
}

// decodePayload unmarshals a task payload. Malformed payloads are not retried.
func decodePayload(t *asynq.Task, dst interface{}) error {
	if len(t.Payload()) == 0 {
		return nil
	}
	if err := json.Unmarshal(t.Payload(), dst); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	return nil
}
