// internal/core/ports/ledger.go
package ports

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// Violation is one failed consistency rule found by the auditor.
type Violation struct {
	Entity   string    `json:"entity"`
	EntityID uuid.UUID `json:"entity_id"`
	Rule     string    `json:"rule"`
	Detail   string    `json:"detail"`
	Severity string    `json:"severity"`
}

// ReconcileReport summarizes one audit pass.
type ReconcileReport struct {
	StartedAt     time.Time   `json:"started_at"`
	FinishedAt    time.Time   `json:"finished_at"`
	PurchasesSeen int         `json:"purchases_seen"`
	SalesSeen     int         `json:"sales_seen"`
	ItemsSeen     int         `json:"items_seen"`
	Violations    []Violation `json:"violations"`
	ErrorCount    int         `json:"error_count"`
	WarningCount  int         `json:"warning_count"`
}

func (r *ReconcileReport) Clean() bool {
	return r.ErrorCount == 0
}

type LedgerAuditor interface {
	Reconcile(ctx context.Context) (*ReconcileReport, error)
}

// ExportResult locates an uploaded ledger workbook.
type ExportResult struct {
	Key       string    `json:"key"`
	URL       string    `json:"url,omitempty"`
	Purchases int       `json:"purchases"`
	Sales     int       `json:"sales"`
	CreatedAt time.Time `json:"created_at"`
}

type LedgerExporter interface {
	Export(ctx context.Context) (*ExportResult, error)
}

// ObjectStorage stores export artifacts.
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, contentType string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// TaskQueue hands ledger jobs to the background worker.
type TaskQueue interface {
	EnqueueReconcile(ctx context.Context) (string, error)
	EnqueueExport(ctx context.Context, requestedBy string) (string, error)
}
