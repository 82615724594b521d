// internal/workers/ledger_processor.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// LedgerProcessor runs ledger audit and export tasks
type LedgerProcessor struct {
	auditor  ports.LedgerAuditor
	exporter ports.LedgerExporter
	logger   *slog.Logger
}

// NewLedgerProcessor creates a new ledger processor
func NewLedgerProcessor(auditor ports.LedgerAuditor, exporter ports.LedgerExporter, logger *slog.Logger) *LedgerProcessor {
	return &LedgerProcessor{
		auditor:  auditor,
		exporter: exporter,
		logger:   logger.With(slog.String("processor", "ledger")),
	}
}

// Reconcile audits every active purchase, sale and item. Violations are
// reported, not returned as errors, so the task is not retried for them.
func (p *LedgerProcessor) Reconcile(ctx context.Context, t *asynq.Task) error {
	var payload ReconcilePayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}

	p.logger.InfoContext(ctx, "reconciling ledger",
		slog.String("trigger", payload.Trigger))

	report, err := p.auditor.Reconcile(ctx)
	if err != nil {
		return fmt.Errorf("failed to reconcile ledger: %w", err)
	}

	for _, v := range report.Violations {
		level := slog.LevelWarn
		if v.Severity == "error" {
			level = slog.LevelError
		}
		p.logger.Log(ctx, level, "ledger violation",
			slog.String("entity", v.Entity),
			slog.String("entity_id", v.EntityID.String()),
			slog.String("rule", v.Rule),
			slog.String("detail", v.Detail))
	}

	p.logger.InfoContext(ctx, "ledger reconciled",
		slog.Int("purchases", report.PurchasesSeen),
		slog.Int("sales", report.SalesSeen),
		slog.Int("items", report.ItemsSeen),
		slog.Int("errors", report.ErrorCount),
		slog.Int("warnings", report.WarningCount),
		slog.Duration("duration", report.FinishedAt.Sub(report.StartedAt)))

	return writeResult(t, report)
}

// Export renders the ledger workbook and uploads it.
func (p *LedgerProcessor) Export(ctx context.Context, t *asynq.Task) error {
	var payload ExportPayload
	if err := decodePayload(t, &payload); err != nil {
		return err
	}

	start := time.Now()
	result, err := p.exporter.Export(ctx)
	if err != nil {
		return fmt.Errorf("failed to export ledger: %w", err)
	}

	p.logger.InfoContext(ctx, "ledger exported",
		slog.String("key", result.Key),
		slog.String("requested_by", payload.RequestedBy),
		slog.Int("purchases", result.Purchases),
		slog.Int("sales", result.Sales),
		slog.String("processing_time", time.Since(start).String()))

	return writeResult(t, result)
}

// writeResult stores v as the task result when the task runs under a server.
func writeResult(t *asynq.Task, v interface{}) error {
	w := t.ResultWriter()
	if w == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal task result: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write task result: %w", err)
	}
	return nil
}
