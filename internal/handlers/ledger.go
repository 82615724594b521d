// internal/handlers/ledger.go
package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ammerola/phoneshop-be/internal/core/ports"
	"github.com/ammerola/phoneshop-be/internal/pkg/logger"
)

// LedgerHandler exposes the audit and export jobs. Either job runs inline
// or is handed to the worker through the task queue.
type LedgerHandler struct {
	auditor  ports.LedgerAuditor
	exporter ports.LedgerExporter
	queue    ports.TaskQueue
	logger   *slog.Logger
}

// NewLedgerHandler wires the ledger jobs. exporter and queue may be nil;
// at least one of them is needed to serve exports.
func NewLedgerHandler(auditor ports.LedgerAuditor, exporter ports.LedgerExporter, queue ports.TaskQueue, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		auditor:  auditor,
		exporter: exporter,
		queue:    queue,
		logger:   logger.With(slog.String("handler", "ledger")),
	}
}

type taskAccepted struct {
	TaskID string `json:"task_id"`
	Type   string `json:"type"`
	Status string `json:"status"`
}

// Reconcile handles POST /api/v1/ledger/reconcile. With ?async=true the
// audit is queued; otherwise the report is returned directly.
func (h *LedgerHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if queryFlag(r, "async") {
		if h.queue == nil {
			respondError(w, h.logger, http.StatusServiceUnavailable, "Task queue is not configured")
			return
		}
		taskID, err := h.queue.EnqueueReconcile(ctx)
		if err != nil {
			handleError(w, r, h.logger, "queue ledger reconcile", err)
			return
		}
		h.logger.InfoContext(ctx, "ledger reconcile queued", slog.String("task_id", taskID))
		respondJSON(w, h.logger, http.StatusAccepted, taskAccepted{TaskID: taskID, Type: "ledger:reconcile", Status: "queued"})
		return
	}

	report, err := h.auditor.Reconcile(ctx)
	if err != nil {
		handleError(w, r, h.logger, "reconcile ledger", err)
		return
	}

	h.logger.InfoContext(ctx, "ledger reconciled",
		slog.Int("errors", report.ErrorCount),
		slog.Int("warnings", report.WarningCount))

	respondJSON(w, h.logger, http.StatusOK, report)
}

// Export handles POST /api/v1/ledger/exports. The export is queued when a
// task queue is configured, unless ?wait=true asks for it inline.
func (h *LedgerHandler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.queue != nil && !queryFlag(r, "wait") {
		taskID, err := h.queue.EnqueueExport(ctx, logger.RequestIDFrom(ctx))
		if err != nil {
			handleError(w, r, h.logger, "queue ledger export", err)
			return
		}
		h.logger.InfoContext(ctx, "ledger export queued", slog.String("task_id", taskID))
		respondJSON(w, h.logger, http.StatusAccepted, taskAccepted{TaskID: taskID, Type: "ledger:export", Status: "queued"})
		return
	}

	if h.exporter == nil {
		respondError(w, h.logger, http.StatusServiceUnavailable, "Ledger export is not configured")
		return
	}

	result, err := h.exporter.Export(ctx)
	if err != nil {
		handleError(w, r, h.logger, "export ledger", err)
		return
	}

	h.logger.InfoContext(ctx, "ledger exported", slog.String("key", result.Key))

	respondJSON(w, h.logger, http.StatusCreated, result)
}

func queryFlag(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}
