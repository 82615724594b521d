// internal/core/services/auditor.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

const (
	SeverityError   = "error"
	SeverityWarning = "warning"

	auditPageSize = ports.MaxPageSize
)

// LedgerAuditor checks the denormalized balances against the activity log
// and item status against sale references.
type LedgerAuditor struct {
	scope  ports.TransactionScope
	logger *slog.Logger
}

var _ ports.LedgerAuditor = (*LedgerAuditor)(nil)

func NewLedgerAuditor(scope ports.TransactionScope, logger *slog.Logger) *LedgerAuditor {
	return &LedgerAuditor{
		scope:  scope,
		logger: logger.With(slog.String("service", "ledger_auditor")),
	}
}

// Reconcile scans every active purchase, sale and item in one read transaction.
func (a *LedgerAuditor) Reconcile(ctx context.Context) (*ports.ReconcileReport, error) {
	report := &ports.ReconcileReport{
		StartedAt:  time.Now().UTC(),
		Violations: []ports.Violation{},
	}

	err := a.scope.Query(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if err := a.auditPurchases(ctx, repos, report); err != nil {
			return err
		}
		if err := a.auditSales(ctx, repos, report); err != nil {
			return err
		}
		return a.auditItems(ctx, repos, report)
	})
	if err != nil {
		return nil, fmt.Errorf("reconcile failed: %w", err)
	}
	report.FinishedAt = time.Now().UTC()

	level := slog.LevelInfo
	if !report.Clean() {
		level = slog.LevelWarn
	}
	a.logger.Log(ctx, level, "ledger reconciled",
		slog.Int("purchases", report.PurchasesSeen),
		slog.Int("sales", report.SalesSeen),
		slog.Int("items", report.ItemsSeen),
		slog.Int("errors", report.ErrorCount),
		slog.Int("warnings", report.WarningCount))

	return report, nil
}

func (a *LedgerAuditor) auditPurchases(ctx context.Context, repos ports.Repositories, report *ports.ReconcileReport) error {
	params := ports.TransactionListParams{Page: ports.Page{Page: 1, PageSize: auditPageSize}}
	for {
		purchases, total, err := repos.Purchases().List(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to list purchases: %w", err)
		}
		for _, p := range purchases {
			history, err := repos.Activities().ListByTarget(ctx, domain.PurchaseTarget(p.ID))
			if err != nil {
				return fmt.Errorf("failed to list activities: %w", err)
			}
			checkBalance(report, "purchase", p.ID, p.Balance, history)
		}
		report.PurchasesSeen += len(purchases)
		if int64(params.Page.Page*params.PageSize) >= total || len(purchases) == 0 {
			return nil
		}
		params.Page.Page++
	}
}

func (a *LedgerAuditor) auditSales(ctx context.Context, repos ports.Repositories, report *ports.ReconcileReport) error {
	params := ports.TransactionListParams{Page: ports.Page{Page: 1, PageSize: auditPageSize}}
	for {
		sales, total, err := repos.Sales().List(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to list sales: %w", err)
		}
		for _, sl := range sales {
			history, err := repos.Activities().ListByTarget(ctx, domain.SaleTarget(sl.ID))
			if err != nil {
				return fmt.Errorf("failed to list activities: %w", err)
			}
			checkBalance(report, "sale", sl.ID, sl.Balance, history)
		}
		report.SalesSeen += len(sales)
		if int64(params.Page.Page*params.PageSize) >= total || len(sales) == 0 {
			return nil
		}
		params.Page.Page++
	}
}

func (a *LedgerAuditor) auditItems(ctx context.Context, repos ports.Repositories, report *ports.ReconcileReport) error {
	params := ports.ItemListParams{Page: ports.Page{Page: 1, PageSize: auditPageSize}}
	for {
		items, total, err := repos.Items().List(ctx, params)
		if err != nil {
			return fmt.Errorf("failed to list items: %w", err)
		}
		for _, item := range items {
			sold := item.Status == domain.StatusSold
			if sold != (item.SaleID != nil) {
				addViolation(report, "item", item.ID, "sold_iff_sale_reference", SeverityError,
					fmt.Sprintf("status %s with sale reference present=%t", item.Status, item.SaleID != nil))
			}
		}
		report.ItemsSeen += len(items)
		if int64(params.Page.Page*params.PageSize) >= total || len(items) == 0 {
			return nil
		}
		params.Page.Page++
	}
}

func checkBalance(report *ports.ReconcileReport, entity string, id uuid.UUID, b domain.Balance, history []*domain.Activity) {
	if b.Remaining.IsNegative() {
		addViolation(report, entity, id, "non_negative_remaining", SeverityError,
			fmt.Sprintf("remaining is %s", b.Remaining.StringFixed(domain.MoneyScale)))
	}
	if !b.TotalPrice.Equal(b.PaidNow.Add(b.Remaining)) {
		addViolation(report, entity, id, "total_equals_paid_plus_remaining", SeverityError,
			fmt.Sprintf("total %s, paid %s, remaining %s",
				b.TotalPrice.StringFixed(domain.MoneyScale),
				b.PaidNow.StringFixed(domain.MoneyScale),
				b.Remaining.StringFixed(domain.MoneyScale)))
	}

	paid := domain.SumPayments(history)
	if paid.GreaterThan(b.TotalPrice) {
		addViolation(report, entity, id, "payments_within_total", SeverityError,
			fmt.Sprintf("payments %s exceed total %s",
				paid.StringFixed(domain.MoneyScale), b.TotalPrice.StringFixed(domain.MoneyScale)))
	}
	if !paid.Equal(b.PaidNow) {
		addViolation(report, entity, id, "payments_match_paid_now", SeverityWarning,
			fmt.Sprintf("payments %s, paid now %s",
				paid.StringFixed(domain.MoneyScale), b.PaidNow.StringFixed(domain.MoneyScale)))
	}
}

func addViolation(report *ports.ReconcileReport, entity string, id uuid.UUID, rule, severity, detail string) {
	report.Violations = append(report.Violations, ports.Violation{
		Entity:   entity,
		EntityID: id,
		Rule:     rule,
		Detail:   detail,
		Severity: severity,
	})
	if severity == SeverityError {
		report.ErrorCount++
	} else {
		report.WarningCount++
	}
}
