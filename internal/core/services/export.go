// internal/core/services/export.go
package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tealeg/xlsx/v3"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LedgerExporter renders purchases, sales and their activities into a workbook
// and uploads it to object storage.
type LedgerExporter struct {
	scope   ports.TransactionScope
	storage ports.ObjectStorage
	prefix  string
	urlTTL  time.Duration
	logger  *slog.Logger
}

var _ ports.LedgerExporter = (*LedgerExporter)(nil)

func NewLedgerExporter(scope ports.TransactionScope, storage ports.ObjectStorage, prefix string, urlTTL time.Duration, logger *slog.Logger) *LedgerExporter {
	if prefix == "" {
		prefix = "ledger-exports"
	}
	if urlTTL <= 0 {
		urlTTL = 24 * time.Hour
	}
	return &LedgerExporter{
		scope:   scope,
		storage: storage,
		prefix:  prefix,
		urlTTL:  urlTTL,
		logger:  logger.With(slog.String("service", "ledger_exporter")),
	}
}

type ledgerSnapshot struct {
	purchases []*domain.Purchase
	sales     []*domain.Sale
}

func (e *LedgerExporter) Export(ctx context.Context) (*ports.ExportResult, error) {
	snap, err := e.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	data, err := renderWorkbook(snap)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	key := fmt.Sprintf("%s/ledger-%s.xlsx", e.prefix, now.Format("20060102-150405"))
	if err := e.storage.Upload(ctx, key, bytes.NewReader(data), xlsxContentType); err != nil {
		return nil, fmt.Errorf("failed to upload export: %w", err)
	}

	url, err := e.storage.PresignGet(ctx, key, e.urlTTL)
	if err != nil {
		e.logger.WarnContext(ctx, "failed to presign export url",
			slog.String("key", key),
			slog.String("error", err.Error()))
	}

	e.logger.InfoContext(ctx, "ledger exported",
		slog.String("key", key),
		slog.Int("purchases", len(snap.purchases)),
		slog.Int("sales", len(snap.sales)),
		slog.Int("bytes", len(data)))

	return &ports.ExportResult{
		Key:       key,
		URL:       url,
		Purchases: len(snap.purchases),
		Sales:     len(snap.sales),
		CreatedAt: now,
	}, nil
}

func (e *LedgerExporter) snapshot(ctx context.Context) (*ledgerSnapshot, error) {
	snap := &ledgerSnapshot{}
	err := e.scope.Query(ctx, func(ctx context.Context, repos ports.Repositories) error {
		pp := ports.TransactionListParams{Page: ports.Page{Page: 1, PageSize: auditPageSize}}
		for {
			page, total, err := repos.Purchases().List(ctx, pp)
			if err != nil {
				return fmt.Errorf("failed to list purchases: %w", err)
			}
			for _, p := range page {
				if p.Activities, err = repos.Activities().ListByTarget(ctx, domain.PurchaseTarget(p.ID)); err != nil {
					return fmt.Errorf("failed to list activities: %w", err)
				}
			}
			snap.purchases = append(snap.purchases, page...)
			if int64(pp.Page.Page*pp.PageSize) >= total || len(page) == 0 {
				break
			}
			pp.Page.Page++
		}

		sp := ports.TransactionListParams{Page: ports.Page{Page: 1, PageSize: auditPageSize}}
		for {
			page, total, err := repos.Sales().List(ctx, sp)
			if err != nil {
				return fmt.Errorf("failed to list sales: %w", err)
			}
			for _, sl := range page {
				if sl.Activities, err = repos.Activities().ListByTarget(ctx, domain.SaleTarget(sl.ID)); err != nil {
					return fmt.Errorf("failed to list activities: %w", err)
				}
			}
			snap.sales = append(snap.sales, page...)
			if int64(sp.Page.Page*sp.PageSize) >= total || len(page) == 0 {
				break
			}
			sp.Page.Page++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func renderWorkbook(snap *ledgerSnapshot) ([]byte, error) {
	file := xlsx.NewFile()

	balanceHeaders := []string{"ID", "Date", "Customer", "Payment Type", "Payment Method", "Total", "Paid", "Remaining"}
	activityHeaders := []string{"Owner", "Owner ID", "Kind", "Amount", "Paid At", "Notes"}

	purchases, err := addSheet(file, "Purchases", balanceHeaders)
	if err != nil {
		return nil, err
	}
	sales, err := addSheet(file, "Sales", balanceHeaders)
	if err != nil {
		return nil, err
	}
	activities, err := addSheet(file, "Activities", activityHeaders)
	if err != nil {
		return nil, err
	}

	for _, p := range snap.purchases {
		addRow(purchases, balanceRow(p.ID.String(), p.PurchasedAt, p.CustomerID, p.Balance))
		for _, a := range p.Activities {
			addRow(activities, activityRow("purchase", p.ID.String(), a))
		}
	}
	for _, sl := range snap.sales {
		addRow(sales, balanceRow(sl.ID.String(), sl.SoldAt, sl.CustomerID, sl.Balance))
		for _, a := range sl.Activities {
			addRow(activities, activityRow("sale", sl.ID.String(), a))
		}
	}

	var buffer bytes.Buffer
	if err := file.Write(&buffer); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buffer.Bytes(), nil
}

func addSheet(file *xlsx.File, name string, headers []string) (*xlsx.Sheet, error) {
	sheet, err := file.AddSheet(name)
	if err != nil {
		return nil, fmt.Errorf("failed to add worksheet %s: %w", name, err)
	}
	header := sheet.AddRow()
	for _, h := range headers {
		cell := header.AddCell()
		cell.Value = h
		cell.GetStyle().Font.Bold = true
	}
	for i := range headers {
		sheet.SetColWidth(i+1, i+1, 18)
	}
	return sheet, nil
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().Value = v
	}
}

func balanceRow(id string, at time.Time, customerID *uuid.UUID, b domain.Balance) []string {
	customer := ""
	if customerID != nil {
		customer = customerID.String()
	}
	return []string{
		id,
		at.Format(time.RFC3339),
		customer,
		string(b.PaymentType),
		b.PaymentMethod,
		b.TotalPrice.StringFixed(domain.MoneyScale),
		b.PaidNow.StringFixed(domain.MoneyScale),
		b.Remaining.StringFixed(domain.MoneyScale),
	}
}

func activityRow(owner, ownerID string, a *domain.Activity) []string {
	return []string{
		owner,
		ownerID,
		string(a.Kind),
		a.Amount.StringFixed(domain.MoneyScale),
		a.PaidAt.Format(time.RFC3339),
		a.Notes,
	}
}
