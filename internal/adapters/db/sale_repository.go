// internal/adapters/db/sale_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

var saleColumns = []string{
	"id", "customer_id", "sold_at", "payment_method", "payment_type",
	"total_price", "paid_now", "remaining", "notes",
	"is_active", "created_at", "updated_at", "deleted_at",
}

const saleItemColumns = `id, sale_id, item_id, sale_price, is_active, created_at, deleted_at`

type saleRepository struct {
	q      querier
	lock   string
	logger *slog.Logger
}

func (r *saleRepository) Create(ctx context.Context, s *domain.Sale) error {
	query := `
		INSERT INTO sales (
			id, customer_id, sold_at, payment_method, payment_type,
			total_price, paid_now, remaining, notes, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.q.Exec(ctx, query,
		s.ID, s.CustomerID, s.SoldAt, s.PaymentMethod, string(s.PaymentType),
		decimalArg(s.TotalPrice), decimalArg(s.PaidNow), decimalArg(s.Remaining),
		s.Notes, s.IsActive, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return translateError("sale.create", err)
	}

	r.logger.DebugContext(ctx, "sale created",
		slog.String("sale_id", s.ID.String()),
		slog.String("total_price", s.TotalPrice.String()))
	return nil
}

func (r *saleRepository) Update(ctx context.Context, s *domain.Sale) error {
	query := `
		UPDATE sales SET
			customer_id = $2, sold_at = $3, payment_method = $4, payment_type = $5,
			total_price = $6, paid_now = $7, remaining = $8, notes = $9,
			is_active = $10, updated_at = $11, deleted_at = $12
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query,
		s.ID, s.CustomerID, s.SoldAt, s.PaymentMethod, string(s.PaymentType),
		decimalArg(s.TotalPrice), decimalArg(s.PaidNow), decimalArg(s.Remaining),
		s.Notes, s.IsActive, s.UpdatedAt, s.DeletedAt,
	)
	if err != nil {
		return translateError("sale.update", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("sale.update", "sale %s not found", s.ID)
	}
	return nil
}

func (r *saleRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	query := `SELECT ` + columnList(saleColumns) + ` FROM sales WHERE id = $1 AND is_active` + r.lock
	s, err := scanOne(r.q.QueryRow(ctx, query, id), scanSale)
	return s, translateError("sale.get", err)
}

func (r *saleRepository) ApplyBalance(ctx context.Context, id uuid.UUID, expected decimal.Decimal, next domain.Balance) (bool, error) {
	query := `
		UPDATE sales SET
			payment_method = $3, payment_type = $4, total_price = $5,
			paid_now = $6, remaining = $7, updated_at = $8
		WHERE id = $1 AND is_active AND remaining = $2::numeric`

	tag, err := r.q.Exec(ctx, query,
		id, decimalArg(expected), next.PaymentMethod, string(next.PaymentType),
		decimalArg(next.TotalPrice), decimalArg(next.PaidNow), decimalArg(next.Remaining),
		time.Now().UTC(),
	)
	if err != nil {
		return false, translateError("sale.apply_balance", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *saleRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE sales SET is_active = FALSE, deleted_at = $2, updated_at = $2 WHERE id = $1 AND is_active`
	if _, err := r.q.Exec(ctx, query, id, at); err != nil {
		return translateError("sale.deactivate", err)
	}

	r.logger.InfoContext(ctx, "sale soft deleted",
		slog.String("sale_id", id.String()))
	return nil
}

func (r *saleRepository) List(ctx context.Context, params ports.TransactionListParams) ([]*domain.Sale, int64, error) {
	params.Page.Normalize()
	filter := transactionFilter("sales", "sold_at", params)

	total, err := countRows(ctx, r.q, filter(squirrel.Select("COUNT(*)")))
	if err != nil {
		return nil, 0, translateError("sale.list", err)
	}

	query, args, err := filter(squirrel.Select(saleColumns...)).
		OrderBy("sold_at DESC", "id").
		Limit(uint64(params.PageSize)).
		Offset(uint64(params.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translateError("sale.list", err)
	}
	sales, err := scanMany(rows, scanSale)
	if err != nil {
		return nil, 0, translateError("sale.list", err)
	}
	return sales, total, nil
}

// CreateItem relies on sale_items_active_item_key to reject double-selling.
func (r *saleRepository) CreateItem(ctx context.Context, si *domain.SaleItem) error {
	query := `
		INSERT INTO sale_items (id, sale_id, item_id, sale_price, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.q.Exec(ctx, query,
		si.ID, si.SaleID, si.ItemID, decimalArg(si.SalePrice), si.IsActive, si.CreatedAt)
	return translateError("sale_item.create", err)
}

func (r *saleRepository) UpdateItem(ctx context.Context, si *domain.SaleItem) error {
	query := `UPDATE sale_items SET sale_price = $2, is_active = $3, deleted_at = $4 WHERE id = $1`

	_, err := r.q.Exec(ctx, query, si.ID, decimalArg(si.SalePrice), si.IsActive, si.DeletedAt)
	return translateError("sale_item.update", err)
}

func (r *saleRepository) ListItems(ctx context.Context, saleID uuid.UUID) ([]*domain.SaleItem, error) {
	query := `SELECT ` + saleItemColumns + ` FROM sale_items
		WHERE sale_id = $1 AND is_active ORDER BY created_at, id`

	rows, err := r.q.Query(ctx, query, saleID)
	if err != nil {
		return nil, translateError("sale_item.list", err)
	}
	items, err := scanMany(rows, scanSaleItem)
	return items, translateError("sale_item.list", err)
}

func (r *saleRepository) FindSaleIDsByItems(ctx context.Context, itemIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT DISTINCT s.id
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE si.is_active AND s.is_active AND si.item_id = ANY($1::uuid[])`

	rows, err := r.q.Query(ctx, query, itemIDs)
	if err != nil {
		return nil, translateError("sale.find_by_items", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, translateError("sale.find_by_items", err)
		}
		ids = append(ids, id)
	}
	return ids, translateError("sale.find_by_items", rows.Err())
}

func (r *saleRepository) DeactivateItems(ctx context.Context, saleID uuid.UUID, at time.Time) error {
	query := `UPDATE sale_items SET is_active = FALSE, deleted_at = $2 WHERE sale_id = $1 AND is_active`
	_, err := r.q.Exec(ctx, query, saleID, at)
	return translateError("sale_item.deactivate", err)
}

func scanSale(row rowScanner) (*domain.Sale, error) {
	var (
		s           domain.Sale
		paymentType string
		total       numeric
		paid        numeric
		remaining   numeric
	)
	err := row.Scan(
		&s.ID, &s.CustomerID, &s.SoldAt, &s.PaymentMethod, &paymentType,
		&total, &paid, &remaining, &s.Notes,
		&s.IsActive, &s.CreatedAt, &s.UpdatedAt, &s.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	s.PaymentType = domain.PaymentType(paymentType)
	s.TotalPrice = total.decimal()
	s.PaidNow = paid.decimal()
	s.Remaining = remaining.decimal()
	return &s, nil
}

func scanSaleItem(row rowScanner) (*domain.SaleItem, error) {
	var (
		si    domain.SaleItem
		price numeric
	)
	if err := row.Scan(&si.ID, &si.SaleID, &si.ItemID, &price, &si.IsActive, &si.CreatedAt, &si.DeletedAt); err != nil {
		return nil, err
	}
	si.SalePrice = price.decimal()
	return &si, nil
}
