// internal/adapters/db/purchase_repository.go
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

var purchaseColumns = []string{
	"id", "customer_id", "purchased_at", "payment_method", "payment_type",
	"total_price", "paid_now", "remaining", "notes",
	"is_active", "created_at", "updated_at", "deleted_at",
}

const purchaseItemColumns = `id, purchase_id, item_id, purchase_price, is_active, created_at, deleted_at`

type purchaseRepository struct {
	q      querier
	lock   string
	logger *slog.Logger
}

func (r *purchaseRepository) Create(ctx context.Context, p *domain.Purchase) error {
	query := `
		INSERT INTO purchases (
			id, customer_id, purchased_at, payment_method, payment_type,
			total_price, paid_now, remaining, notes, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.q.Exec(ctx, query,
		p.ID, p.CustomerID, p.PurchasedAt, p.PaymentMethod, string(p.PaymentType),
		decimalArg(p.TotalPrice), decimalArg(p.PaidNow), decimalArg(p.Remaining),
		p.Notes, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return translateError("purchase.create", err)
	}

	r.logger.DebugContext(ctx, "purchase created",
		slog.String("purchase_id", p.ID.String()),
		slog.String("total_price", p.TotalPrice.String()))
	return nil
}

func (r *purchaseRepository) Update(ctx context.Context, p *domain.Purchase) error {
	query := `
		UPDATE purchases SET
			customer_id = $2, purchased_at = $3, payment_method = $4, payment_type = $5,
			total_price = $6, paid_now = $7, remaining = $8, notes = $9,
			is_active = $10, updated_at = $11, deleted_at = $12
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query,
		p.ID, p.CustomerID, p.PurchasedAt, p.PaymentMethod, string(p.PaymentType),
		decimalArg(p.TotalPrice), decimalArg(p.PaidNow), decimalArg(p.Remaining),
		p.Notes, p.IsActive, p.UpdatedAt, p.DeletedAt,
	)
	if err != nil {
		return translateError("purchase.update", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("purchase.update", "purchase %s not found", p.ID)
	}
	return nil
}

func (r *purchaseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	query := `SELECT ` + columnList(purchaseColumns) + ` FROM purchases WHERE id = $1 AND is_active` + r.lock
	p, err := scanOne(r.q.QueryRow(ctx, query, id), scanPurchase)
	return p, translateError("purchase.get", err)
}

// ApplyBalance is a compare-and-set on remaining; false means another writer won.
func (r *purchaseRepository) ApplyBalance(ctx context.Context, id uuid.UUID, expected decimal.Decimal, next domain.Balance) (bool, error) {
	query := `
		UPDATE purchases SET
			payment_method = $3, payment_type = $4, total_price = $5,
			paid_now = $6, remaining = $7, updated_at = $8
		WHERE id = $1 AND is_active AND remaining = $2::numeric`

	tag, err := r.q.Exec(ctx, query,
		id, decimalArg(expected), next.PaymentMethod, string(next.PaymentType),
		decimalArg(next.TotalPrice), decimalArg(next.PaidNow), decimalArg(next.Remaining),
		time.Now().UTC(),
	)
	if err != nil {
		return false, translateError("purchase.apply_balance", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *purchaseRepository) Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE purchases SET is_active = FALSE, deleted_at = $2, updated_at = $2 WHERE id = $1 AND is_active`
	if _, err := r.q.Exec(ctx, query, id, at); err != nil {
		return translateError("purchase.deactivate", err)
	}

	r.logger.InfoContext(ctx, "purchase soft deleted",
		slog.String("purchase_id", id.String()))
	return nil
}

func (r *purchaseRepository) List(ctx context.Context, params ports.TransactionListParams) ([]*domain.Purchase, int64, error) {
	params.Page.Normalize()
	filter := transactionFilter("purchases", "purchased_at", params)

	total, err := countRows(ctx, r.q, filter(squirrel.Select("COUNT(*)")))
	if err != nil {
		return nil, 0, translateError("purchase.list", err)
	}

	query, args, err := filter(squirrel.Select(purchaseColumns...)).
		OrderBy("purchased_at DESC", "id").
		Limit(uint64(params.PageSize)).
		Offset(uint64(params.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translateError("purchase.list", err)
	}
	purchases, err := scanMany(rows, scanPurchase)
	if err != nil {
		return nil, 0, translateError("purchase.list", err)
	}
	return purchases, total, nil
}

func (r *purchaseRepository) CreateItem(ctx context.Context, pi *domain.PurchaseItem) error {
	query := `
		INSERT INTO purchase_items (id, purchase_id, item_id, purchase_price, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.q.Exec(ctx, query,
		pi.ID, pi.PurchaseID, pi.ItemID, decimalArg(pi.PurchasePrice), pi.IsActive, pi.CreatedAt)
	return translateError("purchase_item.create", err)
}

func (r *purchaseRepository) UpdateItem(ctx context.Context, pi *domain.PurchaseItem) error {
	query := `UPDATE purchase_items SET purchase_price = $2, is_active = $3, deleted_at = $4 WHERE id = $1`

	_, err := r.q.Exec(ctx, query, pi.ID, decimalArg(pi.PurchasePrice), pi.IsActive, pi.DeletedAt)
	return translateError("purchase_item.update", err)
}

func (r *purchaseRepository) ListItems(ctx context.Context, purchaseID uuid.UUID) ([]*domain.PurchaseItem, error) {
	query := `SELECT ` + purchaseItemColumns + ` FROM purchase_items
		WHERE purchase_id = $1 AND is_active ORDER BY created_at, id`

	rows, err := r.q.Query(ctx, query, purchaseID)
	if err != nil {
		return nil, translateError("purchase_item.list", err)
	}
	items, err := scanMany(rows, scanPurchaseItem)
	return items, translateError("purchase_item.list", err)
}

func (r *purchaseRepository) FindItemLink(ctx context.Context, itemID uuid.UUID) (*domain.PurchaseItem, error) {
	query := `SELECT ` + purchaseItemColumns + ` FROM purchase_items WHERE item_id = $1 AND is_active`
	pi, err := scanOne(r.q.QueryRow(ctx, query, itemID), scanPurchaseItem)
	return pi, translateError("purchase_item.find", err)
}

func (r *purchaseRepository) DeactivateItems(ctx context.Context, purchaseID uuid.UUID, at time.Time) error {
	query := `UPDATE purchase_items SET is_active = FALSE, deleted_at = $2 WHERE purchase_id = $1 AND is_active`
	_, err := r.q.Exec(ctx, query, purchaseID, at)
	return translateError("purchase_item.deactivate", err)
}

func scanPurchase(row rowScanner) (*domain.Purchase, error) {
	var (
		p           domain.Purchase
		paymentType string
		total       numeric
		paid        numeric
		remaining   numeric
	)
	err := row.Scan(
		&p.ID, &p.CustomerID, &p.PurchasedAt, &p.PaymentMethod, &paymentType,
		&total, &paid, &remaining, &p.Notes,
		&p.IsActive, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.PaymentType = domain.PaymentType(paymentType)
	p.TotalPrice = total.decimal()
	p.PaidNow = paid.decimal()
	p.Remaining = remaining.decimal()
	return &p, nil
}

func scanPurchaseItem(row rowScanner) (*domain.PurchaseItem, error) {
	var (
		pi    domain.PurchaseItem
		price numeric
	)
	if err := row.Scan(&pi.ID, &pi.PurchaseID, &pi.ItemID, &price, &pi.IsActive, &pi.CreatedAt, &pi.DeletedAt); err != nil {
		return nil, err
	}
	pi.PurchasePrice = price.decimal()
	return &pi, nil
}
