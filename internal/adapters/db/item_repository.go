// internal/adapters/db/item_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

var itemColumns = []string{
	"id", "imei", "brand", "model", "storage", "color", "condition", "status",
	"known_issues", "purchase_id", "sale_id", "is_active", "created_at", "updated_at", "deleted_at",
}

// itemRepository implements ports.ItemRepository
type itemRepository struct {
	q      querier
	lock   string
	logger *slog.Logger
}

func (r *itemRepository) Create(ctx context.Context, item *domain.InventoryItem) error {
	query := `
		INSERT INTO inventory_items (
			id, imei, brand, model, storage, color, condition, status,
			known_issues, purchase_id, sale_id, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.q.Exec(ctx, query,
		item.ID, item.IMEI, item.Brand, item.Model, item.Storage, item.Color,
		string(item.Condition), string(item.Status), item.KnownIssues,
		item.PurchaseID, item.SaleID, item.IsActive, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return translateError("item.create", err)
	}

	r.logger.DebugContext(ctx, "inventory item created",
		slog.String("item_id", item.ID.String()),
		slog.String("imei", item.IMEI))
	return nil
}

func (r *itemRepository) Update(ctx context.Context, item *domain.InventoryItem) error {
	query := `
		UPDATE inventory_items SET
			imei = $2, brand = $3, model = $4, storage = $5, color = $6,
			condition = $7, status = $8, known_issues = $9, purchase_id = $10,
			sale_id = $11, is_active = $12, updated_at = $13, deleted_at = $14
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query,
		item.ID, item.IMEI, item.Brand, item.Model, item.Storage, item.Color,
		string(item.Condition), string(item.Status), item.KnownIssues,
		item.PurchaseID, item.SaleID, item.IsActive, item.UpdatedAt, item.DeletedAt,
	)
	if err != nil {
		return translateError("item.update", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("item.update", "item %s not found", item.ID)
	}
	return nil
}

func (r *itemRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.InventoryItem, error) {
	query := `SELECT ` + columnList(itemColumns) + ` FROM inventory_items WHERE id = $1 AND is_active` + r.lock
	item, err := scanOne(r.q.QueryRow(ctx, query, id), scanItem)
	return item, translateError("item.get", err)
}

func (r *itemRepository) GetByIMEI(ctx context.Context, imei string) (*domain.InventoryItem, error) {
	query := `SELECT ` + columnList(itemColumns) + ` FROM inventory_items WHERE imei = $1 AND is_active` + r.lock
	item, err := scanOne(r.q.QueryRow(ctx, query, imei), scanItem)
	return item, translateError("item.get_by_imei", err)
}

func (r *itemRepository) ExistsActiveIMEI(ctx context.Context, imei string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM inventory_items WHERE imei = $1 AND is_active)`

	var exists bool
	if err := r.q.QueryRow(ctx, query, imei).Scan(&exists); err != nil {
		return false, translateError("item.exists_imei", err)
	}
	return exists, nil
}

// List retrieves active items with filtering and pagination
func (r *itemRepository) List(ctx context.Context, params ports.ItemListParams) ([]*domain.InventoryItem, int64, error) {
	params.Page.Normalize()

	filter := func(qb squirrel.SelectBuilder) squirrel.SelectBuilder {
		qb = qb.From("inventory_items").Where("is_active").PlaceholderFormat(squirrel.Dollar)
		if params.Search != "" {
			like := "%" + params.Search + "%"
			qb = qb.Where(squirrel.Or{
				squirrel.ILike{"imei": like},
				squirrel.ILike{"brand": like},
				squirrel.ILike{"model": like},
			})
		}
		if params.Brand != "" {
			qb = qb.Where(squirrel.ILike{"brand": "%" + params.Brand + "%"})
		}
		if params.Status != "" {
			qb = qb.Where(squirrel.Eq{"status": string(params.Status)})
		}
		if params.Condition != "" {
			qb = qb.Where(squirrel.Eq{"condition": string(params.Condition)})
		}
		if params.PurchaseID != nil {
			qb = qb.Where(squirrel.Eq{"purchase_id": *params.PurchaseID})
		}
		if params.SaleID != nil {
			qb = qb.Where(squirrel.Eq{"sale_id": *params.SaleID})
		}
		return qb
	}

	total, err := countRows(ctx, r.q, filter(squirrel.Select("COUNT(*)")))
	if err != nil {
		return nil, 0, translateError("item.list", err)
	}

	query, args, err := filter(squirrel.Select(itemColumns...)).
		OrderBy("created_at DESC", "id").
		Limit(uint64(params.PageSize)).
		Offset(uint64(params.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	r.logger.DebugContext(ctx, "listing inventory items",
		slog.String("sql", query),
		slog.Int64("total", total))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translateError("item.list", err)
	}
	items, err := scanMany(rows, scanItem)
	if err != nil {
		return nil, 0, translateError("item.list", err)
	}
	return items, total, nil
}

func scanItem(row rowScanner) (*domain.InventoryItem, error) {
	var (
		item      domain.InventoryItem
		condition string
		status    string
	)
	err := row.Scan(
		&item.ID, &item.IMEI, &item.Brand, &item.Model, &item.Storage, &item.Color,
		&condition, &status, &item.KnownIssues, &item.PurchaseID, &item.SaleID,
		&item.IsActive, &item.CreatedAt, &item.UpdatedAt, &item.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	item.Condition = domain.ItemCondition(condition)
	item.Status = domain.ItemStatus(status)
	return &item, nil
}
