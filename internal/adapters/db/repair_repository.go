// internal/adapters/db/repair_repository.go
package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

var repairColumns = []string{
	"id", "item_id", "technician_id", "description", "status",
	"cost_total", "parts_cost", "labor_cost", "started_at", "completed_at",
	"is_active", "created_at", "updated_at", "deleted_at",
}

const repairEntryColumns = `id, repair_id, description, parts_cost, labor_cost, cost_total,
	performed_at, is_active, created_at, updated_at, deleted_at`

type repairRepository struct {
	q      querier
	lock   string
	logger *slog.Logger
}

func (r *repairRepository) Create(ctx context.Context, rp *domain.Repair) error {
	query := `
		INSERT INTO repairs (
			id, item_id, technician_id, description, status, cost_total, parts_cost,
			labor_cost, started_at, completed_at, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.q.Exec(ctx, query,
		rp.ID, rp.ItemID, rp.TechnicianID, rp.Description, string(rp.Status),
		decimalPtrArg(rp.CostTotal), decimalPtrArg(rp.PartsCost), decimalPtrArg(rp.LaborCost),
		rp.StartedAt, rp.CompletedAt, rp.IsActive, rp.CreatedAt, rp.UpdatedAt,
	)
	if err != nil {
		return translateError("repair.create", err)
	}

	r.logger.DebugContext(ctx, "repair case opened",
		slog.String("repair_id", rp.ID.String()),
		slog.String("item_id", rp.ItemID.String()))
	return nil
}

func (r *repairRepository) Update(ctx context.Context, rp *domain.Repair) error {
	query := `
		UPDATE repairs SET
			technician_id = $2, description = $3, status = $4, cost_total = $5,
			parts_cost = $6, labor_cost = $7, completed_at = $8, is_active = $9,
			updated_at = $10, deleted_at = $11
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query,
		rp.ID, rp.TechnicianID, rp.Description, string(rp.Status),
		decimalPtrArg(rp.CostTotal), decimalPtrArg(rp.PartsCost), decimalPtrArg(rp.LaborCost),
		rp.CompletedAt, rp.IsActive, rp.UpdatedAt, rp.DeletedAt,
	)
	if err != nil {
		return translateError("repair.update", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("repair.update", "repair %s not found", rp.ID)
	}
	return nil
}

func (r *repairRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Repair, error) {
	query := `SELECT ` + columnList(repairColumns) + ` FROM repairs WHERE id = $1 AND is_active` + r.lock
	rp, err := scanOne(r.q.QueryRow(ctx, query, id), scanRepair)
	return rp, translateError("repair.get", err)
}

func (r *repairRepository) List(ctx context.Context, params ports.RepairListParams) ([]*domain.Repair, int64, error) {
	params.Page.Normalize()

	filter := func(qb squirrel.SelectBuilder) squirrel.SelectBuilder {
		qb = qb.From("repairs").Where("is_active").PlaceholderFormat(squirrel.Dollar)
		if params.Status != "" {
			qb = qb.Where(squirrel.Eq{"status": string(params.Status)})
		}
		if params.ItemID != nil {
			qb = qb.Where(squirrel.Eq{"item_id": *params.ItemID})
		}
		if params.TechnicianID != nil {
			qb = qb.Where(squirrel.Eq{"technician_id": *params.TechnicianID})
		}
		return qb
	}

	total, err := countRows(ctx, r.q, filter(squirrel.Select("COUNT(*)")))
	if err != nil {
		return nil, 0, translateError("repair.list", err)
	}

	query, args, err := filter(squirrel.Select(repairColumns...)).
		OrderBy("started_at DESC", "id").
		Limit(uint64(params.PageSize)).
		Offset(uint64(params.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, translateError("repair.list", err)
	}
	repairs, err := scanMany(rows, scanRepair)
	if err != nil {
		return nil, 0, translateError("repair.list", err)
	}
	return repairs, total, nil
}

func (r *repairRepository) OpenForItem(ctx context.Context, itemID uuid.UUID) ([]*domain.Repair, error) {
	query := `SELECT ` + columnList(repairColumns) + ` FROM repairs
		WHERE item_id = $1 AND status = $2 AND is_active
		ORDER BY started_at, id` + r.lock

	rows, err := r.q.Query(ctx, query, itemID, string(domain.RepairPending))
	if err != nil {
		return nil, translateError("repair.open_for_item", err)
	}
	repairs, err := scanMany(rows, scanRepair)
	return repairs, translateError("repair.open_for_item", err)
}

// DeactivateByItems soft-deletes the items' repairs and, in the same
// statement, their entries.
func (r *repairRepository) DeactivateByItems(ctx context.Context, itemIDs []uuid.UUID, at time.Time) error {
	if len(itemIDs) == 0 {
		return nil
	}

	query := `
		WITH closed AS (
			UPDATE repairs SET is_active = FALSE, deleted_at = $2, updated_at = $2
			WHERE item_id = ANY($1::uuid[]) AND is_active
			RETURNING id
		)
		UPDATE repair_entries SET is_active = FALSE, deleted_at = $2, updated_at = $2
		WHERE repair_id IN (SELECT id FROM closed) AND is_active`

	if _, err := r.q.Exec(ctx, query, itemIDs, at); err != nil {
		return translateError("repair.deactivate_by_items", err)
	}

	r.logger.DebugContext(ctx, "repairs deactivated",
		slog.Int("items", len(itemIDs)))
	return nil
}

func (r *repairRepository) CreateEntry(ctx context.Context, e *domain.RepairEntry) error {
	query := `
		INSERT INTO repair_entries (
			id, repair_id, description, parts_cost, labor_cost, cost_total,
			performed_at, is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := r.q.Exec(ctx, query,
		e.ID, e.RepairID, e.Description,
		decimalPtrArg(e.PartsCost), decimalPtrArg(e.LaborCost), decimalPtrArg(e.CostTotal),
		e.PerformedAt, e.IsActive, e.CreatedAt, e.UpdatedAt,
	)
	return translateError("repair_entry.create", err)
}

func (r *repairRepository) UpdateEntry(ctx context.Context, e *domain.RepairEntry) error {
	query := `
		UPDATE repair_entries SET
			description = $2, parts_cost = $3, labor_cost = $4, cost_total = $5,
			performed_at = $6, is_active = $7, updated_at = $8, deleted_at = $9
		WHERE id = $1`

	_, err := r.q.Exec(ctx, query,
		e.ID, e.Description,
		decimalPtrArg(e.PartsCost), decimalPtrArg(e.LaborCost), decimalPtrArg(e.CostTotal),
		e.PerformedAt, e.IsActive, e.UpdatedAt, e.DeletedAt,
	)
	return translateError("repair_entry.update", err)
}

func (r *repairRepository) GetEntry(ctx context.Context, id uuid.UUID) (*domain.RepairEntry, error) {
	query := `SELECT ` + repairEntryColumns + ` FROM repair_entries WHERE id = $1 AND is_active`
	e, err := scanOne(r.q.QueryRow(ctx, query, id), scanRepairEntry)
	return e, translateError("repair_entry.get", err)
}

func (r *repairRepository) ListEntries(ctx context.Context, repairID uuid.UUID) ([]*domain.RepairEntry, error) {
	query := `SELECT ` + repairEntryColumns + ` FROM repair_entries
		WHERE repair_id = $1 AND is_active ORDER BY performed_at, created_at, id`

	rows, err := r.q.Query(ctx, query, repairID)
	if err != nil {
		return nil, translateError("repair_entry.list", err)
	}
	entries, err := scanMany(rows, scanRepairEntry)
	return entries, translateError("repair_entry.list", err)
}

func scanRepair(row rowScanner) (*domain.Repair, error) {
	var (
		rp                  domain.Repair
		status              string
		total, parts, labor numeric
	)
	err := row.Scan(
		&rp.ID, &rp.ItemID, &rp.TechnicianID, &rp.Description, &status,
		&total, &parts, &labor, &rp.StartedAt, &rp.CompletedAt,
		&rp.IsActive, &rp.CreatedAt, &rp.UpdatedAt, &rp.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	rp.Status = domain.RepairStatus(status)
	rp.CostTotal = total.decimalPtr()
	rp.PartsCost = parts.decimalPtr()
	rp.LaborCost = labor.decimalPtr()
	return &rp, nil
}

func scanRepairEntry(row rowScanner) (*domain.RepairEntry, error) {
	var (
		e                   domain.RepairEntry
		parts, labor, total numeric
	)
	err := row.Scan(
		&e.ID, &e.RepairID, &e.Description, &parts, &labor, &total,
		&e.PerformedAt, &e.IsActive, &e.CreatedAt, &e.UpdatedAt, &e.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	e.PartsCost = parts.decimalPtr()
	e.LaborCost = labor.decimalPtr()
	e.CostTotal = total.decimalPtr()
	return &e, nil
}
