// internal/adapters/db/activity_repository.go
package db

import (
	"context"
	"log/slog"
	"time"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
)

const activityColumns = `id, purchase_id, sale_id, kind, amount, paid_at, notes, is_active, created_at, deleted_at`

type activityRepository struct {
	q      querier
	logger *slog.Logger
}

// Append inserts an immutable activity row.
func (r *activityRepository) Append(ctx context.Context, a *domain.Activity) error {
	if err := a.Target.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO payment_activities (
			id, purchase_id, sale_id, kind, amount, paid_at, notes, is_active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.q.Exec(ctx, query,
		a.ID, a.Target.PurchaseID, a.Target.SaleID, string(a.Kind), decimalArg(a.Amount),
		a.PaidAt, a.Notes, a.IsActive, a.CreatedAt,
	)
	if err != nil {
		return translateError("activity.append", err)
	}

	r.logger.DebugContext(ctx, "activity appended",
		slog.String("target", a.Target.String()),
		slog.String("kind", string(a.Kind)),
		slog.String("amount", a.Amount.String()))
	return nil
}

func (r *activityRepository) ListByTarget(ctx context.Context, target domain.PaymentTarget) ([]*domain.Activity, error) {
	column, id, err := targetColumn(target)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + activityColumns + ` FROM payment_activities
		WHERE ` + column + ` = $1 AND is_active ORDER BY paid_at, created_at, id`

	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, translateError("activity.list", err)
	}
	activities, err := scanMany(rows, scanActivity)
	return activities, translateError("activity.list", err)
}

func (r *activityRepository) DeactivateByTarget(ctx context.Context, target domain.PaymentTarget, at time.Time) error {
	column, id, err := targetColumn(target)
	if err != nil {
		return err
	}

	query := `UPDATE payment_activities SET is_active = FALSE, deleted_at = $2
		WHERE ` + column + ` = $1 AND is_active`
	_, err = r.q.Exec(ctx, query, id, at)
	return translateError("activity.deactivate", err)
}

// targetColumn picks the foreign key column; the value is bound as a parameter.
func targetColumn(target domain.PaymentTarget) (string, interface{}, error) {
	if err := target.Validate(); err != nil {
		return "", nil, err
	}
	if target.PurchaseID != nil {
		return "purchase_id", *target.PurchaseID, nil
	}
	return "sale_id", *target.SaleID, nil
}

func scanActivity(row rowScanner) (*domain.Activity, error) {
	var (
		a      domain.Activity
		kind   string
		amount numeric
	)
	err := row.Scan(
		&a.ID, &a.Target.PurchaseID, &a.Target.SaleID, &kind, &amount,
		&a.PaidAt, &a.Notes, &a.IsActive, &a.CreatedAt, &a.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Kind = domain.ActivityKind(kind)
	a.Amount = amount.decimal()
	return &a, nil
}
