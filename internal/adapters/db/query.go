// internal/adapters/db/query.go
package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"

	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

func columnList(cols []string) string {
	return strings.Join(cols, ", ")
}

// countRows runs a COUNT(*) builder that shares its filters with the page query.
func countRows(ctx context.Context, q querier, qb squirrel.SelectBuilder) (int64, error) {
	query, args, err := qb.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int64
	if err := q.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

// transactionFilter applies the shared purchase/sale list filters.
func transactionFilter(table, timeColumn string, params ports.TransactionListParams) func(squirrel.SelectBuilder) squirrel.SelectBuilder {
	return func(qb squirrel.SelectBuilder) squirrel.SelectBuilder {
		qb = qb.From(table).Where("is_active").PlaceholderFormat(squirrel.Dollar)
		if params.CustomerID != nil {
			qb = qb.Where(squirrel.Eq{"customer_id": *params.CustomerID})
		}
		if params.PaymentType != "" {
			qb = qb.Where(squirrel.Eq{"payment_type": string(params.PaymentType)})
		}
		if params.From != nil {
			qb = qb.Where(squirrel.GtOrEq{timeColumn: *params.From})
		}
		if params.To != nil {
			qb = qb.Where(squirrel.LtOrEq{timeColumn: *params.To})
		}
		if params.HasRemaining != nil {
			if *params.HasRemaining {
				qb = qb.Where("remaining > 0")
			} else {
				qb = qb.Where("remaining = 0")
			}
		}
		return qb
	}
}
