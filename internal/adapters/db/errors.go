// internal/adapters/db/errors.go
package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
)

// SQLSTATE codes the ledger reacts to.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeCheckViolation       = "23514"
	codeInvalidTextRep       = "22P02"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// constraintMessages gives client-safe text for named constraints.
var constraintMessages = map[string]string{
	"inventory_items_active_imei_key":  "imei is already registered to an active item",
	"sale_items_active_item_key":       "item already belongs to an active sale",
	"purchase_items_active_item_key":   "item is already linked to an active purchase",
	"customers_phone_number_key":       "phone number already exists",
	"purchases_balance_identity":       "total price must equal paid now plus remaining",
	"sales_balance_identity":           "total price must equal paid now plus remaining",
	"purchases_remaining_non_negative": "remaining balance cannot be negative",
	"sales_remaining_non_negative":     "remaining balance cannot be negative",
	"payment_activities_amount_check":  "only payment adjustments may be negative",
	"payment_activities_single_target": "activity must reference exactly one purchase or sale",
}

// translateError maps driver failures onto the domain taxonomy. Errors that
// already carry a kind pass through untouched.
func translateError(op string, err error) error {
	if err == nil || domain.KindOf(err) != "" {
		return err
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}

	msg, ok := constraintMessages[pgErr.ConstraintName]
	if !ok {
		msg = pgErr.Message
	}

	switch pgErr.Code {
	case codeUniqueViolation:
		return domain.Wrap(domain.KindConflict, op, msg, err)
	case codeForeignKeyViolation:
		if !ok {
			msg = "referenced record does not exist"
		}
		return domain.Wrap(domain.KindNotFound, op, msg, err)
	case codeCheckViolation, codeInvalidTextRep:
		return domain.Wrap(domain.KindValidation, op, msg, err)
	case codeSerializationFailure, codeDeadlockDetected:
		return domain.Wrap(domain.KindConflict, op, "concurrent update detected, retry the request", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// numeric scans NUMERIC columns and converts them to decimals.
type numeric struct {
	pgtype.Numeric
}

func (n numeric) decimal() decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

func (n numeric) decimalPtr() *decimal.Decimal {
	if !n.Valid {
		return nil
	}
	d := n.decimal()
	return &d
}

// decimalArg renders a decimal the way pgx encodes text NUMERIC.
func decimalArg(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyScale)
}

func decimalPtrArg(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := decimalArg(*d)
	return &s
}
