package db

import (
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantKind    domain.ErrorKind
		wantMessage string
	}{
		{
			name:        "unique_imei_is_conflict",
			err:         &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "inventory_items_active_imei_key"},
			wantKind:    domain.KindConflict,
			wantMessage: "imei is already registered to an active item",
		},
		{
			name:        "unique_sale_item_is_conflict",
			err:         fmt.Errorf("exec: %w", &pgconn.PgError{Code: codeUniqueViolation, ConstraintName: "sale_items_active_item_key"}),
			wantKind:    domain.KindConflict,
			wantMessage: "item already belongs to an active sale",
		},
		{
			name:        "foreign_key_is_not_found",
			err:         &pgconn.PgError{Code: codeForeignKeyViolation, ConstraintName: "purchases_customer_id_fkey"},
			wantKind:    domain.KindNotFound,
			wantMessage: "referenced record does not exist",
		},
		{
			name:        "balance_check_is_validation",
			err:         &pgconn.PgError{Code: codeCheckViolation, ConstraintName: "purchases_balance_identity"},
			wantKind:    domain.KindValidation,
			wantMessage: "total price must equal paid now plus remaining",
		},
		{
			name:        "bad_text_is_validation",
			err:         &pgconn.PgError{Code: codeInvalidTextRep, Message: "invalid input syntax for type uuid"},
			wantKind:    domain.KindValidation,
			wantMessage: "invalid input syntax for type uuid",
		},
		{
			name:        "serialization_failure_is_conflict",
			err:         &pgconn.PgError{Code: codeSerializationFailure},
			wantKind:    domain.KindConflict,
			wantMessage: "concurrent update detected, retry the request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translateError("op", tt.err)
			require.Error(t, got)
			assert.Equal(t, tt.wantKind, domain.KindOf(got))
			assert.Equal(t, tt.wantMessage, domain.MessageOf(got))

			var pgErr *pgconn.PgError
			assert.True(t, errors.As(got, &pgErr), "driver error stays in the chain")
		})
	}
}

func TestTranslateError_Passthrough(t *testing.T) {
	assert.NoError(t, translateError("op", nil))

	domainErr := domain.Conflict("sale.create", "item is sold")
	assert.Same(t, domainErr, translateError("op", domainErr))

	plain := errors.New("connection reset")
	got := translateError("item.get", plain)
	assert.ErrorIs(t, got, plain)
	assert.Empty(t, domain.KindOf(got))
	assert.Contains(t, got.Error(), "item.get")
}

func TestNumericConversion(t *testing.T) {
	n := numeric{pgtype.Numeric{Int: big.NewInt(15050), Exp: -2, Valid: true}}
	assert.True(t, decimal.RequireFromString("150.50").Equal(n.decimal()))
	require.NotNil(t, n.decimalPtr())

	var null numeric
	assert.Nil(t, null.decimalPtr())
	assert.True(t, null.decimal().IsZero())

	assert.Equal(t, "60.00", decimalArg(decimal.NewFromInt(60)))
	assert.Nil(t, decimalPtrArg(nil))
}
