package domain_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestComputeBalance(t *testing.T) {
	tests := []struct {
		name          string
		total         string
		paymentType   domain.PaymentType
		paidNow       *decimal.Decimal
		wantPaid      string
		wantRemaining string
		wantCustomer  bool
		errorContains string
	}{
		{
			name:          "pay_later_without_paid_now",
			total:         "150",
			paymentType:   domain.PaymentPayLater,
			wantPaid:      "0.00",
			wantRemaining: "150.00",
			wantCustomer:  true,
		},
		{
			name:          "paid_now_ignores_supplied_amount",
			total:         "99.99",
			paymentType:   domain.PaymentPaidNow,
			paidNow:       decPtr("10"),
			wantPaid:      "99.99",
			wantRemaining: "0.00",
		},
		{
			name:          "pay_later_partial",
			total:         "200",
			paymentType:   domain.PaymentPayLater,
			paidNow:       decPtr("50"),
			wantPaid:      "50.00",
			wantRemaining: "150.00",
			wantCustomer:  true,
		},
		{
			name:          "overpaid_is_rejected",
			total:         "100",
			paymentType:   domain.PaymentPayLater,
			paidNow:       decPtr("100.01"),
			errorContains: "exceeds total price",
		},
		{
			name:          "unknown_payment_type",
			total:         "100",
			paymentType:   "BARTER",
			errorContains: "invalid payment type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := domain.ComputeBalance("test", dec(tt.total), tt.paymentType, tt.paidNow)
			if tt.errorContains != "" {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrValidation)
				assert.Contains(t, err.Error(), tt.errorContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPaid, b.PaidNow.StringFixed(2))
			assert.Equal(t, tt.wantRemaining, b.Remaining.StringFixed(2))
			assert.Equal(t, tt.wantCustomer, b.RequiresCustomer())
			assert.NoError(t, b.Check())
		})
	}
}

func TestBalance_ApplyPayment(t *testing.T) {
	b, err := domain.ComputeBalance("test", dec("150"), domain.PaymentPayLater, nil)
	require.NoError(t, err)

	b, err = b.ApplyPayment("pay", dec("60"))
	require.NoError(t, err)
	assert.Equal(t, "60.00", b.PaidNow.StringFixed(2))
	assert.Equal(t, "90.00", b.Remaining.StringFixed(2))
	assert.Equal(t, domain.PaymentPayLater, b.PaymentType)

	b, err = b.ApplyPayment("pay", dec("90"))
	require.NoError(t, err)
	assert.True(t, b.Remaining.IsZero())
	assert.Equal(t, domain.PaymentPaidNow, b.PaymentType)
	assert.NoError(t, b.Check())

	_, err = b.ApplyPayment("pay", dec("1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already fully paid")
}

func TestBalance_ApplyPayment_Rejections(t *testing.T) {
	b, err := domain.ComputeBalance("test", dec("100"), domain.PaymentPayLater, decPtr("20"))
	require.NoError(t, err)

	tests := []struct {
		name          string
		amount        string
		errorContains string
	}{
		{name: "zero_amount", amount: "0", errorContains: "must be positive"},
		{name: "negative_amount", amount: "-5", errorContains: "must be positive"},
		{name: "exceeds_remaining", amount: "80.01", errorContains: "exceeds remaining"},
		{name: "too_many_decimals", amount: "1.005", errorContains: "decimal places"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next, err := b.ApplyPayment("pay", dec(tt.amount))
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrValidation)
			assert.Contains(t, err.Error(), tt.errorContains)
			assert.Equal(t, b, next)
		})
	}
}

func TestBalance_Check(t *testing.T) {
	bad := domain.Balance{TotalPrice: dec("10"), PaidNow: dec("4"), Remaining: dec("5")}
	assert.ErrorIs(t, bad.Check(), domain.ErrValidation)

	negative := domain.Balance{TotalPrice: dec("10"), PaidNow: dec("11"), Remaining: dec("-1")}
	assert.Error(t, negative.Check())
}
