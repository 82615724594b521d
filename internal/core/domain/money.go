// internal/core/domain/money.go
package domain

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of fractional digits carried by every amount.
const MoneyScale = 2

// PaymentType controls how paidNow is derived on create.
type PaymentType string

const (
	PaymentPaidNow  PaymentType = "PAID_NOW"
	PaymentPayLater PaymentType = "PAY_LATER"
)

func (p PaymentType) Valid() bool {
	return p == PaymentPaidNow || p == PaymentPayLater
}

// Money rounds to the ledger scale.
func Money(d decimal.Decimal) decimal.Decimal {
	return d.Round(MoneyScale)
}

// HasMoneyScale reports whether d carries no more than two fractional digits.
func HasMoneyScale(d decimal.Decimal) bool {
	return d.Equal(d.Round(MoneyScale))
}

// Balance is the denormalized money state shared by purchases and sales.
// TotalPrice == PaidNow + Remaining and Remaining >= 0 must hold after every write.
type Balance struct {
	PaymentMethod string          `json:"payment_method"`
	PaymentType   PaymentType     `json:"payment_type"`
	TotalPrice    decimal.Decimal `json:"total_price"`
	PaidNow       decimal.Decimal `json:"paid_now"`
	Remaining     decimal.Decimal `json:"remaining"`
}

// ComputeBalance derives paidNow and remaining from the total and payment type.
// paidNow is ignored for PAID_NOW and defaults to zero otherwise.
func ComputeBalance(op string, total decimal.Decimal, paymentType PaymentType, paidNow *decimal.Decimal) (Balance, error) {
	if !paymentType.Valid() {
		return Balance{}, Validation(op, "invalid payment type %q", paymentType)
	}
	total = Money(total)
	if total.IsNegative() {
		return Balance{}, Validation(op, "total price cannot be negative")
	}

	paid := decimal.Zero
	switch {
	case paymentType == PaymentPaidNow:
		paid = total
	case paidNow != nil:
		paid = Money(*paidNow)
	}
	if paid.IsNegative() {
		return Balance{}, Validation(op, "paid amount cannot be negative")
	}

	remaining := total.Sub(paid)
	if remaining.IsNegative() {
		return Balance{}, Validation(op, "paid amount %s exceeds total price %s",
			paid.StringFixed(MoneyScale), total.StringFixed(MoneyScale))
	}

	return Balance{
		PaymentType: paymentType,
		TotalPrice:  total,
		PaidNow:     paid,
		Remaining:   remaining,
	}, nil
}

// RequiresCustomer is true when an open balance must be attributed to someone.
func (b Balance) RequiresCustomer() bool {
	return b.Remaining.IsPositive() || b.PaymentType == PaymentPayLater
}

// Check verifies the balance identity.
func (b Balance) Check() error {
	if b.Remaining.IsNegative() {
		return Validation("balance", "remaining cannot be negative")
	}
	if !b.TotalPrice.Equal(b.PaidNow.Add(b.Remaining)) {
		return Validation("balance", "total %s does not equal paid %s plus remaining %s",
			b.TotalPrice.StringFixed(MoneyScale), b.PaidNow.StringFixed(MoneyScale), b.Remaining.StringFixed(MoneyScale))
	}
	return nil
}

// ApplyPayment returns the balance after a partial payment.
// The payment type flips to PAID_NOW when the remaining reaches zero.
func (b Balance) ApplyPayment(op string, amount decimal.Decimal) (Balance, error) {
	if !HasMoneyScale(amount) {
		return b, Validation(op, "amount must have at most %d decimal places", MoneyScale)
	}
	if !amount.IsPositive() {
		return b, Validation(op, "payment amount must be positive")
	}
	if !b.Remaining.IsPositive() {
		return b, Validation(op, "already fully paid")
	}
	if amount.GreaterThan(b.Remaining) {
		return b, Validation(op, "payment %s exceeds remaining balance %s",
			amount.StringFixed(MoneyScale), b.Remaining.StringFixed(MoneyScale))
	}

	next := b
	next.PaidNow = b.PaidNow.Add(amount)
	next.Remaining = b.Remaining.Sub(amount)
	if next.Remaining.IsZero() {
		next.PaymentType = PaymentPaidNow
	}
	return next, nil
}

// Settled reports whether nothing is owed.
func (b Balance) Settled() bool {
	return b.Remaining.IsZero()
}
