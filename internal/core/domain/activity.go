// internal/core/domain/activity.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActivityKind separates balance-affecting payments from informational postings.
type ActivityKind string

const (
	ActivityPayment    ActivityKind = "PAYMENT"
	ActivityRepairCost ActivityKind = "REPAIR_COST"
)

// Activity notes written by the ledger.
const (
	NoteFullyPaid          = "fully paid"
	NoteInitialPartial     = "initial partial payment"
	NotePartialPayment     = "partial payment"
	NotePaymentAdjustment  = "payment adjustment"
	NoteRepairCostTemplate = "repair cost: %s"
)

// PaymentTarget points at exactly one purchase or one sale.
type PaymentTarget struct {
	PurchaseID *uuid.UUID `json:"purchase_id,omitempty"`
	SaleID     *uuid.UUID `json:"sale_id,omitempty"`
}

func PurchaseTarget(id uuid.UUID) PaymentTarget {
	return PaymentTarget{PurchaseID: &id}
}

func SaleTarget(id uuid.UUID) PaymentTarget {
	return PaymentTarget{SaleID: &id}
}

// Validate enforces that exactly one side is set.
func (t PaymentTarget) Validate() error {
	if (t.PurchaseID == nil) == (t.SaleID == nil) {
		return Validation("activity", "exactly one of purchase or sale must be referenced")
	}
	return nil
}

func (t PaymentTarget) String() string {
	if t.PurchaseID != nil {
		return "purchase:" + t.PurchaseID.String()
	}
	if t.SaleID != nil {
		return "sale:" + t.SaleID.String()
	}
	return "none"
}

// Activity is one append-only ledger row.
type Activity struct {
	ID        uuid.UUID       `json:"id"`
	Target    PaymentTarget   `json:"target"`
	Kind      ActivityKind    `json:"kind"`
	Amount    decimal.Decimal `json:"amount"`
	PaidAt    time.Time       `json:"paid_at"`
	Notes     string          `json:"notes,omitempty"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

// NewActivity builds a validated activity row.
func NewActivity(target PaymentTarget, kind ActivityKind, amount decimal.Decimal, paidAt time.Time, notes string) (*Activity, error) {
	if err := target.Validate(); err != nil {
		return nil, err
	}
	amount = Money(amount)
	switch kind {
	case ActivityPayment:
		if !amount.IsPositive() {
			return nil, Validation("activity", "payment amount must be positive")
		}
	case ActivityRepairCost:
		if amount.IsNegative() {
			return nil, Validation("activity", "repair cost cannot be negative")
		}
	default:
		return nil, Validation("activity", "invalid activity kind %q", kind)
	}
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	return &Activity{
		ID:        uuid.New(),
		Target:    target,
		Kind:      kind,
		Amount:    amount,
		PaidAt:    paidAt,
		Notes:     notes,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// NewPaymentAdjustment records a correction to paidNow made by an edit.
// Unlike a payment it may be negative: money handed back when the total
// shrank below what was already paid.
func NewPaymentAdjustment(target PaymentTarget, delta decimal.Decimal, at time.Time) (*Activity, error) {
	delta = Money(delta)
	if delta.IsZero() {
		return nil, Validation("activity", "payment adjustment cannot be zero")
	}
	if delta.IsPositive() {
		return NewActivity(target, ActivityPayment, delta, at, NotePaymentAdjustment)
	}

	a, err := NewActivity(target, ActivityPayment, delta.Neg(), at, NotePaymentAdjustment)
	if err != nil {
		return nil, err
	}
	a.Amount = delta
	return a, nil
}

// SumPayments totals active PAYMENT activities.
func SumPayments(activities []*Activity) decimal.Decimal {
	sum := decimal.Zero
	for _, a := range activities {
		if a.IsActive && a.Kind == ActivityPayment {
			sum = sum.Add(a.Amount)
		}
	}
	return sum
}

// PaymentNote picks the note for a payment given the balance it produced.
func PaymentNote(after Balance, initial bool) string {
	if after.Settled() {
		return NoteFullyPaid
	}
	if initial {
		return NoteInitialPartial
	}
	return NotePartialPayment
}
