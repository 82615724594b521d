// internal/core/services/ledger.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// balanceWriter is ApplyBalance on either the purchase or the sale repository.
type balanceWriter func(ctx context.Context, id uuid.UUID, expected decimal.Decimal, next domain.Balance) (bool, error)

// postPayment applies a partial payment and appends its activity. The write is
// guarded by the remaining value read in the same transaction, so a concurrent
// payment that got there first surfaces as Conflict.
func postPayment(
	ctx context.Context,
	repos ports.Repositories,
	op string,
	id uuid.UUID,
	target domain.PaymentTarget,
	current domain.Balance,
	in ports.PaymentInput,
	write balanceWriter,
) (domain.Balance, error) {
	next, err := current.ApplyPayment(op, in.Amount)
	if err != nil {
		return current, err
	}

	ok, err := write(ctx, id, current.Remaining, next)
	if err != nil {
		return current, fmt.Errorf("failed to update balance: %w", err)
	}
	if !ok {
		return current, domain.Conflict(op, "balance changed concurrently, resubmit the payment")
	}

	note := domain.PaymentNote(next, false)
	if in.Notes != "" {
		note = note + ": " + in.Notes
	}
	paidAt := time.Now().UTC()
	if in.PaidAt != nil {
		paidAt = *in.PaidAt
	}

	act, err := domain.NewActivity(target, domain.ActivityPayment, in.Amount, paidAt, note)
	if err != nil {
		return current, err
	}
	if err := repos.Activities().Append(ctx, act); err != nil {
		return current, fmt.Errorf("failed to append activity: %w", err)
	}
	return next, nil
}

// postInitialPayment records the up-front payment of a new purchase or sale.
func postInitialPayment(ctx context.Context, repos ports.Repositories, target domain.PaymentTarget, b domain.Balance, at time.Time) error {
	if !b.PaidNow.IsPositive() {
		return nil
	}
	act, err := domain.NewActivity(target, domain.ActivityPayment, b.PaidNow, at, domain.PaymentNote(b, true))
	if err != nil {
		return err
	}
	if err := repos.Activities().Append(ctx, act); err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

// reconcilePaidNow posts the difference between an edited paidNow and the
// recorded payments as a payment adjustment. A drop caused by a smaller total
// posts a negative adjustment; a caller lowering paidNow on a PAY_LATER
// record is rejected.
func reconcilePaidNow(ctx context.Context, repos ports.Repositories, op string, target domain.PaymentTarget, next domain.Balance, paidNowGiven bool, at time.Time) error {
	history, err := repos.Activities().ListByTarget(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to list activities: %w", err)
	}
	recorded := domain.SumPayments(history)

	delta := next.PaidNow.Sub(recorded)
	if delta.IsZero() {
		return nil
	}
	if delta.IsNegative() && paidNowGiven && next.PaymentType == domain.PaymentPayLater {
		return domain.Validation(op, "paid amount %s cannot drop below recorded payments %s",
			next.PaidNow.StringFixed(domain.MoneyScale), recorded.StringFixed(domain.MoneyScale))
	}

	act, err := domain.NewPaymentAdjustment(target, delta, at)
	if err != nil {
		return err
	}
	if err := repos.Activities().Append(ctx, act); err != nil {
		return fmt.Errorf("failed to append activity: %w", err)
	}
	return nil
}

// rebalance recomputes a stored balance after an update. Omitted fields keep
// their stored values, except that a stored paidNow above the new total is
// cut down to it. A stored PAID_NOW type is kept even when it was reached
// through payments, so lines added later are paid on the spot.
func rebalance(op string, current domain.Balance, total decimal.Decimal, paymentType *domain.PaymentType, paidNow *decimal.Decimal, method *string) (domain.Balance, error) {
	pt := current.PaymentType
	if paymentType != nil {
		pt = *paymentType
	}
	paid := paidNow
	if paid == nil {
		p := decimal.Min(current.PaidNow, total)
		paid = &p
	}

	next, err := domain.ComputeBalance(op, total, pt, paid)
	if err != nil {
		return current, err
	}
	next.PaymentMethod = current.PaymentMethod
	if method != nil {
		next.PaymentMethod = *method
	}
	if next.Settled() {
		next.PaymentType = domain.PaymentPaidNow
	}
	return next, nil
}

// validateMoney rejects negative amounts and amounts with more than two decimals.
func validateMoney(op, field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return domain.Validation(op, "%s cannot be negative", field)
	}
	if !domain.HasMoneyScale(d) {
		return domain.Validation(op, "%s must have at most %d decimal places", field, domain.MoneyScale)
	}
	return nil
}

func timeOrNow(t *time.Time) time.Time {
	if t == nil || t.IsZero() {
		return time.Now().UTC()
	}
	return t.UTC()
}
