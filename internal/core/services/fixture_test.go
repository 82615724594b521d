package services_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/phoneshop-be/internal/adapters/memory"
	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
	"github.com/ammerola/phoneshop-be/internal/core/services"
	"github.com/ammerola/phoneshop-be/test/helpers"
)

type ledger struct {
	store     *memory.Store
	purchases *services.PurchaseService
	sales     *services.SaleService
	repairs   *services.RepairService
	inventory *services.InventoryService
	auditor   *services.LedgerAuditor
}

func newLedger(t *testing.T) *ledger {
	t.Helper()
	logger := helpers.TestLogger()
	store := memory.NewStore()
	resolver := services.NewCustomerResolver("US", logger)
	return &ledger{
		store:     store,
		purchases: services.NewPurchaseService(store, resolver, logger),
		sales:     services.NewSaleService(store, resolver, logger),
		repairs:   services.NewRepairService(store, logger),
		inventory: services.NewInventoryService(store, logger),
		auditor:   services.NewLedgerAuditor(store, logger),
	}
}

// stock buys one phone outright and returns the resulting item.
func (l *ledger) stock(t *testing.T, overrides ...func(*ports.PurchaseLine)) (*domain.Purchase, *domain.InventoryItem) {
	t.Helper()
	in := helpers.NewPurchaseInput(func(in *ports.CreatePurchaseInput) {
		in.PaymentType = domain.PaymentPaidNow
		in.Items = []ports.PurchaseLine{helpers.NewPurchaseLine(overrides...)}
	})
	p, err := l.purchases.Create(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, p.Items, 1)
	return p, p.Items[0].Item
}

func (l *ledger) sell(t *testing.T, itemID uuid.UUID, price string) *domain.Sale {
	t.Helper()
	sl, err := l.sales.Create(context.Background(), ports.CreateSaleInput{
		PaymentMethod: "card",
		PaymentType:   domain.PaymentPaidNow,
		Items:         []ports.SaleLine{{ItemID: &itemID, SalePrice: helpers.Dec(price)}},
	})
	require.NoError(t, err)
	return sl
}

// assertAdjustment expects exactly one payment adjustment of amount.
func assertAdjustment(t *testing.T, activities []*domain.Activity, amount string) {
	t.Helper()
	var found []*domain.Activity
	for _, a := range activities {
		if a.Notes == domain.NotePaymentAdjustment {
			found = append(found, a)
		}
	}
	require.Len(t, found, 1)
	assert.Equal(t, domain.ActivityPayment, found[0].Kind)
	assert.Equal(t, amount, found[0].Amount.StringFixed(2))
}

func requireKind(t *testing.T, err error, kind domain.ErrorKind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, domain.KindOf(err), "unexpected error: %v", err)
}
