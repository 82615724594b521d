// test/benchmarks/helpers.go
package benchmarks

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/phoneshop-be/internal/adapters/memory"
	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
	"github.com/ammerola/phoneshop-be/internal/core/services"
)

// benchLedger wires the services over an in-memory store.
type benchLedger struct {
	store     *memory.Store
	purchases *services.PurchaseService
	sales     *services.SaleService
	repairs   *services.RepairService
	inventory *services.InventoryService
	auditor   *services.LedgerAuditor
}

func newBenchLedger() *benchLedger {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.NewStore()
	customers := services.NewCustomerResolver("US", logger)
	return &benchLedger{
		store:     store,
		purchases: services.NewPurchaseService(store, customers, logger),
		sales:     services.NewSaleService(store, customers, logger),
		repairs:   services.NewRepairService(store, logger),
		inventory: services.NewInventoryService(store, logger),
		auditor:   services.NewLedgerAuditor(store, logger),
	}
}

var benchModels = []struct{ brand, model string }{
	{"Apple", "iPhone 13"},
	{"Apple", "iPhone 14 Pro"},
	{"Samsung", "Galaxy S22"},
	{"Google", "Pixel 7"},
	{"Xiaomi", "Redmi Note 12"},
}

// purchaseInput builds a PAY_LATER intake of n phones with imeis starting at seq.
func purchaseInput(seq, n int) ports.CreatePurchaseInput {
	lines := make([]ports.PurchaseLine, n)
	for i := range lines {
		m := benchModels[(seq+i)%len(benchModels)]
		lines[i] = ports.PurchaseLine{
			IMEI:          fmt.Sprintf("86%013d", seq+i),
			Brand:         m.brand,
			Model:         m.model,
			Storage:       "128GB",
			Condition:     domain.ConditionGood,
			PurchasePrice: decimal.NewFromInt(int64(100 + (seq+i)%400)),
		}
	}
	paid := decimal.NewFromInt(50)
	return ports.CreatePurchaseInput{
		Customer:      ports.CustomerRef{Inline: &domain.CustomerInput{PhoneNumber: fmt.Sprintf("+1 415 555 %04d", seq%10000)}},
		PaymentMethod: "cash",
		PaymentType:   domain.PaymentPayLater,
		PaidNow:       &paid,
		Items:         lines,
	}
}

// stockLedger books count single-phone purchases and returns the item ids.
func stockLedger(l *benchLedger, count int) ([]uuid.UUID, error) {
	ctx := context.Background()
	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		p, err := l.purchases.Create(ctx, purchaseInput(i, 1))
		if err != nil {
			return nil, err
		}
		ids = append(ids, p.Items[0].ItemID)
	}
	return ids, nil
}
