package benchmarks

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

func BenchmarkLedgerOperations(b *testing.B) {
	ctx := context.Background()
	l := newBenchLedger()
	itemIDs, err := stockLedger(l, 500)
	require.NoError(b, err)

	b.Run("CreatePurchase", func(b *testing.B) {
		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = l.purchases.Create(ctx, purchaseInput(1_000_000+i*3, 3))
		}
	})

	b.Run("GetItem", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = l.inventory.Get(ctx, itemIDs[i%len(itemIDs)])
		}
	})

	b.Run("ListItems", func(b *testing.B) {
		params := ports.ItemListParams{Page: ports.Page{Page: 1, PageSize: 50}}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = l.inventory.List(ctx, params)
		}
	})

	b.Run("SearchItems", func(b *testing.B) {
		params := ports.ItemListParams{Page: ports.Page{Page: 1, PageSize: 50}, Search: "pixel"}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = l.inventory.List(ctx, params)
		}
	})

	b.Run("ListOpenPurchases", func(b *testing.B) {
		open := true
		params := ports.TransactionListParams{Page: ports.Page{Page: 1, PageSize: 50}, HasRemaining: &open}
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = l.purchases.List(ctx, params)
		}
	})

	b.Run("Reconcile", func(b *testing.B) {
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_, _ = l.auditor.Reconcile(ctx)
		}
	})
}

func BenchmarkPaymentPosting(b *testing.B) {
	ctx := context.Background()
	l := newBenchLedger()
	p, err := l.purchases.Create(ctx, purchaseInput(0, 1))
	require.NoError(b, err)

	// a cent at a time keeps the balance open for the whole run
	cent := decimal.RequireFromString("0.01")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		updated, err := l.purchases.AddPayment(ctx, p.ID, ports.PaymentInput{Amount: cent})
		if err != nil {
			b.StopTimer()
			p, err = l.purchases.Create(ctx, purchaseInput(2_000_000+i, 1))
			require.NoError(b, err)
			b.StartTimer()
			continue
		}
		p = updated
	}
}

func BenchmarkComputeBalance(b *testing.B) {
	total := decimal.RequireFromString("1249.90")
	paid := decimal.RequireFromString("400.10")

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = domain.ComputeBalance("bench", total, domain.PaymentPayLater, &paid)
	}
}

func BenchmarkMemoryAllocation(b *testing.B) {
	b.Run("InventoryItem", func(b *testing.B) {
		now := time.Now()
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			_ = &domain.InventoryItem{
				IMEI:      "356938035643809",
				Brand:     "Apple",
				Model:     "iPhone 13",
				Condition: domain.ConditionGood,
				Status:    domain.StatusInStock,
				IsActive:  true,
				CreatedAt: now,
			}
		}
	})

	b.Run("ListResult", func(b *testing.B) {
		items := make([]*domain.InventoryItem, 100)
		for i := range items {
			items[i] = &domain.InventoryItem{Brand: "Apple"}
		}

		b.ReportAllocs()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			_ = ports.NewListResult(items, ports.Page{Page: 1, PageSize: 50}, 100)
		}
	})
}
