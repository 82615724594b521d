// internal/core/domain/purchase.go
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Purchase is an intake transaction that registers 1..N new items.
type Purchase struct {
	ID          uuid.UUID  `json:"id"`
	CustomerID  *uuid.UUID `json:"customer_id,omitempty"`
	PurchasedAt time.Time  `json:"purchased_at"`
	Balance
	Notes     string     `json:"notes,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	Items      []*PurchaseItem `json:"items,omitempty"`
	Activities []*Activity     `json:"activities,omitempty"`
}

// PurchaseItem joins a purchase to an inventory item with its price.
type PurchaseItem struct {
	ID            uuid.UUID       `json:"id"`
	PurchaseID    uuid.UUID       `json:"purchase_id"`
	ItemID        uuid.UUID       `json:"item_id"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`

	Item *InventoryItem `json:"item,omitempty"`
}

// Deactivate soft-deletes the purchase header.
func (p *Purchase) Deactivate(at time.Time) {
	p.IsActive = false
	p.DeletedAt = &at
	p.UpdatedAt = at
}

// Sale consumes existing sellable items.
type Sale struct {
	ID         uuid.UUID  `json:"id"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	SoldAt     time.Time  `json:"sold_at"`
	Balance
	Notes     string     `json:"notes,omitempty"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`

	Items      []*SaleItem `json:"items,omitempty"`
	Activities []*Activity `json:"activities,omitempty"`
}

// SaleItem joins a sale to a sold inventory item. At most one active row per item.
type SaleItem struct {
	ID        uuid.UUID       `json:"id"`
	SaleID    uuid.UUID       `json:"sale_id"`
	ItemID    uuid.UUID       `json:"item_id"`
	SalePrice decimal.Decimal `json:"sale_price"`
	IsActive  bool            `json:"is_active"`
	CreatedAt time.Time       `json:"created_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`

	Item *InventoryItem `json:"item,omitempty"`
}

func (s *Sale) Deactivate(at time.Time) {
	s.IsActive = false
	s.DeletedAt = &at
	s.UpdatedAt = at
}

// SumPrices totals line prices.
func SumPrices(prices []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range prices {
		total = total.Add(p)
	}
	return Money(total)
}
