// internal/core/ports/repositories.go
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
)

// TransactionScope runs a unit of work against transaction-bound repositories.
// Any error returned by fn rolls back every write made through repos.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
	Query(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}

// Repositories is the set of stores bound to one transaction.
type Repositories interface {
	Items() ItemRepository
	Customers() CustomerRepository
	Purchases() PurchaseRepository
	Sales() SaleRepository
	Activities() ActivityRepository
	Repairs() RepairRepository
	Users() UserDirectory
}

// Lookups return (nil, nil) when the row is missing or soft-deleted.

type ItemRepository interface {
	Create(ctx context.Context, item *domain.InventoryItem) error
	Update(ctx context.Context, item *domain.InventoryItem) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InventoryItem, error)
	GetByIMEI(ctx context.Context, imei string) (*domain.InventoryItem, error)
	ExistsActiveIMEI(ctx context.Context, imei string) (bool, error)
	List(ctx context.Context, params ItemListParams) ([]*domain.InventoryItem, int64, error)
}

type CustomerRepository interface {
	Create(ctx context.Context, c *domain.Customer) error
	Update(ctx context.Context, c *domain.Customer) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error)
	// GetByPhone also returns soft-deleted rows so they can be reactivated.
	GetByPhone(ctx context.Context, phone string) (*domain.Customer, error)
}

type PurchaseRepository interface {
	Create(ctx context.Context, p *domain.Purchase) error
	Update(ctx context.Context, p *domain.Purchase) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Purchase, error)
	// ApplyBalance writes next only if the stored remaining still equals expected.
	ApplyBalance(ctx context.Context, id uuid.UUID, expected decimal.Decimal, next domain.Balance) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, params TransactionListParams) ([]*domain.Purchase, int64, error)

	CreateItem(ctx context.Context, pi *domain.PurchaseItem) error
	UpdateItem(ctx context.Context, pi *domain.PurchaseItem) error
	ListItems(ctx context.Context, purchaseID uuid.UUID) ([]*domain.PurchaseItem, error)
	FindItemLink(ctx context.Context, itemID uuid.UUID) (*domain.PurchaseItem, error)
	DeactivateItems(ctx context.Context, purchaseID uuid.UUID, at time.Time) error
}

type SaleRepository interface {
	Create(ctx context.Context, s *domain.Sale) error
	Update(ctx context.Context, s *domain.Sale) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	ApplyBalance(ctx context.Context, id uuid.UUID, expected decimal.Decimal, next domain.Balance) (bool, error)
	Deactivate(ctx context.Context, id uuid.UUID, at time.Time) error
	List(ctx context.Context, params TransactionListParams) ([]*domain.Sale, int64, error)

	CreateItem(ctx context.Context, si *domain.SaleItem) error
	UpdateItem(ctx context.Context, si *domain.SaleItem) error
	ListItems(ctx context.Context, saleID uuid.UUID) ([]*domain.SaleItem, error)
	// FindSaleIDsByItems returns active sales holding any of the items.
	FindSaleIDsByItems(ctx context.Context, itemIDs []uuid.UUID) ([]uuid.UUID, error)
	DeactivateItems(ctx context.Context, saleID uuid.UUID, at time.Time) error
}

type ActivityRepository interface {
	Append(ctx context.Context, a *domain.Activity) error
	ListByTarget(ctx context.Context, target domain.PaymentTarget) ([]*domain.Activity, error)
	DeactivateByTarget(ctx context.Context, target domain.PaymentTarget, at time.Time) error
}

type RepairRepository interface {
	Create(ctx context.Context, r *domain.Repair) error
	Update(ctx context.Context, r *domain.Repair) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Repair, error)
	List(ctx context.Context, params RepairListParams) ([]*domain.Repair, int64, error)
	// OpenForItem returns the item's active PENDING repairs, oldest first.
	OpenForItem(ctx context.Context, itemID uuid.UUID) ([]*domain.Repair, error)
	// DeactivateByItems soft-deletes repairs of the items and their entries.
	DeactivateByItems(ctx context.Context, itemIDs []uuid.UUID, at time.Time) error

	CreateEntry(ctx context.Context, e *domain.RepairEntry) error
	UpdateEntry(ctx context.Context, e *domain.RepairEntry) error
	GetEntry(ctx context.Context, id uuid.UUID) (*domain.RepairEntry, error)
	ListEntries(ctx context.Context, repairID uuid.UUID) ([]*domain.RepairEntry, error)
}

// UserDirectory validates staff references. It returns a NotFound error for
// missing or inactive users.
type UserDirectory interface {
	GetActiveUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}
