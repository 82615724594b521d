// internal/core/ports/services.go
package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
)

// CustomerRef identifies a customer by id or by inline contact data.
type CustomerRef struct {
	CustomerID *uuid.UUID
	Inline     *domain.CustomerInput
}

func (r CustomerRef) Empty() bool {
	return r.CustomerID == nil && r.Inline == nil
}

// PurchaseLine describes one intake item. ItemID is set on update to match
// an existing line.
type PurchaseLine struct {
	ItemID        *uuid.UUID
	IMEI          string
	Brand         string
	Model         string
	Storage       string
	Color         string
	Condition     domain.ItemCondition
	InitialStatus *domain.ItemStatus
	KnownIssues   string
	PurchasePrice decimal.Decimal
}

type CreatePurchaseInput struct {
	PurchasedAt   *time.Time
	Customer      CustomerRef
	PaymentMethod string
	PaymentType   domain.PaymentType
	PaidNow       *decimal.Decimal
	Notes         string
	Items         []PurchaseLine
}

// UpdatePurchaseInput fields left nil keep their stored value.
type UpdatePurchaseInput struct {
	PurchasedAt   *time.Time
	Customer      CustomerRef
	PaymentMethod *string
	PaymentType   *domain.PaymentType
	PaidNow       *decimal.Decimal
	Notes         *string
	Items         []PurchaseLine
}

// SaleLine references an existing item by id, IMEI, or both.
type SaleLine struct {
	ItemID    *uuid.UUID
	IMEI      *string
	SalePrice decimal.Decimal
}

type CreateSaleInput struct {
	SoldAt        *time.Time
	Customer      CustomerRef
	PaymentMethod string
	PaymentType   domain.PaymentType
	PaidNow       *decimal.Decimal
	Notes         string
	Items         []SaleLine
}

type UpdateSaleInput struct {
	SoldAt        *time.Time
	Customer      CustomerRef
	PaymentMethod *string
	PaymentType   *domain.PaymentType
	PaidNow       *decimal.Decimal
	Notes         *string
	Items         []SaleLine
}

type PaymentInput struct {
	Amount decimal.Decimal
	PaidAt *time.Time
	Notes  string
}

type RepairEntryInput struct {
	Description string
	PartsCost   *decimal.Decimal
	LaborCost   *decimal.Decimal
	CostTotal   *decimal.Decimal
	PerformedAt *time.Time
}

type CreateRepairInput struct {
	ItemID       *uuid.UUID
	IMEI         *string
	TechnicianID *uuid.UUID
	Description  string
	InitialEntry *RepairEntryInput
}

type UpdateRepairInput struct {
	Status       *domain.RepairStatus
	TechnicianID *uuid.UUID
	Description  *string
}

type PurchaseService interface {
	Create(ctx context.Context, in CreatePurchaseInput) (*domain.Purchase, error)
	Update(ctx context.Context, id uuid.UUID, in UpdatePurchaseInput) (*domain.Purchase, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddPayment(ctx context.Context, id uuid.UUID, in PaymentInput) (*domain.Purchase, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Purchase, error)
	List(ctx context.Context, params TransactionListParams) (*ListResult[*domain.Purchase], error)
	ListActivities(ctx context.Context, id uuid.UUID) ([]*domain.Activity, error)
}

type SaleService interface {
	Create(ctx context.Context, in CreateSaleInput) (*domain.Sale, error)
	Update(ctx context.Context, id uuid.UUID, in UpdateSaleInput) (*domain.Sale, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AddPayment(ctx context.Context, id uuid.UUID, in PaymentInput) (*domain.Sale, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Sale, error)
	List(ctx context.Context, params TransactionListParams) (*ListResult[*domain.Sale], error)
	ListActivities(ctx context.Context, id uuid.UUID) ([]*domain.Activity, error)
}

type RepairService interface {
	CreateCase(ctx context.Context, in CreateRepairInput) (*domain.Repair, error)
	UpdateCase(ctx context.Context, id uuid.UUID, in UpdateRepairInput) (*domain.Repair, error)
	AddEntry(ctx context.Context, repairID uuid.UUID, in RepairEntryInput) (*domain.Repair, error)
	UpdateEntry(ctx context.Context, repairID, entryID uuid.UUID, in RepairEntryInput) (*domain.Repair, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Repair, error)
	List(ctx context.Context, params RepairListParams) (*ListResult[*domain.Repair], error)
}

type InventoryService interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.InventoryItem, error)
	GetByIMEI(ctx context.Context, imei string) (*domain.InventoryItem, error)
	List(ctx context.Context, params ItemListParams) (*ListResult[*domain.InventoryItem], error)
}
