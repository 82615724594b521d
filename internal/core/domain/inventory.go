// internal/core/domain/inventory.go
package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemCondition is the physical condition recorded at intake.
type ItemCondition string

const (
	ConditionGood   ItemCondition = "GOOD"
	ConditionUsed   ItemCondition = "USED"
	ConditionBroken ItemCondition = "BROKEN"
)

func (c ItemCondition) Valid() bool {
	switch c {
	case ConditionGood, ConditionUsed, ConditionBroken:
		return true
	}
	return false
}

// ItemStatus is the lifecycle state of a physical item.
type ItemStatus string

const (
	StatusInStock      ItemStatus = "IN_STOCK"
	StatusInRepair     ItemStatus = "IN_REPAIR"
	StatusReadyForSale ItemStatus = "READY_FOR_SALE"
	StatusSold         ItemStatus = "SOLD"
	StatusReturned     ItemStatus = "RETURNED"
)

func (s ItemStatus) Valid() bool {
	_, ok := itemTransitions[s]
	return ok
}

// itemTransitions lists the legal targets for each status.
var itemTransitions = map[ItemStatus][]ItemStatus{
	StatusInStock:      {StatusInRepair, StatusSold, StatusReturned},
	StatusReadyForSale: {StatusInRepair, StatusSold, StatusReturned},
	StatusInRepair:     {StatusReadyForSale},
	StatusSold:         {StatusReadyForSale},
	StatusReturned:     {StatusInRepair},
}

// CanTransition reports whether from -> to is allowed. Staying put is always allowed.
func CanTransition(from, to ItemStatus) bool {
	if from == to {
		return true
	}
	for _, next := range itemTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InitialStatus resolves the intake status: an explicit status wins,
// otherwise broken phones go straight to repair.
func InitialStatus(condition ItemCondition, explicit *ItemStatus) ItemStatus {
	if explicit != nil && *explicit != "" {
		return *explicit
	}
	if condition == ConditionBroken {
		return StatusInRepair
	}
	return StatusInStock
}

// InventoryItem is one physical phone identified by its IMEI.
type InventoryItem struct {
	ID          uuid.UUID     `json:"id"`
	IMEI        string        `json:"imei"`
	Brand       string        `json:"brand"`
	Model       string        `json:"model"`
	Storage     string        `json:"storage,omitempty"`
	Color       string        `json:"color,omitempty"`
	Condition   ItemCondition `json:"condition"`
	Status      ItemStatus    `json:"status"`
	KnownIssues string        `json:"known_issues,omitempty"`
	PurchaseID  *uuid.UUID    `json:"purchase_id,omitempty"`
	SaleID      *uuid.UUID    `json:"sale_id,omitempty"`
	IsActive    bool          `json:"is_active"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	DeletedAt   *time.Time    `json:"deleted_at,omitempty"`
}

// Validate checks intake fields.
func (i *InventoryItem) Validate() error {
	i.IMEI = strings.TrimSpace(i.IMEI)
	if i.IMEI == "" {
		return Validation("item", "imei is required")
	}
	if strings.TrimSpace(i.Brand) == "" {
		return Validation("item", "brand is required")
	}
	if strings.TrimSpace(i.Model) == "" {
		return Validation("item", "model is required")
	}
	if !i.Condition.Valid() {
		return Validation("item", "invalid condition %q", i.Condition)
	}
	if !i.Status.Valid() {
		return Validation("item", "invalid status %q", i.Status)
	}
	return nil
}

// TransitionTo moves the item to a new status or fails with Conflict.
func (i *InventoryItem) TransitionTo(next ItemStatus) error {
	if !CanTransition(i.Status, next) {
		return Conflict("item", "item %s cannot move from %s to %s", i.IMEI, i.Status, next)
	}
	i.Status = next
	return nil
}

// MarkSold attaches the item to a sale.
func (i *InventoryItem) MarkSold(saleID uuid.UUID) error {
	if err := AssertSellable(i); err != nil {
		return err
	}
	if err := i.TransitionTo(StatusSold); err != nil {
		return err
	}
	i.SaleID = &saleID
	return nil
}

// ReleaseFromSale reverts a sold item. The sale does not know the item's
// pre-sale state so it always lands on READY_FOR_SALE.
func (i *InventoryItem) ReleaseFromSale() error {
	if i.Status == StatusSold {
		if err := i.TransitionTo(StatusReadyForSale); err != nil {
			return err
		}
	}
	i.SaleID = nil
	return nil
}

// Deactivate soft-deletes the item.
func (i *InventoryItem) Deactivate(at time.Time) {
	i.IsActive = false
	i.DeletedAt = &at
	i.UpdatedAt = at
}

// AssertSellable fails unless the item is in stock or ready and not attached to a sale.
func AssertSellable(i *InventoryItem) error {
	if i.SaleID != nil {
		return Conflict("item", "item %s is already attached to a sale", i.IMEI)
	}
	if i.Status != StatusInStock && i.Status != StatusReadyForSale {
		return Conflict("item", "item %s is not sellable in status %s", i.IMEI, i.Status)
	}
	return nil
}

// AssertRepairable fails when the item is sold or already in repair.
func AssertRepairable(i *InventoryItem) error {
	switch i.Status {
	case StatusSold:
		return Conflict("item", "item %s is sold and cannot be repaired", i.IMEI)
	case StatusInRepair:
		return Conflict("item", "item %s already has an open repair", i.IMEI)
	}
	return nil
}
