// internal/core/domain/repair.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RepairStatus is the work order state.
type RepairStatus string

const (
	RepairPending RepairStatus = "PENDING"
	RepairDone    RepairStatus = "DONE"
)

func (s RepairStatus) Valid() bool {
	return s == RepairPending || s == RepairDone
}

// Repair is a work order against a single item.
type Repair struct {
	ID           uuid.UUID        `json:"id"`
	ItemID       uuid.UUID        `json:"item_id"`
	TechnicianID *uuid.UUID       `json:"technician_id,omitempty"`
	Description  string           `json:"description"`
	Status       RepairStatus     `json:"status"`
	CostTotal    *decimal.Decimal `json:"cost_total,omitempty"`
	PartsCost    *decimal.Decimal `json:"parts_cost,omitempty"`
	LaborCost    *decimal.Decimal `json:"labor_cost,omitempty"`
	StartedAt    time.Time        `json:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	IsActive     bool             `json:"is_active"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	DeletedAt    *time.Time       `json:"deleted_at,omitempty"`

	Entries []*RepairEntry `json:"entries,omitempty"`
}

// RepairEntry is a single billable event. All costs are optional.
type RepairEntry struct {
	ID          uuid.UUID        `json:"id"`
	RepairID    uuid.UUID        `json:"repair_id"`
	Description string           `json:"description"`
	PartsCost   *decimal.Decimal `json:"parts_cost,omitempty"`
	LaborCost   *decimal.Decimal `json:"labor_cost,omitempty"`
	CostTotal   *decimal.Decimal `json:"cost_total,omitempty"`
	PerformedAt time.Time        `json:"performed_at"`
	IsActive    bool             `json:"is_active"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   *time.Time       `json:"deleted_at,omitempty"`
}

// Normalize rounds costs and fills CostTotal from parts and labor when absent.
func (e *RepairEntry) Normalize() error {
	for _, c := range []*decimal.Decimal{e.PartsCost, e.LaborCost, e.CostTotal} {
		if c == nil {
			continue
		}
		if c.IsNegative() {
			return Validation("repair_entry", "costs cannot be negative")
		}
		*c = Money(*c)
	}
	if e.CostTotal == nil && (e.PartsCost != nil || e.LaborCost != nil) {
		total := orZero(e.PartsCost).Add(orZero(e.LaborCost))
		e.CostTotal = &total
	}
	return nil
}

// DefaultRepairDescription is used when intake supplies no known issues.
func DefaultRepairDescription(item *InventoryItem) string {
	if issues := strings.TrimSpace(item.KnownIssues); issues != "" {
		return issues
	}
	return fmt.Sprintf("Intake inspection for %s %s (%s)", item.Brand, item.Model, item.IMEI)
}

// RecalculateCosts sets the aggregate costs from active entries.
// Unset entry costs count as zero; aggregates stay nil only with no entries.
func (r *Repair) RecalculateCosts(entries []*RepairEntry) {
	var active []*RepairEntry
	for _, e := range entries {
		if e.IsActive {
			active = append(active, e)
		}
	}
	if len(active) == 0 {
		r.CostTotal, r.PartsCost, r.LaborCost = nil, nil, nil
		return
	}

	total, parts, labor := decimal.Zero, decimal.Zero, decimal.Zero
	for _, e := range active {
		total = total.Add(orZero(e.CostTotal))
		parts = parts.Add(orZero(e.PartsCost))
		labor = labor.Add(orZero(e.LaborCost))
	}
	total, parts, labor = Money(total), Money(parts), Money(labor)
	r.CostTotal, r.PartsCost, r.LaborCost = &total, &parts, &labor
}

// TotalCost returns the aggregate cost or zero.
func (r *Repair) TotalCost() decimal.Decimal {
	return orZero(r.CostTotal)
}

func (r *Repair) Deactivate(at time.Time) {
	r.IsActive = false
	r.DeletedAt = &at
	r.UpdatedAt = at
}

func orZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
