// internal/handlers/dto.go
package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// CustomerRequest is inline contact data; the phone number is the upsert key.
type CustomerRequest struct {
	PhoneNumber string  `json:"phone_number" validate:"required,max=32"`
	FullName    *string `json:"full_name,omitempty" validate:"omitempty,max=200"`
	Address     *string `json:"address,omitempty" validate:"omitempty,max=500"`
	PassportID  *string `json:"passport_id,omitempty" validate:"omitempty,max=64"`
	Notes       *string `json:"notes,omitempty"`
}

func customerRef(id *uuid.UUID, c *CustomerRequest) ports.CustomerRef {
	ref := ports.CustomerRef{CustomerID: id}
	if c != nil {
		ref.Inline = &domain.CustomerInput{
			PhoneNumber: c.PhoneNumber,
			FullName:    c.FullName,
			Address:     c.Address,
			PassportID:  c.PassportID,
			Notes:       c.Notes,
		}
	}
	return ref
}

func paymentTypePtr(s *string) *domain.PaymentType {
	if s == nil {
		return nil
	}
	pt := domain.PaymentType(*s)
	return &pt
}

// PurchaseLineRequest describes one phone taken in.
type PurchaseLineRequest struct {
	ItemID        *uuid.UUID      `json:"item_id,omitempty"`
	IMEI          string          `json:"imei" validate:"required,max=32"`
	Brand         string          `json:"brand" validate:"required,max=100"`
	Model         string          `json:"model" validate:"required,max=100"`
	Storage       string          `json:"storage,omitempty" validate:"max=50"`
	Color         string          `json:"color,omitempty" validate:"max=50"`
	Condition     string          `json:"condition" validate:"required,item_condition"`
	InitialStatus string          `json:"initial_status,omitempty" validate:"omitempty,item_status"`
	KnownIssues   string          `json:"known_issues,omitempty"`
	PurchasePrice decimal.Decimal `json:"purchase_price" validate:"money"`
}

func (r PurchaseLineRequest) toLine() ports.PurchaseLine {
	line := ports.PurchaseLine{
		ItemID:        r.ItemID,
		IMEI:          r.IMEI,
		Brand:         r.Brand,
		Model:         r.Model,
		Storage:       r.Storage,
		Color:         r.Color,
		Condition:     domain.ItemCondition(r.Condition),
		KnownIssues:   r.KnownIssues,
		PurchasePrice: r.PurchasePrice,
	}
	if r.InitialStatus != "" {
		status := domain.ItemStatus(r.InitialStatus)
		line.InitialStatus = &status
	}
	return line
}

func purchaseLines(reqs []PurchaseLineRequest) []ports.PurchaseLine {
	if reqs == nil {
		return nil
	}
	lines := make([]ports.PurchaseLine, 0, len(reqs))
	for _, r := range reqs {
		lines = append(lines, r.toLine())
	}
	return lines
}

// CreatePurchaseRequest represents the request body for creating a purchase
type CreatePurchaseRequest struct {
	PurchasedAt   *time.Time            `json:"purchased_at,omitempty"`
	CustomerID    *uuid.UUID            `json:"customer_id,omitempty"`
	Customer      *CustomerRequest      `json:"customer,omitempty"`
	PaymentMethod string                `json:"payment_method,omitempty" validate:"max=50"`
	PaymentType   string                `json:"payment_type" validate:"required,payment_type"`
	PaidNow       *decimal.Decimal      `json:"paid_now,omitempty" validate:"omitempty,money"`
	Notes         string                `json:"notes,omitempty"`
	Items         []PurchaseLineRequest `json:"items" validate:"required,min=1,dive"`
}

func (r *CreatePurchaseRequest) toInput() ports.CreatePurchaseInput {
	return ports.CreatePurchaseInput{
		PurchasedAt:   r.PurchasedAt,
		Customer:      customerRef(r.CustomerID, r.Customer),
		PaymentMethod: r.PaymentMethod,
		PaymentType:   domain.PaymentType(r.PaymentType),
		PaidNow:       r.PaidNow,
		Notes:         r.Notes,
		Items:         purchaseLines(r.Items),
	}
}

// UpdatePurchaseRequest carries only the fields to change. A present items
// array replaces the line set.
type UpdatePurchaseRequest struct {
	PurchasedAt   *time.Time            `json:"purchased_at,omitempty"`
	CustomerID    *uuid.UUID            `json:"customer_id,omitempty"`
	Customer      *CustomerRequest      `json:"customer,omitempty"`
	PaymentMethod *string               `json:"payment_method,omitempty" validate:"omitempty,max=50"`
	PaymentType   *string               `json:"payment_type,omitempty" validate:"omitempty,payment_type"`
	PaidNow       *decimal.Decimal      `json:"paid_now,omitempty" validate:"omitempty,money"`
	Notes         *string               `json:"notes,omitempty"`
	Items         []PurchaseLineRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

func (r *UpdatePurchaseRequest) toInput() ports.UpdatePurchaseInput {
	return ports.UpdatePurchaseInput{
		PurchasedAt:   r.PurchasedAt,
		Customer:      customerRef(r.CustomerID, r.Customer),
		PaymentMethod: r.PaymentMethod,
		PaymentType:   paymentTypePtr(r.PaymentType),
		PaidNow:       r.PaidNow,
		Notes:         r.Notes,
		Items:         purchaseLines(r.Items),
	}
}

// SaleLineRequest references a stocked item by id, IMEI, or both.
type SaleLineRequest struct {
	ItemID    *uuid.UUID      `json:"item_id,omitempty" validate:"required_without=IMEI"`
	IMEI      *string         `json:"imei,omitempty" validate:"omitempty,max=32"`
	SalePrice decimal.Decimal `json:"sale_price" validate:"money"`
}

func saleLines(reqs []SaleLineRequest) []ports.SaleLine {
	if reqs == nil {
		return nil
	}
	lines := make([]ports.SaleLine, 0, len(reqs))
	for _, r := range reqs {
		lines = append(lines, ports.SaleLine{ItemID: r.ItemID, IMEI: r.IMEI, SalePrice: r.SalePrice})
	}
	return lines
}

// CreateSaleRequest represents the request body for creating a sale
type CreateSaleRequest struct {
	SoldAt        *time.Time        `json:"sold_at,omitempty"`
	CustomerID    *uuid.UUID        `json:"customer_id,omitempty"`
	Customer      *CustomerRequest  `json:"customer,omitempty"`
	PaymentMethod string            `json:"payment_method,omitempty" validate:"max=50"`
	PaymentType   string            `json:"payment_type" validate:"required,payment_type"`
	PaidNow       *decimal.Decimal  `json:"paid_now,omitempty" validate:"omitempty,money"`
	Notes         string            `json:"notes,omitempty"`
	Items         []SaleLineRequest `json:"items" validate:"required,min=1,dive"`
}

func (r *CreateSaleRequest) toInput() ports.CreateSaleInput {
	return ports.CreateSaleInput{
		SoldAt:        r.SoldAt,
		Customer:      customerRef(r.CustomerID, r.Customer),
		PaymentMethod: r.PaymentMethod,
		PaymentType:   domain.PaymentType(r.PaymentType),
		PaidNow:       r.PaidNow,
		Notes:         r.Notes,
		Items:         saleLines(r.Items),
	}
}

type UpdateSaleRequest struct {
	SoldAt        *time.Time        `json:"sold_at,omitempty"`
	CustomerID    *uuid.UUID        `json:"customer_id,omitempty"`
	Customer      *CustomerRequest  `json:"customer,omitempty"`
	PaymentMethod *string           `json:"payment_method,omitempty" validate:"omitempty,max=50"`
	PaymentType   *string           `json:"payment_type,omitempty" validate:"omitempty,payment_type"`
	PaidNow       *decimal.Decimal  `json:"paid_now,omitempty" validate:"omitempty,money"`
	Notes         *string           `json:"notes,omitempty"`
	Items         []SaleLineRequest `json:"items,omitempty" validate:"omitempty,min=1,dive"`
}

func (r *UpdateSaleRequest) toInput() ports.UpdateSaleInput {
	return ports.UpdateSaleInput{
		SoldAt:        r.SoldAt,
		Customer:      customerRef(r.CustomerID, r.Customer),
		PaymentMethod: r.PaymentMethod,
		PaymentType:   paymentTypePtr(r.PaymentType),
		PaidNow:       r.PaidNow,
		Notes:         r.Notes,
		Items:         saleLines(r.Items),
	}
}

// PaymentRequest records a partial payment against an open balance.
type PaymentRequest struct {
	Amount decimal.Decimal `json:"amount" validate:"required,money"`
	PaidAt *time.Time      `json:"paid_at,omitempty"`
	Notes  string          `json:"notes,omitempty" validate:"max=500"`
}

func (r *PaymentRequest) toInput() ports.PaymentInput {
	return ports.PaymentInput{Amount: r.Amount, PaidAt: r.PaidAt, Notes: r.Notes}
}

// RepairEntryRequest is one billable repair event; all costs are optional.
type RepairEntryRequest struct {
	Description string           `json:"description" validate:"max=500"`
	PartsCost   *decimal.Decimal `json:"parts_cost,omitempty" validate:"omitempty,money"`
	LaborCost   *decimal.Decimal `json:"labor_cost,omitempty" validate:"omitempty,money"`
	CostTotal   *decimal.Decimal `json:"cost_total,omitempty" validate:"omitempty,money"`
	PerformedAt *time.Time       `json:"performed_at,omitempty"`
}

func (r *RepairEntryRequest) toInput() ports.RepairEntryInput {
	return ports.RepairEntryInput{
		Description: r.Description,
		PartsCost:   r.PartsCost,
		LaborCost:   r.LaborCost,
		CostTotal:   r.CostTotal,
		PerformedAt: r.PerformedAt,
	}
}

type CreateRepairRequest struct {
	ItemID       *uuid.UUID          `json:"item_id,omitempty" validate:"required_without=IMEI"`
	IMEI         *string             `json:"imei,omitempty" validate:"omitempty,max=32"`
	TechnicianID *uuid.UUID          `json:"technician_id,omitempty"`
	Description  string              `json:"description,omitempty" validate:"max=500"`
	InitialEntry *RepairEntryRequest `json:"initial_entry,omitempty"`
}

func (r *CreateRepairRequest) toInput() ports.CreateRepairInput {
	in := ports.CreateRepairInput{
		ItemID:       r.ItemID,
		IMEI:         r.IMEI,
		TechnicianID: r.TechnicianID,
		Description:  r.Description,
	}
	if r.InitialEntry != nil {
		entry := r.InitialEntry.toInput()
		in.InitialEntry = &entry
	}
	return in
}

type UpdateRepairRequest struct {
	Status       *string    `json:"status,omitempty" validate:"omitempty,repair_status"`
	TechnicianID *uuid.UUID `json:"technician_id,omitempty"`
	Description  *string    `json:"description,omitempty" validate:"omitempty,max=500"`
}

func (r *UpdateRepairRequest) toInput() ports.UpdateRepairInput {
	in := ports.UpdateRepairInput{
		TechnicianID: r.TechnicianID,
		Description:  r.Description,
	}
	if r.Status != nil {
		status := domain.RepairStatus(*r.Status)
		in.Status = &status
	}
	return in
}
