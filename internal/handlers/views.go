// internal/handlers/views.go
package handlers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// Response views render money as fixed 2dp strings and drop soft-delete
// bookkeeping that clients never see.

func money(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyScale)
}

func optMoney(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := money(*d)
	return &s
}

// ListView is a page of rendered records.
type ListView[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
}

func newListView[S, T any](r *ports.ListResult[S], render func(S) T) ListView[T] {
	items := make([]T, 0, len(r.Items))
	for _, s := range r.Items {
		items = append(items, render(s))
	}
	return ListView[T]{
		Items:      items,
		Page:       r.Page,
		PageSize:   r.PageSize,
		TotalCount: r.TotalCount,
		TotalPages: r.TotalPages,
	}
}

type ItemView struct {
	ID          uuid.UUID  `json:"id"`
	IMEI        string     `json:"imei"`
	Brand       string     `json:"brand"`
	Model       string     `json:"model"`
	Storage     string     `json:"storage,omitempty"`
	Color       string     `json:"color,omitempty"`
	Condition   string     `json:"condition"`
	Status      string     `json:"status"`
	KnownIssues string     `json:"known_issues,omitempty"`
	PurchaseID  *uuid.UUID `json:"purchase_id,omitempty"`
	SaleID      *uuid.UUID `json:"sale_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func newItemView(i *domain.InventoryItem) ItemView {
	return ItemView{
		ID:          i.ID,
		IMEI:        i.IMEI,
		Brand:       i.Brand,
		Model:       i.Model,
		Storage:     i.Storage,
		Color:       i.Color,
		Condition:   string(i.Condition),
		Status:      string(i.Status),
		KnownIssues: i.KnownIssues,
		PurchaseID:  i.PurchaseID,
		SaleID:      i.SaleID,
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

type ActivityView struct {
	ID         uuid.UUID  `json:"id"`
	Kind       string     `json:"kind"`
	PurchaseID *uuid.UUID `json:"purchase_id,omitempty"`
	SaleID     *uuid.UUID `json:"sale_id,omitempty"`
	Amount     string     `json:"amount"`
	PaidAt     time.Time  `json:"paid_at"`
	Notes      string     `json:"notes,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func newActivityView(a *domain.Activity) ActivityView {
	return ActivityView{
		ID:         a.ID,
		Kind:       string(a.Kind),
		PurchaseID: a.Target.PurchaseID,
		SaleID:     a.Target.SaleID,
		Amount:     money(a.Amount),
		PaidAt:     a.PaidAt,
		Notes:      a.Notes,
		CreatedAt:  a.CreatedAt,
	}
}

func newActivityViews(activities []*domain.Activity) []ActivityView {
	views := make([]ActivityView, 0, len(activities))
	for _, a := range activities {
		views = append(views, newActivityView(a))
	}
	return views
}

// BalanceView is the money block shared by purchases and sales.
type BalanceView struct {
	PaymentMethod string `json:"payment_method,omitempty"`
	PaymentType   string `json:"payment_type"`
	TotalPrice    string `json:"total_price"`
	PaidNow       string `json:"paid_now"`
	Remaining     string `json:"remaining"`
}

func newBalanceView(b domain.Balance) BalanceView {
	return BalanceView{
		PaymentMethod: b.PaymentMethod,
		PaymentType:   string(b.PaymentType),
		TotalPrice:    money(b.TotalPrice),
		PaidNow:       money(b.PaidNow),
		Remaining:     money(b.Remaining),
	}
}

type LineView struct {
	ItemID uuid.UUID `json:"item_id"`
	Price  string    `json:"price"`
	Item   *ItemView `json:"item,omitempty"`
}

func newLineView(itemID uuid.UUID, price decimal.Decimal, item *domain.InventoryItem) LineView {
	v := LineView{ItemID: itemID, Price: money(price)}
	if item != nil {
		iv := newItemView(item)
		v.Item = &iv
	}
	return v
}

type PurchaseView struct {
	ID          uuid.UUID  `json:"id"`
	CustomerID  *uuid.UUID `json:"customer_id,omitempty"`
	PurchasedAt time.Time  `json:"purchased_at"`
	BalanceView
	Notes      string         `json:"notes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Items      []LineView     `json:"items,omitempty"`
	Activities []ActivityView `json:"activities,omitempty"`
}

func newPurchaseView(p *domain.Purchase) PurchaseView {
	v := PurchaseView{
		ID:          p.ID,
		CustomerID:  p.CustomerID,
		PurchasedAt: p.PurchasedAt,
		BalanceView: newBalanceView(p.Balance),
		Notes:       p.Notes,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	for _, line := range p.Items {
		v.Items = append(v.Items, newLineView(line.ItemID, line.PurchasePrice, line.Item))
	}
	if len(p.Activities) > 0 {
		v.Activities = newActivityViews(p.Activities)
	}
	return v
}

type SaleView struct {
	ID         uuid.UUID  `json:"id"`
	CustomerID *uuid.UUID `json:"customer_id,omitempty"`
	SoldAt     time.Time  `json:"sold_at"`
	BalanceView
	Notes      string         `json:"notes,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	Items      []LineView     `json:"items,omitempty"`
	Activities []ActivityView `json:"activities,omitempty"`
}

func newSaleView(s *domain.Sale) SaleView {
	v := SaleView{
		ID:          s.ID,
		CustomerID:  s.CustomerID,
		SoldAt:      s.SoldAt,
		BalanceView: newBalanceView(s.Balance),
		Notes:       s.Notes,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
	for _, line := range s.Items {
		v.Items = append(v.Items, newLineView(line.ItemID, line.SalePrice, line.Item))
	}
	if len(s.Activities) > 0 {
		v.Activities = newActivityViews(s.Activities)
	}
	return v
}

type RepairEntryView struct {
	ID          uuid.UUID `json:"id"`
	Description string    `json:"description"`
	PartsCost   *string   `json:"parts_cost,omitempty"`
	LaborCost   *string   `json:"labor_cost,omitempty"`
	CostTotal   *string   `json:"cost_total,omitempty"`
	PerformedAt time.Time `json:"performed_at"`
}

type RepairView struct {
	ID           uuid.UUID         `json:"id"`
	ItemID       uuid.UUID         `json:"item_id"`
	TechnicianID *uuid.UUID        `json:"technician_id,omitempty"`
	Description  string            `json:"description"`
	Status       string            `json:"status"`
	PartsCost    *string           `json:"parts_cost,omitempty"`
	LaborCost    *string           `json:"labor_cost,omitempty"`
	CostTotal    *string           `json:"cost_total,omitempty"`
	TotalCost    string            `json:"total_cost"`
	StartedAt    time.Time         `json:"started_at"`
	CompletedAt  *time.Time        `json:"completed_at,omitempty"`
	UpdatedAt    time.Time         `json:"updated_at"`
	Entries      []RepairEntryView `json:"entries,omitempty"`
}

func newRepairView(r *domain.Repair) RepairView {
	v := RepairView{
		ID:           r.ID,
		ItemID:       r.ItemID,
		TechnicianID: r.TechnicianID,
		Description:  r.Description,
		Status:       string(r.Status),
		PartsCost:    optMoney(r.PartsCost),
		LaborCost:    optMoney(r.LaborCost),
		CostTotal:    optMoney(r.CostTotal),
		TotalCost:    money(r.TotalCost()),
		StartedAt:    r.StartedAt,
		CompletedAt:  r.CompletedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	for _, e := range r.Entries {
		v.Entries = append(v.Entries, RepairEntryView{
			ID:          e.ID,
			Description: e.Description,
			PartsCost:   optMoney(e.PartsCost),
			LaborCost:   optMoney(e.LaborCost),
			CostTotal:   optMoney(e.CostTotal),
			PerformedAt: e.PerformedAt,
		})
	}
	return v
}
