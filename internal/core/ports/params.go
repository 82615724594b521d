// internal/core/ports/params.go
package ports

import (
	"time"

	"github.com/google/uuid"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 200
)

// Page is shared pagination input.
type Page struct {
	Page     int
	PageSize int
}

// Normalize clamps the page to sane bounds.
func (p *Page) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type ItemListParams struct {
	Page
	Search     string
	Brand      string
	Status     domain.ItemStatus
	Condition  domain.ItemCondition
	PurchaseID *uuid.UUID
	SaleID     *uuid.UUID
}

// TransactionListParams filters purchases and sales alike.
type TransactionListParams struct {
	Page
	CustomerID   *uuid.UUID
	PaymentType  domain.PaymentType
	From         *time.Time
	To           *time.Time
	HasRemaining *bool
}

type RepairListParams struct {
	Page
	Status       domain.RepairStatus
	ItemID       *uuid.UUID
	TechnicianID *uuid.UUID
}

// ListResult is a page of T.
type ListResult[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
}

// NewListResult computes page counts.
func NewListResult[T any](items []T, page Page, total int64) *ListResult[T] {
	pages := 0
	if page.PageSize > 0 {
		pages = int((total + int64(page.PageSize) - 1) / int64(page.PageSize))
	}
	if items == nil {
		items = []T{}
	}
	return &ListResult[T]{
		Items:      items,
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalCount: total,
		TotalPages: pages,
	}
}
