// internal/core/services/sale.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// SaleService sells existing inventory.
type SaleService struct {
	scope     ports.TransactionScope
	customers *CustomerResolver
	logger    *slog.Logger
}

var _ ports.SaleService = (*SaleService)(nil)

// NewSaleService creates a new sale service
func NewSaleService(scope ports.TransactionScope, customers *CustomerResolver, logger *slog.Logger) *SaleService {
	return &SaleService{
		scope:     scope,
		customers: customers,
		logger:    logger.With(slog.String("service", "sale")),
	}
}

type resolvedLine struct {
	item  *domain.InventoryItem
	price decimal.Decimal
}

func (s *SaleService) Create(ctx context.Context, in ports.CreateSaleInput) (*domain.Sale, error) {
	const op = "sale.create"

	if len(in.Items) == 0 {
		return nil, domain.Validation(op, "at least one item is required")
	}
	if err := validateSaleLines(op, in.Items); err != nil {
		return nil, err
	}
	if in.PaidNow != nil {
		if err := validateMoney(op, "paid_now", *in.PaidNow); err != nil {
			return nil, err
		}
	}

	balance, err := domain.ComputeBalance(op, saleLineTotal(in.Items), in.PaymentType, in.PaidNow)
	if err != nil {
		return nil, err
	}
	balance.PaymentMethod = in.PaymentMethod
	soldAt := timeOrNow(in.SoldAt)

	var sale *domain.Sale
	err = s.scope.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		resolved, err := resolveSaleLines(ctx, repos, op, in.Items)
		if err != nil {
			return err
		}
		for _, r := range resolved {
			if err := domain.AssertSellable(r.item); err != nil {
				return err
			}
		}

		customerID, err := s.customers.Resolve(ctx, repos.Customers(), op, in.Customer, balance.RequiresCustomer())
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		sl := &domain.Sale{
			ID:         uuid.New(),
			CustomerID: customerID,
			SoldAt:     soldAt,
			Balance:    balance,
			Notes:      in.Notes,
			IsActive:   true,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := repos.Sales().Create(ctx, sl); err != nil {
			return fmt.Errorf("failed to create sale: %w", err)
		}

		for _, r := range resolved {
			link, err := attachItem(ctx, repos, sl.ID, r.item, r.price, now)
			if err != nil {
				return err
			}
			sl.Items = append(sl.Items, link)
		}

		if err := postInitialPayment(ctx, repos, domain.SaleTarget(sl.ID), balance, soldAt); err != nil {
			return err
		}
		sl.Activities, err = repos.Activities().ListByTarget(ctx, domain.SaleTarget(sl.ID))
		if err != nil {
			return fmt.Errorf("failed to list activities: %w", err)
		}
		sale = sl
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sale created",
		slog.String("sale_id", sale.ID.String()),
		slog.Int("items", len(sale.Items)),
		slog.String("total", sale.TotalPrice.StringFixed(domain.MoneyScale)))

	return sale, nil
}

// Update diffs the sold item set. Added items must be sellable; removed items
// return to READY_FOR_SALE.
func (s *SaleService) Update(ctx context.Context, id uuid.UUID, in ports.UpdateSaleInput) (*domain.Sale, error) {
	const op = "sale.update"

	if in.Items != nil {
		if len(in.Items) == 0 {
			return nil, domain.Validation(op, "at least one item is required")
		}
		if err := validateSaleLines(op, in.Items); err != nil {
			return nil, err
		}
	}
	if in.PaidNow != nil {
		if err := validateMoney(op, "paid_now", *in.PaidNow); err != nil {
			return nil, err
		}
	}
	if in.PaymentType != nil && !in.PaymentType.Valid() {
		return nil, domain.Validation(op, "invalid payment type %q", *in.PaymentType)
	}

	var sale *domain.Sale
	err := s.scope.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		sl, err := loadSale(ctx, repos, op, id)
		if err != nil {
			return err
		}
		links, err := repos.Sales().ListItems(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list sale items: %w", err)
		}

		now := time.Now().UTC()
		if in.Items != nil {
			links, err = syncSaleLines(ctx, repos, op, sl.ID, links, in.Items, now)
			if err != nil {
				return err
			}
		}

		prices := make([]decimal.Decimal, 0, len(links))
		for _, link := range links {
			prices = append(prices, link.SalePrice)
		}
		next, err := rebalance(op, sl.Balance, domain.SumPrices(prices), in.PaymentType, in.PaidNow, in.PaymentMethod)
		if err != nil {
			return err
		}

		customerID := sl.CustomerID
		if !in.Customer.Empty() {
			customerID, err = s.customers.Resolve(ctx, repos.Customers(), op, in.Customer, next.RequiresCustomer())
			if err != nil {
				return err
			}
		} else if customerID == nil && next.RequiresCustomer() {
			return domain.Validation(op, "customer is required when a balance remains or payment is deferred")
		}

		if err := reconcilePaidNow(ctx, repos, op, domain.SaleTarget(sl.ID), next, in.PaidNow != nil, now); err != nil {
			return err
		}

		sl.Balance = next
		sl.CustomerID = customerID
		if in.SoldAt != nil {
			sl.SoldAt = timeOrNow(in.SoldAt)
		}
		if in.Notes != nil {
			sl.Notes = *in.Notes
		}
		sl.UpdatedAt = now
		if err := repos.Sales().Update(ctx, sl); err != nil {
			return fmt.Errorf("failed to update sale: %w", err)
		}

		if err := hydrateSale(ctx, repos, sl); err != nil {
			return err
		}
		sale = sl
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sale updated",
		slog.String("sale_id", id.String()),
		slog.String("total", sale.TotalPrice.StringFixed(domain.MoneyScale)))

	return sale, nil
}

// Delete reverses the sale and releases its items.
func (s *SaleService) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "sale.delete"

	err := s.scope.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := loadSale(ctx, repos, op, id); err != nil {
			return err
		}
		return deactivateSale(ctx, repos, id, time.Now().UTC())
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "sale deleted", slog.String("sale_id", id.String()))
	return nil
}

func (s *SaleService) AddPayment(ctx context.Context, id uuid.UUID, in ports.PaymentInput) (*domain.Sale, error) {
	const op = "sale.add_payment"

	var sale *domain.Sale
	err := s.scope.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		sl, err := loadSale(ctx, repos, op, id)
		if err != nil {
			return err
		}
		sl.Balance, err = postPayment(ctx, repos, op, sl.ID, domain.SaleTarget(sl.ID), sl.Balance, in, repos.Sales().ApplyBalance)
		if err != nil {
			return err
		}
		if err := hydrateSale(ctx, repos, sl); err != nil {
			return err
		}
		sale = sl
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "sale payment recorded",
		slog.String("sale_id", id.String()),
		slog.String("amount", in.Amount.StringFixed(domain.MoneyScale)),
		slog.String("remaining", sale.Remaining.StringFixed(domain.MoneyScale)))

	return sale, nil
}

func (s *SaleService) Get(ctx context.Context, id uuid.UUID) (*domain.Sale, error) {
	var sale *domain.Sale
	err := s.scope.Query(ctx, func(ctx context.Context, repos ports.Repositories) error {
		sl, err := loadSale(ctx, repos, "sale.get", id)
		if err != nil {
			return err
		}
		if err := hydrateSale(ctx, repos, sl); err != nil {
			return err
		}
		sale = sl
		return nil
	})
	return sale, err
}

func (s *SaleService) List(ctx context.Context, params ports.TransactionListParams) (*ports.ListResult[*domain.Sale], error) {
	params.Normalize()

	var (
		sales []*domain.Sale
		total int64
	)
	err := s.scope.Query(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		sales, total, err = repos.Sales().List(ctx, params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list sales: %w", err)
	}
	return ports.NewListResult(sales, params.Page, total), nil
}

func (s *SaleService) ListActivities(ctx context.Context, id uuid.UUID) ([]*domain.Activity, error) {
	var activities []*domain.Activity
	err := s.scope.Query(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := loadSale(ctx, repos, "sale.activities", id); err != nil {
			return err
		}
		var err error
		activities, err = repos.Activities().ListByTarget(ctx, domain.SaleTarget(id))
		return err
	})
	return activities, err
}

// attachItem marks the item sold and creates its sale line.
func attachItem(ctx context.Context, repos ports.Repositories, saleID uuid.UUID, item *domain.InventoryItem, price decimal.Decimal, now time.Time) (*domain.SaleItem, error) {
	if err := item.MarkSold(saleID); err != nil {
		return nil, err
	}
	item.UpdatedAt = now
	if err := repos.Items().Update(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to mark item sold: %w", err)
	}

	link := &domain.SaleItem{
		ID:        uuid.New(),
		SaleID:    saleID,
		ItemID:    item.ID,
		SalePrice: domain.Money(price),
		IsActive:  true,
		CreatedAt: now,
		Item:      item,
	}
	if err := repos.Sales().CreateItem(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to create sale item: %w", err)
	}
	return link, nil
}

// releaseItem detaches an item from saleID. Items no longer pointing at the
// sale are left alone.
func releaseItem(ctx context.Context, repos ports.Repositories, saleID, itemID uuid.UUID, now time.Time) error {
	item, err := repos.Items().GetByID(ctx, itemID)
	if err != nil {
		return fmt.Errorf("failed to get item: %w", err)
	}
	if item == nil || item.SaleID == nil || *item.SaleID != saleID {
		return nil
	}
	if err := item.ReleaseFromSale(); err != nil {
		return err
	}
	item.UpdatedAt = now
	if err := repos.Items().Update(ctx, item); err != nil {
		return fmt.Errorf("failed to release item: %w", err)
	}
	return nil
}

// deactivateSale soft-deletes a sale with its lines, activities and the
// repairs of its items, and releases the items.
func deactivateSale(ctx context.Context, repos ports.Repositories, saleID uuid.UUID, now time.Time) error {
	links, err := repos.Sales().ListItems(ctx, saleID)
	if err != nil {
		return fmt.Errorf("failed to list sale items: %w", err)
	}
	itemIDs := make([]uuid.UUID, 0, len(links))
	for _, link := range links {
		itemIDs = append(itemIDs, link.ItemID)
	}

	if err := repos.Activities().DeactivateByTarget(ctx, domain.SaleTarget(saleID), now); err != nil {
		return fmt.Errorf("failed to deactivate activities: %w", err)
	}
	if err := repos.Sales().DeactivateItems(ctx, saleID, now); err != nil {
		return fmt.Errorf("failed to deactivate sale items: %w", err)
	}
	if err := repos.Repairs().DeactivateByItems(ctx, itemIDs, now); err != nil {
		return fmt.Errorf("failed to deactivate repairs: %w", err)
	}
	for _, itemID := range itemIDs {
		if err := releaseItem(ctx, repos, saleID, itemID, now); err != nil {
			return err
		}
	}
	if err := repos.Sales().Deactivate(ctx, saleID, now); err != nil {
		return fmt.Errorf("failed to deactivate sale: %w", err)
	}
	return nil
}

func syncSaleLines(
	ctx context.Context,
	repos ports.Repositories,
	op string,
	saleID uuid.UUID,
	links []*domain.SaleItem,
	lines []ports.SaleLine,
	now time.Time,
) ([]*domain.SaleItem, error) {
	resolved, err := resolveSaleLines(ctx, repos, op, lines)
	if err != nil {
		return nil, err
	}

	byItem := make(map[uuid.UUID]*domain.SaleItem, len(links))
	for _, link := range links {
		byItem[link.ItemID] = link
	}
	wanted := make(map[uuid.UUID]bool, len(resolved))
	for _, r := range resolved {
		wanted[r.item.ID] = true
	}

	for _, link := range links {
		if wanted[link.ItemID] {
			continue
		}
		if err := releaseItem(ctx, repos, saleID, link.ItemID, now); err != nil {
			return nil, err
		}
		link.IsActive = false
		link.DeletedAt = &now
		if err := repos.Sales().UpdateItem(ctx, link); err != nil {
			return nil, fmt.Errorf("failed to detach sale item: %w", err)
		}
	}

	result := make([]*domain.SaleItem, 0, len(resolved))
	for _, r := range resolved {
		if link, ok := byItem[r.item.ID]; ok {
			link.Item = r.item
			price := domain.Money(r.price)
			if !price.Equal(link.SalePrice) {
				link.SalePrice = price
				if err := repos.Sales().UpdateItem(ctx, link); err != nil {
					return nil, fmt.Errorf("failed to update sale item: %w", err)
				}
			}
			result = append(result, link)
			continue
		}

		link, err := attachItem(ctx, repos, saleID, r.item, r.price, now)
		if err != nil {
			return nil, err
		}
		result = append(result, link)
	}
	return result, nil
}

// resolveSaleLines loads every referenced item and rejects repeats.
func resolveSaleLines(ctx context.Context, repos ports.Repositories, op string, lines []ports.SaleLine) ([]resolvedLine, error) {
	seen := make(map[uuid.UUID]bool, len(lines))
	resolved := make([]resolvedLine, 0, len(lines))
	for _, line := range lines {
		item, err := resolveByIDOrIMEI(ctx, repos.Items(), op, line.ItemID, line.IMEI)
		if err != nil {
			return nil, err
		}
		if seen[item.ID] {
			return nil, domain.Conflict(op, "item %s appears more than once in the request", item.IMEI)
		}
		seen[item.ID] = true
		resolved = append(resolved, resolvedLine{item: item, price: line.SalePrice})
	}
	return resolved, nil
}

func validateSaleLines(op string, lines []ports.SaleLine) error {
	for i, line := range lines {
		if line.ItemID == nil && (line.IMEI == nil || *line.IMEI == "") {
			return domain.Validation(op, "items[%d]: item id or imei is required", i)
		}
		if err := validateMoney(op, fmt.Sprintf("items[%d].sale_price", i), line.SalePrice); err != nil {
			return err
		}
	}
	return nil
}

func saleLineTotal(lines []ports.SaleLine) decimal.Decimal {
	prices := make([]decimal.Decimal, 0, len(lines))
	for _, line := range lines {
		prices = append(prices, line.SalePrice)
	}
	return domain.SumPrices(prices)
}

func loadSale(ctx context.Context, repos ports.Repositories, op string, id uuid.UUID) (*domain.Sale, error) {
	sl, err := repos.Sales().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get sale: %w", err)
	}
	if sl == nil {
		return nil, domain.NotFound(op, "sale %s not found", id)
	}
	return sl, nil
}

func hydrateSale(ctx context.Context, repos ports.Repositories, sl *domain.Sale) error {
	links, err := repos.Sales().ListItems(ctx, sl.ID)
	if err != nil {
		return fmt.Errorf("failed to list sale items: %w", err)
	}
	for _, link := range links {
		if link.Item, err = repos.Items().GetByID(ctx, link.ItemID); err != nil {
			return fmt.Errorf("failed to get item: %w", err)
		}
	}
	sl.Items = links

	sl.Activities, err = repos.Activities().ListByTarget(ctx, domain.SaleTarget(sl.ID))
	if err != nil {
		return fmt.Errorf("failed to list activities: %w", err)
	}
	return nil
}
