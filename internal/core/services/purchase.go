// internal/core/services/purchase.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// PurchaseService registers intake transactions and their inventory.
type PurchaseService struct {
	scope     ports.TransactionScope
	customers *CustomerResolver
	logger    *slog.Logger
}

var _ ports.PurchaseService = (*PurchaseService)(nil)

// NewPurchaseService creates a new purchase service
func NewPurchaseService(scope ports.TransactionScope, customers *CustomerResolver, logger *slog.Logger) *PurchaseService {
	return &PurchaseService{
		scope:     scope,
		customers: customers,
		logger:    logger.With(slog.String("service", "purchase")),
	}
}

// Create registers the purchase, its items, any intake repairs and the
// initial payment in one transaction.
func (s *PurchaseService) Create(ctx context.Context, in ports.CreatePurchaseInput) (*domain.Purchase, error) {
	const op = "purchase.create"

	if len(in.Items) == 0 {
		return nil, domain.Validation(op, "at least one item is required")
	}
	if err := validatePurchaseLines(op, in.Items); err != nil {
		return nil, err
	}
	if in.PaidNow != nil {
		if err := validateMoney(op, "paid_now", *in.PaidNow); err != nil {
			return nil, err
		}
	}

	balance, err := domain.ComputeBalance(op, linePriceTotal(in.Items), in.PaymentType, in.PaidNow)
	if err != nil {
		return nil, err
	}
	balance.PaymentMethod = in.PaymentMethod
	purchasedAt := timeOrNow(in.PurchasedAt)

	var purchase *domain.Purchase
	err = s.scope.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		for _, line := range in.Items {
			if err := ensureImeiUnique(ctx, repos.Items(), op, strings.TrimSpace(line.IMEI)); err != nil {
				return err
			}
		}

		customerID, err := s.customers.Resolve(ctx, repos.Customers(), op, in.Customer, balance.RequiresCustomer())
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		p := &domain.Purchase{
			ID:          uuid.New(),
			CustomerID:  customerID,
			PurchasedAt: purchasedAt,
			Balance:     balance,
			Notes:       in.Notes,
			IsActive:    true,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repos.Purchases().Create(ctx, p); err != nil {
			return fmt.Errorf("failed to create purchase: %w", err)
		}

		for _, line := range in.Items {
			link, err := registerItem(ctx, repos, op, p.ID, line, now)
			if err != nil {
				return err
			}
			p.Items = append(p.Items, link)
		}

		if err := postInitialPayment(ctx, repos, domain.PurchaseTarget(p.ID), balance, purchasedAt); err != nil {
			return err
		}

		p.Activities, err = repos.Activities().ListByTarget(ctx, domain.PurchaseTarget(p.ID))
		if err != nil {
			return fmt.Errorf("failed to list activities: %w", err)
		}
		purchase = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "purchase created",
		slog.String("purchase_id", purchase.ID.String()),
		slog.Int("items", len(purchase.Items)),
		slog.String("total", purchase.TotalPrice.StringFixed(domain.MoneyScale)),
		slog.String("remaining", purchase.Remaining.StringFixed(domain.MoneyScale)))

	return purchase, nil
}

// Update edits the purchase header and, when items are supplied, diffs the
// item set by item id.
func (s *PurchaseService) Update(ctx context.Context, id uuid.UUID, in ports.UpdatePurchaseInput) (*domain.Purchase, error) {
	const op = "purchase.update"

	if in.Items != nil {
		if len(in.Items) == 0 {
			return nil, domain.Validation(op, "at least one item is required")
		}
		if err := validatePurchaseLines(op, in.Items); err != nil {
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

	var purchase *domain.Purchase
	err := s.scope.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		p, err := loadPurchase(ctx, repos, op, id)
		if err != nil {
			return err
		}
		links, err := repos.Purchases().ListItems(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list purchase items: %w", err)
		}

		now := time.Now().UTC()
		if in.Items != nil {
			links, err = syncPurchaseLines(ctx, repos, op, p.ID, links, in.Items, now)
			if err != nil {
				return err
			}
		}

		prices := make([]decimal.Decimal, 0, len(links))
		for _, link := range links {
			prices = append(prices, link.PurchasePrice)
		}
		next, err := rebalance(op, p.Balance, domain.SumPrices(prices), in.PaymentType, in.PaidNow, in.PaymentMethod)
		if err != nil {
			return err
		}

		customerID := p.CustomerID
		if !in.Customer.Empty() {
			customerID, err = s.customers.Resolve(ctx, repos.Customers(), op, in.Customer, next.RequiresCustomer())
			if err != nil {
				return err
			}
		} else if customerID == nil && next.RequiresCustomer() {
			return domain.Validation(op, "customer is required when a balance remains or payment is deferred")
		}

		if err := reconcilePaidNow(ctx, repos, op, domain.PurchaseTarget(p.ID), next, in.PaidNow != nil, now); err != nil {
			return err
		}

		p.Balance = next
		p.CustomerID = customerID
		if in.PurchasedAt != nil {
			p.PurchasedAt = timeOrNow(in.PurchasedAt)
		}
		if in.Notes != nil {
			p.Notes = *in.Notes
		}
		p.UpdatedAt = now
		if err := repos.Purchases().Update(ctx, p); err != nil {
			return fmt.Errorf("failed to update purchase: %w", err)
		}

		if err := hydratePurchase(ctx, repos, p); err != nil {
			return err
		}
		purchase = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "purchase updated",
		slog.String("purchase_id", id.String()),
		slog.String("total", purchase.TotalPrice.StringFixed(domain.MoneyScale)))

	return purchase, nil
}

// Delete soft-deletes the purchase and everything derived from its items,
// including sales those items ended up in.
func (s *PurchaseService) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "purchase.delete"

	var cascaded []uuid.UUID
	err := s.scope.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := loadPurchase(ctx, repos, op, id); err != nil {
			return err
		}
		links, err := repos.Purchases().ListItems(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to list purchase items: %w", err)
		}
		itemIDs := make([]uuid.UUID, 0, len(links))
		for _, link := range links {
			itemIDs = append(itemIDs, link.ItemID)
		}

		now := time.Now().UTC()
		cascaded, err = repos.Sales().FindSaleIDsByItems(ctx, itemIDs)
		if err != nil {
			return fmt.Errorf("failed to find dependent sales: %w", err)
		}
		for _, saleID := range cascaded {
			if err := deactivateSale(ctx, repos, saleID, now); err != nil {
				return err
			}
		}

		if err := repos.Repairs().DeactivateByItems(ctx, itemIDs, now); err != nil {
			return fmt.Errorf("failed to deactivate repairs: %w", err)
		}
		for _, itemID := range itemIDs {
			item, err := repos.Items().GetByID(ctx, itemID)
			if err != nil {
				return fmt.Errorf("failed to get item: %w", err)
			}
			if item == nil {
				continue
			}
			item.Deactivate(now)
			if err := repos.Items().Update(ctx, item); err != nil {
				return fmt.Errorf("failed to deactivate item: %w", err)
			}
		}

		if err := repos.Activities().DeactivateByTarget(ctx, domain.PurchaseTarget(id), now); err != nil {
			return fmt.Errorf("failed to deactivate activities: %w", err)
		}
		if err := repos.Purchases().DeactivateItems(ctx, id, now); err != nil {
			return fmt.Errorf("failed to deactivate purchase items: %w", err)
		}
		if err := repos.Purchases().Deactivate(ctx, id, now); err != nil {
			return fmt.Errorf("failed to deactivate purchase: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "purchase deleted",
		slog.String("purchase_id", id.String()),
		slog.Int("cascaded_sales", len(cascaded)))

	return nil
}

// AddPayment records a partial payment against the purchase.
func (s *PurchaseService) AddPayment(ctx context.Context, id uuid.UUID, in ports.PaymentInput) (*domain.Purchase, error) {
	const op = "purchase.add_payment"

	var purchase *domain.Purchase
	err := s.scope.Execute(ctx, func(ctx context.Context, repos ports.Repositories) error {
		p, err := loadPurchase(ctx, repos, op, id)
		if err != nil {
			return err
		}
		p.Balance, err = postPayment(ctx, repos, op, p.ID, domain.PurchaseTarget(p.ID), p.Balance, in, repos.Purchases().ApplyBalance)
		if err != nil {
			return err
		}
		if err := hydratePurchase(ctx, repos, p); err != nil {
			return err
		}
		purchase = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "purchase payment recorded",
		slog.String("purchase_id", id.String()),
		slog.String("amount", in.Amount.StringFixed(domain.MoneyScale)),
		slog.String("remaining", purchase.Remaining.StringFixed(domain.MoneyScale)))

	return purchase, nil
}

func (s *PurchaseService) Get(ctx context.Context, id uuid.UUID) (*domain.Purchase, error) {
	var purchase *domain.Purchase
	err := s.scope.Query(ctx, func(ctx context.Context, repos ports.Repositories) error {
		p, err := loadPurchase(ctx, repos, "purchase.get", id)
		if err != nil {
			return err
		}
		if err := hydratePurchase(ctx, repos, p); err != nil {
			return err
		}
		purchase = p
		return nil
	})
	return purchase, err
}

func (s *PurchaseService) List(ctx context.Context, params ports.TransactionListParams) (*ports.ListResult[*domain.Purchase], error) {
	params.Normalize()

	var (
		purchases []*domain.Purchase
		total     int64
	)
	err := s.scope.Query(ctx, func(ctx context.Context, repos ports.Repositories) error {
		var err error
		purchases, total, err = repos.Purchases().List(ctx, params)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return ports.NewListResult(purchases, params.Page, total), nil
}

func (s *PurchaseService) ListActivities(ctx context.Context, id uuid.UUID) ([]*domain.Activity, error) {
	var activities []*domain.Activity
	err := s.scope.Query(ctx, func(ctx context.Context, repos ports.Repositories) error {
		if _, err := loadPurchase(ctx, repos, "purchase.activities", id); err != nil {
			return err
		}
		var err error
		activities, err = repos.Activities().ListByTarget(ctx, domain.PurchaseTarget(id))
		return err
	})
	return activities, err
}

// registerItem creates the inventory item and its purchase link, opening an
// intake repair when the item starts in repair.
func registerItem(ctx context.Context, repos ports.Repositories, op string, purchaseID uuid.UUID, line ports.PurchaseLine, now time.Time) (*domain.PurchaseItem, error) {
	item := &domain.InventoryItem{
		ID:          uuid.New(),
		IMEI:        strings.TrimSpace(line.IMEI),
		Brand:       line.Brand,
		Model:       line.Model,
		Storage:     line.Storage,
		Color:       line.Color,
		Condition:   line.Condition,
		Status:      domain.InitialStatus(line.Condition, line.InitialStatus),
		KnownIssues: line.KnownIssues,
		PurchaseID:  &purchaseID,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := item.Validate(); err != nil {
		return nil, err
	}
	if err := repos.Items().Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to create item: %w", err)
	}

	link := &domain.PurchaseItem{
		ID:            uuid.New(),
		PurchaseID:    purchaseID,
		ItemID:        item.ID,
		PurchasePrice: domain.Money(line.PurchasePrice),
		IsActive:      true,
		CreatedAt:     now,
		Item:          item,
	}
	if err := repos.Purchases().CreateItem(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to create purchase item: %w", err)
	}

	if item.Status == domain.StatusInRepair {
		if err := openIntakeRepair(ctx, repos, item, now); err != nil {
			return nil, err
		}
	}
	return link, nil
}

// openIntakeRepair opens a zero-cost pending repair for an item that arrives broken.
func openIntakeRepair(ctx context.Context, repos ports.Repositories, item *domain.InventoryItem, now time.Time) error {
	zero := decimal.Zero
	r := &domain.Repair{
		ID:          uuid.New(),
		ItemID:      item.ID,
		Description: domain.DefaultRepairDescription(item),
		Status:      domain.RepairPending,
		CostTotal:   &zero,
		PartsCost:   &zero,
		LaborCost:   &zero,
		StartedAt:   now,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := repos.Repairs().Create(ctx, r); err != nil {
		return fmt.Errorf("failed to open intake repair: %w", err)
	}
	return nil
}

// syncPurchaseLines applies the desired line set: removed items are
// deactivated, matched items are edited in place and new lines are registered.
// Sold items may be neither removed nor changed.
func syncPurchaseLines(
	ctx context.Context,
	repos ports.Repositories,
	op string,
	purchaseID uuid.UUID,
	links []*domain.PurchaseItem,
	lines []ports.PurchaseLine,
	now time.Time,
) ([]*domain.PurchaseItem, error) {
	byItem := make(map[uuid.UUID]*domain.PurchaseItem, len(links))
	for _, link := range links {
		byItem[link.ItemID] = link
	}

	kept := make(map[uuid.UUID]bool, len(lines))
	for _, line := range lines {
		if line.ItemID == nil {
			continue
		}
		if _, ok := byItem[*line.ItemID]; !ok {
			return nil, domain.Validation(op, "item %s does not belong to purchase %s", line.ItemID, purchaseID)
		}
		if kept[*line.ItemID] {
			return nil, domain.Validation(op, "item %s is listed twice", line.ItemID)
		}
		kept[*line.ItemID] = true
	}

	for _, link := range links {
		if kept[link.ItemID] {
			continue
		}
		item, err := loadItem(ctx, repos.Items(), op, link.ItemID)
		if err != nil {
			return nil, err
		}
		if item.Status == domain.StatusSold {
			return nil, domain.Conflict(op, "item %s is sold and cannot be removed", item.IMEI)
		}
		item.Deactivate(now)
		if err := repos.Items().Update(ctx, item); err != nil {
			return nil, fmt.Errorf("failed to deactivate item: %w", err)
		}
		if err := repos.Repairs().DeactivateByItems(ctx, []uuid.UUID{item.ID}, now); err != nil {
			return nil, fmt.Errorf("failed to deactivate repairs: %w", err)
		}
		link.IsActive = false
		link.DeletedAt = &now
		if err := repos.Purchases().UpdateItem(ctx, link); err != nil {
			return nil, fmt.Errorf("failed to deactivate purchase item: %w", err)
		}
	}

	result := make([]*domain.PurchaseItem, 0, len(lines))
	for _, line := range lines {
		if line.ItemID == nil {
			link, err := registerItem(ctx, repos, op, purchaseID, line, now)
			if err != nil {
				return nil, err
			}
			result = append(result, link)
			continue
		}

		link := byItem[*line.ItemID]
		if err := editPurchasedItem(ctx, repos, op, link, line, now); err != nil {
			return nil, err
		}
		result = append(result, link)
	}
	return result, nil
}

func editPurchasedItem(ctx context.Context, repos ports.Repositories, op string, link *domain.PurchaseItem, line ports.PurchaseLine, now time.Time) error {
	item, err := loadItem(ctx, repos.Items(), op, link.ItemID)
	if err != nil {
		return err
	}
	link.Item = item

	price := domain.Money(line.PurchasePrice)
	imei := strings.TrimSpace(line.IMEI)
	statusChange := line.InitialStatus != nil && *line.InitialStatus != item.Status
	changed := statusChange ||
		!price.Equal(link.PurchasePrice) ||
		imei != item.IMEI ||
		line.Brand != item.Brand ||
		line.Model != item.Model ||
		line.Storage != item.Storage ||
		line.Color != item.Color ||
		line.Condition != item.Condition ||
		line.KnownIssues != item.KnownIssues
	if !changed {
		return nil
	}
	if item.Status == domain.StatusSold {
		return domain.Conflict(op, "item %s is sold and cannot be edited", item.IMEI)
	}

	if imei != item.IMEI {
		if err := ensureImeiUnique(ctx, repos.Items(), op, imei); err != nil {
			return err
		}
	}
	item.IMEI = imei
	item.Brand = line.Brand
	item.Model = line.Model
	item.Storage = line.Storage
	item.Color = line.Color
	item.Condition = line.Condition
	item.KnownIssues = line.KnownIssues
	item.UpdatedAt = now
	if statusChange {
		if *line.InitialStatus == domain.StatusSold {
			return domain.Validation(op, "items are sold through a sale")
		}
		wasInRepair := item.Status == domain.StatusInRepair
		if err := item.TransitionTo(*line.InitialStatus); err != nil {
			return err
		}
		if wasInRepair {
			if err := closeOpenRepairs(ctx, repos, item.ID, now); err != nil {
				return err
			}
		}
		if item.Status == domain.StatusInRepair {
			if err := openIntakeRepair(ctx, repos, item, now); err != nil {
				return err
			}
		}
	}
	if err := item.Validate(); err != nil {
		return err
	}
	if err := repos.Items().Update(ctx, item); err != nil {
		return fmt.Errorf("failed to update item: %w", err)
	}

	if !price.Equal(link.PurchasePrice) {
		link.PurchasePrice = price
		if err := repos.Purchases().UpdateItem(ctx, link); err != nil {
			return fmt.Errorf("failed to update purchase item: %w", err)
		}
	}
	return nil
}

// validatePurchaseLines checks each line and rejects duplicate IMEIs in the request.
func validatePurchaseLines(op string, lines []ports.PurchaseLine) error {
	seen := make(map[string]bool, len(lines))
	for i, line := range lines {
		imei := strings.TrimSpace(line.IMEI)
		if imei == "" {
			return domain.Validation(op, "items[%d]: imei is required", i)
		}
		if strings.TrimSpace(line.Brand) == "" || strings.TrimSpace(line.Model) == "" {
			return domain.Validation(op, "items[%d]: brand and model are required", i)
		}
		if !line.Condition.Valid() {
			return domain.Validation(op, "items[%d]: invalid condition %q", i, line.Condition)
		}
		if line.InitialStatus != nil {
			if !line.InitialStatus.Valid() {
				return domain.Validation(op, "items[%d]: invalid status %q", i, *line.InitialStatus)
			}
			if *line.InitialStatus == domain.StatusSold {
				return domain.Validation(op, "items[%d]: intake status cannot be %s", i, domain.StatusSold)
			}
		}
		if err := validateMoney(op, fmt.Sprintf("items[%d].purchase_price", i), line.PurchasePrice); err != nil {
			return err
		}
		if seen[imei] {
			return domain.Conflict(op, "imei %s appears more than once in the request", imei)
		}
		seen[imei] = true
	}
	return nil
}

func linePriceTotal(lines []ports.PurchaseLine) decimal.Decimal {
	prices := make([]decimal.Decimal, 0, len(lines))
	for _, line := range lines {
		prices = append(prices, line.PurchasePrice)
	}
	return domain.SumPrices(prices)
}

func loadPurchase(ctx context.Context, repos ports.Repositories, op string, id uuid.UUID) (*domain.Purchase, error) {
	p, err := repos.Purchases().GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	if p == nil {
		return nil, domain.NotFound(op, "purchase %s not found", id)
	}
	return p, nil
}

func hydratePurchase(ctx context.Context, repos ports.Repositories, p *domain.Purchase) error {
	links, err := repos.Purchases().ListItems(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("failed to list purchase items: %w", err)
	}
	for _, link := range links {
		if link.Item, err = repos.Items().GetByID(ctx, link.ItemID); err != nil {
			return fmt.Errorf("failed to get item: %w", err)
		}
	}
	p.Items = links

	p.Activities, err = repos.Activities().ListByTarget(ctx, domain.PurchaseTarget(p.ID))
	if err != nil {
		return fmt.Errorf("failed to list activities: %w", err)
	}
	return nil
}
