package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

type itemRepo struct{ *repos }

func (r itemRepo) Create(_ context.Context, item *domain.InventoryItem) error {
	if err := r.writable(); err != nil {
		return err
	}
	if err := r.checkIMEI(item); err != nil {
		return err
	}
	r.st.items[item.ID] = copyItem(item)
	r.st.touch(item.ID)
	return nil
}

func (r itemRepo) Update(_ context.Context, item *domain.InventoryItem) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.st.items[item.ID]; !ok {
		return domain.NotFound("item.update", "item %s not found", item.ID)
	}
	if err := r.checkIMEI(item); err != nil {
		return err
	}
	r.st.items[item.ID] = copyItem(item)
	return nil
}

// checkIMEI mirrors the partial unique index on active IMEIs.
func (r itemRepo) checkIMEI(item *domain.InventoryItem) error {
	if !item.IsActive {
		return nil
	}
	for id, other := range r.st.items {
		if id != item.ID && other.IsActive && other.IMEI == item.IMEI {
			return domain.Conflict("item", "imei %s is already registered", item.IMEI)
		}
	}
	return nil
}

func (r itemRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.InventoryItem, error) {
	item, ok := r.st.items[id]
	if !ok || !item.IsActive {
		return nil, nil
	}
	out := copyItem(&item)
	return &out, nil
}

func (r itemRepo) GetByIMEI(_ context.Context, imei string) (*domain.InventoryItem, error) {
	for _, item := range r.st.items {
		if item.IsActive && item.IMEI == imei {
			out := copyItem(&item)
			return &out, nil
		}
	}
	return nil, nil
}

func (r itemRepo) ExistsActiveIMEI(ctx context.Context, imei string) (bool, error) {
	item, err := r.GetByIMEI(ctx, imei)
	return item != nil, err
}

func (r itemRepo) List(_ context.Context, params ports.ItemListParams) ([]*domain.InventoryItem, int64, error) {
	var rows []*domain.InventoryItem
	for _, item := range r.st.items {
		if !item.IsActive {
			continue
		}
		if params.Status != "" && item.Status != params.Status {
			continue
		}
		if params.Condition != "" && item.Condition != params.Condition {
			continue
		}
		if params.Brand != "" && !containsFold(item.Brand, params.Brand) {
			continue
		}
		if params.Search != "" && !containsFold(item.IMEI+" "+item.Brand+" "+item.Model, params.Search) {
			continue
		}
		if params.PurchaseID != nil && (item.PurchaseID == nil || *item.PurchaseID != *params.PurchaseID) {
			continue
		}
		if params.SaleID != nil && (item.SaleID == nil || *item.SaleID != *params.SaleID) {
			continue
		}
		out := copyItem(&item)
		rows = append(rows, &out)
	}
	sortByOrder(r.st, rows, func(i *domain.InventoryItem) uuid.UUID { return i.ID })
	return paginate(rows, params.Page), int64(len(rows)), nil
}

func copyItem(item *domain.InventoryItem) domain.InventoryItem {
	out := *item
	out.PurchaseID = cloneID(item.PurchaseID)
	out.SaleID = cloneID(item.SaleID)
	return out
}

type customerRepo struct{ *repos }

func (r customerRepo) Create(_ context.Context, c *domain.Customer) error {
	if err := r.writable(); err != nil {
		return err
	}
	for _, other := range r.st.customers {
		if other.PhoneNumber == c.PhoneNumber {
			return domain.Conflict("customer", "phone number %s already exists", c.PhoneNumber)
		}
	}
	r.st.customers[c.ID] = *c
	r.st.touch(c.ID)
	return nil
}

func (r customerRepo) Update(_ context.Context, c *domain.Customer) error {
	if err := r.writable(); err != nil {
		return err
	}
	r.st.customers[c.ID] = *c
	return nil
}

func (r customerRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Customer, error) {
	c, ok := r.st.customers[id]
	if !ok || !c.IsActive {
		return nil, nil
	}
	return &c, nil
}

func (r customerRepo) GetByPhone(_ context.Context, phone string) (*domain.Customer, error) {
	for _, c := range r.st.customers {
		if c.PhoneNumber == phone {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

// CountCustomers is exposed for tests asserting upsert idempotency.
func (s *Store) CountCustomers() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.customers)
}

// CountItems returns active and inactive item rows.
func (s *Store) CountItems() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.items)
}

type purchaseRepo struct{ *repos }

func (r purchaseRepo) Create(_ context.Context, p *domain.Purchase) error {
	if err := r.writable(); err != nil {
		return err
	}
	r.st.purchases[p.ID] = headerOfPurchase(p)
	r.st.touch(p.ID)
	return nil
}

func (r purchaseRepo) Update(_ context.Context, p *domain.Purchase) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.st.purchases[p.ID]; !ok {
		return domain.NotFound("purchase.update", "purchase %s not found", p.ID)
	}
	r.st.purchases[p.ID] = headerOfPurchase(p)
	return nil
}

func (r purchaseRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Purchase, error) {
	p, ok := r.st.purchases[id]
	if !ok || !p.IsActive {
		return nil, nil
	}
	return &p, nil
}

func (r purchaseRepo) ApplyBalance(_ context.Context, id uuid.UUID, expected decimal.Decimal, next domain.Balance) (bool, error) {
	if err := r.writable(); err != nil {
		return false, err
	}
	p, ok := r.st.purchases[id]
	if !ok || !p.IsActive || !p.Remaining.Equal(expected) {
		return false, nil
	}
	p.Balance = next
	p.UpdatedAt = time.Now().UTC()
	r.st.purchases[id] = p
	return true, nil
}

func (r purchaseRepo) Deactivate(_ context.Context, id uuid.UUID, at time.Time) error {
	if err := r.writable(); err != nil {
		return err
	}
	p, ok := r.st.purchases[id]
	if !ok {
		return nil
	}
	p.Deactivate(at)
	r.st.purchases[id] = p
	return nil
}

func (r purchaseRepo) List(_ context.Context, params ports.TransactionListParams) ([]*domain.Purchase, int64, error) {
	var rows []*domain.Purchase
	for _, p := range r.st.purchases {
		if !p.IsActive || !matchTx(params, p.CustomerID, p.Balance, p.PurchasedAt) {
			continue
		}
		out := p
		rows = append(rows, &out)
	}
	sortByOrder(r.st, rows, func(p *domain.Purchase) uuid.UUID { return p.ID })
	return paginate(rows, params.Page), int64(len(rows)), nil
}

func (r purchaseRepo) CreateItem(_ context.Context, pi *domain.PurchaseItem) error {
	if err := r.writable(); err != nil {
		return err
	}
	row := *pi
	row.Item = nil
	r.st.purchaseItems[pi.ID] = row
	r.st.touch(pi.ID)
	return nil
}

func (r purchaseRepo) UpdateItem(_ context.Context, pi *domain.PurchaseItem) error {
	if err := r.writable(); err != nil {
		return err
	}
	row := *pi
	row.Item = nil
	r.st.purchaseItems[pi.ID] = row
	return nil
}

func (r purchaseRepo) ListItems(_ context.Context, purchaseID uuid.UUID) ([]*domain.PurchaseItem, error) {
	var rows []*domain.PurchaseItem
	for _, pi := range r.st.purchaseItems {
		if pi.IsActive && pi.PurchaseID == purchaseID {
			out := pi
			rows = append(rows, &out)
		}
	}
	sortAsc(r.st, rows, func(pi *domain.PurchaseItem) uuid.UUID { return pi.ID })
	return rows, nil
}

func (r purchaseRepo) FindItemLink(_ context.Context, itemID uuid.UUID) (*domain.PurchaseItem, error) {
	for _, pi := range r.st.purchaseItems {
		if pi.IsActive && pi.ItemID == itemID {
			out := pi
			return &out, nil
		}
	}
	return nil, nil
}

func (r purchaseRepo) DeactivateItems(_ context.Context, purchaseID uuid.UUID, at time.Time) error {
	if err := r.writable(); err != nil {
		return err
	}
	for id, pi := range r.st.purchaseItems {
		if pi.IsActive && pi.PurchaseID == purchaseID {
			pi.IsActive = false
			pi.DeletedAt = &at
			r.st.purchaseItems[id] = pi
		}
	}
	return nil
}

func headerOfPurchase(p *domain.Purchase) domain.Purchase {
	out := *p
	out.Items = nil
	out.Activities = nil
	out.CustomerID = cloneID(p.CustomerID)
	return out
}

type saleRepo struct{ *repos }

func (r saleRepo) Create(_ context.Context, s *domain.Sale) error {
	if err := r.writable(); err != nil {
		return err
	}
	r.st.sales[s.ID] = headerOfSale(s)
	r.st.touch(s.ID)
	return nil
}

func (r saleRepo) Update(_ context.Context, s *domain.Sale) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.st.sales[s.ID]; !ok {
		return domain.NotFound("sale.update", "sale %s not found", s.ID)
	}
	r.st.sales[s.ID] = headerOfSale(s)
	return nil
}

func (r saleRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Sale, error) {
	s, ok := r.st.sales[id]
	if !ok || !s.IsActive {
		return nil, nil
	}
	return &s, nil
}

func (r saleRepo) ApplyBalance(_ context.Context, id uuid.UUID, expected decimal.Decimal, next domain.Balance) (bool, error) {
	if err := r.writable(); err != nil {
		return false, err
	}
	s, ok := r.st.sales[id]
	if !ok || !s.IsActive || !s.Remaining.Equal(expected) {
		return false, nil
	}
	s.Balance = next
	s.UpdatedAt = time.Now().UTC()
	r.st.sales[id] = s
	return true, nil
}

func (r saleRepo) Deactivate(_ context.Context, id uuid.UUID, at time.Time) error {
	if err := r.writable(); err != nil {
		return err
	}
	s, ok := r.st.sales[id]
	if !ok {
		return nil
	}
	s.Deactivate(at)
	r.st.sales[id] = s
	return nil
}

func (r saleRepo) List(_ context.Context, params ports.TransactionListParams) ([]*domain.Sale, int64, error) {
	var rows []*domain.Sale
	for _, s := range r.st.sales {
		if !s.IsActive || !matchTx(params, s.CustomerID, s.Balance, s.SoldAt) {
			continue
		}
		out := s
		rows = append(rows, &out)
	}
	sortByOrder(r.st, rows, func(s *domain.Sale) uuid.UUID { return s.ID })
	return paginate(rows, params.Page), int64(len(rows)), nil
}

// CreateItem mirrors the partial unique index on active sale_items.item_id.
func (r saleRepo) CreateItem(_ context.Context, si *domain.SaleItem) error {
	if err := r.writable(); err != nil {
		return err
	}
	for _, other := range r.st.saleItems {
		if other.IsActive && other.ItemID == si.ItemID {
			return domain.Conflict("sale_item", "item %s already belongs to an active sale", si.ItemID)
		}
	}
	row := *si
	row.Item = nil
	r.st.saleItems[si.ID] = row
	r.st.touch(si.ID)
	return nil
}

func (r saleRepo) UpdateItem(_ context.Context, si *domain.SaleItem) error {
	if err := r.writable(); err != nil {
		return err
	}
	row := *si
	row.Item = nil
	r.st.saleItems[si.ID] = row
	return nil
}

func (r saleRepo) ListItems(_ context.Context, saleID uuid.UUID) ([]*domain.SaleItem, error) {
	var rows []*domain.SaleItem
	for _, si := range r.st.saleItems {
		if si.IsActive && si.SaleID == saleID {
			out := si
			rows = append(rows, &out)
		}
	}
	sortAsc(r.st, rows, func(si *domain.SaleItem) uuid.UUID { return si.ID })
	return rows, nil
}

func (r saleRepo) FindSaleIDsByItems(_ context.Context, itemIDs []uuid.UUID) ([]uuid.UUID, error) {
	wanted := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	seen := map[uuid.UUID]bool{}
	var out []uuid.UUID
	for _, si := range r.st.saleItems {
		if !si.IsActive || !wanted[si.ItemID] || seen[si.SaleID] {
			continue
		}
		if s, ok := r.st.sales[si.SaleID]; ok && s.IsActive {
			seen[si.SaleID] = true
			out = append(out, si.SaleID)
		}
	}
	return out, nil
}

func (r saleRepo) DeactivateItems(_ context.Context, saleID uuid.UUID, at time.Time) error {
	if err := r.writable(); err != nil {
		return err
	}
	for id, si := range r.st.saleItems {
		if si.IsActive && si.SaleID == saleID {
			si.IsActive = false
			si.DeletedAt = &at
			r.st.saleItems[id] = si
		}
	}
	return nil
}

func headerOfSale(s *domain.Sale) domain.Sale {
	out := *s
	out.Items = nil
	out.Activities = nil
	out.CustomerID = cloneID(s.CustomerID)
	return out
}

func matchTx(params ports.TransactionListParams, customerID *uuid.UUID, b domain.Balance, at time.Time) bool {
	if params.CustomerID != nil && (customerID == nil || *customerID != *params.CustomerID) {
		return false
	}
	if params.PaymentType != "" && b.PaymentType != params.PaymentType {
		return false
	}
	if params.HasRemaining != nil && b.Remaining.IsPositive() != *params.HasRemaining {
		return false
	}
	return inWindow(at, params.From, params.To)
}

type activityRepo struct{ *repos }

func (r activityRepo) Append(_ context.Context, a *domain.Activity) error {
	if err := r.writable(); err != nil {
		return err
	}
	if err := a.Target.Validate(); err != nil {
		return err
	}
	row := *a
	row.Target = domain.PaymentTarget{
		PurchaseID: cloneID(a.Target.PurchaseID),
		SaleID:     cloneID(a.Target.SaleID),
	}
	r.st.activities[a.ID] = row
	r.st.touch(a.ID)
	return nil
}

func (r activityRepo) ListByTarget(_ context.Context, target domain.PaymentTarget) ([]*domain.Activity, error) {
	var rows []*domain.Activity
	for _, a := range r.st.activities {
		if a.IsActive && sameTarget(a.Target, target) {
			out := a
			rows = append(rows, &out)
		}
	}
	sortAsc(r.st, rows, func(a *domain.Activity) uuid.UUID { return a.ID })
	return rows, nil
}

func (r activityRepo) DeactivateByTarget(_ context.Context, target domain.PaymentTarget, at time.Time) error {
	if err := r.writable(); err != nil {
		return err
	}
	for id, a := range r.st.activities {
		if a.IsActive && sameTarget(a.Target, target) {
			a.IsActive = false
			a.DeletedAt = &at
			r.st.activities[id] = a
		}
	}
	return nil
}

func sameTarget(a, b domain.PaymentTarget) bool {
	switch {
	case a.PurchaseID != nil && b.PurchaseID != nil:
		return *a.PurchaseID == *b.PurchaseID
	case a.SaleID != nil && b.SaleID != nil:
		return *a.SaleID == *b.SaleID
	}
	return false
}

type repairRepo struct{ *repos }

func (r repairRepo) Create(_ context.Context, rp *domain.Repair) error {
	if err := r.writable(); err != nil {
		return err
	}
	r.st.repairs[rp.ID] = copyRepair(rp)
	r.st.touch(rp.ID)
	return nil
}

func (r repairRepo) Update(_ context.Context, rp *domain.Repair) error {
	if err := r.writable(); err != nil {
		return err
	}
	if _, ok := r.st.repairs[rp.ID]; !ok {
		return domain.NotFound("repair.update", "repair %s not found", rp.ID)
	}
	r.st.repairs[rp.ID] = copyRepair(rp)
	return nil
}

func (r repairRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Repair, error) {
	rp, ok := r.st.repairs[id]
	if !ok || !rp.IsActive {
		return nil, nil
	}
	out := copyRepair(&rp)
	return &out, nil
}

func (r repairRepo) List(_ context.Context, params ports.RepairListParams) ([]*domain.Repair, int64, error) {
	var rows []*domain.Repair
	for _, rp := range r.st.repairs {
		if !rp.IsActive {
			continue
		}
		if params.Status != "" && rp.Status != params.Status {
			continue
		}
		if params.ItemID != nil && rp.ItemID != *params.ItemID {
			continue
		}
		if params.TechnicianID != nil && (rp.TechnicianID == nil || *rp.TechnicianID != *params.TechnicianID) {
			continue
		}
		out := copyRepair(&rp)
		rows = append(rows, &out)
	}
	sortByOrder(r.st, rows, func(rp *domain.Repair) uuid.UUID { return rp.ID })
	return paginate(rows, params.Page), int64(len(rows)), nil
}

func (r repairRepo) OpenForItem(_ context.Context, itemID uuid.UUID) ([]*domain.Repair, error) {
	var rows []*domain.Repair
	for _, rp := range r.st.repairs {
		if rp.IsActive && rp.ItemID == itemID && rp.Status == domain.RepairPending {
			out := copyRepair(&rp)
			rows = append(rows, &out)
		}
	}
	sortAsc(r.st, rows, func(rp *domain.Repair) uuid.UUID { return rp.ID })
	return rows, nil
}

func (r repairRepo) DeactivateByItems(_ context.Context, itemIDs []uuid.UUID, at time.Time) error {
	if err := r.writable(); err != nil {
		return err
	}
	wanted := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		wanted[id] = true
	}
	for id, rp := range r.st.repairs {
		if !rp.IsActive || !wanted[rp.ItemID] {
			continue
		}
		rp.Deactivate(at)
		r.st.repairs[id] = rp
		for eid, e := range r.st.entries {
			if e.IsActive && e.RepairID == id {
				e.IsActive = false
				e.DeletedAt = &at
				r.st.entries[eid] = e
			}
		}
	}
	return nil
}

func (r repairRepo) CreateEntry(_ context.Context, e *domain.RepairEntry) error {
	if err := r.writable(); err != nil {
		return err
	}
	r.st.entries[e.ID] = copyEntry(e)
	r.st.touch(e.ID)
	return nil
}

func (r repairRepo) UpdateEntry(_ context.Context, e *domain.RepairEntry) error {
	if err := r.writable(); err != nil {
		return err
	}
	r.st.entries[e.ID] = copyEntry(e)
	return nil
}

func (r repairRepo) GetEntry(_ context.Context, id uuid.UUID) (*domain.RepairEntry, error) {
	e, ok := r.st.entries[id]
	if !ok || !e.IsActive {
		return nil, nil
	}
	out := copyEntry(&e)
	return &out, nil
}

func (r repairRepo) ListEntries(_ context.Context, repairID uuid.UUID) ([]*domain.RepairEntry, error) {
	var rows []*domain.RepairEntry
	for _, e := range r.st.entries {
		if e.IsActive && e.RepairID == repairID {
			out := copyEntry(&e)
			rows = append(rows, &out)
		}
	}
	sortAsc(r.st, rows, func(e *domain.RepairEntry) uuid.UUID { return e.ID })
	return rows, nil
}

func copyRepair(rp *domain.Repair) domain.Repair {
	out := *rp
	out.Entries = nil
	out.TechnicianID = cloneID(rp.TechnicianID)
	out.CostTotal = cloneDec(rp.CostTotal)
	out.PartsCost = cloneDec(rp.PartsCost)
	out.LaborCost = cloneDec(rp.LaborCost)
	return out
}

func copyEntry(e *domain.RepairEntry) domain.RepairEntry {
	out := *e
	out.CostTotal = cloneDec(e.CostTotal)
	out.PartsCost = cloneDec(e.PartsCost)
	out.LaborCost = cloneDec(e.LaborCost)
	return out
}

type userDirectory struct{ *repos }

func (r userDirectory) GetActiveUserByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := r.st.users[id]
	if !ok || !u.IsActive {
		return nil, domain.NotFound("user", "user %s not found", id)
	}
	return &u, nil
}

func sortAsc[T any](st *state, rows []T, id func(T) uuid.UUID) {
	sortByOrder(st, rows, id)
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
