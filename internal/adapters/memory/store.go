// Package memory is an in-process TransactionScope used by tests and the
// local demo mode. Each Execute works on a private copy of the state that
// replaces the live state only when fn succeeds.
package memory

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

var errReadOnly = errors.New("memory: write attempted in read-only transaction")

type state struct {
	items         map[uuid.UUID]domain.InventoryItem
	customers     map[uuid.UUID]domain.Customer
	purchases     map[uuid.UUID]domain.Purchase
	purchaseItems map[uuid.UUID]domain.PurchaseItem
	sales         map[uuid.UUID]domain.Sale
	saleItems     map[uuid.UUID]domain.SaleItem
	activities    map[uuid.UUID]domain.Activity
	repairs       map[uuid.UUID]domain.Repair
	entries       map[uuid.UUID]domain.RepairEntry
	users         map[uuid.UUID]domain.User
	seq           int64
	order         map[uuid.UUID]int64
}

func newState() *state {
	return &state{
		items:         map[uuid.UUID]domain.InventoryItem{},
		customers:     map[uuid.UUID]domain.Customer{},
		purchases:     map[uuid.UUID]domain.Purchase{},
		purchaseItems: map[uuid.UUID]domain.PurchaseItem{},
		sales:         map[uuid.UUID]domain.Sale{},
		saleItems:     map[uuid.UUID]domain.SaleItem{},
		activities:    map[uuid.UUID]domain.Activity{},
		repairs:       map[uuid.UUID]domain.Repair{},
		entries:       map[uuid.UUID]domain.RepairEntry{},
		users:         map[uuid.UUID]domain.User{},
		order:         map[uuid.UUID]int64{},
	}
}

func (s *state) clone() *state {
	c := &state{
		items:         cloneMap(s.items),
		customers:     cloneMap(s.customers),
		purchases:     cloneMap(s.purchases),
		purchaseItems: cloneMap(s.purchaseItems),
		sales:         cloneMap(s.sales),
		saleItems:     cloneMap(s.saleItems),
		activities:    cloneMap(s.activities),
		repairs:       cloneMap(s.repairs),
		entries:       cloneMap(s.entries),
		users:         cloneMap(s.users),
		seq:           s.seq,
		order:         cloneMap(s.order),
	}
	return c
}

// touch records insertion order so lists are stable.
func (s *state) touch(id uuid.UUID) {
	if _, ok := s.order[id]; ok {
		return
	}
	s.seq++
	s.order[id] = s.seq
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Store implements ports.TransactionScope in memory.
type Store struct {
	mu    sync.RWMutex
	state *state
}

var _ ports.TransactionScope = (*Store)(nil)

func NewStore() *Store {
	return &Store{state: newState()}
}

// AddUser registers a staff member for technician lookups.
func (s *Store) AddUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.users[u.ID] = u
}

func (s *Store) Execute(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.state.clone()
	if err := fn(ctx, &repos{st: work}); err != nil {
		return err
	}
	s.state = work
	return nil
}

func (s *Store) Query(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(ctx, &repos{st: s.state, readOnly: true})
}

type repos struct {
	st       *state
	readOnly bool
}

func (r *repos) Items() ports.ItemRepository         { return itemRepo{r} }
func (r *repos) Customers() ports.CustomerRepository { return customerRepo{r} }
func (r *repos) Purchases() ports.PurchaseRepository { return purchaseRepo{r} }
func (r *repos) Sales() ports.SaleRepository         { return saleRepo{r} }
func (r *repos) Activities() ports.ActivityRepository {
	return activityRepo{r}
}
func (r *repos) Repairs() ports.RepairRepository { return repairRepo{r} }
func (r *repos) Users() ports.UserDirectory      { return userDirectory{r} }

func (r *repos) writable() error {
	if r.readOnly {
		return errReadOnly
	}
	return nil
}

// sortByOrder sorts newest first, matching the SQL ORDER BY created_at DESC.
func sortByOrder[T any](st *state, rows []T, id func(T) uuid.UUID) {
	sort.SliceStable(rows, func(i, j int) bool {
		return st.order[id(rows[i])] > st.order[id(rows[j])]
	})
}

func paginate[T any](rows []T, p ports.Page) []T {
	start := p.Offset()
	if start >= len(rows) {
		return []T{}
	}
	end := start + p.PageSize
	if end > len(rows) {
		end = len(rows)
	}
	return rows[start:end]
}

func inWindow(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func cloneDec(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}

func cloneID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
