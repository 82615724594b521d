// internal/adapters/db/scope.go
package db

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// TransactionScope implements ports.TransactionScope on top of the pool.
type TransactionScope struct {
	db     *Database
	logger *slog.Logger
}

// NewTransactionScope creates a scope that binds repositories to pgx transactions
func NewTransactionScope(db *Database, logger *slog.Logger) *TransactionScope {
	return &TransactionScope{db: db, logger: logger}
}

// Execute runs fn in a read-committed transaction. Balance writes rely on
// conditional updates rather than a stricter isolation level.
func (s *TransactionScope) Execute(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	err := s.db.inTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(tx pgx.Tx) error {
		return fn(ctx, newRepositories(tx, s.logger, true))
	})
	return translateError("transaction", err)
}

// Query runs fn in a read-only transaction so multi-statement reads see one snapshot.
func (s *TransactionScope) Query(ctx context.Context, fn func(ctx context.Context, repos ports.Repositories) error) error {
	opts := pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}
	err := s.db.inTx(ctx, opts, func(tx pgx.Tx) error {
		return fn(ctx, newRepositories(tx, s.logger, false))
	})
	return translateError("query", err)
}

type repositories struct {
	items      *itemRepository
	customers  *customerRepository
	purchases  *purchaseRepository
	sales      *saleRepository
	activities *activityRepository
	repairs    *repairRepository
	users      *userDirectory
}

// newRepositories binds the stores to q. With lockRows set, header lookups
// take row locks so read-modify-write flows on one record serialize.
func newRepositories(q querier, logger *slog.Logger, lockRows bool) *repositories {
	scoped := func(name string) *slog.Logger {
		return logger.With(slog.String("repository", name))
	}
	return &repositories{
		items:      &itemRepository{q: q, lock: lockClause(lockRows), logger: scoped("items")},
		customers:  &customerRepository{q: q, logger: scoped("customers")},
		purchases:  &purchaseRepository{q: q, lock: lockClause(lockRows), logger: scoped("purchases")},
		sales:      &saleRepository{q: q, lock: lockClause(lockRows), logger: scoped("sales")},
		activities: &activityRepository{q: q, logger: scoped("activities")},
		repairs:    &repairRepository{q: q, lock: lockClause(lockRows), logger: scoped("repairs")},
		users:      &userDirectory{q: q},
	}
}

func (r *repositories) Items() ports.ItemRepository { return r.items }
func (r *repositories) Customers() ports.CustomerRepository { return r.customers }
func (r *repositories) Purchases() ports.PurchaseRepository { return r.purchases }
func (r *repositories) Sales() ports.SaleRepository { return r.sales }
func (r *repositories) Activities() ports.ActivityRepository { return r.activities }
func (r *repositories) Repairs() ports.RepairRepository { return r.repairs }
func (r *repositories) Users() ports.UserDirectory { return r.users }

func lockClause(lockRows bool) string {
	if lockRows {
		return " FOR UPDATE"
	}
	return ""
}
