// internal/adapters/db/customer_repository.go
package db

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
)

const customerColumns = `id, full_name, phone_number, address, passport_id, notes,
	is_active, created_at, updated_at, deleted_at`

type customerRepository struct {
	q      querier
	logger *slog.Logger
}

func (r *customerRepository) Create(ctx context.Context, c *domain.Customer) error {
	query := `
		INSERT INTO customers (
			id, full_name, phone_number, address, passport_id, notes,
			is_active, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.q.Exec(ctx, query,
		c.ID, c.FullName, c.PhoneNumber, c.Address, c.PassportID, c.Notes,
		c.IsActive, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return translateError("customer.create", err)
	}

	r.logger.DebugContext(ctx, "customer created",
		slog.String("customer_id", c.ID.String()))
	return nil
}

func (r *customerRepository) Update(ctx context.Context, c *domain.Customer) error {
	query := `
		UPDATE customers SET
			full_name = $2, phone_number = $3, address = $4, passport_id = $5,
			notes = $6, is_active = $7, updated_at = $8, deleted_at = $9
		WHERE id = $1`

	tag, err := r.q.Exec(ctx, query,
		c.ID, c.FullName, c.PhoneNumber, c.Address, c.PassportID, c.Notes,
		c.IsActive, c.UpdatedAt, c.DeletedAt,
	)
	if err != nil {
		return translateError("customer.update", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("customer.update", "customer %s not found", c.ID)
	}
	return nil
}

func (r *customerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1 AND is_active`
	c, err := scanOne(r.q.QueryRow(ctx, query, id), scanCustomer)
	return c, translateError("customer.get", err)
}

// GetByPhone includes inactive rows; the phone number is unique across both.
func (r *customerRepository) GetByPhone(ctx context.Context, phone string) (*domain.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE phone_number = $1`
	c, err := scanOne(r.q.QueryRow(ctx, query, phone), scanCustomer)
	return c, translateError("customer.get_by_phone", err)
}

func scanCustomer(row rowScanner) (*domain.Customer, error) {
	var c domain.Customer
	err := row.Scan(
		&c.ID, &c.FullName, &c.PhoneNumber, &c.Address, &c.PassportID, &c.Notes,
		&c.IsActive, &c.CreatedAt, &c.UpdatedAt, &c.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
