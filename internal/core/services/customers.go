// internal/core/services/customers.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ttacon/libphonenumber"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
	"github.com/ammerola/phoneshop-be/internal/core/ports"
)

// CustomerResolver upserts customers by phone number inside the caller's transaction.
type CustomerResolver struct {
	region string
	logger *slog.Logger
}

// NewCustomerResolver creates a resolver. region is the ISO country used for
// numbers written without a leading +.
func NewCustomerResolver(region string, logger *slog.Logger) *CustomerResolver {
	if region == "" {
		region = "US"
	}
	return &CustomerResolver{
		region: strings.ToUpper(region),
		logger: logger.With(slog.String("service", "customers")),
	}
}

// NormalizePhone returns the E.164 form when the number parses, otherwise the
// compacted input, so short shop-internal numbers still work as keys.
func (r *CustomerResolver) NormalizePhone(raw string) (string, error) {
	compact := strings.Join(strings.Fields(raw), "")
	if compact == "" {
		return "", domain.Validation("customer", "phone number is required")
	}

	num, err := libphonenumber.Parse(compact, r.region)
	if err != nil || !libphonenumber.IsPossibleNumber(num) {
		return compact, nil
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

// Ensure returns the customer holding the phone number, creating or
// reactivating it as needed.
func (r *CustomerResolver) Ensure(ctx context.Context, repo ports.CustomerRepository, in domain.CustomerInput) (*domain.Customer, error) {
	phone, err := r.NormalizePhone(in.PhoneNumber)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()

	existing, err := repo.GetByPhone(ctx, phone)
	if err != nil {
		return nil, fmt.Errorf("failed to find customer: %w", err)
	}
	if existing != nil {
		reactivated := !existing.IsActive
		existing.Merge(in, now)
		if err := repo.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("failed to update customer: %w", err)
		}
		if reactivated {
			r.logger.InfoContext(ctx, "reactivated customer",
				slog.String("customer_id", existing.ID.String()))
		}
		return existing, nil
	}

	c := &domain.Customer{
		ID:          uuid.New(),
		FullName:    phone,
		PhoneNumber: phone,
		IsActive:    true,
		CreatedAt:   now,
	}
	c.Merge(in, now)
	if err := repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	r.logger.InfoContext(ctx, "created customer",
		slog.String("customer_id", c.ID.String()),
		slog.String("phone", phone))
	return c, nil
}

// Resolve turns a reference into a customer id. It fails when required and
// nothing was supplied.
func (r *CustomerResolver) Resolve(ctx context.Context, repo ports.CustomerRepository, op string, ref ports.CustomerRef, required bool) (*uuid.UUID, error) {
	switch {
	case ref.CustomerID != nil:
		c, err := repo.GetByID(ctx, *ref.CustomerID)
		if err != nil {
			return nil, fmt.Errorf("failed to get customer: %w", err)
		}
		if c == nil {
			return nil, domain.NotFound(op, "customer %s not found", ref.CustomerID)
		}
		return &c.ID, nil
	case ref.Inline != nil:
		c, err := r.Ensure(ctx, repo, *ref.Inline)
		if err != nil {
			return nil, err
		}
		return &c.ID, nil
	case required:
		return nil, domain.Validation(op, "customer is required when a balance remains or payment is deferred")
	}
	return nil, nil
}
