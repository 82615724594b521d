// internal/core/domain/customer.go
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Customer is keyed by a normalized phone number.
type Customer struct {
	ID          uuid.UUID  `json:"id"`
	FullName    string     `json:"full_name"`
	PhoneNumber string     `json:"phone_number"`
	Address     *string    `json:"address,omitempty"`
	PassportID  *string    `json:"passport_id,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
}

// CustomerInput is inline contact data supplied with a purchase or sale.
type CustomerInput struct {
	PhoneNumber string
	FullName    *string
	Address     *string
	PassportID  *string
	Notes       *string
}

// Merge overwrites profile fields that the input provides and reactivates the row.
func (c *Customer) Merge(in CustomerInput, now time.Time) {
	if in.FullName != nil && *in.FullName != "" {
		c.FullName = *in.FullName
	}
	if in.Address != nil {
		c.Address = in.Address
	}
	if in.PassportID != nil {
		c.PassportID = in.PassportID
	}
	if in.Notes != nil {
		c.Notes = in.Notes
	}
	c.IsActive = true
	c.DeletedAt = nil
	c.UpdatedAt = now
}

// User is a staff member, used here only to validate technician references.
type User struct {
	ID       uuid.UUID `json:"id"`
	FullName string    `json:"full_name"`
	Role     string    `json:"role"`
	IsActive bool      `json:"is_active"`
}
