// internal/adapters/db/user_directory.go
package db

import (
	"context"

	"github.com/google/uuid"

	"github.com/ammerola/phoneshop-be/internal/core/domain"
)

type userDirectory struct {
	q querier
}

func (d *userDirectory) GetActiveUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT id, full_name, role, is_active FROM users WHERE id = $1 AND is_active`

	u, err := scanOne(d.q.QueryRow(ctx, query, id), func(row rowScanner) (*domain.User, error) {
		var u domain.User
		if err := row.Scan(&u.ID, &u.FullName, &u.Role, &u.IsActive); err != nil {
			return nil, err
		}
		return &u, nil
	})
	if err != nil {
		return nil, translateError("user.get", err)
	}
	if u == nil {
		return nil, domain.NotFound("user.get", "user %s not found or inactive", id)
	}
	return u, nil
}

// UpsertUser registers staff accounts; used by the seeder and tests.
func (db *Database) UpsertUser(ctx context.Context, u *domain.User) error {
	query := `
		INSERT INTO users (id, full_name, role, is_active)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET full_name = EXCLUDED.full_name,
			role = EXCLUDED.role, is_active = EXCLUDED.is_active`

	_, err := db.pool.Exec(ctx, query, u.ID, u.FullName, u.Role, u.IsActive)
	return translateError("user.upsert", err)
}
