package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/opendesk/opendesk/internal/identity"
)

// RoleRepository implements identity.RoleRepository. Roles are seeded by
// the schema migration; the application only reads them.
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// GetByName retrieves a role by name
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*identity.RoleRecord, error) {
	var role identity.RoleRecord
	err := r.db.pool.QueryRow(ctx, `
		SELECT name, display_name, permissions
		FROM roles
		WHERE name = $1
	`, name).Scan(&role.Name, &role.DisplayName, &role.Permissions)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &role, nil
}

var _ identity.RoleRepository = (*RoleRepository)(nil)
