package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/opendesk/opendesk/internal/identity"
)

// DepartmentRepository implements identity.DepartmentRepository
type DepartmentRepository struct {
	db *DB
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(db *DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

// GetByID retrieves a department by ID
func (r *DepartmentRepository) GetByID(ctx context.Context, id string) (*identity.Department, error) {
	var dept identity.Department
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, created_at FROM departments WHERE id = $1
	`, id).Scan(&dept.ID, &dept.Name, &dept.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("department %s not found", id)
		}
		return nil, fmt.Errorf("failed to get department: %w", err)
	}
	return &dept, nil
}

// List retrieves all departments
func (r *DepartmentRepository) List(ctx context.Context) ([]*identity.Department, error) {
	rows, err := r.db.pool.Query(ctx, `SELECT id, name, created_at FROM departments ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	defer rows.Close()

	var departments []*identity.Department
	for rows.Next() {
		var dept identity.Department
		if err := rows.Scan(&dept.ID, &dept.Name, &dept.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan department: %w", err)
		}
		departments = append(departments, &dept)
	}
	return departments, rows.Err()
}

var _ identity.DepartmentRepository = (*DepartmentRepository)(nil)
