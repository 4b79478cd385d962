package directory

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorum-app/quorum/internal/lifecycle"
	platformdb "github.com/quorum-app/quorum/internal/platform/db"
	"github.com/quorum-app/quorum/internal/shared"
)

// RepositoryPort defines data access for employee records.
type RepositoryPort interface {
	ListEmployees(ctx context.Context, filters shared.ListFilters) ([]Employee, error)
	SearchEmployees(ctx context.Context, term string) ([]Employee, error)
	GetEmployee(ctx context.Context, id int64) (Employee, error)
	GetEmployeeByUsername(ctx context.Context, username string) (Employee, error)
	CreateEmployee(ctx context.Context, e Employee, stamp lifecycle.Stamp) (Employee, error)
	UpdateEmployee(ctx context.Context, e Employee, stamp lifecycle.Stamp) (Employee, error)
	SoftDeleteEmployee(ctx context.Context, id int64, stamp lifecycle.Stamp) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

const employeeColumns = `id, username, first_name, last_name, email, department, title,
	created_at, created_by, updated_at, updated_by, deleted, deleted_at, deleted_by`

func scanEmployee(row interface{ Scan(...any) error }) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Username, &e.FirstName, &e.LastName, &e.Email, &e.Department, &e.Title,
		&e.CreatedAt, &e.CreatedBy, &e.UpdatedAt, &e.UpdatedBy,
		&e.Deleted, &e.DeletedAt, &e.DeletedBy)
	if err != nil {
		return Employee{}, platformdb.TranslateError(err)
	}
	return e, nil
}

func (r *Repository) queryEmployees(ctx context.Context, query string, args ...any) ([]Employee, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var employees []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, e)
	}
	return employees, rows.Err()
}

// ListEmployees returns live employees ordered by last name, paginated.
func (r *Repository) ListEmployees(ctx context.Context, filters shared.ListFilters) ([]Employee, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := (filters.Page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	return r.queryEmployees(ctx, `
		SELECT `+employeeColumns+` FROM employees
		WHERE deleted = FALSE
		ORDER BY last_name, first_name
		LIMIT $1 OFFSET $2`, limit, offset)
}

// SearchEmployees matches the term against name, username, and email.
func (r *Repository) SearchEmployees(ctx context.Context, term string) ([]Employee, error) {
	pattern := "%" + term + "%"
	return r.queryEmployees(ctx, `
		SELECT `+employeeColumns+` FROM employees
		WHERE deleted = FALSE
		  AND (first_name ILIKE $1 OR last_name ILIKE $1 OR username ILIKE $1 OR email ILIKE $1)
		ORDER BY last_name, first_name
		LIMIT 50`, pattern)
}

// GetEmployee fetches a live employee by ID.
func (r *Repository) GetEmployee(ctx context.Context, id int64) (Employee, error) {
	return scanEmployee(r.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = $1 AND deleted = FALSE`, id))
}

// GetEmployeeByUsername fetches a live employee by case-insensitive username.
func (r *Repository) GetEmployeeByUsername(ctx context.Context, username string) (Employee, error) {
	return scanEmployee(r.pool.QueryRow(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE lower(username) = lower($1) AND deleted = FALSE`, username))
}

// CreateEmployee inserts a new record. A partial unique index on
// lower(username) WHERE deleted = FALSE enforces live uniqueness.
func (r *Repository) CreateEmployee(ctx context.Context, e Employee, stamp lifecycle.Stamp) (Employee, error) {
	created, err := scanEmployee(r.pool.QueryRow(ctx, `
		INSERT INTO employees (username, first_name, last_name, email, department, title, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $7, $8, FALSE)
		RETURNING `+employeeColumns,
		e.Username, e.FirstName, e.LastName, e.Email, e.Department, e.Title, stamp.At, stamp.By))
	if err != nil {
		return Employee{}, err
	}
	return created, nil
}

// UpdateEmployee updates a live record.
func (r *Repository) UpdateEmployee(ctx context.Context, e Employee, stamp lifecycle.Stamp) (Employee, error) {
	return scanEmployee(r.pool.QueryRow(ctx, `
		UPDATE employees
		SET first_name = $2, last_name = $3, email = $4, department = $5, title = $6, updated_at = $7, updated_by = $8
		WHERE id = $1 AND deleted = FALSE
		RETURNING `+employeeColumns,
		e.ID, e.FirstName, e.LastName, e.Email, e.Department, e.Title, stamp.At, stamp.By))
}

// SoftDeleteEmployee marks a live record deleted.
func (r *Repository) SoftDeleteEmployee(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE employees
		SET deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2, updated_by = $3
		WHERE id = $1 AND deleted = FALSE`,
		id, stamp.At, stamp.By)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
