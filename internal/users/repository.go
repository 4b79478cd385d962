package users

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorum-app/quorum/internal/authz"
	"github.com/quorum-app/quorum/internal/lifecycle"
	platformdb "github.com/quorum-app/quorum/internal/platform/db"
	"github.com/quorum-app/quorum/internal/shared"
)

// RepositoryPort defines data access for identities.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	GetUserByEmployeeID(ctx context.Context, employeeID int64) (User, error)
	CreateUser(ctx context.Context, in NewUserInput, stamp lifecycle.Stamp) (User, error)
	UpdateRoleAssignment(ctx context.Context, id, roleID int64, stamp lifecycle.Stamp) error
	SetActive(ctx context.Context, id int64, active bool, stamp lifecycle.Stamp) error
	SetPasswordHash(ctx context.Context, id int64, hash string, stamp lifecycle.Stamp) error
	SoftDeleteUser(ctx context.Context, id int64, stamp lifecycle.Stamp) error
	ListDirectPermissions(ctx context.Context, userID int64) ([]authz.Permission, error)
	GrantPermission(ctx context.Context, userID, permissionID int64, stamp lifecycle.Stamp) error
	RevokePermission(ctx context.Context, userID, permissionID int64, stamp lifecycle.Stamp) error
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

const userColumns = `u.id, u.employee_id, u.username, u.role_id, r.name, u.is_active,
	u.created_at, u.created_by, u.updated_at, u.updated_by, u.deleted, u.deleted_at, u.deleted_by`

const userSelect = `SELECT ` + userColumns + ` FROM users u JOIN roles r ON r.id = u.role_id`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.EmployeeID, &u.Username, &u.RoleID, &u.RoleName, &u.Active,
		&u.CreatedAt, &u.CreatedBy, &u.UpdatedAt, &u.UpdatedBy,
		&u.Deleted, &u.DeletedAt, &u.DeletedBy)
	if err != nil {
		return User{}, platformdb.TranslateError(err)
	}
	return u, nil
}

// ListUsers returns all live identities ordered by username.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, userSelect+` WHERE u.deleted = FALSE ORDER BY u.username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser fetches a live identity by ID.
func (r *Repository) GetUser(ctx context.Context, id int64) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.id = $1 AND u.deleted = FALSE`, id))
}

// GetUserByUsername fetches a live identity by case-insensitive username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE lower(u.username) = lower($1) AND u.deleted = FALSE`, username))
}

// GetUserByEmployeeID fetches the live identity promoted from a directory record.
func (r *Repository) GetUserByEmployeeID(ctx context.Context, employeeID int64) (User, error) {
	return scanUser(r.pool.QueryRow(ctx, userSelect+` WHERE u.employee_id = $1 AND u.deleted = FALSE`, employeeID))
}

// CreateUser inserts a new identity. Partial unique indexes on
// lower(username) and employee_id WHERE deleted = FALSE enforce live
// uniqueness.
func (r *Repository) CreateUser(ctx context.Context, in NewUserInput, stamp lifecycle.Stamp) (User, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (employee_id, username, role_id, is_active, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, TRUE, $4, $5, $4, $5, FALSE)
		RETURNING id`,
		in.EmployeeID, in.Username, in.RoleID, stamp.At, stamp.By,
	).Scan(&id)
	if err != nil {
		return User{}, platformdb.TranslateError(err)
	}
	return r.GetUser(ctx, id)
}

// UpdateRoleAssignment changes the role of a live identity.
func (r *Repository) UpdateRoleAssignment(ctx context.Context, id, roleID int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET role_id = $2, updated_at = $3, updated_by = $4
		WHERE id = $1 AND deleted = FALSE`,
		id, roleID, stamp.At, stamp.By)
	if err != nil {
		return platformdb.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetActive toggles the active flag of a live identity.
func (r *Repository) SetActive(ctx context.Context, id int64, active bool, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET is_active = $2, updated_at = $3, updated_by = $4
		WHERE id = $1 AND deleted = FALSE`,
		id, active, stamp.At, stamp.By)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetPasswordHash stores a new credential hash.
func (r *Repository) SetPasswordHash(ctx context.Context, id int64, hash string, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3, updated_by = $4
		WHERE id = $1 AND deleted = FALSE`,
		id, hash, stamp.At, stamp.By)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SoftDeleteUser marks a live identity deleted. This is the only removal
// path; identity rows are never hard-deleted.
func (r *Repository) SoftDeleteUser(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE users
		SET deleted = TRUE, deleted_at = $2, deleted_by = $3, is_active = FALSE, updated_at = $2, updated_by = $3
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

// ListDirectPermissions returns the live directly-granted permissions of an
// identity.
func (r *Repository) ListDirectPermissions(ctx context.Context, userID int64) ([]authz.Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.resource, p.action
		FROM permissions p
		JOIN user_permissions up ON up.permission_id = p.id
		WHERE up.user_id = $1 AND up.deleted = FALSE AND p.deleted = FALSE
		ORDER BY p.resource, p.action`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []authz.Permission
	for rows.Next() {
		var p authz.Permission
		if err := rows.Scan(&p.ID, &p.Resource, &p.Action); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// GrantPermission creates a live direct grant. A revoked grant for the same
// pair is revived in place so the partial unique index never trips twice.
func (r *Repository) GrantPermission(ctx context.Context, userID, permissionID int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_permissions
		SET deleted = FALSE, deleted_at = NULL, deleted_by = NULL, created_at = $3, created_by = $4, updated_at = $3, updated_by = $4
		WHERE user_id = $1 AND permission_id = $2 AND deleted = TRUE`,
		userID, permissionID, stamp.At, stamp.By)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO user_permissions (user_id, permission_id, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $4, $3, $4, FALSE)`,
		userID, permissionID, stamp.At, stamp.By)
	return platformdb.TranslateError(err)
}

// RevokePermission soft-deletes a live direct grant.
func (r *Repository) RevokePermission(ctx context.Context, userID, permissionID int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE user_permissions
		SET deleted = TRUE, deleted_at = $3, deleted_by = $4, updated_at = $3, updated_by = $4
		WHERE user_id = $1 AND permission_id = $2 AND deleted = FALSE`,
		userID, permissionID, stamp.At, stamp.By)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}
