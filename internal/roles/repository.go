package roles

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorum-app/quorum/internal/authz"
	"github.com/quorum-app/quorum/internal/lifecycle"
	platformdb "github.com/quorum-app/quorum/internal/platform/db"
	"github.com/quorum-app/quorum/internal/shared"
)

// RepositoryPort defines data access for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	GetRoleByName(ctx context.Context, name string) (Role, error)
	CreateRole(ctx context.Context, name, description string, stamp lifecycle.Stamp) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string, stamp lifecycle.Stamp) (Role, error)
	SoftDeleteRole(ctx context.Context, id int64, stamp lifecycle.Stamp) error
	CountLiveUsersWithRole(ctx context.Context, roleID int64) (int, error)
	ListRolePermissions(ctx context.Context, roleID int64) ([]authz.Permission, error)
	SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error
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

const roleColumns = `id, name, description, created_at, created_by, updated_at, updated_by, deleted, deleted_at, deleted_by`

// ListRoles returns all live roles ordered by name.
func (r *Repository) ListRoles(ctx context.Context) ([]Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles WHERE deleted = FALSE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []Role
	for rows.Next() {
		var role Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description,
			&role.CreatedAt, &role.CreatedBy, &role.UpdatedAt, &role.UpdatedBy,
			&role.Deleted, &role.DeletedAt, &role.DeletedBy); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// GetRole fetches a live role by ID.
func (r *Repository) GetRole(ctx context.Context, id int64) (Role, error) {
	return r.getRole(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1 AND deleted = FALSE`, id)
}

// GetRoleByName fetches a live role by case-insensitive name.
func (r *Repository) GetRoleByName(ctx context.Context, name string) (Role, error) {
	return r.getRole(ctx, `SELECT `+roleColumns+` FROM roles WHERE lower(name) = lower($1) AND deleted = FALSE`, name)
}

func (r *Repository) getRole(ctx context.Context, query string, arg any) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, query, arg).Scan(&role.ID, &role.Name, &role.Description,
		&role.CreatedAt, &role.CreatedBy, &role.UpdatedAt, &role.UpdatedBy,
		&role.Deleted, &role.DeletedAt, &role.DeletedBy)
	if err != nil {
		return Role{}, platformdb.TranslateError(err)
	}
	return role, nil
}

// CreateRole inserts a new role. A partial unique index on lower(name)
// WHERE deleted = FALSE enforces live-name uniqueness.
func (r *Repository) CreateRole(ctx context.Context, name, description string, stamp lifecycle.Stamp) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, description, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $4, $3, $4, FALSE)
		RETURNING `+roleColumns,
		name, description, stamp.At, stamp.By,
	).Scan(&role.ID, &role.Name, &role.Description,
		&role.CreatedAt, &role.CreatedBy, &role.UpdatedAt, &role.UpdatedBy,
		&role.Deleted, &role.DeletedAt, &role.DeletedBy)
	if err != nil {
		return Role{}, platformdb.TranslateError(err)
	}
	return role, nil
}

// UpdateRole updates a live role.
func (r *Repository) UpdateRole(ctx context.Context, id int64, name, description string, stamp lifecycle.Stamp) (Role, error) {
	var role Role
	err := r.pool.QueryRow(ctx, `
		UPDATE roles
		SET name = $2, description = $3, updated_at = $4, updated_by = $5
		WHERE id = $1 AND deleted = FALSE
		RETURNING `+roleColumns,
		id, name, description, stamp.At, stamp.By,
	).Scan(&role.ID, &role.Name, &role.Description,
		&role.CreatedAt, &role.CreatedBy, &role.UpdatedAt, &role.UpdatedBy,
		&role.Deleted, &role.DeletedAt, &role.DeletedBy)
	if err != nil {
		return Role{}, platformdb.TranslateError(err)
	}
	return role, nil
}

// SoftDeleteRole marks a live role deleted.
func (r *Repository) SoftDeleteRole(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE roles
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

// CountLiveUsersWithRole backs the referential guard.
func (r *Repository) CountLiveUsersWithRole(ctx context.Context, roleID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users WHERE role_id = $1 AND deleted = FALSE`, roleID).Scan(&count)
	return count, err
}

// ListRolePermissions returns the live permissions granted to a role.
func (r *Repository) ListRolePermissions(ctx context.Context, roleID int64) ([]authz.Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.resource, p.action
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1 AND p.deleted = FALSE
		ORDER BY p.resource, p.action`, roleID)
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

// SetRolePermissions replaces the grant set for a role.
func (r *Repository) SetRolePermissions(ctx context.Context, roleID int64, permissionIDs []int64) error {
	return platformdb.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		for _, permID := range permissionIDs {
			if _, err := tx.Exec(ctx, `
				INSERT INTO role_permissions (role_id, permission_id)
				VALUES ($1, $2)
				ON CONFLICT DO NOTHING`, roleID, permID); err != nil {
				return platformdb.TranslateError(err)
			}
		}
		return nil
	})
}
