package authz

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorum-app/quorum/internal/lifecycle"
	platformdb "github.com/quorum-app/quorum/internal/platform/db"
	"github.com/quorum-app/quorum/internal/shared"
)

// Repository defines the persistence operations the engine needs: identity
// snapshots for checks and permission rows for administration.
type Repository interface {
	IdentityByID(ctx context.Context, id int64) (IdentitySnapshot, error)
	IdentityByUsername(ctx context.Context, username string) (IdentitySnapshot, error)
	ListPermissions(ctx context.Context) ([]Permission, error)
	CreatePermission(ctx context.Context, resource, action string, stamp lifecycle.Stamp) (Permission, error)
	SoftDeletePermission(ctx context.Context, id int64, stamp lifecycle.Stamp) error
}

// PGRepository provides PostgreSQL backed persistence.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

var _ Repository = (*PGRepository)(nil)

const identityByIDQuery = `
SELECT u.id, u.username, u.employee_id, u.is_active, u.role_id, r.name, r.deleted
FROM users u
JOIN roles r ON r.id = u.role_id
WHERE u.id = $1 AND u.deleted = FALSE`

const identityByUsernameQuery = `
SELECT u.id, u.username, u.employee_id, u.is_active, u.role_id, r.name, r.deleted
FROM users u
JOIN roles r ON r.id = u.role_id
WHERE lower(u.username) = lower($1) AND u.deleted = FALSE`

// IdentityByID loads a live identity with its role and both grant layers.
func (r *PGRepository) IdentityByID(ctx context.Context, id int64) (IdentitySnapshot, error) {
	return r.loadIdentity(ctx, identityByIDQuery, id)
}

// IdentityByUsername resolves the caller's external username to a snapshot.
func (r *PGRepository) IdentityByUsername(ctx context.Context, username string) (IdentitySnapshot, error) {
	return r.loadIdentity(ctx, identityByUsernameQuery, username)
}

func (r *PGRepository) loadIdentity(ctx context.Context, query string, arg any) (IdentitySnapshot, error) {
	var snap IdentitySnapshot
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&snap.UserID, &snap.Username, &snap.EmployeeID, &snap.Active,
		&snap.RoleID, &snap.RoleName, &snap.RoleDeleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return IdentitySnapshot{}, shared.ErrNotFound
		}
		return IdentitySnapshot{}, err
	}

	snap.RolePermissions, err = r.permissionsFor(ctx, `
		SELECT p.id, p.resource, p.action
		FROM permissions p
		JOIN role_permissions rp ON rp.permission_id = p.id
		WHERE rp.role_id = $1 AND p.deleted = FALSE`, snap.RoleID)
	if err != nil {
		return IdentitySnapshot{}, err
	}

	snap.DirectPermissions, err = r.permissionsFor(ctx, `
		SELECT p.id, p.resource, p.action
		FROM permissions p
		JOIN user_permissions up ON up.permission_id = p.id
		WHERE up.user_id = $1 AND p.deleted = FALSE`, snap.UserID)
	if err != nil {
		return IdentitySnapshot{}, err
	}
	return snap, nil
}

func (r *PGRepository) permissionsFor(ctx context.Context, query string, id int64) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Resource, &p.Action); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ListPermissions returns all live permissions ordered by name.
func (r *PGRepository) ListPermissions(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, resource, action, created_at, created_by, updated_at, updated_by
		FROM permissions
		WHERE deleted = FALSE
		ORDER BY resource, action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Resource, &p.Action, &p.CreatedAt, &p.CreatedBy, &p.UpdatedAt, &p.UpdatedBy); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// CreatePermission inserts a permission row. A partial unique index over
// (resource, action) WHERE deleted = FALSE enforces live uniqueness; the
// violation surfaces as shared.ErrDuplicate.
func (r *PGRepository) CreatePermission(ctx context.Context, resource, action string, stamp lifecycle.Stamp) (Permission, error) {
	var p Permission
	err := r.pool.QueryRow(ctx, `
		INSERT INTO permissions (resource, action, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $4, $3, $4, FALSE)
		RETURNING id, resource, action, created_at, created_by, updated_at, updated_by`,
		resource, action, stamp.At, stamp.By,
	).Scan(&p.ID, &p.Resource, &p.Action, &p.CreatedAt, &p.CreatedBy, &p.UpdatedAt, &p.UpdatedBy)
	if err != nil {
		return Permission{}, platformdb.TranslateError(err)
	}
	return p, nil
}

// SoftDeletePermission marks a live permission deleted.
func (r *PGRepository) SoftDeletePermission(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE permissions
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
