package members

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorum-app/quorum/internal/lifecycle"
	platformdb "github.com/quorum-app/quorum/internal/platform/db"
	"github.com/quorum-app/quorum/internal/shared"
)

// RepositoryPort defines data access for membership.
type RepositoryPort interface {
	ListMemberRoles(ctx context.Context) ([]MemberRole, error)
	CreateMemberRole(ctx context.Context, name string, stamp lifecycle.Stamp) (MemberRole, error)
	SoftDeleteMemberRole(ctx context.Context, id int64, stamp lifecycle.Stamp) error
	CountLiveMembersWithRole(ctx context.Context, roleID int64) (int, error)

	ListForInstance(ctx context.Context, ayCommitteeID int64) ([]Member, error)
	GetMember(ctx context.Context, id int64) (Member, error)
	CreateMember(ctx context.Context, ayCommitteeID, employeeID, memberRoleID int64, stamp lifecycle.Stamp) (Member, error)
	UpdateMemberRoleAssignment(ctx context.Context, id, memberRoleID int64, stamp lifecycle.Stamp) error
	SoftDeleteMember(ctx context.Context, id int64, stamp lifecycle.Stamp) error
	SoftDeleteForAYCommittee(ctx context.Context, ayCommitteeID int64, stamp lifecycle.Stamp) (int, error)
	ListMemberEmails(ctx context.Context, ayCommitteeID int64) ([]string, error)
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

// ListMemberRoles returns live seat types ordered by name.
func (r *Repository) ListMemberRoles(ctx context.Context) ([]MemberRole, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, created_at, created_by, updated_at, updated_by, deleted, deleted_at, deleted_by
		FROM member_roles WHERE deleted = FALSE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var roles []MemberRole
	for rows.Next() {
		var mr MemberRole
		if err := rows.Scan(&mr.ID, &mr.Name,
			&mr.CreatedAt, &mr.CreatedBy, &mr.UpdatedAt, &mr.UpdatedBy,
			&mr.Deleted, &mr.DeletedAt, &mr.DeletedBy); err != nil {
			return nil, err
		}
		roles = append(roles, mr)
	}
	return roles, rows.Err()
}

// CreateMemberRole inserts a seat type; live names unique.
func (r *Repository) CreateMemberRole(ctx context.Context, name string, stamp lifecycle.Stamp) (MemberRole, error) {
	var mr MemberRole
	err := r.pool.QueryRow(ctx, `
		INSERT INTO member_roles (name, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $2, $3, FALSE)
		RETURNING id, name, created_at, created_by, updated_at, updated_by, deleted, deleted_at, deleted_by`,
		name, stamp.At, stamp.By,
	).Scan(&mr.ID, &mr.Name,
		&mr.CreatedAt, &mr.CreatedBy, &mr.UpdatedAt, &mr.UpdatedBy,
		&mr.Deleted, &mr.DeletedAt, &mr.DeletedBy)
	if err != nil {
		return MemberRole{}, platformdb.TranslateError(err)
	}
	return mr, nil
}

// SoftDeleteMemberRole marks a live seat type deleted.
func (r *Repository) SoftDeleteMemberRole(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE member_roles
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

// CountLiveMembersWithRole backs the seat-type guard.
func (r *Repository) CountLiveMembersWithRole(ctx context.Context, roleID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM members WHERE member_role_id = $1 AND deleted = FALSE`, roleID).Scan(&count)
	return count, err
}

const memberSelect = `
	SELECT m.id, m.ay_committee_id, m.employee_id, e.first_name || ' ' || e.last_name, e.username,
		m.member_role_id, mr.name,
		m.created_at, m.created_by, m.updated_at, m.updated_by, m.deleted, m.deleted_at, m.deleted_by
	FROM members m
	JOIN employees e ON e.id = m.employee_id
	JOIN member_roles mr ON mr.id = m.member_role_id`

func scanMember(row interface{ Scan(...any) error }) (Member, error) {
	var m Member
	err := row.Scan(&m.ID, &m.AYCommitteeID, &m.EmployeeID, &m.EmployeeName, &m.Username,
		&m.MemberRoleID, &m.MemberRole,
		&m.CreatedAt, &m.CreatedBy, &m.UpdatedAt, &m.UpdatedBy,
		&m.Deleted, &m.DeletedAt, &m.DeletedBy)
	if err != nil {
		return Member{}, platformdb.TranslateError(err)
	}
	return m, nil
}

// ListForInstance returns live seats on an instance ordered by name.
func (r *Repository) ListForInstance(ctx context.Context, ayCommitteeID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, memberSelect+`
		WHERE m.ay_committee_id = $1 AND m.deleted = FALSE
		ORDER BY e.last_name, e.first_name`, ayCommitteeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// GetMember fetches a live seat by ID.
func (r *Repository) GetMember(ctx context.Context, id int64) (Member, error) {
	return scanMember(r.pool.QueryRow(ctx, memberSelect+` WHERE m.id = $1 AND m.deleted = FALSE`, id))
}

// CreateMember seats an employee; a partial unique index on
// (ay_committee_id, employee_id) WHERE deleted = FALSE allows one live seat
// per person per instance.
func (r *Repository) CreateMember(ctx context.Context, ayCommitteeID, employeeID, memberRoleID int64, stamp lifecycle.Stamp) (Member, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO members (ay_committee_id, employee_id, member_role_id, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $4, $5, $4, $5, FALSE)
		RETURNING id`,
		ayCommitteeID, employeeID, memberRoleID, stamp.At, stamp.By,
	).Scan(&id)
	if err != nil {
		return Member{}, platformdb.TranslateError(err)
	}
	return r.GetMember(ctx, id)
}

// UpdateMemberRoleAssignment changes the seat type of a live member.
func (r *Repository) UpdateMemberRoleAssignment(ctx context.Context, id, memberRoleID int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE members SET member_role_id = $2, updated_at = $3, updated_by = $4
		WHERE id = $1 AND deleted = FALSE`,
		id, memberRoleID, stamp.At, stamp.By)
	if err != nil {
		return platformdb.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SoftDeleteMember marks a live seat deleted.
func (r *Repository) SoftDeleteMember(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE members
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

// SoftDeleteForAYCommittee soft-deletes every live seat on an instance with
// the caller's stamp and reports the row count.
func (r *Repository) SoftDeleteForAYCommittee(ctx context.Context, ayCommitteeID int64, stamp lifecycle.Stamp) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE members
		SET deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2, updated_by = $3
		WHERE ay_committee_id = $1 AND deleted = FALSE`,
		ayCommitteeID, stamp.At, stamp.By)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// ListMemberEmails returns the distinct email addresses of an instance's
// live roster. Meeting reminders go to this set.
func (r *Repository) ListMemberEmails(ctx context.Context, ayCommitteeID int64) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT e.email
		FROM members mem
		JOIN employees e ON e.id = mem.employee_id AND e.deleted = FALSE
		WHERE mem.ay_committee_id = $1 AND mem.deleted = FALSE AND e.email <> ''
		ORDER BY e.email`, ayCommitteeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}
