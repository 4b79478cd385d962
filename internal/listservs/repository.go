package listservs

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorum-app/quorum/internal/lifecycle"
	platformdb "github.com/quorum-app/quorum/internal/platform/db"
	"github.com/quorum-app/quorum/internal/shared"
)

// RepositoryPort defines data access for listservs. Get and GetDeleted are
// split because restore is the one flow that may touch a deleted row.
type RepositoryPort interface {
	ListListservs(ctx context.Context) ([]Listserv, error)
	ListDeletedListservs(ctx context.Context) ([]Listserv, error)
	GetListserv(ctx context.Context, id int64) (Listserv, error)
	GetDeletedListserv(ctx context.Context, id int64) (Listserv, error)
	CreateListserv(ctx context.Context, l Listserv, stamp lifecycle.Stamp) (Listserv, error)
	UpdateListserv(ctx context.Context, l Listserv, stamp lifecycle.Stamp) (Listserv, error)
	SoftDeleteListserv(ctx context.Context, id int64, stamp lifecycle.Stamp) error
	RestoreListserv(ctx context.Context, id int64, stamp lifecycle.Stamp) error

	ListContacts(ctx context.Context, listservID int64) ([]Contact, error)
	GetContact(ctx context.Context, id int64) (Contact, error)
	CreateContact(ctx context.Context, c Contact, stamp lifecycle.Stamp) (Contact, error)
	SoftDeleteContact(ctx context.Context, id int64, stamp lifecycle.Stamp) error
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

const listservColumns = `id, name, address, description,
	created_at, created_by, updated_at, updated_by, deleted, deleted_at, deleted_by`

func scanListserv(row interface{ Scan(...any) error }) (Listserv, error) {
	var l Listserv
	err := row.Scan(&l.ID, &l.Name, &l.Address, &l.Description,
		&l.CreatedAt, &l.CreatedBy, &l.UpdatedAt, &l.UpdatedBy,
		&l.Deleted, &l.DeletedAt, &l.DeletedBy)
	if err != nil {
		return Listserv{}, platformdb.TranslateError(err)
	}
	return l, nil
}

func (r *Repository) queryListservs(ctx context.Context, query string) ([]Listserv, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lists []Listserv
	for rows.Next() {
		l, err := scanListserv(rows)
		if err != nil {
			return nil, err
		}
		lists = append(lists, l)
	}
	return lists, rows.Err()
}

// ListListservs returns live lists ordered by name.
func (r *Repository) ListListservs(ctx context.Context) ([]Listserv, error) {
	return r.queryListservs(ctx, `SELECT `+listservColumns+` FROM listservs WHERE deleted = FALSE ORDER BY name`)
}

// ListDeletedListservs returns deleted lists for the restore screen.
func (r *Repository) ListDeletedListservs(ctx context.Context) ([]Listserv, error) {
	return r.queryListservs(ctx, `SELECT `+listservColumns+` FROM listservs WHERE deleted = TRUE ORDER BY deleted_at DESC`)
}

// GetListserv fetches a live list by ID.
func (r *Repository) GetListserv(ctx context.Context, id int64) (Listserv, error) {
	return scanListserv(r.pool.QueryRow(ctx,
		`SELECT `+listservColumns+` FROM listservs WHERE id = $1 AND deleted = FALSE`, id))
}

// GetDeletedListserv fetches a deleted list by ID.
func (r *Repository) GetDeletedListserv(ctx context.Context, id int64) (Listserv, error) {
	return scanListserv(r.pool.QueryRow(ctx,
		`SELECT `+listservColumns+` FROM listservs WHERE id = $1 AND deleted = TRUE`, id))
}

// CreateListserv inserts a list; live addresses unique.
func (r *Repository) CreateListserv(ctx context.Context, l Listserv, stamp lifecycle.Stamp) (Listserv, error) {
	return scanListserv(r.pool.QueryRow(ctx, `
		INSERT INTO listservs (name, address, description, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $4, $5, $4, $5, FALSE)
		RETURNING `+listservColumns,
		l.Name, l.Address, l.Description, stamp.At, stamp.By))
}

// UpdateListserv edits a live list.
func (r *Repository) UpdateListserv(ctx context.Context, l Listserv, stamp lifecycle.Stamp) (Listserv, error) {
	return scanListserv(r.pool.QueryRow(ctx, `
		UPDATE listservs
		SET name = $2, address = $3, description = $4, updated_at = $5, updated_by = $6
		WHERE id = $1 AND deleted = FALSE
		RETURNING `+listservColumns,
		l.ID, l.Name, l.Address, l.Description, stamp.At, stamp.By))
}

// SoftDeleteListserv marks a live list deleted.
func (r *Repository) SoftDeleteListserv(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE listservs
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

// RestoreListserv brings a deleted list back, re-stamping creation the way
// Lifecycle.Restore does.
func (r *Repository) RestoreListserv(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE listservs
		SET deleted = FALSE, deleted_at = NULL, deleted_by = NULL,
			created_at = $2, created_by = $3, updated_at = $2, updated_by = $3
		WHERE id = $1 AND deleted = TRUE`,
		id, stamp.At, stamp.By)
	if err != nil {
		return platformdb.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

const contactColumns = `id, listserv_id, name, email,
	created_at, created_by, updated_at, updated_by, deleted, deleted_at, deleted_by`

// ListContacts returns live contacts of a list ordered by email.
func (r *Repository) ListContacts(ctx context.Context, listservID int64) ([]Contact, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+contactColumns+` FROM listserv_contacts WHERE listserv_id = $1 AND deleted = FALSE ORDER BY email`, listservID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.ListservID, &c.Name, &c.Email,
			&c.CreatedAt, &c.CreatedBy, &c.UpdatedAt, &c.UpdatedBy,
			&c.Deleted, &c.DeletedAt, &c.DeletedBy); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// GetContact fetches a live contact by ID.
func (r *Repository) GetContact(ctx context.Context, id int64) (Contact, error) {
	var c Contact
	err := r.pool.QueryRow(ctx,
		`SELECT `+contactColumns+` FROM listserv_contacts WHERE id = $1 AND deleted = FALSE`, id,
	).Scan(&c.ID, &c.ListservID, &c.Name, &c.Email,
		&c.CreatedAt, &c.CreatedBy, &c.UpdatedAt, &c.UpdatedBy,
		&c.Deleted, &c.DeletedAt, &c.DeletedBy)
	if err != nil {
		return Contact{}, platformdb.TranslateError(err)
	}
	return c, nil
}

// CreateContact inserts a contact; one live entry per (list, email).
func (r *Repository) CreateContact(ctx context.Context, c Contact, stamp lifecycle.Stamp) (Contact, error) {
	var created Contact
	err := r.pool.QueryRow(ctx, `
		INSERT INTO listserv_contacts (listserv_id, name, email, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $4, $5, $4, $5, FALSE)
		RETURNING `+contactColumns,
		c.ListservID, c.Name, c.Email, stamp.At, stamp.By,
	).Scan(&created.ID, &created.ListservID, &created.Name, &created.Email,
		&created.CreatedAt, &created.CreatedBy, &created.UpdatedAt, &created.UpdatedBy,
		&created.Deleted, &created.DeletedAt, &created.DeletedBy)
	if err != nil {
		return Contact{}, platformdb.TranslateError(err)
	}
	return created, nil
}

// SoftDeleteContact marks a live contact deleted.
func (r *Repository) SoftDeleteContact(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE listserv_contacts
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
