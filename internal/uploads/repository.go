package uploads

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorum-app/quorum/internal/lifecycle"
	platformdb "github.com/quorum-app/quorum/internal/platform/db"
	"github.com/quorum-app/quorum/internal/shared"
)

// RepositoryPort defines data access for upload metadata.
type RepositoryPort interface {
	ListForInstance(ctx context.Context, ayCommitteeID int64) ([]FileUpload, error)
	GetUpload(ctx context.Context, id int64) (FileUpload, error)
	CreateUpload(ctx context.Context, f FileUpload, stamp lifecycle.Stamp) (FileUpload, error)
	SoftDeleteUpload(ctx context.Context, id int64, stamp lifecycle.Stamp) error
	SoftDeleteForAYCommittee(ctx context.Context, ayCommitteeID int64, stamp lifecycle.Stamp) (int, error)
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

const uploadColumns = `id, ay_committee_id, file_name, content_type, size_bytes, storage_key, description,
	created_at, created_by, updated_at, updated_by, deleted, deleted_at, deleted_by`

func scanUpload(row interface{ Scan(...any) error }) (FileUpload, error) {
	var f FileUpload
	err := row.Scan(&f.ID, &f.AYCommitteeID, &f.FileName, &f.ContentType, &f.SizeBytes, &f.StorageKey, &f.Description,
		&f.CreatedAt, &f.CreatedBy, &f.UpdatedAt, &f.UpdatedBy,
		&f.Deleted, &f.DeletedAt, &f.DeletedBy)
	if err != nil {
		return FileUpload{}, platformdb.TranslateError(err)
	}
	return f, nil
}

// ListForInstance returns live uploads of an instance, newest first.
func (r *Repository) ListForInstance(ctx context.Context, ayCommitteeID int64) ([]FileUpload, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+uploadColumns+` FROM file_uploads
		WHERE ay_committee_id = $1 AND deleted = FALSE
		ORDER BY created_at DESC`, ayCommitteeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var uploads []FileUpload
	for rows.Next() {
		f, err := scanUpload(rows)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, f)
	}
	return uploads, rows.Err()
}

// GetUpload fetches live metadata by ID.
func (r *Repository) GetUpload(ctx context.Context, id int64) (FileUpload, error) {
	return scanUpload(r.pool.QueryRow(ctx,
		`SELECT `+uploadColumns+` FROM file_uploads WHERE id = $1 AND deleted = FALSE`, id))
}

// CreateUpload inserts metadata for a stored blob.
func (r *Repository) CreateUpload(ctx context.Context, f FileUpload, stamp lifecycle.Stamp) (FileUpload, error) {
	return scanUpload(r.pool.QueryRow(ctx, `
		INSERT INTO file_uploads (ay_committee_id, file_name, content_type, size_bytes, storage_key, description, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $7, $8, FALSE)
		RETURNING `+uploadColumns,
		f.AYCommitteeID, f.FileName, f.ContentType, f.SizeBytes, f.StorageKey, f.Description, stamp.At, stamp.By))
}

// SoftDeleteUpload marks live metadata deleted. The blob stays on disk.
func (r *Repository) SoftDeleteUpload(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE file_uploads
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

// SoftDeleteForAYCommittee removes every live upload of a deleted instance
// with the caller's stamp.
func (r *Repository) SoftDeleteForAYCommittee(ctx context.Context, ayCommitteeID int64, stamp lifecycle.Stamp) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE file_uploads
		SET deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2, updated_by = $3
		WHERE ay_committee_id = $1 AND deleted = FALSE`,
		ayCommitteeID, stamp.At, stamp.By)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
