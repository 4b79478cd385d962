package instruments

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorum-app/quorum/internal/lifecycle"
	platformdb "github.com/quorum-app/quorum/internal/platform/db"
	"github.com/quorum-app/quorum/internal/shared"
)

// RepositoryPort defines data access for instrument requests.
type RepositoryPort interface {
	List(ctx context.Context, filters shared.ListFilters) ([]InstrumentRequest, error)
	Get(ctx context.Context, id int64) (InstrumentRequest, error)
	Create(ctx context.Context, req InstrumentRequest, stamp lifecycle.Stamp) (InstrumentRequest, error)
	Update(ctx context.Context, req InstrumentRequest, stamp lifecycle.Stamp) (InstrumentRequest, error)
	SetStatus(ctx context.Context, id int64, status string, stamp lifecycle.Stamp) error
	SoftDelete(ctx context.Context, id int64, stamp lifecycle.Stamp) error
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

const requestSelect = `
	SELECT r.id, r.title, r.description, r.requester_id,
		COALESCE(e.first_name || ' ' || e.last_name, ''),
		r.status, r.needed_by,
		r.created_at, r.created_by, r.updated_at, r.updated_by,
		r.deleted, r.deleted_at, r.deleted_by
	FROM instrument_requests r
	LEFT JOIN users u ON u.id = r.requester_id AND u.deleted = FALSE
	LEFT JOIN employees e ON e.id = u.employee_id AND e.deleted = FALSE`

func scanRequest(row interface{ Scan(...any) error }) (InstrumentRequest, error) {
	var req InstrumentRequest
	err := row.Scan(&req.ID, &req.Title, &req.Description, &req.RequesterID,
		&req.RequesterName, &req.Status, &req.NeededBy,
		&req.CreatedAt, &req.CreatedBy, &req.UpdatedAt, &req.UpdatedBy,
		&req.Deleted, &req.DeletedAt, &req.DeletedBy)
	if err != nil {
		return InstrumentRequest{}, platformdb.TranslateError(err)
	}
	return req, nil
}

// List returns live requests, newest first. A non-empty Search filters by
// title or status.
func (r *Repository) List(ctx context.Context, filters shared.ListFilters) ([]InstrumentRequest, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := (filters.Page - 1) * limit
	if offset < 0 {
		offset = 0
	}
	rows, err := r.pool.Query(ctx, requestSelect+`
		WHERE r.deleted = FALSE
			AND ($1 = '' OR r.title ILIKE '%' || $1 || '%' OR r.status = lower($1))
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3`,
		filters.Search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var requests []InstrumentRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// Get fetches a live request by ID.
func (r *Repository) Get(ctx context.Context, id int64) (InstrumentRequest, error) {
	return scanRequest(r.pool.QueryRow(ctx, requestSelect+` WHERE r.id = $1 AND r.deleted = FALSE`, id))
}

// Create inserts a request.
func (r *Repository) Create(ctx context.Context, req InstrumentRequest, stamp lifecycle.Stamp) (InstrumentRequest, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO instrument_requests (title, description, requester_id, status, needed_by,
			created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $6, $7, FALSE)
		RETURNING id`,
		req.Title, req.Description, req.RequesterID, req.Status, req.NeededBy,
		stamp.At, stamp.By,
	).Scan(&id)
	if err != nil {
		return InstrumentRequest{}, platformdb.TranslateError(err)
	}
	return r.Get(ctx, id)
}

// Update edits the describable fields of a live request.
func (r *Repository) Update(ctx context.Context, req InstrumentRequest, stamp lifecycle.Stamp) (InstrumentRequest, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE instrument_requests
		SET title = $2, description = $3, needed_by = $4, updated_at = $5, updated_by = $6
		WHERE id = $1 AND deleted = FALSE`,
		req.ID, req.Title, req.Description, req.NeededBy, stamp.At, stamp.By)
	if err != nil {
		return InstrumentRequest{}, platformdb.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return InstrumentRequest{}, shared.ErrNotFound
	}
	return r.Get(ctx, req.ID)
}

// SetStatus moves a live request through the review workflow.
func (r *Repository) SetStatus(ctx context.Context, id int64, status string, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE instrument_requests
		SET status = $2, updated_at = $3, updated_by = $4
		WHERE id = $1 AND deleted = FALSE`,
		id, status, stamp.At, stamp.By)
	if err != nil {
		return platformdb.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SoftDelete marks a live request deleted.
func (r *Repository) SoftDelete(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE instrument_requests
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
