package committees

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorum-app/quorum/internal/lifecycle"
	platformdb "github.com/quorum-app/quorum/internal/platform/db"
	"github.com/quorum-app/quorum/internal/shared"
)

// RepositoryPort defines data access for the committee tracker core.
type RepositoryPort interface {
	ListCommitteeTypes(ctx context.Context) ([]CommitteeType, error)
	CreateCommitteeType(ctx context.Context, name string, stamp lifecycle.Stamp) (CommitteeType, error)
	SoftDeleteCommitteeType(ctx context.Context, id int64, stamp lifecycle.Stamp) error
	CountLiveCommitteesWithType(ctx context.Context, typeID int64) (int, error)

	ListFrequencyTypes(ctx context.Context) ([]FrequencyType, error)
	CreateFrequencyType(ctx context.Context, name string, stamp lifecycle.Stamp) (FrequencyType, error)
	SoftDeleteFrequencyType(ctx context.Context, id int64, stamp lifecycle.Stamp) error
	CountLiveCommitteesWithFrequency(ctx context.Context, frequencyID int64) (int, error)

	ListCommittees(ctx context.Context) ([]Committee, error)
	GetCommittee(ctx context.Context, id int64) (Committee, error)
	CreateCommittee(ctx context.Context, c Committee, stamp lifecycle.Stamp) (Committee, error)
	UpdateCommittee(ctx context.Context, c Committee, stamp lifecycle.Stamp) (Committee, error)
	SoftDeleteCommittee(ctx context.Context, id int64, stamp lifecycle.Stamp) error
	CountLiveInstancesForCommittee(ctx context.Context, committeeID int64) (int, error)

	ListAcademicYears(ctx context.Context) ([]AcademicYear, error)
	GetAcademicYear(ctx context.Context, id int64) (AcademicYear, error)
	CreateAcademicYear(ctx context.Context, y AcademicYear, stamp lifecycle.Stamp) (AcademicYear, error)
	SoftDeleteAcademicYear(ctx context.Context, id int64, stamp lifecycle.Stamp) error
	CountLiveInstancesForYear(ctx context.Context, yearID int64) (int, error)

	ListInstancesForYear(ctx context.Context, yearID int64) ([]AYCommittee, error)
	GetInstance(ctx context.Context, id int64) (AYCommittee, error)
	CreateInstance(ctx context.Context, committeeID, yearID int64, notes string, stamp lifecycle.Stamp) (AYCommittee, error)
	SoftDeleteInstance(ctx context.Context, id int64, stamp lifecycle.Stamp) error
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

const lifecycleColumns = `created_at, created_by, updated_at, updated_by, deleted, deleted_at, deleted_by`

func softDelete(ctx context.Context, pool *pgxpool.Pool, table string, id int64, stamp lifecycle.Stamp) error {
	tag, err := pool.Exec(ctx, `
		UPDATE `+table+`
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

func countOne(ctx context.Context, pool *pgxpool.Pool, query string, arg any) (int, error) {
	var count int
	err := pool.QueryRow(ctx, query, arg).Scan(&count)
	return count, err
}

// ListCommitteeTypes returns live types ordered by name.
func (r *Repository) ListCommitteeTypes(ctx context.Context) ([]CommitteeType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, `+lifecycleColumns+` FROM committee_types WHERE deleted = FALSE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []CommitteeType
	for rows.Next() {
		var t CommitteeType
		if err := rows.Scan(&t.ID, &t.Name,
			&t.CreatedAt, &t.CreatedBy, &t.UpdatedAt, &t.UpdatedBy,
			&t.Deleted, &t.DeletedAt, &t.DeletedBy); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// CreateCommitteeType inserts a type; live names unique.
func (r *Repository) CreateCommitteeType(ctx context.Context, name string, stamp lifecycle.Stamp) (CommitteeType, error) {
	var t CommitteeType
	err := r.pool.QueryRow(ctx, `
		INSERT INTO committee_types (name, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $2, $3, FALSE)
		RETURNING id, name, `+lifecycleColumns,
		name, stamp.At, stamp.By,
	).Scan(&t.ID, &t.Name,
		&t.CreatedAt, &t.CreatedBy, &t.UpdatedAt, &t.UpdatedBy,
		&t.Deleted, &t.DeletedAt, &t.DeletedBy)
	if err != nil {
		return CommitteeType{}, platformdb.TranslateError(err)
	}
	return t, nil
}

// SoftDeleteCommitteeType marks a live type deleted.
func (r *Repository) SoftDeleteCommitteeType(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	return softDelete(ctx, r.pool, "committee_types", id, stamp)
}

// CountLiveCommitteesWithType backs the type guard.
func (r *Repository) CountLiveCommitteesWithType(ctx context.Context, typeID int64) (int, error) {
	return countOne(ctx, r.pool, `SELECT COUNT(*) FROM committees WHERE type_id = $1 AND deleted = FALSE`, typeID)
}

// ListFrequencyTypes returns live frequencies ordered by name.
func (r *Repository) ListFrequencyTypes(ctx context.Context) ([]FrequencyType, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, `+lifecycleColumns+` FROM frequency_types WHERE deleted = FALSE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var types []FrequencyType
	for rows.Next() {
		var t FrequencyType
		if err := rows.Scan(&t.ID, &t.Name,
			&t.CreatedAt, &t.CreatedBy, &t.UpdatedAt, &t.UpdatedBy,
			&t.Deleted, &t.DeletedAt, &t.DeletedBy); err != nil {
			return nil, err
		}
		types = append(types, t)
	}
	return types, rows.Err()
}

// CreateFrequencyType inserts a frequency; live names unique.
func (r *Repository) CreateFrequencyType(ctx context.Context, name string, stamp lifecycle.Stamp) (FrequencyType, error) {
	var t FrequencyType
	err := r.pool.QueryRow(ctx, `
		INSERT INTO frequency_types (name, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $2, $3, FALSE)
		RETURNING id, name, `+lifecycleColumns,
		name, stamp.At, stamp.By,
	).Scan(&t.ID, &t.Name,
		&t.CreatedAt, &t.CreatedBy, &t.UpdatedAt, &t.UpdatedBy,
		&t.Deleted, &t.DeletedAt, &t.DeletedBy)
	if err != nil {
		return FrequencyType{}, platformdb.TranslateError(err)
	}
	return t, nil
}

// SoftDeleteFrequencyType marks a live frequency deleted.
func (r *Repository) SoftDeleteFrequencyType(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	return softDelete(ctx, r.pool, "frequency_types", id, stamp)
}

// CountLiveCommitteesWithFrequency backs the frequency guard.
func (r *Repository) CountLiveCommitteesWithFrequency(ctx context.Context, frequencyID int64) (int, error) {
	return countOne(ctx, r.pool, `SELECT COUNT(*) FROM committees WHERE frequency_id = $1 AND deleted = FALSE`, frequencyID)
}

const committeeSelect = `
	SELECT c.id, c.name, c.description, c.type_id, ct.name, c.frequency_id, ft.name,
		c.created_at, c.created_by, c.updated_at, c.updated_by, c.deleted, c.deleted_at, c.deleted_by
	FROM committees c
	JOIN committee_types ct ON ct.id = c.type_id
	JOIN frequency_types ft ON ft.id = c.frequency_id`

func scanCommittee(row interface{ Scan(...any) error }) (Committee, error) {
	var c Committee
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.TypeID, &c.TypeName, &c.FrequencyID, &c.FrequencyName,
		&c.CreatedAt, &c.CreatedBy, &c.UpdatedAt, &c.UpdatedBy,
		&c.Deleted, &c.DeletedAt, &c.DeletedBy)
	if err != nil {
		return Committee{}, platformdb.TranslateError(err)
	}
	return c, nil
}

// ListCommittees returns live committees with type and frequency names.
func (r *Repository) ListCommittees(ctx context.Context) ([]Committee, error) {
	rows, err := r.pool.Query(ctx, committeeSelect+` WHERE c.deleted = FALSE ORDER BY c.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var committees []Committee
	for rows.Next() {
		c, err := scanCommittee(rows)
		if err != nil {
			return nil, err
		}
		committees = append(committees, c)
	}
	return committees, rows.Err()
}

// GetCommittee fetches a live committee by ID.
func (r *Repository) GetCommittee(ctx context.Context, id int64) (Committee, error) {
	return scanCommittee(r.pool.QueryRow(ctx, committeeSelect+` WHERE c.id = $1 AND c.deleted = FALSE`, id))
}

// CreateCommittee inserts a committee; live names unique via partial index.
func (r *Repository) CreateCommittee(ctx context.Context, c Committee, stamp lifecycle.Stamp) (Committee, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO committees (name, description, type_id, frequency_id, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $5, $6, FALSE)
		RETURNING id`,
		c.Name, c.Description, c.TypeID, c.FrequencyID, stamp.At, stamp.By,
	).Scan(&id)
	if err != nil {
		return Committee{}, platformdb.TranslateError(err)
	}
	return r.GetCommittee(ctx, id)
}

// UpdateCommittee edits a live committee.
func (r *Repository) UpdateCommittee(ctx context.Context, c Committee, stamp lifecycle.Stamp) (Committee, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE committees
		SET name = $2, description = $3, type_id = $4, frequency_id = $5, updated_at = $6, updated_by = $7
		WHERE id = $1 AND deleted = FALSE`,
		c.ID, c.Name, c.Description, c.TypeID, c.FrequencyID, stamp.At, stamp.By)
	if err != nil {
		return Committee{}, platformdb.TranslateError(err)
	}
	if tag.RowsAffected() == 0 {
		return Committee{}, shared.ErrNotFound
	}
	return r.GetCommittee(ctx, c.ID)
}

// SoftDeleteCommittee marks a live committee deleted.
func (r *Repository) SoftDeleteCommittee(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	return softDelete(ctx, r.pool, "committees", id, stamp)
}

// CountLiveInstancesForCommittee backs the committee guard.
func (r *Repository) CountLiveInstancesForCommittee(ctx context.Context, committeeID int64) (int, error) {
	return countOne(ctx, r.pool, `SELECT COUNT(*) FROM ay_committees WHERE committee_id = $1 AND deleted = FALSE`, committeeID)
}

// ListAcademicYears returns live years, newest first.
func (r *Repository) ListAcademicYears(ctx context.Context) ([]AcademicYear, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, start_date, end_date, `+lifecycleColumns+` FROM academic_years WHERE deleted = FALSE ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var years []AcademicYear
	for rows.Next() {
		var y AcademicYear
		if err := rows.Scan(&y.ID, &y.Name, &y.StartDate, &y.EndDate,
			&y.CreatedAt, &y.CreatedBy, &y.UpdatedAt, &y.UpdatedBy,
			&y.Deleted, &y.DeletedAt, &y.DeletedBy); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// GetAcademicYear fetches a live year by ID.
func (r *Repository) GetAcademicYear(ctx context.Context, id int64) (AcademicYear, error) {
	var y AcademicYear
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, start_date, end_date, `+lifecycleColumns+` FROM academic_years WHERE id = $1 AND deleted = FALSE`, id,
	).Scan(&y.ID, &y.Name, &y.StartDate, &y.EndDate,
		&y.CreatedAt, &y.CreatedBy, &y.UpdatedAt, &y.UpdatedBy,
		&y.Deleted, &y.DeletedAt, &y.DeletedBy)
	if err != nil {
		return AcademicYear{}, platformdb.TranslateError(err)
	}
	return y, nil
}

// CreateAcademicYear inserts a year; live names unique.
func (r *Repository) CreateAcademicYear(ctx context.Context, y AcademicYear, stamp lifecycle.Stamp) (AcademicYear, error) {
	var created AcademicYear
	err := r.pool.QueryRow(ctx, `
		INSERT INTO academic_years (name, start_date, end_date, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $4, $5, $4, $5, FALSE)
		RETURNING id, name, start_date, end_date, `+lifecycleColumns,
		y.Name, y.StartDate, y.EndDate, stamp.At, stamp.By,
	).Scan(&created.ID, &created.Name, &created.StartDate, &created.EndDate,
		&created.CreatedAt, &created.CreatedBy, &created.UpdatedAt, &created.UpdatedBy,
		&created.Deleted, &created.DeletedAt, &created.DeletedBy)
	if err != nil {
		return AcademicYear{}, platformdb.TranslateError(err)
	}
	return created, nil
}

// SoftDeleteAcademicYear marks a live year deleted.
func (r *Repository) SoftDeleteAcademicYear(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	return softDelete(ctx, r.pool, "academic_years", id, stamp)
}

// CountLiveInstancesForYear backs the year guard.
func (r *Repository) CountLiveInstancesForYear(ctx context.Context, yearID int64) (int, error) {
	return countOne(ctx, r.pool, `SELECT COUNT(*) FROM ay_committees WHERE year_id = $1 AND deleted = FALSE`, yearID)
}

const instanceSelect = `
	SELECT ac.id, ac.committee_id, c.name, ac.year_id, y.name, ac.notes,
		ac.created_at, ac.created_by, ac.updated_at, ac.updated_by, ac.deleted, ac.deleted_at, ac.deleted_by
	FROM ay_committees ac
	JOIN committees c ON c.id = ac.committee_id
	JOIN academic_years y ON y.id = ac.year_id`

func scanInstance(row interface{ Scan(...any) error }) (AYCommittee, error) {
	var i AYCommittee
	err := row.Scan(&i.ID, &i.CommitteeID, &i.CommitteeName, &i.YearID, &i.YearName, &i.Notes,
		&i.CreatedAt, &i.CreatedBy, &i.UpdatedAt, &i.UpdatedBy,
		&i.Deleted, &i.DeletedAt, &i.DeletedBy)
	if err != nil {
		return AYCommittee{}, platformdb.TranslateError(err)
	}
	return i, nil
}

// ListInstancesForYear returns live instances for a year.
func (r *Repository) ListInstancesForYear(ctx context.Context, yearID int64) ([]AYCommittee, error) {
	rows, err := r.pool.Query(ctx, instanceSelect+` WHERE ac.year_id = $1 AND ac.deleted = FALSE ORDER BY c.name`, yearID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var instances []AYCommittee
	for rows.Next() {
		i, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		instances = append(instances, i)
	}
	return instances, rows.Err()
}

// GetInstance fetches a live instance by ID.
func (r *Repository) GetInstance(ctx context.Context, id int64) (AYCommittee, error) {
	return scanInstance(r.pool.QueryRow(ctx, instanceSelect+` WHERE ac.id = $1 AND ac.deleted = FALSE`, id))
}

// CreateInstance inserts an instance; a partial unique index on
// (committee_id, year_id) WHERE deleted = FALSE allows at most one live
// instance per pair.
func (r *Repository) CreateInstance(ctx context.Context, committeeID, yearID int64, notes string, stamp lifecycle.Stamp) (AYCommittee, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO ay_committees (committee_id, year_id, notes, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $4, $5, $4, $5, FALSE)
		RETURNING id`,
		committeeID, yearID, notes, stamp.At, stamp.By,
	).Scan(&id)
	if err != nil {
		return AYCommittee{}, platformdb.TranslateError(err)
	}
	return r.GetInstance(ctx, id)
}

// SoftDeleteInstance marks a live instance deleted. The service layer owns
// the cascade to dependents.
func (r *Repository) SoftDeleteInstance(ctx context.Context, id int64, stamp lifecycle.Stamp) error {
	return softDelete(ctx, r.pool, "ay_committees", id, stamp)
}
