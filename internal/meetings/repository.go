package meetings

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quorum-app/quorum/internal/lifecycle"
	platformdb "github.com/quorum-app/quorum/internal/platform/db"
	"github.com/quorum-app/quorum/internal/shared"
)

// RepositoryPort defines data access for meetings and attendance.
type RepositoryPort interface {
	ListForInstance(ctx context.Context, ayCommitteeID int64) ([]Meeting, error)
	ListUpcoming(ctx context.Context, within time.Duration) ([]Meeting, error)
	ListAllLive(ctx context.Context) ([]Meeting, error)
	GetMeeting(ctx context.Context, id int64) (Meeting, error)
	CreateMeeting(ctx context.Context, m Meeting, stamp lifecycle.Stamp) (Meeting, error)
	UpdateMeeting(ctx context.Context, m Meeting, stamp lifecycle.Stamp) (Meeting, error)
	SoftDeleteMeeting(ctx context.Context, id int64, stamp lifecycle.Stamp) (int, error)
	SoftDeleteForAYCommittee(ctx context.Context, ayCommitteeID int64, stamp lifecycle.Stamp) (int, error)

	ListAttendance(ctx context.Context, meetingID int64) ([]Attendance, error)
	SetAttendance(ctx context.Context, meetingID, memberID int64, present bool, stamp lifecycle.Stamp) error
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

const meetingColumns = `id, ay_committee_id, title, location, starts_at, ends_at, notes,
	created_at, created_by, updated_at, updated_by, deleted, deleted_at, deleted_by`

func scanMeeting(row interface{ Scan(...any) error }) (Meeting, error) {
	var m Meeting
	err := row.Scan(&m.ID, &m.AYCommitteeID, &m.Title, &m.Location, &m.StartsAt, &m.EndsAt, &m.Notes,
		&m.CreatedAt, &m.CreatedBy, &m.UpdatedAt, &m.UpdatedBy,
		&m.Deleted, &m.DeletedAt, &m.DeletedBy)
	if err != nil {
		return Meeting{}, platformdb.TranslateError(err)
	}
	return m, nil
}

func (r *Repository) queryMeetings(ctx context.Context, query string, args ...any) ([]Meeting, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var meetings []Meeting
	for rows.Next() {
		m, err := scanMeeting(rows)
		if err != nil {
			return nil, err
		}
		meetings = append(meetings, m)
	}
	return meetings, rows.Err()
}

// ListForInstance returns live meetings of an instance in schedule order.
func (r *Repository) ListForInstance(ctx context.Context, ayCommitteeID int64) ([]Meeting, error) {
	return r.queryMeetings(ctx, `
		SELECT `+meetingColumns+` FROM meetings
		WHERE ay_committee_id = $1 AND deleted = FALSE
		ORDER BY starts_at`, ayCommitteeID)
}

// ListUpcoming returns live meetings starting within the window. The
// reminder job uses this.
func (r *Repository) ListUpcoming(ctx context.Context, within time.Duration) ([]Meeting, error) {
	return r.queryMeetings(ctx, `
		SELECT `+meetingColumns+` FROM meetings
		WHERE deleted = FALSE AND starts_at BETWEEN NOW() AND NOW() + $1
		ORDER BY starts_at`, within)
}

// ListAllLive returns every live meeting. The calendar feed uses this.
func (r *Repository) ListAllLive(ctx context.Context) ([]Meeting, error) {
	return r.queryMeetings(ctx, `
		SELECT `+meetingColumns+` FROM meetings
		WHERE deleted = FALSE
		ORDER BY starts_at`)
}

// GetMeeting fetches a live meeting by ID.
func (r *Repository) GetMeeting(ctx context.Context, id int64) (Meeting, error) {
	return scanMeeting(r.pool.QueryRow(ctx,
		`SELECT `+meetingColumns+` FROM meetings WHERE id = $1 AND deleted = FALSE`, id))
}

// CreateMeeting inserts a meeting.
func (r *Repository) CreateMeeting(ctx context.Context, m Meeting, stamp lifecycle.Stamp) (Meeting, error) {
	return scanMeeting(r.pool.QueryRow(ctx, `
		INSERT INTO meetings (ay_committee_id, title, location, starts_at, ends_at, notes, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $7, $8, FALSE)
		RETURNING `+meetingColumns,
		m.AYCommitteeID, m.Title, m.Location, m.StartsAt, m.EndsAt, m.Notes, stamp.At, stamp.By))
}

// UpdateMeeting edits a live meeting.
func (r *Repository) UpdateMeeting(ctx context.Context, m Meeting, stamp lifecycle.Stamp) (Meeting, error) {
	return scanMeeting(r.pool.QueryRow(ctx, `
		UPDATE meetings
		SET title = $2, location = $3, starts_at = $4, ends_at = $5, notes = $6, updated_at = $7, updated_by = $8
		WHERE id = $1 AND deleted = FALSE
		RETURNING `+meetingColumns,
		m.ID, m.Title, m.Location, m.StartsAt, m.EndsAt, m.Notes, stamp.At, stamp.By))
}

// SoftDeleteMeeting marks a meeting and its live attendance deleted with
// one stamp, reporting the total row count.
func (r *Repository) SoftDeleteMeeting(ctx context.Context, id int64, stamp lifecycle.Stamp) (int, error) {
	total := 0
	err := platformdb.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE meetings
			SET deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2, updated_by = $3
			WHERE id = $1 AND deleted = FALSE`,
			id, stamp.At, stamp.By)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return shared.ErrNotFound
		}
		total += int(tag.RowsAffected())
		tag, err = tx.Exec(ctx, `
			UPDATE attendance
			SET deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2, updated_by = $3
			WHERE meeting_id = $1 AND deleted = FALSE`,
			id, stamp.At, stamp.By)
		if err != nil {
			return err
		}
		total += int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// SoftDeleteForAYCommittee removes every live meeting of a deleted instance
// and their attendance rows under the caller's stamp.
func (r *Repository) SoftDeleteForAYCommittee(ctx context.Context, ayCommitteeID int64, stamp lifecycle.Stamp) (int, error) {
	total := 0
	err := platformdb.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE attendance a
			SET deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2, updated_by = $3
			FROM meetings m
			WHERE a.meeting_id = m.id AND m.ay_committee_id = $1
			  AND a.deleted = FALSE AND m.deleted = FALSE`,
			ayCommitteeID, stamp.At, stamp.By)
		if err != nil {
			return err
		}
		total += int(tag.RowsAffected())
		tag, err = tx.Exec(ctx, `
			UPDATE meetings
			SET deleted = TRUE, deleted_at = $2, deleted_by = $3, updated_at = $2, updated_by = $3
			WHERE ay_committee_id = $1 AND deleted = FALSE`,
			ayCommitteeID, stamp.At, stamp.By)
		if err != nil {
			return err
		}
		total += int(tag.RowsAffected())
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ListAttendance returns live attendance rows for a meeting with member
// names resolved.
func (r *Repository) ListAttendance(ctx context.Context, meetingID int64) ([]Attendance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.meeting_id, a.member_id, e.first_name || ' ' || e.last_name, a.present,
			a.created_at, a.created_by, a.updated_at, a.updated_by, a.deleted, a.deleted_at, a.deleted_by
		FROM attendance a
		JOIN members m ON m.id = a.member_id
		JOIN employees e ON e.id = m.employee_id
		WHERE a.meeting_id = $1 AND a.deleted = FALSE
		ORDER BY e.last_name, e.first_name`, meetingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []Attendance
	for rows.Next() {
		var a Attendance
		if err := rows.Scan(&a.ID, &a.MeetingID, &a.MemberID, &a.MemberName, &a.Present,
			&a.CreatedAt, &a.CreatedBy, &a.UpdatedAt, &a.UpdatedBy,
			&a.Deleted, &a.DeletedAt, &a.DeletedBy); err != nil {
			return nil, err
		}
		records = append(records, a)
	}
	return records, rows.Err()
}

// SetAttendance upserts the presence flag for one member at one meeting.
func (r *Repository) SetAttendance(ctx context.Context, meetingID, memberID int64, present bool, stamp lifecycle.Stamp) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE attendance
		SET present = $3, deleted = FALSE, deleted_at = NULL, deleted_by = NULL, updated_at = $4, updated_by = $5
		WHERE meeting_id = $1 AND member_id = $2`,
		meetingID, memberID, present, stamp.At, stamp.By)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO attendance (meeting_id, member_id, present, created_at, created_by, updated_at, updated_by, deleted)
		VALUES ($1, $2, $3, $4, $5, $4, $5, FALSE)`,
		meetingID, memberID, present, stamp.At, stamp.By)
	return platformdb.TranslateError(err)
}
