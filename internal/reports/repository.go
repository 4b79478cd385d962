package reports

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	platformdb "github.com/quorum-app/quorum/internal/platform/db"
)

// RepositoryPort defines the aggregation queries behind the hours report.
type RepositoryPort interface {
	HoursByCommittee(ctx context.Context, yearID int64) ([]CommitteeHours, error)
	HoursByMember(ctx context.Context, ayCommitteeID int64) ([]MemberHours, error)
	YearName(ctx context.Context, yearID int64) (string, error)
}

// Repository provides PostgreSQL backed aggregation.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RepositoryPort = (*Repository)(nil)

// HoursByCommittee aggregates scheduled and attended hours per instance of
// the year. Every join keeps only live rows so deleted meetings or seats
// never skew the totals.
func (r *Repository) HoursByCommittee(ctx context.Context, yearID int64) ([]CommitteeHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ac.id, c.name, y.name,
			(SELECT COUNT(*) FROM members mem
				WHERE mem.ay_committee_id = ac.id AND mem.deleted = FALSE),
			mt.meeting_count, mt.scheduled_hours,
			att.attended_hours
		FROM ay_committees ac
		JOIN committees c ON c.id = ac.committee_id AND c.deleted = FALSE
		JOIN academic_years y ON y.id = ac.year_id AND y.deleted = FALSE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS meeting_count,
				COALESCE(SUM(EXTRACT(EPOCH FROM (m.ends_at - m.starts_at)) / 3600.0), 0) AS scheduled_hours
			FROM meetings m
			WHERE m.ay_committee_id = ac.id AND m.deleted = FALSE
		) mt ON TRUE
		LEFT JOIN LATERAL (
			SELECT COALESCE(SUM(EXTRACT(EPOCH FROM (m2.ends_at - m2.starts_at)) / 3600.0), 0) AS attended_hours
			FROM attendance a
			JOIN meetings m2 ON m2.id = a.meeting_id AND m2.deleted = FALSE
			WHERE m2.ay_committee_id = ac.id AND a.deleted = FALSE AND a.present = TRUE
		) att ON TRUE
		WHERE ac.year_id = $1 AND ac.deleted = FALSE
		ORDER BY c.name`, yearID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CommitteeHours
	for rows.Next() {
		var ch CommitteeHours
		if err := rows.Scan(&ch.AYCommitteeID, &ch.CommitteeName, &ch.YearName,
			&ch.MemberCount, &ch.MeetingCount, &ch.ScheduledHours, &ch.AttendedHours); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}

// HoursByMember aggregates one instance's roster against its meetings.
func (r *Repository) HoursByMember(ctx context.Context, ayCommitteeID int64) ([]MemberHours, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT mem.id, COALESCE(e.first_name || ' ' || e.last_name, ''),
			(SELECT COUNT(*) FROM meetings m
				WHERE m.ay_committee_id = mem.ay_committee_id AND m.deleted = FALSE),
			COUNT(a.id) FILTER (WHERE a.present),
			COALESCE(SUM(EXTRACT(EPOCH FROM (m.ends_at - m.starts_at)) / 3600.0)
				FILTER (WHERE a.present), 0)
		FROM members mem
		JOIN employees e ON e.id = mem.employee_id AND e.deleted = FALSE
		LEFT JOIN attendance a ON a.member_id = mem.id AND a.deleted = FALSE
		LEFT JOIN meetings m ON m.id = a.meeting_id AND m.deleted = FALSE
		WHERE mem.ay_committee_id = $1 AND mem.deleted = FALSE
		GROUP BY mem.id, e.first_name, e.last_name
		ORDER BY e.last_name, e.first_name`, ayCommitteeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MemberHours
	for rows.Next() {
		var mh MemberHours
		if err := rows.Scan(&mh.MemberID, &mh.EmployeeName,
			&mh.MeetingsHeld, &mh.MeetingsSeen, &mh.AttendedHours); err != nil {
			return nil, err
		}
		out = append(out, mh)
	}
	return out, rows.Err()
}

// YearName resolves a live academic year's display name.
func (r *Repository) YearName(ctx context.Context, yearID int64) (string, error) {
	var name string
	err := r.pool.QueryRow(ctx,
		`SELECT name FROM academic_years WHERE id = $1 AND deleted = FALSE`, yearID,
	).Scan(&name)
	if err != nil {
		return "", platformdb.TranslateError(err)
	}
	return name, nil
}
