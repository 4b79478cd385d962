package audit

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TimelineFilters narrows the audit timeline query.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// TimelineRow is one rendered line of the audit timeline.
type TimelineRow struct {
	At       time.Time
	ActorID  int64
	Action   string
	Entity   string
	EntityID string
}

// Paging holds simple prev/next metadata.
type Paging struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}

// TimelineResult wraps rows with paging information.
type TimelineResult struct {
	Rows   []TimelineRow
	Paging Paging
}

// TimelineRepository fetches audit rows.
type TimelineRepository interface {
	Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error)
}

// PGTimelineRepository reads audit_logs.
type PGTimelineRepository struct {
	pool *pgxpool.Pool
}

// NewTimelineRepository constructs a repository.
func NewTimelineRepository(pool *pgxpool.Pool) *PGTimelineRepository {
	return &PGTimelineRepository{pool: pool}
}

// Window returns audit rows newest first.
func (r *PGTimelineRepository) Window(ctx context.Context, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	query := `SELECT occurred_at, actor_id, action, entity, entity_id FROM audit_logs WHERE 1=1`
	args := []any{}
	if !filters.From.IsZero() {
		args = append(args, filters.From)
		query += ` AND occurred_at >= $` + strconv.Itoa(len(args))
	}
	if !filters.To.IsZero() {
		args = append(args, filters.To)
		query += ` AND occurred_at <= $` + strconv.Itoa(len(args))
	}
	if filters.Entity != "" {
		args = append(args, filters.Entity)
		query += ` AND entity = $` + strconv.Itoa(len(args))
	}
	if filters.Action != "" {
		args = append(args, filters.Action)
		query += ` AND action = $` + strconv.Itoa(len(args))
	}
	args = append(args, limit)
	query += ` ORDER BY occurred_at DESC LIMIT $` + strconv.Itoa(len(args))
	args = append(args, offset)
	query += ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []TimelineRow
	for rows.Next() {
		var row TimelineRow
		if err := rows.Scan(&row.At, &row.ActorID, &row.Action, &row.Entity, &row.EntityID); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Service coordinates timeline reads.
type Service struct {
	repo TimelineRepository
}

// NewService builds the timeline service.
func NewService(repo TimelineRepository) *Service {
	return &Service{repo: repo}
}

// Timeline fetches one page, requesting one extra row to detect a next page.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (TimelineResult, error) {
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	rows, err := s.repo.Window(ctx, filters, pageSize+1, (page-1)*pageSize)
	if err != nil {
		return TimelineResult{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := Paging{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return TimelineResult{Rows: rows, Paging: paging}, nil
}
