package reports

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/quorum-app/quorum/internal/meetings"
)

const hoursCacheTTL = 5 * time.Minute

// MeetingsLister supplies the live meetings for the calendar feed.
type MeetingsLister interface {
	ListAllLive(ctx context.Context) ([]meetings.Meeting, error)
}

// Service aggregates and exports committee hours reports. The hours
// aggregation is cached in Redis and collapsed through singleflight so a
// burst of report views costs one query.
type Service struct {
	repo     RepositoryPort
	meetings MeetingsLister
	cache    *redis.Client
	pdf      *GotenbergClient
	logger   *slog.Logger
	group    singleflight.Group
}

// NewService builds a Service instance. cache and pdf may be nil; the
// report then computes uncached and PDF export is unavailable.
func NewService(repo RepositoryPort, meetingsSvc MeetingsLister, cache *redis.Client, pdf *GotenbergClient, logger *slog.Logger) *Service {
	return &Service{repo: repo, meetings: meetingsSvc, cache: cache, pdf: pdf, logger: logger}
}

func hoursCacheKey(yearID int64) string {
	return "reports:hours:" + strconv.FormatInt(yearID, 10)
}

// HoursForYear returns the hours-vs-attendance aggregation for one academic
// year.
func (s *Service) HoursForYear(ctx context.Context, yearID int64) (HoursReport, error) {
	key := hoursCacheKey(yearID)
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
			var cached HoursReport
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		}
	}

	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.buildHours(ctx, yearID)
	})
	if err != nil {
		return HoursReport{}, err
	}
	report := v.(HoursReport)

	if s.cache != nil {
		if raw, err := json.Marshal(report); err == nil {
			if err := s.cache.Set(ctx, key, raw, hoursCacheTTL).Err(); err != nil {
				s.logWarn("cache hours report", err)
			}
		}
	}
	return report, nil
}

func (s *Service) buildHours(ctx context.Context, yearID int64) (HoursReport, error) {
	yearName, err := s.repo.YearName(ctx, yearID)
	if err != nil {
		return HoursReport{}, err
	}
	committees, err := s.repo.HoursByCommittee(ctx, yearID)
	if err != nil {
		return HoursReport{}, err
	}
	return HoursReport{
		YearID:      yearID,
		YearName:    yearName,
		GeneratedAt: time.Now().UTC(),
		Committees:  committees,
	}, nil
}

// MemberBreakdown returns per-member attendance for one instance.
func (s *Service) MemberBreakdown(ctx context.Context, ayCommitteeID int64) ([]MemberHours, error) {
	return s.repo.HoursByMember(ctx, ayCommitteeID)
}

// InvalidateYear drops the cached aggregation after a write that changes it.
func (s *Service) InvalidateYear(ctx context.Context, yearID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, hoursCacheKey(yearID)).Err(); err != nil {
		s.logWarn("invalidate hours report", err)
	}
}

// WriteCSV streams the report as CSV.
func (s *Service) WriteCSV(w io.Writer, report HoursReport) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{
		"Committee", "Year", "Members", "Meetings",
		"Scheduled Hours", "Attended Hours", "Attendance Rate",
	}); err != nil {
		return err
	}
	for _, c := range report.Committees {
		if err := cw.Write([]string{
			c.CommitteeName,
			c.YearName,
			strconv.Itoa(c.MemberCount),
			strconv.Itoa(c.MeetingCount),
			strconv.FormatFloat(c.ScheduledHours, 'f', 2, 64),
			strconv.FormatFloat(c.AttendedHours, 'f', 2, 64),
			strconv.FormatFloat(c.AttendanceRate(), 'f', 3, 64),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Calendar streams the ICS feed of every live meeting.
func (s *Service) Calendar(ctx context.Context, w io.Writer) error {
	items, err := s.meetings.ListAllLive(ctx)
	if err != nil {
		return err
	}
	return WriteCalendar(w, items, time.Now())
}

var pdfTemplate = template.Must(template.New("hours").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Committee Hours {{.YearName}}</title>
<style>body{font-family:sans-serif}table{border-collapse:collapse;width:100%}
td,th{border:1px solid #999;padding:4px 8px;text-align:left}</style></head>
<body>
<h1>Committee Hours — {{.YearName}}</h1>
<p>Generated {{.GeneratedAt.Format "Jan 2, 2006 15:04 MST"}}</p>
<table>
<tr><th>Committee</th><th>Members</th><th>Meetings</th><th>Scheduled&nbsp;h</th><th>Attended&nbsp;h</th><th>Rate</th></tr>
{{range .Committees}}<tr><td>{{.CommitteeName}}</td><td>{{.MemberCount}}</td><td>{{.MeetingCount}}</td><td>{{printf "%.2f" .ScheduledHours}}</td><td>{{printf "%.2f" .AttendedHours}}</td><td>{{printf "%.1f%%" (.RatePercent)}}</td></tr>
{{end}}</table>
</body></html>`))

// RenderPDF produces a PDF of the report through Gotenberg.
func (s *Service) RenderPDF(ctx context.Context, report HoursReport) ([]byte, error) {
	if s.pdf == nil {
		return nil, fmt.Errorf("pdf rendering is not configured")
	}
	var b strings.Builder
	if err := pdfTemplate.Execute(&b, report); err != nil {
		return nil, err
	}
	return s.pdf.RenderHTML(ctx, b.String())
}

func (s *Service) logWarn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.Any("error", err))
	}
}
