package reports

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorum-app/quorum/internal/meetings"
	"github.com/quorum-app/quorum/internal/shared"
)

type mockRepo struct {
	hours      map[int64][]CommitteeHours
	members    map[int64][]MemberHours
	years      map[int64]string
	hoursCalls int
}

func newMockRepo() *mockRepo {
	return &mockRepo{
		hours:   map[int64][]CommitteeHours{},
		members: map[int64][]MemberHours{},
		years:   map[int64]string{},
	}
}

func (m *mockRepo) HoursByCommittee(ctx context.Context, yearID int64) ([]CommitteeHours, error) {
	m.hoursCalls++
	return m.hours[yearID], nil
}

func (m *mockRepo) HoursByMember(ctx context.Context, ayCommitteeID int64) ([]MemberHours, error) {
	return m.members[ayCommitteeID], nil
}

func (m *mockRepo) YearName(ctx context.Context, yearID int64) (string, error) {
	name, ok := m.years[yearID]
	if !ok {
		return "", shared.ErrNotFound
	}
	return name, nil
}

type stubMeetings struct {
	items []meetings.Meeting
}

func (s *stubMeetings) ListAllLive(ctx context.Context) ([]meetings.Meeting, error) {
	return s.items, nil
}

func seededRepo() *mockRepo {
	repo := newMockRepo()
	repo.years[1] = "2025-2026"
	repo.hours[1] = []CommitteeHours{
		{
			AYCommitteeID: 10, CommitteeName: "Curriculum", YearName: "2025-2026",
			MemberCount: 4, MeetingCount: 6,
			ScheduledHours: 9, AttendedHours: 27,
		},
		{
			AYCommitteeID: 11, CommitteeName: "Library", YearName: "2025-2026",
			MemberCount: 3, MeetingCount: 0,
		},
	}
	return repo
}

func TestHoursForYear(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, nil, nil, nil, nil)

	report, err := svc.HoursForYear(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "2025-2026", report.YearName)
	require.Len(t, report.Committees, 2)
	assert.InDelta(t, 0.75, report.Committees[0].AttendanceRate(), 0.001)
	assert.Zero(t, report.Committees[1].AttendanceRate())
}

func TestHoursForYearUnknownYear(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil, nil, nil)

	_, err := svc.HoursForYear(context.Background(), 99)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestHoursForYearCaches(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := seededRepo()
	svc := NewService(repo, nil, cache, nil, nil)
	ctx := context.Background()

	first, err := svc.HoursForYear(ctx, 1)
	require.NoError(t, err)
	second, err := svc.HoursForYear(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, first.Committees, second.Committees)
	assert.Equal(t, 1, repo.hoursCalls)

	svc.InvalidateYear(ctx, 1)
	_, err = svc.HoursForYear(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.hoursCalls)
}

func TestWriteCSV(t *testing.T) {
	repo := seededRepo()
	svc := NewService(repo, nil, nil, nil, nil)

	report, err := svc.HoursForYear(context.Background(), 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.WriteCSV(&buf, report))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Attendance Rate")
	assert.Contains(t, lines[1], "Curriculum")
	assert.Contains(t, lines[1], "0.750")
	assert.Contains(t, lines[2], "Library")
}

func TestCalendarFeed(t *testing.T) {
	start := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	lister := &stubMeetings{items: []meetings.Meeting{
		{
			ID: 5, Title: "Budget review; spring", Location: "Dean's office",
			StartsAt: start, EndsAt: start.Add(90 * time.Minute),
		},
	}}
	svc := NewService(newMockRepo(), lister, nil, nil, nil)

	var buf bytes.Buffer
	require.NoError(t, svc.Calendar(context.Background(), &buf))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR\r\n"))
	assert.Contains(t, out, "UID:meeting-5@quorum\r\n")
	assert.Contains(t, out, "DTSTART:20260310T140000Z\r\n")
	assert.Contains(t, out, "DTEND:20260310T153000Z\r\n")
	assert.Contains(t, out, `SUMMARY:Budget review\; spring`)
	assert.True(t, strings.HasSuffix(out, "END:VCALENDAR\r\n"))
}

func TestRenderPDFUnconfigured(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil, nil, nil)

	_, err := svc.RenderPDF(context.Background(), HoursReport{})
	assert.Error(t, err)
}
