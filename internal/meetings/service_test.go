package meetings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

type attKey struct {
	meetingID int64
	memberID  int64
}

type mockRepo struct {
	nextID     int64
	meetings   map[int64]*Meeting
	attendance map[attKey]*Attendance
}

func newMockRepo() *mockRepo {
	return &mockRepo{nextID: 1, meetings: make(map[int64]*Meeting), attendance: make(map[attKey]*Attendance)}
}

func (m *mockRepo) ListForInstance(_ context.Context, ayCommitteeID int64) ([]Meeting, error) {
	var out []Meeting
	for _, mt := range m.meetings {
		if mt.Live() && mt.AYCommitteeID == ayCommitteeID {
			out = append(out, *mt)
		}
	}
	return out, nil
}

func (m *mockRepo) ListUpcoming(_ context.Context, within time.Duration) ([]Meeting, error) {
	now := time.Now()
	var out []Meeting
	for _, mt := range m.meetings {
		if mt.Live() && mt.StartsAt.After(now) && mt.StartsAt.Before(now.Add(within)) {
			out = append(out, *mt)
		}
	}
	return out, nil
}

func (m *mockRepo) ListAllLive(_ context.Context) ([]Meeting, error) {
	var out []Meeting
	for _, mt := range m.meetings {
		if mt.Live() {
			out = append(out, *mt)
		}
	}
	return out, nil
}

func (m *mockRepo) GetMeeting(_ context.Context, id int64) (Meeting, error) {
	mt, ok := m.meetings[id]
	if !ok || !mt.Live() {
		return Meeting{}, shared.ErrNotFound
	}
	return *mt, nil
}

func (m *mockRepo) CreateMeeting(_ context.Context, mt Meeting, stamp lifecycle.Stamp) (Meeting, error) {
	mt.ID = m.nextID
	mt.StampCreate(stamp)
	m.meetings[mt.ID] = &mt
	m.nextID++
	return mt, nil
}

func (m *mockRepo) UpdateMeeting(_ context.Context, mt Meeting, stamp lifecycle.Stamp) (Meeting, error) {
	stored, ok := m.meetings[mt.ID]
	if !ok || !stored.Live() {
		return Meeting{}, shared.ErrNotFound
	}
	stored.Title, stored.Location, stored.Notes = mt.Title, mt.Location, mt.Notes
	stored.StartsAt, stored.EndsAt = mt.StartsAt, mt.EndsAt
	stored.StampModify(stamp)
	return *stored, nil
}

func (m *mockRepo) SoftDeleteMeeting(_ context.Context, id int64, stamp lifecycle.Stamp) (int, error) {
	mt, ok := m.meetings[id]
	if !ok || !mt.Live() {
		return 0, shared.ErrNotFound
	}
	if err := mt.SoftDelete(stamp); err != nil {
		return 0, err
	}
	count := 1
	for key, a := range m.attendance {
		if key.meetingID == id && a.Live() {
			if err := a.SoftDelete(stamp); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) SoftDeleteForAYCommittee(_ context.Context, ayCommitteeID int64, stamp lifecycle.Stamp) (int, error) {
	total := 0
	for _, mt := range m.meetings {
		if mt.Live() && mt.AYCommitteeID == ayCommitteeID {
			n, err := m.SoftDeleteMeeting(context.Background(), mt.ID, stamp)
			total += n
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

func (m *mockRepo) ListAttendance(_ context.Context, meetingID int64) ([]Attendance, error) {
	var out []Attendance
	for key, a := range m.attendance {
		if key.meetingID == meetingID && a.Live() {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockRepo) SetAttendance(_ context.Context, meetingID, memberID int64, present bool, stamp lifecycle.Stamp) error {
	key := attKey{meetingID: meetingID, memberID: memberID}
	if a, ok := m.attendance[key]; ok {
		a.Present = present
		a.Deleted = false
		a.StampModify(stamp)
		return nil
	}
	a := &Attendance{ID: m.nextID, MeetingID: meetingID, MemberID: memberID, Present: present}
	a.StampCreate(stamp)
	m.attendance[key] = a
	m.nextID++
	return nil
}

func schedule(t *testing.T, svc *Service, instanceID int64, start time.Time) Meeting {
	t.Helper()
	mt, err := svc.ScheduleMeeting(context.Background(), 1, Meeting{
		AYCommitteeID: instanceID,
		Title:         "Regular session",
		StartsAt:      start,
		EndsAt:        start.Add(time.Hour),
	})
	require.NoError(t, err)
	return mt
}

func TestScheduleMeetingValidation(t *testing.T) {
	svc := NewService(newMockRepo(), nil)
	start := time.Date(2025, 10, 1, 14, 0, 0, 0, time.UTC)

	_, err := svc.ScheduleMeeting(context.Background(), 1, Meeting{
		AYCommitteeID: 10, Title: "  ", StartsAt: start, EndsAt: start.Add(time.Hour),
	})
	var verr *shared.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")

	_, err = svc.ScheduleMeeting(context.Background(), 1, Meeting{
		AYCommitteeID: 10, Title: "Session", StartsAt: start, EndsAt: start,
	})
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "ends_at")

	_, err = svc.ScheduleMeeting(context.Background(), 1, Meeting{
		AYCommitteeID: 10, Title: "Session", StartsAt: start, EndsAt: start.Add(-time.Hour),
	})
	require.ErrorAs(t, err, &verr)
}

func TestMarkAttendanceToggles(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	mt := schedule(t, svc, 10, time.Date(2025, 10, 1, 14, 0, 0, 0, time.UTC))

	require.NoError(t, svc.MarkAttendance(context.Background(), 1, mt.ID, 5, true))
	sheet, err := svc.ListAttendance(context.Background(), mt.ID)
	require.NoError(t, err)
	require.Len(t, sheet, 1)
	assert.True(t, sheet[0].Present)

	// Flipping updates the same row rather than duplicating.
	require.NoError(t, svc.MarkAttendance(context.Background(), 1, mt.ID, 5, false))
	sheet, err = svc.ListAttendance(context.Background(), mt.ID)
	require.NoError(t, err)
	require.Len(t, sheet, 1)
	assert.False(t, sheet[0].Present)
}

func TestMarkAttendanceCancelledMeeting(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	mt := schedule(t, svc, 10, time.Date(2025, 10, 1, 14, 0, 0, 0, time.UTC))

	require.NoError(t, svc.CancelMeeting(context.Background(), 1, mt.ID))
	err := svc.MarkAttendance(context.Background(), 1, mt.ID, 5, true)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCancelMeetingRemovesAttendance(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	mt := schedule(t, svc, 10, time.Date(2025, 10, 1, 14, 0, 0, 0, time.UTC))
	require.NoError(t, svc.MarkAttendance(context.Background(), 1, mt.ID, 5, true))

	require.NoError(t, svc.CancelMeeting(context.Background(), 2, mt.ID))

	_, err := svc.GetMeeting(context.Background(), mt.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	for _, a := range repo.attendance {
		assert.True(t, a.Deleted)
	}
}

func TestCascadeCountsMeetingsAndAttendance(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil)
	mt := schedule(t, svc, 10, time.Date(2025, 10, 1, 14, 0, 0, 0, time.UTC))
	require.NoError(t, svc.MarkAttendance(context.Background(), 1, mt.ID, 5, true))
	// A meeting of another instance stays live.
	other := schedule(t, svc, 11, time.Date(2025, 10, 2, 14, 0, 0, 0, time.UTC))

	stamp := lifecycle.NewStamp(7)
	count, err := svc.SoftDeleteForAYCommittee(context.Background(), 10, stamp)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	stored := repo.meetings[mt.ID]
	require.NotNil(t, stored.DeletedBy)
	assert.Equal(t, int64(7), *stored.DeletedBy)
	assert.True(t, repo.meetings[other.ID].Live())
}
