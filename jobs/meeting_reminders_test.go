package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorum-app/quorum/internal/meetings"
)

type stubUpcoming struct {
	within time.Duration
	items  []meetings.Meeting
}

func (s *stubUpcoming) ListUpcoming(ctx context.Context, within time.Duration) ([]meetings.Meeting, error) {
	s.within = within
	return s.items, nil
}

type stubRoster struct {
	emails map[int64][]string
}

func (s *stubRoster) RosterEmails(ctx context.Context, ayCommitteeID int64) ([]string, error) {
	return s.emails[ayCommitteeID], nil
}

type sentMail struct {
	to      []string
	subject string
}

type recordingMailer struct {
	sent []sentMail
}

func (m *recordingMailer) Send(ctx context.Context, to []string, subject, body string) error {
	m.sent = append(m.sent, sentMail{to: to, subject: subject})
	return nil
}

func TestMeetingRemindersSendToRoster(t *testing.T) {
	start := time.Now().Add(3 * time.Hour)
	upcoming := &stubUpcoming{items: []meetings.Meeting{
		{ID: 1, AYCommitteeID: 10, Title: "Budget review", StartsAt: start, EndsAt: start.Add(time.Hour)},
		{ID: 2, AYCommitteeID: 11, Title: "Curriculum vote", StartsAt: start, EndsAt: start.Add(time.Hour)},
	}}
	roster := &stubRoster{emails: map[int64][]string{
		10: {"jdoe@example.edu", "bsmith@example.edu"},
		// Instance 11 has no live members with an address.
	}}
	mailer := &recordingMailer{}
	job := NewMeetingRemindersJob(upcoming, roster, mailer, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskMeetingReminders, nil))
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, upcoming.within)
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"jdoe@example.edu", "bsmith@example.edu"}, mailer.sent[0].to)
	assert.Contains(t, mailer.sent[0].subject, "Budget review")
}

func TestMeetingRemindersCustomWindow(t *testing.T) {
	upcoming := &stubUpcoming{}
	job := NewMeetingRemindersJob(upcoming, &stubRoster{}, &recordingMailer{}, nil, nil)

	task, err := NewMeetingRemindersTask(MeetingRemindersPayload{WithinHours: 48})
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, upcoming.within)
}

func TestMeetingRemindersBadPayloadSkipsRetry(t *testing.T) {
	job := NewMeetingRemindersJob(&stubUpcoming{}, &stubRoster{}, &recordingMailer{}, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskMeetingReminders, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestMeetingRemindersUnconfigured(t *testing.T) {
	var job *MeetingRemindersJob
	err := job.Handle(context.Background(), asynq.NewTask(TaskMeetingReminders, nil))
	assert.Error(t, err)
}
