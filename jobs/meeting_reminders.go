package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/quorum-app/quorum/internal/jobs"
	"github.com/quorum-app/quorum/internal/meetings"
)

// UpcomingLister supplies meetings starting within a window.
type UpcomingLister interface {
	ListUpcoming(ctx context.Context, within time.Duration) ([]meetings.Meeting, error)
}

// RosterSource resolves an instance's recipient addresses.
type RosterSource interface {
	RosterEmails(ctx context.Context, ayCommitteeID int64) ([]string, error)
}

// MeetingRemindersJob emails committee rosters about meetings starting soon.
type MeetingRemindersJob struct {
	Meetings UpcomingLister
	Roster   RosterSource
	Mailer   Mailer
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewMeetingRemindersJob wires dependencies for the reminder handler.
func NewMeetingRemindersJob(meetingsSvc UpcomingLister, roster RosterSource, mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics) *MeetingRemindersJob {
	return &MeetingRemindersJob{Meetings: meetingsSvc, Roster: roster, Mailer: mailer, Logger: logger, Metrics: metrics}
}

// Handle processes reminder tasks.
func (j *MeetingRemindersJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Meetings == nil || j.Roster == nil || j.Mailer == nil {
		return errors.New("meeting reminders: handler not configured")
	}
	var payload MeetingRemindersPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}
	if payload.WithinHours <= 0 {
		payload.WithinHours = 24
	}

	tracker := j.Metrics.Track(TaskMeetingReminders)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	within := time.Duration(payload.WithinHours) * time.Hour
	upcoming, err := j.Meetings.ListUpcoming(ctx, within)
	if err != nil {
		resultErr = err
		return resultErr
	}

	sent := 0
	for _, m := range upcoming {
		emails, err := j.Roster.RosterEmails(ctx, m.AYCommitteeID)
		if err != nil {
			j.logWarn("roster lookup failed", m.ID, err)
			continue
		}
		if len(emails) == 0 {
			continue
		}
		subject := fmt.Sprintf("Reminder: %s on %s", m.Title, m.StartsAt.Format("Jan 2 at 3:04 PM"))
		body := fmt.Sprintf("%s\n%s — %s\nLocation: %s\n",
			m.Title,
			m.StartsAt.Format(time.RFC1123), m.EndsAt.Format("3:04 PM"),
			m.Location)
		if err := j.Mailer.Send(ctx, emails, subject, body); err != nil {
			j.logWarn("reminder send failed", m.ID, err)
			continue
		}
		sent++
	}
	if j.Logger != nil {
		j.Logger.Info("meeting reminders processed",
			slog.Int("upcoming", len(upcoming)),
			slog.Int("sent", sent))
	}
	return nil
}

func (j *MeetingRemindersJob) logWarn(msg string, meetingID int64, err error) {
	if j.Logger != nil {
		j.Logger.Warn(msg, slog.Int64("meeting_id", meetingID), slog.Any("error", err))
	}
}
