package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskMeetingReminders fans out reminder emails for upcoming meetings.
	TaskMeetingReminders = "meetings:reminders"
	// TaskDirectorySync refreshes employee records from the campus directory.
	TaskDirectorySync = "directory:sync"
	// TaskReportWarmup regenerates the cached hours report for each year.
	TaskReportWarmup = "reports:warmup"
)

// MeetingRemindersPayload controls the reminder window.
type MeetingRemindersPayload struct {
	WithinHours int `json:"within_hours"`
}

// NewMeetingRemindersTask constructs an Asynq task.
func NewMeetingRemindersTask(payload MeetingRemindersPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMeetingReminders, data), nil
}

// NewDirectorySyncTask constructs an Asynq task.
func NewDirectorySyncTask() *asynq.Task {
	return asynq.NewTask(TaskDirectorySync, nil)
}

// NewReportWarmupTask constructs an Asynq task.
func NewReportWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskReportWarmup, nil)
}
