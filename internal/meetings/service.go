package meetings

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/quorum-app/quorum/internal/audit"
	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

// Service handles meeting and attendance business logic.
type Service struct {
	repo  RepositoryPort
	audit *audit.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, auditLogger *audit.Logger) *Service {
	return &Service{repo: repo, audit: auditLogger}
}

// ListForInstance returns live meetings of an instance.
func (s *Service) ListForInstance(ctx context.Context, ayCommitteeID int64) ([]Meeting, error) {
	return s.repo.ListForInstance(ctx, ayCommitteeID)
}

// ListUpcoming returns live meetings starting within the window.
func (s *Service) ListUpcoming(ctx context.Context, within time.Duration) ([]Meeting, error) {
	return s.repo.ListUpcoming(ctx, within)
}

// ListAllLive returns every live meeting across instances.
func (s *Service) ListAllLive(ctx context.Context) ([]Meeting, error) {
	return s.repo.ListAllLive(ctx)
}

// GetMeeting fetches one live meeting.
func (s *Service) GetMeeting(ctx context.Context, id int64) (Meeting, error) {
	return s.repo.GetMeeting(ctx, id)
}

func validateMeeting(m Meeting) error {
	if strings.TrimSpace(m.Title) == "" {
		return shared.NewValidationError("title", "meeting title is required")
	}
	if m.StartsAt.IsZero() || m.EndsAt.IsZero() {
		return shared.NewValidationError("starts_at", "start and end times are required")
	}
	if !m.EndsAt.After(m.StartsAt) {
		return shared.NewValidationError("ends_at", "end time must be after start time")
	}
	return nil
}

// ScheduleMeeting creates a meeting. The end must follow the start.
func (s *Service) ScheduleMeeting(ctx context.Context, actorID int64, m Meeting) (Meeting, error) {
	m.Title = strings.TrimSpace(m.Title)
	if err := validateMeeting(m); err != nil {
		return Meeting{}, err
	}
	stamp := lifecycle.NewStamp(actorID)
	created, err := s.repo.CreateMeeting(ctx, m, stamp)
	if err != nil {
		return Meeting{}, err
	}
	s.record(ctx, actorID, "meeting.create", created.ID, stamp,
		map[string]any{"title": created.Title, "ay_committee_id": created.AYCommitteeID})
	return created, nil
}

// RescheduleMeeting edits a live meeting under the same validation.
func (s *Service) RescheduleMeeting(ctx context.Context, actorID int64, m Meeting) (Meeting, error) {
	m.Title = strings.TrimSpace(m.Title)
	if err := validateMeeting(m); err != nil {
		return Meeting{}, err
	}
	stamp := lifecycle.NewStamp(actorID)
	updated, err := s.repo.UpdateMeeting(ctx, m, stamp)
	if err != nil {
		return Meeting{}, err
	}
	s.record(ctx, actorID, "meeting.update", updated.ID, stamp, nil)
	return updated, nil
}

// CancelMeeting soft-deletes a meeting together with its attendance rows.
func (s *Service) CancelMeeting(ctx context.Context, actorID, id int64) error {
	stamp := lifecycle.NewStamp(actorID)
	rows, err := s.repo.SoftDeleteMeeting(ctx, id, stamp)
	if err != nil {
		return err
	}
	s.record(ctx, actorID, "meeting.delete", id, stamp, map[string]any{"rows": rows})
	return nil
}

// ListAttendance returns the live attendance sheet of a meeting.
func (s *Service) ListAttendance(ctx context.Context, meetingID int64) ([]Attendance, error) {
	return s.repo.ListAttendance(ctx, meetingID)
}

// MarkAttendance records or flips one member's presence.
func (s *Service) MarkAttendance(ctx context.Context, actorID, meetingID, memberID int64, present bool) error {
	if _, err := s.repo.GetMeeting(ctx, meetingID); err != nil {
		return err
	}
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SetAttendance(ctx, meetingID, memberID, present, stamp); err != nil {
		return err
	}
	s.record(ctx, actorID, "attendance.set", meetingID, stamp,
		map[string]any{"member_id": memberID, "present": present})
	return nil
}

// Name identifies this feature area in cascade audit entries.
func (s *Service) Name() string { return "meetings" }

// SoftDeleteForAYCommittee removes every live meeting of a deleted instance
// and their attendance under the instance's stamp.
func (s *Service) SoftDeleteForAYCommittee(ctx context.Context, ayCommitteeID int64, stamp lifecycle.Stamp) (int, error) {
	return s.repo.SoftDeleteForAYCommittee(ctx, ayCommitteeID, stamp)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entityID int64, stamp lifecycle.Stamp, meta map[string]any) {
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: action, Entity: "meeting",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta, At: stamp.At,
	})
}
