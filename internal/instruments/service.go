package instruments

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/quorum-app/quorum/internal/audit"
	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

// Service handles instrument request business logic.
type Service struct {
	repo  RepositoryPort
	audit *audit.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, auditLogger *audit.Logger) *Service {
	return &Service{repo: repo, audit: auditLogger}
}

// NewRequestInput carries the submittable fields of a request.
type NewRequestInput struct {
	Title       string
	Description string
	NeededBy    *time.Time
}

// ListRequests returns live requests.
func (s *Service) ListRequests(ctx context.Context, filters shared.ListFilters) ([]InstrumentRequest, error) {
	return s.repo.List(ctx, filters)
}

// GetRequest fetches one live request.
func (s *Service) GetRequest(ctx context.Context, id int64) (InstrumentRequest, error) {
	return s.repo.Get(ctx, id)
}

// SubmitRequest files a new pending request on behalf of the actor.
func (s *Service) SubmitRequest(ctx context.Context, actorID int64, in NewRequestInput) (InstrumentRequest, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return InstrumentRequest{}, shared.NewValidationError("title", "a request title is required")
	}
	stamp := lifecycle.NewStamp(actorID)
	created, err := s.repo.Create(ctx, InstrumentRequest{
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		RequesterID: actorID,
		Status:      StatusPending,
		NeededBy:    in.NeededBy,
	}, stamp)
	if err != nil {
		return InstrumentRequest{}, err
	}
	s.record(ctx, actorID, "instrument_request.create", created.ID, stamp, map[string]any{"title": created.Title})
	return created, nil
}

// UpdateRequest edits a live request's describable fields.
func (s *Service) UpdateRequest(ctx context.Context, actorID, id int64, in NewRequestInput) (InstrumentRequest, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return InstrumentRequest{}, shared.NewValidationError("title", "a request title is required")
	}
	stamp := lifecycle.NewStamp(actorID)
	updated, err := s.repo.Update(ctx, InstrumentRequest{
		ID:          id,
		Title:       in.Title,
		Description: strings.TrimSpace(in.Description),
		NeededBy:    in.NeededBy,
	}, stamp)
	if err != nil {
		return InstrumentRequest{}, err
	}
	s.record(ctx, actorID, "instrument_request.update", id, stamp, nil)
	return updated, nil
}

// ReviewRequest approves or declines a pending request.
func (s *Service) ReviewRequest(ctx context.Context, actorID, id int64, status string) error {
	if status != StatusApproved && status != StatusDeclined {
		return shared.NewValidationError("status", "status must be approved or declined")
	}
	req, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if req.Status != StatusPending {
		return shared.NewValidationError("status", "only pending requests can be reviewed")
	}
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SetStatus(ctx, id, status, stamp); err != nil {
		return err
	}
	s.record(ctx, actorID, "instrument_request.review", id, stamp, map[string]any{"status": status})
	return nil
}

// DeleteRequest soft-deletes a request.
func (s *Service) DeleteRequest(ctx context.Context, actorID, id int64) error {
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SoftDelete(ctx, id, stamp); err != nil {
		return err
	}
	s.record(ctx, actorID, "instrument_request.delete", id, stamp, nil)
	return nil
}

func (s *Service) record(ctx context.Context, actorID int64, action string, entityID int64, stamp lifecycle.Stamp, meta map[string]any) {
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: action, Entity: "instrument_request",
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta, At: stamp.At,
	})
}
