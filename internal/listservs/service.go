package listservs

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"

	"github.com/quorum-app/quorum/internal/audit"
	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

// Service handles listserv business logic. Provider calls are best effort:
// a groups outage never blocks the local change, it is only logged.
type Service struct {
	repo   RepositoryPort
	groups GroupsClient
	logger *slog.Logger
	audit  *audit.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, groups GroupsClient, logger *slog.Logger, auditLogger *audit.Logger) *Service {
	return &Service{repo: repo, groups: groups, logger: logger, audit: auditLogger}
}

// ListListservs returns live lists.
func (s *Service) ListListservs(ctx context.Context) ([]Listserv, error) {
	return s.repo.ListListservs(ctx)
}

// ListDeletedListservs returns deleted lists for the restore screen.
func (s *Service) ListDeletedListservs(ctx context.Context) ([]Listserv, error) {
	return s.repo.ListDeletedListservs(ctx)
}

// GetListserv fetches one live list.
func (s *Service) GetListserv(ctx context.Context, id int64) (Listserv, error) {
	return s.repo.GetListserv(ctx, id)
}

// CreateListserv adds a list and mirrors it to the groups provider.
func (s *Service) CreateListserv(ctx context.Context, actorID int64, l Listserv) (Listserv, error) {
	l.Name = strings.TrimSpace(l.Name)
	l.Address = strings.TrimSpace(strings.ToLower(l.Address))
	if l.Name == "" {
		return Listserv{}, shared.NewValidationError("name", "listserv name is required")
	}
	if l.Address == "" || !strings.Contains(l.Address, "@") {
		return Listserv{}, shared.NewValidationError("address", "a valid group address is required")
	}
	stamp := lifecycle.NewStamp(actorID)
	created, err := s.repo.CreateListserv(ctx, l, stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Listserv{}, &shared.DuplicateError{Entity: "listserv", Key: l.Address}
		}
		return Listserv{}, err
	}
	s.ensureGroup(ctx, created)
	s.record(ctx, actorID, "listserv.create", "listserv", created.ID, stamp, map[string]any{"address": created.Address})
	return created, nil
}

// UpdateListserv edits a live list.
func (s *Service) UpdateListserv(ctx context.Context, actorID int64, l Listserv) (Listserv, error) {
	l.Name = strings.TrimSpace(l.Name)
	if l.Name == "" {
		return Listserv{}, shared.NewValidationError("name", "listserv name is required")
	}
	stamp := lifecycle.NewStamp(actorID)
	updated, err := s.repo.UpdateListserv(ctx, l, stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Listserv{}, &shared.DuplicateError{Entity: "listserv", Key: l.Address}
		}
		return Listserv{}, err
	}
	s.record(ctx, actorID, "listserv.update", "listserv", updated.ID, stamp, nil)
	return updated, nil
}

// DeleteListserv soft-deletes a list. Contacts stay live so a restore
// gets the full subscriber set back.
func (s *Service) DeleteListserv(ctx context.Context, actorID, id int64) error {
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SoftDeleteListserv(ctx, id, stamp); err != nil {
		return err
	}
	s.record(ctx, actorID, "listserv.delete", "listserv", id, stamp, nil)
	return nil
}

// RestoreListserv brings a deleted list back.
func (s *Service) RestoreListserv(ctx context.Context, actorID, id int64) (Listserv, error) {
	if _, err := s.repo.GetDeletedListserv(ctx, id); err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			// A live row is not restorable.
			if _, liveErr := s.repo.GetListserv(ctx, id); liveErr == nil {
				return Listserv{}, lifecycle.ErrNotDeleted
			}
		}
		return Listserv{}, err
	}
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.RestoreListserv(ctx, id, stamp); err != nil {
		return Listserv{}, err
	}
	restored, err := s.repo.GetListserv(ctx, id)
	if err != nil {
		return Listserv{}, err
	}
	s.ensureGroup(ctx, restored)
	s.record(ctx, actorID, "listserv.restore", "listserv", id, stamp, nil)
	return restored, nil
}

// ListContacts returns the live subscribers of a list.
func (s *Service) ListContacts(ctx context.Context, listservID int64) ([]Contact, error) {
	return s.repo.ListContacts(ctx, listservID)
}

// AddContact subscribes one address.
func (s *Service) AddContact(ctx context.Context, actorID int64, c Contact) (Contact, error) {
	c.Email = strings.TrimSpace(strings.ToLower(c.Email))
	if c.Email == "" || !strings.Contains(c.Email, "@") {
		return Contact{}, shared.NewValidationError("email", "a valid email is required")
	}
	list, err := s.repo.GetListserv(ctx, c.ListservID)
	if err != nil {
		return Contact{}, err
	}
	stamp := lifecycle.NewStamp(actorID)
	created, err := s.repo.CreateContact(ctx, c, stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Contact{}, &shared.DuplicateError{Entity: "contact", Key: c.Email}
		}
		return Contact{}, err
	}
	if s.groups != nil {
		if err := s.groups.AddMember(ctx, list.Address, created.Email); err != nil {
			s.logWarn("groups add member failed", err)
		}
	}
	s.record(ctx, actorID, "contact.create", "listserv_contact", created.ID, stamp,
		map[string]any{"email": created.Email, "listserv_id": created.ListservID})
	return created, nil
}

// RemoveContact unsubscribes one address.
func (s *Service) RemoveContact(ctx context.Context, actorID, id int64) error {
	contact, err := s.repo.GetContact(ctx, id)
	if err != nil {
		return err
	}
	list, err := s.repo.GetListserv(ctx, contact.ListservID)
	if err != nil {
		return err
	}
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SoftDeleteContact(ctx, id, stamp); err != nil {
		return err
	}
	if s.groups != nil {
		if err := s.groups.RemoveMember(ctx, list.Address, contact.Email); err != nil {
			s.logWarn("groups remove member failed", err)
		}
	}
	s.record(ctx, actorID, "contact.delete", "listserv_contact", id, stamp, nil)
	return nil
}

func (s *Service) ensureGroup(ctx context.Context, l Listserv) {
	if s.groups == nil {
		return
	}
	if err := s.groups.EnsureGroup(ctx, l.Address, l.Name); err != nil {
		s.logWarn("groups ensure failed", err)
	}
}

func (s *Service) logWarn(msg string, err error) {
	if s.logger != nil {
		s.logger.Warn(msg, slog.Any("error", err))
	}
}

func (s *Service) record(ctx context.Context, actorID int64, action, entity string, entityID int64, stamp lifecycle.Stamp, meta map[string]any) {
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: action, Entity: entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta, At: stamp.At,
	})
}
