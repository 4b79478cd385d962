package authz

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/quorum-app/quorum/internal/audit"
	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

// Service orchestrates authorization checks and permission administration.
type Service struct {
	repo  Repository
	audit *audit.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, auditLogger *audit.Logger) *Service {
	return &Service{repo: repo, audit: auditLogger}
}

// GrantsFor loads the decision table for a live identity. A deleted or
// unknown identity resolves to shared.ErrNotFound.
func (s *Service) GrantsFor(ctx context.Context, userID int64) (Grants, error) {
	snap, err := s.repo.IdentityByID(ctx, userID)
	if err != nil {
		return Grants{}, err
	}
	return NewGrants(snap), nil
}

// GrantsForUsername resolves the external username supplied by the
// authentication collaborator into a decision table.
func (s *Service) GrantsForUsername(ctx context.Context, username string) (Grants, error) {
	snap, err := s.repo.IdentityByUsername(ctx, username)
	if err != nil {
		return Grants{}, err
	}
	return NewGrants(snap), nil
}

// Can evaluates one (resource, action) check for the given identity. A
// failure to resolve the identity is an ordinary false, never an error.
func (s *Service) Can(ctx context.Context, userID int64, resource, action string) bool {
	grants, err := s.GrantsFor(ctx, userID)
	if err != nil {
		return false
	}
	return grants.Can(resource, action)
}

// ListPermissions returns all live permissions.
func (s *Service) ListPermissions(ctx context.Context) ([]Permission, error) {
	return s.repo.ListPermissions(ctx)
}

// CreatePermission registers a new (resource, action) pair. The pair is
// case-normalized before storage; duplicates among live rows are reported as
// a distinct duplicate outcome.
func (s *Service) CreatePermission(ctx context.Context, actor Actor, resource, action string) (Permission, error) {
	resource = strings.ToLower(strings.TrimSpace(resource))
	action = strings.ToLower(strings.TrimSpace(action))
	if resource == "" {
		return Permission{}, shared.NewValidationError("resource", "resource is required")
	}
	if action == "" {
		return Permission{}, shared.NewValidationError("action", "action is required")
	}
	stamp := lifecycle.NewStamp(actor.UserID)
	perm, err := s.repo.CreatePermission(ctx, resource, action, stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Permission{}, &shared.DuplicateError{Entity: "permission", Key: resource + Separator + action}
		}
		return Permission{}, err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID:  actor.UserID,
		Action:   "permission.create",
		Entity:   "permission",
		EntityID: strconv.FormatInt(perm.ID, 10),
		Meta:     map[string]any{"name": perm.Name()},
		At:       stamp.At,
	})
	return perm, nil
}

// DeletePermission soft-deletes a permission. Identities that held the pair
// via role or direct grant lose it immediately because checks only consider
// live permission rows.
func (s *Service) DeletePermission(ctx context.Context, actor Actor, id int64) error {
	stamp := lifecycle.NewStamp(actor.UserID)
	if err := s.repo.SoftDeletePermission(ctx, id, stamp); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID:  actor.UserID,
		Action:   "permission.delete",
		Entity:   "permission",
		EntityID: strconv.FormatInt(id, 10),
		At:       stamp.At,
	})
	return nil
}
