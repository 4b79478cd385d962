package roles

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/quorum-app/quorum/internal/audit"
	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

// Service handles role business logic.
type Service struct {
	repo  RepositoryPort
	audit *audit.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, auditLogger *audit.Logger) *Service {
	return &Service{repo: repo, audit: auditLogger}
}

// ListRoles returns all live roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches a role with its granted permissions.
func (s *Service) GetRole(ctx context.Context, id int64) (RoleDetail, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return RoleDetail{}, err
	}
	perms, err := s.repo.ListRolePermissions(ctx, id)
	if err != nil {
		return RoleDetail{}, err
	}
	return RoleDetail{Role: role, Permissions: perms}, nil
}

// CreateRole inserts a new role. The name must be unique among live roles.
func (s *Service) CreateRole(ctx context.Context, actorID int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, shared.NewValidationError("name", "role name is required")
	}
	stamp := lifecycle.NewStamp(actorID)
	role, err := s.repo.CreateRole(ctx, name, strings.TrimSpace(description), stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Role{}, &shared.DuplicateError{Entity: "role", Key: name}
		}
		return Role{}, err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "role.create", Entity: "role",
		EntityID: strconv.FormatInt(role.ID, 10),
		Meta:     map[string]any{"name": role.Name}, At: stamp.At,
	})
	return role, nil
}

// UpdateRole renames or re-describes a live role.
func (s *Service) UpdateRole(ctx context.Context, actorID, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, shared.NewValidationError("name", "role name is required")
	}
	stamp := lifecycle.NewStamp(actorID)
	role, err := s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description), stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Role{}, &shared.DuplicateError{Entity: "role", Key: name}
		}
		return Role{}, err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "role.update", Entity: "role",
		EntityID: strconv.FormatInt(role.ID, 10), At: stamp.At,
	})
	return role, nil
}

// DeleteRole soft-deletes a role. The referential guard refuses while any
// live user still holds the role.
func (s *Service) DeleteRole(ctx context.Context, actorID, id int64) error {
	if _, err := s.repo.GetRole(ctx, id); err != nil {
		return err
	}
	liveUsers, err := s.repo.CountLiveUsersWithRole(ctx, id)
	if err != nil {
		return err
	}
	if liveUsers > 0 {
		return &shared.GuardError{Entity: "role", Dependents: "users", Count: liveUsers}
	}
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SoftDeleteRole(ctx, id, stamp); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "role.delete", Entity: "role",
		EntityID: strconv.FormatInt(id, 10), At: stamp.At,
	})
	return nil
}

// SetPermissions replaces the role's grant set.
func (s *Service) SetPermissions(ctx context.Context, actorID, roleID int64, permissionIDs []int64) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	if err := s.repo.SetRolePermissions(ctx, roleID, permissionIDs); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "role.set_permissions", Entity: "role",
		EntityID: strconv.FormatInt(roleID, 10),
		Meta:     map[string]any{"permission_count": len(permissionIDs)},
	})
	return nil
}
