package users

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/quorum-app/quorum/internal/audit"
	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
)

// Service handles identity business logic.
type Service struct {
	repo  RepositoryPort
	audit *audit.Logger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, auditLogger *audit.Logger) *Service {
	return &Service{repo: repo, audit: auditLogger}
}

// ListUsers returns all live identities.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser fetches an identity with its direct grants.
func (s *Service) GetUser(ctx context.Context, id int64) (UserDetail, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return UserDetail{}, err
	}
	perms, err := s.repo.ListDirectPermissions(ctx, id)
	if err != nil {
		return UserDetail{}, err
	}
	return UserDetail{User: u, DirectPermissions: perms}, nil
}

// CreateUser promotes a person into a system identity. The username must be
// unique among live identities, as must the employee link when present.
func (s *Service) CreateUser(ctx context.Context, actorID int64, in NewUserInput) (User, error) {
	in.Username = strings.TrimSpace(strings.ToLower(in.Username))
	if in.Username == "" {
		return User{}, shared.NewValidationError("username", "username is required")
	}
	if in.RoleID == 0 {
		return User{}, shared.NewValidationError("role_id", "a role is required")
	}
	stamp := lifecycle.NewStamp(actorID)
	u, err := s.repo.CreateUser(ctx, in, stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return User{}, &shared.DuplicateError{Entity: "user", Key: in.Username}
		}
		return User{}, err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "user.create", Entity: "user",
		EntityID: strconv.FormatInt(u.ID, 10),
		Meta:     map[string]any{"username": u.Username}, At: stamp.At,
	})
	return u, nil
}

// EnsureForEmployee returns the live identity for a directory record,
// creating one when none exists yet. Committee membership uses this to
// auto-promote people the first time they are added.
func (s *Service) EnsureForEmployee(ctx context.Context, actorID, employeeID int64, username string, roleID int64) (User, error) {
	u, err := s.repo.GetUserByEmployeeID(ctx, employeeID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return User{}, err
	}
	return s.CreateUser(ctx, actorID, NewUserInput{EmployeeID: &employeeID, Username: username, RoleID: roleID})
}

// AssignRole moves an identity onto a different role.
func (s *Service) AssignRole(ctx context.Context, actorID, userID, roleID int64) error {
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.UpdateRoleAssignment(ctx, userID, roleID, stamp); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "user.assign_role", Entity: "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     map[string]any{"role_id": roleID}, At: stamp.At,
	})
	return nil
}

// SetActive toggles whether the identity may sign in and pass checks.
func (s *Service) SetActive(ctx context.Context, actorID, userID int64, active bool) error {
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SetActive(ctx, userID, active, stamp); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "user.set_active", Entity: "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     map[string]any{"active": active}, At: stamp.At,
	})
	return nil
}

// SetPassword replaces the identity's local credential.
func (s *Service) SetPassword(ctx context.Context, actorID, userID int64, plaintext string) error {
	if len(plaintext) < 8 {
		return shared.NewValidationError("password", "password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SetPasswordHash(ctx, userID, string(hash), stamp); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "user.set_password", Entity: "user",
		EntityID: strconv.FormatInt(userID, 10), At: stamp.At,
	})
	return nil
}

// Deactivate soft-deletes an identity. An actor may not deactivate itself.
func (s *Service) Deactivate(ctx context.Context, actorID, userID int64) error {
	if actorID == userID {
		return shared.NewValidationError("user", "you cannot deactivate your own account")
	}
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SoftDeleteUser(ctx, userID, stamp); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "user.deactivate", Entity: "user",
		EntityID: strconv.FormatInt(userID, 10), At: stamp.At,
	})
	return nil
}

// GrantPermission adds a direct grant on top of whatever the role carries.
func (s *Service) GrantPermission(ctx context.Context, actorID, userID, permissionID int64) error {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return err
	}
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.GrantPermission(ctx, userID, permissionID, stamp); err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return &shared.DuplicateError{Entity: "grant", Key: strconv.FormatInt(permissionID, 10)}
		}
		return err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "user.grant_permission", Entity: "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     map[string]any{"permission_id": permissionID}, At: stamp.At,
	})
	return nil
}

// RevokePermission removes a direct grant. Role-carried permissions are
// untouched; revoking only narrows the direct layer.
func (s *Service) RevokePermission(ctx context.Context, actorID, userID, permissionID int64) error {
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.RevokePermission(ctx, userID, permissionID, stamp); err != nil {
		return err
	}
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: "user.revoke_permission", Entity: "user",
		EntityID: strconv.FormatInt(userID, 10),
		Meta:     map[string]any{"permission_id": permissionID}, At: stamp.At,
	})
	return nil
}
