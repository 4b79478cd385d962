package members

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/quorum-app/quorum/internal/audit"
	"github.com/quorum-app/quorum/internal/directory"
	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
	"github.com/quorum-app/quorum/internal/users"
)

// EmployeeGetter is the slice of the directory that seating needs.
type EmployeeGetter interface {
	GetEmployee(ctx context.Context, id int64) (directory.Employee, error)
}

// IdentityEnsurer promotes an employee into a system identity when first
// seated. users.Service satisfies it.
type IdentityEnsurer interface {
	EnsureForEmployee(ctx context.Context, actorID, employeeID int64, username string, roleID int64) (users.User, error)
}

// Service handles membership business logic.
type Service struct {
	repo          RepositoryPort
	employees     EmployeeGetter
	identities    IdentityEnsurer
	defaultRoleID int64
	audit         *audit.Logger
}

// NewService builds a Service instance. defaultRoleID is the system role
// auto-promoted identities receive.
func NewService(repo RepositoryPort, employees EmployeeGetter, identities IdentityEnsurer, defaultRoleID int64, auditLogger *audit.Logger) *Service {
	return &Service{repo: repo, employees: employees, identities: identities, defaultRoleID: defaultRoleID, audit: auditLogger}
}

// ListMemberRoles returns live seat types.
func (s *Service) ListMemberRoles(ctx context.Context) ([]MemberRole, error) {
	return s.repo.ListMemberRoles(ctx)
}

// CreateMemberRole adds a seat type.
func (s *Service) CreateMemberRole(ctx context.Context, actorID int64, name string) (MemberRole, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return MemberRole{}, shared.NewValidationError("name", "seat type name is required")
	}
	stamp := lifecycle.NewStamp(actorID)
	mr, err := s.repo.CreateMemberRole(ctx, name, stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return MemberRole{}, &shared.DuplicateError{Entity: "member role", Key: name}
		}
		return MemberRole{}, err
	}
	s.record(ctx, actorID, "member_role.create", "member_role", mr.ID, stamp, map[string]any{"name": mr.Name})
	return mr, nil
}

// DeleteMemberRole soft-deletes a seat type unless live seats still use it.
func (s *Service) DeleteMemberRole(ctx context.Context, actorID, id int64) error {
	inUse, err := s.repo.CountLiveMembersWithRole(ctx, id)
	if err != nil {
		return err
	}
	if inUse > 0 {
		return &shared.GuardError{Entity: "member role", Dependents: "members", Count: inUse}
	}
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SoftDeleteMemberRole(ctx, id, stamp); err != nil {
		return err
	}
	s.record(ctx, actorID, "member_role.delete", "member_role", id, stamp, nil)
	return nil
}

// ListForInstance returns the live roster of an instance.
func (s *Service) ListForInstance(ctx context.Context, ayCommitteeID int64) ([]Member, error) {
	return s.repo.ListForInstance(ctx, ayCommitteeID)
}

// AddMember seats an employee on an instance. If the person has no system
// identity yet, one is created with the default role so they can sign in
// and see their committees.
func (s *Service) AddMember(ctx context.Context, actorID, ayCommitteeID, employeeID, memberRoleID int64) (Member, error) {
	employee, err := s.employees.GetEmployee(ctx, employeeID)
	if err != nil {
		return Member{}, err
	}
	if s.identities != nil {
		if _, err := s.identities.EnsureForEmployee(ctx, actorID, employeeID, employee.Username, s.defaultRoleID); err != nil {
			return Member{}, err
		}
	}
	stamp := lifecycle.NewStamp(actorID)
	member, err := s.repo.CreateMember(ctx, ayCommitteeID, employeeID, memberRoleID, stamp)
	if err != nil {
		if errors.Is(err, shared.ErrDuplicate) {
			return Member{}, &shared.DuplicateError{Entity: "member", Key: employee.Username}
		}
		return Member{}, err
	}
	s.record(ctx, actorID, "member.create", "member", member.ID, stamp,
		map[string]any{"employee": employee.Username, "ay_committee_id": ayCommitteeID})
	return member, nil
}

// ChangeSeat moves a live member to a different seat type.
func (s *Service) ChangeSeat(ctx context.Context, actorID, memberID, memberRoleID int64) error {
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.UpdateMemberRoleAssignment(ctx, memberID, memberRoleID, stamp); err != nil {
		return err
	}
	s.record(ctx, actorID, "member.change_seat", "member", memberID, stamp,
		map[string]any{"member_role_id": memberRoleID})
	return nil
}

// RemoveMember soft-deletes one seat.
func (s *Service) RemoveMember(ctx context.Context, actorID, memberID int64) error {
	stamp := lifecycle.NewStamp(actorID)
	if err := s.repo.SoftDeleteMember(ctx, memberID, stamp); err != nil {
		return err
	}
	s.record(ctx, actorID, "member.delete", "member", memberID, stamp, nil)
	return nil
}

// Name identifies this feature area in cascade audit entries.
func (s *Service) Name() string { return "members" }

// SoftDeleteForAYCommittee removes every live seat of a deleted instance
// with the instance's stamp.
func (s *Service) SoftDeleteForAYCommittee(ctx context.Context, ayCommitteeID int64, stamp lifecycle.Stamp) (int, error) {
	return s.repo.SoftDeleteForAYCommittee(ctx, ayCommitteeID, stamp)
}

// RosterEmails returns the live roster's distinct email addresses.
func (s *Service) RosterEmails(ctx context.Context, ayCommitteeID int64) ([]string, error) {
	return s.repo.ListMemberEmails(ctx, ayCommitteeID)
}

func (s *Service) record(ctx context.Context, actorID int64, action, entity string, entityID int64, stamp lifecycle.Stamp, meta map[string]any) {
	_ = s.audit.Record(ctx, audit.Entry{
		ActorID: actorID, Action: action, Entity: entity,
		EntityID: strconv.FormatInt(entityID, 10),
		Meta:     meta, At: stamp.At,
	})
}
