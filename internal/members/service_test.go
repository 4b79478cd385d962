package members

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quorum-app/quorum/internal/directory"
	"github.com/quorum-app/quorum/internal/lifecycle"
	"github.com/quorum-app/quorum/internal/shared"
	"github.com/quorum-app/quorum/internal/users"
)

type mockRepo struct {
	nextID  int64
	roles   map[int64]*MemberRole
	members map[int64]*Member
}

func newMockRepo() *mockRepo {
	return &mockRepo{nextID: 1, roles: make(map[int64]*MemberRole), members: make(map[int64]*Member)}
}

func (m *mockRepo) ListMemberRoles(_ context.Context) ([]MemberRole, error) {
	var out []MemberRole
	for _, mr := range m.roles {
		if mr.Live() {
			out = append(out, *mr)
		}
	}
	return out, nil
}

func (m *mockRepo) CreateMemberRole(_ context.Context, name string, stamp lifecycle.Stamp) (MemberRole, error) {
	for _, mr := range m.roles {
		if mr.Live() && strings.EqualFold(mr.Name, name) {
			return MemberRole{}, shared.ErrDuplicate
		}
	}
	mr := &MemberRole{ID: m.nextID, Name: name}
	mr.StampCreate(stamp)
	m.roles[mr.ID] = mr
	m.nextID++
	return *mr, nil
}

func (m *mockRepo) SoftDeleteMemberRole(_ context.Context, id int64, stamp lifecycle.Stamp) error {
	mr, ok := m.roles[id]
	if !ok || !mr.Live() {
		return shared.ErrNotFound
	}
	return mr.SoftDelete(stamp)
}

func (m *mockRepo) CountLiveMembersWithRole(_ context.Context, roleID int64) (int, error) {
	count := 0
	for _, mem := range m.members {
		if mem.Live() && mem.MemberRoleID == roleID {
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) ListForInstance(_ context.Context, ayCommitteeID int64) ([]Member, error) {
	var out []Member
	for _, mem := range m.members {
		if mem.Live() && mem.AYCommitteeID == ayCommitteeID {
			out = append(out, *mem)
		}
	}
	return out, nil
}

func (m *mockRepo) GetMember(_ context.Context, id int64) (Member, error) {
	mem, ok := m.members[id]
	if !ok || !mem.Live() {
		return Member{}, shared.ErrNotFound
	}
	return *mem, nil
}

func (m *mockRepo) CreateMember(_ context.Context, ayCommitteeID, employeeID, memberRoleID int64, stamp lifecycle.Stamp) (Member, error) {
	for _, mem := range m.members {
		if mem.Live() && mem.AYCommitteeID == ayCommitteeID && mem.EmployeeID == employeeID {
			return Member{}, shared.ErrDuplicate
		}
	}
	mem := &Member{ID: m.nextID, AYCommitteeID: ayCommitteeID, EmployeeID: employeeID, MemberRoleID: memberRoleID}
	mem.StampCreate(stamp)
	m.members[mem.ID] = mem
	m.nextID++
	return *mem, nil
}

func (m *mockRepo) UpdateMemberRoleAssignment(_ context.Context, id, memberRoleID int64, stamp lifecycle.Stamp) error {
	mem, ok := m.members[id]
	if !ok || !mem.Live() {
		return shared.ErrNotFound
	}
	mem.MemberRoleID = memberRoleID
	mem.StampModify(stamp)
	return nil
}

func (m *mockRepo) SoftDeleteMember(_ context.Context, id int64, stamp lifecycle.Stamp) error {
	mem, ok := m.members[id]
	if !ok || !mem.Live() {
		return shared.ErrNotFound
	}
	return mem.SoftDelete(stamp)
}

func (m *mockRepo) SoftDeleteForAYCommittee(_ context.Context, ayCommitteeID int64, stamp lifecycle.Stamp) (int, error) {
	count := 0
	for _, mem := range m.members {
		if mem.Live() && mem.AYCommitteeID == ayCommitteeID {
			if err := mem.SoftDelete(stamp); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}

func (m *mockRepo) ListMemberEmails(_ context.Context, ayCommitteeID int64) ([]string, error) {
	var emails []string
	for _, mem := range m.members {
		if mem.Live() && mem.AYCommitteeID == ayCommitteeID && mem.Username != "" {
			emails = append(emails, mem.Username+"@example.edu")
		}
	}
	return emails, nil
}

type stubEmployees struct {
	employees map[int64]directory.Employee
}

func (s *stubEmployees) GetEmployee(_ context.Context, id int64) (directory.Employee, error) {
	e, ok := s.employees[id]
	if !ok {
		return directory.Employee{}, shared.ErrNotFound
	}
	return e, nil
}

type stubIdentities struct {
	calls []int64
}

func (s *stubIdentities) EnsureForEmployee(_ context.Context, _, employeeID int64, username string, roleID int64) (users.User, error) {
	s.calls = append(s.calls, employeeID)
	return users.User{ID: 100 + employeeID, EmployeeID: &employeeID, Username: username, RoleID: roleID}, nil
}

func newTestService(repo *mockRepo) (*Service, *stubIdentities) {
	employees := &stubEmployees{employees: map[int64]directory.Employee{
		5: {ID: 5, Username: "jdoe", FirstName: "Jane", LastName: "Doe"},
		6: {ID: 6, Username: "bsmith", FirstName: "Bob", LastName: "Smith"},
	}}
	identities := &stubIdentities{}
	return NewService(repo, employees, identities, 3, nil), identities
}

func TestAddMemberPromotesIdentity(t *testing.T) {
	repo := newMockRepo()
	svc, identities := newTestService(repo)

	mr, err := svc.CreateMemberRole(context.Background(), 1, "Chair")
	require.NoError(t, err)

	member, err := svc.AddMember(context.Background(), 1, 10, 5, mr.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), member.AYCommitteeID)
	assert.Equal(t, []int64{5}, identities.calls)
}

func TestAddMemberUnknownEmployee(t *testing.T) {
	repo := newMockRepo()
	svc, identities := newTestService(repo)

	_, err := svc.AddMember(context.Background(), 1, 10, 999, 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.Empty(t, identities.calls)
}

func TestAddMemberDuplicateSeat(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)

	mr, err := svc.CreateMemberRole(context.Background(), 1, "Member")
	require.NoError(t, err)
	_, err = svc.AddMember(context.Background(), 1, 10, 5, mr.ID)
	require.NoError(t, err)

	_, err = svc.AddMember(context.Background(), 1, 10, 5, mr.ID)
	var derr *shared.DuplicateError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "member", derr.Entity)
}

func TestRemovedMemberCanBeReseated(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)

	mr, err := svc.CreateMemberRole(context.Background(), 1, "Member")
	require.NoError(t, err)
	member, err := svc.AddMember(context.Background(), 1, 10, 5, mr.ID)
	require.NoError(t, err)
	require.NoError(t, svc.RemoveMember(context.Background(), 1, member.ID))

	_, err = svc.AddMember(context.Background(), 1, 10, 5, mr.ID)
	assert.NoError(t, err)
}

func TestDeleteMemberRoleGuarded(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)

	mr, err := svc.CreateMemberRole(context.Background(), 1, "Chair")
	require.NoError(t, err)
	_, err = svc.AddMember(context.Background(), 1, 10, 5, mr.ID)
	require.NoError(t, err)

	err = svc.DeleteMemberRole(context.Background(), 1, mr.ID)
	var gerr *shared.GuardError
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, "member role", gerr.Entity)
	assert.True(t, repo.roles[mr.ID].Live())
}

func TestCascadeRemovesAllSeats(t *testing.T) {
	repo := newMockRepo()
	svc, _ := newTestService(repo)

	mr, err := svc.CreateMemberRole(context.Background(), 1, "Member")
	require.NoError(t, err)
	_, err = svc.AddMember(context.Background(), 1, 10, 5, mr.ID)
	require.NoError(t, err)
	_, err = svc.AddMember(context.Background(), 1, 10, 6, mr.ID)
	require.NoError(t, err)
	// A seat on another instance stays live.
	other, err := svc.AddMember(context.Background(), 1, 11, 5, mr.ID)
	require.NoError(t, err)

	stamp := lifecycle.NewStamp(7)
	count, err := svc.SoftDeleteForAYCommittee(context.Background(), 10, stamp)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	roster, err := svc.ListForInstance(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, roster)
	assert.True(t, repo.members[other.ID].Live())
}
